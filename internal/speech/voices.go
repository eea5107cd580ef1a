package speech

import (
	"strings"

	"github.com/sahilm/fuzzy"
)

// FilterVoices drops voices whose names start with any of hidePrefixes.
// If nothing would remain the full list is returned.
func FilterVoices(voices []Voice, hidePrefixes []string) []Voice {
	if len(hidePrefixes) == 0 {
		return voices
	}

	out := make([]Voice, 0, len(voices))
	for _, v := range voices {
		if !hasAnyPrefix(v.Name, hidePrefixes) {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return voices
	}
	return out
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// FindVoice returns the voice with exactly name.
func FindVoice(voices []Voice, name string) (Voice, bool) {
	for _, v := range voices {
		if v.Name == name {
			return v, true
		}
	}
	return Voice{}, false
}

type voiceNames []Voice

func (v voiceNames) String(i int) string { return v[i].Name }
func (v voiceNames) Len() int            { return len(v) }

// Suggest returns voice names that fuzzily match query, best first.
func Suggest(query string, voices []Voice, limit int) []string {
	matches := fuzzy.FindFrom(query, voiceNames(voices))

	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, voices[m.Index].Name)
	}
	return out
}
