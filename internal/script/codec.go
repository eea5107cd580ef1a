package script

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dgnsrekt/scriptplay/internal/resource"
)

type speechJSON struct {
	ID        string `json:"id"`
	Kind      Kind   `json:"kind"`
	VoiceName string `json:"voiceName"`
	Text      string `json:"text"`
}

type audioJSON struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	FileName  string    `json:"fileName"`
	AudioData string    `json:"audioData"`
	AudioType AudioRole `json:"audioType"`
}

// rawItem is the decoding shape. Pointers tell missing fields from empty
// ones; "type" is the key older files used instead of "kind".
type rawItem struct {
	ID        *string `json:"id"`
	Kind      *string `json:"kind"`
	Type      *string `json:"type"`
	VoiceName *string `json:"voiceName"`
	Text      *string `json:"text"`
	FileName  *string `json:"fileName"`
	AudioData *string `json:"audioData"`
	AudioType *string `json:"audioType"`
}

// Serialize returns the persisted form of items, pretty printed with two
// space indentation. Handles are never written.
func Serialize(items []Item) ([]byte, error) {
	out := make([]any, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case SpeechItem:
			out = append(out, speechJSON{
				ID:        v.id,
				Kind:      KindSpeech,
				VoiceName: v.VoiceName,
				Text:      v.Text,
			})
		case AudioItem:
			out = append(out, audioJSON{
				ID:        v.id,
				Kind:      KindAudio,
				FileName:  v.FileName,
				AudioData: v.Content,
				AudioType: v.Role.Normalize(),
			})
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode script: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode parses a persisted script. Every item gets a fresh id and no
// handle. The first invalid element rejects the whole document.
func Decode(raw []byte) ([]Item, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, &SchemaError{Index: -1, Reason: "file is empty"}
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, &SchemaError{Index: -1, Reason: "expected a JSON array", Err: err}
	}
	// null unmarshals into a nil slice without error
	if elems == nil {
		return nil, &SchemaError{Index: -1, Reason: "expected a JSON array"}
	}

	items := make([]Item, 0, len(elems))
	for i, elem := range elems {
		item, err := decodeItem(elem)
		if err != nil {
			return nil, &SchemaError{Index: i, Reason: err.Error()}
		}
		items = append(items, item)
	}
	return items, nil
}

func decodeItem(elem json.RawMessage) (Item, error) {
	if bytes.Equal(bytes.TrimSpace(elem), []byte("null")) {
		return nil, fmt.Errorf("expected an object")
	}

	var r rawItem
	if err := json.Unmarshal(elem, &r); err != nil {
		return nil, fmt.Errorf("wrong field types: %v", err)
	}

	kind := r.Kind
	if kind == nil {
		kind = r.Type
	}
	if kind == nil {
		return nil, fmt.Errorf("missing kind")
	}

	switch Kind(*kind) {
	case KindSpeech:
		if r.VoiceName == nil || strings.TrimSpace(*r.VoiceName) == "" {
			return nil, fmt.Errorf("speech item needs a voiceName")
		}
		if r.Text == nil || strings.TrimSpace(*r.Text) == "" {
			return nil, fmt.Errorf("speech item needs non-empty text")
		}
		return NewSpeech(*r.VoiceName, *r.Text), nil

	case KindAudio:
		if r.FileName == nil {
			return nil, fmt.Errorf("audio item needs a fileName")
		}
		if r.AudioData == nil {
			return nil, fmt.Errorf("audio item needs audioData")
		}
		if !resource.IsDataURI(*r.AudioData) {
			return nil, fmt.Errorf("audioData is not a base64 data URI")
		}
		role := RoleEffect
		if r.AudioType != nil {
			role = AudioRole(*r.AudioType).Normalize()
			if !role.Valid() {
				return nil, fmt.Errorf("unknown audioType %q", *r.AudioType)
			}
		}
		return NewAudio(*r.FileName, *r.AudioData, role), nil

	default:
		return nil, fmt.Errorf("unknown kind %q", *kind)
	}
}
