package script

import (
	"strings"

	"github.com/google/uuid"

	"github.com/dgnsrekt/scriptplay/internal/resource"
)

// Kind tells speech lines and audio clips apart.
type Kind string

const (
	KindSpeech Kind = "speech"
	KindAudio  Kind = "audio"
)

// AudioRole decides how a clip takes part in playback.
type AudioRole string

const (
	// RoleEffect clips block the sequence until they finish.
	RoleEffect AudioRole = "effect"

	// RoleBackground clips play under the following items.
	RoleBackground AudioRole = "background"
)

// Normalize maps the zero value to RoleEffect.
func (r AudioRole) Normalize() AudioRole {
	if r == "" {
		return RoleEffect
	}
	return r
}

// Valid reports whether r is a known role.
func (r AudioRole) Valid() bool {
	switch r.Normalize() {
	case RoleEffect, RoleBackground:
		return true
	default:
		return false
	}
}

// Toggle flips between effect and background.
func (r AudioRole) Toggle() AudioRole {
	if r.Normalize() == RoleBackground {
		return RoleEffect
	}
	return RoleBackground
}

// Item is one entry of a script. It is implemented only by SpeechItem and
// AudioItem; switches over items handle exactly those two cases.
type Item interface {
	ID() string
	Kind() Kind
	isItem()
}

// SpeechItem is a line of text spoken with a named voice. The voice is
// resolved by name at play time.
type SpeechItem struct {
	id        string
	VoiceName string
	Text      string
}

// NewSpeech creates a speech line with a fresh id.
func NewSpeech(voiceName, text string) SpeechItem {
	return SpeechItem{
		id:        uuid.NewString(),
		VoiceName: strings.TrimSpace(voiceName),
		Text:      strings.TrimSpace(text),
	}
}

func (s SpeechItem) ID() string { return s.id }
func (s SpeechItem) Kind() Kind { return KindSpeech }
func (SpeechItem) isItem()      {}

// AudioItem is an uploaded clip. Content is the durable data URI; the
// handle is the transient playable reference owned by the store.
type AudioItem struct {
	id       string
	FileName string
	Content  string
	Role     AudioRole
	handle   *resource.Handle
}

// NewAudio creates a clip with a fresh id and no handle.
func NewAudio(fileName, content string, role AudioRole) AudioItem {
	return AudioItem{
		id:       uuid.NewString(),
		FileName: fileName,
		Content:  content,
		Role:     role.Normalize(),
	}
}

func (a AudioItem) ID() string { return a.id }
func (a AudioItem) Kind() Kind { return KindAudio }
func (AudioItem) isItem()      {}

// Handle returns the playable handle, or nil if none is held.
func (a AudioItem) Handle() *resource.Handle { return a.handle }

// Label is the display text of an item: the line text or the file name.
func Label(item Item) string {
	switch v := item.(type) {
	case SpeechItem:
		return v.Text
	case AudioItem:
		return v.FileName
	default:
		return ""
	}
}

func validate(item Item) error {
	switch v := item.(type) {
	case SpeechItem:
		if strings.TrimSpace(v.Text) == "" {
			return &ValidationError{Field: "text", Reason: "line text is empty"}
		}
		if strings.TrimSpace(v.VoiceName) == "" {
			return &ValidationError{Field: "voiceName", Reason: "no voice selected"}
		}
	case AudioItem:
		if v.Content == "" {
			return &ValidationError{Field: "audioData", Reason: "clip has no content"}
		}
		if !v.Role.Valid() {
			return &ValidationError{Field: "audioType", Reason: "unknown audio role " + string(v.Role)}
		}
	case nil:
		return &ValidationError{Field: "item", Reason: "item is nil"}
	}
	if item.ID() == "" {
		return &ValidationError{Field: "id", Reason: "item has no id"}
	}
	return nil
}

// withID returns item carrying id. It is how the store keeps ids stable
// across Update.
func withID(item Item, id string) Item {
	switch v := item.(type) {
	case SpeechItem:
		v.id = id
		return v
	case AudioItem:
		v.id = id
		return v
	default:
		return item
	}
}

func normalize(item Item) Item {
	switch v := item.(type) {
	case SpeechItem:
		v.Text = strings.TrimSpace(v.Text)
		v.VoiceName = strings.TrimSpace(v.VoiceName)
		return v
	case AudioItem:
		v.Role = v.Role.Normalize()
		return v
	default:
		return item
	}
}
