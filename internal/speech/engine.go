package speech

import (
	"context"

	"github.com/dgnsrekt/scriptplay/internal/audio"
)

// Voice is one voice an engine can speak with. Name is the identifier
// stored in scripts.
type Voice struct {
	Name     string
	Language string
	Gender   string
}

func (v Voice) String() string {
	if v.Language == "" {
		return v.Name
	}
	return v.Name + " (" + v.Language + ")"
}

// Engine synthesizes speech.
type Engine interface {
	// Name identifies the engine in logs and cache keys.
	Name() string

	// Voices lists the available voices.
	Voices(ctx context.Context) ([]Voice, error)

	// Synthesize renders text with voice. The PCM may be in any format;
	// callers convert it for their output.
	Synthesize(ctx context.Context, text string, voice Voice) (*audio.PCM, error)

	// Validate checks that the engine can run (binaries, models).
	Validate() error

	// Close releases engine resources.
	Close() error
}
