package speech

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoVoices is returned when an engine offers no voices.
	ErrNoVoices = errors.New("no voices available")

	// ErrEmptyText is returned when asked to speak blank text.
	ErrEmptyText = errors.New("text cannot be empty")
)

// EngineError wraps a failure inside a speech engine.
type EngineError struct {
	Engine string
	Op     string
	Err    error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Engine, e.Op, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

// SynthesisStallError reports a line that did not finish speaking within
// the configured timeout.
type SynthesisStallError struct {
	Voice   string
	Text    string
	Timeout time.Duration
}

func (e *SynthesisStallError) Error() string {
	return fmt.Sprintf("speech with voice %q did not finish within %s", e.Voice, e.Timeout)
}
