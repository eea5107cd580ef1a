package sequencer

import (
	"errors"
	"fmt"
)

// ErrEmptyScript is returned by Start when there is nothing to play.
var ErrEmptyScript = errors.New("script is empty")

// PlaybackResourceError reports a clip that could not be decoded or played.
// The run logs it and moves on to the next item.
type PlaybackResourceError struct {
	ItemID   string
	FileName string
	Err      error
}

func (e *PlaybackResourceError) Error() string {
	return fmt.Sprintf("play %q: %v", e.FileName, e.Err)
}

func (e *PlaybackResourceError) Unwrap() error { return e.Err }
