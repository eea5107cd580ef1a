package audio

import "math"

// Track is one playing clip. Done is closed exactly once, when the clip
// reaches its natural end or when Stop is called.
type Track interface {
	// Done is closed when playback is over.
	Done() <-chan struct{}

	// Err returns the playback error, if any, once Done is closed.
	Err() error

	// Stop pauses the track and rewinds it to the start. Safe to call
	// more than once and after the track finished.
	Stop()

	// SetVolume sets the track volume (0.0 to 1.0).
	SetVolume(volume float64) error
}

// Output plays PCM audio. Implementations must allow several tracks to
// play at the same time.
type Output interface {
	// Format is the PCM layout Play expects.
	Format() Format

	// Play starts a new track at the given volume.
	Play(pcm *PCM, volume float64) (Track, error)
}

func validateVolume(volume float64) error {
	if volume < 0.0 || volume > 1.0 {
		return &VolumeError{Volume: volume}
	}
	return nil
}

// VolumeError reports an out-of-range volume.
type VolumeError struct {
	Volume float64
}

func (e *VolumeError) Error() string {
	return "volume must be between 0.0 and 1.0, got " + formatFloat(e.Volume)
}

func volumeBits(v float64) uint64 {
	return math.Float64bits(v)
}

func volumeFromBits(b uint64) float64 {
	return math.Float64frombits(b)
}
