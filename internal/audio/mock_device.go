package audio

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// MockDevice implements Output for testing purposes.
// It simulates playback without producing sound.
type MockDevice struct {
	format Format

	mu       sync.Mutex
	tracks   []*MockTrack
	playErr  error
	autoDone bool
	speed    float64

	// Test callbacks
	callbacks MockCallbacks

	// Metrics for testing
	playCount atomic.Int64
	stopCount atomic.Int64
}

// MockCallbacks provides hooks for testing.
type MockCallbacks struct {
	OnPlay func(t *MockTrack)
	OnStop func(t *MockTrack)
}

// MockMetrics contains counters gathered by a MockDevice.
type MockMetrics struct {
	PlayCount int64
	StopCount int64
	Active    int
}

// NewMockDevice creates a mock device. Tracks stay open until the test
// calls Complete or Fail on them, or until EnableAutoComplete is used.
func NewMockDevice(f Format, callbacks MockCallbacks) *MockDevice {
	return &MockDevice{
		format:    f,
		callbacks: callbacks,
		speed:     1.0,
	}
}

// EnableAutoComplete makes every new track finish after its simulated
// duration divided by speed. A speed of 0 finishes tracks immediately.
func (d *MockDevice) EnableAutoComplete(speed float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.autoDone = true
	d.speed = speed
}

// SetPlayError makes subsequent Play calls fail with err. Pass nil to clear.
func (d *MockDevice) SetPlayError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.playErr = err
}

// Format returns the mock device format.
func (d *MockDevice) Format() Format {
	return d.format
}

// Play records the request and returns a controllable track.
func (d *MockDevice) Play(pcm *PCM, volume float64) (Track, error) {
	if pcm == nil || len(pcm.Data) == 0 {
		return nil, errors.New("audio data is empty")
	}
	if err := validateVolume(volume); err != nil {
		return nil, err
	}

	d.mu.Lock()
	if d.playErr != nil {
		err := d.playErr
		d.mu.Unlock()
		return nil, err
	}
	t := &MockTrack{
		device:   d,
		PCM:      pcm,
		done:     make(chan struct{}),
		Duration: pcm.Duration(),
	}
	t.volume.Store(volumeBits(volume))
	d.tracks = append(d.tracks, t)
	auto, speed := d.autoDone, d.speed
	d.mu.Unlock()

	d.playCount.Add(1)
	if d.callbacks.OnPlay != nil {
		d.callbacks.OnPlay(t)
	}

	if auto {
		go t.simulatePlayback(speed)
	}
	return t, nil
}

// Tracks returns every track started so far, in order.
func (d *MockDevice) Tracks() []*MockTrack {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*MockTrack, len(d.tracks))
	copy(out, d.tracks)
	return out
}

// Last returns the most recent track, or nil.
func (d *MockDevice) Last() *MockTrack {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.tracks) == 0 {
		return nil
	}
	return d.tracks[len(d.tracks)-1]
}

// GetMetrics returns current counters.
func (d *MockDevice) GetMetrics() MockMetrics {
	m := MockMetrics{
		PlayCount: d.playCount.Load(),
		StopCount: d.stopCount.Load(),
	}
	for _, t := range d.Tracks() {
		if !t.Finished() {
			m.Active++
		}
	}
	return m
}

// MockTrack is a track started on a MockDevice.
type MockTrack struct {
	device   *MockDevice
	PCM      *PCM
	Duration time.Duration

	volume  atomic.Uint64
	stopped atomic.Bool

	mu   sync.Mutex
	err  error
	once sync.Once
	done chan struct{}
}

// Done is closed when the track finishes.
func (t *MockTrack) Done() <-chan struct{} { return t.done }

// Err returns the error set by Fail.
func (t *MockTrack) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Stop ends the track. Only the first call counts.
func (t *MockTrack) Stop() {
	if !t.stopped.CompareAndSwap(false, true) {
		return
	}
	t.device.stopCount.Add(1)
	if t.device.callbacks.OnStop != nil {
		t.device.callbacks.OnStop(t)
	}
	t.finish(nil)
}

// SetVolume records the new volume.
func (t *MockTrack) SetVolume(volume float64) error {
	if err := validateVolume(volume); err != nil {
		return err
	}
	t.volume.Store(volumeBits(volume))
	return nil
}

// Volume returns the current volume.
func (t *MockTrack) Volume() float64 {
	return volumeFromBits(t.volume.Load())
}

// Stopped reports whether Stop was called.
func (t *MockTrack) Stopped() bool {
	return t.stopped.Load()
}

// Finished reports whether Done is closed.
func (t *MockTrack) Finished() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Complete simulates the natural end of the clip.
func (t *MockTrack) Complete() {
	t.finish(nil)
}

// Fail simulates a playback error.
func (t *MockTrack) Fail(err error) {
	t.finish(err)
}

func (t *MockTrack) finish(err error) {
	t.once.Do(func() {
		t.mu.Lock()
		t.err = err
		t.mu.Unlock()
		close(t.done)
	})
}

func (t *MockTrack) simulatePlayback(speed float64) {
	if speed <= 0 {
		t.Complete()
		return
	}
	timer := time.NewTimer(time.Duration(float64(t.Duration) / speed))
	defer timer.Stop()

	select {
	case <-timer.C:
		t.Complete()
	case <-t.done:
	}
}
