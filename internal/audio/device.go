package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// ErrDeviceClosed is returned when playing on a closed device.
var ErrDeviceClosed = errors.New("audio device is closed")

// monitorInterval is how often a track checks for its natural end.
const monitorInterval = 20 * time.Millisecond

// DeviceConfig contains configuration for the audio device.
type DeviceConfig struct {
	SampleRate int // 44100 or 48000 Hz only
	Channels   int // 1 = mono, 2 = stereo
	BufferSize int // Buffer size in bytes
}

// DefaultDeviceConfig returns the default device configuration.
func DefaultDeviceConfig() DeviceConfig {
	return DeviceConfig{
		SampleRate: 44100,
		Channels:   2, // Stereo for music beds
		BufferSize: 4096,
	}
}

// validateConfig validates the device configuration.
func validateConfig(config DeviceConfig) error {
	// OTO only supports specific sample rates reliably
	if config.SampleRate != 44100 && config.SampleRate != 48000 {
		return fmt.Errorf("sample rate must be 44100 or 48000 Hz, got %d", config.SampleRate)
	}

	if config.Channels != 1 && config.Channels != 2 {
		return fmt.Errorf("channels must be 1 (mono) or 2 (stereo), got %d", config.Channels)
	}

	if config.BufferSize <= 0 {
		return errors.New("buffer size must be positive")
	}

	return nil
}

// Device implements Output on top of a single oto context. oto allows one
// context per process, so a Device is created once and shared.
type Device struct {
	context *oto.Context
	format  Format

	mu     sync.Mutex
	tracks map[*deviceTrack]struct{}
	closed bool
}

// NewDevice opens the audio device.
func NewDevice(config DeviceConfig) (*Device, error) {
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	f := Format{SampleRate: config.SampleRate, Channels: config.Channels}
	op := &oto.NewContextOptions{
		SampleRate:   config.SampleRate,
		ChannelCount: config.Channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   time.Duration(config.BufferSize) * time.Second / time.Duration(config.SampleRate*f.FrameSize()),
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-ready

	return &Device{
		context: ctx,
		format:  f,
		tracks:  make(map[*deviceTrack]struct{}),
	}, nil
}

// Format returns the device PCM layout.
func (d *Device) Format() Format {
	return d.format
}

// Play starts a new track. The PCM data must already be in the device
// format; see Decode and Convert.
func (d *Device) Play(pcm *PCM, volume float64) (Track, error) {
	if pcm == nil {
		return nil, errors.New("audio data is empty")
	}
	if pcm.Format != d.format {
		return nil, fmt.Errorf("audio format %+v does not match device format %+v", pcm.Format, d.format)
	}
	if err := ValidatePCMData(pcm.Data, d.format); err != nil {
		return nil, err
	}
	if err := validateVolume(volume); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrDeviceClosed
	}

	// The reader keeps the PCM slice referenced for the whole playback.
	reader := bytes.NewReader(pcm.Data)
	player := d.context.NewPlayer(reader)
	player.SetVolume(volume)

	t := &deviceTrack{
		device: d,
		player: player,
		reader: reader,
		done:   make(chan struct{}),
		stopCh: make(chan struct{}),
	}
	d.tracks[t] = struct{}{}

	player.Play()
	go t.monitor()

	return t, nil
}

// Active returns the number of tracks that have not finished.
func (d *Device) Active() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.tracks)
}

// Close stops every track. oto contexts cannot be closed, so the device is
// only marked unusable.
func (d *Device) Close() error {
	d.mu.Lock()
	d.closed = true
	tracks := make([]*deviceTrack, 0, len(d.tracks))
	for t := range d.tracks {
		tracks = append(tracks, t)
	}
	d.mu.Unlock()

	for _, t := range tracks {
		t.Stop()
	}
	return nil
}

func (d *Device) forget(t *deviceTrack) {
	d.mu.Lock()
	delete(d.tracks, t)
	d.mu.Unlock()
}

type deviceTrack struct {
	device *Device
	player *oto.Player
	reader *bytes.Reader

	mu       sync.Mutex
	err      error
	done     chan struct{}
	doneOnce sync.Once
	stopCh   chan struct{}
	stopOnce sync.Once
}

func (t *deviceTrack) Done() <-chan struct{} { return t.done }

func (t *deviceTrack) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *deviceTrack) SetVolume(volume float64) error {
	if err := validateVolume(volume); err != nil {
		return err
	}
	t.player.SetVolume(volume)
	return nil
}

// Stop pauses, rewinds and closes the underlying player.
func (t *deviceTrack) Stop() {
	t.stopOnce.Do(func() {
		close(t.stopCh)
		t.player.Pause()
		_, _ = t.player.Seek(0, io.SeekStart)
		t.finish(nil)
	})
}

// monitor waits for the natural end of the clip.
func (t *deviceTrack) monitor() {
	ticker := time.NewTicker(monitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stopCh:
			return
		case <-ticker.C:
			if t.player.IsPlaying() {
				continue
			}
			if err := t.player.Err(); err != nil {
				t.finish(fmt.Errorf("playback failed: %w", err))
				return
			}
			if t.reader.Len() == 0 && t.player.BufferedSize() == 0 {
				t.finish(nil)
				return
			}
		}
	}
}

func (t *deviceTrack) finish(err error) {
	t.doneOnce.Do(func() {
		t.mu.Lock()
		t.err = err
		t.mu.Unlock()
		_ = t.player.Close()
		t.device.forget(t)
		close(t.done)
	})
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}
