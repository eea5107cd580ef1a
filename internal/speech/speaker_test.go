package speech_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/scriptplay/internal/audio"
	"github.com/dgnsrekt/scriptplay/internal/cache"
	"github.com/dgnsrekt/scriptplay/internal/speech"
	"github.com/dgnsrekt/scriptplay/internal/speech/engines"
)

var outFormat = audio.Format{SampleRate: 44100, Channels: 2}

func newTestSpeaker(t *testing.T, engine speech.Engine, cfg speech.SpeakerConfig) (*speech.Speaker, *audio.MockDevice) {
	t.Helper()
	dev := audio.NewMockDevice(outFormat, audio.MockCallbacks{})
	return speech.NewSpeaker(engine, dev, nil, cfg, log.New(io.Discard)), dev
}

func TestSpeaker_SpeakBlocksUntilTrackEnds(t *testing.T) {
	sp, dev := newTestSpeaker(t, engines.NewMock(), speech.SpeakerConfig{Volume: 0.8})

	done := make(chan error, 1)
	go func() { done <- sp.Speak(context.Background(), "Hello there", "Alice") }()

	var track *audio.MockTrack
	deadline := time.After(time.Second)
	for track == nil {
		select {
		case <-deadline:
			t.Fatal("speech never reached the device")
		default:
			track = dev.Last()
			time.Sleep(time.Millisecond)
		}
	}

	select {
	case err := <-done:
		t.Fatalf("Speak returned before the track ended: %v", err)
	case <-time.After(20 * time.Millisecond):
	}

	if track.Volume() != 0.8 {
		t.Errorf("volume = %v, want 0.8", track.Volume())
	}
	if track.PCM.Format != outFormat {
		t.Errorf("format = %+v, want device format", track.PCM.Format)
	}

	track.Complete()
	if err := <-done; err != nil {
		t.Errorf("Speak error = %v", err)
	}
}

func TestSpeaker_CancelAll(t *testing.T) {
	sp, dev := newTestSpeaker(t, engines.NewMock(), speech.SpeakerConfig{})

	done := make(chan error, 1)
	go func() { done <- sp.Speak(context.Background(), "a long line", "Alice") }()

	deadline := time.Now().Add(time.Second)
	for dev.Last() == nil && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	sp.CancelAll()

	select {
	case err := <-done:
		if !speech.IsCanceled(err) {
			t.Errorf("error = %v, want cancellation", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Speak did not return after CancelAll")
	}
	if !dev.Last().Stopped() {
		t.Error("track should be stopped")
	}
	if sp.Active() != 0 {
		t.Errorf("Active = %d, want 0", sp.Active())
	}
}

func TestSpeaker_CancelDuringSynthesis(t *testing.T) {
	engine := engines.NewMock()
	engine.SetDelay(time.Minute)
	sp, dev := newTestSpeaker(t, engine, speech.SpeakerConfig{})

	done := make(chan error, 1)
	go func() { done <- sp.Speak(context.Background(), "slow", "Alice") }()

	for sp.Active() == 0 {
		time.Sleep(time.Millisecond)
	}
	sp.CancelAll()

	select {
	case err := <-done:
		if !speech.IsCanceled(err) {
			t.Errorf("error = %v, want cancellation", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Speak did not return")
	}
	if dev.GetMetrics().PlayCount != 0 {
		t.Error("nothing should play after cancellation")
	}
}

func TestSpeaker_Resolve(t *testing.T) {
	tests := []struct {
		name     string
		voices   []string
		config   speech.SpeakerConfig
		request  string
		want     string
	}{
		{"exact", []string{"Alice", "Bob"}, speech.SpeakerConfig{}, "Bob", "Bob"},
		{"default fallback", []string{"Alice", "Bob"}, speech.SpeakerConfig{DefaultVoice: "Bob"}, "Carol", "Bob"},
		{"first fallback", []string{"Alice", "Bob"}, speech.SpeakerConfig{DefaultVoice: "Zed"}, "Carol", "Alice"},
		{"hidden prefix", []string{"Google US", "Alice"}, speech.SpeakerConfig{HidePrefixes: []string{"Google"}}, "Google US", "Alice"},
		{"all hidden keeps list", []string{"Google US", "Google UK"}, speech.SpeakerConfig{HidePrefixes: []string{"Google"}}, "Google UK", "Google UK"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sp, _ := newTestSpeaker(t, engines.NewMock(tt.voices...), tt.config)
			v, err := sp.Resolve(context.Background(), tt.request)
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			if v.Name != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.request, v.Name, tt.want)
			}
		})
	}
}

func TestSpeaker_SynthesisErrors(t *testing.T) {
	engine := engines.NewMock()
	boom := errors.New("engine crashed")
	engine.SetError(boom)
	sp, _ := newTestSpeaker(t, engine, speech.SpeakerConfig{})

	err := sp.Speak(context.Background(), "hi", "Alice")
	var engErr *speech.EngineError
	if !errors.As(err, &engErr) || !errors.Is(err, boom) {
		t.Errorf("error = %v, want EngineError wrapping boom", err)
	}

	if err := sp.Speak(context.Background(), "   ", "Alice"); !errors.Is(err, speech.ErrEmptyText) {
		t.Errorf("error = %v, want ErrEmptyText", err)
	}
}

func TestSpeaker_PlaybackError(t *testing.T) {
	sp, dev := newTestSpeaker(t, engines.NewMock(), speech.SpeakerConfig{})
	unplugged := errors.New("unplugged")
	dev.SetPlayError(unplugged)

	if err := sp.Speak(context.Background(), "hi", "Alice"); !errors.Is(err, unplugged) {
		t.Errorf("error = %v, want %v", err, unplugged)
	}
}

func TestSpeaker_UsesCache(t *testing.T) {
	engine := engines.NewMock()
	dev := audio.NewMockDevice(outFormat, audio.MockCallbacks{})
	dev.EnableAutoComplete(0)

	mgr, err := cache.NewManager(&cache.Config{MemoryCapacity: 1 << 24}, log.New(io.Discard))
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	defer mgr.Close()

	sp := speech.NewSpeaker(engine, dev, mgr, speech.SpeakerConfig{}, log.New(io.Discard))

	for i := 0; i < 3; i++ {
		if err := sp.Speak(context.Background(), "same line", "Alice"); err != nil {
			t.Fatalf("Speak %d failed: %v", i, err)
		}
	}
	if engine.Calls() != 1 {
		t.Errorf("engine calls = %d, want 1", engine.Calls())
	}
	if dev.GetMetrics().PlayCount != 3 {
		t.Errorf("plays = %d, want 3", dev.GetMetrics().PlayCount)
	}

	_ = sp.Speak(context.Background(), "same line", "Bob")
	if engine.Calls() != 2 {
		t.Errorf("a different voice must miss the cache")
	}
}

func TestSpeaker_ConcurrentSpeakAndCancel(t *testing.T) {
	dev := audio.NewMockDevice(outFormat, audio.MockCallbacks{})
	dev.EnableAutoComplete(100)
	sp := speech.NewSpeaker(engines.NewMock(), dev, nil, speech.SpeakerConfig{}, log.New(io.Discard))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = sp.Speak(context.Background(), "one two", "Alice")
		}()
	}
	sp.CancelAll()
	wg.Wait()

	if sp.Active() != 0 {
		t.Errorf("Active = %d, want 0", sp.Active())
	}
}

func TestSpeaker_Warm(t *testing.T) {
	engine := engines.NewMock()
	dev := audio.NewMockDevice(outFormat, audio.MockCallbacks{})
	dev.EnableAutoComplete(0)

	t.Run("without cache", func(t *testing.T) {
		sp := speech.NewSpeaker(engine, dev, nil, speech.SpeakerConfig{}, log.New(io.Discard))
		if err := sp.Warm(context.Background(), "hello", "Alice"); err != nil {
			t.Fatalf("Warm failed: %v", err)
		}
		if engine.Calls() != 0 {
			t.Errorf("engine calls = %d, want 0", engine.Calls())
		}
	})

	t.Run("fills the cache", func(t *testing.T) {
		mgr, err := cache.NewManager(&cache.Config{MemoryCapacity: 1 << 24}, log.New(io.Discard))
		if err != nil {
			t.Fatalf("NewManager failed: %v", err)
		}
		defer mgr.Close()

		sp := speech.NewSpeaker(engine, dev, mgr, speech.SpeakerConfig{}, log.New(io.Discard))
		if err := sp.Warm(context.Background(), "  warm me ", "Alice"); err != nil {
			t.Fatalf("Warm failed: %v", err)
		}
		if dev.GetMetrics().PlayCount != 0 {
			t.Error("Warm must not play")
		}
		if err := sp.Speak(context.Background(), "warm me", "Alice"); err != nil {
			t.Fatalf("Speak failed: %v", err)
		}
		if engine.Calls() != 1 {
			t.Errorf("engine calls = %d, want 1", engine.Calls())
		}
		if !errors.Is(sp.Warm(context.Background(), " ", "Alice"), speech.ErrEmptyText) {
			t.Error("blank text should be rejected")
		}
	})
}

func TestSpeaker_CacheKeyIsNormalized(t *testing.T) {
	engine := engines.NewMock()
	dev := audio.NewMockDevice(outFormat, audio.MockCallbacks{})
	dev.EnableAutoComplete(0)

	mgr, err := cache.NewManager(&cache.Config{MemoryCapacity: 1 << 24}, log.New(io.Discard))
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	defer mgr.Close()

	sp := speech.NewSpeaker(engine, dev, mgr, speech.SpeakerConfig{}, log.New(io.Discard))
	// "café" precomposed, then with a combining acute accent.
	for _, text := range []string{"café", "café"} {
		if err := sp.Warm(context.Background(), text, "Alice"); err != nil {
			t.Fatalf("Warm(%q) failed: %v", text, err)
		}
	}
	if engine.Calls() != 1 {
		t.Errorf("engine calls = %d, want 1", engine.Calls())
	}
}
