package audio

import (
	"testing"
	"time"
)

func TestFormat_Validate(t *testing.T) {
	tests := []struct {
		name    string
		format  Format
		wantErr bool
	}{
		{"stereo 44.1k", Format{SampleRate: 44100, Channels: 2}, false},
		{"mono 22.05k", Format{SampleRate: 22050, Channels: 1}, false},
		{"zero rate", Format{SampleRate: 0, Channels: 1}, true},
		{"zero channels", Format{SampleRate: 44100, Channels: 0}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.format.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPCM_Duration(t *testing.T) {
	f := Format{SampleRate: 44100, Channels: 2}
	pcm := Silence(500*time.Millisecond, f)

	if got := len(pcm.Data); got != 22050*4 {
		t.Fatalf("Silence length = %d, want %d", got, 22050*4)
	}
	if got := pcm.Duration(); got != 500*time.Millisecond {
		t.Errorf("Duration() = %v, want 500ms", got)
	}

	var nilPCM *PCM
	if nilPCM.Duration() != 0 {
		t.Error("nil PCM should have zero duration")
	}
}

func TestValidatePCMData(t *testing.T) {
	f := Format{SampleRate: 44100, Channels: 2}

	if err := ValidatePCMData(nil, f); err == nil {
		t.Error("expected error for empty data")
	}
	if err := ValidatePCMData(make([]byte, 6), f); err == nil {
		t.Error("expected error for misaligned data")
	}
	if err := ValidatePCMData(make([]byte, 8), f); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestConvert(t *testing.T) {
	mono := Format{SampleRate: 22050, Channels: 1}
	stereo := Format{SampleRate: 44100, Channels: 2}

	t.Run("same format is passthrough", func(t *testing.T) {
		in := fromSamples([]int16{1, 2, 3})
		out, err := Convert(in, mono, mono)
		if err != nil {
			t.Fatalf("Convert failed: %v", err)
		}
		if len(out) != len(in) {
			t.Errorf("length = %d, want %d", len(out), len(in))
		}
	})

	t.Run("mono to stereo doubles rate", func(t *testing.T) {
		in := fromSamples([]int16{100, 200, 300, 400})
		out, err := Convert(in, mono, stereo)
		if err != nil {
			t.Fatalf("Convert failed: %v", err)
		}
		samples := toSamples(out)
		// 4 frames at 22050 become 8 frames at 44100, 2 samples each
		if len(samples) != 16 {
			t.Fatalf("got %d samples, want 16", len(samples))
		}
		if samples[0] != 100 || samples[1] != 100 {
			t.Errorf("first frame = %v, want [100 100]", samples[:2])
		}
		// Halfway between frame 0 and 1
		if samples[2] != 150 {
			t.Errorf("interpolated sample = %d, want 150", samples[2])
		}
	})

	t.Run("stereo to mono averages", func(t *testing.T) {
		in := fromSamples([]int16{100, 300, -100, -300})
		out, err := Convert(in, Format{SampleRate: 44100, Channels: 2}, Format{SampleRate: 44100, Channels: 1})
		if err != nil {
			t.Fatalf("Convert failed: %v", err)
		}
		samples := toSamples(out)
		if len(samples) != 2 || samples[0] != 200 || samples[1] != -200 {
			t.Errorf("got %v, want [200 -200]", samples)
		}
	})

	t.Run("invalid format", func(t *testing.T) {
		if _, err := Convert([]byte{0, 0}, Format{}, stereo); err == nil {
			t.Error("expected error for invalid source format")
		}
	})
}
