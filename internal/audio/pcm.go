package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// BitDepth is the only sample width the device plays: signed 16-bit
// little endian.
const BitDepth = 16

// Format describes interleaved 16-bit PCM.
type Format struct {
	SampleRate int
	Channels   int
}

// FrameSize returns the number of bytes per frame (one sample per channel).
func (f Format) FrameSize() int {
	return f.Channels * BitDepth / 8
}

// Validate reports whether the format is usable.
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", f.SampleRate)
	}
	if f.Channels <= 0 {
		return fmt.Errorf("channel count must be positive, got %d", f.Channels)
	}
	return nil
}

// PCM is decoded audio ready for playback.
type PCM struct {
	Data   []byte
	Format Format
}

// Duration returns the playing time of the audio.
func (p *PCM) Duration() time.Duration {
	if p == nil || p.Format.SampleRate == 0 || p.Format.FrameSize() == 0 {
		return 0
	}
	frames := len(p.Data) / p.Format.FrameSize()
	return time.Duration(frames) * time.Second / time.Duration(p.Format.SampleRate)
}

// Silence returns silent audio of the given duration.
func Silence(d time.Duration, f Format) *PCM {
	frames := int(d.Seconds() * float64(f.SampleRate))
	return &PCM{Data: make([]byte, frames*f.FrameSize()), Format: f}
}

// ValidatePCMData checks that data is non-empty and frame aligned.
func ValidatePCMData(data []byte, f Format) error {
	if len(data) == 0 {
		return errors.New("empty PCM data")
	}
	if len(data)%f.FrameSize() != 0 {
		return fmt.Errorf("PCM data length %d is not aligned to %d-byte frames", len(data), f.FrameSize())
	}
	return nil
}

// Convert changes the channel layout and sample rate of 16-bit PCM.
// Channels are up- or down-mixed first, then the result is resampled with
// linear interpolation, which is plenty for speech and sound effects.
func Convert(data []byte, from, to Format) ([]byte, error) {
	if err := from.Validate(); err != nil {
		return nil, fmt.Errorf("source format: %w", err)
	}
	if err := to.Validate(); err != nil {
		return nil, fmt.Errorf("target format: %w", err)
	}
	if from == to {
		return data, nil
	}

	samples := toSamples(data)
	frames := len(samples) / from.Channels
	samples = samples[:frames*from.Channels]

	mixed := remix(samples, frames, from.Channels, to.Channels)
	out := resample(mixed, frames, to.Channels, from.SampleRate, to.SampleRate)

	return fromSamples(out), nil
}

func remix(in []int16, frames, fromCh, toCh int) []int16 {
	if fromCh == toCh {
		return in
	}

	out := make([]int16, frames*toCh)
	for i := 0; i < frames; i++ {
		src := in[i*fromCh : (i+1)*fromCh]
		dst := out[i*toCh : (i+1)*toCh]

		if toCh == 1 {
			var sum int
			for _, s := range src {
				sum += int(s)
			}
			dst[0] = int16(sum / fromCh)
			continue
		}

		for c := range dst {
			dst[c] = src[c%fromCh]
		}
	}
	return out
}

func resample(in []int16, frames, channels, fromRate, toRate int) []int16 {
	if fromRate == toRate || frames == 0 {
		return in
	}

	ratio := float64(toRate) / float64(fromRate)
	outFrames := int(float64(frames) * ratio)
	out := make([]int16, outFrames*channels)

	for i := 0; i < outFrames; i++ {
		pos := float64(i) / ratio
		idx := int(pos)
		frac := pos - float64(idx)

		for c := 0; c < channels; c++ {
			if idx >= frames-1 {
				out[i*channels+c] = in[(frames-1)*channels+c]
				continue
			}
			a := float64(in[idx*channels+c])
			b := float64(in[(idx+1)*channels+c])
			out[i*channels+c] = int16(a*(1-frac) + b*frac)
		}
	}
	return out
}

func toSamples(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return samples
}

func fromSamples(samples []int16) []byte {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(s))
	}
	return data
}
