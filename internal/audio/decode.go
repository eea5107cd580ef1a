package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"strconv"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

// ErrUnsupportedFormat is returned for audio the decoder does not understand.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Decode turns an encoded audio file into PCM in the target format.
// mimeType comes from the clip's data URI; when it is missing or generic
// the container is sniffed from the leading bytes.
func Decode(mimeType string, data []byte, target Format) (*PCM, error) {
	if len(data) == 0 {
		return nil, errors.New("audio data is empty")
	}

	mediaType, params, err := mime.ParseMediaType(mimeType)
	if err != nil {
		mediaType = ""
	}
	if mediaType == "" || mediaType == "application/octet-stream" {
		mediaType = sniff(data)
	}

	var pcm *PCM
	switch mediaType {
	case "audio/wav", "audio/x-wav", "audio/wave", "audio/vnd.wave":
		pcm, err = decodeWAV(data)
	case "audio/mpeg", "audio/mp3", "audio/mpeg3", "audio/x-mpeg-3":
		pcm, err = decodeMP3(data)
	case "audio/l16":
		pcm, err = decodeL16(data, params)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, mediaType)
	}
	if err != nil {
		return nil, err
	}

	converted, err := Convert(pcm.Data, pcm.Format, target)
	if err != nil {
		return nil, fmt.Errorf("convert %s: %w", mediaType, err)
	}
	return &PCM{Data: converted, Format: target}, nil
}

func sniff(data []byte) string {
	switch {
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE":
		return "audio/wav"
	case len(data) >= 3 && string(data[0:3]) == "ID3":
		return "audio/mpeg"
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return "audio/mpeg"
	default:
		return ""
	}
}

func decodeWAV(data []byte) (*PCM, error) {
	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		return nil, errors.New("invalid WAV file")
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode WAV: %w", err)
	}
	if buf.Format == nil {
		return nil, errors.New("WAV file has no format chunk")
	}
	if len(buf.Data) == 0 {
		return nil, errors.New("WAV file has no samples")
	}

	shift := int(d.BitDepth) - BitDepth
	samples := make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		switch {
		case d.BitDepth == 8:
			// 8-bit WAV is unsigned
			samples[i] = int16((v - 128) << 8)
		case shift > 0:
			samples[i] = int16(v >> shift)
		default:
			samples[i] = int16(v)
		}
	}

	return &PCM{
		Data: fromSamples(samples),
		Format: Format{
			SampleRate: buf.Format.SampleRate,
			Channels:   buf.Format.NumChannels,
		},
	}, nil
}

func decodeMP3(data []byte) (*PCM, error) {
	d, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode MP3: %w", err)
	}

	out, err := io.ReadAll(d)
	if err != nil {
		return nil, fmt.Errorf("decode MP3: %w", err)
	}

	// go-mp3 always produces 16-bit stereo
	f := Format{SampleRate: d.SampleRate(), Channels: 2}
	return &PCM{Data: out[:len(out)-len(out)%f.FrameSize()], Format: f}, nil
}

func decodeL16(data []byte, params map[string]string) (*PCM, error) {
	f := Format{SampleRate: 44100, Channels: 1}
	if v, ok := params["rate"]; ok {
		rate, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("invalid L16 rate %q: %w", v, err)
		}
		f.SampleRate = rate
	}
	if v, ok := params["channels"]; ok {
		ch, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("invalid L16 channels %q: %w", v, err)
		}
		f.Channels = ch
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}

	// audio/L16 is big endian on the wire
	out := make([]byte, len(data)-len(data)%2)
	for i := 0; i+1 < len(data); i += 2 {
		out[i], out[i+1] = data[i+1], data[i]
	}
	return &PCM{Data: out[:len(out)-len(out)%f.FrameSize()], Format: f}, nil
}
