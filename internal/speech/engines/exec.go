package engines

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"

	"github.com/dgnsrekt/scriptplay/internal/audio"
	"github.com/dgnsrekt/scriptplay/internal/speech"
)

// ExecConfig configures the exec engine.
type ExecConfig struct {
	// Command is a shell-style command line, e.g. "python3 tts.py --fast".
	Command string

	// Voices advertised to the editor. The name is passed through as is.
	Voices []string

	SampleRate int // default 22050
	Channels   int // default 1

	Timeout time.Duration // default 30s
}

// Exec drives any program that speaks a small JSON protocol: one request
// object on stdin, one response object per stdout line carrying base64
// PCM chunks, the last with "final": true.
type Exec struct {
	args   []string
	config ExecConfig
}

type execRequest struct {
	Text       string `json:"text"`
	Voice      string `json:"voice"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

type execResponse struct {
	PCMBase64 string `json:"pcm_base64"`
	Final     bool   `json:"final"`
	Error     string `json:"error,omitempty"`
}

// NewExec parses the command line and creates the engine.
func NewExec(config ExecConfig) (*Exec, error) {
	args, err := shellwords.NewParser().Parse(config.Command)
	if err != nil {
		return nil, fmt.Errorf("parse tts command: %w", err)
	}
	if len(args) == 0 {
		return nil, errors.New("tts command empty")
	}
	if config.SampleRate <= 0 {
		config.SampleRate = 22050
	}
	if config.Channels <= 0 {
		config.Channels = 1
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if len(config.Voices) == 0 {
		config.Voices = []string{"default"}
	}
	return &Exec{args: args, config: config}, nil
}

func (e *Exec) Name() string { return "exec" }

func (e *Exec) Voices(context.Context) ([]speech.Voice, error) {
	voices := make([]speech.Voice, 0, len(e.config.Voices))
	for _, name := range e.config.Voices {
		voices = append(voices, speech.Voice{Name: name})
	}
	return voices, nil
}

// Synthesize runs the command once per line and joins the PCM chunks.
func (e *Exec) Synthesize(ctx context.Context, text string, voice speech.Voice) (*audio.PCM, error) {
	if strings.TrimSpace(text) == "" {
		return nil, speech.ErrEmptyText
	}

	req, err := json.Marshal(execRequest{
		Text:       text,
		Voice:      voice.Name,
		SampleRate: e.config.SampleRate,
		Channels:   e.config.Channels,
	})
	if err != nil {
		return nil, err
	}

	out, err := runProcess(ctx, e.config.Timeout, bytes.NewReader(req), e.args[0], e.args[1:]...)
	if err != nil {
		return nil, err
	}

	pcm, err := parseExecOutput(out)
	if err != nil {
		return nil, err
	}

	f := audio.Format{SampleRate: e.config.SampleRate, Channels: e.config.Channels}
	return &audio.PCM{Data: pcm[:len(pcm)-len(pcm)%f.FrameSize()], Format: f}, nil
}

func parseExecOutput(out []byte) ([]byte, error) {
	var pcm []byte
	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), maxOutputSize)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var resp execResponse
		if err := json.Unmarshal(line, &resp); err != nil {
			return nil, fmt.Errorf("invalid response line: %w", err)
		}
		if resp.Error != "" {
			return nil, errors.New(resp.Error)
		}

		chunk, err := base64.StdEncoding.DecodeString(resp.PCMBase64)
		if err != nil {
			return nil, fmt.Errorf("invalid pcm_base64: %w", err)
		}
		pcm = append(pcm, chunk...)

		if resp.Final {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return pcm, nil
}

// Validate checks that the command exists.
func (e *Exec) Validate() error {
	if _, err := exec.LookPath(e.args[0]); err != nil {
		return fmt.Errorf("tts command %q not found: %w", e.args[0], err)
	}
	return nil
}

func (e *Exec) Close() error { return nil }

var _ speech.Engine = (*Exec)(nil)
