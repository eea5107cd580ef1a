package engines

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dgnsrekt/scriptplay/internal/audio"
	"github.com/dgnsrekt/scriptplay/internal/speech"
)

const (
	piperDefaultRate = 22050
	piperMaxText     = 5000
)

// PiperConfig holds configuration for the Piper engine.
type PiperConfig struct {
	// Binary is the piper executable (default "piper").
	Binary string

	// ModelsDir holds <voice>.onnx models with <voice>.onnx.json configs.
	ModelsDir string

	// Speed scales speaking rate; 1.0 is normal.
	Speed float64

	// Timeout per synthesis (default 30s).
	Timeout time.Duration
}

// Piper speaks with offline Piper models. Each model file is one voice.
type Piper struct {
	config PiperConfig

	mu     sync.Mutex
	models map[string]piperModel // by voice name
}

type piperModel struct {
	path       string
	configPath string
	sampleRate int
	voice      speech.Voice
}

// piperModelConfig is the part of <model>.onnx.json we read.
type piperModelConfig struct {
	Audio struct {
		SampleRate int `json:"sample_rate"`
	} `json:"audio"`
	Language struct {
		Code string `json:"code"`
	} `json:"language"`
}

// NewPiper creates a Piper engine.
func NewPiper(config PiperConfig) (*Piper, error) {
	if config.ModelsDir == "" {
		return nil, errors.New("piper models directory is required")
	}
	if config.Binary == "" {
		config.Binary = "piper"
	}
	if config.Speed <= 0 {
		config.Speed = 1.0
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &Piper{config: config}, nil
}

func (p *Piper) Name() string { return "piper" }

// Voices lists the models in the models directory.
func (p *Piper) Voices(context.Context) ([]speech.Voice, error) {
	models, err := p.loadModels()
	if err != nil {
		return nil, err
	}

	voices := make([]speech.Voice, 0, len(models))
	for _, m := range models {
		voices = append(voices, m.voice)
	}
	sort.Slice(voices, func(i, j int) bool { return voices[i].Name < voices[j].Name })
	return voices, nil
}

// Synthesize runs piper with raw output: 16-bit mono at the model's rate.
func (p *Piper) Synthesize(ctx context.Context, text string, voice speech.Voice) (*audio.PCM, error) {
	if strings.TrimSpace(text) == "" {
		return nil, speech.ErrEmptyText
	}
	if len(text) > piperMaxText {
		return nil, fmt.Errorf("text too long: %d characters (max %d)", len(text), piperMaxText)
	}

	models, err := p.loadModels()
	if err != nil {
		return nil, err
	}
	model, ok := models[voice.Name]
	if !ok {
		return nil, fmt.Errorf("no piper model for voice %q", voice.Name)
	}

	// Piper's length scale is the inverse of speed
	args := []string{
		"--model", model.path,
		"--output-raw",
		"--length-scale", fmt.Sprintf("%.2f", 1.0/p.config.Speed),
	}
	if model.configPath != "" {
		args = append(args, "--config", model.configPath)
	}

	out, err := runProcess(ctx, p.config.Timeout, strings.NewReader(text), p.config.Binary, args...)
	if err != nil {
		return nil, err
	}

	f := audio.Format{SampleRate: model.sampleRate, Channels: 1}
	return &audio.PCM{Data: out[:len(out)-len(out)%f.FrameSize()], Format: f}, nil
}

// Validate checks the binary and that at least one model exists.
func (p *Piper) Validate() error {
	if _, err := exec.LookPath(p.config.Binary); err != nil {
		return fmt.Errorf("piper not found in PATH: %w", err)
	}
	models, err := p.loadModels()
	if err != nil {
		return err
	}
	if len(models) == 0 {
		return fmt.Errorf("no .onnx models in %s", p.config.ModelsDir)
	}
	return nil
}

func (p *Piper) Close() error { return nil }

func (p *Piper) loadModels() (map[string]piperModel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.models != nil {
		return p.models, nil
	}

	paths, err := filepath.Glob(filepath.Join(p.config.ModelsDir, "*.onnx"))
	if err != nil {
		return nil, fmt.Errorf("scan piper models: %w", err)
	}

	models := make(map[string]piperModel, len(paths))
	for _, path := range paths {
		name := strings.TrimSuffix(filepath.Base(path), ".onnx")
		m := piperModel{
			path:       path,
			sampleRate: piperDefaultRate,
			voice:      speech.Voice{Name: name},
		}

		if raw, err := os.ReadFile(path + ".json"); err == nil {
			var cfg piperModelConfig
			if err := json.Unmarshal(raw, &cfg); err == nil {
				m.configPath = path + ".json"
				if cfg.Audio.SampleRate > 0 {
					m.sampleRate = cfg.Audio.SampleRate
				}
				m.voice.Language = cfg.Language.Code
			}
		}

		models[name] = m
	}

	p.models = models
	return models, nil
}

var _ speech.Engine = (*Piper)(nil)
