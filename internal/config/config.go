// Package config holds scriptplay's settings as read from the config file,
// environment and flags.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/viper"

	"github.com/dgnsrekt/scriptplay/internal/audio"
	"github.com/dgnsrekt/scriptplay/internal/cache"
	"github.com/dgnsrekt/scriptplay/internal/sequencer"
	"github.com/dgnsrekt/scriptplay/internal/speech"
	"github.com/dgnsrekt/scriptplay/internal/speech/engines"
)

// AppName scopes config, cache and data directories.
const AppName = "scriptplay"

const maxLookahead = 16

// Config is the complete application configuration.
type Config struct {
	Script string       `mapstructure:"script"`
	Debug  bool         `mapstructure:"debug"`
	Audio  AudioConfig  `mapstructure:"audio"`
	Speech SpeechConfig `mapstructure:"speech"`
	Cache  CacheConfig  `mapstructure:"cache"`
}

// AudioConfig configures the output device and playback levels.
type AudioConfig struct {
	SampleRate       int     `mapstructure:"sample_rate"`
	Channels         int     `mapstructure:"channels"`
	BufferSize       int     `mapstructure:"buffer_size"`
	SpeechVolume     float64 `mapstructure:"speech_volume"`
	EffectVolume     float64 `mapstructure:"effect_volume"`
	BackgroundVolume float64 `mapstructure:"background_volume"`
}

// SpeechConfig selects the speech engine and voice policy.
type SpeechConfig struct {
	Engine       string        `mapstructure:"engine"`
	DefaultVoice string        `mapstructure:"default_voice"`
	HidePrefixes []string      `mapstructure:"hide_prefixes"`
	Timeout      time.Duration `mapstructure:"timeout"` // per line, 0 waits forever
	Lookahead    int           `mapstructure:"lookahead"`

	Piper PiperConfig `mapstructure:"piper"`
	GTTS  GTTSConfig  `mapstructure:"gtts"`
	Exec  ExecConfig  `mapstructure:"exec"`
}

// PiperConfig configures the Piper engine.
type PiperConfig struct {
	Binary    string        `mapstructure:"binary"`
	ModelsDir string        `mapstructure:"models_dir"`
	Speed     float64       `mapstructure:"speed"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// GTTSConfig configures the gTTS engine.
type GTTSConfig struct {
	Binary            string        `mapstructure:"binary"`
	Languages         []string      `mapstructure:"languages"`
	Slow              bool          `mapstructure:"slow"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

// ExecConfig configures the external command engine.
type ExecConfig struct {
	Command    string        `mapstructure:"command"`
	Voices     []string      `mapstructure:"voices"`
	SampleRate int           `mapstructure:"sample_rate"`
	Channels   int           `mapstructure:"channels"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// CacheConfig configures the speech cache.
type CacheConfig struct {
	Dir              string        `mapstructure:"dir"` // empty keeps speech in memory only
	MemoryMB         int           `mapstructure:"memory_mb"`
	DiskMB           int           `mapstructure:"disk_mb"`
	CompressionLevel int           `mapstructure:"compression_level"`
	TTL              time.Duration `mapstructure:"ttl"`
}

// Default returns the built-in configuration.
func Default() Config {
	scope := gap.NewScope(gap.User, AppName)

	modelsDir, err := scope.DataPath("voices")
	if err != nil {
		modelsDir = "voices"
	}
	cacheDir, err := scope.CacheDir()
	if err == nil {
		cacheDir = filepath.Join(cacheDir, "speech")
	}

	device := audio.DefaultDeviceConfig()
	playback := sequencer.DefaultConfig()

	return Config{
		Script: "script.json",
		Audio: AudioConfig{
			SampleRate:       device.SampleRate,
			Channels:         device.Channels,
			BufferSize:       device.BufferSize,
			SpeechVolume:     1.0,
			EffectVolume:     playback.EffectVolume,
			BackgroundVolume: playback.BackgroundVolume,
		},
		Speech: SpeechConfig{
			Engine:    "piper",
			Timeout:   playback.SpeechTimeout,
			Lookahead: playback.Lookahead,
			Piper: PiperConfig{
				Binary:    "piper",
				ModelsDir: modelsDir,
				Speed:     1.0,
				Timeout:   30 * time.Second,
			},
			GTTS: GTTSConfig{
				Binary:            "gtts-cli",
				Languages:         []string{"en"},
				RequestsPerMinute: 50,
				Timeout:           30 * time.Second,
			},
			Exec: ExecConfig{
				SampleRate: 22050,
				Channels:   1,
				Timeout:    30 * time.Second,
			},
		},
		Cache: CacheConfig{
			Dir:              cacheDir,
			MemoryMB:         64,
			DiskMB:           512,
			CompressionLevel: 3,
			TTL:              30 * 24 * time.Hour,
		},
	}
}

// SetDefaults registers every key with its default so that environment
// variables are picked up by Unmarshal.
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("script", d.Script)
	v.SetDefault("debug", d.Debug)

	v.SetDefault("audio.sample_rate", d.Audio.SampleRate)
	v.SetDefault("audio.channels", d.Audio.Channels)
	v.SetDefault("audio.buffer_size", d.Audio.BufferSize)
	v.SetDefault("audio.speech_volume", d.Audio.SpeechVolume)
	v.SetDefault("audio.effect_volume", d.Audio.EffectVolume)
	v.SetDefault("audio.background_volume", d.Audio.BackgroundVolume)

	v.SetDefault("speech.engine", d.Speech.Engine)
	v.SetDefault("speech.default_voice", d.Speech.DefaultVoice)
	v.SetDefault("speech.hide_prefixes", d.Speech.HidePrefixes)
	v.SetDefault("speech.timeout", d.Speech.Timeout)
	v.SetDefault("speech.lookahead", d.Speech.Lookahead)

	v.SetDefault("speech.piper.binary", d.Speech.Piper.Binary)
	v.SetDefault("speech.piper.models_dir", d.Speech.Piper.ModelsDir)
	v.SetDefault("speech.piper.speed", d.Speech.Piper.Speed)
	v.SetDefault("speech.piper.timeout", d.Speech.Piper.Timeout)

	v.SetDefault("speech.gtts.binary", d.Speech.GTTS.Binary)
	v.SetDefault("speech.gtts.languages", d.Speech.GTTS.Languages)
	v.SetDefault("speech.gtts.slow", d.Speech.GTTS.Slow)
	v.SetDefault("speech.gtts.requests_per_minute", d.Speech.GTTS.RequestsPerMinute)
	v.SetDefault("speech.gtts.timeout", d.Speech.GTTS.Timeout)

	v.SetDefault("speech.exec.command", d.Speech.Exec.Command)
	v.SetDefault("speech.exec.voices", d.Speech.Exec.Voices)
	v.SetDefault("speech.exec.sample_rate", d.Speech.Exec.SampleRate)
	v.SetDefault("speech.exec.channels", d.Speech.Exec.Channels)
	v.SetDefault("speech.exec.timeout", d.Speech.Exec.Timeout)

	v.SetDefault("cache.dir", d.Cache.Dir)
	v.SetDefault("cache.memory_mb", d.Cache.MemoryMB)
	v.SetDefault("cache.disk_mb", d.Cache.DiskMB)
	v.SetDefault("cache.compression_level", d.Cache.CompressionLevel)
	v.SetDefault("cache.ttl", d.Cache.TTL)
}

// Load reads the configuration out of v and validates it.
func Load(v *viper.Viper) (Config, error) {
	cfg := Default()
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unable to decode configuration: %w", err)
	}
	cfg.Speech.Engine = strings.ToLower(strings.TrimSpace(cfg.Speech.Engine))
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that every value is in range.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Script) == "" {
		return fmt.Errorf("script path cannot be empty")
	}

	if err := c.Audio.validate(); err != nil {
		return fmt.Errorf("audio: %w", err)
	}

	if err := c.Speech.validate(); err != nil {
		return fmt.Errorf("speech: %w", err)
	}

	if c.Cache.MemoryMB < 0 || c.Cache.DiskMB < 0 {
		return fmt.Errorf("cache: sizes cannot be negative")
	}
	if c.Cache.CompressionLevel < 0 || c.Cache.CompressionLevel > 22 {
		return fmt.Errorf("cache: compression_level must be between 0 and 22, got %d", c.Cache.CompressionLevel)
	}
	return nil
}

func (a *AudioConfig) validate() error {
	if a.SampleRate != 44100 && a.SampleRate != 48000 {
		return fmt.Errorf("sample_rate must be 44100 or 48000, got %d", a.SampleRate)
	}
	if a.Channels != 1 && a.Channels != 2 {
		return fmt.Errorf("channels must be 1 or 2, got %d", a.Channels)
	}
	if a.BufferSize <= 0 {
		return fmt.Errorf("buffer_size must be positive, got %d", a.BufferSize)
	}
	for name, vol := range map[string]float64{
		"speech_volume":     a.SpeechVolume,
		"effect_volume":     a.EffectVolume,
		"background_volume": a.BackgroundVolume,
	} {
		if vol < 0 || vol > 1 {
			return fmt.Errorf("%s must be between 0.0 and 1.0, got %.2f", name, vol)
		}
	}
	return nil
}

func (s *SpeechConfig) validate() error {
	valid := false
	for _, name := range engines.Names() {
		if s.Engine == name {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid engine %q: must be one of %v", s.Engine, engines.Names())
	}

	if s.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative")
	}
	if s.Lookahead < 0 || s.Lookahead > maxLookahead {
		return fmt.Errorf("lookahead must be between 0 and %d, got %d", maxLookahead, s.Lookahead)
	}

	switch s.Engine {
	case "piper":
		if s.Piper.Speed < 0.1 || s.Piper.Speed > 3.0 {
			return fmt.Errorf("piper speed must be between 0.1 and 3.0, got %.2f", s.Piper.Speed)
		}
	case "gtts":
		for _, lang := range s.GTTS.Languages {
			if len(lang) < 2 || len(lang) > 5 {
				return fmt.Errorf("gtts language code must be 2-5 characters, got %q", lang)
			}
		}
		if s.GTTS.RequestsPerMinute < 0 {
			return fmt.Errorf("gtts requests_per_minute cannot be negative")
		}
	case "exec":
		if strings.TrimSpace(s.Exec.Command) == "" {
			return fmt.Errorf("exec command cannot be empty")
		}
	}
	return nil
}

// DeviceConfig returns the audio device settings.
func (c *Config) DeviceConfig() audio.DeviceConfig {
	return audio.DeviceConfig{
		SampleRate: c.Audio.SampleRate,
		Channels:   c.Audio.Channels,
		BufferSize: c.Audio.BufferSize,
	}
}

// Format returns the PCM format of the output device.
func (c *Config) Format() audio.Format {
	return audio.Format{SampleRate: c.Audio.SampleRate, Channels: c.Audio.Channels}
}

// SequencerConfig returns playback levels and limits.
func (c *Config) SequencerConfig() sequencer.Config {
	return sequencer.Config{
		BackgroundVolume: c.Audio.BackgroundVolume,
		EffectVolume:     c.Audio.EffectVolume,
		SpeechTimeout:    c.Speech.Timeout,
		Lookahead:        c.Speech.Lookahead,
	}
}

// SpeakerConfig returns the voice policy.
func (c *Config) SpeakerConfig() speech.SpeakerConfig {
	return speech.SpeakerConfig{
		DefaultVoice: c.Speech.DefaultVoice,
		HidePrefixes: c.Speech.HidePrefixes,
		Volume:       c.Audio.SpeechVolume,
	}
}

// EngineOptions returns the settings for engines.New.
func (c *Config) EngineOptions() engines.Options {
	return engines.Options{
		Engine: c.Speech.Engine,
		Piper: engines.PiperConfig{
			Binary:    c.Speech.Piper.Binary,
			ModelsDir: c.Speech.Piper.ModelsDir,
			Speed:     c.Speech.Piper.Speed,
			Timeout:   c.Speech.Piper.Timeout,
		},
		GTTS: engines.GTTSConfig{
			Binary:            c.Speech.GTTS.Binary,
			Languages:         c.Speech.GTTS.Languages,
			Slow:              c.Speech.GTTS.Slow,
			RequestsPerMinute: c.Speech.GTTS.RequestsPerMinute,
			Timeout:           c.Speech.GTTS.Timeout,
		},
		Exec: engines.ExecConfig{
			Command:    c.Speech.Exec.Command,
			Voices:     c.Speech.Exec.Voices,
			SampleRate: c.Speech.Exec.SampleRate,
			Channels:   c.Speech.Exec.Channels,
			Timeout:    c.Speech.Exec.Timeout,
		},
	}
}

// CacheConfig returns the speech cache settings.
func (c *Config) CacheConfig() *cache.Config {
	cfg := cache.DefaultConfig()
	cfg.MemoryCapacity = int64(c.Cache.MemoryMB) * 1024 * 1024
	cfg.DiskCapacity = int64(c.Cache.DiskMB) * 1024 * 1024
	cfg.DiskPath = c.Cache.Dir
	cfg.CompressionLevel = c.Cache.CompressionLevel
	cfg.TTL = c.Cache.TTL
	return cfg
}
