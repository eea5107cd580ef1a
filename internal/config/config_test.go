package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config should be valid: %v", err)
	}
	if cfg.Audio.BackgroundVolume != 0.4 {
		t.Errorf("background volume = %v, want 0.4", cfg.Audio.BackgroundVolume)
	}
	if cfg.Speech.Timeout != 0 {
		t.Errorf("speech timeout = %v, want disabled", cfg.Speech.Timeout)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{"valid", func(*Config) {}, ""},
		{"empty script", func(c *Config) { c.Script = " " }, "script path"},
		{"bad sample rate", func(c *Config) { c.Audio.SampleRate = 22050 }, "sample_rate"},
		{"bad channels", func(c *Config) { c.Audio.Channels = 6 }, "channels"},
		{"zero buffer", func(c *Config) { c.Audio.BufferSize = 0 }, "buffer_size"},
		{"loud background", func(c *Config) { c.Audio.BackgroundVolume = 1.5 }, "background_volume"},
		{"unknown engine", func(c *Config) { c.Speech.Engine = "sapi" }, "invalid engine"},
		{"negative timeout", func(c *Config) { c.Speech.Timeout = -time.Second }, "timeout"},
		{"negative lookahead", func(c *Config) { c.Speech.Lookahead = -1 }, "lookahead"},
		{"huge lookahead", func(c *Config) { c.Speech.Lookahead = 100 }, "lookahead"},
		{"piper speed", func(c *Config) { c.Speech.Piper.Speed = 9 }, "piper speed"},
		{"gtts language", func(c *Config) {
			c.Speech.Engine = "gtts"
			c.Speech.GTTS.Languages = []string{"english-us"}
		}, "language code"},
		{"exec without command", func(c *Config) { c.Speech.Engine = "exec" }, "exec command"},
		{"compression", func(c *Config) { c.Cache.CompressionLevel = 40 }, "compression_level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("error = %v, want it to mention %q", err, tt.errMsg)
			}
		})
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scriptplay.yml")
	yml := `script: show.json
audio:
  background_volume: 0.25
speech:
  engine: GTTS
  timeout: 45s
  hide_prefixes: ["Google"]
  gtts:
    languages: [en, fr]
`
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("SCRIPTPLAY_SPEECH_DEFAULT_VOICE", "gtts-fr")

	v := viper.New()
	SetDefaults(v)
	v.SetConfigFile(path)
	v.SetEnvPrefix(AppName)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig failed: %v", err)
	}

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Script != "show.json" {
		t.Errorf("script = %q", cfg.Script)
	}
	if cfg.Speech.Engine != "gtts" {
		t.Errorf("engine = %q, want lowercased gtts", cfg.Speech.Engine)
	}
	if cfg.Speech.Timeout != 45*time.Second {
		t.Errorf("timeout = %v", cfg.Speech.Timeout)
	}
	if len(cfg.Speech.GTTS.Languages) != 2 || cfg.Speech.GTTS.Languages[1] != "fr" {
		t.Errorf("languages = %v", cfg.Speech.GTTS.Languages)
	}
	if cfg.Speech.DefaultVoice != "gtts-fr" {
		t.Errorf("default voice = %q, want value from env", cfg.Speech.DefaultVoice)
	}

	seq := cfg.SequencerConfig()
	if seq.BackgroundVolume != 0.25 || seq.SpeechTimeout != 45*time.Second {
		t.Errorf("sequencer config = %+v", seq)
	}
	if sp := cfg.SpeakerConfig(); sp.HidePrefixes[0] != "Google" || sp.DefaultVoice != "gtts-fr" {
		t.Errorf("speaker config = %+v", sp)
	}
	if opts := cfg.EngineOptions(); opts.Engine != "gtts" || opts.GTTS.RequestsPerMinute != 50 {
		t.Errorf("engine options = %+v", opts)
	}
}

func TestLoad_Invalid(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("audio.sample_rate", 8000)

	if _, err := Load(v); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestCacheConfig(t *testing.T) {
	cfg := Default()
	cfg.Cache.MemoryMB = 2
	cfg.Cache.Dir = ""

	cc := cfg.CacheConfig()
	if cc.MemoryCapacity != 2*1024*1024 {
		t.Errorf("memory capacity = %d", cc.MemoryCapacity)
	}
	if cc.DiskPath != "" {
		t.Errorf("disk path = %q, want disabled", cc.DiskPath)
	}
}
