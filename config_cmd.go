package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# script file used when --script is not given
script: "script.json"
# write a debug log to the cache directory
debug: false

audio:
  # output sample rate: 44100 or 48000
  sample_rate: 44100
  # 1 (mono) or 2 (stereo)
  channels: 2
  # device buffer in bytes
  buffer_size: 4096
  # levels from 0.0 to 1.0
  speech_volume: 1.0
  effect_volume: 1.0
  background_volume: 0.4

speech:
  # engine: piper, gtts, exec or mock
  engine: "piper"
  # voice used when a line's voice is missing
  # default_voice: "en_US-lessac-medium"
  # voices whose names start with these are hidden
  hide_prefixes: []
  # give up on a line after this long, 0 waits forever
  timeout: "0s"
  # lines synthesized ahead of playback when the cache is enabled, 0 disables
  lookahead: 2

  piper:
    binary: "piper"
    # directory holding <voice>.onnx models
    # models_dir: "~/.local/share/scriptplay/voices"
    speed: 1.0
    timeout: "30s"

  gtts:
    binary: "gtts-cli"
    languages: ["en"]
    slow: false
    requests_per_minute: 50
    timeout: "30s"

  exec:
    # command reading a JSON request on stdin and writing JSON lines
    # with base64 PCM chunks to stdout
    # command: "python3 tts.py --fast"
    voices: []
    sample_rate: 22050
    channels: 1
    timeout: "30s"

cache:
  # synthesized speech is kept here between runs, empty disables the disk cache
  # dir: "~/.cache/scriptplay/speech"
  memory_mb: 64
  disk_mb: 512
  # zstd level, 0 disables compression
  compression_level: 3
  ttl: "720h"
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the scriptplay config file",
	Long:    paragraph(fmt.Sprintf("\n%s the scriptplay config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("scriptplay config\nscriptplay config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("scriptplay", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if configFile == "" {
			configFile = defaultConfigFile
		}
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		if err := os.WriteFile(configFile, []byte(defaultConfig), 0o600); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
