package ui

import "time"

// Config contains TUI-specific configuration.
type Config struct {
	// Script file being edited
	ScriptPath string

	// Reload the script when the file changes on disk
	Watch bool

	EnableMouse bool

	StatusTimeout time.Duration `env:"SCRIPTPLAY_STATUS_TIMEOUT" envDefault:"3s"`
	ConfirmQuit   bool          `env:"SCRIPTPLAY_CONFIRM_QUIT"   envDefault:"true"`
	AltScreen     bool          `env:"SCRIPTPLAY_ALT_SCREEN"     envDefault:"true"`
	VoiceTimeout  time.Duration `env:"SCRIPTPLAY_VOICE_TIMEOUT"  envDefault:"15s"`
}
