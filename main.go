// Package main provides the entry point for the scriptplay CLI application.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dgnsrekt/scriptplay/internal/config"
	"github.com/dgnsrekt/scriptplay/internal/speech/engines"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile        string
	defaultConfigFile string
	scriptPath        string
	engineName        string
	debug             bool

	// cfg is loaded before any command runs.
	cfg      config.Config
	closeLog = func() error { return nil }

	rootCmd = &cobra.Command{
		Use:   "scriptplay",
		Short: "Write and play spoken scripts with sound effects",
		Long: paragraph(
			fmt.Sprintf("\nWrite scripts of %s and %s, then play them back in order.",
				keyword("spoken lines"), keyword("audio clips")),
		),
		SilenceErrors:     false,
		SilenceUsage:      true,
		TraverseChildren:  true,
		Args:              cobra.NoArgs,
		PersistentPreRunE: loadConfig,
		RunE:              runEdit,
	}
)

func loadConfig(*cobra.Command, []string) error {
	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("unable to read config file: %w", err)
		}
	}

	var err error
	cfg, err = config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	cfg.Script = expandPath(cfg.Script)
	cfg.Cache.Dir = expandPath(cfg.Cache.Dir)
	cfg.Speech.Piper.ModelsDir = expandPath(cfg.Speech.Piper.ModelsDir)

	closer, err := setupLog(cfg.Debug)
	if err != nil {
		return fmt.Errorf("unable to set up logging: %w", err)
	}
	closeLog = closer

	log.Debug("configuration loaded",
		"file", viper.ConfigFileUsed(),
		"script", cfg.Script,
		"engine", cfg.Speech.Engine)
	return nil
}

// skipConfig lets commands that repair or document the configuration run
// even when it is invalid.
func skipConfig(*cobra.Command, []string) error { return nil }

func main() {
	err := rootCmd.Execute()
	_ = closeLog()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	config.SetDefaults(viper.GetViper())
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	flags := rootCmd.PersistentFlags()
	defaultPath := viper.GetViper().ConfigFileUsed()
	if defaultPath == "" {
		defaultPath = defaultConfigFile
	}
	flags.StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", defaultPath))
	flags.StringVarP(&scriptPath, "script", "f", "", "script file (default script.json)")
	flags.StringVarP(&engineName, "engine", "e", "", fmt.Sprintf("speech engine (%s)", strings.Join(engines.Names(), ", ")))
	flags.BoolVar(&debug, "debug", false, "write a debug log to the cache directory")

	rootCmd.Flags().BoolVarP(&watch, "watch", "w", false, "reload the script when the file changes")
	rootCmd.Flags().BoolVarP(&mouse, "mouse", "m", false, "enable mouse support")
	_ = rootCmd.Flags().MarkHidden("mouse")

	// Config bindings
	_ = viper.BindPFlag("script", flags.Lookup("script"))
	_ = viper.BindPFlag("speech.engine", flags.Lookup("engine"))
	_ = viper.BindPFlag("debug", flags.Lookup("debug"))

	configCmd.PersistentPreRunE = skipConfig
	manCmd.PersistentPreRunE = skipConfig

	rootCmd.AddCommand(
		editCmd,
		playCmd,
		addCmd,
		addAudioCmd,
		rmCmd,
		setTextCmd,
		roleCmd,
		copyCmd,
		clearCmd,
		lsCmd,
		findCmd,
		voicesCmd,
		configCmd,
		manCmd,
	)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, config.AppName)
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, config.AppName)}, dirs...)
	}

	if c := os.Getenv("SCRIPTPLAY_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	// A .env in the working directory only fills variables that are unset
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("Could not parse .env file", "err", err)
	}

	viper.SetConfigName(config.AppName)
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix(config.AppName)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", used)
		return
	}

	// The config command creates the file here on first use
	defaultConfigFile = filepath.Join(dirs[0], config.AppName+".yml")
}

func expandPath(path string) string {
	if path == "" {
		return path
	}
	if p, err := homedir.Expand(path); err == nil {
		return p
	}
	return path
}
