package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dgnsrekt/scriptplay/internal/resource"
	"github.com/dgnsrekt/scriptplay/internal/script"
	"github.com/dgnsrekt/scriptplay/internal/sequencer"
	"github.com/dgnsrekt/scriptplay/internal/speech"
	"github.com/dgnsrekt/scriptplay/ui"
)

var (
	watch      bool
	mouse      bool
	dryRun     bool
	background bool
	voiceName  string
	assumeYes  bool
	voiceLimit int

	editCmd = &cobra.Command{
		Use:     "edit",
		Short:   "Open the script in the editor",
		Long:    paragraph(fmt.Sprintf("\n%s the script in a terminal editor. This is also what runs when no command is given.", keyword("Edit"))),
		Example: paragraph("scriptplay edit\nscriptplay edit -f story.json --watch"),
		Args:    cobra.NoArgs,
		RunE:    runEdit,
	}

	playCmd = &cobra.Command{
		Use:     "play",
		Short:   "Play the script from the top",
		Long:    paragraph(fmt.Sprintf("\n%s every item in order. Background clips keep playing under the following items. Press Ctrl-C to stop.", keyword("Play"))),
		Example: paragraph("scriptplay play\nscriptplay play -f story.json --dry-run"),
		Args:    cobra.NoArgs,
		RunE:    runPlay,
	}

	addCmd = &cobra.Command{
		Use:     "add VOICE TEXT...",
		Short:   "Append a spoken line",
		Example: paragraph(`scriptplay add en_US-lessac-medium "Once upon a time"`),
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editScript(func(store *script.Store) error {
				line, err := store.AddSpeech(args[0], strings.Join(args[1:], " "))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added line %d for %s\n", store.Len(), keyword(line.VoiceName))
				return nil
			})
		},
	}

	addAudioCmd = &cobra.Command{
		Use:     "add-audio FILE",
		Short:   "Append an audio clip",
		Long:    paragraph(fmt.Sprintf("\nAppend a .wav or .mp3 file as a clip. Clips are %s unless --background is given.", keyword("effects"))),
		Example: paragraph("scriptplay add-audio thunder.wav\nscriptplay add-audio rain.mp3 --background"),
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := expandPath(args[0])
			content, err := resource.ReadAudioFile(path)
			if err != nil {
				return err
			}
			return editScript(func(store *script.Store) error {
				clip, err := store.AddAudio(filepath.Base(path), content)
				if err != nil {
					return err
				}
				if background {
					if err := store.SetRole(clip.ID(), script.RoleBackground); err != nil {
						return err
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added clip %d: %s\n", store.Len(), keyword(clip.FileName))
				return nil
			})
		},
	}

	rmCmd = &cobra.Command{
		Use:     "rm N",
		Aliases: []string{"remove"},
		Short:   "Remove item N",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editScript(func(store *script.Store) error {
				item, err := itemAt(store, args[0])
				if err != nil {
					return err
				}
				if err := store.Remove(item.ID()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", describe(item))
				return nil
			})
		},
	}

	setTextCmd = &cobra.Command{
		Use:     "set-text N TEXT...",
		Short:   "Replace the text of line N",
		Example: paragraph(`scriptplay set-text 3 "The end." --voice en_GB-alan-low`),
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editScript(func(store *script.Store) error {
				item, err := itemAt(store, args[0])
				if err != nil {
					return err
				}
				if err := store.EditText(item.ID(), strings.Join(args[1:], " ")); err != nil {
					return err
				}
				if voiceName != "" {
					if err := store.SetVoice(item.ID(), voiceName); err != nil {
						return err
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated line %s\n", args[0])
				return nil
			})
		},
	}

	roleCmd = &cobra.Command{
		Use:       "role N [effect|background]",
		Short:     "Set or toggle the role of clip N",
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: []string{string(script.RoleEffect), string(script.RoleBackground)},
		RunE: func(cmd *cobra.Command, args []string) error {
			return editScript(func(store *script.Store) error {
				item, err := itemAt(store, args[0])
				if err != nil {
					return err
				}
				clip, ok := item.(script.AudioItem)
				if !ok {
					return fmt.Errorf("item %s is a line; only clips have a role", args[0])
				}

				role := clip.Role.Toggle()
				if len(args) == 2 {
					role = script.AudioRole(strings.ToLower(args[1]))
					if !role.Valid() {
						return fmt.Errorf("unknown role %q: use %s or %s", args[1], script.RoleEffect, script.RoleBackground)
					}
				}
				if err := store.SetRole(clip.ID(), role); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", clip.FileName, keyword(string(role)))
				return nil
			})
		},
	}

	copyCmd = &cobra.Command{
		Use:   "copy N",
		Short: "Append a copy of clip N",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editScript(func(store *script.Store) error {
				item, err := itemAt(store, args[0])
				if err != nil {
					return err
				}
				dup, err := store.Duplicate(item.ID())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added clip %d: %s\n", store.Len(), keyword(dup.FileName))
				return nil
			})
		},
	}

	clearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Delete every item of the script",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return editScript(func(store *script.Store) error {
				if store.Len() == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "The script is already empty")
					return nil
				}
				if !assumeYes {
					ok, err := confirm(cmd.InOrStdin(), cmd.OutOrStdout(), fmt.Sprintf("Delete all %d items?", store.Len()))
					if err != nil {
						return err
					}
					if !ok {
						return nil
					}
				}
				if err := store.Clear(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Deleted every item")
				return nil
			})
		},
	}

	voicesCmd = &cobra.Command{
		Use:     "voices [QUERY]",
		Short:   "List the voices of the speech engine",
		Long:    paragraph(fmt.Sprintf("\nList the voices lines can use. With a query, the closest %s are shown best first.", keyword("fuzzy matches"))),
		Example: paragraph("scriptplay voices\nscriptplay voices lessac --engine piper"),
		Args:    cobra.MaximumNArgs(1),
		RunE:    runVoices,
	}
)

func init() {
	editCmd.Flags().BoolVarP(&watch, "watch", "w", false, "reload the script when the file changes")
	editCmd.Flags().BoolVarP(&mouse, "mouse", "m", false, "enable mouse support")
	_ = editCmd.Flags().MarkHidden("mouse")

	playCmd.Flags().BoolVar(&dryRun, "dry-run", false, "walk the script with the mock engine and no sound")
	addAudioCmd.Flags().BoolVarP(&background, "background", "b", false, "add the clip as background audio")
	setTextCmd.Flags().StringVar(&voiceName, "voice", "", "also change the line's voice")
	clearCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "do not ask for confirmation")
	voicesCmd.Flags().IntVarP(&voiceLimit, "limit", "n", 10, "maximum number of matches")
}

func runEdit(*cobra.Command, []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("the editor needs a terminal; use ls, add or play instead")
	}

	a, err := openScript(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.close() }()

	p, err := a.openPlayer(false)
	if err != nil {
		return err
	}

	// Read environment to get UI tweaks
	uiCfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %v", err)
	}
	uiCfg.ScriptPath = cfg.Script
	uiCfg.Watch = watch
	uiCfg.EnableMouse = mouse

	if _, err := ui.NewProgram(uiCfg, a.store, p.seq, p.speaker).Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	return nil
}

func runPlay(cmd *cobra.Command, _ []string) error {
	a, err := openScript(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.close() }()

	p, err := a.openPlayer(dryRun)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := cmd.OutOrStdout()
	done := make(chan struct{})
	var once sync.Once
	p.seq.OnEvent(func(e sequencer.Event) {
		printEvent(w, e)
		if e.Type == sequencer.EventFinished || e.Type == sequencer.EventStopped {
			once.Do(func() { close(done) })
		}
	})

	if err := p.seq.Start(); err != nil {
		if errors.Is(err, sequencer.ErrEmptyScript) {
			return fmt.Errorf("%s has nothing to play", cfg.Script)
		}
		return err
	}

	select {
	case <-done:
	case <-ctx.Done():
		p.seq.Stop()
	}
	p.seq.Wait()
	return nil
}

func printEvent(w io.Writer, e sequencer.Event) {
	switch e.Type {
	case sequencer.EventItemStarted:
		fmt.Fprintf(w, "%s %s\n", faint(fmt.Sprintf("%3d/%d", e.Index+1, e.Total)), describe(e.Item))
	case sequencer.EventItemFailed:
		fmt.Fprintf(w, "        %s\n", failure(e.Err.Error()))
	case sequencer.EventStopped:
		fmt.Fprintln(w, "Stopped")
	case sequencer.EventFinished:
		fmt.Fprintln(w, "Finished")
	}
}

// describe renders an item for one line of terminal output.
func describe(item script.Item) string {
	switch v := item.(type) {
	case script.SpeechItem:
		return keyword(v.VoiceName) + ": " + v.Text
	case script.AudioItem:
		return "♪ " + v.FileName + " " + faint("("+string(v.Role)+")")
	default:
		return ""
	}
}

func runVoices(cmd *cobra.Command, args []string) error {
	a := &app{cfg: cfg}
	defer func() { _ = a.close() }()

	speaker, err := a.openSpeaker(nil, false)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	voices, err := speaker.Voices(ctx)
	if err != nil {
		return err
	}
	if len(voices) == 0 {
		return speech.ErrNoVoices
	}

	w := cmd.OutOrStdout()
	if len(args) == 0 {
		for _, v := range voices {
			fmt.Fprintln(w, v.String())
		}
		return nil
	}

	matches := speech.Suggest(args[0], voices, voiceLimit)
	if len(matches) == 0 {
		return fmt.Errorf("no voice matches %q", args[0])
	}
	for _, name := range matches {
		fmt.Fprintln(w, name)
	}
	return nil
}

// confirm asks a yes/no question. Without a terminal it refuses so that
// scripts must pass --yes.
func confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	if f, ok := in.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		return false, errors.New("refusing to delete without a terminal: pass --yes")
	}

	var ok bool
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(question).
			Affirmative("Delete").
			Negative("Keep").
			Value(&ok),
	)).WithInput(in).WithOutput(out)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, err
	}
	return ok, nil
}
