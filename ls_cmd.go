package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dgnsrekt/scriptplay/internal/script"
)

const maxTextWidth = 48

var (
	plain bool

	lsCmd = &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List the items of the script",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openScript(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = a.close() }()

			md := scriptTable(a.store.Items())
			if plain {
				_, err := fmt.Fprint(cmd.OutOrStdout(), md)
				return err
			}

			out, err := renderMarkdown(md)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), out)
			return err
		},
	}
)

func init() {
	lsCmd.Flags().BoolVar(&plain, "plain", false, "print markdown without styling")
}

// scriptTable renders items as a markdown table followed by a summary.
func scriptTable(items []script.Item) string {
	if len(items) == 0 {
		return "_The script is empty._\n"
	}

	var b strings.Builder
	b.WriteString("| # | Voice / Role | Text / File | Size |\n")
	b.WriteString("|--:|---|---|--:|\n")

	var lines, clips int
	var audioBytes uint64
	for i, item := range items {
		switch v := item.(type) {
		case script.SpeechItem:
			lines++
			fmt.Fprintf(&b, "| %d | %s | %s | %s |\n",
				i+1,
				escapeCell(v.VoiceName),
				escapeCell(truncate.StringWithTail(v.Text, maxTextWidth, "…")),
				humanize.Comma(int64(len([]rune(v.Text))))+" chars")
		case script.AudioItem:
			clips++
			size := uint64(0)
			if h := v.Handle(); h != nil {
				size = uint64(h.Size()) //nolint:gosec
			}
			audioBytes += size
			fmt.Fprintf(&b, "| %d | _%s_ | ♪ %s | %s |\n",
				i+1,
				v.Role,
				escapeCell(truncate.StringWithTail(v.FileName, maxTextWidth, "…")),
				humanize.Bytes(size))
		}
	}

	fmt.Fprintf(&b, "\n%s, %s, %s of audio\n",
		plural(lines, "line"), plural(clips, "clip"), humanize.Bytes(audioBytes))
	return b.String()
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return humanize.Comma(int64(n)) + " " + word + "s"
}

func renderMarkdown(md string) (string, error) {
	isTerminal := term.IsTerminal(int(os.Stdout.Fd()))

	// We want to use a special no-TTY style, when stdout is not a terminal
	style := styles.NoTTYStyle
	if isTerminal {
		style = styles.LightStyle
		if termenv.HasDarkBackground() {
			style = styles.DarkStyle
		}
	}

	width := 80
	if isTerminal {
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
			width = min(w, 120)
		}
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithColorProfile(lipgloss.ColorProfile()),
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("unable to create renderer: %w", err)
	}

	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("unable to render markdown: %w", err)
	}
	return out, nil
}
