package ui

import (
	"fmt"
	"path/filepath"
	"strings"

	runewidth "github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/truncate"

	"github.com/dgnsrekt/scriptplay/internal/script"
)

const (
	voiceColumnWidth = 18
	headerHeight     = 2
	statusBarHeight  = 1
)

func (m model) View() string {
	var b strings.Builder

	fmt.Fprintln(&b, m.headerView())
	fmt.Fprintln(&b)

	for _, line := range m.listView() {
		fmt.Fprintln(&b, line)
	}

	if footer := m.footerView(); footer != "" {
		fmt.Fprintln(&b, footer)
	}

	m.statusBarView(&b)

	if m.mode == modeBrowse || m.mode == modeConfirmClear {
		fmt.Fprint(&b, "\n"+m.help.View(m.keys))
	} else {
		fmt.Fprint(&b, "\n"+m.help.View(m.inputKeys))
	}
	return b.String()
}

func (m model) headerView() string {
	name := filepath.Base(m.cfg.ScriptPath)
	if m.cfg.ScriptPath == "" {
		name = "untitled"
	}
	if m.store.Dirty() {
		name += " •"
	}
	count := fmt.Sprintf("%d items", m.store.Len())
	if m.store.Len() == 1 {
		count = "1 item"
	}
	return logoView() + " " + name + " " + dimStyle.Render(count)
}

func logoView() string {
	return logoStyle(" scriptplay ")
}

// listHeight is the number of rows available to items.
func (m model) listHeight() int {
	if m.height == 0 {
		return m.store.Len()
	}
	reserved := headerHeight + statusBarHeight + 1
	if m.mode != modeBrowse {
		reserved += 2
	}
	if m.showHelp {
		reserved += 4
	}
	return max(1, m.height-reserved)
}

func (m model) listView() []string {
	items := m.store.Items()
	if len(items) == 0 {
		return []string{dimStyle.Render("  No lines yet. Press a to add a line or o to add a clip.")}
	}

	rows := m.listHeight()
	start := 0
	if m.cursor >= rows {
		start = m.cursor - rows + 1
	}
	end := min(len(items), start+rows)

	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		lines = append(lines, m.itemView(i, items[i]))
	}
	return lines
}

func (m model) itemView(i int, item script.Item) string {
	marker := "  "
	switch {
	case m.playing && i == m.current:
		marker = playingStyle.Render("▶ ")
	case i == m.cursor:
		marker = cursorStyle.Render("› ")
	}

	number := dimStyle.Render(fmt.Sprintf("%3d ", i+1))

	var tag, label string
	switch v := item.(type) {
	case script.SpeechItem:
		name := runewidth.Truncate(v.VoiceName, voiceColumnWidth-1, ellipsis)
		tag = voiceStyle.Render(runewidth.FillRight(name, voiceColumnWidth))
		label = v.Text
	case script.AudioItem:
		badge := effectBadgeStyle.Render(string(v.Role))
		if v.Role == script.RoleBackground {
			badge = backgroundBadgeStyle.Render(string(v.Role))
		}
		tag = badge + strings.Repeat(" ", max(1, voiceColumnWidth-ansi.PrintableRuneWidth(badge)))
		label = "♪ " + v.FileName
	}

	prefix := marker + number + tag
	width := m.width
	if width == 0 {
		width = 80
	}
	avail := max(0, width-ansi.PrintableRuneWidth(prefix))
	label = truncate.StringWithTail(label, uint(avail), ellipsis) //nolint:gosec

	if i == m.cursor && m.mode == modeBrowse {
		label = cursorStyle.Render(label)
	}
	return prefix + label
}

func (m model) footerView() string {
	switch m.mode {
	case modeAddLine, modeEditLine:
		voice := m.currentVoice()
		if voice == "" {
			voice = "default voice"
		}
		title := "New line"
		if m.mode == modeEditLine {
			title = "Edit line"
		}
		return "\n" + dimStyle.Render(title+" as ") + voiceStyle.Render(voice) + "\n" + m.input.View()
	case modeAddClip:
		return "\n" + dimStyle.Render("Add clip") + "\n" + m.input.View()
	case modeConfirmClear:
		return "\n" + errorStyle.Render(fmt.Sprintf("Delete all %d items? (y/N)", m.store.Len()))
	}
	return ""
}

func (m model) statusBarView(b *strings.Builder) {
	logo := logoView()

	var state string
	switch {
	case m.playing && m.total > 0 && m.current >= 0:
		state = statusBarPlayingStyle(fmt.Sprintf(" %s %d/%d ", m.spinner.View(), m.current+1, m.total))
	case m.playing:
		state = statusBarPlayingStyle(" ▶ playing ")
	case m.loadingVoices:
		state = statusBarStateStyle(" " + m.spinner.View() + " voices ")
	default:
		state = statusBarStateStyle(" ■ idle ")
	}

	helpNote := statusBarHelpStyle(" ? Help ")

	note := m.statusMessage
	if note == "" {
		note = m.cfg.ScriptPath
	}
	width := m.width
	if width == 0 {
		width = 80
	}
	note = truncate.StringWithTail(" "+note+" ", uint(max(0, //nolint:gosec
		width-
			ansi.PrintableRuneWidth(logo)-
			ansi.PrintableRuneWidth(state)-
			ansi.PrintableRuneWidth(helpNote),
	)), ellipsis)

	style := statusBarNoteStyle
	switch {
	case m.statusMessage != "" && m.statusIsError:
		style = statusBarErrorStyle
	case m.statusMessage != "":
		style = statusBarMessageStyle
	}
	note = style(note)

	padding := max(0,
		width-
			ansi.PrintableRuneWidth(logo)-
			ansi.PrintableRuneWidth(note)-
			ansi.PrintableRuneWidth(state)-
			ansi.PrintableRuneWidth(helpNote),
	)
	emptySpace := style(strings.Repeat(" ", padding))

	fmt.Fprintf(b, "%s%s%s%s%s",
		logo,
		note,
		emptySpace,
		state,
		helpNote,
	)
}
