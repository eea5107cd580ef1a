// Package ui provides the terminal script editor.
package ui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/go-homedir"
	"github.com/muesli/termenv"

	"github.com/dgnsrekt/scriptplay/internal/resource"
	"github.com/dgnsrekt/scriptplay/internal/script"
	"github.com/dgnsrekt/scriptplay/internal/sequencer"
	"github.com/dgnsrekt/scriptplay/internal/speech"
)

const (
	ellipsis = "…"

	// eventBuffer bounds queued playback events; the oldest are dropped
	// when the UI falls behind.
	eventBuffer = 64
)

// Player runs the script.
type Player interface {
	Start() error
	Stop()
	State() sequencer.State
	OnEvent(fn func(sequencer.Event))
}

// VoiceLister lists the voices lines can use.
type VoiceLister interface {
	Voices(ctx context.Context) ([]speech.Voice, error)
}

// copyToClipboard copies using OSC 52 and the native system clipboard.
var copyToClipboard = func(s string) {
	termenv.Copy(s)
	_ = clipboard.WriteAll(s)
}

// NewProgram returns a new Tea program.
func NewProgram(cfg Config, store *script.Store, player Player, voices VoiceLister) *tea.Program {
	log.Debug("starting editor", "script", cfg.ScriptPath, "watch", cfg.Watch)

	var opts []tea.ProgramOption
	if cfg.AltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	if cfg.EnableMouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	return tea.NewProgram(newModel(cfg, store, player, voices), opts...)
}

type (
	voicesLoadedMsg struct {
		names []string
		err   error
	}
	playerEventMsg          sequencer.Event
	statusMessageTimeoutMsg struct{}
	reloadMsg               struct{}
)

// mode is what the editor is doing with key presses.
type mode int

const (
	modeBrowse mode = iota
	modeAddLine
	modeEditLine
	modeAddClip
	modeConfirmClear
)

func (m mode) String() string {
	return map[mode]string{
		modeBrowse:       "browsing",
		modeAddLine:      "adding line",
		modeEditLine:     "editing line",
		modeAddClip:      "adding clip",
		modeConfirmClear: "confirming delete",
	}[m]
}

type model struct {
	cfg    Config
	store  *script.Store
	player Player
	voices VoiceLister

	width  int
	height int

	mode      mode
	cursor    int
	input     textinput.Model
	editingID string
	keys      keyMap
	inputKeys inputKeyMap
	help      help.Model
	showHelp  bool
	spinner   spinner.Model

	voiceNames    []string
	voiceIdx      int
	loadingVoices bool

	events     chan sequencer.Event
	playing    bool
	generation uint64
	current    int
	total      int

	statusMessage string
	statusIsError bool
	statusTimer   *time.Timer

	quitArmed bool

	watcher   *fsnotify.Watcher
	lastSaved []byte
}

func newModel(cfg Config, store *script.Store, player Player, voices VoiceLister) model {
	if cfg.StatusTimeout <= 0 {
		cfg.StatusTimeout = 3 * time.Second
	}

	ti := textinput.New()
	ti.Prompt = promptStyle.Render("› ")
	ti.CharLimit = 2000

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = playingStyle

	m := model{
		cfg:           cfg,
		store:         store,
		player:        player,
		voices:        voices,
		input:         ti,
		keys:          newKeyMap(),
		inputKeys:     newInputKeyMap(),
		help:          help.New(),
		spinner:       sp,
		loadingVoices: voices != nil,
		events:        make(chan sequencer.Event, eventBuffer),
		current:       -1,
	}

	player.OnEvent(queueEvent(m.events))

	if cfg.Watch && cfg.ScriptPath != "" {
		m.initWatcher()
	}
	if data, err := store.Serialize(); err == nil {
		m.lastSaved = data
	}
	return m
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, waitForEvent(m.events)}
	if m.voices != nil {
		cmds = append(cmds, loadVoices(m.voices, m.cfg.VoiceTimeout))
	}
	if m.watcher != nil {
		cmds = append(cmds, m.watchFile)
	}
	return tea.Batch(cmds...)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(10, msg.Width-20)
		m.help.Width = msg.Width
		return m, nil

	case voicesLoadedMsg:
		m.loadingVoices = false
		if msg.err != nil {
			return m, m.showStatus(fmt.Sprintf("Could not list voices: %v", msg.err), true)
		}
		m.voiceNames = msg.names
		m.voiceIdx = m.lastUsedVoice()
		return m, nil

	case spinner.TickMsg:
		m.syncPlaying()
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case playerEventMsg:
		cmd := m.handleEvent(sequencer.Event(msg))
		m.syncPlaying()
		return m, tea.Batch(cmd, waitForEvent(m.events))

	case statusMessageTimeoutMsg:
		m.statusMessage = ""
		m.statusIsError = false
		return m, nil

	case reloadMsg:
		cmd := m.reload()
		return m, tea.Batch(cmd, m.watchFile)

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.ForceQuit) {
			return m, m.quit()
		}
		switch m.mode {
		case modeBrowse:
			return m.updateBrowse(msg)
		case modeConfirmClear:
			return m.updateConfirm(msg)
		default:
			return m.updateInput(msg)
		}
	}

	if m.mode != modeBrowse && m.mode != modeConfirmClear {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !key.Matches(msg, m.keys.Quit) {
		m.quitArmed = false
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.cfg.ConfirmQuit && m.store.Dirty() && !m.quitArmed {
			m.quitArmed = true
			return m, m.showStatus("Unsaved changes. Press q again to quit or ctrl+s to save", true)
		}
		return m, m.quit()

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < m.store.Len()-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.Play):
		if err := m.player.Start(); err != nil {
			if errors.Is(err, sequencer.ErrEmptyScript) {
				return m, m.showStatus("Nothing to play. Add a line first", true)
			}
			return m, m.showStatus(err.Error(), true)
		}

	case key.Matches(msg, m.keys.Add):
		if len(m.voiceNames) == 0 {
			if m.loadingVoices {
				return m, m.showStatus("Still loading voices…", false)
			}
			return m, m.showStatus("No voices available", true)
		}
		m.voiceIdx = m.lastUsedVoice()
		return m, m.beginInput(modeAddLine, "", "What should be said?")

	case key.Matches(msg, m.keys.AddClip):
		return m, m.beginInput(modeAddClip, "", "Path to a .wav or .mp3 file")

	case key.Matches(msg, m.keys.Edit):
		item, ok := m.selected()
		if !ok {
			return m, nil
		}
		line, isSpeech := item.(script.SpeechItem)
		if !isSpeech {
			return m, m.showStatus("Clips can't be edited. Press b to change the role", true)
		}
		m.editingID = line.ID()
		m.voiceIdx = m.voiceIndex(line.VoiceName)
		return m, m.beginInput(modeEditLine, line.Text, "")

	case key.Matches(msg, m.keys.Role):
		item, ok := m.selected()
		if !ok {
			return m, nil
		}
		clip, isClip := item.(script.AudioItem)
		if !isClip {
			return m, m.showStatus("Only clips have a role", true)
		}
		role := clip.Role.Toggle()
		if err := m.store.SetRole(clip.ID(), role); err != nil {
			return m, m.showStatus(err.Error(), true)
		}
		return m, m.showStatus(fmt.Sprintf("%s is now %s", clip.FileName, role), false)

	case key.Matches(msg, m.keys.Copy):
		item, ok := m.selected()
		if !ok {
			return m, nil
		}
		if item.Kind() != script.KindAudio {
			return m, m.showStatus("Only clips can be copied", true)
		}
		dup, err := m.store.Duplicate(item.ID())
		if err != nil {
			return m, m.showStatus(err.Error(), true)
		}
		m.cursor = m.store.Len() - 1
		return m, m.showStatus("Added "+dup.FileName, false)

	case key.Matches(msg, m.keys.Delete):
		item, ok := m.selected()
		if !ok {
			return m, nil
		}
		if err := m.store.Remove(item.ID()); err != nil {
			return m, m.showStatus(err.Error(), true)
		}
		m.clampCursor()

	case key.Matches(msg, m.keys.Yank):
		item, ok := m.selected()
		if !ok {
			return m, nil
		}
		copyToClipboard(script.Label(item))
		return m, m.showStatus("Copied to clipboard", false)

	case key.Matches(msg, m.keys.Save):
		if err := m.save(); err != nil {
			return m, m.showStatus(err.Error(), true)
		}
		return m, m.showStatus("Saved "+filepath.Base(m.cfg.ScriptPath), false)

	case key.Matches(msg, m.keys.Clear):
		if m.store.Len() == 0 {
			return m, m.showStatus("Script is already empty", false)
		}
		m.mode = modeConfirmClear

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
	}

	return m, nil
}

func (m model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.mode = modeBrowse
	if msg.String() != "y" && msg.String() != "Y" {
		return m, m.showStatus("Kept the script", false)
	}
	if err := m.store.Clear(); err != nil {
		return m, m.showStatus(err.Error(), true)
	}
	m.cursor = 0
	return m, m.showStatus("Deleted every line", false)
}

func (m model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.inputKeys.Cancel):
		m.endInput()
		return m, nil

	case key.Matches(msg, m.inputKeys.NextVoice) && m.mode != modeAddClip:
		if n := len(m.voiceNames); n > 0 {
			m.voiceIdx = (m.voiceIdx + 1) % n
		}
		return m, nil

	case key.Matches(msg, m.inputKeys.PrevVoice) && m.mode != modeAddClip:
		if n := len(m.voiceNames); n > 0 {
			m.voiceIdx = (m.voiceIdx - 1 + n) % n
		}
		return m, nil

	case key.Matches(msg, m.inputKeys.Submit):
		return m.submit()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) submit() (tea.Model, tea.Cmd) {
	value := m.input.Value()

	switch m.mode {
	case modeAddLine:
		if _, err := m.store.AddSpeech(m.currentVoice(), value); err != nil {
			return m, m.showStatus(err.Error(), true)
		}
		m.cursor = m.store.Len() - 1
		// Keep typing lines with the same voice
		m.input.Reset()
		return m, nil

	case modeEditLine:
		if err := m.store.EditText(m.editingID, value); err != nil {
			return m, m.showStatus(err.Error(), true)
		}
		if voice := m.currentVoice(); voice != "" {
			if err := m.store.SetVoice(m.editingID, voice); err != nil {
				return m, m.showStatus(err.Error(), true)
			}
		}

	case modeAddClip:
		path := expandPath(value)
		content, err := resource.ReadAudioFile(path)
		if err != nil {
			return m, m.showStatus(err.Error(), true)
		}
		clip, err := m.store.AddAudio(filepath.Base(path), content)
		if err != nil {
			return m, m.showStatus(err.Error(), true)
		}
		m.cursor = m.store.Len() - 1
		m.endInput()
		return m, m.showStatus("Added "+clip.FileName, false)
	}

	m.endInput()
	return m, nil
}

func (m *model) beginInput(md mode, value, placeholder string) tea.Cmd {
	m.mode = md
	m.input.Reset()
	m.input.SetValue(value)
	m.input.Placeholder = placeholder
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m *model) endInput() {
	m.mode = modeBrowse
	m.editingID = ""
	m.input.Blur()
	m.input.Reset()
}

func (m *model) handleEvent(e sequencer.Event) tea.Cmd {
	if e.Type == sequencer.EventStarted {
		m.generation = e.Generation
		m.playing = true
		m.current = -1
		m.total = e.Total
		return m.spinner.Tick
	}
	if e.Generation != m.generation {
		return nil
	}

	switch e.Type {
	case sequencer.EventItemStarted:
		m.current = e.Index
	case sequencer.EventItemFailed:
		return m.showStatus(fmt.Sprintf("Item %d failed: %v", e.Index+1, e.Err), true)
	case sequencer.EventStopped:
		m.playing = false
		m.current = -1
	case sequencer.EventFinished:
		m.playing = false
		m.current = -1
		return m.showStatus("Finished", false)
	}
	return nil
}

// syncPlaying clears the play indicator once the player is idle, so a
// lost Stopped or Finished event cannot leave it on.
func (m *model) syncPlaying() {
	if m.playing && m.player.State() != sequencer.StatePlaying {
		m.playing = false
		m.current = -1
	}
}

func (m *model) showStatus(message string, isError bool) tea.Cmd {
	m.statusMessage = message
	m.statusIsError = isError
	if m.statusTimer != nil {
		m.statusTimer.Stop()
	}
	m.statusTimer = time.NewTimer(m.cfg.StatusTimeout)
	return waitForStatusMessageTimeout(m.statusTimer)
}

func (m *model) quit() tea.Cmd {
	m.player.Stop()
	if m.watcher != nil {
		_ = m.watcher.Close()
	}
	return tea.Quit
}

func (m *model) save() error {
	if m.cfg.ScriptPath == "" {
		return errors.New("no script file to save to")
	}
	data, err := m.store.Serialize()
	if err != nil {
		return err
	}
	if err := m.store.SaveFile(m.cfg.ScriptPath); err != nil {
		return err
	}
	m.lastSaved = data
	log.Info("saved script", "path", m.cfg.ScriptPath, "items", m.store.Len())
	return nil
}

func (m model) selected() (script.Item, bool) {
	return m.store.At(m.cursor)
}

func (m *model) clampCursor() {
	if n := m.store.Len(); m.cursor >= n {
		m.cursor = max(0, n-1)
	}
}

func (m model) currentVoice() string {
	if m.voiceIdx < 0 || m.voiceIdx >= len(m.voiceNames) {
		return ""
	}
	return m.voiceNames[m.voiceIdx]
}

func (m model) voiceIndex(name string) int {
	for i, v := range m.voiceNames {
		if v == name {
			return i
		}
	}
	return m.voiceIdx
}

// lastUsedVoice picks the voice of the last line so new lines continue
// the same speaker.
func (m model) lastUsedVoice() int {
	items := m.store.Items()
	for i := len(items) - 1; i >= 0; i-- {
		if line, ok := items[i].(script.SpeechItem); ok {
			return m.voiceIndex(line.VoiceName)
		}
	}
	return m.voiceIdx
}

// COMMANDS

func loadVoices(v VoiceLister, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		voices, err := v.Voices(ctx)
		if err != nil {
			return voicesLoadedMsg{err: err}
		}
		names := make([]string, len(voices))
		for i, voice := range voices {
			names[i] = voice.Name
		}
		log.Debug("voices loaded", "count", len(names))
		return voicesLoadedMsg{names: names}
	}
}

// queueEvent returns a listener that hands events to the UI without ever
// blocking the sequencer. When the buffer is full, progress events are
// dropped; an end-of-run event evicts the oldest queued event instead.
func queueEvent(events chan sequencer.Event) func(sequencer.Event) {
	return func(e sequencer.Event) {
		select {
		case events <- e:
			return
		default:
		}

		if e.Type != sequencer.EventStopped && e.Type != sequencer.EventFinished {
			log.Debug("dropped playback event", "type", e.Type)
			return
		}
		select {
		case old := <-events:
			log.Debug("dropped playback event", "type", old.Type)
		default:
		}
		select {
		case events <- e:
		default:
			log.Debug("dropped playback event", "type", e.Type)
		}
	}
}

func waitForEvent(events <-chan sequencer.Event) tea.Cmd {
	return func() tea.Msg {
		return playerEventMsg(<-events)
	}
}

func waitForStatusMessageTimeout(t *time.Timer) tea.Cmd {
	return func() tea.Msg {
		<-t.C
		return statusMessageTimeoutMsg{}
	}
}

// ETC

func expandPath(path string) string {
	path = strings.TrimSpace(path)
	if p, err := homedir.Expand(path); err == nil {
		return p
	}
	return path
}
