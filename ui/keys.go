package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	Play      key.Binding
	Add       key.Binding
	AddClip   key.Binding
	Edit      key.Binding
	Role      key.Binding
	Copy      key.Binding
	Delete    key.Binding
	Yank      key.Binding
	Save      key.Binding
	Clear     key.Binding
	Help      key.Binding
	Quit      key.Binding
	ForceQuit key.Binding
}

type inputKeyMap struct {
	Submit    key.Binding
	Cancel    key.Binding
	NextVoice key.Binding
	PrevVoice key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Play:      key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "play/stop")),
		Add:       key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add line")),
		AddClip:   key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "add clip")),
		Edit:      key.NewBinding(key.WithKeys("e", "enter"), key.WithHelp("e", "edit line")),
		Role:      key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "effect/background")),
		Copy:      key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "copy clip")),
		Delete:    key.NewBinding(key.WithKeys("d", "x"), key.WithHelp("d", "delete")),
		Yank:      key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "yank text")),
		Save:      key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
		Clear:     key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "delete script")),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:      key.NewBinding(key.WithKeys("q", "esc"), key.WithHelp("q", "quit")),
		ForceQuit: key.NewBinding(key.WithKeys("ctrl+c")),
	}
}

func newInputKeyMap() inputKeyMap {
	return inputKeyMap{
		Submit:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save")),
		Cancel:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		NextVoice: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next voice")),
		PrevVoice: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "previous voice")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Play, k.Add, k.Edit, k.Delete, k.Save, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Play},
		{k.Add, k.AddClip, k.Edit, k.Delete},
		{k.Role, k.Copy, k.Yank},
		{k.Save, k.Clear, k.Help, k.Quit},
	}
}

func (k inputKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Cancel, k.NextVoice}
}

func (k inputKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Submit, k.Cancel, k.NextVoice, k.PrevVoice}}
}
