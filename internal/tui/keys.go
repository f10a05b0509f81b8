package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the bindings of the watch view.
type KeyMap struct {
	Toggle    key.Binding
	Mode      key.Binding
	AutoFocus key.Binding
	Focus     key.Binding
	Help      key.Binding
	Quit      key.Binding
}

var keys = KeyMap{
	Toggle: key.NewBinding(
		key.WithKeys("t", " "),
		key.WithHelp("t/Space", "toggle mute"),
	),
	Mode: key.NewBinding(
		key.WithKeys("m"),
		key.WithHelp("m", "next mode"),
	),
	AutoFocus: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "auto-focus"),
	),
	Focus: key.NewBinding(
		key.WithKeys("f"),
		key.WithHelp("f", "focus call tab"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c", "esc"),
		key.WithHelp("q", "quit"),
	),
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Mode, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Toggle, k.Focus},
		{k.Mode, k.AutoFocus},
		{k.Help, k.Quit},
	}
}
