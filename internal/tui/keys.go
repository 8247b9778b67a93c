package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all keyboard shortcuts
type KeyMap struct {
	Up        key.Binding
	Down      key.Binding
	Left      key.Binding
	Right     key.Binding
	Center    key.Binding
	Associate key.Binding
	NewTopic  key.Binding
	Hide      key.Binding
	Delete    key.Binding
	Save      key.Binding
	Enter     key.Binding
	Back      key.Binding
	Quit      key.Binding
	Help      key.Binding
}

// DefaultKeyMap provides the default keybindings
var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "pan up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "pan down"),
	),
	Left: key.NewBinding(
		key.WithKeys("left", "h"),
		key.WithHelp("←/h", "pan left"),
	),
	Right: key.NewBinding(
		key.WithKeys("right", "l"),
		key.WithHelp("→/l", "pan right"),
	),
	Center: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "center selection"),
	),
	Associate: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "associate"),
	),
	NewTopic: key.NewBinding(
		key.WithKeys("n"),
		key.WithHelp("n", "new topic"),
	),
	Hide: key.NewBinding(
		key.WithKeys("x"),
		key.WithHelp("x", "hide"),
	),
	Delete: key.NewBinding(
		key.WithKeys("d", "delete"),
		key.WithHelp("d", "delete"),
	),
	Save: key.NewBinding(
		key.WithKeys("s", "ctrl+s"),
		key.WithHelp("s", "save"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "choose"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "cancel"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c", "q"),
		key.WithHelp("q", "quit"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
}

// ShortHelp returns the bindings shown in the status bar.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NewTopic, k.Associate, k.Hide, k.Delete, k.Save, k.Help, k.Quit}
}

// FullHelp returns every binding, grouped by column.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right, k.Center},
		{k.NewTopic, k.Associate, k.Hide, k.Delete},
		{k.Save, k.Enter, k.Back, k.Help, k.Quit},
	}
}
