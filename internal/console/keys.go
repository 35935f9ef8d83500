package console

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the console key bindings.
type KeyMap struct {
	Up   key.Binding
	Down key.Binding

	Select  key.Binding
	Create  key.Binding
	Reload  key.Binding
	Start   key.Binding
	Stop    key.Binding
	Kickoff key.Binding

	// Edit focuses the draft editor. Approve submits the visible draft,
	// from the list or from inside the editor.
	Edit    key.Binding
	Approve key.Binding
	Discard key.Binding

	Cancel key.Binding
	Help   key.Binding
	Quit   key.Binding
}

var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "down"),
	),
	Select: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "open session"),
	),
	Create: key.NewBinding(
		key.WithKeys("n"),
		key.WithHelp("n", "new session"),
	),
	Reload: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "reload"),
	),
	Start: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "start agents"),
	),
	Stop: key.NewBinding(
		key.WithKeys("t"),
		key.WithHelp("t", "stop watching"),
	),
	Kickoff: key.NewBinding(
		key.WithKeys("ctrl+k"),
		key.WithHelp("C-k", "kickoff"),
	),
	Edit: key.NewBinding(
		key.WithKeys("e"),
		key.WithHelp("e", "edit draft"),
	),
	Approve: key.NewBinding(
		key.WithKeys("ctrl+s"),
		key.WithHelp("C-s", "approve and resume"),
	),
	Discard: key.NewBinding(
		key.WithKeys("x"),
		key.WithHelp("x", "discard edits"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "back"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Select, k.Create, k.Start, k.Edit, k.Approve, k.Help, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Select, k.Create, k.Reload},
		{k.Start, k.Stop, k.Kickoff},
		{k.Edit, k.Approve, k.Discard, k.Cancel},
		{k.Help, k.Quit},
	}
}
