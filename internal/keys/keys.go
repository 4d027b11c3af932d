package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the dashboard keybindings.
type KeyMap struct {
	// Navigation
	Down key.Binding
	Up   key.Binding

	// Notification actions
	Read    key.Binding
	Action  key.Binding
	Dismiss key.Binding

	// Status filter
	CycleFilter key.Binding

	// Data
	Refresh key.Binding
	RunTick key.Binding

	Help key.Binding
	Quit key.Binding
}

// DefaultKeyMap returns the default set of keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Read: key.NewBinding(
			key.WithKeys("enter", "m"),
			key.WithHelp("enter", "mark read"),
		),
		Action: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "mark actioned"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "dismiss"),
		),
		CycleFilter: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "cycle status filter"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		RunTick: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "run engine now"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp returns the most essential keybindings for the compact help view.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.Up, k.Down, k.Read, k.Action, k.Dismiss, k.Help, k.Quit,
	}
}

// FullHelp returns all keybindings grouped by category for the expanded
// help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Quit},
		{k.Read, k.Action, k.Dismiss},
		{k.CycleFilter, k.Refresh, k.RunTick, k.Help},
	}
}
