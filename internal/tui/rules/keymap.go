package rules

import "github.com/charmbracelet/bubbles/key"

var defaultKeyMap = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	PgUp: key.NewBinding(
		key.WithKeys("pgup"),
		key.WithHelp("pgup", "prev page"),
	),
	PgDn: key.NewBinding(
		key.WithKeys("pgdown"),
		key.WithHelp("pgdn", "next page"),
	),
	Home: key.NewBinding(
		key.WithKeys("home", "g"),
		key.WithHelp("g/home", "go to start"),
	),
	End: key.NewBinding(
		key.WithKeys("end", "G"),
		key.WithHelp("G/end", "go to end"),
	),
}

type keyMap struct {
	Up   key.Binding
	Down key.Binding
	PgUp key.Binding
	PgDn key.Binding
	Home key.Binding
	End  key.Binding
}

// Bindings returns the key bindings for moving around the list, for use in
// a parent's help.
func Bindings() []key.Binding {
	k := defaultKeyMap
	return []key.Binding{k.Up, k.Down, k.PgUp, k.PgDn, k.Home, k.End}
}
