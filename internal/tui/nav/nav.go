// Package nav contains navigation-related commands.
package nav

import tea "github.com/charmbracelet/bubbletea"

// Screen is a screen that may be navigated to.
type Screen int

// Screens.
const (
	_ Screen = iota
	Main
	AddRule
	ConfirmDelete
	InspectRule
)

func (s Screen) String() string {
	switch s {
	case Main:
		return "Main"
	case AddRule:
		return "AddRule"
	case ConfirmDelete:
		return "ConfirmDelete"
	case InspectRule:
		return "InspectRule"
	default:
		return "(unknown)"
	}
}

// GoMsg is a message to go to a given screen.
type GoMsg struct {
	Screen
}

// Go returns a command to go to a given screen.
func Go(s Screen) tea.Cmd {
	return func() tea.Msg {
		return GoMsg{Screen: s}
	}
}
