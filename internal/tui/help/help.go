// Package help displays a help bar, or a full help box.
package help

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"

	"github.com/pcekm/cocotap/internal/tui/theme"
)

var (
	shortBoxStyle = lipgloss.NewStyle().
			Padding(0, 1)
	fullBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), true).
			Padding(0, 1)
)

// Model is the help display.
type Model struct {
	keyMap  help.KeyMap
	keyHelp help.Model
	width   int
}

// New creates a help display for a key map.
func New(th *theme.Theme, km help.KeyMap) *Model {
	m := &Model{
		keyMap:  km,
		keyHelp: help.New(),
	}
	m.keyHelp.Styles.FullKey = th.Text.Important
	m.keyHelp.Styles.FullDesc = th.Text.Unimportant
	m.keyHelp.Styles.ShortKey = th.Text.Important
	m.keyHelp.Styles.ShortDesc = th.Text.Unimportant
	return m
}

// SetKeyMap changes the key bindings shown.
func (m *Model) SetKeyMap(km help.KeyMap) {
	m.keyMap = km
}

// SetFullHelp switches between the short and the full help displays.
func (m *Model) SetFullHelp(b bool) {
	m.keyHelp.ShowAll = b
}

// FullHelp returns true if the full help is showing.
func (m *Model) FullHelp() bool {
	return m.keyHelp.ShowAll
}

// GetHeight returns the natural height of the help display.
func (m *Model) GetHeight() int {
	return lipgloss.Height(m.keyHelp.View(m.keyMap)) + m.style().GetVerticalFrameSize()
}

// SetWidth sets the width of the display.
func (m *Model) SetWidth(width int) {
	m.width = width
	m.keyHelp.Width = width - m.style().GetHorizontalFrameSize()
}

func (m *Model) style() lipgloss.Style {
	if m.keyHelp.ShowAll {
		return fullBoxStyle
	}
	return shortBoxStyle
}

// View returns the help view.
func (m *Model) View() string {
	style := m.style()
	return style.
		Width(m.width - style.GetHorizontalBorderSize()).
		Render(m.keyHelp.View(m.keyMap))
}
