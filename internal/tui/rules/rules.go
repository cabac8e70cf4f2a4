// Package rules implements a scrollable list of the rules in one chain, with a
// cursor for picking a rule to act on.
package rules

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/pcekm/cocotap/internal/firewall"
	"github.com/pcekm/cocotap/internal/tui/theme"
)

// Model contains the rule list.
type Model struct {
	ready   bool
	theme   *theme.Theme
	vp      viewport.Model
	width   int
	title   string
	columns string
	rules   []string
	cursor  int
}

// New makes an empty rule list.
func New(th *theme.Theme) *Model {
	return &Model{theme: th}
}

// SetListing replaces the contents with an iptables listing, including its
// header lines. The cursor stays on the same position if it still exists.
func (m *Model) SetListing(listing []string) {
	m.title, m.columns = "", ""
	if len(listing) > 0 {
		m.title = listing[0]
	}
	if len(listing) > 1 {
		m.columns = listing[1]
	}
	m.rules = firewall.RuleLines(listing)
	m.cursor = max(0, min(m.cursor, len(m.rules)-1))
	m.render()
}

// Len returns the number of rules.
func (m *Model) Len() int {
	return len(m.rules)
}

// Selected returns the rule under the cursor.
func (m *Model) Selected() (string, bool) {
	if len(m.rules) == 0 {
		return "", false
	}
	return m.rules[m.cursor], true
}

// SetSize sets the list size. It must be called at least once in order for
// anything to be displayed.
func (m *Model) SetSize(width, height int) {
	// Title and column header.
	height = max(1, height-2)
	if !m.ready {
		m.vp = viewport.New(width, height)
		m.ready = true
	}
	m.width = width
	m.vp.Width = width
	m.vp.Height = height
	m.render()
}

// Update handles cursor movement.
func (m *Model) Update(msg tea.Msg) tea.Cmd {
	kmsg, ok := msg.(tea.KeyMsg)
	if !ok || len(m.rules) == 0 {
		return nil
	}
	km := defaultKeyMap
	switch {
	case key.Matches(kmsg, km.Up):
		m.cursor--
	case key.Matches(kmsg, km.Down):
		m.cursor++
	case key.Matches(kmsg, km.PgUp):
		m.cursor -= m.vp.Height
	case key.Matches(kmsg, km.PgDn):
		m.cursor += m.vp.Height
	case key.Matches(kmsg, km.Home):
		m.cursor = 0
	case key.Matches(kmsg, km.End):
		m.cursor = len(m.rules) - 1
	default:
		return nil
	}
	m.cursor = max(0, min(m.cursor, len(m.rules)-1))
	m.render()
	return nil
}

func (m *Model) render() {
	if !m.ready {
		return
	}
	lines := make([]string, len(m.rules))
	for i, r := range m.rules {
		lines[i] = m.ruleView(r, i == m.cursor)
	}
	m.vp.SetContent(strings.Join(lines, "\n"))

	switch {
	case m.cursor < m.vp.YOffset:
		m.vp.SetYOffset(m.cursor)
	case m.cursor >= m.vp.YOffset+m.vp.Height:
		m.vp.SetYOffset(m.cursor - m.vp.Height + 1)
	}
}

// Renders one rule line. The target (second column) is colored.
func (m *Model) ruleView(rule string, selected bool) string {
	if m.width > 1 {
		rule = ansi.Truncate(rule, m.width, "…")
	}
	if selected {
		return m.theme.Selected.Width(m.width).Render(rule)
	}
	f := strings.Fields(rule)
	if len(f) < 2 {
		return m.theme.Text.Normal.Render(rule)
	}
	// Rules are trimmed, so the line number is at the very start.
	i := len(f[0]) + strings.Index(rule[len(f[0]):], f[1])
	return m.theme.Text.Normal.Render(rule[:i]) +
		m.theme.Target(f[1]).Render(f[1]) +
		m.theme.Text.Normal.Render(rule[i+len(f[1]):])
}

// View renders the list.
func (m *Model) View() string {
	if !m.ready {
		return ""
	}
	header := m.theme.Header.Width(m.width).Render(m.title)
	columns := m.theme.Text.Important.Render(m.columns)
	body := m.vp.View()
	if len(m.rules) == 0 {
		body = lipgloss.PlaceVertical(m.vp.Height, lipgloss.Top, m.theme.Text.Unimportant.Render("No rules found."))
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, columns, body)
}
