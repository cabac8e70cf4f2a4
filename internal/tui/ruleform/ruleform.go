// Package ruleform is a form for building a new rule.
package ruleform

import (
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pcekm/cocotap/internal/firewall"
	"github.com/pcekm/cocotap/internal/tui/nav"
	"github.com/pcekm/cocotap/internal/tui/theme"
	"github.com/pcekm/cocotap/internal/util"
)

// SubmitMsg is sent when the form is accepted.
type SubmitMsg struct {
	Rule firewall.RuleSpec
}

type field int

// Fields in the order they appear.
const (
	fieldProtocol field = iota
	fieldSource
	fieldDestination
	fieldSourcePort
	fieldDestPort
	fieldInIface
	fieldOutIface
	fieldComment
	fieldNATTo
	numFields
)

var labels = [numFields]string{
	fieldProtocol:    "Protocol",
	fieldSource:      "Source IP",
	fieldDestination: "Destination IP",
	fieldSourcePort:  "Source port",
	fieldDestPort:    "Destination port",
	fieldInIface:     "In interface",
	fieldOutIface:    "Out interface",
	fieldComment:     "Comment",
	fieldNATTo:       "NAT to",
}

var placeholders = [numFields]string{
	fieldProtocol:    "Protocol (tcp/udp)",
	fieldSource:      "Source IP",
	fieldDestination: "Destination IP",
	fieldSourcePort:  "Source Port",
	fieldDestPort:    "Destination Port",
	fieldInIface:     "In Interface (eth0)",
	fieldOutIface:    "Out Interface",
	fieldComment:     "Comment (optional)",
	fieldNATTo:       "IP:Port for DNAT, IP for SNAT",
}

type keyMap struct {
	Next   key.Binding
	Prev   key.Binding
	Action key.Binding
	Accept key.Binding
	Reset  key.Binding
	Esc    key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Action, k.Accept, k.Esc}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Next, k.Prev, k.Action}, {k.Accept, k.Reset, k.Esc}}
}

// KeyMap is the form's key map, for help displays.
var KeyMap = keyMap{
	Next: key.NewBinding(
		key.WithKeys("tab", "down"),
		key.WithHelp("tab", "next field"),
	),
	Prev: key.NewBinding(
		key.WithKeys("shift+tab", "up"),
		key.WithHelp("shift+tab", "prev field"),
	),
	Action: key.NewBinding(
		key.WithKeys("ctrl+a"),
		key.WithHelp("ctrl+a", "change action"),
	),
	Accept: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "apply"),
	),
	Reset: key.NewBinding(
		key.WithKeys("ctrl+r"),
		key.WithHelp("ctrl+r", "reset"),
	),
	Esc: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "cancel"),
	),
}

// Model is the rule form.
type Model struct {
	theme  *theme.Theme
	table  string
	action string
	focus  field
	inputs [numFields]textinput.Model
}

// New creates a new, empty form.
func New(th *theme.Theme) *Model {
	m := &Model{theme: th}
	for i := range m.inputs {
		in := textinput.New()
		in.Placeholder = placeholders[i]
		in.Prompt = ""
		in.Width = 40
		m.inputs[i] = in
	}
	m.Reset()
	return m
}

// Reset clears the form back to a TCP ACCEPT rule.
func (m *Model) Reset() {
	for i := range m.inputs {
		m.inputs[i].SetValue("")
	}
	m.inputs[fieldProtocol].SetValue("tcp")
	m.action = firewall.Accept
	m.setFocus(fieldProtocol)
}

// ClearAfterAdd clears the fields that usually differ from one rule to the
// next: the ports and the comment. The rest stay for the next rule.
func (m *Model) ClearAfterAdd() {
	for _, f := range []field{fieldSourcePort, fieldDestPort, fieldComment} {
		m.inputs[f].SetValue("")
	}
}

// SetTable sets the table the rule will go into, which determines the
// available actions.
func (m *Model) SetTable(table string) {
	m.table = table
	if !slices.Contains(firewall.Actions(table), m.action) {
		m.action = firewall.Accept
	}
}

// Rule returns the rule as currently entered.
func (m *Model) Rule() firewall.RuleSpec {
	v := func(f field) string {
		return strings.TrimSpace(m.inputs[f].Value())
	}
	return firewall.RuleSpec{
		Protocol:    v(fieldProtocol),
		Source:      v(fieldSource),
		Destination: v(fieldDestination),
		SourcePort:  v(fieldSourcePort),
		DestPort:    v(fieldDestPort),
		InIface:     v(fieldInIface),
		OutIface:    v(fieldOutIface),
		Comment:     v(fieldComment),
		Action:      m.action,
		NATTo:       v(fieldNATTo),
	}
}

func (m *Model) setFocus(f field) {
	m.inputs[m.focus].Blur()
	m.focus = (f + numFields) % numFields
	m.inputs[m.focus].Focus()
}

// Moves the focus forward or back, skipping hidden fields.
func (m *Model) moveFocus(delta field) {
	m.setFocus(m.focus + delta)
	if m.hidden(m.focus) {
		m.setFocus(m.focus + delta)
	}
}

func (m *Model) hidden(f field) bool {
	return f == fieldNATTo && !firewall.NeedsNATTarget(m.action)
}

// Update handles key presses. The comment field gets everything except the
// form's own keys, so it can contain any text.
func (m *Model) Update(msg tea.Msg) tea.Cmd {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, KeyMap.Esc):
			return nav.Go(nav.Main)
		case key.Matches(msg, KeyMap.Accept):
			rule := m.Rule()
			return tea.Batch(
				nav.Go(nav.Main),
				func() tea.Msg { return SubmitMsg{Rule: rule} },
			)
		case key.Matches(msg, KeyMap.Next):
			m.moveFocus(1)
			return nil
		case key.Matches(msg, KeyMap.Prev):
			m.moveFocus(-1)
			return nil
		case key.Matches(msg, KeyMap.Action):
			m.action = util.Next(firewall.Actions(m.table), m.action)
			if m.hidden(m.focus) {
				m.moveFocus(-1)
			}
			return nil
		case key.Matches(msg, KeyMap.Reset):
			m.Reset()
			return nil
		}
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return cmd
}

// View renders the form.
func (m *Model) View() string {
	var rows []string
	for i, in := range m.inputs {
		if m.hidden(field(i)) {
			continue
		}
		labelStyle := m.theme.Text.Unimportant
		if field(i) == m.focus {
			labelStyle = m.theme.Text.Important
		}
		label := labelStyle.Width(18).Render(labels[i])
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, label, " ", in.View()))
	}
	rows = append(rows,
		"",
		m.theme.Text.Normal.Render("Action: ")+m.theme.Target(m.action).Bold(true).Render(m.action),
		m.theme.Text.Unimportant.Render("Rule:   "+m.Rule().String()),
	)
	title := m.theme.Header.Render("Create Rule")
	return lipgloss.JoinVertical(lipgloss.Left, title, "", strings.Join(rows, "\n"))
}
