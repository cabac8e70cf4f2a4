// Package tui implements the text user interface.
package tui

import (
	"fmt"
	"log"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pcekm/cocotap/internal/firewall"
	"github.com/pcekm/cocotap/internal/tui/help"
	"github.com/pcekm/cocotap/internal/tui/logwindow"
	"github.com/pcekm/cocotap/internal/tui/nav"
	"github.com/pcekm/cocotap/internal/tui/ruleform"
	"github.com/pcekm/cocotap/internal/tui/rules"
	"github.com/pcekm/cocotap/internal/tui/theme"
	"github.com/pcekm/cocotap/internal/util"
)

const (
	logHeight = 8
	title     = "CocoTap Console"
)

// Firewall is what the UI needs from a firewall client. It's implemented by
// *firewall.Client.
type Firewall interface {
	ListRules(table, chain string) ([]string, error)
	AddRule(table, chain, rule string) error
	DeleteRule(table, chain, line string) error
}

// Options contain main program options.
type Options struct {
	// Theme contains a UI theme.
	Theme *theme.Theme

	// Table is the table shown at startup. Defaults to "filter".
	Table string

	// Chain is the chain shown at startup. Defaults to "INPUT".
	Chain string

	// Log, if set, is shown in a log window that can be toggled.
	Log *logwindow.Model

	// Copy puts text on the system clipboard. Defaults to
	// clipboard.WriteAll.
	Copy func(string) error
}

func setOptionDefaults(o *Options) *Options {
	if o == nil {
		o = &Options{}
	}
	util.MaybeSetDefault(&o.Theme, &theme.Default)
	util.MaybeSetDefault(&o.Table, firewall.Tables[0])
	util.MaybeSetDefault(&o.Chain, firewall.Chains[0])
	if o.Copy == nil {
		o.Copy = clipboard.WriteAll
	}
	return o
}

// Results of firewall operations. These all run outside of the UI goroutine,
// since they block until the privileged shell answers.
type rulesLoaded struct {
	table, chain string
	listing      []string
	err          error
}

type ruleAdded struct {
	err error
}

type ruleDeleted struct {
	line string
	err  error
}

// Model is the main text UI model.
type Model struct {
	fw    Firewall
	opts  *Options
	focus nav.Screen

	table string
	chain string

	rules   *rules.Model
	form    *ruleform.Model
	help    *help.Model
	logWin  *logwindow.Model
	showLog bool

	width, height int

	loading   bool
	status    string
	statusErr bool

	// Line number of the rule waiting for delete confirmation.
	pendingDelete string
	pendingRule   string

	// Rule shown in the inspector.
	inspected string
}

// New creates a new model.
func New(fw Firewall, opts *Options) *Model {
	opts = setOptionDefaults(opts)
	m := &Model{
		fw:     fw,
		opts:   opts,
		focus:  nav.Main,
		table:  opts.Table,
		chain:  opts.Chain,
		rules:  rules.New(opts.Theme),
		form:   ruleform.New(opts.Theme),
		help:   help.New(opts.Theme, defaultKeyMap),
		logWin: opts.Log,
	}
	m.form.SetTable(m.table)
	return m
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.loadCmd()}
	if m.logWin != nil {
		cmds = append(cmds, m.logWin.Init())
	}
	return tea.Batch(cmds...)
}

// Update process an update message.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
	case tea.KeyMsg:
		// Key messages are conditionally passed on by handleKeyMsg, so return
		// here instead of unconditionally passing them on below.
		return m, m.handleKeyMsg(msg)
	case nav.GoMsg:
		m.goTo(msg.Screen)
	case rulesLoaded:
		m.handleRulesLoaded(msg)
	case ruleAdded:
		cmds = append(cmds, m.handleRuleAdded(msg))
	case ruleDeleted:
		cmds = append(cmds, m.handleRuleDeleted(msg))
	case ruleform.SubmitMsg:
		cmds = append(cmds, m.addCmd(msg.Rule.String()))
	}

	if m.logWin != nil {
		cmds = append(cmds, m.logWin.Update(msg))
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) goTo(s nav.Screen) {
	m.focus = s
	switch s {
	case nav.Main:
		m.help.SetKeyMap(defaultKeyMap)
	case nav.AddRule:
		m.form.SetTable(m.table)
		m.help.SetKeyMap(ruleform.KeyMap)
	case nav.ConfirmDelete:
		m.help.SetKeyMap(confirmKeyMap)
	case nav.InspectRule:
		m.help.SetKeyMap(inspectKeyMap)
	default:
		log.Panicf("Unhandled screen: %v", s)
	}
	m.layout()
}

func (m *Model) setStatus(err error, format string, args ...any) {
	m.statusErr = err != nil
	if err != nil {
		m.status = "Error: " + err.Error()
		log.Print(m.status)
		return
	}
	m.status = fmt.Sprintf(format, args...)
}

func (m *Model) handleRulesLoaded(msg rulesLoaded) {
	if msg.table != m.table || msg.chain != m.chain {
		// The selection changed while this was loading. Another load is
		// already on its way.
		return
	}
	m.loading = false
	if msg.err != nil {
		m.rules.SetListing(nil)
		m.setStatus(msg.err, "")
		return
	}
	m.rules.SetListing(msg.listing)
	m.setStatus(nil, "Loaded %d rules", m.rules.Len())
}

func (m *Model) handleRuleAdded(msg ruleAdded) tea.Cmd {
	if msg.err != nil {
		m.setStatus(msg.err, "")
		return nil
	}
	m.setStatus(nil, "Rule added.")
	m.form.ClearAfterAdd()
	return m.loadCmd()
}

func (m *Model) handleRuleDeleted(msg ruleDeleted) tea.Cmd {
	if msg.err != nil {
		m.setStatus(msg.err, "")
		return nil
	}
	log.Printf("Deleted rule #%s from %s/%s", msg.line, m.table, m.chain)
	m.setStatus(nil, "Rule deleted.")
	return m.loadCmd()
}

// Returns a command that lists the current chain.
func (m *Model) loadCmd() tea.Cmd {
	m.loading = true
	table, chain := m.table, m.chain
	return func() tea.Msg {
		listing, err := m.fw.ListRules(table, chain)
		return rulesLoaded{table: table, chain: chain, listing: listing, err: err}
	}
}

func (m *Model) addCmd(rule string) tea.Cmd {
	table, chain := m.table, m.chain
	return func() tea.Msg {
		return ruleAdded{err: m.fw.AddRule(table, chain, rule)}
	}
}

func (m *Model) deleteCmd(line string) tea.Cmd {
	table, chain := m.table, m.chain
	return func() tea.Msg {
		return ruleDeleted{line: line, err: m.fw.DeleteRule(table, chain, line)}
	}
}

// Global key definitions, followed by the focused screen's.
func (m *Model) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "ctrl+c":
		return tea.Quit
	case "ctrl+z":
		return tea.Suspend
	case "ctrl+l":
		return tea.ClearScreen
	}

	switch m.focus {
	case nav.Main:
		return m.handleMainKey(msg)
	case nav.AddRule:
		return m.form.Update(msg)
	case nav.ConfirmDelete:
		return m.handleConfirmKey(msg)
	case nav.InspectRule:
		return m.handleInspectKey(msg)
	}
	return nil
}

func (m *Model) handleMainKey(msg tea.KeyMsg) tea.Cmd {
	km := defaultKeyMap
	switch {
	case key.Matches(msg, km.Quit):
		return tea.Quit
	case key.Matches(msg, km.Reload):
		return m.loadCmd()
	case key.Matches(msg, km.Table):
		m.table = util.Next(firewall.Tables, m.table)
		m.form.SetTable(m.table)
		return m.loadCmd()
	case key.Matches(msg, km.Chain):
		m.chain = util.Next(firewall.Chains, m.chain)
		return m.loadCmd()
	case key.Matches(msg, km.Add):
		return nav.Go(nav.AddRule)
	case key.Matches(msg, km.Inspect):
		rule, ok := m.rules.Selected()
		if !ok {
			return nil
		}
		m.inspected = rule
		return nav.Go(nav.InspectRule)
	case key.Matches(msg, km.Delete):
		rule, ok := m.rules.Selected()
		if !ok {
			return nil
		}
		return m.confirmDelete(rule)
	case key.Matches(msg, km.Log):
		if m.logWin != nil {
			m.showLog = !m.showLog
			m.layout()
		}
		return nil
	case key.Matches(msg, km.Help):
		m.help.SetFullHelp(!m.help.FullHelp())
		m.layout()
		return nil
	}
	return m.rules.Update(msg)
}

func (m *Model) confirmDelete(rule string) tea.Cmd {
	m.pendingRule = rule
	m.pendingDelete = firewall.LineNumber(rule)
	return nav.Go(nav.ConfirmDelete)
}

func (m *Model) handleInspectKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, inspectKeyMap.Copy):
		if err := m.opts.Copy(m.inspected); err != nil {
			m.setStatus(fmt.Errorf("copy to clipboard: %w", err), "")
			return nil
		}
		m.setStatus(nil, "Copied to clipboard")
	case key.Matches(msg, inspectKeyMap.Delete):
		rule := m.inspected
		m.inspected = ""
		return m.confirmDelete(rule)
	case key.Matches(msg, inspectKeyMap.Back):
		m.inspected = ""
		return nav.Go(nav.Main)
	}
	return nil
}

func (m *Model) handleConfirmKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, confirmKeyMap.Yes):
		line := m.pendingDelete
		m.pendingDelete, m.pendingRule = "", ""
		return tea.Batch(nav.Go(nav.Main), m.deleteCmd(line))
	case key.Matches(msg, confirmKeyMap.No):
		m.pendingDelete, m.pendingRule = "", ""
		return nav.Go(nav.Main)
	}
	return nil
}

// Recomputes the sizes of everything after a resize or a change in what's
// shown.
func (m *Model) layout() {
	if m.width == 0 {
		return
	}
	m.help.SetWidth(m.width)
	height := m.height - m.help.GetHeight() - 2 // Title and status lines
	if m.showLog && m.logWin != nil {
		m.logWin.SetSize(m.width, logHeight)
		height -= logHeight
	}
	m.rules.SetSize(m.width, height)
}

func (m *Model) titleView() string {
	th := m.opts.Theme
	sel := fmt.Sprintf("Table: %s  Chain: %s", m.table, m.chain)
	if m.loading {
		sel += "  (loading…)"
	}
	left := th.Text.Important.Render(title)
	right := th.Text.Unimportant.Render(sel)
	gap := max(1, m.width-lipgloss.Width(left)-lipgloss.Width(right))
	return left + th.Base.Render(fmt.Sprintf("%*s", gap, "")) + right
}

func (m *Model) statusView() string {
	th := m.opts.Theme
	if m.statusErr {
		return th.StatusError.Render(m.status)
	}
	return th.Status.Render(m.status)
}

func (m *Model) confirmView() string {
	th := m.opts.Theme
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(th.Colors.Error).
		Padding(1, 2)
	body := lipgloss.JoinVertical(lipgloss.Left,
		th.Text.Important.Render("Confirm delete"),
		"",
		th.Text.Normal.Render(fmt.Sprintf("Delete rule #%s from %s/%s? This can't be undone.", m.pendingDelete, m.table, m.chain)),
		"",
		th.Text.Unimportant.Render(m.pendingRule),
	)
	return box.Render(body)
}

// Shows the whole rule, wrapped to the window, since the list cuts long rules
// off.
func (m *Model) inspectView() string {
	th := m.opts.Theme
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(th.Colors.Primary).
		Padding(1, 2)
	width := max(10, m.width-box.GetHorizontalFrameSize())
	body := lipgloss.JoinVertical(lipgloss.Left,
		th.Text.Important.Render(fmt.Sprintf("Rule #%s in %s/%s", firewall.LineNumber(m.inspected), m.table, m.chain)),
		"",
		th.Text.Normal.Width(width).Render(m.inspected),
	)
	return box.Render(body)
}

// View renders the model.
func (m *Model) View() string {
	var main string
	switch m.focus {
	case nav.Main:
		main = m.rules.View()
	case nav.AddRule:
		main = m.form.View()
	case nav.ConfirmDelete:
		main = m.confirmView()
	case nav.InspectRule:
		main = m.inspectView()
	default:
		log.Panicf("Unhandled focus: %v", m.focus)
	}
	parts := []string{m.titleView(), main, m.statusView()}
	if m.showLog && m.logWin != nil {
		parts = append(parts, m.logWin.View())
	}
	parts = append(parts, m.help.View())
	return m.opts.Theme.Base.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}
