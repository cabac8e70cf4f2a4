package tui

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/pcekm/cocotap/internal/tui/rules"
)

var defaultKeyMap = keyMap{
	Reload: key.NewBinding(
		key.WithKeys("r", "f5"),
		key.WithHelp("r", "reload"),
	),
	Table: key.NewBinding(
		key.WithKeys("t"),
		key.WithHelp("t", "next table"),
	),
	Chain: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "next chain"),
	),
	Inspect: key.NewBinding(
		key.WithKeys("enter", "i"),
		key.WithHelp("enter", "inspect rule"),
	),
	Add: key.NewBinding(
		key.WithKeys("a", "+"),
		key.WithHelp("a", "add rule"),
	),
	Delete: key.NewBinding(
		key.WithKeys("d", "delete"),
		key.WithHelp("d", "delete rule"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Suspend: key.NewBinding(
		key.WithKeys("ctrl+z"),
		key.WithHelp("ctrl+z", "suspend"),
	),
	Log: key.NewBinding(
		key.WithKeys("l"),
		key.WithHelp("l", "toggle log"),
	),
	Help: key.NewBinding(
		key.WithKeys("f1", "?"),
		key.WithHelp("?", "help"),
	),
}

type keyMap struct {
	Reload  key.Binding
	Table   key.Binding
	Chain   key.Binding
	Inspect key.Binding
	Add     key.Binding
	Delete  key.Binding
	Quit    key.Binding
	Suspend key.Binding
	Log     key.Binding
	Help    key.Binding
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		rules.Bindings(),
		{k.Reload, k.Table, k.Chain, k.Inspect, k.Add, k.Delete},
		{k.Log, k.Help, k.Suspend, k.Quit},
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.Inspect, k.Add, k.Delete, k.Table, k.Chain, k.Help, k.Quit,
	}
}

var confirmKeyMap = confirmKeys{
	Yes: key.NewBinding(
		key.WithKeys("y", "enter"),
		key.WithHelp("y", "delete"),
	),
	No: key.NewBinding(
		key.WithKeys("n", "esc", "q"),
		key.WithHelp("n/esc", "cancel"),
	),
}

type confirmKeys struct {
	Yes key.Binding
	No  key.Binding
}

func (k confirmKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

func (k confirmKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Yes, k.No}
}

var inspectKeyMap = inspectKeys{
	Copy: key.NewBinding(
		key.WithKeys("c", "y"),
		key.WithHelp("c", "copy to clipboard"),
	),
	Delete: key.NewBinding(
		key.WithKeys("d", "delete"),
		key.WithHelp("d", "delete rule"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc", "q", "enter"),
		key.WithHelp("esc", "back"),
	),
}

type inspectKeys struct {
	Copy   key.Binding
	Delete key.Binding
	Back   key.Binding
}

func (k inspectKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

func (k inspectKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Copy, k.Delete, k.Back}
}
