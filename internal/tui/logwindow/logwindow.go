// Package logwindow collects and displays log messages.
package logwindow

import (
	"bytes"
	"sync"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	// Lines kept for display. Older lines are discarded.
	maxLines = 1000
)

type logUpdated struct{}

// Model collects and displays log messages. To use, set this as the [log]
// library's output with
//
//	log.SetOutput(model)
//
// and hook up its Init, Update and View methods. Writes never block, so it's
// safe to log before the program is running, or after it has stopped.
type Model struct {
	ready   bool
	vp      viewport.Model
	updated chan struct{}

	mu    sync.Mutex
	lines [][]byte
}

// New creates a new log handler.
func New() *Model {
	return &Model{
		updated: make(chan struct{}, 1),
	}
}

// Write receives a new log message from the logger.
func (l *Model) Write(b []byte) (int, error) {
	l.mu.Lock()
	for _, line := range bytes.SplitAfter(b, []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		l.lines = append(l.lines, bytes.Clone(line))
	}
	if extra := len(l.lines) - maxLines; extra > 0 {
		l.lines = l.lines[extra:]
	}
	l.mu.Unlock()

	select {
	case l.updated <- struct{}{}:
	default:
	}
	return len(b), nil
}

// Content returns everything currently in the log.
func (l *Model) Content() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return string(bytes.Join(l.lines, nil))
}

// SetSize sets the size of the logging window.
func (l *Model) SetSize(width, height int) {
	if !l.ready {
		l.vp = viewport.New(width, height)
		l.vp.Style = lipgloss.NewStyle().
			BorderTop(true).
			BorderStyle(lipgloss.NormalBorder()).
			Padding(0, 1)
		l.ready = true
	}
	l.vp.Width = width
	l.vp.Height = height
	l.refresh()
}

func (l *Model) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		<-l.updated
		return logUpdated{}
	}
}

func (l *Model) refresh() {
	if !l.ready {
		return
	}
	l.vp.SetContent(l.Content())
	l.vp.GotoBottom()
}

// Init starts log handling with bubbletea.
func (l *Model) Init() tea.Cmd {
	return l.waitForUpdate()
}

// Update updates the log messages.
func (l *Model) Update(msg tea.Msg) tea.Cmd {
	var vpCmd tea.Cmd
	l.vp, vpCmd = l.vp.Update(msg)
	cmds := []tea.Cmd{vpCmd}
	switch msg.(type) {
	case logUpdated:
		l.refresh()
		cmds = append(cmds, l.waitForUpdate())
	}
	return tea.Batch(cmds...)
}

// View returns the log display.
func (l *Model) View() string {
	return l.vp.View()
}
