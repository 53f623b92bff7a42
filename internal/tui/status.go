// Package tui renders the live recording status view: elapsed time,
// session size, and active streams, with q or ctrl+c stopping the
// session through the same path a termination signal takes.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/recapd/recap/internal/capture"
	"github.com/recapd/recap/internal/sessionsize"
)

// tickInterval drives the duration/size refresh.
const tickInterval = time.Second

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	streamStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
)

// Controller is the slice of the orchestrator the status view needs.
type Controller interface {
	Stop() error
}

// SizeFunc returns the current session size in bytes.
type SizeFunc func() int64

type tickMsg time.Time

// Model is the bubbletea model for the recording status view.
type Model struct {
	controller Controller
	size       SizeFunc

	sessionDir string
	streams    []capture.Kind
	started    time.Time

	stopping bool
	err      error
}

// NewModel creates the status view for an active session.
func NewModel(controller Controller, sessionDir string, streams []capture.Kind, started time.Time, size SizeFunc) Model {
	return Model{
		controller: controller,
		size:       size,
		sessionDir: sessionDir,
		streams:    streams,
		started:    started,
	}
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init starts the refresh ticker.
func (m Model) Init() tea.Cmd {
	return tick()
}

// Update handles key presses and ticks. Stopping happens in a command so
// the bounded teardown waits never freeze the view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.stopping {
				return m, nil
			}
			m.stopping = true
			return m, func() tea.Msg {
				return stopDoneMsg{err: m.controller.Stop()}
			}
		}
	case stopDoneMsg:
		m.err = msg.err
		return m, tea.Quit
	case tickMsg:
		return m, tick()
	}
	return m, nil
}

type stopDoneMsg struct {
	err error
}

// Err returns the stop error, if any, once the program has exited.
func (m Model) Err() error { return m.err }

// View renders the status block.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("● Recording"))
	b.WriteString("\n\n")

	elapsed := time.Since(m.started).Round(time.Second)
	b.WriteString(fmt.Sprintf("%s %s\n",
		labelStyle.Render("Duration:"), valueStyle.Render(formatDuration(elapsed))))

	if m.size != nil {
		b.WriteString(fmt.Sprintf("%s %s\n",
			labelStyle.Render("Size:    "), valueStyle.Render(sessionsize.Human(m.size()))))
	}

	names := make([]string, len(m.streams))
	for i, kind := range m.streams {
		names[i] = string(kind)
	}
	b.WriteString(fmt.Sprintf("%s %s\n",
		labelStyle.Render("Streams: "), streamStyle.Render(strings.Join(names, ", "))))
	b.WriteString(fmt.Sprintf("%s %s\n",
		labelStyle.Render("Output:  "), valueStyle.Render(m.sessionDir)))

	b.WriteString("\n")
	if m.stopping {
		b.WriteString(helpStyle.Render("stopping..."))
	} else {
		b.WriteString(helpStyle.Render("press q to stop"))
	}
	b.WriteString("\n")
	return b.String()
}

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
