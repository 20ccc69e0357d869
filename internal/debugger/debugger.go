// Package debugger is the -d/--debug REPL (SPEC_FULL §6.4): a thin
// scrollback viewer over a completed run's trace, not a reimplementation
// of execution. It owns no interpreter state of its own, only a cursor
// (the viewport's scroll position) over the trace internal/program's
// orchestrator already produced.
//
// Grounded in the teacher's internal/ui/progress.go Bubble Tea model
// (Init/Update/View, lipgloss styling) and internal/vm/debugger.go's
// step/continue/inspect command set, narrowed here to the one command a
// post-hoc viewer actually needs: scroll.
package debugger

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"spirvm/internal/trace"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
var footerStyle = lipgloss.NewStyle().Faint(true)

// Model is the REPL's Bubble Tea program state: a scrollable rendering of
// every trace event the run emitted, most recent last.
type Model struct {
	vp     viewport.Model
	lines  []string
	title  string
	ready  bool
	width  int
	height int
}

// New builds the viewer over a finished run's ring-captured trace. events
// is typically (*trace.RingTracer).Snapshot() from the tracer the caller
// attached to Program.Run.
func New(title string, events []trace.Event) Model {
	lines := make([]string, 0, len(events))
	for _, ev := range events {
		lines = append(lines, strings.TrimRight(string(trace.FormatEvent(&ev, trace.FormatText)), "\n"))
	}
	return Model{title: title, lines: lines}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		headerHeight := 2
		footerHeight := 1
		vpHeight := msg.Height - headerHeight - footerHeight
		if vpHeight < 1 {
			vpHeight = 1
		}
		if !m.ready {
			m.vp = viewport.New(msg.Width, vpHeight)
			m.vp.SetContent(strings.Join(m.lines, "\n"))
			m.ready = true
		} else {
			m.vp.Width = msg.Width
			m.vp.Height = vpHeight
		}
		m.width, m.height = msg.Width, msg.Height
		return m, nil
	}

	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if !m.ready {
		return "loading trace...\n"
	}
	header := headerStyle.Render(fmt.Sprintf("%s — %d events", m.title, len(m.lines)))
	footer := footerStyle.Render("↑/↓ scroll · q quit")
	return fmt.Sprintf("%s\n%s\n%s", header, m.vp.View(), footer)
}

// Run starts the scrollback program and blocks until the user quits.
func Run(title string, events []trace.Event) error {
	_, err := tea.NewProgram(New(title, events), tea.WithAltScreen()).Run()
	return err
}
