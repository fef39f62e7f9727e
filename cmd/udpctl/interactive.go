package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/udp-sockets/dispatch"
	"github.com/wippyai/udp-sockets/socket"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	dataStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const maxLogLines = 200

type logKind int

const (
	logResult logKind = iota
	logError
	logData
)

type logLine struct {
	text string
	kind logKind
}

type interactiveModel struct {
	d        *dispatch.Dispatcher
	defaults socket.Options
	lines    []logLine
	input    textinput.Model
	height   int
	busy     bool
}

type eventMsg struct {
	ev dispatch.Event
	ok bool
}

type resultMsg struct {
	err    error
	output string
}

func newInteractiveModel(d *dispatch.Dispatcher, defaults socket.Options) *interactiveModel {
	ti := textinput.New()
	ti.Placeholder = "create 1"
	ti.Prompt = "> "
	ti.Width = 60
	ti.Focus()

	return &interactiveModel{
		d:        d,
		defaults: defaults,
		input:    ti,
		height:   24,
		lines:    []logLine{{kind: logResult, text: "type help for commands"}},
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForEvent)
}

func (m *interactiveModel) waitForEvent() tea.Msg {
	ev, ok := <-m.d.Events()
	return eventMsg{ev: ev, ok: ok}
}

func (m *interactiveModel) execute(line string) tea.Cmd {
	return func() tea.Msg {
		cmd, err := parseCommand(line)
		if err != nil {
			return resultMsg{err: err}
		}
		out, err := cmd.run(m.d, m.defaults)
		return resultMsg{output: out, err: err}
	}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit

		case "enter":
			line := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			if line == "" || m.busy {
				return m, nil
			}
			if line == "quit" || line == "exit" {
				return m, tea.Quit
			}
			m.busy = true
			m.appendLine(logResult, "> "+line)
			return m, m.execute(line)
		}

	case tea.WindowSizeMsg:
		m.height = msg.Height

	case resultMsg:
		m.busy = false
		if msg.err != nil {
			m.appendLine(logError, "error: "+msg.err.Error())
		} else {
			for _, l := range strings.Split(msg.output, "\n") {
				m.appendLine(logResult, l)
			}
		}
		return m, nil

	case eventMsg:
		if !msg.ok {
			m.appendLine(logError, "event stream closed")
			return m, nil
		}
		m.appendLine(logData, formatEvent(msg.ev))
		return m, m.waitForEvent
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *interactiveModel) appendLine(kind logKind, text string) {
	m.lines = append(m.lines, logLine{kind: kind, text: text})
	if len(m.lines) > maxLogLines {
		m.lines = m.lines[len(m.lines)-maxLogLines:]
	}
}

func formatEvent(ev dispatch.Event) string {
	return fmt.Sprintf("[%s] %d <- %s:%d %q",
		ev.Timestamp.Format(time.TimeOnly), ev.Handle, ev.SourceHost, ev.SourcePort, ev.Payload)
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("UDP Console"))
	b.WriteString(fmt.Sprintf(" %d clients, %d queued", m.d.ClientCount(), m.d.QueueDepth()))
	b.WriteString("\n\n")

	visible := m.height - 6
	if visible < 1 {
		visible = 1
	}
	start := 0
	if len(m.lines) > visible {
		start = len(m.lines) - visible
	}
	for _, l := range m.lines[start:] {
		switch l.kind {
		case logError:
			b.WriteString(errorStyle.Render(l.text))
		case logData:
			b.WriteString(dataStyle.Render(l.text))
		default:
			b.WriteString(resultStyle.Render(l.text))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter run • help commands • esc quit"))
	return b.String()
}

func runInteractive(d *dispatch.Dispatcher, defaults socket.Options) error {
	p := tea.NewProgram(newInteractiveModel(d, defaults), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
