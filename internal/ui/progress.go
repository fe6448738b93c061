// Package ui renders a running build in the terminal.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"texlsp/internal/buildpipeline"
)

// DefaultTail is the number of compiler lines kept on screen.
const DefaultTail = 10

// ResultMsg delivers the final build status to the model.
type ResultMsg struct {
	Status buildpipeline.Status
}

type buildModel struct {
	title   string
	events  <-chan buildpipeline.Event
	spinner spinner.Model
	tail    []string
	maxTail int
	lines   int
	width   int
	started time.Time
	elapsed time.Duration

	drained bool
	result  *buildpipeline.Status
}

type eventMsg buildpipeline.Event
type drainedMsg struct{}

// NewBuildModel returns a Bubble Tea model that shows the progress title and
// the last compiler lines of one build. It quits once events is closed and a
// ResultMsg has arrived.
func NewBuildModel(title string, events <-chan buildpipeline.Event, tail int) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	if tail <= 0 {
		tail = DefaultTail
	}
	return &buildModel{
		title:   title,
		events:  events,
		spinner: sp,
		maxTail: tail,
		width:   80,
		started: time.Now(),
	}
}

func (m *buildModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *buildModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		m.applyEvent(buildpipeline.Event(msg))
		return m, m.listenForEvent()
	case drainedMsg:
		m.drained = true
		return m, m.quitIfDone()
	case ResultMsg:
		status := msg.Status
		m.result = &status
		m.elapsed = time.Since(m.started)
		return m, m.quitIfDone()
	case spinner.TickMsg:
		if m.result != nil {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
		}
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *buildModel) quitIfDone() tea.Cmd {
	if m.drained && m.result != nil {
		return tea.Quit
	}
	return nil
}

func (m *buildModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	var header string
	if m.result != nil {
		status := *m.result
		header = fmt.Sprintf("%s %s (%s)", styleStatus(status).Render(status.String()), m.title, m.elapsed.Round(time.Millisecond))
	} else {
		header = fmt.Sprintf("%s building %s", m.spinner.View(), m.title)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")
	lineStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	for _, line := range m.tail {
		b.WriteString("  ")
		b.WriteString(lineStyle.Render(truncate(line, m.width-4)))
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\n  %d lines of output\n", m.lines)
	return b.String()
}

func (m *buildModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return drainedMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *buildModel) applyEvent(ev buildpipeline.Event) {
	switch ev.Kind {
	case buildpipeline.EventBegin:
		if ev.Title != "" {
			m.title = ev.Title
		}
	case buildpipeline.EventLog:
		m.lines++
		m.tail = append(m.tail, ev.Line)
		if len(m.tail) > m.maxTail {
			m.tail = m.tail[len(m.tail)-m.maxTail:]
		}
	}
}

func styleStatus(status buildpipeline.Status) lipgloss.Style {
	switch status {
	case buildpipeline.StatusSuccess:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case buildpipeline.StatusError, buildpipeline.StatusFailure:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	}
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}
