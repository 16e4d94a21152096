package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	detailStyle = lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("245"))
)

type actionMsg struct {
	details []string
	err     error
}

type model struct {
	title   string
	action  func(context.Context) ([]string, error)
	spinner spinner.Model
	done    bool
	details []string
	err     error
}

func newModel(title string, action func(context.Context) ([]string, error)) model {
	return model{title: title, action: action, spinner: spinner.New(spinner.WithSpinner(spinner.Dot))}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		details, err := m.action(context.Background())
		return actionMsg{details: details, err: err}
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case actionMsg:
		m.done = true
		m.details = msg.details
		m.err = msg.err
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.done = true
			m.err = context.Canceled
			return m, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder
	switch {
	case !m.done:
		frame := ""
		if len(m.spinner.Spinner.Frames) > 0 {
			frame = m.spinner.View() + " "
		}
		fmt.Fprintf(&b, "%sRunning %s\n", frame, titleStyle.Render(m.title))
		return b.String()
	case m.err != nil:
		fmt.Fprintf(&b, "%s %s: %v\n", failStyle.Render("FAILED"), titleStyle.Render(m.title), m.err)
	default:
		fmt.Fprintf(&b, "%s %s\n", okStyle.Render("OK"), titleStyle.Render(m.title))
	}
	for _, d := range m.details {
		b.WriteString(detailStyle.Render(d))
		b.WriteString("\n")
	}
	return b.String()
}

// Run shows a spinner while action runs and prints its outcome.
func Run(title string, action func(context.Context) ([]string, error)) ([]string, error) {
	final, err := tea.NewProgram(newModel(title, action)).Run()
	if err != nil {
		return nil, err
	}
	m, ok := final.(model)
	if !ok {
		return nil, fmt.Errorf("unexpected ui model %T", final)
	}
	return m.details, m.err
}
