package tui

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sokinpui/suitefix/model"
	"github.com/sokinpui/suitefix/suitefix"
)

// --- Styles ---
var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("197"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	pathStyle    = lipgloss.NewStyle()
	faintStyle   = lipgloss.NewStyle().Faint(true)
)

// --- Messages ---
type summaryMsg struct {
	model.Summary
}

type progressMsg struct {
	current, total int
}

type errorMsg struct{ err error }

func (e errorMsg) Error() string { return e.err.Error() }

// programRef is shared by all copies of the Model so the progress callback
// can reach the running program.
type programRef struct {
	p *tea.Program
}

// --- Model ---
type Model struct {
	app      *suitefix.App
	spinner  spinner.Model
	progress progress.Model
	program  *programRef
	state    state
	current  int
	total    int
	summary  summaryMsg
	err      error
}

type state int

const (
	stateProcessing state = iota
	stateSummary
	stateError
)

func New(app *suitefix.App) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return Model{
		app:      app,
		spinner:  s,
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		program:  &programRef{},
		state:    stateProcessing,
	}
}

// SetProgram connects progress reporting to the running program. It must be
// called before p.Run.
func (m Model) SetProgram(p *tea.Program) {
	m.program.p = p
	m.app.SetProgressCallback(func(current, total int) {
		if m.program.p != nil {
			m.program.p.Send(progressMsg{current: current, total: total})
		}
	})
}

// Summary returns the run's summary once the program has finished.
func (m Model) Summary() model.Summary {
	return m.summary.Summary
}

// Err returns the error that ended the run, if any.
func (m Model) Err() error {
	return m.err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.runApp)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case progressMsg:
		m.current, m.total = msg.current, msg.total
		return m, nil

	case summaryMsg:
		m.state = stateSummary
		m.summary = msg
		return m, tea.Quit

	case errorMsg:
		m.state = stateError
		m.err = msg.err
		return m, tea.Quit

	default:
		var cmd tea.Cmd
		if m.state == stateProcessing {
			m.spinner, cmd = m.spinner.Update(msg)
		}
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	switch m.state {
	case stateProcessing:
		if m.total == 0 {
			return fmt.Sprintf("%s Scanning...", m.spinner.View())
		}
		percent := float64(m.current) / float64(m.total)
		return fmt.Sprintf("%s Rewriting %s %d/%d", m.spinner.View(), m.progress.ViewAs(percent), m.current, m.total)
	case stateError:
		return errorStyle.Render("Error: "+m.err.Error()) + "\n"
	case stateSummary:
		return m.renderSummary()
	default:
		return ""
	}
}

func (m *Model) renderSummary() string {
	var b strings.Builder

	if m.summary.Message != "" {
		b.WriteString(headerStyle.Render(m.summary.Message))
		b.WriteString("\n\n")
	}

	hasContent := false
	if len(m.summary.Modified) > 0 {
		hasContent = true
		label := "Modified:"
		if m.summary.DryRun {
			label = "Would modify:"
		}
		b.WriteString(successStyle.Render(label))
		b.WriteString("\n")
		for _, f := range m.summary.Modified {
			b.WriteString(fmt.Sprintf("  %s\n", pathStyle.Render(f)))
		}
	}
	if len(m.summary.Failed) > 0 {
		hasContent = true
		b.WriteString(errorStyle.Render("Failed:"))
		b.WriteString("\n")
		for _, f := range m.summary.Failed {
			b.WriteString(fmt.Sprintf("  %s %s\n", pathStyle.Render(f.Path), faintStyle.Render(fmt.Sprintf("(%s: %s)", f.Kind, f.Message))))
		}
	}
	if m.summary.Unterminated > 0 {
		b.WriteString(warnStyle.Render(fmt.Sprintf("Skipped %d unterminated call(s).", m.summary.Unterminated)))
		b.WriteString("\n")
	}

	if !hasContent && m.summary.Message == "" {
		b.WriteString(faintStyle.Render("Nothing to do."))
		b.WriteString("\n")
	}

	return b.String()
}

func (m *Model) runApp() tea.Msg {
	summary, err := m.app.Execute()
	if err != nil {
		var detailed *suitefix.DetailedError
		if errors.As(err, &detailed) {
			// The TUI will exit, so we can print to stderr here for the stack trace.
			fmt.Fprintf(os.Stderr, "\n--- Stack Trace ---\n%s\n", detailed.Stack)
		}
		return errorMsg{err}
	}
	return summaryMsg{
		Summary: summary,
	}
}
