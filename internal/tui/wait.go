// Package tui provides the interactive pieces of circli: a spinner for long
// waits and huh prompts.
package tui

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// statusMsg replaces the text next to the spinner.
type statusMsg string

// doneMsg ends the wait.
type doneMsg struct{ err error }

// WaitModel shows a spinner and the latest status line until the work it
// tracks finishes.
type WaitModel struct {
	Title  string
	Status string

	// Done is set once the work finished; Err is its result.
	Done bool
	Err  error
	// Interrupted is set when the user pressed ctrl+c.
	Interrupted bool

	spinner     spinner.Model
	titleStyle  lipgloss.Style
	statusStyle lipgloss.Style
}

// NewWaitModel creates a wait model with the given title.
func NewWaitModel(title string) WaitModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))

	return WaitModel{
		Title:       title,
		spinner:     s,
		titleStyle:  lipgloss.NewStyle().Bold(true),
		statusStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("242")),
	}
}

// Init implements tea.Model.
func (m WaitModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m WaitModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.Interrupted = true
			return m, tea.Quit
		}
	case statusMsg:
		m.Status = string(msg)
	case doneMsg:
		m.Done = true
		m.Err = msg.err
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m WaitModel) View() string {
	if m.Done {
		return ""
	}
	var b strings.Builder
	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(m.titleStyle.Render(m.Title))
	if m.Status != "" {
		b.WriteString(" ")
		b.WriteString(m.statusStyle.Render(m.Status))
	}
	b.WriteString("\n")
	return b.String()
}

// ErrInterrupted is returned by Wait when the user pressed ctrl+c.
var ErrInterrupted = errors.New("interrupted")

// Wait runs work behind a spinner written to out. work reports progress
// through its update callback. Pressing ctrl+c cancels the context work
// receives.
func Wait(ctx context.Context, out io.Writer, title string, work func(ctx context.Context, update func(string)) error) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	p := tea.NewProgram(NewWaitModel(title),
		tea.WithContext(ctx),
		tea.WithOutput(out),
		tea.WithInput(nil),
	)

	go func() {
		err := work(ctx, func(s string) { p.Send(statusMsg(s)) })
		p.Send(doneMsg{err: err})
	}()

	final, err := p.Run()
	if m, ok := final.(WaitModel); ok {
		if m.Interrupted {
			cancel(ErrInterrupted)
			return ErrInterrupted
		}
		if m.Done {
			return m.Err
		}
	}
	if err != nil && errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return context.Cause(ctx)
	}
	return err
}
