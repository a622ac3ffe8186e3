package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/bnema/pairchat/internal/domain"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type turnDoneMsg struct {
	result domain.TurnResult
	err    error
}

type turnSpinnerModel struct {
	spinner spinner.Model
	label   string
	send    tea.Cmd
	result  domain.TurnResult
	err     error
	done    bool
}

func newTurnSpinnerModel(label string, send tea.Cmd) turnSpinnerModel {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
	)

	return turnSpinnerModel{
		spinner: s,
		label:   label,
		send:    send,
	}
}

func (m turnSpinnerModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.send)
}

func (m turnSpinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case turnDoneMsg:
		m.done = true
		m.result = msg.result
		m.err = msg.err
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m turnSpinnerModel) View() string {
	if m.done {
		return ""
	}

	return fmt.Sprintf("%s %s", m.spinner.View(), m.label)
}

// runTurnSpinner shows a spinner on output while send runs.
func runTurnSpinner(ctx context.Context, output io.Writer, send func(context.Context) (domain.TurnResult, error)) (domain.TurnResult, error) {
	sendCmd := func() tea.Msg {
		result, err := send(ctx)
		return turnDoneMsg{result: result, err: err}
	}

	p := tea.NewProgram(
		newTurnSpinnerModel("Thinking...", sendCmd),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	finalModel, err := p.Run()
	if err != nil {
		return domain.TurnResult{}, err
	}

	result, ok := finalModel.(turnSpinnerModel)
	if !ok {
		return domain.TurnResult{}, fmt.Errorf("unexpected final spinner model type %T", finalModel)
	}

	return result.result, result.err
}
