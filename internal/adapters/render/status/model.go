package status

import (
	"errors"
	"fmt"
	"io"

	"github.com/bnema/pairchat/internal/application"
	"github.com/bnema/pairchat/internal/domain"
	tea "github.com/charmbracelet/bubbletea"
)

var ErrUnexpectedRenderModel = errors.New("unexpected final bubbletea model type")

// Report is the data shown by the usage view.
type Report struct {
	Statuses []application.UsageStatus
	// Pending holds reconciliation entries; resolved ones are ignored.
	Pending []domain.ReconciliationEntry
}

// backlog is the unresolved reconciliation work, overall and per account.
type backlog struct {
	entries int
	tokens  map[domain.AccountID]int64
}

func newBacklog(entries []domain.ReconciliationEntry) backlog {
	b := backlog{tokens: map[domain.AccountID]int64{}}
	for _, entry := range entries {
		if entry.Resolved() {
			continue
		}
		b.entries++
		b.tokens[entry.AccountID] += entry.Tokens
	}
	return b
}

type backlogReadyMsg backlog

type reportModel struct {
	report  Report
	opts    RenderOptions
	styles  styles
	backlog backlog
	output  string
}

func (m reportModel) Init() tea.Cmd {
	pending := m.report.Pending
	return func() tea.Msg {
		return backlogReadyMsg(newBacklog(pending))
	}
}

func (m reportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	ready, ok := msg.(backlogReadyMsg)
	if !ok {
		return m, nil
	}

	m.backlog = backlog(ready)
	m.output = renderView(m.report.Statuses, m.backlog, m.opts, m.styles)
	return m, tea.Quit
}

func (m reportModel) View() string {
	return m.output
}

// Render draws the usage report once and returns it as a string.
func Render(report Report, opts RenderOptions) (string, error) {
	p := tea.NewProgram(
		reportModel{report: report, opts: opts, styles: newStyles()},
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
	)

	final, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("run report program: %w", err)
	}

	rendered, ok := final.(reportModel)
	if !ok {
		return "", ErrUnexpectedRenderModel
	}

	return rendered.View(), nil
}
