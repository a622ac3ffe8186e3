package status

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bnema/pairchat/internal/application"
	"github.com/bnema/pairchat/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

type RenderOptions struct {
	Now    time.Time
	Window domain.Window
}

func renderView(statuses []application.UsageStatus, pending backlog, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("Pairchat Token Usage"),
		s.header.Render(fmt.Sprintf("accounts: %d", len(statuses))),
	}

	if pending.entries > 0 {
		lines = append(lines, s.warning.Render(fmt.Sprintf("%d usage entries awaiting reconciliation", pending.entries)))
	}

	if len(statuses) == 0 {
		lines = append(lines, s.empty.Render("No account usage recorded."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, status := range statuses {
		lines = append(lines, s.section.Render(renderAccount(status, pending.tokens[status.Account.ID], opts, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderAccount(status application.UsageStatus, unreconciled int64, opts RenderOptions, s styles) string {
	parts := []string{
		s.account.Render(accountTitle(status.Account)),
		limitLine(status.Record, opts, s),
		s.detail.Render(usageLine(status.Record)),
	}

	if unreconciled > 0 {
		parts = append(parts, s.warning.Render(fmt.Sprintf("unreconciled: %d tokens not yet in the ledger", unreconciled)))
	}

	if status.Exhausted() {
		parts = append(parts, s.warning.Render("[quota exhausted]"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func limitLine(record domain.UsageRecord, opts RenderOptions, s styles) string {
	used := record.PercentUsed()
	leftPercent := clampPercent(100 - used)
	bar := renderProgressBar(used, 24, s)
	label := s.limitKey.Render(fmt.Sprintf("%s limit:", periodLabel(record.PeriodKey, opts.Window)))
	percentStyle := lipgloss.NewStyle().Foreground(interpolateColor(leftPercent, 0, 100))
	meta := percentStyle.Render(fmt.Sprintf("%2.0f%% left", leftPercent))

	parts := []string{label, " ", bar, " ", meta}
	if !opts.Now.IsZero() && opts.Window.Valid() {
		parts = append(parts, " ", s.detail.Render(fmt.Sprintf("(%s)", formatResetRelative(opts.Window.NextBoundary(opts.Now), opts.Now))))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func usageLine(record domain.UsageRecord) string {
	return fmt.Sprintf("usage: %s / %s tokens (%d remaining)", record.ConsumedCompact(), record.LimitCompact(), record.Remaining())
}

func periodLabel(periodKey string, window domain.Window) string {
	label := strings.TrimSpace(periodKey)
	if label == "" {
		label = "period"
	}
	if window.Valid() {
		return fmt.Sprintf("%s %s", window.Label(), label)
	}
	return label
}

func renderProgressBar(usedPercent float64, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	used := clampPercent(usedPercent)
	leftFraction := (100.0 - used) / 100.0
	filled := int(math.Round(float64(width) * leftFraction))
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}

	empty := width - filled
	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.barFill.Render(strings.Repeat("=", filled)),
		s.barEmpty.Render(strings.Repeat("-", empty)),
		s.barBracket.Render("]"),
	)
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func formatResetRelative(resetsAt, now time.Time) string {
	if !resetsAt.After(now) {
		return "resets now"
	}

	remaining := resetsAt.Sub(now)
	if remaining < 24*time.Hour {
		hours := int(math.Ceil(remaining.Hours()))
		if hours < 1 {
			hours = 1
		}
		suffix := "hours"
		if hours == 1 {
			suffix = "hour"
		}
		return fmt.Sprintf("resets in %d %s (%s UTC)", hours, suffix, resetsAt.Format("15:04"))
	}

	days := int(math.Ceil(remaining.Hours() / 24))
	suffix := "days"
	if days == 1 {
		suffix = "day"
	}

	return fmt.Sprintf("resets in %d %s (%s)", days, suffix, resetsAt.Format("02 Jan"))
}

func accountTitle(account domain.Account) string {
	name := strings.TrimSpace(account.Name)
	if name == "" || name == fmt.Sprintf("Account %s", account.ID) {
		return fmt.Sprintf("Account %s", account.ID)
	}
	return fmt.Sprintf("%s (%s)", name, account.ID)
}

func interpolateColor(value, min, max float64) lipgloss.Color {
	if max == min {
		return lipgloss.Color("255")
	}

	normalized := (value - min) / (max - min)
	if normalized < 0 {
		normalized = 0
	}
	if normalized > 1 {
		normalized = 1
	}

	// ANSI 256 greyscale ramp, 240 faded to 255 bright.
	colorCode := int(240.0 + 15.0*normalized)
	return lipgloss.Color(fmt.Sprintf("%d", colorCode))
}
