package cmd

import (
	"encoding/json"
	"fmt"

	statusadapter "github.com/bnema/pairchat/internal/adapters/render/status"
	"github.com/bnema/pairchat/internal/application"
	"github.com/bnema/pairchat/internal/domain"
	"github.com/spf13/cobra"
)

type usageStatusOutput struct {
	AccountID   domain.AccountID `json:"account_id"`
	Name        string           `json:"name,omitempty"`
	Period      string           `json:"period"`
	Consumed    int64            `json:"consumed"`
	Limit       int64            `json:"limit"`
	Remaining   int64            `json:"remaining"`
	PercentUsed float64          `json:"percent_used"`
	Exhausted   bool             `json:"exhausted"`
}

func writeStatusesOutput(cmd *cobra.Command, app *app, statuses []application.UsageStatus, asJSON bool) error {
	if asJSON {
		out := make([]usageStatusOutput, 0, len(statuses))
		for _, status := range statuses {
			out = append(out, usageStatusOutput{
				AccountID:   status.Account.ID,
				Name:        status.Account.Name,
				Period:      status.Record.PeriodKey,
				Consumed:    status.Record.TokensConsumed,
				Limit:       status.Record.Limit,
				Remaining:   status.Record.Remaining(),
				PercentUsed: status.Record.PercentUsed(),
				Exhausted:   status.Exhausted(),
			})
		}
		return writeJSON(cmd, out)
	}

	pending, err := app.usage.PendingReconciliation(cmd.Context())
	if err != nil {
		return err
	}

	rendered, err := app.statusRenderer(statusadapter.Report{Statuses: statuses, Pending: pending}, statusadapter.RenderOptions{
		Now:    app.now(),
		Window: app.config.Quota.Period,
	})
	if err != nil {
		return fmt.Errorf("render status: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}

func loadStatuses(cmd *cobra.Command, svc *application.UsageService, accountID string) ([]application.UsageStatus, error) {
	if accountID == "" {
		return svc.GetStatusAll(cmd.Context())
	}

	status, err := svc.GetStatus(cmd.Context(), domain.AccountID(accountID))
	if err != nil {
		return nil, err
	}

	return []application.UsageStatus{status}, nil
}

func writeJSON(cmd *cobra.Command, payload any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}
