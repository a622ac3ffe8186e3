package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/bnema/pairchat/internal/application"
	"github.com/bnema/pairchat/internal/domain"
	"github.com/spf13/cobra"
)

func newUsageCmd(app *app) *cobra.Command {
	var accountID string
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "usage",
		Aliases: []string{"status"},
		Short:   "Display token usage for the current period",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			statuses, err := loadStatuses(cmd, app.usage, accountID)
			if err != nil {
				return err
			}
			return writeStatusesOutput(cmd, app, statuses, asJSON)
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "Account ID (default: all accounts)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	cmd.AddCommand(
		newUsageHistoryCmd(app),
		newUsageResetCmd(app),
	)

	return cmd
}

func newUsageHistoryCmd(app *app) *cobra.Command {
	var accountID string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List every retained usage period for an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			records, err := app.usage.History(cmd.Context(), domain.AccountID(accountID))
			if err != nil {
				return err
			}

			if asJSON {
				out := make([]usageStatusOutput, 0, len(records))
				for _, record := range records {
					out = append(out, usageStatusOutput{
						AccountID:   record.AccountID,
						Period:      record.PeriodKey,
						Consumed:    record.TokensConsumed,
						Limit:       record.Limit,
						Remaining:   record.Remaining(),
						PercentUsed: record.PercentUsed(),
						Exhausted:   record.TokensConsumed >= record.Limit,
					})
				}
				return writeJSON(cmd, out)
			}

			if len(records) == 0 {
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "no usage recorded for account %s\n", accountID)
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "PERIOD\tCONSUMED\tLIMIT\tUPDATED")
			for _, record := range records {
				_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", record.PeriodKey, record.TokensConsumed, record.Limit, record.UpdatedAt.Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "Account ID")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}

func newUsageResetCmd(app *app) *cobra.Command {
	var accountID string
	var periodKey string

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Open a new usage period for an account; older periods are kept",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			record, err := app.usage.ResetPeriod(cmd.Context(), application.ResetPeriodCommand{
				ID:        domain.AccountID(accountID),
				PeriodKey: periodKey,
			})
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "account %s: period %s opened with limit %d\n", record.AccountID, record.PeriodKey, record.Limit)
			return err
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "Account ID")
	cmd.Flags().StringVar(&periodKey, "period", "", "New period key")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("period")

	return cmd
}
