package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newReconcileCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Review usage that could not be recorded",
	}

	cmd.AddCommand(
		newReconcileListCmd(app),
		newReconcileResolveCmd(app),
	)

	return cmd
}

func newReconcileListCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List unresolved reconciliation entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			entries, err := app.usage.PendingReconciliation(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, entries)
			}

			if len(entries) == 0 {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "nothing to reconcile")
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tACCOUNT\tPERIOD\tTOKENS\tTURN\tREASON\tCREATED")
			for _, entry := range entries {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
					entry.ID, entry.AccountID, entry.PeriodKey, entry.Tokens, entry.TurnID, entry.Reason, entry.CreatedAt.Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}

func newReconcileResolveCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <id>",
		Short: "Mark a reconciliation entry as handled",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.usage.ResolveReconciliation(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "resolved %s\n", args[0])
			return err
		},
	}
}
