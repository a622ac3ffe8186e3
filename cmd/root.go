package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "pairchat",
		Short:         "Pairchat: per-turn prompt layers and token quotas for a relationship coach",
		Long:          "pairchat composes the layered system prompt for each coaching turn, enforces per-account token quotas against a durable usage ledger, and serves turns over HTTP.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp(context.Background())
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		rootCmd.AddCommand(newVersionCmd())
		return rootCmd
	}

	rootCmd.PersistentPostRunE = func(_ *cobra.Command, _ []string) error {
		return app.Close()
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newServeCmd(app),
		newTurnCmd(app),
		newUsageCmd(app),
		newAccountCmd(app),
		newLayersCmd(app),
		newReconcileCmd(app),
	)

	return rootCmd
}
