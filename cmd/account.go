package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bnema/pairchat/internal/application"
	"github.com/bnema/pairchat/internal/domain"
	"github.com/spf13/cobra"
)

func newAccountCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage accounts",
	}

	cmd.AddCommand(
		newAccountListCmd(app),
		newAccountShowCmd(app),
		newAccountNameCmd(app),
		newAccountMemoryCmd(app),
		newAccountLimitCmd(app),
		newAccountFactCmd(app),
	)

	return cmd
}

func newAccountListCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			accounts, err := app.accounts.ListAccounts(cmd.Context())
			if err != nil {
				return err
			}

			for _, account := range accounts {
				memory := "off"
				if account.Settings.MemoryEnabled {
					memory = "on"
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\tmemory=%s\tfacts=%d\n", account.ID, account.Name, memory, len(account.ProfileFacts))
			}

			return nil
		},
	}
}

func newAccountShowCmd(app *app) *cobra.Command {
	var accountID string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show an account's settings and profile facts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			account, err := app.accounts.GetAccount(cmd.Context(), domain.AccountID(accountID))
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, account)
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "%s (%s)\n", account.Name, account.ID)
			_, _ = fmt.Fprintf(out, "memory: %t\n", account.Settings.MemoryEnabled)
			if account.Settings.LimitOverride != nil {
				_, _ = fmt.Fprintf(out, "limit override: %d\n", *account.Settings.LimitOverride)
			} else {
				_, _ = fmt.Fprintln(out, "limit override: none")
			}
			_, _ = fmt.Fprintf(out, "turns: %d\n", account.LastTurnID)
			for _, fact := range account.ProfileFacts {
				_, _ = fmt.Fprintf(out, "#%d\t%s\t%s: %s\t(%s)\n", fact.Seq, fact.Kind, fact.Key, fact.Value, fact.Source)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "Account ID")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}

func newAccountNameCmd(app *app) *cobra.Command {
	var accountID string

	cmd := &cobra.Command{
		Use:   "name <display name>",
		Short: "Set an account's display name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(args[0])
			if name == "" {
				return errors.New("name must not be empty")
			}
			return app.accounts.SetAccountName(cmd.Context(), domain.AccountID(accountID), name)
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "Account ID")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}

func newAccountMemoryCmd(app *app) *cobra.Command {
	var accountID string

	cmd := &cobra.Command{
		Use:       "memory on|off",
		Short:     "Enable or disable long-term memory for an account",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var enabled bool
			switch strings.ToLower(args[0]) {
			case "on":
				enabled = true
			case "off":
				enabled = false
			default:
				return fmt.Errorf("memory: expected on or off, got %q", args[0])
			}

			if err := app.accounts.SetMemoryEnabled(cmd.Context(), domain.AccountID(accountID), enabled); err != nil {
				return err
			}

			_, err := fmt.Fprintf(cmd.OutOrStdout(), "account %s: memory %s\n", accountID, strings.ToLower(args[0]))
			return err
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "Account ID")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}

func newAccountLimitCmd(app *app) *cobra.Command {
	var accountID string
	var tokens int64
	var clear bool

	cmd := &cobra.Command{
		Use:   "limit",
		Short: "Override or clear an account's token limit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var limit *int64
			if !clear {
				if !cmd.Flags().Changed("tokens") {
					return errors.New("either --tokens or --clear is required")
				}
				limit = &tokens
			}

			if err := app.accounts.SetLimitOverride(cmd.Context(), domain.AccountID(accountID), limit); err != nil {
				return err
			}

			status, err := app.usage.GetStatus(cmd.Context(), domain.AccountID(accountID))
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "account %s: limit %d for period %s\n", accountID, status.Record.Limit, status.Record.PeriodKey)
			return err
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "Account ID")
	cmd.Flags().Int64Var(&tokens, "tokens", 0, "Token limit per period")
	cmd.Flags().BoolVar(&clear, "clear", false, "Fall back to the configured default limit")
	cmd.MarkFlagsMutuallyExclusive("tokens", "clear")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}

func newAccountFactCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fact",
		Short: "Manage structured profile facts",
	}

	cmd.AddCommand(
		newAccountFactAddCmd(app),
		newAccountFactRemoveCmd(app),
	)

	return cmd
}

func newAccountFactAddCmd(app *app) *cobra.Command {
	var accountID string
	var kind string
	var key string
	var value string
	var source string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Append a preference, trait or memory fact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			account, err := app.accounts.AppendProfileFacts(cmd.Context(), domain.AccountID(accountID), []application.FactInput{{
				Kind:   domain.FactKind(strings.ToLower(strings.TrimSpace(kind))),
				Key:    key,
				Value:  value,
				Source: domain.FactSource(strings.ToLower(strings.TrimSpace(source))),
			}})
			if err != nil {
				return err
			}

			added := account.ProfileFacts[len(account.ProfileFacts)-1]
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "account %s: added fact #%d\n", account.ID, added.Seq)
			return err
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "Account ID")
	cmd.Flags().StringVar(&kind, "kind", "", "Fact kind: preference, trait or memory")
	cmd.Flags().StringVar(&key, "key", "", "Fact key")
	cmd.Flags().StringVar(&value, "value", "", "Fact value")
	cmd.Flags().StringVar(&source, "source", "", "Fact source: quiz or observation")
	for _, name := range []string{"account", "kind", "key", "value"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func newAccountFactRemoveCmd(app *app) *cobra.Command {
	var accountID string
	var seq int

	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove a profile fact by its number",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.accounts.RemoveProfileFact(cmd.Context(), domain.AccountID(accountID), seq)
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "Account ID")
	cmd.Flags().IntVar(&seq, "seq", 0, "Fact number")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("seq")

	return cmd
}
