package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	yamlcatalog "github.com/bnema/pairchat/internal/adapters/catalog/yaml"
	"github.com/bnema/pairchat/internal/domain"
	"github.com/spf13/cobra"
)

func newLayersCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "layers",
		Short: "Inspect the prompt layer catalog",
	}

	cmd.AddCommand(
		newLayersListCmd(app),
		newLayersPreviewCmd(app),
		newLayersExportCmd(app),
	)

	return cmd
}

func newLayersListCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered layers in composition order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tKIND\tPRECEDENCE\tREDACTS")
			for _, layer := range app.registry.All() {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", layer.ID, layer.Kind, layer.Precedence, categoryList(layer.RedactionPolicy()))
			}
			return w.Flush()
		},
	}
}

func newLayersPreviewCmd(app *app) *cobra.Command {
	var accountID string
	var insight bool

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Print the prompt the account's next turn would be given",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			prompt, err := app.chat.Preview(cmd.Context(), domain.AccountID(accountID), insight)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "layers: %s\n", strings.Join(prompt.LayerIDs, ", "))
			_, err = fmt.Fprintln(cmd.OutOrStdout(), prompt.Text)
			return err
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "Account ID")
	cmd.Flags().BoolVar(&insight, "insight", false, "Compose as if the user asked for an insight")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}

func newLayersExportCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Write the registered layers as a YAML catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := yamlcatalog.Encode(app.registry.All())
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func categoryList(categories []domain.RedactionCategory) string {
	names := make([]string, 0, len(categories))
	for _, category := range categories {
		names = append(names, string(category))
	}
	return strings.Join(names, ",")
}
