package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	yamlcatalog "github.com/bnema/pairchat/internal/adapters/catalog/yaml"
	"github.com/bnema/pairchat/internal/adapters/httpapi"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(app *app) *cobra.Command {
	var listen string
	var watch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve turns, usage and metrics over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runServe(ctx, app, listen, watch || app.config.Catalog.Watch)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", app.config.Server.Listen, "Address to listen on")
	cmd.Flags().BoolVar(&watch, "watch", false, "Reload the layer catalog file when it changes")

	return cmd
}

func runServe(ctx context.Context, app *app, listen string, watch bool) error {
	g, ctx := errgroup.WithContext(ctx)

	if watch {
		if app.catalog == nil {
			return fmt.Errorf("catalog watch requires %s to be set", "catalog.path")
		}
		watcher := yamlcatalog.NewWatcher(app.catalog, app.registry, app.logger.Named("catalog"))
		if err := watcher.Start(ctx); err != nil {
			return fmt.Errorf("start catalog watcher: %w", err)
		}
		g.Go(func() error {
			<-ctx.Done()
			return watcher.Stop()
		})
	}

	server := httpapi.NewServer(app.chat, app.usage, app.metrics.Handler(), app.logger.Named("http"))
	g.Go(func() error {
		return server.ListenAndServe(ctx, listen)
	})

	app.logger.Info("serving",
		zap.String("listen", listen),
		zap.Int("layers", app.registry.Len()),
		zap.String("period", string(app.config.Quota.Period)),
		zap.Int64("default_limit", app.config.Quota.DefaultLimit),
	)

	return g.Wait()
}
