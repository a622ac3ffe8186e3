package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	yamlcatalog "github.com/bnema/pairchat/internal/adapters/catalog/yaml"
	sqliteledger "github.com/bnema/pairchat/internal/adapters/ledger/sqlite"
	promobserver "github.com/bnema/pairchat/internal/adapters/metrics/prometheus"
	openaimodel "github.com/bnema/pairchat/internal/adapters/model/openai"
	statusadapter "github.com/bnema/pairchat/internal/adapters/render/status"
	tomlrepo "github.com/bnema/pairchat/internal/adapters/repo/toml"
	"github.com/bnema/pairchat/internal/application"
	"github.com/bnema/pairchat/internal/config"
	"github.com/bnema/pairchat/internal/layers"
	"github.com/bnema/pairchat/internal/logging"
	"github.com/bnema/pairchat/internal/ports"
	"github.com/bnema/pairchat/internal/redact"
	"go.uber.org/zap"
)

const configFileEnv = "PAIRCHAT_CONFIG"

type app struct {
	config         config.Config
	logger         *zap.Logger
	accounts       *application.AccountService
	usage          *application.UsageService
	chat           *application.ChatService
	registry       *layers.Registry
	catalog        *yamlcatalog.Catalog
	metrics        *promobserver.Observer
	statusRenderer func(statusadapter.Report, statusadapter.RenderOptions) (string, error)
	now            func() time.Time

	closeOnce sync.Once
	closers   []func() error
}

func wireApp(ctx context.Context) (_ *app, err error) {
	v, err := config.Load(os.Getenv(configFileEnv))
	if err != nil {
		return nil, err
	}
	cfg, err := config.Decode(v)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.JSON)
	if err != nil {
		return nil, fmt.Errorf("wire logger: %w", err)
	}

	a := &app{
		config:         cfg,
		logger:         logger,
		statusRenderer: statusadapter.Render,
		now:            time.Now,
	}
	a.closers = append(a.closers, func() error {
		_ = logger.Sync()
		return nil
	})
	defer func() {
		if err != nil {
			err = errors.Join(err, a.Close())
		}
	}()

	repo, err := tomlrepo.NewRepository(v)
	if err != nil {
		return nil, fmt.Errorf("wire account repository: %w", err)
	}

	clock := ports.SystemClock{}
	limits := application.NewLimitResolver(repo, cfg.Quota.DefaultLimit)

	ledger, err := sqliteledger.Open(ctx, cfg.Ledger.Path, cfg.Quota.Period, limits, clock)
	if err != nil {
		return nil, fmt.Errorf("wire usage ledger: %w", err)
	}
	a.closers = append(a.closers, ledger.Close)
	queue := ledger.ReconciliationQueue()

	var catalog ports.LayerCatalog = layers.BuiltinCatalog{}
	if cfg.Catalog.Path != "" {
		a.catalog, err = yamlcatalog.NewCatalog(cfg.Catalog.Path)
		if err != nil {
			return nil, fmt.Errorf("wire layer catalog: %w", err)
		}
		catalog = a.catalog
	}

	loaded, err := catalog.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load layer catalog: %w", err)
	}
	a.registry, err = layers.NewRegistry(loaded...)
	if err != nil {
		return nil, fmt.Errorf("build layer registry: %w", err)
	}

	a.metrics, err = promobserver.NewObserver()
	if err != nil {
		return nil, fmt.Errorf("wire metrics: %w", err)
	}

	model, err := openaimodel.NewClient(openaimodel.Config{
		BaseURL: cfg.Model.BaseURL,
		APIKey:  cfg.Model.APIKey,
		Model:   cfg.Model.Name,
		Timeout: cfg.Model.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("wire model client: %w", err)
	}

	scanner := redact.NewScanner()
	composer := application.NewPromptComposer(application.NewActivationEvaluator(a.registry), scanner, layers.IdentityBlock)
	guard := application.NewQuotaGuard(ledger, queue, a.metrics, clock, logger.Named("quota"))
	orchestrator := application.NewTurnOrchestrator(guard, composer, model, a.metrics, logger.Named("turn"))

	a.accounts = application.NewAccountService(repo, ledger, limits, scanner, clock)
	a.usage = application.NewUsageService(ledger, repo, queue)
	a.chat = application.NewChatService(application.NewContextBuilder(repo), composer, orchestrator)

	return a, nil
}

// Close releases the ledger and flushes the logger. It is safe to call more
// than once.
func (a *app) Close() error {
	var err error
	a.closeOnce.Do(func() {
		errs := make([]error, 0, len(a.closers))
		for i := len(a.closers) - 1; i >= 0; i-- {
			errs = append(errs, a.closers[i]())
		}
		err = errors.Join(errs...)
	})
	return err
}
