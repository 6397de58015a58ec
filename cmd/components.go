// File: cmd/components.go
package cmd

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pathfinder-autofill/api/schemas"
	"github.com/xkilldash9x/pathfinder-autofill/internal/analyzer"
	"github.com/xkilldash9x/pathfinder-autofill/internal/auth"
	"github.com/xkilldash9x/pathfinder-autofill/internal/autofill"
	"github.com/xkilldash9x/pathfinder-autofill/internal/batch"
	"github.com/xkilldash9x/pathfinder-autofill/internal/browser"
	"github.com/xkilldash9x/pathfinder-autofill/internal/cache"
	"github.com/xkilldash9x/pathfinder-autofill/internal/config"
	"github.com/xkilldash9x/pathfinder-autofill/internal/extractor"
	"github.com/xkilldash9x/pathfinder-autofill/internal/network"
	"github.com/xkilldash9x/pathfinder-autofill/internal/store"
)

const shutdownTimeout = 15 * time.Second

type siteAnalyzer interface {
	Run(ctx context.Context, page schemas.Page) (analyzer.Snapshot, error)
}

type historyRecorder interface {
	RecordBatch(ctx context.Context, run store.Run) (string, error)
}

// componentOptions selects what a command needs.
type componentOptions struct {
	// RunConfigPath is the run configuration (credentials and default values).
	RunConfigPath string
	// Browser launches a browser and opens the session every component shares.
	// Without it extraction uses the static backend only.
	Browser bool
	// History opens the batch history store when database.url is set.
	History bool
}

// components holds the initialized services of one command run.
type components struct {
	Page      schemas.Page
	Auth      batch.Authenticator
	Extractor batch.Extractor
	Filler    batch.Filler
	Analyzer  siteAnalyzer
	// History is nil when no database is configured.
	History   historyRecorder
	RunConfig config.RunConfig

	manager   *browser.Manager
	session   *browser.Session
	closePool func()
	logger    *zap.Logger
}

// Shutdown releases the session, the browser and the database pool. It still
// runs when ctx was canceled by a signal.
func (c *components) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(browser.Detach(ctx), shutdownTimeout)
	defer cancel()

	if c.session != nil {
		if err := c.session.Close(ctx); err != nil {
			c.logger.Warn("Error closing browser session", zap.Error(err))
		}
	}
	if c.manager != nil {
		if err := c.manager.Shutdown(ctx); err != nil {
			c.logger.Warn("Error during browser manager shutdown", zap.Error(err))
		}
	}
	if c.closePool != nil {
		c.closePool()
	}
}

// initializeComponents is replaced in tests.
var initializeComponents = newComponents

// newComponents handles dependency injection. On error the partially built
// components are already shut down.
func newComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts componentOptions) (*components, error) {
	c := &components{logger: logger}

	if opts.RunConfigPath != "" {
		runCfg, created, err := config.LoadRunConfig(opts.RunConfigPath)
		if err != nil {
			return nil, err
		}
		if created {
			logger.Warn("Run configuration not found; wrote an example template.",
				zap.String("path", opts.RunConfigPath),
				zap.String("example", config.ExamplePath(opts.RunConfigPath)))
		}
		c.RunConfig = runCfg
	}

	client := network.NewClient(cfg.Network(), logger)
	cacheStore := cache.NewStore(logger)

	if opts.Browser {
		manager, err := browser.NewManager(ctx, cfg.Browser(), logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize browser manager: %w", err)
		}
		c.manager = manager

		session, err := manager.NewSession(ctx)
		if err != nil {
			c.Shutdown(ctx)
			return nil, fmt.Errorf("failed to open browser session: %w", err)
		}
		c.session = session
		c.Page = session
	}

	envCreds := config.LoadEnvCredentials(cfg.Paths().DotEnv)
	tokens := cache.NewTokenCache(cacheStore, cfg.Paths().TokenCache)
	resolver := auth.NewResolver(cfg.Site(), tokens, envCreds, c.RunConfig.Credentials, logger)
	c.Auth = resolver

	// The pipeline treats a nil page as "static only"; a typed nil must not reach it.
	var page schemas.Page
	if c.session != nil {
		page = c.session
	}
	c.Extractor = extractor.NewPipeline(cfg.Extraction(), page, client, logger)
	c.Filler = autofill.NewOrchestrator(cfg.Site(), resolver, client, logger)
	c.Analyzer = analyzer.New(cfg.Site(), cfg.Analysis(), cache.NewSnapshotStore(cacheStore, cfg.Paths().AnalysisSnapshot), logger)

	if opts.History && cfg.Database().URL != "" {
		history, closePool, err := store.Open(ctx, cfg.Database().URL, logger)
		if err != nil {
			// History is optional; the batch itself still runs.
			logger.Warn("Batch history disabled: database unavailable.", zap.Error(err))
		} else {
			c.History = history
			c.closePool = closePool
		}
	}
	return c, nil
}
