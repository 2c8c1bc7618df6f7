// Package app provides the top-level application lifecycle management for
// the funding-rate arbitrage watcher. It wires together the market store,
// the feed collectors, the engine, and the optional recording backends,
// then supervises them until shutdown.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/harunobu-k/fundingarb/internal/config"
)

// App is the root application object. It owns the configuration, logger,
// and a list of cleanup functions that are called in reverse order on
// shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires all dependencies and starts one goroutine per feed collector
// plus the evaluation loop, blocking until the context is cancelled. The
// collectors self-heal and never return on their own; only cancellation
// (or a wiring failure) ends Run.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("mode", a.cfg.Mode),
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	g, gctx := errgroup.WithContext(ctx)
	for _, collector := range deps.Collectors {
		collector := collector
		g.Go(func() error {
			return collector.Run(gctx)
		})
	}
	g.Go(func() error {
		return deps.Coordinator.Run(gctx)
	})

	return g.Wait()
}

// Close tears down all resources in reverse registration order. It is
// safe to call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
