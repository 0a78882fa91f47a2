// Package app provides the top-level lifecycle of the polyscop engine. It
// wires stores, caches, blob storage and notifications, then runs the
// selected mode until the context is cancelled.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/emmatheo/polyscop/internal/config"
)

// Operating modes.
const (
	ModeServe  = "serve"
	ModeIngest = "ingest"
	ModeAll    = "all"
	ModeWatch  = "watch"
)

// App is the root application object. It owns the configuration, logger, and a
// list of cleanup functions that are called in reverse order on shutdown.
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

// Run wires the dependencies the mode needs and blocks until ctx is
// cancelled or a component fails. An empty mode falls back to the configured
// one.
func (a *App) Run(ctx context.Context, mode string) error {
	if mode == "" {
		mode = a.cfg.Mode
	}
	mode = strings.ToLower(mode)
	a.logger.InfoContext(ctx, "starting application",
		slog.String("mode", mode),
		slog.String("log_level", a.cfg.LogLevel),
	)

	if mode == ModeWatch {
		return a.WatchMode(ctx)
	}

	deps, cleanup, err := Wire(ctx, a.cfg, mode, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	switch mode {
	case ModeServe:
		return a.ServeMode(ctx, deps)
	case ModeIngest:
		return a.IngestMode(ctx, deps)
	case ModeAll:
		return a.AllMode(ctx, deps)
	default:
		return fmt.Errorf("app: unsupported mode %q", mode)
	}
}

// Backfill re-inserts archived trades for the UTC days between from and to.
func (a *App) Backfill(ctx context.Context, from, to time.Time) (int64, error) {
	deps, cleanup, err := Wire(ctx, a.cfg, ModeIngest, a.logger)
	if err != nil {
		return 0, fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)
	return a.backfill(ctx, deps, from, to)
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
