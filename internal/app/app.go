// Package app is the composition root of fundybot. It wires the exchange
// adapters, scanners and services, connects optional infrastructure and runs
// the goroutines of the configured mode.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/alanyoungcy/fundybot/internal/config"
)

// App owns the configuration, the logger and the cleanup functions run in
// reverse order on Close.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	base    *slog.Logger
	closers []func()
}

// New creates an App.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
		base:   logger,
	}
}

// Run wires the dependencies and blocks in the configured mode until ctx is
// cancelled or a component fails.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("mode", a.cfg.Mode),
		slog.String("log_level", a.cfg.LogLevel),
		slog.Any("sources", enabledNames(a.cfg)),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.base)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	switch strings.ToLower(a.cfg.Mode) {
	case "server":
		return a.ServerMode(ctx, deps)
	case "notifier":
		return a.NotifierMode(ctx, deps)
	case "full":
		return a.FullMode(ctx, deps)
	default:
		return fmt.Errorf("app: unsupported mode %q", a.cfg.Mode)
	}
}

// Close releases resources in reverse registration order. Later calls are
// no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func enabledNames(cfg *config.Config) []string {
	var out []string
	for name, ex := range cfg.Exchanges {
		if ex.IsEnabled() {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}
