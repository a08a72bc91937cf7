package service

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alanyoungcy/fundybot/internal/domain"
)

// EnabledSources lists the sources currently served.
type EnabledSources interface {
	Enabled() []domain.SourceID
}

// SnapshotConfig controls the funding snapshot refresh.
type SnapshotConfig struct {
	Refresh    time.Duration
	StaleAfter time.Duration
}

// FundingSnapshotCache keeps the latest funding rates of every enabled
// source, refreshed in the background.
type FundingSnapshotCache struct {
	scanner FundingScanner
	sources EnabledSources
	cfg     SnapshotConfig
	logger  *slog.Logger
	now     func() time.Time

	mu         sync.RWMutex
	rates      []domain.FundingRate
	at         time.Time
	refreshing atomic.Bool
}

// NewFundingSnapshotCache creates an empty cache. Call Run to start
// refreshing.
func NewFundingSnapshotCache(scanner FundingScanner, sources EnabledSources, cfg SnapshotConfig, logger *slog.Logger) *FundingSnapshotCache {
	if cfg.Refresh <= 0 {
		cfg.Refresh = 2 * time.Minute
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 5 * time.Minute
	}
	return &FundingSnapshotCache{
		scanner: scanner,
		sources: sources,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "funding_snapshot")),
		now:     time.Now,
	}
}

// Run refreshes every cfg.Refresh until ctx is cancelled. The first refresh
// starts immediately without blocking.
func (c *FundingSnapshotCache) Run(ctx context.Context) error {
	go c.refresh(ctx)

	ticker := time.NewTicker(c.cfg.Refresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.refresh(ctx)
		}
	}
}

// Rates returns the current snapshot and when it was taken. The zero time
// means no refresh has completed yet.
func (c *FundingSnapshotCache) Rates() ([]domain.FundingRate, time.Time) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rates, c.at
}

// Stale reports whether the snapshot is older than cfg.StaleAfter.
func (c *FundingSnapshotCache) Stale() bool {
	_, at := c.Rates()
	return c.now().Sub(at) > c.cfg.StaleAfter
}

// ForceRefresh refreshes synchronously within timeout. It returns at once
// when another refresh is already running.
func (c *FundingSnapshotCache) ForceRefresh(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if !c.refresh(ctx) {
		c.logger.DebugContext(ctx, "refresh already in progress")
	}
	return ctx.Err()
}

func (c *FundingSnapshotCache) refresh(ctx context.Context) bool {
	if !c.refreshing.CompareAndSwap(false, true) {
		return false
	}
	defer c.refreshing.Store(false)

	start := c.now()
	rates := c.scanner.Funding(ctx, c.sources.Enabled())
	if ctx.Err() != nil {
		return true
	}

	c.mu.Lock()
	c.rates = rates
	c.at = c.now()
	c.mu.Unlock()

	c.logger.DebugContext(ctx, "funding snapshot refreshed",
		slog.Int("rates", len(rates)),
		slog.Duration("elapsed", c.now().Sub(start)),
	)
	return true
}
