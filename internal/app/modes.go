package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/fundybot/internal/alert"
	"github.com/alanyoungcy/fundybot/internal/cache/redis"
	"github.com/alanyoungcy/fundybot/internal/domain"
	"github.com/alanyoungcy/fundybot/internal/feed"
	"github.com/alanyoungcy/fundybot/internal/server"
	"github.com/alanyoungcy/fundybot/internal/server/handler"
	"github.com/alanyoungcy/fundybot/internal/server/middleware"
	"github.com/alanyoungcy/fundybot/internal/server/ws"
	"github.com/alanyoungcy/fundybot/internal/service"
)

const shutdownTimeout = 10 * time.Second

// ServerMode runs the HTTP API with the websocket feed.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")
	g, ctx := errgroup.WithContext(ctx)
	a.startServer(ctx, g, deps)
	return g.Wait()
}

// NotifierMode runs the funding snapshot cache and the alert loop.
func (a *App) NotifierMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting notifier mode")
	g, ctx := errgroup.WithContext(ctx)
	if err := a.startNotifier(ctx, g, deps); err != nil {
		return err
	}
	return g.Wait()
}

// FullMode runs the API and, when enabled, the alert loop.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")
	g, ctx := errgroup.WithContext(ctx)
	if a.cfg.Server.Enabled {
		a.startServer(ctx, g, deps)
	}
	if a.cfg.Alert.Enabled {
		if err := a.startNotifier(ctx, g, deps); err != nil {
			return err
		}
	}
	return g.Wait()
}

func (a *App) startServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	var hub *ws.Hub
	if a.cfg.Feed.Enabled {
		hub = ws.NewHub(deps.SignalBus, a.base, ws.Config{Mode: a.cfg.Mode, StartedAt: time.Now().UTC()})
		g.Go(func() error {
			if err := hub.Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		})

		pub := feed.NewPublisher(deps.Arb, deps.Funding, deps.SignalBus, feed.Config{
			Interval:         a.cfg.Feed.Interval.Duration,
			ArbitrageLimit:   a.cfg.Feed.ArbitrageLimit,
			FundingLimit:     a.cfg.Feed.FundingLimit,
			MinFundingSpread: a.cfg.Feed.MinFundingSpread,
			MinPriceSpread:   a.cfg.Feed.MinPriceSpread,
			MinRate:          a.cfg.Feed.MinRate,
		}, a.base)
		g.Go(func() error { return pub.Run(ctx) })
	}

	var limiter domain.RateLimiter = deps.RateLimiter
	if limiter == nil {
		limiter = middleware.NewLocalLimiter()
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
	}, server.Handlers{
		Health:      handler.NewHealthHandler(deps.HealthChecks, a.base),
		Markets:     handler.NewMarketHandler(deps.Markets, a.base),
		Funding:     handler.NewFundingHandler(deps.Funding, a.base),
		Arb:         handler.NewArbHandler(deps.Arb, a.base),
		Universe:    handler.NewUniverseHandler(deps.Universe, a.base),
		Subscribers: handler.NewSubscriberHandler(deps.Subscribers, a.subscriberDefaults(), a.base),
	}, hub, limiter, a.base)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}

func (a *App) startNotifier(ctx context.Context, g *errgroup.Group, deps *Dependencies) error {
	snapshots := service.NewFundingSnapshotCache(deps.Scanner, deps.Registry, service.SnapshotConfig{
		Refresh:    a.cfg.Alert.SnapshotRefresh.Duration,
		StaleAfter: a.cfg.Alert.SnapshotStaleAfter.Duration,
	}, a.base)
	g.Go(func() error { return snapshots.Run(ctx) })

	var sent domain.AlertSentStore
	if deps.Redis != nil {
		sent = redis.NewSentStore(deps.Redis, a.cfg.Alert.SentTTL.Duration)
	} else {
		mem := alert.NewMemoryStore(a.cfg.Alert.SentTTL.Duration)
		g.Go(func() error {
			mem.RunCleanup(ctx, a.cfg.Alert.CleanupInterval.Duration)
			return nil
		})
		sent = mem
	}

	var delivery alert.Delivery
	if deps.Telegram != nil {
		delivery = deps.Telegram
	} else {
		a.logger.WarnContext(ctx, "no telegram token configured, alerts are logged only")
		delivery = logDelivery{logger: a.base.With(slog.String("component", "alert_delivery"))}
	}

	svc := alert.NewService(
		deps.Subscribers,
		snapshots,
		alert.NewDeduplicator(sent, a.cfg.Alert.MinDelta),
		delivery,
		deps.LockManager,
		deps.Notifier,
		alert.Config{
			Interval:            a.cfg.Alert.ScanInterval.Duration,
			StaleAfter:          a.cfg.Alert.SnapshotStaleAfter.Duration,
			ForceRefreshTimeout: a.cfg.Alert.ForceRefreshTimeout.Duration,
			LockTTL:             a.cfg.Alert.LockTTL.Duration,
			DefaultBucketWidth:  a.cfg.Alert.Defaults.BucketWidth.Duration,
		},
		a.base,
	)
	g.Go(func() error { return svc.Run(ctx) })

	if err := deps.Notifier.Notify(ctx, "startup", "fundybot started", "mode "+a.cfg.Mode); err != nil {
		a.logger.WarnContext(ctx, "startup notification failed", slog.String("error", err.Error()))
	}
	return nil
}

func (a *App) subscriberDefaults() domain.SubscriberDefaults {
	d := domain.DefaultSubscriberDefaults()
	c := a.cfg.Alert.Defaults
	if !c.MinAbsRate.IsZero() {
		d.MinAbsRate = c.MinAbsRate
	}
	if c.NotifyBefore.Duration > 0 {
		d.NotifyBefore = c.NotifyBefore.Duration
	}
	if c.TimeZone != "" {
		d.TimeZone = c.TimeZone
	}
	if c.BucketWidth.Duration > 0 {
		d.BucketWidth = c.BucketWidth.Duration
	}
	return d
}

// logDelivery writes alerts to the log when no chat transport is configured.
type logDelivery struct {
	logger *slog.Logger
}

func (d logDelivery) Deliver(ctx context.Context, subscriberID int64, text string) error {
	d.logger.InfoContext(ctx, "alert", slog.Int64("subscriber", subscriberID), slog.String("text", text))
	return nil
}
