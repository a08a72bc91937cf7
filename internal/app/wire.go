package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	s3blob "github.com/alanyoungcy/fundybot/internal/blob/s3"
	"github.com/alanyoungcy/fundybot/internal/cache/memo"
	"github.com/alanyoungcy/fundybot/internal/cache/redis"
	"github.com/alanyoungcy/fundybot/internal/config"
	"github.com/alanyoungcy/fundybot/internal/domain"
	"github.com/alanyoungcy/fundybot/internal/exchange"
	"github.com/alanyoungcy/fundybot/internal/feed"
	"github.com/alanyoungcy/fundybot/internal/fundingtime"
	"github.com/alanyoungcy/fundybot/internal/notify"
	"github.com/alanyoungcy/fundybot/internal/scanner"
	"github.com/alanyoungcy/fundybot/internal/server/handler"
	"github.com/alanyoungcy/fundybot/internal/service"
	"github.com/alanyoungcy/fundybot/internal/store/memory"
	"github.com/alanyoungcy/fundybot/internal/store/postgres"
)

// Dependencies bundles everything the modes run on. It is built by Wire and
// released by the cleanup function Wire returns.
type Dependencies struct {
	// Market data
	Cache    *memo.Cache
	Registry *exchange.Registry
	Scanner  *scanner.Scanner

	// Services
	Markets  *service.MarketService
	Funding  *service.FundingService
	Arb      *service.ArbService
	Universe *service.UniverseService

	// Persistence and shared state; nil entries are unavailable.
	Subscribers   domain.SubscriberStore
	UniverseCache domain.UniverseCache
	RateLimiter   domain.RateLimiter
	LockManager   domain.LockManager
	SignalBus     domain.SignalBus
	BlobReader    domain.BlobReader
	BlobWriter    domain.BlobWriter

	// Redis is set when Redis is enabled.
	Redis *redis.Client

	// Notifications
	Telegram *notify.TelegramSender
	Notifier *notify.Notifier

	HealthChecks map[string]handler.Pinger
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Wire builds the dependencies from cfg. Redis, Postgres and S3 are
// connected only when enabled, and a failing connection aborts wiring.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(what string, err error) (*Dependencies, func(), error) {
		cleanup()
		return nil, nil, fmt.Errorf("wire: %s: %w", what, err)
	}

	deps := &Dependencies{HealthChecks: make(map[string]handler.Pinger)}

	// --- market data ---
	deps.Cache = memo.New(memo.Config{
		Instruments: cfg.Cache.Instruments.Duration,
		Tickers:     cfg.Cache.Tickers.Duration,
		Funding:     cfg.Cache.Funding.Duration,
		Universe:    cfg.Cache.Universe.Duration,
	})
	deps.Registry = exchange.NewRegistry(sourceConfigs(cfg), exchange.Deps{
		Cache:              deps.Cache,
		Times:              fundingtime.New(cfg.FundingTime.ReconcileTolerance.Duration, cfg.FundingTime.SnapEpsilon.Duration),
		Logger:             logger,
		FundingConcurrency: cfg.Scanner.FundingConcurrency,
	})
	deps.Scanner = scanner.New(deps.Registry, scanner.Config{
		OverallTimeout:   cfg.Scanner.OverallTimeout.Duration,
		PerSourceTimeout: cfg.Scanner.PerSourceTimeout.Duration,
	}, logger)

	// --- Redis ---
	if cfg.Redis.Enabled {
		rc, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
			Namespace:  cfg.Redis.Namespace,
		})
		if err != nil {
			return fail("redis", err)
		}
		closers = append(closers, func() { _ = rc.Close() })

		deps.Redis = rc
		deps.UniverseCache = redis.NewUniverseCache(rc)
		deps.RateLimiter = redis.NewRateLimiter(rc)
		deps.LockManager = redis.NewLockManager(rc)
		deps.SignalBus = redis.NewSignalBus(rc)
		deps.HealthChecks["redis"] = rc
	} else {
		deps.SignalBus = feed.NewLocalBus()
	}

	// --- Postgres ---
	if cfg.Postgres.Enabled {
		pg, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			return fail("postgres", err)
		}
		closers = append(closers, pg.Close)

		if cfg.Postgres.RunMigrations {
			if err := pg.RunMigrations(ctx); err != nil {
				return fail("postgres migrations", err)
			}
		}
		deps.Subscribers = postgres.NewSubscriberStore(pg.Pool())
		deps.HealthChecks["postgres"] = pg
	} else {
		deps.Subscribers = memory.NewSubscriberStore()
	}

	// --- S3 ---
	if cfg.S3.Enabled {
		sc, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			return fail("s3", err)
		}
		deps.BlobReader = s3blob.NewReader(sc)
		deps.BlobWriter = s3blob.NewWriter(sc)
		deps.HealthChecks["s3"] = pingFunc(sc.Health)
	}

	// --- services ---
	deps.Markets = service.NewMarketService(deps.Registry, logger)
	deps.Funding = service.NewFundingService(deps.Scanner)
	deps.Arb = service.NewArbService(deps.Scanner, logger)
	deps.Universe = service.NewUniverseService(
		deps.Scanner, deps.Cache, deps.UniverseCache, deps.BlobReader, deps.BlobWriter,
		service.UniverseConfig{TTL: cfg.Cache.Universe.Duration, BlobPath: cfg.S3.UniversePath},
		logger,
	)

	// --- notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" {
		deps.Telegram = notify.NewTelegramSender(notify.TelegramConfig{
			Token:      cfg.Notify.TelegramToken,
			OpsChatID:  cfg.Notify.TelegramOpsChatID,
			APIURL:     cfg.Notify.TelegramAPIURL,
			RatePerSec: cfg.Notify.TelegramRate,
		})
		if cfg.Notify.TelegramOpsChatID != "" {
			senders = append(senders, deps.Telegram)
		}
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}

// sourceConfigs maps [exchanges.*] tables onto adapter configs.
func sourceConfigs(cfg *config.Config) map[domain.SourceID]exchange.SourceConfig {
	out := make(map[domain.SourceID]exchange.SourceConfig, len(cfg.Exchanges))
	for name, ex := range cfg.Exchanges {
		id, err := domain.ParseSource(strings.ToUpper(name))
		if err != nil {
			continue
		}
		out[id] = exchange.SourceConfig{
			Enabled:     ex.IsEnabled(),
			BaseURL:     ex.BaseURL,
			Timeout:     ex.Timeout.Duration,
			RatePerSec:  ex.RatePerSec,
			Burst:       ex.Burst,
			Settle:      ex.Settle,
			ProductType: ex.ProductType,
		}
	}
	return out
}
