// Package feed periodically runs scans and publishes the results on the
// signal bus for websocket clients and other consumers.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/fundybot/internal/domain"
	"github.com/alanyoungcy/fundybot/internal/service"
)

// Channel names on the signal bus.
const (
	ChannelArbitrage = "fundy:arbitrage"
	ChannelFunding   = "fundy:funding"
)

// ArbitrageSource runs arbitrage scans.
type ArbitrageSource interface {
	Opportunities(ctx context.Context, q service.ArbitrageQuery) []domain.ArbitrageRecord
}

// FundingSource runs funding scans.
type FundingSource interface {
	Opportunities(ctx context.Context, q service.FundingQuery) []service.FundingView
}

// Config controls what is published and how often.
type Config struct {
	Interval         time.Duration
	ArbitrageLimit   int
	FundingLimit     int
	MinFundingSpread decimal.Decimal
	MinPriceSpread   decimal.Decimal
	MinRate          decimal.Decimal
}

// Event is the envelope of every published message.
type Event struct {
	Event     string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// Publisher publishes arbitrage and funding top lists every Interval.
type Publisher struct {
	arb     ArbitrageSource
	funding FundingSource
	bus     domain.SignalBus
	cfg     Config
	logger  *slog.Logger
	now     func() time.Time
}

// NewPublisher creates a Publisher.
func NewPublisher(arb ArbitrageSource, funding FundingSource, bus domain.SignalBus, cfg Config, logger *slog.Logger) *Publisher {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.ArbitrageLimit <= 0 {
		cfg.ArbitrageLimit = 50
	}
	if cfg.FundingLimit <= 0 {
		cfg.FundingLimit = 50
	}
	return &Publisher{
		arb:     arb,
		funding: funding,
		bus:     bus,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "feed_publisher")),
		now:     time.Now,
	}
}

// Run publishes immediately and then every Interval until ctx is done.
func (p *Publisher) Run(ctx context.Context) error {
	p.logger.InfoContext(ctx, "feed publisher started", slog.Duration("interval", p.cfg.Interval))
	defer p.logger.InfoContext(ctx, "feed publisher stopped")

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		if err := p.PublishOnce(ctx); err != nil && ctx.Err() == nil {
			p.logger.WarnContext(ctx, "feed publish failed", slog.String("error", err.Error()))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// PublishOnce runs both scans over every source and publishes them.
func (p *Publisher) PublishOnce(ctx context.Context) error {
	records := p.arb.Opportunities(ctx, service.ArbitrageQuery{
		Sources:          domain.AllSources,
		MinFundingSpread: p.cfg.MinFundingSpread,
		MinPriceSpread:   p.cfg.MinPriceSpread,
		Limit:            p.cfg.ArbitrageLimit,
	})
	if err := p.publish(ctx, ChannelArbitrage, "arbitrage", records); err != nil {
		return err
	}

	views := p.funding.Opportunities(ctx, service.FundingQuery{
		Sources:  domain.AllSources,
		MinRate:  p.cfg.MinRate,
		TimeZone: "UTC",
		Limit:    p.cfg.FundingLimit,
	})
	return p.publish(ctx, ChannelFunding, "funding", views)
}

func (p *Publisher) publish(ctx context.Context, channel, event string, data any) error {
	payload, err := json.Marshal(Event{Event: event, Timestamp: p.now().UTC(), Data: data})
	if err != nil {
		return fmt.Errorf("feed: marshal %s: %w", event, err)
	}
	if err := p.bus.Publish(ctx, channel, payload); err != nil {
		return fmt.Errorf("feed: publish %s: %w", event, err)
	}
	return nil
}
