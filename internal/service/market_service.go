// Package service holds the use cases the HTTP API and the background loops
// call into.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/fundybot/internal/domain"
)

// Registry resolves exchange adapters.
type Registry interface {
	Get(id domain.SourceID) (domain.SourceAdapter, error)
	Sources() []domain.SourceAdapter
}

// SourceStatus reports whether a source is served.
type SourceStatus struct {
	Source  domain.SourceID `json:"exchange"`
	Enabled bool            `json:"enabled"`
}

// Pair names an instrument by its assets.
type Pair struct {
	Base  string `json:"base" validate:"required"`
	Quote string `json:"quote" validate:"required"`
}

// MarketService answers single-source market data queries by delegating to
// the source's adapter.
type MarketService struct {
	registry Registry
	logger   *slog.Logger
}

// NewMarketService creates a MarketService.
func NewMarketService(registry Registry, logger *slog.Logger) *MarketService {
	return &MarketService{
		registry: registry,
		logger:   logger.With(slog.String("component", "market_service")),
	}
}

// Sources lists every known source with its enabled flag.
func (s *MarketService) Sources() []SourceStatus {
	adapters := s.registry.Sources()
	out := make([]SourceStatus, 0, len(adapters))
	for _, a := range adapters {
		out = append(out, SourceStatus{Source: a.SourceID(), Enabled: a.Enabled()})
	}
	return out
}

// Instruments lists every instrument the source reports.
func (s *MarketService) Instruments(ctx context.Context, src domain.SourceID) ([]domain.Instrument, error) {
	a, err := s.registry.Get(src)
	if err != nil {
		return nil, err
	}
	instruments, err := a.ListInstruments(ctx)
	if err != nil {
		return nil, fmt.Errorf("market_service: instruments %s: %w", src, err)
	}
	return instruments, nil
}

// Ticker returns the current ticker of base/quote on src.
func (s *MarketService) Ticker(ctx context.Context, src domain.SourceID, base, quote string) (domain.Ticker, error) {
	tickers, err := s.Tickers(ctx, src, []Pair{{Base: base, Quote: quote}})
	if err != nil {
		return domain.Ticker{}, err
	}
	return tickers[0], nil
}

// Tickers returns tickers for the requested pairs on src, in request order.
// Pairs the source does not list are omitted; ErrNotFound is returned when
// none of them resolve.
func (s *MarketService) Tickers(ctx context.Context, src domain.SourceID, pairs []Pair) ([]domain.Ticker, error) {
	a, err := s.registry.Get(src)
	if err != nil {
		return nil, err
	}
	all, err := a.ListInstruments(ctx)
	if err != nil {
		return nil, fmt.Errorf("market_service: instruments %s: %w", src, err)
	}

	index := make(map[string]domain.Instrument, len(all))
	for _, inst := range all {
		key := inst.CanonicalKey()
		if _, ok := index[key]; !ok {
			index[key] = inst
		}
	}

	wanted := make([]domain.Instrument, 0, len(pairs))
	for _, p := range pairs {
		inst, ok := index[domain.CanonicalKey(strings.TrimSpace(p.Base), strings.TrimSpace(p.Quote))]
		if !ok {
			s.logger.DebugContext(ctx, "market_service: pair not listed",
				slog.String("source", src.String()),
				slog.String("base", p.Base),
				slog.String("quote", p.Quote),
			)
			continue
		}
		wanted = append(wanted, inst)
	}
	if len(wanted) == 0 {
		return nil, fmt.Errorf("market_service: %s lists none of %d pairs: %w", src, len(pairs), domain.ErrNotFound)
	}

	tickers, err := a.FetchTickers(ctx, wanted)
	if err != nil {
		return nil, fmt.Errorf("market_service: tickers %s: %w", src, err)
	}
	if len(tickers) == 0 {
		return nil, fmt.Errorf("market_service: %s reported no tickers: %w", src, domain.ErrNotFound)
	}
	return tickers, nil
}
