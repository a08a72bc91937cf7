package service

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/fundybot/internal/arbitrage"
	"github.com/alanyoungcy/fundybot/internal/domain"
)

// BucketScanner groups cross-source observations by canonical pair.
type BucketScanner interface {
	Buckets(ctx context.Context, ids []domain.SourceID) []domain.SymbolGroup
}

// ArbitrageQuery selects arbitrage opportunities. Zero thresholds keep
// everything.
type ArbitrageQuery struct {
	Sources          []domain.SourceID
	MinFundingSpread decimal.Decimal
	MinPriceSpread   decimal.Decimal
	Limit            int
}

// ArbService scans sources and ranks cross-exchange funding arbitrage.
type ArbService struct {
	scanner BucketScanner
	logger  *slog.Logger
}

// NewArbService creates an ArbService.
func NewArbService(scanner BucketScanner, logger *slog.Logger) *ArbService {
	return &ArbService{
		scanner: scanner,
		logger:  logger.With(slog.String("component", "arb_service")),
	}
}

// Opportunities returns records ordered by funding spread, largest first.
func (s *ArbService) Opportunities(ctx context.Context, q ArbitrageQuery) []domain.ArbitrageRecord {
	groups := s.scanner.Buckets(ctx, q.Sources)
	records := arbitrage.Evaluate(groups, arbitrage.Filter{
		MinFundingSpread: q.MinFundingSpread,
		MinPriceSpread:   q.MinPriceSpread,
	})
	if q.Limit > 0 && len(records) > q.Limit {
		records = records[:q.Limit]
	}

	s.logger.DebugContext(ctx, "arb_service: scan complete",
		slog.Int("groups", len(groups)),
		slog.Int("records", len(records)),
	)
	return records
}
