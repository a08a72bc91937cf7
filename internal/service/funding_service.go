package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/fundybot/internal/domain"
)

// FundingScanner fetches funding rates across sources.
type FundingScanner interface {
	Funding(ctx context.Context, ids []domain.SourceID) []domain.FundingRate
}

// FundingQuery selects funding opportunities.
type FundingQuery struct {
	Sources  []domain.SourceID
	MinRate  decimal.Decimal
	TimeZone string
	Limit    int
}

// FundingView is one funding rate prepared for display.
type FundingView struct {
	Source            domain.SourceID `json:"exchange"`
	Symbol            string          `json:"symbol"`
	NativeSymbol      string          `json:"nativeSymbol"`
	Base              string          `json:"base"`
	Quote             string          `json:"quote"`
	Rate              decimal.Decimal `json:"fundingRate"`
	RatePercent       decimal.Decimal `json:"fundingRatePercent"`
	NextFundingTimeMs int64           `json:"nextFundingTimeMs"`
	NextFundingTime   string          `json:"nextFundingTime"`
	Countdown         string          `json:"countdown"`
}

var percent = decimal.NewFromInt(100)

// FundingService ranks funding rates by magnitude.
type FundingService struct {
	scanner FundingScanner
	now     func() time.Time
}

// NewFundingService creates a FundingService.
func NewFundingService(scanner FundingScanner) *FundingService {
	return &FundingService{scanner: scanner, now: time.Now}
}

// Opportunities scans the requested sources and returns rates with
// |rate| >= |MinRate|, largest magnitude first. An unknown zone renders
// times in the host zone.
func (s *FundingService) Opportunities(ctx context.Context, q FundingQuery) []FundingView {
	rates := s.scanner.Funding(ctx, q.Sources)
	return BuildFundingViews(rates, q, s.now())
}

// BuildFundingViews filters, orders and renders rates as of now.
func BuildFundingViews(rates []domain.FundingRate, q FundingQuery, now time.Time) []FundingView {
	minRate := q.MinRate.Abs()
	kept := make([]domain.FundingRate, 0, len(rates))
	for _, fr := range rates {
		if fr.Rate.Abs().GreaterThanOrEqual(minRate) {
			kept = append(kept, fr)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Rate.Abs().GreaterThan(kept[j].Rate.Abs())
	})
	if q.Limit > 0 && len(kept) > q.Limit {
		kept = kept[:q.Limit]
	}

	loc := domain.LoadLocation(q.TimeZone)
	out := make([]FundingView, 0, len(kept))
	for _, fr := range kept {
		v := FundingView{
			Source:            fr.Source,
			Symbol:            fr.Instrument.CanonicalKey(),
			NativeSymbol:      fr.Instrument.NativeSymbol,
			Base:              fr.Instrument.BaseAsset,
			Quote:             fr.Instrument.QuoteAsset,
			Rate:              fr.Rate,
			RatePercent:       fr.Rate.Mul(percent),
			NextFundingTimeMs: fr.NextFundingTimeMs,
		}
		if fr.NextFundingTimeMs > 0 {
			next := time.UnixMilli(fr.NextFundingTimeMs)
			v.NextFundingTime = next.In(loc).Format(time.RFC3339)
			v.Countdown = Countdown(next.Sub(now))
		}
		out = append(out, v)
	}
	return out
}

// Countdown renders d as HH:MM:SS, clamped at zero.
func Countdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, secs%3600/60, secs%60)
}
