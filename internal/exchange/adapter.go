// Package exchange implements domain.SourceAdapter for every supported
// perpetual-futures exchange.
package exchange

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/alanyoungcy/fundybot/internal/cache/memo"
	"github.com/alanyoungcy/fundybot/internal/domain"
	"github.com/alanyoungcy/fundybot/internal/fundingtime"
)

// SourceConfig configures one exchange.
type SourceConfig struct {
	Enabled    bool
	BaseURL    string
	Timeout    time.Duration
	RatePerSec float64
	Burst      int

	// Settle is the Gate.io settlement currency path segment.
	Settle string
	// ProductType is the Bitget v1 product type.
	ProductType string
}

// Deps carries the collaborators shared by every adapter.
type Deps struct {
	Cache  *memo.Cache
	Times  *fundingtime.Normalizer
	Logger *slog.Logger
	// FundingConcurrency bounds per-instrument funding requests.
	FundingConcurrency int
	Now                func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Cache == nil {
		d.Cache = memo.New(memo.DefaultConfig())
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Times == nil {
		d.Times = fundingtime.New(0, 0)
		d.Times.Now = d.Now
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.FundingConcurrency <= 0 {
		d.FundingConcurrency = 10
	}
	return d
}

// base holds what every adapter shares.
type base struct {
	id      domain.SourceID
	enabled bool
	rest    *restClient
	cache   *memo.Cache
	times   *fundingtime.Normalizer
	now     func() time.Time
	logger  *slog.Logger
}

func newBase(id domain.SourceID, cfg SourceConfig, deps Deps) base {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURLs[id]
	}
	return base{
		id:      id,
		enabled: cfg.Enabled,
		rest:    newRESTClient(cfg),
		cache:   deps.Cache,
		times:   deps.Times,
		now:     deps.Now,
		logger:  deps.Logger.With(slog.String("component", "exchange"), slog.String("source", string(id))),
	}
}

func (b *base) SourceID() domain.SourceID { return b.id }

func (b *base) Enabled() bool { return b.enabled }

func (b *base) key(kind memo.Kind) memo.Key {
	return memo.Key{Source: string(b.id), Kind: kind}
}

// fetch performs a GET and wraps transport and decode failures as a
// SourceError.
func (b *base) fetch(ctx context.Context, op, path string, params url.Values, out any) error {
	if err := b.rest.getJSON(ctx, path, params, out); err != nil {
		return &domain.SourceError{Source: b.id, Op: op, Err: err}
	}
	return nil
}

// require turns a failed envelope check into a SourceError carrying the
// upstream message.
func (b *base) require(ok bool, op, format string, args ...any) error {
	if ok {
		return nil
	}
	return &domain.SourceError{Source: b.id, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func (b *base) instrument(baseAsset, quoteAsset, native string) domain.Instrument {
	return domain.Instrument{
		BaseAsset:    baseAsset,
		QuoteAsset:   quoteAsset,
		Type:         domain.InstrumentPerpetual,
		NativeSymbol: native,
		Source:       b.id,
	}
}

func (b *base) ticker(inst domain.Instrument, last, bid, ask, high, low, vol number) domain.Ticker {
	return domain.Ticker{
		Instrument:   inst,
		Last:         last.Decimal(),
		Bid:          bid.Decimal(),
		Ask:          ask.Decimal(),
		High24h:      high.Decimal(),
		Low24h:       low.Decimal(),
		Volume24h:    vol.Decimal(),
		ObservedAtMs: b.now().UnixMilli(),
	}
}

func (b *base) funding(inst domain.Instrument, rate number, nextMs int64) domain.FundingRate {
	return domain.FundingRate{
		Source:            b.id,
		Instrument:        inst,
		Rate:              rate.Decimal(),
		NextFundingTimeMs: nextMs,
	}
}

// nativeOr returns the instrument's native symbol, or fallback when unset.
func nativeOr(inst domain.Instrument, fallback string) string {
	if inst.NativeSymbol != "" {
		return inst.NativeSymbol
	}
	return fallback
}
