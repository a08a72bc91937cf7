// Package exchangetest provides an in-memory domain.SourceAdapter for tests.
package exchangetest

import (
	"context"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/fundybot/internal/domain"
)

// Quote is one instrument's canned market data.
type Quote struct {
	Base, Quote, Native string
	Price               string
	// Funding is empty when the source reports no funding for the pair.
	Funding   string
	NextMs    int64
	Perpetual *bool
}

// Adapter serves canned quotes. Err, when set, is returned from every call.
// Block, when set, makes every call wait until the context is done.
type Adapter struct {
	ID       domain.SourceID
	Disabled bool
	Quotes   []Quote
	Err      error
	Block    bool
	Panic    bool

	Calls atomic.Int32
}

var _ domain.SourceAdapter = (*Adapter)(nil)

func (a *Adapter) SourceID() domain.SourceID { return a.ID }

func (a *Adapter) Enabled() bool { return !a.Disabled }

func (a *Adapter) fail(ctx context.Context) error {
	a.Calls.Add(1)
	if a.Panic {
		panic("exchangetest: boom")
	}
	if a.Block {
		<-ctx.Done()
		return ctx.Err()
	}
	return a.Err
}

func (a *Adapter) instrument(q Quote) domain.Instrument {
	typ := domain.InstrumentPerpetual
	if q.Perpetual != nil && !*q.Perpetual {
		typ = "DELIVERY"
	}
	native := q.Native
	if native == "" {
		native = q.Base + q.Quote
	}
	return domain.Instrument{BaseAsset: q.Base, QuoteAsset: q.Quote, Type: typ, NativeSymbol: native, Source: a.ID}
}

func (a *Adapter) find(inst domain.Instrument) (Quote, bool) {
	for _, q := range a.Quotes {
		if domain.CanonicalKey(q.Base, q.Quote) == inst.CanonicalKey() {
			return q, true
		}
	}
	return Quote{}, false
}

func (a *Adapter) ListInstruments(ctx context.Context) ([]domain.Instrument, error) {
	if err := a.fail(ctx); err != nil {
		return nil, err
	}
	out := make([]domain.Instrument, 0, len(a.Quotes))
	for _, q := range a.Quotes {
		out = append(out, a.instrument(q))
	}
	return out, nil
}

func (a *Adapter) FetchTickers(ctx context.Context, instruments []domain.Instrument) ([]domain.Ticker, error) {
	if err := a.fail(ctx); err != nil {
		return nil, err
	}
	var out []domain.Ticker
	for _, inst := range instruments {
		q, ok := a.find(inst)
		if !ok {
			continue
		}
		p := decimal.RequireFromString(q.Price)
		out = append(out, domain.Ticker{Instrument: inst, Last: p, Bid: p, Ask: p})
	}
	return out, nil
}

func (a *Adapter) FetchFundingRates(ctx context.Context, instruments []domain.Instrument) ([]domain.FundingRate, error) {
	if err := a.fail(ctx); err != nil {
		return nil, err
	}
	var out []domain.FundingRate
	for _, inst := range instruments {
		q, ok := a.find(inst)
		if !ok || q.Funding == "" {
			continue
		}
		out = append(out, domain.FundingRate{
			Source:            a.ID,
			Instrument:        inst,
			Rate:              decimal.RequireFromString(q.Funding),
			NextFundingTimeMs: q.NextMs,
		})
	}
	return out, nil
}
