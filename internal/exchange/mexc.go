package exchange

import (
	"context"

	"github.com/alanyoungcy/fundybot/internal/cache/memo"
	"github.com/alanyoungcy/fundybot/internal/domain"
)

// MEXC reads the contract market.
type MEXC struct {
	base
}

var _ domain.SourceAdapter = (*MEXC)(nil)

func NewMEXC(cfg SourceConfig, deps Deps) *MEXC {
	return &MEXC{base: newBase(domain.SourceMEXC, cfg, deps.withDefaults())}
}

type mexcEnvelope[T any] struct {
	Success bool   `json:"success"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    []T    `json:"data"`
}

type mexcContract struct {
	Symbol    string `json:"symbol"`
	BaseCoin  string `json:"baseCoin"`
	QuoteCoin string `json:"quoteCoin"`
	State     int    `json:"state"`
}

type mexcTicker struct {
	Symbol      string `json:"symbol"`
	LastPrice   number `json:"lastPrice"`
	Bid1Price   number `json:"bid1Price"`
	Ask1Price   number `json:"ask1Price"`
	High24Price number `json:"high24Price"`
	Low24Price  number `json:"low24Price"`
	Volume24    number `json:"volume24"`
}

type mexcFunding struct {
	Symbol         string `json:"symbol"`
	FundingRate    number `json:"fundingRate"`
	NextSettleTime number `json:"nextSettleTime"`
}

func (m *MEXC) ListInstruments(ctx context.Context) ([]domain.Instrument, error) {
	return memo.Get(ctx, m.cache, m.key(memo.KindInstruments), func(ctx context.Context) ([]domain.Instrument, error) {
		var resp mexcEnvelope[mexcContract]
		if err := m.fetch(ctx, "instruments", "/api/v1/contract/detail", nil, &resp); err != nil {
			return nil, err
		}
		if err := m.require(resp.Code == 0 && resp.Data != nil, "instruments", "MEXC instruments error: %s", resp.Message); err != nil {
			return nil, err
		}
		out := make([]domain.Instrument, 0, len(resp.Data))
		for _, c := range resp.Data {
			if c.State != 0 {
				continue
			}
			out = append(out, m.instrument(c.BaseCoin, c.QuoteCoin, c.Symbol))
		}
		return out, nil
	})
}

func (m *MEXC) FetchTickers(ctx context.Context, instruments []domain.Instrument) ([]domain.Ticker, error) {
	idx, err := memo.Get(ctx, m.cache, m.key(memo.KindTickers), func(ctx context.Context) (map[string]mexcTicker, error) {
		var resp mexcEnvelope[mexcTicker]
		if err := m.fetch(ctx, "tickers", "/api/v1/contract/ticker", nil, &resp); err != nil {
			return nil, err
		}
		if err := m.require(resp.Code == 0 && resp.Data != nil, "tickers", "MEXC tickers error: %s", resp.Message); err != nil {
			return nil, err
		}
		return indexByCanonical(m.id, resp.Data, func(t mexcTicker) string { return t.Symbol }), nil
	})
	if err != nil {
		return nil, err
	}
	return joinByCanonical(instruments, idx, func(inst domain.Instrument, t mexcTicker) (domain.Ticker, bool) {
		return m.ticker(inst, t.LastPrice, t.Bid1Price, t.Ask1Price, t.High24Price, t.Low24Price, t.Volume24), true
	}), nil
}

func (m *MEXC) FetchFundingRates(ctx context.Context, instruments []domain.Instrument) ([]domain.FundingRate, error) {
	idx, err := memo.Get(ctx, m.cache, m.key(memo.KindFunding), func(ctx context.Context) (map[string]mexcFunding, error) {
		var resp mexcEnvelope[mexcFunding]
		if err := m.fetch(ctx, "funding", "/api/v1/contract/funding_rate", nil, &resp); err != nil {
			return nil, err
		}
		if err := m.require(resp.Code == 0 && len(resp.Data) > 0, "funding", "MEXC funding error: %s", resp.Message); err != nil {
			return nil, err
		}
		return indexByCanonical(m.id, resp.Data, func(f mexcFunding) string { return f.Symbol }), nil
	})
	if err != nil {
		return nil, err
	}
	return joinByCanonical(instruments, idx, func(inst domain.Instrument, f mexcFunding) (domain.FundingRate, bool) {
		return m.funding(inst, f.FundingRate, f.NextSettleTime.Int64()), true
	}), nil
}
