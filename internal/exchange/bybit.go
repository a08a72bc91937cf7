package exchange

import (
	"context"
	"net/url"

	"github.com/alanyoungcy/fundybot/internal/cache/memo"
	"github.com/alanyoungcy/fundybot/internal/domain"
)

// Bybit reads the v5 linear market.
type Bybit struct {
	base
}

var _ domain.SourceAdapter = (*Bybit)(nil)

func NewBybit(cfg SourceConfig, deps Deps) *Bybit {
	return &Bybit{base: newBase(domain.SourceBybit, cfg, deps.withDefaults())}
}

type bybitEnvelope[T any] struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  *struct {
		List []T `json:"list"`
	} `json:"result"`
}

type bybitInstrument struct {
	Symbol       string `json:"symbol"`
	BaseCoin     string `json:"baseCoin"`
	QuoteCoin    string `json:"quoteCoin"`
	Status       string `json:"status"`
	ContractType string `json:"contractType"`
}

type bybitTicker struct {
	Symbol          string `json:"symbol"`
	LastPrice       number `json:"lastPrice"`
	Bid1Price       number `json:"bid1Price"`
	Ask1Price       number `json:"ask1Price"`
	HighPrice24h    number `json:"highPrice24h"`
	LowPrice24h     number `json:"lowPrice24h"`
	Volume24h       number `json:"volume24h"`
	FundingRate     number `json:"fundingRate"`
	NextFundingTime number `json:"nextFundingTime"`
}

func linearParams() url.Values {
	return url.Values{"category": {"linear"}}
}

func (b *Bybit) ListInstruments(ctx context.Context) ([]domain.Instrument, error) {
	return memo.Get(ctx, b.cache, b.key(memo.KindInstruments), func(ctx context.Context) ([]domain.Instrument, error) {
		var resp bybitEnvelope[bybitInstrument]
		if err := b.fetch(ctx, "instruments", "/v5/market/instruments-info", linearParams(), &resp); err != nil {
			return nil, err
		}
		if err := b.require(resp.RetCode == 0 && resp.Result != nil, "instruments", "Bybit instruments error: %s", resp.RetMsg); err != nil {
			return nil, err
		}
		out := make([]domain.Instrument, 0, len(resp.Result.List))
		for _, it := range resp.Result.List {
			if it.Status != "Trading" {
				continue
			}
			if it.ContractType != "" && it.ContractType != "LinearPerpetual" {
				continue
			}
			out = append(out, b.instrument(it.BaseCoin, it.QuoteCoin, it.Symbol))
		}
		return out, nil
	})
}

func (b *Bybit) tickers(ctx context.Context) (map[string]bybitTicker, error) {
	return memo.Get(ctx, b.cache, b.key(memo.KindTickers), func(ctx context.Context) (map[string]bybitTicker, error) {
		var resp bybitEnvelope[bybitTicker]
		if err := b.fetch(ctx, "tickers", "/v5/market/tickers", linearParams(), &resp); err != nil {
			return nil, err
		}
		if err := b.require(resp.RetCode == 0 && resp.Result != nil, "tickers", "Bybit tickers error: %s", resp.RetMsg); err != nil {
			return nil, err
		}
		return indexByCanonical(b.id, resp.Result.List, func(t bybitTicker) string { return t.Symbol }), nil
	})
}

func (b *Bybit) FetchTickers(ctx context.Context, instruments []domain.Instrument) ([]domain.Ticker, error) {
	idx, err := b.tickers(ctx)
	if err != nil {
		return nil, err
	}
	return joinByCanonical(instruments, idx, func(inst domain.Instrument, t bybitTicker) (domain.Ticker, bool) {
		return b.ticker(inst, t.LastPrice, t.Bid1Price, t.Ask1Price, t.HighPrice24h, t.LowPrice24h, t.Volume24h), true
	}), nil
}

// FetchFundingRates reads funding embedded in the ticker feed.
func (b *Bybit) FetchFundingRates(ctx context.Context, instruments []domain.Instrument) ([]domain.FundingRate, error) {
	idx, err := b.tickers(ctx)
	if err != nil {
		return nil, err
	}
	return joinByCanonical(instruments, idx, func(inst domain.Instrument, t bybitTicker) (domain.FundingRate, bool) {
		return b.funding(inst, t.FundingRate, t.NextFundingTime.Int64()), true
	}), nil
}
