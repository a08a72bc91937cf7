package exchange

import (
	"context"
	"sort"

	"github.com/alanyoungcy/fundybot/internal/cache/memo"
	"github.com/alanyoungcy/fundybot/internal/domain"
)

// CoinEx reads the perpetual v1 market. Funding time is published as a
// countdown rather than a timestamp.
type CoinEx struct {
	base
}

var _ domain.SourceAdapter = (*CoinEx)(nil)

func NewCoinEx(cfg SourceConfig, deps Deps) *CoinEx {
	return &CoinEx{base: newBase(domain.SourceCoinEx, cfg, deps.withDefaults())}
}

type coinexEnvelope[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    *T     `json:"data"`
}

type coinexMarket struct {
	Name      string `json:"name"`
	Stock     string `json:"stock"`
	Money     string `json:"money"`
	Type      int    `json:"type"`
	Available bool   `json:"available"`
}

type coinexTickerAll struct {
	Date   int64                   `json:"date"`
	Ticker map[string]coinexTicker `json:"ticker"`
}

type coinexTicker struct {
	Last            number `json:"last"`
	Buy             number `json:"buy"`
	Sell            number `json:"sell"`
	High            number `json:"high"`
	Low             number `json:"low"`
	Vol             number `json:"vol"`
	FundingRateLast number `json:"funding_rate_last"`
	FundingTime     number `json:"funding_time"`
}

type coinexNamedTicker struct {
	name string
	coinexTicker
}

func (c *CoinEx) ListInstruments(ctx context.Context) ([]domain.Instrument, error) {
	return memo.Get(ctx, c.cache, c.key(memo.KindInstruments), func(ctx context.Context) ([]domain.Instrument, error) {
		var resp coinexEnvelope[[]coinexMarket]
		if err := c.fetch(ctx, "instruments", "/perpetual/v1/market/list", nil, &resp); err != nil {
			return nil, err
		}
		if err := c.require(resp.Code == 0 && resp.Data != nil, "instruments", "CoinEx instruments error: %s", resp.Message); err != nil {
			return nil, err
		}
		out := make([]domain.Instrument, 0, len(*resp.Data))
		for _, m := range *resp.Data {
			if !m.Available || m.Type != 1 {
				continue
			}
			out = append(out, c.instrument(m.Stock, m.Money, m.Name))
		}
		return out, nil
	})
}

// tickers indexes the ticker map. Names are visited in sorted order so that
// the first-seen rule is deterministic.
func (c *CoinEx) tickers(ctx context.Context) (map[string]coinexNamedTicker, error) {
	return memo.Get(ctx, c.cache, c.key(memo.KindTickers), func(ctx context.Context) (map[string]coinexNamedTicker, error) {
		var resp coinexEnvelope[coinexTickerAll]
		if err := c.fetch(ctx, "tickers", "/perpetual/v1/market/ticker/all", nil, &resp); err != nil {
			return nil, err
		}
		if err := c.require(resp.Code == 0 && resp.Data != nil && resp.Data.Ticker != nil, "tickers", "CoinEx ticker/all error: %s", resp.Message); err != nil {
			return nil, err
		}
		names := make([]string, 0, len(resp.Data.Ticker))
		for name := range resp.Data.Ticker {
			names = append(names, name)
		}
		sort.Strings(names)
		items := make([]coinexNamedTicker, 0, len(names))
		for _, name := range names {
			items = append(items, coinexNamedTicker{name: name, coinexTicker: resp.Data.Ticker[name]})
		}
		return indexByCanonical(c.id, items, func(t coinexNamedTicker) string { return t.name }), nil
	})
}

func (c *CoinEx) FetchTickers(ctx context.Context, instruments []domain.Instrument) ([]domain.Ticker, error) {
	idx, err := c.tickers(ctx)
	if err != nil {
		return nil, err
	}
	return joinByCanonical(instruments, idx, func(inst domain.Instrument, t coinexNamedTicker) (domain.Ticker, bool) {
		return c.ticker(inst, t.Last, t.Buy, t.Sell, t.High, t.Low, t.Vol), true
	}), nil
}

func (c *CoinEx) FetchFundingRates(ctx context.Context, instruments []domain.Instrument) ([]domain.FundingRate, error) {
	idx, err := c.tickers(ctx)
	if err != nil {
		return nil, err
	}
	return joinByCanonical(instruments, idx, func(inst domain.Instrument, t coinexNamedTicker) (domain.FundingRate, bool) {
		next := c.times.Normalize(c.times.FromCountdown(t.FundingTime.Int64()))
		return c.funding(inst, t.FundingRateLast, next), true
	}), nil
}
