package exchange

import (
	"context"
	"strings"

	"github.com/alanyoungcy/fundybot/internal/cache/memo"
	"github.com/alanyoungcy/fundybot/internal/domain"
)

// GateIO reads the v4 futures market for one settlement currency.
type GateIO struct {
	base
	settle string
}

var _ domain.SourceAdapter = (*GateIO)(nil)

func NewGateIO(cfg SourceConfig, deps Deps) *GateIO {
	settle := strings.ToLower(strings.TrimSpace(cfg.Settle))
	if settle == "" {
		settle = "usdt"
	}
	return &GateIO{base: newBase(domain.SourceGateIO, cfg, deps.withDefaults()), settle: settle}
}

type gateContract struct {
	Name             string `json:"name"`
	Status           string `json:"status"`
	InDelisting      bool   `json:"in_delisting"`
	FundingRate      number `json:"funding_rate"`
	FundingNextApply number `json:"funding_next_apply"`
}

type gateTicker struct {
	Contract   string `json:"contract"`
	Last       number `json:"last"`
	HighestBid number `json:"highest_bid"`
	LowestAsk  number `json:"lowest_ask"`
	High24h    number `json:"high_24h"`
	Low24h     number `json:"low_24h"`
	Volume24h  number `json:"volume_24h"`
}

func (g *GateIO) path(suffix string) string {
	return "/api/v4/futures/" + g.settle + suffix
}

func (g *GateIO) contracts(ctx context.Context, op string) ([]gateContract, error) {
	var resp []gateContract
	if err := g.fetch(ctx, op, g.path("/contracts"), nil, &resp); err != nil {
		return nil, err
	}
	if err := g.require(resp != nil, op, "Gate.io contracts error: empty payload"); err != nil {
		return nil, err
	}
	return resp, nil
}

func (g *GateIO) ListInstruments(ctx context.Context) ([]domain.Instrument, error) {
	return memo.Get(ctx, g.cache, g.key(memo.KindInstruments), func(ctx context.Context) ([]domain.Instrument, error) {
		items, err := g.contracts(ctx, "instruments")
		if err != nil {
			return nil, err
		}
		quote := strings.ToUpper(g.settle)
		out := make([]domain.Instrument, 0, len(items))
		for _, it := range items {
			if it.InDelisting || (it.Status != "" && it.Status != "trading") {
				continue
			}
			baseAsset, q := it.Name, quote
			if parts := strings.Split(it.Name, "_"); len(parts) > 1 {
				baseAsset, q = parts[0], parts[1]
			}
			out = append(out, g.instrument(baseAsset, q, it.Name))
		}
		return out, nil
	})
}

func (g *GateIO) FetchTickers(ctx context.Context, instruments []domain.Instrument) ([]domain.Ticker, error) {
	idx, err := memo.Get(ctx, g.cache, g.key(memo.KindTickers), func(ctx context.Context) (map[string]gateTicker, error) {
		var resp []gateTicker
		if err := g.fetch(ctx, "tickers", g.path("/tickers"), nil, &resp); err != nil {
			return nil, err
		}
		if err := g.require(resp != nil, "tickers", "Gate.io tickers error: empty payload"); err != nil {
			return nil, err
		}
		return indexByCanonical(g.id, resp, func(t gateTicker) string { return t.Contract }), nil
	})
	if err != nil {
		return nil, err
	}
	return joinByCanonical(instruments, idx, func(inst domain.Instrument, t gateTicker) (domain.Ticker, bool) {
		return g.ticker(inst, t.Last, t.HighestBid, t.LowestAsk, t.High24h, t.Low24h, t.Volume24h), true
	}), nil
}

// FetchFundingRates reads funding from the contract list. Gate.io reports
// the next application time in seconds.
func (g *GateIO) FetchFundingRates(ctx context.Context, instruments []domain.Instrument) ([]domain.FundingRate, error) {
	idx, err := memo.Get(ctx, g.cache, g.key(memo.KindFunding), func(ctx context.Context) (map[string]gateContract, error) {
		items, err := g.contracts(ctx, "funding")
		if err != nil {
			return nil, err
		}
		return indexByCanonical(g.id, items, func(c gateContract) string { return c.Name }), nil
	})
	if err != nil {
		return nil, err
	}
	return joinByCanonical(instruments, idx, func(inst domain.Instrument, c gateContract) (domain.FundingRate, bool) {
		return g.funding(inst, c.FundingRate, c.FundingNextApply.Int64()*1000), true
	}), nil
}
