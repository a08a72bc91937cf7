package exchange

import (
	"context"

	"github.com/alanyoungcy/fundybot/internal/cache/memo"
	"github.com/alanyoungcy/fundybot/internal/domain"
)

// KuCoin reads the futures market. Tickers carry only prices, so 24h
// statistics and funding come from the active contract list.
type KuCoin struct {
	base
}

var _ domain.SourceAdapter = (*KuCoin)(nil)

func NewKuCoin(cfg SourceConfig, deps Deps) *KuCoin {
	return &KuCoin{base: newBase(domain.SourceKuCoin, cfg, deps.withDefaults())}
}

const kucoinOK = "200000"

type kucoinEnvelope[T any] struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data []T    `json:"data"`
}

type kucoinContract struct {
	Symbol                  string `json:"symbol"`
	BaseCurrency            string `json:"baseCurrency"`
	QuoteCurrency           string `json:"quoteCurrency"`
	Status                  string `json:"status"`
	HighPrice               number `json:"highPrice"`
	LowPrice                number `json:"lowPrice"`
	VolumeOf24h             number `json:"volumeOf24h"`
	FundingFeeRate          number `json:"fundingFeeRate"`
	NextFundingRateDateTime number `json:"nextFundingRateDateTime"`
}

type kucoinTicker struct {
	Symbol       string `json:"symbol"`
	Price        number `json:"price"`
	BestBidPrice number `json:"bestBidPrice"`
	BestAskPrice number `json:"bestAskPrice"`
}

func (k *KuCoin) contracts(ctx context.Context, op string) ([]kucoinContract, error) {
	var resp kucoinEnvelope[kucoinContract]
	if err := k.fetch(ctx, op, "/api/v1/contracts/active", nil, &resp); err != nil {
		return nil, err
	}
	if err := k.require(len(resp.Data) > 0, op, "KuCoin contracts error: %s", resp.Msg); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (k *KuCoin) ListInstruments(ctx context.Context) ([]domain.Instrument, error) {
	return memo.Get(ctx, k.cache, k.key(memo.KindInstruments), func(ctx context.Context) ([]domain.Instrument, error) {
		items, err := k.contracts(ctx, "instruments")
		if err != nil {
			return nil, err
		}
		out := make([]domain.Instrument, 0, len(items))
		for _, c := range items {
			if c.Status != "Open" {
				continue
			}
			out = append(out, k.instrument(c.BaseCurrency, c.QuoteCurrency, c.Symbol))
		}
		return out, nil
	})
}

// openContracts is the frequently refreshed contract index used for 24h
// statistics and funding.
func (k *KuCoin) openContracts(ctx context.Context) (map[string]kucoinContract, error) {
	return memo.Get(ctx, k.cache, k.key(memo.KindFunding), func(ctx context.Context) (map[string]kucoinContract, error) {
		items, err := k.contracts(ctx, "funding")
		if err != nil {
			return nil, err
		}
		open := make([]kucoinContract, 0, len(items))
		for _, c := range items {
			if c.Status == "Open" {
				open = append(open, c)
			}
		}
		return indexByCanonical(k.id, open, func(c kucoinContract) string { return c.Symbol }), nil
	})
}

func (k *KuCoin) FetchTickers(ctx context.Context, instruments []domain.Instrument) ([]domain.Ticker, error) {
	tickers, err := memo.Get(ctx, k.cache, k.key(memo.KindTickers), func(ctx context.Context) (map[string]kucoinTicker, error) {
		var resp kucoinEnvelope[kucoinTicker]
		if err := k.fetch(ctx, "tickers", "/api/v1/allTickers", nil, &resp); err != nil {
			return nil, err
		}
		if err := k.require(resp.Code == kucoinOK && resp.Data != nil, "tickers", "KuCoin allTickers error: %s", resp.Msg); err != nil {
			return nil, err
		}
		return indexByCanonical(k.id, resp.Data, func(t kucoinTicker) string { return t.Symbol }), nil
	})
	if err != nil {
		return nil, err
	}
	contracts, err := k.openContracts(ctx)
	if err != nil {
		return nil, err
	}
	return joinByCanonical(instruments, tickers, func(inst domain.Instrument, t kucoinTicker) (domain.Ticker, bool) {
		c, ok := contracts[inst.CanonicalKey()]
		if !ok {
			return domain.Ticker{}, false
		}
		return k.ticker(inst, t.Price, t.BestBidPrice, t.BestAskPrice, c.HighPrice, c.LowPrice, c.VolumeOf24h), true
	}), nil
}

func (k *KuCoin) FetchFundingRates(ctx context.Context, instruments []domain.Instrument) ([]domain.FundingRate, error) {
	contracts, err := k.openContracts(ctx)
	if err != nil {
		return nil, err
	}
	return joinByCanonical(instruments, contracts, func(inst domain.Instrument, c kucoinContract) (domain.FundingRate, bool) {
		return k.funding(inst, c.FundingFeeRate, c.NextFundingRateDateTime.Int64()), true
	}), nil
}
