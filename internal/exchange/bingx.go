package exchange

import (
	"context"

	"github.com/alanyoungcy/fundybot/internal/cache/memo"
	"github.com/alanyoungcy/fundybot/internal/domain"
)

// BingX reads the swap v2 market.
type BingX struct {
	base
}

var _ domain.SourceAdapter = (*BingX)(nil)

func NewBingX(cfg SourceConfig, deps Deps) *BingX {
	return &BingX{base: newBase(domain.SourceBingX, cfg, deps.withDefaults())}
}

type bingxEnvelope[T any] struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data []T    `json:"data"`
}

type bingxContract struct {
	Symbol   string `json:"symbol"`
	Asset    string `json:"asset"`
	Currency string `json:"currency"`
	Status   int    `json:"status"`
}

type bingxTicker struct {
	Symbol    string `json:"symbol"`
	LastPrice number `json:"lastPrice"`
	BestBid   number `json:"bestBid"`
	BestAsk   number `json:"bestAsk"`
	High24h   number `json:"high24h"`
	Low24h    number `json:"low24h"`
	Volume24h number `json:"volume24h"`
}

type bingxPremiumIndex struct {
	Symbol          string `json:"symbol"`
	LastFundingRate number `json:"lastFundingRate"`
	NextFundingTime number `json:"nextFundingTime"`
}

func (b *BingX) ListInstruments(ctx context.Context) ([]domain.Instrument, error) {
	return memo.Get(ctx, b.cache, b.key(memo.KindInstruments), func(ctx context.Context) ([]domain.Instrument, error) {
		var resp bingxEnvelope[bingxContract]
		if err := b.fetch(ctx, "instruments", "/openApi/swap/v2/quote/contracts", nil, &resp); err != nil {
			return nil, err
		}
		if err := b.require(resp.Code == 0 && resp.Data != nil, "instruments", "BingX instruments error: %s", resp.Msg); err != nil {
			return nil, err
		}
		out := make([]domain.Instrument, 0, len(resp.Data))
		for _, c := range resp.Data {
			if c.Status != 1 {
				continue
			}
			out = append(out, b.instrument(c.Asset, c.Currency, c.Symbol))
		}
		return out, nil
	})
}

func (b *BingX) FetchTickers(ctx context.Context, instruments []domain.Instrument) ([]domain.Ticker, error) {
	idx, err := memo.Get(ctx, b.cache, b.key(memo.KindTickers), func(ctx context.Context) (map[string]bingxTicker, error) {
		var resp bingxEnvelope[bingxTicker]
		if err := b.fetch(ctx, "tickers", "/openApi/swap/v2/quote/ticker", nil, &resp); err != nil {
			return nil, err
		}
		if err := b.require(resp.Code == 0 && resp.Data != nil, "tickers", "BingX tickers error: %s", resp.Msg); err != nil {
			return nil, err
		}
		return indexByCanonical(b.id, resp.Data, func(t bingxTicker) string { return t.Symbol }), nil
	})
	if err != nil {
		return nil, err
	}
	return joinByCanonical(instruments, idx, func(inst domain.Instrument, t bingxTicker) (domain.Ticker, bool) {
		return b.ticker(inst, t.LastPrice, t.BestBid, t.BestAsk, t.High24h, t.Low24h, t.Volume24h), true
	}), nil
}

func (b *BingX) FetchFundingRates(ctx context.Context, instruments []domain.Instrument) ([]domain.FundingRate, error) {
	idx, err := memo.Get(ctx, b.cache, b.key(memo.KindFunding), func(ctx context.Context) (map[string]bingxPremiumIndex, error) {
		var resp bingxEnvelope[bingxPremiumIndex]
		if err := b.fetch(ctx, "funding", "/openApi/swap/v2/quote/premiumIndex", nil, &resp); err != nil {
			return nil, err
		}
		if err := b.require(resp.Code == 0 && resp.Data != nil, "funding", "BingX premiumIndex error: %s", resp.Msg); err != nil {
			return nil, err
		}
		return indexByCanonical(b.id, resp.Data, func(p bingxPremiumIndex) string { return p.Symbol }), nil
	})
	if err != nil {
		return nil, err
	}
	return joinByCanonical(instruments, idx, func(inst domain.Instrument, p bingxPremiumIndex) (domain.FundingRate, bool) {
		return b.funding(inst, p.LastFundingRate, p.NextFundingTime.Int64()), true
	}), nil
}
