package exchange

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/alanyoungcy/fundybot/internal/cache/memo"
	"github.com/alanyoungcy/fundybot/internal/domain"
)

// Bitget reads the mix (futures) market. The v1 tickers carry the funding
// rate; the next funding time is derived from the funding interval and
// cross-checked against the v2 funding metadata.
type Bitget struct {
	base
	productType string
}

var _ domain.SourceAdapter = (*Bitget)(nil)

func NewBitget(cfg SourceConfig, deps Deps) *Bitget {
	pt := strings.ToLower(strings.TrimSpace(cfg.ProductType))
	if pt == "" {
		pt = "umcbl"
	}
	return &Bitget{base: newBase(domain.SourceBitget, cfg, deps.withDefaults()), productType: pt}
}

const (
	bitgetOK                  = "00000"
	bitgetDefaultIntervalHour = 8
)

type bitgetEnvelope[T any] struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data []T    `json:"data"`
}

type bitgetContract struct {
	Symbol       string `json:"symbol"`
	BaseCoin     string `json:"baseCoin"`
	QuoteCoin    string `json:"quoteCoin"`
	SymbolStatus string `json:"symbolStatus"`
}

type bitgetTicker struct {
	Symbol      string `json:"symbol"`
	Last        number `json:"last"`
	BestBid     number `json:"bestBid"`
	BestAsk     number `json:"bestAsk"`
	High24h     number `json:"high24h"`
	Low24h      number `json:"low24h"`
	BaseVolume  number `json:"baseVolume"`
	FundingRate number `json:"fundingRate"`
}

type bitgetFundingMeta struct {
	Symbol              string `json:"symbol"`
	FundingRate         number `json:"fundingRate"`
	FundingRateInterval number `json:"fundingRateInterval"`
	NextUpdate          number `json:"nextUpdate"`
}

// v2ProductType maps a v1 product type onto the v2 naming.
func v2ProductType(v1 string) string {
	switch v1 {
	case "dmcbl":
		return "usdc-futures"
	case "cmcbl":
		return "coin-futures"
	default:
		return "usdt-futures"
	}
}

func (b *Bitget) ListInstruments(ctx context.Context) ([]domain.Instrument, error) {
	return memo.Get(ctx, b.cache, b.key(memo.KindInstruments), func(ctx context.Context) ([]domain.Instrument, error) {
		var resp bitgetEnvelope[bitgetContract]
		params := url.Values{"productType": {b.productType}}
		if err := b.fetch(ctx, "instruments", "/api/mix/v1/market/contracts", params, &resp); err != nil {
			return nil, err
		}
		if err := b.require(resp.Code == bitgetOK && resp.Data != nil, "instruments", "Bitget instruments error: %s", resp.Msg); err != nil {
			return nil, err
		}
		out := make([]domain.Instrument, 0, len(resp.Data))
		for _, c := range resp.Data {
			if c.SymbolStatus != "" && c.SymbolStatus != "normal" {
				continue
			}
			out = append(out, b.instrument(c.BaseCoin, c.QuoteCoin, c.Symbol))
		}
		return out, nil
	})
}

func (b *Bitget) tickers(ctx context.Context) (map[string]bitgetTicker, error) {
	return memo.Get(ctx, b.cache, b.key(memo.KindTickers), func(ctx context.Context) (map[string]bitgetTicker, error) {
		var resp bitgetEnvelope[bitgetTicker]
		params := url.Values{"productType": {b.productType}}
		if err := b.fetch(ctx, "tickers", "/api/mix/v1/market/tickers", params, &resp); err != nil {
			return nil, err
		}
		if err := b.require(resp.Code == bitgetOK && resp.Data != nil, "tickers", "Bitget tickers error: %s", resp.Msg); err != nil {
			return nil, err
		}
		return indexByCanonical(b.id, resp.Data, func(t bitgetTicker) string { return t.Symbol }), nil
	})
}

func (b *Bitget) fundingMeta(ctx context.Context) (map[string]bitgetFundingMeta, error) {
	return memo.Get(ctx, b.cache, b.key(memo.KindFundingMeta), func(ctx context.Context) (map[string]bitgetFundingMeta, error) {
		var resp bitgetEnvelope[bitgetFundingMeta]
		params := url.Values{"productType": {v2ProductType(b.productType)}}
		if err := b.fetch(ctx, "funding-meta", "/api/v2/mix/market/current-fund-rate", params, &resp); err != nil {
			return nil, err
		}
		if err := b.require(resp.Code == bitgetOK && resp.Data != nil, "funding-meta", "Bitget current-fund-rate error: %s", resp.Msg); err != nil {
			return nil, err
		}
		return indexByCanonical(b.id, resp.Data, func(m bitgetFundingMeta) string { return m.Symbol }), nil
	})
}

func (b *Bitget) FetchTickers(ctx context.Context, instruments []domain.Instrument) ([]domain.Ticker, error) {
	idx, err := b.tickers(ctx)
	if err != nil {
		return nil, err
	}
	return joinByCanonical(instruments, idx, func(inst domain.Instrument, t bitgetTicker) (domain.Ticker, bool) {
		return b.ticker(inst, t.Last, t.BestBid, t.BestAsk, t.High24h, t.Low24h, t.BaseVolume), true
	}), nil
}

// FetchFundingRates takes the rate from the ticker feed. The next funding
// time is the aligned interval boundary, replaced by the metadata timestamp
// when the two agree. Missing metadata is tolerated.
func (b *Bitget) FetchFundingRates(ctx context.Context, instruments []domain.Instrument) ([]domain.FundingRate, error) {
	idx, err := b.tickers(ctx)
	if err != nil {
		return nil, err
	}
	meta, err := b.fundingMeta(ctx)
	if err != nil {
		b.logger.WarnContext(ctx, "bitget: funding metadata unavailable, using aligned interval",
			slog.String("error", err.Error()),
		)
		meta = nil
	}

	return joinByCanonical(instruments, idx, func(inst domain.Instrument, t bitgetTicker) (domain.FundingRate, bool) {
		hours := bitgetDefaultIntervalHour
		var metaNext int64
		if m, ok := meta[inst.CanonicalKey()]; ok {
			if h := int(m.FundingRateInterval.Int64()); h > 0 {
				hours = h
			}
			metaNext = m.NextUpdate.Int64()
		}
		next := b.times.Reconcile(b.times.NextAligned(hours), metaNext)
		return b.funding(inst, t.FundingRate, b.times.Normalize(next)), true
	}), nil
}
