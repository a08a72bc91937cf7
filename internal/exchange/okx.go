package exchange

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/fundybot/internal/cache/memo"
	"github.com/alanyoungcy/fundybot/internal/domain"
)

// OKX reads the v5 SWAP market. Funding is only published per instrument.
type OKX struct {
	base
	fundingConcurrency int
}

var _ domain.SourceAdapter = (*OKX)(nil)

func NewOKX(cfg SourceConfig, deps Deps) *OKX {
	deps = deps.withDefaults()
	return &OKX{base: newBase(domain.SourceOKX, cfg, deps), fundingConcurrency: deps.FundingConcurrency}
}

type okxEnvelope[T any] struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data []T    `json:"data"`
}

type okxInstrument struct {
	InstID   string `json:"instId"`
	InstType string `json:"instType"`
	State    string `json:"state"`
}

type okxTicker struct {
	InstID  string `json:"instId"`
	Last    number `json:"last"`
	BidPx   number `json:"bidPx"`
	AskPx   number `json:"askPx"`
	High24h number `json:"high24h"`
	Low24h  number `json:"low24h"`
	Vol24h  number `json:"vol24h"`
}

type okxFunding struct {
	InstID          string `json:"instId"`
	FundingRate     number `json:"fundingRate"`
	NextFundingTime number `json:"nextFundingTime"`
	FundingTime     number `json:"fundingTime"`
}

func swapParams() url.Values {
	return url.Values{"instType": {"SWAP"}}
}

func (o *OKX) ListInstruments(ctx context.Context) ([]domain.Instrument, error) {
	return memo.Get(ctx, o.cache, o.key(memo.KindInstruments), func(ctx context.Context) ([]domain.Instrument, error) {
		var resp okxEnvelope[okxInstrument]
		if err := o.fetch(ctx, "instruments", "/api/v5/public/instruments", swapParams(), &resp); err != nil {
			return nil, err
		}
		if err := o.require(resp.Code == "0" && resp.Data != nil, "instruments", "OKX instruments error: %s", resp.Msg); err != nil {
			return nil, err
		}
		out := make([]domain.Instrument, 0, len(resp.Data))
		for _, it := range resp.Data {
			if it.InstType != "SWAP" || it.State != "live" {
				continue
			}
			parts := strings.Split(it.InstID, "-")
			if len(parts) < 2 {
				continue
			}
			out = append(out, o.instrument(parts[0], parts[1], it.InstID))
		}
		return out, nil
	})
}

func (o *OKX) tickers(ctx context.Context) (map[string]okxTicker, error) {
	return memo.Get(ctx, o.cache, o.key(memo.KindTickers), func(ctx context.Context) (map[string]okxTicker, error) {
		var resp okxEnvelope[okxTicker]
		if err := o.fetch(ctx, "tickers", "/api/v5/market/tickers", swapParams(), &resp); err != nil {
			return nil, err
		}
		if err := o.require(resp.Code == "0" && resp.Data != nil, "tickers", "OKX all-tickers error: %s", resp.Msg); err != nil {
			return nil, err
		}
		return indexByCanonical(o.id, resp.Data, func(t okxTicker) string { return t.InstID }), nil
	})
}

func (o *OKX) FetchTickers(ctx context.Context, instruments []domain.Instrument) ([]domain.Ticker, error) {
	idx, err := o.tickers(ctx)
	if err != nil {
		return nil, err
	}
	return joinByCanonical(instruments, idx, func(inst domain.Instrument, t okxTicker) (domain.Ticker, bool) {
		return o.ticker(inst, t.Last, t.BidPx, t.AskPx, t.High24h, t.Low24h, t.Vol24h), true
	}), nil
}

func (o *OKX) fundingFor(ctx context.Context, instID string) (okxFunding, error) {
	key := o.key(memo.KindFunding)
	key.Sub = instID
	return memo.Get(ctx, o.cache, key, func(ctx context.Context) (okxFunding, error) {
		var resp okxEnvelope[okxFunding]
		if err := o.fetch(ctx, "funding", "/api/v5/public/funding-rate", url.Values{"instId": {instID}}, &resp); err != nil {
			return okxFunding{}, err
		}
		if err := o.require(resp.Code == "0" && len(resp.Data) > 0, "funding", "OKX funding error for %s: %s", instID, resp.Msg); err != nil {
			return okxFunding{}, err
		}
		return resp.Data[0], nil
	})
}

// FetchFundingRates requests each instrument separately with bounded
// concurrency. Instruments whose request fails are left out.
func (o *OKX) FetchFundingRates(ctx context.Context, instruments []domain.Instrument) ([]domain.FundingRate, error) {
	results := make([]*domain.FundingRate, len(instruments))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.fundingConcurrency)
	for i, inst := range instruments {
		g.Go(func() error {
			instID := nativeOr(inst, inst.BaseAsset+"-"+inst.QuoteAsset+"-SWAP")
			f, err := o.fundingFor(gctx, instID)
			if err != nil {
				o.logger.WarnContext(ctx, "okx: funding fetch failed",
					slog.String("instrument", inst.CanonicalKey()),
					slog.String("error", err.Error()),
				)
				return nil
			}
			next := f.NextFundingTime.Int64()
			if next <= 0 {
				next = f.FundingTime.Int64()
			}
			fr := o.funding(inst, f.FundingRate, next)
			results[i] = &fr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]domain.FundingRate, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, nil
}
