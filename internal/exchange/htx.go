package exchange

import (
	"context"
	"strings"

	"github.com/alanyoungcy/fundybot/internal/cache/memo"
	"github.com/alanyoungcy/fundybot/internal/domain"
)

// HTX reads the USDT-margined linear swap market.
type HTX struct {
	base
}

var _ domain.SourceAdapter = (*HTX)(nil)

func NewHTX(cfg SourceConfig, deps Deps) *HTX {
	return &HTX{base: newBase(domain.SourceHTX, cfg, deps.withDefaults())}
}

type htxEnvelope[T any] struct {
	Status string `json:"status"`
	ErrMsg string `json:"err_msg"`
	Data   []T    `json:"data"`
}

type htxContract struct {
	ContractCode   string `json:"contract_code"`
	ContractStatus int    `json:"contract_status"`
}

type htxBatch struct {
	Status string    `json:"status"`
	ErrMsg string    `json:"err_msg"`
	Ticks  []htxTick `json:"ticks"`
}

type htxTick struct {
	ContractCode string   `json:"contract_code"`
	Close        number   `json:"close"`
	High         number   `json:"high"`
	Low          number   `json:"low"`
	Vol          number   `json:"vol"`
	Ask          []number `json:"ask"`
	Bid          []number `json:"bid"`
}

type htxFunding struct {
	ContractCode string `json:"contract_code"`
	FundingRate  number `json:"funding_rate"`
	FundingTime  number `json:"funding_time"`
}

// bookTop returns the price of a [price, size] book level.
func bookTop(level []number) number {
	if len(level) == 0 {
		return ""
	}
	return level[0]
}

func (h *HTX) ListInstruments(ctx context.Context) ([]domain.Instrument, error) {
	return memo.Get(ctx, h.cache, h.key(memo.KindInstruments), func(ctx context.Context) ([]domain.Instrument, error) {
		var resp htxEnvelope[htxContract]
		if err := h.fetch(ctx, "instruments", "/linear-swap-api/v1/swap_contract_info", nil, &resp); err != nil {
			return nil, err
		}
		if err := h.require(resp.Status == "ok" && resp.Data != nil, "instruments", "HTX instruments error: %s", resp.ErrMsg); err != nil {
			return nil, err
		}
		out := make([]domain.Instrument, 0, len(resp.Data))
		for _, c := range resp.Data {
			if c.ContractStatus != 1 {
				continue
			}
			parts := strings.Split(c.ContractCode, "-")
			if len(parts) < 2 {
				continue
			}
			out = append(out, h.instrument(parts[0], parts[1], c.ContractCode))
		}
		return out, nil
	})
}

func (h *HTX) FetchTickers(ctx context.Context, instruments []domain.Instrument) ([]domain.Ticker, error) {
	idx, err := memo.Get(ctx, h.cache, h.key(memo.KindTickers), func(ctx context.Context) (map[string]htxTick, error) {
		var resp htxBatch
		if err := h.fetch(ctx, "tickers", "/linear-swap-ex/market/detail/batch_merged", nil, &resp); err != nil {
			return nil, err
		}
		if err := h.require(resp.Status == "ok" && resp.Ticks != nil, "tickers", "HTX batch_merged error: %s", resp.ErrMsg); err != nil {
			return nil, err
		}
		return indexByCanonical(h.id, resp.Ticks, func(t htxTick) string { return t.ContractCode }), nil
	})
	if err != nil {
		return nil, err
	}
	return joinByCanonical(instruments, idx, func(inst domain.Instrument, t htxTick) (domain.Ticker, bool) {
		return h.ticker(inst, t.Close, bookTop(t.Bid), bookTop(t.Ask), t.High, t.Low, t.Vol), true
	}), nil
}

func (h *HTX) FetchFundingRates(ctx context.Context, instruments []domain.Instrument) ([]domain.FundingRate, error) {
	idx, err := memo.Get(ctx, h.cache, h.key(memo.KindFunding), func(ctx context.Context) (map[string]htxFunding, error) {
		var resp htxEnvelope[htxFunding]
		if err := h.fetch(ctx, "funding", "/linear-swap-api/v1/swap_batch_funding_rate", nil, &resp); err != nil {
			return nil, err
		}
		if err := h.require(resp.Status == "ok" && resp.Data != nil, "funding", "HTX funding error: %s", resp.ErrMsg); err != nil {
			return nil, err
		}
		return indexByCanonical(h.id, resp.Data, func(f htxFunding) string { return f.ContractCode }), nil
	})
	if err != nil {
		return nil, err
	}
	return joinByCanonical(instruments, idx, func(inst domain.Instrument, f htxFunding) (domain.FundingRate, bool) {
		return h.funding(inst, f.FundingRate, f.FundingTime.Int64()), true
	}), nil
}
