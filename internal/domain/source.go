package domain

import (
	"context"
	"strings"
)

// SourceID names one upstream exchange.
type SourceID string

const (
	SourceBybit  SourceID = "BYBIT"
	SourceMEXC   SourceID = "MEXC"
	SourceKuCoin SourceID = "KUCOIN"
	SourceBitget SourceID = "BITGET"
	SourceHTX    SourceID = "HTX"
	SourceOKX    SourceID = "OKX"
	SourceGateIO SourceID = "GATEIO"
	SourceCoinEx SourceID = "COINEX"
	SourceBingX  SourceID = "BINGX"
)

// AllSources lists every supported exchange in display order.
var AllSources = []SourceID{
	SourceBybit, SourceMEXC, SourceKuCoin, SourceBitget, SourceHTX,
	SourceOKX, SourceGateIO, SourceCoinEx, SourceBingX,
}

func (s SourceID) String() string { return string(s) }

// ParseSource resolves a case-insensitive exchange name.
func ParseSource(name string) (SourceID, error) {
	id := SourceID(strings.ToUpper(strings.TrimSpace(name)))
	for _, s := range AllSources {
		if s == id {
			return s, nil
		}
	}
	return "", &ConfigurationError{Source: name, Err: ErrUnknownSource}
}

// ParseSources resolves a list of names. An empty list means every source.
// Duplicates are dropped and the result keeps AllSources order.
func ParseSources(names []string) ([]SourceID, error) {
	if len(names) == 0 {
		return append([]SourceID(nil), AllSources...), nil
	}
	want := make(map[SourceID]bool, len(names))
	for _, n := range names {
		id, err := ParseSource(n)
		if err != nil {
			return nil, err
		}
		want[id] = true
	}
	out := make([]SourceID, 0, len(want))
	for _, s := range AllSources {
		if want[s] {
			out = append(out, s)
		}
	}
	return out, nil
}

// SourceAdapter exposes one exchange's perpetual market data.
//
// FetchTickers and FetchFundingRates join the requested instruments against
// the upstream payload by canonical key. Instruments the exchange does not
// report are omitted from the result.
type SourceAdapter interface {
	SourceID() SourceID
	Enabled() bool
	ListInstruments(ctx context.Context) ([]Instrument, error)
	FetchTickers(ctx context.Context, instruments []Instrument) ([]Ticker, error)
	FetchFundingRates(ctx context.Context, instruments []Instrument) ([]FundingRate, error)
}
