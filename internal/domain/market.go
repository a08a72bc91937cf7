package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// InstrumentType classifies a contract.
type InstrumentType string

const (
	InstrumentPerpetual InstrumentType = "PERPETUAL"
)

// CanonicalKey joins a base and quote asset into the cross-exchange
// identity "BASE/QUOTE".
func CanonicalKey(base, quote string) string {
	return strings.ToUpper(base) + "/" + strings.ToUpper(quote)
}

// Instrument is a tradable contract as listed by one source.
type Instrument struct {
	BaseAsset    string         `json:"baseAsset"`
	QuoteAsset   string         `json:"quoteAsset"`
	Type         InstrumentType `json:"type"`
	NativeSymbol string         `json:"nativeSymbol"`
	Source       SourceID       `json:"exchange"`
}

// CanonicalKey returns the instrument's "BASE/QUOTE" identity built from its
// listed assets.
func (i Instrument) CanonicalKey() string {
	return CanonicalKey(i.BaseAsset, i.QuoteAsset)
}

// Ticker is a point-in-time price snapshot.
type Ticker struct {
	Instrument   Instrument      `json:"instrument"`
	Last         decimal.Decimal `json:"lastPrice"`
	Bid          decimal.Decimal `json:"bidPrice"`
	Ask          decimal.Decimal `json:"askPrice"`
	High24h      decimal.Decimal `json:"high24h"`
	Low24h       decimal.Decimal `json:"low24h"`
	Volume24h    decimal.Decimal `json:"volume24h"`
	ObservedAtMs int64           `json:"timestamp"`
}

// FundingRate is the current funding rate of one instrument. Rate is a
// fraction: 0.0003 means 0.03%.
type FundingRate struct {
	Source            SourceID        `json:"exchange"`
	Instrument        Instrument      `json:"instrument"`
	Rate              decimal.Decimal `json:"fundingRate"`
	NextFundingTimeMs int64           `json:"nextFundingTimeMs"`
}

// BucketEntry is one source's observation of a canonical pair within a scan.
type BucketEntry struct {
	Symbol            string              `json:"symbol"`
	Source            SourceID            `json:"exchange"`
	Price             decimal.Decimal     `json:"price"`
	FundingRate       decimal.NullDecimal `json:"fundingRate"`
	NextFundingTimeMs int64               `json:"nextFundingTimeMs"`
}

// SymbolGroup holds every BucketEntry observed for one canonical pair, in
// source order.
type SymbolGroup struct {
	Symbol  string
	Entries []BucketEntry
}
