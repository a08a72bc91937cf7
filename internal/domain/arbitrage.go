package domain

import "github.com/shopspring/decimal"

// Decision names the exchange to go long on and the one to go short on.
type Decision struct {
	LongSource  SourceID `json:"longExchange"`
	ShortSource SourceID `json:"shortExchange"`
}

// ArbitrageRecord describes one cross-exchange opportunity.
type ArbitrageRecord struct {
	Token         string                       `json:"token"`
	Prices        map[SourceID]decimal.Decimal `json:"prices"`
	FundingRates  map[SourceID]decimal.Decimal `json:"fundingRates"`
	NextFunding   map[SourceID]int64           `json:"nextFundingTs"`
	PriceSpread   decimal.Decimal              `json:"priceSpread"`
	FundingSpread decimal.Decimal              `json:"fundingSpread"`
	Decision      Decision                     `json:"decision"`
}
