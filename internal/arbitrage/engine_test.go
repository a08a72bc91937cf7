package arbitrage

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/fundybot/internal/domain"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func entry(src domain.SourceID, price, funding string, next int64) domain.BucketEntry {
	e := domain.BucketEntry{Symbol: "BTC/USDT", Source: src, Price: d(price), NextFundingTimeMs: next}
	if funding != "" {
		e.FundingRate = decimal.NewNullDecimal(d(funding))
	}
	return e
}

func group(sym string, entries ...domain.BucketEntry) domain.SymbolGroup {
	for i := range entries {
		entries[i].Symbol = sym
	}
	return domain.SymbolGroup{Symbol: sym, Entries: entries}
}

func TestAnalyzeScenario(t *testing.T) {
	g := group("BTC/USDT",
		entry("A", "50000", "0.0001", 1000),
		entry("B", "50100", "0.0005", 2000),
	)

	rec, ok := Analyze(g)
	require.True(t, ok)
	assert.Equal(t, "BTC/USDT", rec.Token)
	assert.True(t, d("0.002").Equal(rec.PriceSpread), rec.PriceSpread.String())
	assert.True(t, d("0.0004").Equal(rec.FundingSpread), rec.FundingSpread.String())
	assert.Equal(t, domain.Decision{LongSource: "A", ShortSource: "B"}, rec.Decision)
	assert.True(t, d("50000").Equal(rec.Prices["A"]))
	assert.Equal(t, int64(2000), rec.NextFunding["B"])
}

func TestAnalyzeRejectsSinglePrice(t *testing.T) {
	g := group("BTC/USDT",
		entry("A", "50000", "0.0001", 0),
		entry("B", "50000.00", "0.0005", 0),
	)
	_, ok := Analyze(g)
	assert.False(t, ok)
}

func TestAnalyzeRejectsSingleFunding(t *testing.T) {
	tests := []struct {
		name  string
		group domain.SymbolGroup
	}{
		{"one funding present", group("X", entry("A", "1", "0.001", 0), entry("B", "2", "", 0))},
		{"equal fundings", group("X", entry("A", "1", "0.001", 0), entry("B", "2", "0.0010", 0))},
		{"single entry", group("X", entry("A", "1", "0.001", 0))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := Analyze(tt.group)
			assert.False(t, ok)
		})
	}
}

func TestAnalyzeRejectsWhenCheaperLegHasNoFunding(t *testing.T) {
	// Two distinct fundings exist but only on legs where the cheaper one has
	// none, so no long/short pair qualifies.
	g := group("X",
		entry("A", "1", "", 0),
		entry("B", "2", "0.001", 0),
		entry("C", "2", "0.002", 0),
	)
	_, ok := Analyze(g)
	assert.False(t, ok)
}

func TestBestPairPrefersHighestScore(t *testing.T) {
	g := group("ETH/USDT",
		entry("A", "100", "0.0010", 0),
		entry("B", "101", "0.0001", 0),
		entry("C", "102", "0.0030", 0),
	)
	rec, ok := Analyze(g)
	require.True(t, ok)
	// B->C: 0.0029 + 0.0099 = 0.0128, A->C: 0.0020 + 0.02 = 0.022, A->B: -0.0009 + 0.01.
	assert.Equal(t, domain.Decision{LongSource: "A", ShortSource: "C"}, rec.Decision)
	assert.True(t, d("0.02").Equal(rec.PriceSpread))
	assert.True(t, d("0.0029").Equal(rec.FundingSpread))
}

func TestBestPairFirstFoundWinsTies(t *testing.T) {
	g := group("X",
		entry("A", "100", "0.001", 0),
		entry("B", "110", "0.002", 0),
		entry("C", "110", "0.002", 0),
	)
	rec, ok := Analyze(g)
	require.True(t, ok)
	assert.Equal(t, domain.Decision{LongSource: "A", ShortSource: "B"}, rec.Decision)
}

func TestAnalyzeRecordMaps(t *testing.T) {
	g := group("X",
		entry("A", "100", "0.001", 500),
		entry("A", "105", "0.003", 300),
		entry("B", "110", "0.002", 900),
	)
	rec, ok := Analyze(g)
	require.True(t, ok)
	assert.True(t, d("100").Equal(rec.Prices["A"]), "first price per source")
	assert.True(t, d("0.003").Equal(rec.FundingRates["A"]), "max funding per source")
	assert.Equal(t, int64(300), rec.NextFunding["A"], "earliest funding per source")
}

func TestRoundSignificant(t *testing.T) {
	tests := []struct{ in, want string }{
		{"0.0020000000001", "0.002"},
		{"123456789", "123456790"},
		{"-123456789", "-123456790"},
		{"-99999999.5", "-100000000"},
		{"1.234567845", "1.2345678"},
		{"1.234567850", "1.2345679"},
		{"-0.000123456785", "-0.00012345679"},
		{"0", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := roundSignificant(d(tt.in))
			assert.True(t, d(tt.want).Equal(got), got.String())
		})
	}
}

func TestEvaluateFiltersAndSorts(t *testing.T) {
	groups := []domain.SymbolGroup{
		group("LOW/USDT", entry("A", "100", "0.0001", 0), entry("B", "101", "0.0002", 0)),
		group("HIGH/USDT", entry("A", "100", "0.0001", 0), entry("B", "100.5", "0.0050", 0)),
		group("MID/USDT", entry("A", "100", "0.0001", 0), entry("B", "110", "0.0011", 0)),
		group("NONE/USDT", entry("A", "100", "0.0001", 0)),
	}

	all := Evaluate(groups, Filter{})
	require.Len(t, all, 3)
	assert.Equal(t, []string{"HIGH/USDT", "MID/USDT", "LOW/USDT"}, tokens(all))

	filtered := Evaluate(groups, Filter{MinFundingSpread: d("0.0005"), MinPriceSpread: d("0.01")})
	assert.Equal(t, []string{"MID/USDT"}, tokens(filtered))
}

func TestEvaluateInvariants(t *testing.T) {
	groups := []domain.SymbolGroup{
		group("A/USDT", entry("X", "10", "0.01", 0), entry("Y", "9", "-0.01", 0), entry("Z", "11", "0", 0)),
		group("B/USDT", entry("X", "1", "0.0001", 0), entry("Y", "1.5", "0.0002", 0)),
	}
	for _, rec := range Evaluate(groups, Filter{}) {
		assert.False(t, rec.PriceSpread.IsNegative())
		long, short := rec.Prices[rec.Decision.LongSource], rec.Prices[rec.Decision.ShortSource]
		assert.True(t, long.LessThan(short))
	}
}

func tokens(recs []domain.ArbitrageRecord) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Token)
	}
	return out
}
