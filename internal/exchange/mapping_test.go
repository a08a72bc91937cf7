package exchange

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/fundybot/internal/domain"
)

type item struct {
	sym string
	val int
}

func TestIndexByCanonicalFirstSeenWins(t *testing.T) {
	items := []item{{"BTCUSDT", 1}, {"btcusdt", 2}, {"ETHUSDT", 3}}
	idx := indexByCanonical(domain.SourceBybit, items, func(i item) string { return i.sym })

	require.Len(t, idx, 2)
	assert.Equal(t, 1, idx["BTC/USDT"].val)
	assert.Equal(t, 3, idx["ETH/USDT"].val)
}

func TestJoinByCanonicalDropsUnmatched(t *testing.T) {
	idx := map[string]item{"BTC/USDT": {"BTCUSDT", 1}}
	instruments := []domain.Instrument{
		{BaseAsset: "BTC", QuoteAsset: "USDT"},
		{BaseAsset: "DOGE", QuoteAsset: "USDT"},
	}
	got := joinByCanonical(instruments, idx, func(inst domain.Instrument, it item) (int, bool) {
		return it.val, true
	})
	assert.Equal(t, []int{1}, got)
}

func TestParseDecimalRecoversToZero(t *testing.T) {
	assert.True(t, parseDecimal("").IsZero())
	assert.True(t, parseDecimal("  ").IsZero())
	assert.True(t, parseDecimal("n/a").IsZero())
	assert.True(t, decimal.RequireFromString("0.0001").Equal(parseDecimal(" 0.0001 ")))
}

func TestParseInt64(t *testing.T) {
	assert.Equal(t, int64(1709280000000), parseInt64("1709280000000"))
	assert.Equal(t, int64(1709280000000), parseInt64("1.70928e12"))
	assert.Equal(t, int64(0), parseInt64("soon"))
}

func TestNumberAcceptsStringsNumbersAndNull(t *testing.T) {
	var v struct {
		A number `json:"a"`
		B number `json:"b"`
		C number `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"1.5","b":2.25,"c":null}`), &v))
	assert.Equal(t, "1.5", v.A.Decimal().String())
	assert.Equal(t, "2.25", v.B.Decimal().String())
	assert.True(t, v.C.Decimal().IsZero())
}
