package symbol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/fundybot/internal/domain"
)

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		raw    string
		want   string
		wantOK bool
	}{
		{" btc/usdt ", "BTC/USDT", true},
		{"$WIF/USDT", "WIF/USDT", true},
		{"1KSHIB/USDT", "1000SHIB/USDT", true},
		{"1MBABYDOGE/USDT", "1000000BABYDOGE/USDT", true},
		{"1000PEPE/USDT", "1000PEPE/USDT", true},
		{"AINBSC/USDC", "AIN/USDC", true},
		{"BTC/EUR", "", false},
		{"/USDT", "", false},
		{"BTC/", "", false},
		{"BTCUSDT", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := NormalizeKey(tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsPerpSymbol(t *testing.T) {
	tests := []struct {
		source domain.SourceID
		sym    string
		want   bool
	}{
		{domain.SourceBybit, "BTCUSDT", true},
		{domain.SourceBybit, "BTCPERP", true},
		{domain.SourceBybit, "BTCUSDT-27DEC24", false},
		{domain.SourceBybit, "BTCUSD", false},
		{domain.SourceOKX, "BTC-USDT-SWAP", true},
		{domain.SourceOKX, "BTC-USDT", false},
		{domain.SourceKuCoin, "XBTUSDTM", true},
		{domain.SourceKuCoin, "XBTUSDT", false},
		{domain.SourceBitget, "BTCUSDT_UMCBL", true},
		{domain.SourceBitget, "BTCUSDT_DMCBL", false},
		{domain.SourceBingX, "BTC-USDT", true},
		{domain.SourceHTX, "BTC-USD", false},
		{domain.SourceGateIO, "BTC_USDT", true},
		{domain.SourceMEXC, "BTC_USD", true},
		{domain.SourceCoinEx, "BTCUSDT", true},
		{domain.SourceCoinEx, "BTCUSD", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.source)+"/"+tt.sym, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPerpSymbol(tt.source, tt.sym))
		})
	}
}

func TestNormalizeUniverse(t *testing.T) {
	raw := RawUniverse{}
	raw.Add("BTC/USDT", domain.SourceBybit, "BTCUSDT")
	raw.Add("BTC/USDT", domain.SourceOKX, "BTC-USDT-SWAP")
	raw.Add("BTC/USDT", domain.SourceKuCoin, "XBTUSDT") // not a perp symbol
	raw.Add("$BTC/USDT", domain.SourceGateIO, "$BTC_USDT")
	raw.Add("ETH/EUR", domain.SourceBybit, "ETHEUR")
	raw.Add("1KSHIB/USDT", domain.SourceBingX, "1KSHIB-USDT")
	raw.Add("DEAD/USDT", domain.SourceOKX, "DEAD-USDT")

	got := NormalizeUniverse(raw)
	require.Len(t, got, 2)

	assert.Equal(t, "1000SHIB/USDT", got[0].Token)
	assert.Equal(t, []domain.SourceID{domain.SourceBingX}, got[0].Exchanges)

	btc := got[1]
	assert.Equal(t, "BTC/USDT", btc.Token)
	assert.Equal(t, []domain.SourceID{domain.SourceBybit, domain.SourceOKX, domain.SourceGateIO}, btc.Exchanges)
	assert.Equal(t, 3, btc.Coverage)
	assert.Equal(t, "BTC_USDT", btc.NativeSymbols[domain.SourceGateIO])
}
