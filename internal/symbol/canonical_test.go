package symbol

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alanyoungcy/fundybot/internal/domain"
)

func TestCanonicalKey(t *testing.T) {
	tests := []struct {
		name   string
		source domain.SourceID
		native string
		want   string
	}{
		{"bybit suffix", domain.SourceBybit, "BTCUSDT", "BTC/USDT"},
		{"bybit usdc", domain.SourceBybit, "ETHUSDC", "ETH/USDC"},
		{"okx swap", domain.SourceOKX, "BTC-USDT-SWAP", "BTC/USDT"},
		{"okx plain", domain.SourceOKX, "ETH-USD", "ETH/USD"},
		{"gate underscore", domain.SourceGateIO, "BTC_USDT", "BTC/USDT"},
		{"mexc underscore", domain.SourceMEXC, "SOL_USDT", "SOL/USDT"},
		{"bingx dash", domain.SourceBingX, "DOGE-USDT", "DOGE/USDT"},
		{"htx dash", domain.SourceHTX, "BTC-USDT", "BTC/USDT"},
		{"kucoin contract letter", domain.SourceKuCoin, "XBTUSDTM", "XBT/USDT"},
		{"kucoin usd", domain.SourceKuCoin, "ETHUSDM", "ETH/USD"},
		{"bitget product suffix", domain.SourceBitget, "BTCUSDT_UMCBL", "BTC/USDT"},
		{"coinex suffix", domain.SourceCoinEx, "ADAUSDT", "ADA/USDT"},
		{"longest quote wins", domain.SourceBybit, "BTCUSDC", "BTC/USDC"},
		{"fdusd before usd", domain.SourceBybit, "BNBFDUSD", "BNB/FDUSD"},
		{"usde", domain.SourceBybit, "ETHUSDE", "ETH/USDE"},
		{"lowercase input", domain.SourceBybit, "btcusdt", "BTC/USDT"},
		{"alias applied", domain.SourceBybit, "BOBBSCUSDT", "BOB/USDT"},
		{"unknown quote falls back", domain.SourceBybit, "WEIRD", "WEIRD/USDT"},
		{"missing dash part", domain.SourceBingX, "BTC", "BTC/USDT"},
		{"trailing dash", domain.SourceHTX, "BTC-", "BTC/USDT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CanonicalKey(tt.source, tt.native)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, CanonicalKey(tt.source, tt.native))
		})
	}
}

func TestRegisterAlias(t *testing.T) {
	RegisterAlias("wbtcx", "wbtc")
	t.Cleanup(func() {
		aliasMu.Lock()
		delete(baseAliases, "WBTCX")
		aliasMu.Unlock()
	})

	assert.Equal(t, "WBTC/USDT", CanonicalKey(domain.SourceGateIO, "WBTCX_USDT"))
}

func TestInstrumentKeyIgnoresAliases(t *testing.T) {
	inst := domain.Instrument{BaseAsset: "bobbsc", QuoteAsset: "usdt"}
	assert.Equal(t, "BOBBSC/USDT", inst.CanonicalKey())
}
