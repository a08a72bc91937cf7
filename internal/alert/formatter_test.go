package alert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/alanyoungcy/fundybot/internal/domain"
)

func funding(src domain.SourceID, base, native, rate string, next time.Time) domain.FundingRate {
	return domain.FundingRate{
		Source: src,
		Instrument: domain.Instrument{
			BaseAsset: base, QuoteAsset: "USDT", NativeSymbol: native,
			Type: domain.InstrumentPerpetual, Source: src,
		},
		Rate:              dec(rate),
		NextFundingTimeMs: next.UnixMilli(),
	}
}

func TestFormatNew(t *testing.T) {
	now := time.Date(2024, 3, 1, 15, 7, 0, 0, time.UTC)
	next := time.Date(2024, 3, 1, 19, 0, 0, 0, time.UTC)

	got := Format(Message{Outcome: New, Funding: funding(domain.SourceBybit, "KNC", "KNCUSDT", "-0.0054", next)}, time.UTC, now)
	assert.Equal(t, `🟢 <a href="https://www.bybit.com/trade/usdt/KNCUSDT">BYBIT</a> · KNC -0.54%  19:00 (3h 53m left)`, got)
}

func TestFormatUpdateAndZone(t *testing.T) {
	zone := time.FixedZone("UTC+3", 3*3600)
	now := time.Date(2024, 3, 1, 15, 30, 0, 0, time.UTC)
	next := time.Date(2024, 3, 1, 16, 0, 0, 0, time.UTC)

	got := Format(Message{
		Outcome:  Update,
		Funding:  funding(domain.SourceOKX, "ETH", "ETH-USDT-SWAP", "0.0125", next),
		Previous: dec("0.0101"),
	}, zone, now)
	assert.Equal(t, `🟥 <a href="https://www.okx.com/trade-swap/eth-usdt-swap">OKX</a> · ETH 1.25% (was 1.01%)  19:00 (30m left)`, got)
}

func TestFormatWithoutFundingTime(t *testing.T) {
	fr := funding(domain.SourceGateIO, "BTC", "BTC_USDT", "0.001", time.Time{})
	fr.NextFundingTimeMs = 0
	got := Format(Message{Outcome: New, Funding: fr}, time.UTC, time.Now())
	assert.Equal(t, `🟥 <a href="https://www.gate.io/futures/usdt/BTC_USDT">GATEIO</a> · BTC 0.1%`, got)
}

func TestPrettyDuration(t *testing.T) {
	assert.Equal(t, "3h 53m", PrettyDuration(3*time.Hour+53*time.Minute+20*time.Second))
	assert.Equal(t, "5h", PrettyDuration(5*time.Hour))
	assert.Equal(t, "25m", PrettyDuration(25*time.Minute))
	assert.Equal(t, "0m", PrettyDuration(0))
}

func TestTradeLink(t *testing.T) {
	tests := map[domain.SourceID]string{
		domain.SourceMEXC:   "https://futures.mexc.com/exchange/BTC_USDT",
		domain.SourceKuCoin: "https://futures.kucoin.com/trade/BTCUSDTM",
		domain.SourceBitget: "https://www.bitget.com/futures/usdt/BTCUSDT",
		domain.SourceHTX:    "https://www.htx.com/futures/linear_swap/exchange/#contract_code=BTC-USDT",
		domain.SourceCoinEx: "https://www.coinex.com/futures/BTC-USDT",
		domain.SourceBingX:  "https://bingx.com/perpetual/BTC-USDT",
	}
	for src, want := range tests {
		assert.Equal(t, want, TradeLink(src, "btc", "usdt"), src)
	}
}
