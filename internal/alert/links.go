package alert

import (
	"strings"

	"github.com/alanyoungcy/fundybot/internal/domain"
)

// TradeLink returns the exchange's futures trading page for base/quote.
func TradeLink(src domain.SourceID, base, quote string) string {
	base = strings.ToUpper(base)
	quote = strings.ToUpper(quote)

	switch src {
	case domain.SourceBybit:
		return "https://www.bybit.com/trade/usdt/" + base + quote
	case domain.SourceMEXC:
		return "https://futures.mexc.com/exchange/" + base + "_" + quote
	case domain.SourceKuCoin:
		return "https://futures.kucoin.com/trade/" + base + quote + "M"
	case domain.SourceBitget:
		return "https://www.bitget.com/futures/usdt/" + base + quote
	case domain.SourceHTX:
		return "https://www.htx.com/futures/linear_swap/exchange/#contract_code=" + base + "-" + quote
	case domain.SourceOKX:
		return "https://www.okx.com/trade-swap/" + strings.ToLower(base) + "-" + strings.ToLower(quote) + "-swap"
	case domain.SourceGateIO:
		return "https://www.gate.io/futures/usdt/" + base + "_" + quote
	case domain.SourceCoinEx:
		return "https://www.coinex.com/futures/" + base + "-" + quote
	case domain.SourceBingX:
		return "https://bingx.com/perpetual/" + base + "-" + quote
	default:
		return ""
	}
}
