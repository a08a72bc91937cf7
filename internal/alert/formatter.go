package alert

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/fundybot/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Message is one notification about a funding observation.
type Message struct {
	Outcome  Outcome
	Funding  domain.FundingRate
	Previous decimal.Decimal
}

// Percent converts a fractional rate to percent with two decimals, half-up.
func Percent(rate decimal.Decimal) decimal.Decimal {
	return rate.Mul(hundred).Round(2)
}

// Format renders m as Telegram HTML, e.g.
//
//	🟢 <a href="https://www.bybit.com/trade/usdt/KNCUSDT">BYBIT</a> · KNC -0.54%  19:00 (3h 53m left)
func Format(m Message, loc *time.Location, now time.Time) string {
	fr := m.Funding
	pct := Percent(fr.Rate)

	emoji := "🟥"
	if pct.IsNegative() {
		emoji = "🟢"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s <a href=\"%s\">%s</a> · %s %s%%",
		emoji,
		html.EscapeString(TradeLink(fr.Source, fr.Instrument.BaseAsset, fr.Instrument.QuoteAsset)),
		fr.Source,
		html.EscapeString(fr.Instrument.BaseAsset),
		pct.String(),
	)
	if m.Outcome == Update {
		fmt.Fprintf(&b, " (was %s%%)", Percent(m.Previous).String())
	}
	b.WriteString(timeBlock(fr.NextFundingTimeMs, loc, now))
	return b.String()
}

func timeBlock(nextMs int64, loc *time.Location, now time.Time) string {
	if nextMs <= 0 {
		return ""
	}
	if loc == nil {
		loc = time.Local
	}
	next := time.UnixMilli(nextMs).In(loc)
	left := next.Sub(now)
	if left < 0 {
		left = 0
	}
	return fmt.Sprintf("  %s (%s left)", next.Format("15:04"), PrettyDuration(left))
}

// PrettyDuration renders d as "3h 53m", "5h" or "25m".
func PrettyDuration(d time.Duration) string {
	h := int64(d / time.Hour)
	m := int64((d % time.Hour) / time.Minute)
	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case h > 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dm", m)
	}
}
