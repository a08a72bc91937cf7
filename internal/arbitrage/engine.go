// Package arbitrage scores cross-exchange price and funding divergence for
// each canonical symbol.
package arbitrage

import (
	"math/big"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/fundybot/internal/domain"
)

// Precision is the number of significant digits kept by spread arithmetic.
const Precision = 8

// divScale is the intermediate scale of quotients before significant-digit
// rounding.
const divScale = 32

// Filter selects which records are reported. Zero thresholds accept every
// record.
type Filter struct {
	MinFundingSpread decimal.Decimal
	MinPriceSpread   decimal.Decimal
}

// Evaluate analyses every group, keeps the records passing f and orders them
// by funding spread, widest first. Records with equal funding spread are
// ordered by token.
func Evaluate(groups []domain.SymbolGroup, f Filter) []domain.ArbitrageRecord {
	out := make([]domain.ArbitrageRecord, 0, len(groups))
	for _, g := range groups {
		rec, ok := Analyze(g)
		if !ok {
			continue
		}
		if rec.FundingSpread.LessThan(f.MinFundingSpread) || rec.PriceSpread.LessThan(f.MinPriceSpread) {
			continue
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].FundingSpread.Cmp(out[j].FundingSpread); c != 0 {
			return c > 0
		}
		return out[i].Token < out[j].Token
	})
	return out
}

// Analyze builds the record for one symbol. It reports false when the group
// offers no signal: fewer than two distinct prices, fewer than two distinct
// funding rates, a zero minimum price, or no pair where the cheaper leg also
// has funding data.
func Analyze(g domain.SymbolGroup) (domain.ArbitrageRecord, bool) {
	entries := g.Entries
	if len(entries) < 2 {
		return domain.ArbitrageRecord{}, false
	}

	var prices, fundings []decimal.Decimal
	for _, e := range entries {
		prices = append(prices, e.Price)
		if e.FundingRate.Valid {
			fundings = append(fundings, e.FundingRate.Decimal)
		}
	}
	if countDistinct(prices) < 2 || countDistinct(fundings) < 2 {
		return domain.ArbitrageRecord{}, false
	}

	minPrice, maxPrice := decimal.Min(prices[0], prices[1:]...), decimal.Max(prices[0], prices[1:]...)
	if minPrice.IsZero() {
		return domain.ArbitrageRecord{}, false
	}
	minFunding, maxFunding := decimal.Min(fundings[0], fundings[1:]...), decimal.Max(fundings[0], fundings[1:]...)

	decision, ok := bestPair(entries)
	if !ok {
		return domain.ArbitrageRecord{}, false
	}

	rec := domain.ArbitrageRecord{
		Token:         g.Symbol,
		Prices:        make(map[domain.SourceID]decimal.Decimal),
		FundingRates:  make(map[domain.SourceID]decimal.Decimal),
		NextFunding:   make(map[domain.SourceID]int64),
		PriceSpread:   relative(maxPrice, minPrice),
		FundingSpread: roundSignificant(maxFunding.Sub(minFunding)),
		Decision:      decision,
	}
	for _, e := range entries {
		if _, seen := rec.Prices[e.Source]; !seen {
			rec.Prices[e.Source] = e.Price
		}
		if e.FundingRate.Valid {
			if cur, seen := rec.FundingRates[e.Source]; !seen || e.FundingRate.Decimal.GreaterThan(cur) {
				rec.FundingRates[e.Source] = e.FundingRate.Decimal
			}
		}
		if cur, seen := rec.NextFunding[e.Source]; !seen || e.NextFundingTimeMs < cur {
			rec.NextFunding[e.Source] = e.NextFundingTimeMs
		}
	}
	return rec, true
}

// bestPair picks the long/short pair maximising funding carry plus price
// convergence. Only pairs where the long leg is strictly cheaper and both
// legs report funding qualify. The first pair reaching the best score wins.
func bestPair(entries []domain.BucketEntry) (domain.Decision, bool) {
	var (
		best  decimal.Decimal
		found bool
		dec   domain.Decision
	)
	for i, long := range entries {
		for j, short := range entries {
			if i == j || !long.FundingRate.Valid || !short.FundingRate.Valid {
				continue
			}
			if long.Price.GreaterThanOrEqual(short.Price) {
				continue
			}
			carry := roundSignificant(short.FundingRate.Decimal.Sub(long.FundingRate.Decimal))
			convergence := relative(short.Price, long.Price)
			score := roundSignificant(carry.Add(convergence))
			if !found || score.GreaterThan(best) {
				best, found = score, true
				dec = domain.Decision{LongSource: long.Source, ShortSource: short.Source}
			}
		}
	}
	return dec, found
}

// relative returns (hi - lo) / lo with significant-digit rounding at each
// step.
func relative(hi, lo decimal.Decimal) decimal.Decimal {
	diff := roundSignificant(hi.Sub(lo))
	return roundSignificant(diff.DivRound(lo, divScale))
}

// roundSignificant rounds half away from zero to Precision significant
// digits.
func roundSignificant(d decimal.Decimal) decimal.Decimal {
	if d.IsZero() {
		return d
	}
	intDigits := int32(len(new(big.Int).Abs(d.Coefficient()).String())) + d.Exponent()
	return d.Round(Precision - intDigits)
}

func countDistinct(values []decimal.Decimal) int {
	var distinct []decimal.Decimal
	for _, v := range values {
		dup := false
		for _, d := range distinct {
			if d.Equal(v) {
				dup = true
				break
			}
		}
		if !dup {
			distinct = append(distinct, v)
		}
	}
	return len(distinct)
}
