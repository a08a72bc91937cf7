// Package symbol maps exchange-native contract symbols onto the
// cross-exchange "BASE/QUOTE" identity.
package symbol

import (
	"strings"
	"sync"

	"github.com/alanyoungcy/fundybot/internal/domain"
)

// DefaultQuote is assumed when a symbol carries no recognisable quote.
const DefaultQuote = "USDT"

// knownQuotes is ordered longest first so "USDC" and "USDE" win over "USD".
var knownQuotes = []string{"FDUSD", "USDT", "USDC", "USDE", "TUSD", "USD", "DAI"}

var (
	aliasMu     sync.RWMutex
	baseAliases = map[string]string{
		"BOBBSC": "BOB",
	}
)

// RegisterAlias maps a base asset listed under a different ticker on some
// exchange onto its common name.
func RegisterAlias(dirty, clean string) {
	aliasMu.Lock()
	defer aliasMu.Unlock()
	baseAliases[strings.ToUpper(dirty)] = strings.ToUpper(clean)
}

func alias(base string) string {
	aliasMu.RLock()
	defer aliasMu.RUnlock()
	if clean, ok := baseAliases[strings.ToUpper(base)]; ok {
		return clean
	}
	return base
}

// CanonicalKey returns the "BASE/QUOTE" key of a native symbol on the given
// source. It never fails: symbols it cannot split are treated as a bare base
// quoted in DefaultQuote.
func CanonicalKey(src domain.SourceID, native string) string {
	base, quote := Split(src, native)
	return domain.CanonicalKey(alias(base), quote)
}

// Split separates a native symbol into base and quote using the grammar of
// the given source.
func Split(src domain.SourceID, native string) (base, quote string) {
	switch src {
	case domain.SourceBingX, domain.SourceHTX:
		return splitDelimited(native, "-")
	case domain.SourceOKX:
		return splitDelimited(strings.TrimSuffix(native, "-SWAP"), "-")
	case domain.SourceGateIO, domain.SourceMEXC:
		return splitDelimited(native, "_")
	case domain.SourceKuCoin:
		return splitByKnownQuote(strings.TrimSuffix(native, "M"))
	case domain.SourceBitget:
		core := native
		if i := strings.IndexByte(native, '_'); i > 0 {
			core = native[:i]
		}
		return splitByKnownQuote(core)
	default:
		// BYBIT, COINEX and anything unrecognised.
		return splitByKnownQuote(native)
	}
}

func splitDelimited(s, sep string) (string, string) {
	parts := strings.Split(s, sep)
	if len(parts) > 1 && parts[1] != "" {
		return parts[0], parts[1]
	}
	if len(parts) > 1 {
		return parts[0], DefaultQuote
	}
	return s, DefaultQuote
}

func splitByKnownQuote(s string) (string, string) {
	upper := strings.ToUpper(s)
	for _, q := range knownQuotes {
		if strings.HasSuffix(upper, q) {
			return s[:len(s)-len(q)], q
		}
	}
	return s, DefaultQuote
}
