package symbol

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/alanyoungcy/fundybot/internal/domain"
)

var (
	deliverySuffix = regexp.MustCompile(`.*-\d{2}[A-Z]{3}\d{2}$`)
	metricPrefix   = regexp.MustCompile(`^(\d+)([KMB])(.*)$`)

	universeQuotes  = map[string]bool{"USDT": true, "USDC": true, "USD": true}
	universeAliases = map[string]string{"AINBSC": "AIN"}
)

// RawUniverse maps a canonical key to the native symbol listing it on each
// source.
type RawUniverse map[string]map[domain.SourceID]string

// Add records a listing. Later listings for the same key and source replace
// earlier ones.
func (r RawUniverse) Add(key string, src domain.SourceID, native string) {
	m, ok := r[key]
	if !ok {
		m = make(map[domain.SourceID]string)
		r[key] = m
	}
	m[src] = native
}

// NormalizeUniverse cleans raw keys and native symbols, drops listings that
// do not look like perpetual contracts and folds keys that normalise to the
// same pair together. Entries are sorted by token.
func NormalizeUniverse(raw RawUniverse) []domain.UniverseEntry {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	merged := make(map[string]map[domain.SourceID]string)
	for _, k := range keys {
		norm, ok := NormalizeKey(k)
		if !ok {
			continue
		}
		filtered := make(map[domain.SourceID]string)
		for src, sym := range raw[k] {
			clean := sanitizeNative(sym)
			if clean != "" && IsPerpSymbol(src, clean) {
				filtered[src] = clean
			}
		}
		if len(filtered) == 0 {
			continue
		}
		dst, ok := merged[norm]
		if !ok {
			dst = make(map[domain.SourceID]string, len(filtered))
			merged[norm] = dst
		}
		for src, sym := range filtered {
			dst[src] = sym
		}
	}

	tokens := make([]string, 0, len(merged))
	for t := range merged {
		tokens = append(tokens, t)
	}
	sort.Strings(tokens)

	out := make([]domain.UniverseEntry, 0, len(tokens))
	for _, t := range tokens {
		natives := merged[t]
		exchanges := make([]domain.SourceID, 0, len(natives))
		for _, src := range domain.AllSources {
			if _, ok := natives[src]; ok {
				exchanges = append(exchanges, src)
			}
		}
		out = append(out, domain.UniverseEntry{
			Token:         t,
			Exchanges:     exchanges,
			NativeSymbols: natives,
			Coverage:      len(exchanges),
		})
	}
	return out
}

// NormalizeKey cleans a "BASE/QUOTE" key for the universe view. Keys with
// an unsupported quote or a missing side are rejected.
func NormalizeKey(raw string) (string, bool) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	slash := strings.IndexByte(s, '/')
	if slash <= 0 || slash >= len(s)-1 {
		return "", false
	}
	base := strings.TrimSpace(s[:slash])
	quote := strings.TrimSpace(s[slash+1:])
	if !universeQuotes[quote] {
		return "", false
	}

	base = strings.TrimLeft(base, "$")
	base = expandMetricPrefix(base)
	if clean, ok := universeAliases[base]; ok {
		base = clean
	}
	return base + "/" + quote, true
}

// expandMetricPrefix rewrites "1K" style multipliers: 1KSHIB becomes 1000SHIB.
func expandMetricPrefix(base string) string {
	m := metricPrefix.FindStringSubmatch(base)
	if m == nil {
		return base
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return base
	}
	var mult int64
	switch m[2] {
	case "K":
		mult = 1_000
	case "M":
		mult = 1_000_000
	case "B":
		mult = 1_000_000_000
	}
	return strconv.FormatInt(n*mult, 10) + m[3]
}

func sanitizeNative(sym string) string {
	return strings.TrimLeft(strings.TrimSpace(sym), "$")
}

// IsPerpSymbol reports whether a native symbol follows the source's naming
// of linear perpetual contracts.
func IsPerpSymbol(src domain.SourceID, sym string) bool {
	s := strings.ToUpper(strings.TrimSpace(sym))
	switch src {
	case domain.SourceBybit:
		if deliverySuffix.MatchString(s) {
			return false
		}
		return hasAnySuffix(s, "USDT", "USDC", "PERP")
	case domain.SourceOKX:
		return strings.Contains(s, "-SWAP")
	case domain.SourceKuCoin:
		return hasAnySuffix(s, "USDTM", "USDM", "USDCM")
	case domain.SourceBitget:
		return hasAnySuffix(s, "_UMCBL", "_CMCBL")
	case domain.SourceBingX, domain.SourceHTX:
		return containsAny(s, "-USDT", "-USDC")
	case domain.SourceGateIO, domain.SourceMEXC:
		return containsAny(s, "_USDT", "_USDC", "_USD")
	case domain.SourceCoinEx:
		return hasAnySuffix(s, "USDT", "USDC")
	}
	return false
}

func hasAnySuffix(s string, suffixes ...string) bool {
	for _, x := range suffixes {
		if strings.HasSuffix(s, x) {
			return true
		}
	}
	return false
}

func containsAny(s string, subs ...string) bool {
	for _, x := range subs {
		if strings.Contains(s, x) {
			return true
		}
	}
	return false
}
