package exchange

import (
	"github.com/alanyoungcy/fundybot/internal/domain"
	"github.com/alanyoungcy/fundybot/internal/symbol"
)

// indexByCanonical keys upstream items by the canonical key of their native
// symbol. On collision the first item is kept.
func indexByCanonical[S any](src domain.SourceID, items []S, native func(S) string) map[string]S {
	m := make(map[string]S, len(items))
	for _, it := range items {
		key := symbol.CanonicalKey(src, native(it))
		if _, exists := m[key]; !exists {
			m[key] = it
		}
	}
	return m
}

// joinByCanonical maps each requested instrument that has a matching
// upstream item. Unmatched instruments are skipped, as are items the mapper
// rejects.
func joinByCanonical[S, R any](instruments []domain.Instrument, index map[string]S, mapFn func(domain.Instrument, S) (R, bool)) []R {
	out := make([]R, 0, len(instruments))
	for _, inst := range instruments {
		s, ok := index[inst.CanonicalKey()]
		if !ok {
			continue
		}
		if r, ok := mapFn(inst, s); ok {
			out = append(out, r)
		}
	}
	return out
}
