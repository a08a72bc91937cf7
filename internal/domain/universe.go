package domain

import "time"

// UniverseEntry lists which sources trade a canonical pair as a live
// perpetual.
type UniverseEntry struct {
	Token         string              `json:"token"`
	Exchanges     []SourceID          `json:"exchanges"`
	NativeSymbols map[SourceID]string `json:"nativeSymbols"`
	Coverage      int                 `json:"coverage"`
}

// UniverseSnapshot is a timestamped universe for a set of sources.
type UniverseSnapshot struct {
	Key     string          `json:"key"`
	BuiltAt time.Time       `json:"builtAt"`
	Entries []UniverseEntry `json:"entries"`
}
