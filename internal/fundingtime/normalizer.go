// Package fundingtime reconciles the different ways exchanges report the
// next funding timestamp.
package fundingtime

import (
	"time"
)

const (
	DefaultTolerance   = 20 * time.Minute
	DefaultSnapEpsilon = 2 * time.Minute
)

// Normalizer derives and cleans next-funding timestamps in Unix
// milliseconds.
type Normalizer struct {
	// Tolerance is the largest gap between a relative and a metadata
	// timestamp for which the metadata value is still trusted.
	Tolerance time.Duration
	// SnapEpsilon is how close to a full hour a minute-rounded timestamp
	// must be to be moved onto it.
	SnapEpsilon time.Duration
	Now         func() time.Time
}

// New returns a Normalizer with the given tolerances. Zero values select the
// defaults.
func New(tolerance, snapEpsilon time.Duration) *Normalizer {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	if snapEpsilon <= 0 {
		snapEpsilon = DefaultSnapEpsilon
	}
	return &Normalizer{Tolerance: tolerance, SnapEpsilon: snapEpsilon, Now: time.Now}
}

func (n *Normalizer) nowMs() int64 {
	if n.Now == nil {
		return time.Now().UnixMilli()
	}
	return n.Now().UnixMilli()
}

// NextAligned returns the first multiple of intervalHours since the epoch
// strictly after now. Non-positive intervals fall back to 8 hours.
func (n *Normalizer) NextAligned(intervalHours int) int64 {
	return NextAligned(n.nowMs(), intervalHours)
}

// NextAligned is the clock-parameterised form of Normalizer.NextAligned.
func NextAligned(nowMs int64, intervalHours int) int64 {
	if intervalHours <= 0 {
		intervalHours = 8
	}
	step := int64(intervalHours) * time.Hour.Milliseconds()
	return (nowMs/step + 1) * step
}

// FromCountdown converts a countdown to an absolute timestamp. Values under
// 3600 are minutes, larger values are seconds; non-positive values mean
// funding is due now.
func (n *Normalizer) FromCountdown(value int64) int64 {
	now := n.nowMs()
	if value <= 0 {
		return now
	}
	if value < 3600 {
		return now + value*time.Minute.Milliseconds()
	}
	return now + value*time.Second.Milliseconds()
}

// Reconcile chooses between a relative, ticker-derived timestamp and one
// from a metadata endpoint. When both are present and differ by more than
// the tolerance, the relative value wins.
func (n *Normalizer) Reconcile(relativeMs, metadataMs int64) int64 {
	switch {
	case metadataMs <= 0:
		return relativeMs
	case relativeMs <= 0:
		return metadataMs
	}
	diff := relativeMs - metadataMs
	if diff < 0 {
		diff = -diff
	}
	if diff > n.Tolerance.Milliseconds() {
		return relativeMs
	}
	return metadataMs
}

// Normalize rounds to the nearest minute and then snaps onto the closest
// full hour when within SnapEpsilon of it.
func (n *Normalizer) Normalize(ms int64) int64 {
	if ms <= 0 {
		return ms
	}
	minute := time.Minute.Milliseconds()
	hour := time.Hour.Milliseconds()

	rounded := (ms + minute/2) / minute * minute
	nearestHour := (rounded + hour/2) / hour * hour
	gap := rounded - nearestHour
	if gap < 0 {
		gap = -gap
	}
	if gap <= n.SnapEpsilon.Milliseconds() {
		return nearestHour
	}
	return rounded
}
