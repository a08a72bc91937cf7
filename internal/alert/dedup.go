// Package alert decides which funding observations are worth notifying
// subscribers about and renders the notification text.
package alert

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/fundybot/internal/domain"
)

// Outcome is the result of running one observation through a Deduplicator.
type Outcome int

const (
	// Skip means nothing should be sent.
	Skip Outcome = iota
	// New means the key was unseen and a first notification is due.
	New
	// Update means the rounded rate moved by at least the minimum delta.
	Update
)

func (o Outcome) String() string {
	switch o {
	case New:
		return "new"
	case Update:
		return "update"
	default:
		return "skip"
	}
}

// DefaultMinDelta is 0.1 percentage points.
var DefaultMinDelta = decimal.RequireFromString("0.001")

// ratePlaces rounds a fractional rate to two decimals of percent.
const ratePlaces = 4

// RoundRate rounds a fractional rate the way it is shown to subscribers.
func RoundRate(rate decimal.Decimal) decimal.Decimal {
	return rate.Round(ratePlaces)
}

// Deduplicator runs the UNSEEN -> SENT state machine per AlertKey on top of
// an AlertSentStore.
type Deduplicator struct {
	store    domain.AlertSentStore
	minDelta decimal.Decimal
}

// NewDeduplicator creates a Deduplicator. A non-positive minDelta falls back
// to DefaultMinDelta.
func NewDeduplicator(store domain.AlertSentStore, minDelta decimal.Decimal) *Deduplicator {
	if !minDelta.IsPositive() {
		minDelta = DefaultMinDelta
	}
	return &Deduplicator{store: store, minDelta: minDelta}
}

// Check records rate for key and reports whether a notification is due. For
// Update outcomes prev holds the previously notified rounded rate.
func (d *Deduplicator) Check(ctx context.Context, key domain.AlertKey, rate decimal.Decimal) (Outcome, decimal.Decimal, error) {
	rounded := RoundRate(rate)

	inserted, last, err := d.store.MarkIfAbsent(ctx, key, rounded)
	if err != nil {
		return Skip, decimal.Zero, fmt.Errorf("alert: mark %s: %w", key, err)
	}
	if inserted {
		return New, decimal.Zero, nil
	}

	if rounded.Sub(last).Abs().LessThan(d.minDelta) {
		return Skip, last, nil
	}
	if err := d.store.Put(ctx, key, rounded); err != nil {
		return Skip, last, fmt.Errorf("alert: update %s: %w", key, err)
	}
	return Update, last, nil
}
