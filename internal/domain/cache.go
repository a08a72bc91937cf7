package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// SignalBus provides pub/sub fan-out of scan results.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// UniverseCache stores computed universe snapshots.
type UniverseCache interface {
	Get(ctx context.Context, key string) (UniverseSnapshot, error)
	Set(ctx context.Context, snap UniverseSnapshot, ttl time.Duration) error
}

// AlertSentStore remembers the last rounded rate notified per AlertKey.
//
// MarkIfAbsent records rate for an unseen key and reports inserted=true.
// For a known key it leaves the entry untouched and returns the stored rate.
type AlertSentStore interface {
	MarkIfAbsent(ctx context.Context, key AlertKey, rate decimal.Decimal) (inserted bool, last decimal.Decimal, err error)
	Put(ctx context.Context, key AlertKey, rate decimal.Decimal) error
}
