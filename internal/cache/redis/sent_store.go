package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/fundybot/internal/domain"
)

// SentStore implements domain.AlertSentStore so every notifier replica
// shares one dedup state. Entries expire ttl after they were first marked.
//
// Key schema:
//
//	fundy:alert:sent:{subscriber}:{source}:{native}:{bucket} - rounded rate
type SentStore struct {
	c   *Client
	ttl time.Duration
}

// NewSentStore creates a SentStore.
func NewSentStore(c *Client, ttl time.Duration) *SentStore {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &SentStore{c: c, ttl: ttl}
}

func (s *SentStore) key(k domain.AlertKey) string {
	return s.c.Key("alert", "sent", k.String())
}

func (s *SentStore) MarkIfAbsent(ctx context.Context, k domain.AlertKey, rate decimal.Decimal) (bool, decimal.Decimal, error) {
	key := s.key(k)
	// The entry can expire between SETNX and GET; one retry covers that.
	for attempt := 0; attempt < 2; attempt++ {
		ok, err := s.c.rdb.SetNX(ctx, key, rate.String(), s.ttl).Result()
		if err != nil {
			return false, decimal.Zero, fmt.Errorf("redis: mark sent %s: %w", k, err)
		}
		if ok {
			return true, rate, nil
		}

		raw, err := s.c.rdb.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return false, decimal.Zero, fmt.Errorf("redis: get sent %s: %w", k, err)
		}
		last, err := decimal.NewFromString(raw)
		if err != nil {
			return false, decimal.Zero, fmt.Errorf("redis: parse sent %s: %w", k, err)
		}
		return false, last, nil
	}
	return false, decimal.Zero, fmt.Errorf("redis: mark sent %s: key churned", k)
}

// Put replaces the stored rate and keeps the remaining TTL.
func (s *SentStore) Put(ctx context.Context, k domain.AlertKey, rate decimal.Decimal) error {
	if err := s.c.rdb.Set(ctx, s.key(k), rate.String(), redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("redis: put sent %s: %w", k, err)
	}
	return nil
}

var _ domain.AlertSentStore = (*SentStore)(nil)
