package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/fundybot/internal/domain"
)

// UniverseCache implements domain.UniverseCache with JSON strings.
//
// Key schema:
//
//	fundy:universe:{key} - JSON UniverseSnapshot
type UniverseCache struct {
	c *Client
}

// NewUniverseCache creates a UniverseCache backed by the given Client.
func NewUniverseCache(c *Client) *UniverseCache {
	return &UniverseCache{c: c}
}

// Get returns the snapshot stored under key or domain.ErrNotFound.
func (uc *UniverseCache) Get(ctx context.Context, key string) (domain.UniverseSnapshot, error) {
	data, err := uc.c.rdb.Get(ctx, uc.c.Key("universe", key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.UniverseSnapshot{}, domain.ErrNotFound
		}
		return domain.UniverseSnapshot{}, fmt.Errorf("redis: get universe %s: %w", key, err)
	}

	var snap domain.UniverseSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.UniverseSnapshot{}, fmt.Errorf("redis: unmarshal universe %s: %w", key, err)
	}
	return snap, nil
}

// Set stores snap under snap.Key for ttl.
func (uc *UniverseCache) Set(ctx context.Context, snap domain.UniverseSnapshot, ttl time.Duration) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redis: marshal universe %s: %w", snap.Key, err)
	}
	if err := uc.c.rdb.Set(ctx, uc.c.Key("universe", snap.Key), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set universe %s: %w", snap.Key, err)
	}
	return nil
}

var _ domain.UniverseCache = (*UniverseCache)(nil)
