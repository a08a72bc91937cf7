// Package memo is a per-source, per-kind TTL cache with single-flight
// loading. Every upstream fetch of an exchange adapter goes through it.
package memo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Kind groups cached values by volatility.
type Kind string

const (
	KindInstruments Kind = "instruments"
	KindTickers     Kind = "tickers"
	KindFunding     Kind = "funding"
	KindFundingMeta Kind = "funding-meta"
	KindUniverse    Kind = "universe"
)

// Key identifies one cached value. Sub distinguishes several values of the
// same kind on one source, e.g. per-instrument funding.
type Key struct {
	Source string
	Kind   Kind
	Sub    string
}

func (k Key) String() string {
	if k.Sub == "" {
		return fmt.Sprintf("%s:%s", k.Source, k.Kind)
	}
	return fmt.Sprintf("%s:%s:%s", k.Source, k.Kind, k.Sub)
}

// Config sets the time-to-live of each kind.
type Config struct {
	Instruments time.Duration
	Tickers     time.Duration
	Funding     time.Duration
	Universe    time.Duration
}

// DefaultConfig mirrors the refresh cadence exchanges tolerate.
func DefaultConfig() Config {
	return Config{
		Instruments: 30 * time.Minute,
		Tickers:     2 * time.Second,
		Funding:     90 * time.Second,
		Universe:    24 * time.Hour,
	}
}

type entry struct {
	value   any
	expires time.Time
}

// Cache holds loaded values until their kind's TTL elapses. Failed loads are
// never stored. It is safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[Key]entry
	group   singleflight.Group
	cfg     Config
	now     func() time.Time
}

// New creates an empty cache.
func New(cfg Config) *Cache {
	return &Cache{
		entries: make(map[Key]entry),
		cfg:     cfg,
		now:     time.Now,
	}
}

func (c *Cache) ttl(k Kind) time.Duration {
	switch k {
	case KindInstruments:
		return c.cfg.Instruments
	case KindTickers:
		return c.cfg.Tickers
	case KindFunding, KindFundingMeta:
		return c.cfg.Funding
	case KindUniverse:
		return c.cfg.Universe
	}
	return 0
}

func (c *Cache) lookup(key Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

func (c *Cache) store(key Key, v any) {
	ttl := c.ttl(key.Kind)
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.entries[key] = entry{value: v, expires: c.now().Add(ttl)}
	c.mu.Unlock()
}

// Get returns the cached value for key or loads it. Concurrent callers that
// miss on the same key share one load. The load runs detached from the
// caller's cancellation so a caller giving up does not waste the fetch for
// the others; the caller itself returns as soon as ctx is done.
func Get[T any](ctx context.Context, c *Cache, key Key, load func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if v, ok := c.lookup(key); ok {
		if t, ok := v.(T); ok {
			return t, nil
		}
	}

	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key.String(), func() (any, error) {
		if v, ok := c.lookup(key); ok {
			return v, nil
		}
		v, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		c.store(key, v)
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		t, ok := res.Val.(T)
		if !ok {
			return zero, fmt.Errorf("memo: %s holds %T", key, res.Val)
		}
		return t, nil
	}
}
