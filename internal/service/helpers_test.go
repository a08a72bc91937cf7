package service

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/fundybot/internal/domain"
	"github.com/alanyoungcy/fundybot/internal/exchange"
	"github.com/alanyoungcy/fundybot/internal/exchange/exchangetest"
	"github.com/alanyoungcy/fundybot/internal/scanner"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newFixture(adapters ...domain.SourceAdapter) (*exchange.Registry, *scanner.Scanner) {
	reg := exchange.NewRegistryFrom(adapters...)
	return reg, scanner.New(reg, scanner.Config{OverallTimeout: time.Second, PerSourceTimeout: time.Second}, discard())
}

func bybit() *exchangetest.Adapter {
	return &exchangetest.Adapter{ID: domain.SourceBybit, Quotes: []exchangetest.Quote{
		{Base: "BTC", Quote: "USDT", Native: "BTCUSDT", Price: "50000", Funding: "0.0001", NextMs: 1_709_308_800_000},
		{Base: "ETH", Quote: "USDT", Native: "ETHUSDT", Price: "3000", Funding: "-0.0030", NextMs: 1_709_308_800_000},
		{Base: "1000PEPE", Quote: "USDT", Native: "1000PEPEUSDT", Price: "0.008", Funding: "0.0012"},
	}}
}

func okx() *exchangetest.Adapter {
	return &exchangetest.Adapter{ID: domain.SourceOKX, Quotes: []exchangetest.Quote{
		{Base: "BTC", Quote: "USDT", Native: "BTC-USDT-SWAP", Price: "50100", Funding: "0.0005", NextMs: 1_709_308_800_000},
		{Base: "SOL", Quote: "USDT", Native: "SOL-USDT-SWAP", Price: "120", Funding: "0.0020"},
	}}
}

type memUniverseCache struct {
	mu    sync.Mutex
	snaps map[string]domain.UniverseSnapshot
	sets  int
}

func (c *memUniverseCache) Get(_ context.Context, key string) (domain.UniverseSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.snaps[key]
	if !ok {
		return domain.UniverseSnapshot{}, domain.ErrNotFound
	}
	return s, nil
}

func (c *memUniverseCache) Set(_ context.Context, snap domain.UniverseSnapshot, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snaps == nil {
		c.snaps = map[string]domain.UniverseSnapshot{}
	}
	c.snaps[snap.Key] = snap
	c.sets++
	return nil
}

type memBlobs struct {
	mu       sync.Mutex
	objects  map[string][]byte
	modified map[string]time.Time
	now      func() time.Time
}

func newMemBlobs(now func() time.Time) *memBlobs {
	return &memBlobs{objects: map[string][]byte{}, modified: map[string]time.Time{}, now: now}
}

func (b *memBlobs) PutMultipart(_ context.Context, path string, data io.Reader, _ int64) error {
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[path] = raw
	b.modified[path] = b.now()
	return nil
}

func (b *memBlobs) Get(_ context.Context, path string) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	raw, ok := b.objects[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

func (b *memBlobs) Stat(_ context.Context, path string) (domain.BlobInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	raw, ok := b.objects[path]
	if !ok {
		return domain.BlobInfo{}, domain.ErrNotFound
	}
	return domain.BlobInfo{Path: path, Size: int64(len(raw)), LastModified: b.modified[path]}, nil
}
