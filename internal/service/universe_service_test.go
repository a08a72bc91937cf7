package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/fundybot/internal/cache/memo"
	"github.com/alanyoungcy/fundybot/internal/domain"
)

var universeNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newUniverse(t *testing.T, cache domain.UniverseCache, blobs *memBlobs, adapters ...domain.SourceAdapter) *UniverseService {
	t.Helper()
	_, sc := newFixture(adapters...)
	var (
		r domain.BlobReader
		w domain.BlobWriter
	)
	if blobs != nil {
		r, w = blobs, blobs
	}
	svc := NewUniverseService(sc, memo.New(memo.DefaultConfig()), cache, r, w, UniverseConfig{}, discard())
	svc.now = func() time.Time { return universeNow }
	return svc
}

func TestUniverseBuild(t *testing.T) {
	b, o := bybit(), okx()
	svc := newUniverse(t, nil, nil, b, o)

	snap, err := svc.Snapshot(context.Background(), []domain.SourceID{domain.SourceBybit, domain.SourceOKX})
	require.NoError(t, err)
	assert.Equal(t, "BYBIT,OKX", snap.Key)

	var tokens []string
	for _, e := range snap.Entries {
		tokens = append(tokens, e.Token)
	}
	assert.Equal(t, []string{"1000PEPE/USDT", "BTC/USDT", "ETH/USDT", "SOL/USDT"}, tokens)

	btc := snap.Entries[1]
	assert.Equal(t, []domain.SourceID{domain.SourceBybit, domain.SourceOKX}, btc.Exchanges)
	assert.Equal(t, 2, btc.Coverage)
	assert.Equal(t, "BTC-USDT-SWAP", btc.NativeSymbols[domain.SourceOKX])

	calls := b.Calls.Load()
	_, err = svc.Snapshot(context.Background(), []domain.SourceID{domain.SourceBybit, domain.SourceOKX})
	require.NoError(t, err)
	assert.Equal(t, calls, b.Calls.Load(), "second call served from memo")
}

func TestUniverseAllWritesCacheAndArchive(t *testing.T) {
	cache := &memUniverseCache{}
	blobs := newMemBlobs(func() time.Time { return universeNow })
	svc := newUniverse(t, cache, blobs, bybit(), okx())

	snap, err := svc.Snapshot(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, UniverseAllKey, snap.Key)
	assert.Equal(t, 1, cache.sets)

	info, err := blobs.Stat(context.Background(), "universe/latest.json")
	require.NoError(t, err)
	assert.Positive(t, info.Size)
}

func TestUniverseWarmStartFromArchive(t *testing.T) {
	blobs := newMemBlobs(func() time.Time { return universeNow })
	seed := newUniverse(t, nil, blobs, bybit(), okx())
	_, err := seed.Snapshot(context.Background(), nil)
	require.NoError(t, err)

	fresh := bybit()
	cache := &memUniverseCache{}
	svc := newUniverse(t, cache, blobs, fresh)
	svc.now = func() time.Time { return universeNow.Add(time.Hour) }

	snap, err := svc.Snapshot(context.Background(), domain.AllSources)
	require.NoError(t, err)
	assert.Zero(t, fresh.Calls.Load(), "archive served the snapshot")
	assert.Len(t, snap.Entries, 4)
	assert.Equal(t, 1, cache.sets)
}

func TestUniverseIgnoresExpiredArchive(t *testing.T) {
	blobs := newMemBlobs(func() time.Time { return universeNow })
	seed := newUniverse(t, nil, blobs, bybit(), okx())
	_, err := seed.Snapshot(context.Background(), nil)
	require.NoError(t, err)

	fresh := bybit()
	svc := newUniverse(t, nil, blobs, fresh)
	svc.now = func() time.Time { return universeNow.Add(25 * time.Hour) }

	snap, err := svc.Snapshot(context.Background(), nil)
	require.NoError(t, err)
	assert.Positive(t, fresh.Calls.Load())
	assert.Len(t, snap.Entries, 3)
}

func TestUniverseServedFromSharedCache(t *testing.T) {
	cache := &memUniverseCache{snaps: map[string]domain.UniverseSnapshot{
		UniverseAllKey: {Key: UniverseAllKey, BuiltAt: universeNow, Entries: []domain.UniverseEntry{{Token: "X/USDT"}}},
	}}
	fresh := bybit()
	svc := newUniverse(t, cache, nil, fresh)

	snap, err := svc.Snapshot(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, snap.Entries, 1)
	assert.Zero(t, fresh.Calls.Load())
}

func TestUniverseKey(t *testing.T) {
	assert.Equal(t, UniverseAllKey, UniverseKey(nil))
	assert.Equal(t, UniverseAllKey, UniverseKey(domain.AllSources))
	assert.Equal(t, "MEXC", UniverseKey([]domain.SourceID{domain.SourceMEXC}))
}
