package memo

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSingleFlight(t *testing.T) {
	c := New(DefaultConfig())
	key := Key{Source: "BYBIT", Kind: KindTickers}

	var calls atomic.Int32
	release := make(chan struct{})
	load := func(ctx context.Context) ([]string, error) {
		calls.Add(1)
		<-release
		return []string{"BTCUSDT"}, nil
	}

	const callers = 32
	var wg sync.WaitGroup
	var started sync.WaitGroup
	results := make([][]string, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		started.Add(1)
		go func(i int) {
			defer wg.Done()
			started.Done()
			v, err := Get(context.Background(), c, key, load)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	started.Wait()
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Equal(t, []string{"BTCUSDT"}, r)
	}
}

func TestGetCachesUntilExpiry(t *testing.T) {
	c := New(Config{Instruments: time.Minute})
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	key := Key{Source: "OKX", Kind: KindInstruments}

	calls := 0
	load := func(ctx context.Context) (int, error) {
		calls++
		return calls, nil
	}

	v, err := Get(context.Background(), c, key, load)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, err = Get(context.Background(), c, key, load)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	now = now.Add(time.Minute)
	v, err = Get(context.Background(), c, key, load)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestGetDoesNotCacheErrors(t *testing.T) {
	c := New(DefaultConfig())
	key := Key{Source: "HTX", Kind: KindFunding}
	boom := errors.New("boom")

	calls := 0
	load := func(ctx context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, boom
		}
		return 7, nil
	}

	_, err := Get(context.Background(), c, key, load)
	assert.ErrorIs(t, err, boom)

	v, err := Get(context.Background(), c, key, load)
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, 2, calls)
}

func TestGetKeysAreIndependent(t *testing.T) {
	c := New(DefaultConfig())
	a, err := Get(context.Background(), c, Key{Source: "A", Kind: KindTickers}, func(context.Context) (string, error) { return "a", nil })
	require.NoError(t, err)
	b, err := Get(context.Background(), c, Key{Source: "A", Kind: KindFunding}, func(context.Context) (string, error) { return "b", nil })
	require.NoError(t, err)
	assert.Equal(t, "a", a)
	assert.Equal(t, "b", b)
	assert.Len(t, c.entries, 2)
}

func TestGetHonoursCallerContext(t *testing.T) {
	c := New(DefaultConfig())
	key := Key{Source: "MEXC", Kind: KindTickers}
	release := make(chan struct{})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := Get(ctx, c, key, func(context.Context) (int, error) {
		<-release
		return 1, nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestKeyString(t *testing.T) {
	assert.Equal(t, "OKX:funding:BTC-USDT-SWAP", Key{Source: "OKX", Kind: KindFunding, Sub: "BTC-USDT-SWAP"}.String())
	assert.Equal(t, "OKX:tickers", Key{Source: "OKX", Kind: KindTickers}.String())
}
