package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/fundybot/internal/domain"
	"github.com/alanyoungcy/fundybot/internal/exchange/exchangetest"
)

func TestSnapshotCacheForceRefresh(t *testing.T) {
	disabled := &exchangetest.Adapter{ID: domain.SourceMEXC, Disabled: true, Quotes: []exchangetest.Quote{
		{Base: "BTC", Quote: "USDT", Price: "1", Funding: "0.1"},
	}}
	reg, sc := newFixture(bybit(), disabled)
	c := NewFundingSnapshotCache(sc, reg, SnapshotConfig{}, discard())

	rates, at := c.Rates()
	assert.Empty(t, rates)
	assert.True(t, at.IsZero())
	assert.True(t, c.Stale())

	require.NoError(t, c.ForceRefresh(context.Background(), time.Second))
	rates, at = c.Rates()
	assert.Len(t, rates, 3)
	assert.False(t, at.IsZero())
	assert.False(t, c.Stale())
	assert.Zero(t, disabled.Calls.Load())
}

func TestSnapshotCacheRunRefreshesInBackground(t *testing.T) {
	reg, sc := newFixture(bybit())
	c := NewFundingSnapshotCache(sc, reg, SnapshotConfig{Refresh: time.Hour}, discard())

	ctx, cancel := context.WithCancel(context.Background())
	var stopped atomic.Bool
	go func() {
		_ = c.Run(ctx)
		stopped.Store(true)
	}()

	assert.Eventually(t, func() bool {
		rates, _ := c.Rates()
		return len(rates) == 3
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	assert.Eventually(t, stopped.Load, time.Second, 10*time.Millisecond)
}

func TestSnapshotCacheSkipsConcurrentRefresh(t *testing.T) {
	reg, sc := newFixture(bybit())
	c := NewFundingSnapshotCache(sc, reg, SnapshotConfig{}, discard())
	c.refreshing.Store(true)

	require.NoError(t, c.ForceRefresh(context.Background(), time.Second))
	rates, _ := c.Rates()
	assert.Empty(t, rates)
}
