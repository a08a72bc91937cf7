package app

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/fundybot/internal/config"
	"github.com/alanyoungcy/fundybot/internal/domain"
	"github.com/alanyoungcy/fundybot/internal/feed"
	"github.com/alanyoungcy/fundybot/internal/store/memory"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestWireWithoutInfrastructure(t *testing.T) {
	cfg := config.Defaults()
	off := false
	htx := cfg.Exchanges["htx"]
	htx.Enabled = &off
	cfg.Exchanges["htx"] = htx

	deps, cleanup, err := Wire(context.Background(), &cfg, discard)
	require.NoError(t, err)
	defer cleanup()

	assert.Nil(t, deps.Redis)
	assert.Nil(t, deps.UniverseCache)
	assert.Nil(t, deps.RateLimiter)
	assert.Nil(t, deps.BlobReader)
	assert.IsType(t, &feed.LocalBus{}, deps.SignalBus)
	assert.IsType(t, &memory.SubscriberStore{}, deps.Subscribers)
	assert.Empty(t, deps.HealthChecks)
	assert.Nil(t, deps.Telegram)
	assert.NotNil(t, deps.Notifier)

	enabled := deps.Registry.Enabled()
	assert.Len(t, enabled, 8)
	assert.NotContains(t, enabled, domain.SourceHTX)

	_, err = deps.Registry.Get(domain.SourceHTX)
	assert.ErrorIs(t, err, domain.ErrSourceDisabled)
}

func TestSourceConfigs(t *testing.T) {
	cfg := config.Defaults()
	okx := cfg.Exchanges["okx"]
	okx.BaseURL = "http://okx.test"
	cfg.Exchanges["okx"] = okx

	got := sourceConfigs(&cfg)
	require.Len(t, got, 9)
	assert.Equal(t, "http://okx.test", got[domain.SourceOKX].BaseURL)
	assert.Equal(t, "usdt", got[domain.SourceGateIO].Settle)
	assert.Equal(t, "umcbl", got[domain.SourceBitget].ProductType)
	assert.True(t, got[domain.SourceCoinEx].Enabled)
}

func TestSubscriberDefaults(t *testing.T) {
	cfg := config.Defaults()
	a := New(&cfg, discard)
	d := a.subscriberDefaults()
	assert.True(t, d.MinAbsRate.Equal(decimal.RequireFromString("0.005")))
	assert.Equal(t, 30*time.Minute, d.NotifyBefore)
	assert.Equal(t, time.Hour, d.BucketWidth)

	cfg.Alert.Defaults.TimeZone = "Asia/Singapore"
	cfg.Alert.Defaults.MinAbsRate = decimal.RequireFromString("0.02")
	d = a.subscriberDefaults()
	assert.Equal(t, "Asia/Singapore", d.TimeZone)
	assert.True(t, d.MinAbsRate.Equal(decimal.RequireFromString("0.02")))
}

func TestRunRejectsUnknownMode(t *testing.T) {
	cfg := config.Defaults()
	cfg.Mode = "trade"
	a := New(&cfg, discard)
	defer a.Close()
	assert.ErrorContains(t, a.Run(context.Background()), "unsupported mode")
}
