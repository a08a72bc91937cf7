package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/fundybot/internal/domain"
)

func TestFundingOpportunitiesOrderAndFilter(t *testing.T) {
	_, sc := newFixture(bybit(), okx())
	svc := NewFundingService(sc)
	svc.now = func() time.Time {
		return time.UnixMilli(1_709_308_800_000).Add(-(time.Hour + 2*time.Minute + 3*time.Second))
	}

	views := svc.Opportunities(context.Background(), FundingQuery{
		Sources:  []domain.SourceID{domain.SourceBybit, domain.SourceOKX},
		MinRate:  dec("-0.0005"),
		TimeZone: "Europe/Berlin",
	})

	var got []string
	for _, v := range views {
		got = append(got, string(v.Source)+":"+v.Symbol)
	}
	assert.Equal(t, []string{"BYBIT:ETH/USDT", "OKX:SOL/USDT", "BYBIT:1000PEPE/USDT", "OKX:BTC/USDT"}, got)

	eth := views[0]
	assert.True(t, dec("-0.3").Equal(eth.RatePercent))
	assert.Equal(t, "2024-03-01T17:00:00+01:00", eth.NextFundingTime)
	assert.Equal(t, "01:02:03", eth.Countdown)

	assert.Empty(t, views[1].NextFundingTime)
	assert.Empty(t, views[1].Countdown)
}

func TestFundingOpportunitiesUnknownZoneAndLimit(t *testing.T) {
	_, sc := newFixture(bybit())
	svc := NewFundingService(sc)

	views := svc.Opportunities(context.Background(), FundingQuery{
		Sources:  []domain.SourceID{domain.SourceBybit},
		TimeZone: "Mars/Olympus",
		Limit:    1,
	})
	require.Len(t, views, 1)
	want := time.UnixMilli(1_709_308_800_000).In(time.Local).Format(time.RFC3339)
	assert.Equal(t, want, views[0].NextFundingTime)
}

func TestCountdown(t *testing.T) {
	assert.Equal(t, "00:00:00", Countdown(-time.Minute))
	assert.Equal(t, "27:00:59", Countdown(27*time.Hour+59*time.Second))
}
