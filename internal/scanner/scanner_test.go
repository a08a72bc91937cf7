package scanner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/fundybot/internal/domain"
	"github.com/alanyoungcy/fundybot/internal/exchange"
	"github.com/alanyoungcy/fundybot/internal/exchange/exchangetest"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newScanner(cfg Config, adapters ...domain.SourceAdapter) *Scanner {
	return New(exchange.NewRegistryFrom(adapters...), cfg, discard())
}

func TestBucketsGroupsBySymbol(t *testing.T) {
	a := &exchangetest.Adapter{ID: "A", Quotes: []exchangetest.Quote{
		{Base: "BTC", Quote: "USDT", Price: "50000", Funding: "0.0001", NextMs: 100},
		{Base: "ETH", Quote: "USDT", Price: "3000"},
	}}
	b := &exchangetest.Adapter{ID: "B", Quotes: []exchangetest.Quote{
		{Base: "BTC", Quote: "USDT", Native: "BTC-USDT", Price: "50100", Funding: "0.0005", NextMs: 200},
		{Base: "DOGE", Quote: "USDT", Price: "0"},
	}}
	s := newScanner(Config{}, a, b)

	groups := s.Buckets(context.Background(), []domain.SourceID{"A", "B"})
	require.Len(t, groups, 2)

	assert.Equal(t, "BTC/USDT", groups[0].Symbol)
	require.Len(t, groups[0].Entries, 2)
	assert.Equal(t, domain.SourceID("A"), groups[0].Entries[0].Source)
	assert.Equal(t, domain.SourceID("B"), groups[0].Entries[1].Source)
	assert.True(t, groups[0].Entries[1].FundingRate.Valid)
	assert.Equal(t, int64(200), groups[0].Entries[1].NextFundingTimeMs)

	assert.Equal(t, "ETH/USDT", groups[1].Symbol)
	assert.False(t, groups[1].Entries[0].FundingRate.Valid)
}

func TestBucketsSkipsNonPerpetuals(t *testing.T) {
	no := false
	a := &exchangetest.Adapter{ID: "A", Quotes: []exchangetest.Quote{
		{Base: "BTC", Quote: "USDT", Price: "50000", Perpetual: &no},
	}}
	s := newScanner(Config{}, a)

	assert.Empty(t, s.Buckets(context.Background(), []domain.SourceID{"A"}))
}

func TestBucketsIsolatesFailingSource(t *testing.T) {
	bad := &exchangetest.Adapter{ID: "A", Err: errors.New("upstream down")}
	good := &exchangetest.Adapter{ID: "B", Quotes: []exchangetest.Quote{
		{Base: "BTC", Quote: "USDT", Price: "50100", Funding: "0.0005"},
	}}
	s := newScanner(Config{}, bad, good)

	groups := s.Buckets(context.Background(), []domain.SourceID{"A", "B"})
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Entries, 1)
	assert.Equal(t, domain.SourceID("B"), groups[0].Entries[0].Source)
}

func TestBucketsIsolatesPanickingSource(t *testing.T) {
	bad := &exchangetest.Adapter{ID: "A", Panic: true}
	good := &exchangetest.Adapter{ID: "B", Quotes: []exchangetest.Quote{
		{Base: "BTC", Quote: "USDT", Price: "1"},
	}}
	s := newScanner(Config{}, bad, good)

	groups := s.Buckets(context.Background(), []domain.SourceID{"A", "B"})
	require.Len(t, groups, 1)
}

func TestBucketsStuckSourceTimesOut(t *testing.T) {
	stuck := &exchangetest.Adapter{ID: "A", Block: true}
	good := &exchangetest.Adapter{ID: "B", Quotes: []exchangetest.Quote{
		{Base: "BTC", Quote: "USDT", Price: "1"},
	}}
	s := newScanner(Config{OverallTimeout: time.Second, PerSourceTimeout: 50 * time.Millisecond}, stuck, good)

	start := time.Now()
	groups := s.Buckets(context.Background(), []domain.SourceID{"A", "B"})
	assert.Less(t, time.Since(start), time.Second)
	require.Len(t, groups, 1)
	assert.Equal(t, domain.SourceID("B"), groups[0].Entries[0].Source)
}

func TestBucketsSkipsDisabledAndUnknown(t *testing.T) {
	off := &exchangetest.Adapter{ID: "A", Disabled: true, Quotes: []exchangetest.Quote{
		{Base: "BTC", Quote: "USDT", Price: "1"},
	}}
	s := newScanner(Config{}, off)

	assert.Empty(t, s.Buckets(context.Background(), []domain.SourceID{"A", "Z"}))
	assert.Equal(t, int32(0), off.Calls.Load())
}

func TestBucketsAllSourcesFailing(t *testing.T) {
	a := &exchangetest.Adapter{ID: "A", Err: errors.New("x")}
	s := newScanner(Config{}, a)

	assert.Empty(t, s.Buckets(context.Background(), []domain.SourceID{"A"}))
}

func TestFunding(t *testing.T) {
	a := &exchangetest.Adapter{ID: "A", Quotes: []exchangetest.Quote{
		{Base: "BTC", Quote: "USDT", Price: "1", Funding: "0.001"},
		{Base: "ETH", Quote: "USDT", Price: "1"},
	}}
	b := &exchangetest.Adapter{ID: "B", Err: errors.New("x")}
	c := &exchangetest.Adapter{ID: "C", Quotes: []exchangetest.Quote{
		{Base: "SOL", Quote: "USDT", Price: "1", Funding: "-0.002"},
	}}
	s := newScanner(Config{}, a, b, c)

	rates := s.Funding(context.Background(), []domain.SourceID{"A", "B", "C"})
	require.Len(t, rates, 2)
	assert.Equal(t, domain.SourceID("A"), rates[0].Source)
	assert.Equal(t, domain.SourceID("C"), rates[1].Source)
}

func TestInstruments(t *testing.T) {
	a := &exchangetest.Adapter{ID: "A", Quotes: []exchangetest.Quote{{Base: "BTC", Quote: "USDT", Price: "1"}}}
	b := &exchangetest.Adapter{ID: "B", Err: errors.New("x")}
	s := newScanner(Config{}, a, b)

	got := s.Instruments(context.Background(), []domain.SourceID{"A", "B"})
	require.Len(t, got, 1)
	assert.Len(t, got["A"], 1)
}
