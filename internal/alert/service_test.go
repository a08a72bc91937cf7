package alert

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/fundybot/internal/domain"
)

type fakeSubs struct{ subs []domain.Subscriber }

func (f *fakeSubs) Get(context.Context, int64) (domain.Subscriber, error) {
	return domain.Subscriber{}, domain.ErrNotFound
}
func (f *fakeSubs) List(context.Context) ([]domain.Subscriber, error) { return f.subs, nil }
func (f *fakeSubs) Upsert(context.Context, domain.Subscriber) error   { return nil }
func (f *fakeSubs) Delete(context.Context, int64) error               { return nil }

type fakeSnapshots struct {
	rates   []domain.FundingRate
	at      time.Time
	forced  int
	refresh []domain.FundingRate
}

func (f *fakeSnapshots) Rates() ([]domain.FundingRate, time.Time) { return f.rates, f.at }

func (f *fakeSnapshots) ForceRefresh(context.Context, time.Duration) error {
	f.forced++
	if f.refresh != nil {
		f.rates = f.refresh
	}
	return nil
}

type sentMsg struct {
	sub  int64
	text string
}

type fakeDelivery struct {
	mu   sync.Mutex
	msgs []sentMsg
	err  error
}

func (f *fakeDelivery) Deliver(_ context.Context, sub int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, sentMsg{sub, text})
	return nil
}

type heldLock struct{}

func (heldLock) Acquire(context.Context, string, time.Duration) (func(), error) {
	return nil, domain.ErrLockHeld
}

var cycleNow = time.Date(2024, 3, 1, 15, 40, 0, 0, time.UTC)

func newTestService(subs []domain.Subscriber, snaps *fakeSnapshots, del *fakeDelivery, lock domain.LockManager) *Service {
	s := NewService(&fakeSubs{subs: subs}, snaps, NewDeduplicator(NewMemoryStore(time.Hour), dec("0.001")),
		del, lock, nil, DefaultConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.now = func() time.Time { return cycleNow }
	return s
}

func defaultSub(id int64) domain.Subscriber {
	return domain.Subscriber{
		ID:           id,
		MinAbsRate:   dec("0.005"),
		NotifyBefore: 30 * time.Minute,
		TimeZone:     "UTC",
		BucketWidth:  time.Hour,
	}
}

func TestRunCycleSendsOncePerKey(t *testing.T) {
	next := time.Date(2024, 3, 1, 16, 0, 0, 0, time.UTC)
	snaps := &fakeSnapshots{at: cycleNow, rates: []domain.FundingRate{
		funding(domain.SourceBybit, "KNC", "KNCUSDT", "-0.0054", next),
		funding(domain.SourceBybit, "BTC", "BTCUSDT", "0.0001", next),
		funding(domain.SourceOKX, "ETH", "ETH-USDT-SWAP", "0.0080", next.Add(4*time.Hour)),
	}}
	del := &fakeDelivery{}
	svc := newTestService([]domain.Subscriber{defaultSub(1)}, snaps, del, nil)

	n, err := svc.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, del.msgs, 1)
	assert.Equal(t, int64(1), del.msgs[0].sub)
	assert.Contains(t, del.msgs[0].text, "KNC -0.54%")

	n, err = svc.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Len(t, del.msgs, 1)
}

func TestRunCycleSendsMaterialUpdates(t *testing.T) {
	next := time.Date(2024, 3, 1, 16, 0, 0, 0, time.UTC)
	snaps := &fakeSnapshots{at: cycleNow, rates: []domain.FundingRate{
		funding(domain.SourceBybit, "KNC", "KNCUSDT", "0.0060", next),
	}}
	del := &fakeDelivery{}
	svc := newTestService([]domain.Subscriber{defaultSub(1)}, snaps, del, nil)

	_, err := svc.RunCycle(context.Background())
	require.NoError(t, err)

	snaps.rates = []domain.FundingRate{funding(domain.SourceBybit, "KNC", "KNCUSDT", "0.0075", next)}
	n, err := svc.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, del.msgs, 2)
	assert.Contains(t, del.msgs[1].text, "0.75% (was 0.6%)")
}

func TestRunCycleSkipsWhenLockHeld(t *testing.T) {
	next := cycleNow.Add(10 * time.Minute)
	snaps := &fakeSnapshots{at: cycleNow, rates: []domain.FundingRate{
		funding(domain.SourceBybit, "KNC", "KNCUSDT", "0.01", next),
	}}
	del := &fakeDelivery{}
	svc := newTestService([]domain.Subscriber{defaultSub(1)}, snaps, del, heldLock{})

	n, err := svc.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, del.msgs)
}

func TestRunCycleForcesRefreshWhenStale(t *testing.T) {
	next := cycleNow.Add(10 * time.Minute)
	snaps := &fakeSnapshots{
		at:      cycleNow.Add(-10 * time.Minute),
		refresh: []domain.FundingRate{funding(domain.SourceMEXC, "SOL", "SOL_USDT", "0.02", next)},
	}
	del := &fakeDelivery{}
	svc := newTestService([]domain.Subscriber{defaultSub(1)}, snaps, del, nil)

	n, err := svc.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, snaps.forced)
	assert.Equal(t, 1, n)
}

func TestRunCycleDeliveryFailureDoesNotAbort(t *testing.T) {
	next := cycleNow.Add(10 * time.Minute)
	snaps := &fakeSnapshots{at: cycleNow, rates: []domain.FundingRate{
		funding(domain.SourceBybit, "KNC", "KNCUSDT", "0.01", next),
	}}
	del := &fakeDelivery{err: errors.New("chat not found")}
	svc := newTestService([]domain.Subscriber{defaultSub(1), defaultSub(2)}, snaps, del, nil)

	n, err := svc.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestEligible(t *testing.T) {
	now := cycleNow
	sub := defaultSub(1)
	sub.Sources = []domain.SourceID{domain.SourceBybit, domain.SourceOKX}

	rates := []domain.FundingRate{
		funding(domain.SourceBybit, "A", "AUSDT", "0.005", now.Add(30*time.Minute)),
		funding(domain.SourceBybit, "B", "BUSDT", "-0.006", now),
		funding(domain.SourceBybit, "C", "CUSDT", "0.0049", now.Add(time.Minute)),
		funding(domain.SourceBybit, "D", "DUSDT", "0.01", now.Add(31*time.Minute)),
		funding(domain.SourceBybit, "E", "EUSDT", "0.01", now.Add(-time.Second)),
		funding(domain.SourceMEXC, "F", "F_USDT", "0.01", now.Add(time.Minute)),
	}

	var got []string
	for _, fr := range Eligible(sub, rates, now) {
		got = append(got, fr.Instrument.BaseAsset)
	}
	assert.Equal(t, []string{"A", "B"}, got)
}

func TestBucket(t *testing.T) {
	ms := time.Date(2024, 3, 1, 16, 0, 0, 0, time.UTC).UnixMilli()
	assert.Equal(t, ms, Bucket(ms+59*60*1000, time.Hour))
	assert.Equal(t, ms+1, Bucket(ms+1, 0))
}
