package alert

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/fundybot/internal/domain"
)

// DefaultSentTTL bounds how long a notified key is remembered.
const DefaultSentTTL = 12 * time.Hour

type sentEntry struct {
	rate   decimal.Decimal
	marked time.Time
}

// MemoryStore is a process-local domain.AlertSentStore. Entries expire ttl
// after they were first marked. It is safe for concurrent use.
type MemoryStore struct {
	mu   sync.Mutex
	sent map[domain.AlertKey]sentEntry
	ttl  time.Duration
	now  func() time.Time
}

// NewMemoryStore creates a MemoryStore. A non-positive ttl uses
// DefaultSentTTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultSentTTL
	}
	return &MemoryStore{
		sent: make(map[domain.AlertKey]sentEntry),
		ttl:  ttl,
		now:  time.Now,
	}
}

func (m *MemoryStore) MarkIfAbsent(_ context.Context, key domain.AlertKey, rate decimal.Decimal) (bool, decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if e, ok := m.sent[key]; ok && now.Sub(e.marked) <= m.ttl {
		return false, e.rate, nil
	}
	m.sent[key] = sentEntry{rate: rate, marked: now}
	return true, rate, nil
}

// Put replaces the stored rate and keeps the original mark time.
func (m *MemoryStore) Put(_ context.Context, key domain.AlertKey, rate decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sent[key]
	if !ok {
		e.marked = m.now()
	}
	e.rate = rate
	m.sent[key] = e
	return nil
}

// Cleanup removes expired entries and returns how many remain.
func (m *MemoryStore) Cleanup() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for k, e := range m.sent {
		if now.Sub(e.marked) > m.ttl {
			delete(m.sent, k)
		}
	}
	return len(m.sent)
}

// RunCleanup sweeps expired entries every interval until ctx is done.
func (m *MemoryStore) RunCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Cleanup()
		}
	}
}

var _ domain.AlertSentStore = (*MemoryStore)(nil)
