// Package memory provides process-local store implementations used when no
// database is configured.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/alanyoungcy/fundybot/internal/domain"
)

// SubscriberStore keeps subscribers in a map. It is safe for concurrent use.
type SubscriberStore struct {
	mu   sync.RWMutex
	subs map[int64]domain.Subscriber
	now  func() time.Time
}

// NewSubscriberStore creates a store seeded with subs.
func NewSubscriberStore(subs ...domain.Subscriber) *SubscriberStore {
	s := &SubscriberStore{subs: make(map[int64]domain.Subscriber, len(subs)), now: time.Now}
	for _, sub := range subs {
		s.subs[sub.ID] = clone(sub)
	}
	return s
}

func (s *SubscriberStore) Get(_ context.Context, id int64) (domain.Subscriber, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subs[id]
	if !ok {
		return domain.Subscriber{}, domain.ErrNotFound
	}
	return clone(sub), nil
}

// List returns subscribers ordered by id.
func (s *SubscriberStore) List(_ context.Context) ([]domain.Subscriber, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Subscriber, 0, len(s.subs))
	for _, sub := range s.subs {
		out = append(out, clone(sub))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *SubscriberStore) Upsert(_ context.Context, sub domain.Subscriber) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub = clone(sub)
	sub.UpdatedAt = s.now().UTC()
	s.subs[sub.ID] = sub
	return nil
}

func (s *SubscriberStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.subs, id)
	return nil
}

func clone(sub domain.Subscriber) domain.Subscriber {
	sub.Sources = slices.Clone(sub.Sources)
	return sub
}

var _ domain.SubscriberStore = (*SubscriberStore)(nil)
