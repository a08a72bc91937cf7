package feed

import (
	"context"
	"strings"
	"sync"

	"github.com/alanyoungcy/fundybot/internal/domain"
)

// LocalBus is an in-process domain.SignalBus for deployments without Redis.
// Slow subscribers miss messages instead of blocking publishers.
type LocalBus struct {
	mu   sync.RWMutex
	subs map[*localSub]struct{}
}

type localSub struct {
	pattern string
	ch      chan []byte
}

// NewLocalBus creates an empty LocalBus.
func NewLocalBus() *LocalBus {
	return &LocalBus{subs: make(map[*localSub]struct{})}
}

func (b *LocalBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for s := range b.subs {
		if !matches(s.pattern, channel) {
			continue
		}
		select {
		case s.ch <- payload:
		default:
		}
	}
	return nil
}

// Subscribe accepts exact names and trailing-"*" patterns. The channel closes
// when ctx ends.
func (b *LocalBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	s := &localSub{pattern: channel, ch: make(chan []byte, 64)}
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, s)
		close(s.ch)
		b.mu.Unlock()
	}()
	return s.ch, nil
}

func matches(pattern, channel string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(channel, prefix)
	}
	return pattern == channel
}

var _ domain.SignalBus = (*LocalBus)(nil)
