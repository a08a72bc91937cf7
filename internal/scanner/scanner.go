// Package scanner fans market-data requests out across exchanges and merges
// the results by canonical symbol.
package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/fundybot/internal/domain"
)

// Sources resolves adapters by id.
type Sources interface {
	Lookup(id domain.SourceID) (domain.SourceAdapter, bool)
}

// Config bounds how long a scan may take.
type Config struct {
	OverallTimeout   time.Duration
	PerSourceTimeout time.Duration
}

// DefaultConfig returns production timeouts.
func DefaultConfig() Config {
	return Config{OverallTimeout: 20 * time.Second, PerSourceTimeout: 15 * time.Second}
}

// Scanner runs one task per source and tolerates any of them failing. A
// source that errors, panics or overruns its timeout contributes nothing.
type Scanner struct {
	sources Sources
	cfg     Config
	logger  *slog.Logger
}

// New creates a Scanner. Zero timeouts select the defaults.
func New(sources Sources, cfg Config, logger *slog.Logger) *Scanner {
	def := DefaultConfig()
	if cfg.OverallTimeout <= 0 {
		cfg.OverallTimeout = def.OverallTimeout
	}
	if cfg.PerSourceTimeout <= 0 {
		cfg.PerSourceTimeout = def.PerSourceTimeout
	}
	if cfg.PerSourceTimeout > cfg.OverallTimeout {
		cfg.PerSourceTimeout = cfg.OverallTimeout
	}
	return &Scanner{
		sources: sources,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "scanner")),
	}
}

// Buckets builds one BucketEntry per ticker with a positive price and groups
// them by canonical symbol. Groups appear in first-seen order, entries in
// source order.
func (s *Scanner) Buckets(ctx context.Context, ids []domain.SourceID) []domain.SymbolGroup {
	perSource := gather(ctx, s, ids, "buckets", s.sourceEntries)

	var groups []domain.SymbolGroup
	pos := make(map[string]int)
	for _, entries := range perSource {
		for _, e := range entries {
			i, ok := pos[e.Symbol]
			if !ok {
				i = len(groups)
				pos[e.Symbol] = i
				groups = append(groups, domain.SymbolGroup{Symbol: e.Symbol})
			}
			groups[i].Entries = append(groups[i].Entries, e)
		}
	}
	return groups
}

// Funding returns the funding rates of every perpetual on the given
// sources, in source order.
func (s *Scanner) Funding(ctx context.Context, ids []domain.SourceID) []domain.FundingRate {
	perSource := gather(ctx, s, ids, "funding", func(ctx context.Context, a domain.SourceAdapter) ([]domain.FundingRate, error) {
		instruments, err := perpetuals(ctx, a)
		if err != nil || len(instruments) == 0 {
			return nil, err
		}
		return a.FetchFundingRates(ctx, instruments)
	})

	var out []domain.FundingRate
	for _, rates := range perSource {
		out = append(out, rates...)
	}
	return out
}

// Instruments returns the perpetual instruments listed by each source that
// answered.
func (s *Scanner) Instruments(ctx context.Context, ids []domain.SourceID) map[domain.SourceID][]domain.Instrument {
	perSource := gather(ctx, s, ids, "instruments", perpetuals)

	out := make(map[domain.SourceID][]domain.Instrument, len(ids))
	for i, instruments := range perSource {
		if len(instruments) > 0 {
			out[ids[i]] = instruments
		}
	}
	return out
}

func (s *Scanner) sourceEntries(ctx context.Context, a domain.SourceAdapter) ([]domain.BucketEntry, error) {
	instruments, err := perpetuals(ctx, a)
	if err != nil {
		return nil, err
	}
	if len(instruments) == 0 {
		s.logger.InfoContext(ctx, "scanner: no perpetual instruments", slog.String("source", string(a.SourceID())))
		return nil, nil
	}

	funding, err := a.FetchFundingRates(ctx, instruments)
	if err != nil {
		return nil, err
	}
	byKey := make(map[string]domain.FundingRate, len(funding))
	for _, f := range funding {
		key := f.Instrument.CanonicalKey()
		if _, ok := byKey[key]; !ok {
			byKey[key] = f
		}
	}

	tickers, err := a.FetchTickers(ctx, instruments)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.BucketEntry, 0, len(tickers))
	for _, t := range tickers {
		if !t.Last.IsPositive() {
			continue
		}
		key := t.Instrument.CanonicalKey()
		e := domain.BucketEntry{Symbol: key, Source: a.SourceID(), Price: t.Last}
		if f, ok := byKey[key]; ok {
			e.FundingRate.Decimal = f.Rate
			e.FundingRate.Valid = true
			e.NextFundingTimeMs = f.NextFundingTimeMs
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func perpetuals(ctx context.Context, a domain.SourceAdapter) ([]domain.Instrument, error) {
	all, err := a.ListInstruments(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Instrument, 0, len(all))
	for _, inst := range all {
		if inst.Type == domain.InstrumentPerpetual {
			out = append(out, inst)
		}
	}
	return out, nil
}

type result[T any] struct {
	idx   int
	items []T
}

// gather runs fn once per enabled source and returns the per-source results
// indexed like ids. Failed, skipped or unfinished sources leave a nil slot.
func gather[T any](ctx context.Context, s *Scanner, ids []domain.SourceID, op string, fn func(context.Context, domain.SourceAdapter) ([]T, error)) [][]T {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.OverallTimeout)
	defer cancel()

	out := make([][]T, len(ids))
	ch := make(chan result[T], len(ids))
	pending := 0

	for i, id := range ids {
		a, ok := s.sources.Lookup(id)
		if !ok || !a.Enabled() {
			s.logger.DebugContext(ctx, "scanner: source skipped",
				slog.String("source", string(id)),
				slog.String("op", op),
			)
			continue
		}
		pending++
		go func() {
			start := time.Now()
			items, err := call(ctx, s.cfg.PerSourceTimeout, a, fn)
			if err != nil {
				s.logger.WarnContext(ctx, "scanner: source failed",
					slog.String("source", string(id)),
					slog.String("op", op),
					slog.Duration("elapsed", time.Since(start)),
					slog.String("error", err.Error()),
				)
				items = nil
			}
			ch <- result[T]{idx: i, items: items}
		}()
	}

	for pending > 0 {
		select {
		case r := <-ch:
			out[r.idx] = r.items
			pending--
		case <-ctx.Done():
			s.logger.WarnContext(ctx, "scanner: deadline reached",
				slog.String("op", op),
				slog.Int("pending", pending),
			)
			return out
		}
	}
	return out
}

// call runs fn under the per-source timeout and converts a panic into an
// error. It returns when the timeout fires even if fn does not.
func call[T any](ctx context.Context, timeout time.Duration, a domain.SourceAdapter, fn func(context.Context, domain.SourceAdapter) ([]T, error)) ([]T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		items []T
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: &domain.SourceError{Source: a.SourceID(), Msg: fmt.Sprintf("panic: %v", r)}}
			}
		}()
		items, err := fn(ctx, a)
		done <- outcome{items: items, err: err}
	}()

	select {
	case o := <-done:
		return o.items, o.err
	case <-ctx.Done():
		return nil, fmt.Errorf("source %s: %w", a.SourceID(), ctx.Err())
	}
}
