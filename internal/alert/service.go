package alert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/fundybot/internal/domain"
)

const cycleLockKey = "fundy:alert:cycle"

// Delivery hands pre-formatted text to the subscriber's channel.
type Delivery interface {
	Deliver(ctx context.Context, subscriberID int64, text string) error
}

// OpsNotifier receives operational events such as failed cycles.
type OpsNotifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// SnapshotSource supplies the latest funding snapshot across sources.
type SnapshotSource interface {
	Rates() (rates []domain.FundingRate, refreshedAt time.Time)
	ForceRefresh(ctx context.Context, timeout time.Duration) error
}

// Config controls the alert loop.
type Config struct {
	Interval            time.Duration
	StaleAfter          time.Duration
	ForceRefreshTimeout time.Duration
	LockTTL             time.Duration
	DefaultBucketWidth  time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Interval:            2 * time.Minute,
		StaleAfter:          5 * time.Minute,
		ForceRefreshTimeout: 20 * time.Second,
		LockTTL:             90 * time.Second,
		DefaultBucketWidth:  time.Hour,
	}
}

// Service runs alert cycles: filter the funding snapshot per subscriber,
// deduplicate and deliver.
type Service struct {
	subs      domain.SubscriberStore
	snapshots SnapshotSource
	dedup     *Deduplicator
	delivery  Delivery
	lock      domain.LockManager
	ops       OpsNotifier
	cfg       Config
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates a Service. lock and ops may be nil.
func NewService(
	subs domain.SubscriberStore,
	snapshots SnapshotSource,
	dedup *Deduplicator,
	delivery Delivery,
	lock domain.LockManager,
	ops OpsNotifier,
	cfg Config,
	logger *slog.Logger,
) *Service {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = def.StaleAfter
	}
	if cfg.ForceRefreshTimeout <= 0 {
		cfg.ForceRefreshTimeout = def.ForceRefreshTimeout
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = def.LockTTL
	}
	if cfg.DefaultBucketWidth <= 0 {
		cfg.DefaultBucketWidth = def.DefaultBucketWidth
	}
	return &Service{
		subs:      subs,
		snapshots: snapshots,
		dedup:     dedup,
		delivery:  delivery,
		lock:      lock,
		ops:       ops,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "alert")),
		now:       time.Now,
	}
}

// Run executes a cycle every Interval until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "alert loop started", slog.Duration("interval", s.cfg.Interval))

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "alert loop stopped")
			return nil
		case <-ticker.C:
			if _, err := s.RunCycle(ctx); err != nil && ctx.Err() == nil {
				s.logger.ErrorContext(ctx, "alert cycle failed", slog.String("error", err.Error()))
				if s.ops != nil {
					_ = s.ops.Notify(ctx, "alert_cycle_failed", "Alert cycle failed", err.Error())
				}
			}
		}
	}
}

// RunCycle runs one pass over all subscribers and returns the number of
// messages delivered. A cycle held by another replica is skipped silently.
func (s *Service) RunCycle(ctx context.Context) (int, error) {
	if s.lock != nil {
		unlock, err := s.lock.Acquire(ctx, cycleLockKey, s.cfg.LockTTL)
		if errors.Is(err, domain.ErrLockHeld) {
			s.logger.DebugContext(ctx, "alert cycle held elsewhere")
			return 0, nil
		}
		if err != nil {
			return 0, fmt.Errorf("alert: cycle lock: %w", err)
		}
		defer unlock()
	}

	subs, err := s.subs.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("alert: list subscribers: %w", err)
	}
	if len(subs) == 0 {
		return 0, nil
	}

	rates := s.currentRates(ctx)

	sent := 0
	for _, sub := range subs {
		n, err := s.processSubscriber(ctx, sub, rates)
		sent += n
		if err != nil {
			return sent, err
		}
	}
	return sent, nil
}

func (s *Service) currentRates(ctx context.Context) []domain.FundingRate {
	rates, at := s.snapshots.Rates()
	if s.now().Sub(at) <= s.cfg.StaleAfter {
		return rates
	}
	if err := s.snapshots.ForceRefresh(ctx, s.cfg.ForceRefreshTimeout); err != nil {
		s.logger.WarnContext(ctx, "snapshot force refresh failed", slog.String("error", err.Error()))
	}
	rates, _ = s.snapshots.Rates()
	return rates
}

func (s *Service) processSubscriber(ctx context.Context, sub domain.Subscriber, rates []domain.FundingRate) (int, error) {
	now := s.now()
	loc := sub.Location()
	width := sub.BucketWidth
	if width <= 0 {
		width = s.cfg.DefaultBucketWidth
	}

	sent := 0
	for _, fr := range Eligible(sub, rates, now) {
		key := domain.AlertKey{
			SubscriberID: sub.ID,
			Source:       fr.Source,
			NativeSymbol: fr.Instrument.NativeSymbol,
			Bucket:       Bucket(fr.NextFundingTimeMs, width),
		}

		outcome, prev, err := s.dedup.Check(ctx, key, fr.Rate)
		if err != nil {
			return sent, err
		}
		if outcome == Skip {
			continue
		}

		text := Format(Message{Outcome: outcome, Funding: fr, Previous: prev}, loc, now)
		if err := s.delivery.Deliver(ctx, sub.ID, text); err != nil {
			s.logger.WarnContext(ctx, "alert delivery failed",
				slog.Int64("subscriber", sub.ID),
				slog.String("source", fr.Source.String()),
				slog.String("symbol", fr.Instrument.NativeSymbol),
				slog.String("error", err.Error()),
			)
			continue
		}
		sent++
		s.logger.DebugContext(ctx, "alert sent",
			slog.Int64("subscriber", sub.ID),
			slog.String("outcome", outcome.String()),
			slog.String("source", fr.Source.String()),
			slog.String("symbol", fr.Instrument.NativeSymbol),
		)
	}
	return sent, nil
}

// Eligible returns the rates a subscriber should be alerted about at now:
// a followed source, |rate| at least MinAbsRate and funding due within
// NotifyBefore.
func Eligible(sub domain.Subscriber, rates []domain.FundingRate, now time.Time) []domain.FundingRate {
	nowMs := now.UnixMilli()
	window := sub.NotifyBefore.Milliseconds()
	minRate := sub.MinAbsRate.Abs()

	var out []domain.FundingRate
	for _, fr := range rates {
		if !sub.Wants(fr.Source) {
			continue
		}
		if fr.Rate.Abs().LessThan(minRate) {
			continue
		}
		left := fr.NextFundingTimeMs - nowMs
		if left < 0 || left > window {
			continue
		}
		out = append(out, fr)
	}
	return out
}

// Bucket floors a funding timestamp to the start of its width-sized window.
func Bucket(nextFundingMs int64, width time.Duration) int64 {
	w := width.Milliseconds()
	if w <= 0 {
		return nextFundingMs
	}
	return nextFundingMs - nextFundingMs%w
}
