package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/alanyoungcy/fundybot/internal/cache/memo"
	"github.com/alanyoungcy/fundybot/internal/domain"
	"github.com/alanyoungcy/fundybot/internal/symbol"
)

// UniverseAllKey identifies the snapshot over every source.
const UniverseAllKey = "ALL"

// InstrumentScanner lists perpetual instruments per source.
type InstrumentScanner interface {
	Instruments(ctx context.Context, ids []domain.SourceID) map[domain.SourceID][]domain.Instrument
}

// UniverseConfig controls snapshot lifetime and the archive location.
type UniverseConfig struct {
	TTL      time.Duration
	BlobPath string
}

// UniverseService builds the cross-source perpetual universe. Snapshots are
// looked up in the in-process memo, then the shared cache, then the blob
// archive, and only then rebuilt from the exchanges.
type UniverseService struct {
	scanner InstrumentScanner
	memo    *memo.Cache
	cache   domain.UniverseCache
	reader  domain.BlobReader
	writer  domain.BlobWriter
	cfg     UniverseConfig
	logger  *slog.Logger
	now     func() time.Time
}

// NewUniverseService creates a UniverseService. cache, reader and writer
// may be nil.
func NewUniverseService(
	scanner InstrumentScanner,
	mc *memo.Cache,
	cache domain.UniverseCache,
	reader domain.BlobReader,
	writer domain.BlobWriter,
	cfg UniverseConfig,
	logger *slog.Logger,
) *UniverseService {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.BlobPath == "" {
		cfg.BlobPath = "universe/latest.json"
	}
	return &UniverseService{
		scanner: scanner,
		memo:    mc,
		cache:   cache,
		reader:  reader,
		writer:  writer,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "universe_service")),
		now:     time.Now,
	}
}

// UniverseKey names the snapshot for a source set. Empty or complete sets
// map to UniverseAllKey.
func UniverseKey(ids []domain.SourceID) string {
	if len(ids) == 0 || len(ids) == len(domain.AllSources) {
		return UniverseAllKey
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, ",")
}

// Snapshot returns the universe over ids. ids must be deduplicated and in
// canonical order, as produced by domain.ParseSources.
func (s *UniverseService) Snapshot(ctx context.Context, ids []domain.SourceID) (domain.UniverseSnapshot, error) {
	if len(ids) == 0 {
		ids = domain.AllSources
	}
	key := UniverseKey(ids)
	return memo.Get(ctx, s.memo, memo.Key{Source: "*", Kind: memo.KindUniverse, Sub: key},
		func(ctx context.Context) (domain.UniverseSnapshot, error) {
			return s.load(ctx, key, ids)
		})
}

func (s *UniverseService) load(ctx context.Context, key string, ids []domain.SourceID) (domain.UniverseSnapshot, error) {
	if s.cache != nil {
		snap, err := s.cache.Get(ctx, key)
		switch {
		case err == nil:
			return snap, nil
		case !errors.Is(err, domain.ErrNotFound):
			s.logger.WarnContext(ctx, "universe cache read failed",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}

	if key == UniverseAllKey && s.reader != nil {
		snap, ok := s.readArchive(ctx)
		if ok {
			s.cacheSnapshot(ctx, snap)
			return snap, nil
		}
	}

	snap := s.Build(ctx, key, ids)
	s.logger.InfoContext(ctx, "universe rebuilt",
		slog.String("key", key),
		slog.Int("entries", len(snap.Entries)),
	)
	if key == UniverseAllKey {
		s.cacheSnapshot(ctx, snap)
		if err := s.archive(ctx, snap); err != nil {
			s.logger.WarnContext(ctx, "universe archive failed", slog.String("error", err.Error()))
		}
	}
	return snap, nil
}

// Build computes a fresh snapshot from the exchanges. Sources that fail
// are left out.
func (s *UniverseService) Build(ctx context.Context, key string, ids []domain.SourceID) domain.UniverseSnapshot {
	raw := symbol.RawUniverse{}
	for src, instruments := range s.scanner.Instruments(ctx, ids) {
		for _, inst := range instruments {
			raw.Add(inst.CanonicalKey(), src, inst.NativeSymbol)
		}
	}
	return domain.UniverseSnapshot{
		Key:     key,
		BuiltAt: s.now().UTC(),
		Entries: symbol.NormalizeUniverse(raw),
	}
}

func (s *UniverseService) cacheSnapshot(ctx context.Context, snap domain.UniverseSnapshot) {
	if s.cache == nil {
		return
	}
	ttl := s.cfg.TTL - s.now().Sub(snap.BuiltAt)
	if ttl <= 0 {
		return
	}
	if err := s.cache.Set(ctx, snap, ttl); err != nil {
		s.logger.WarnContext(ctx, "universe cache write failed",
			slog.String("key", snap.Key),
			slog.String("error", err.Error()),
		)
	}
}

func (s *UniverseService) readArchive(ctx context.Context) (domain.UniverseSnapshot, bool) {
	info, err := s.reader.Stat(ctx, s.cfg.BlobPath)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "universe archive stat failed", slog.String("error", err.Error()))
		}
		return domain.UniverseSnapshot{}, false
	}
	if s.now().Sub(info.LastModified) > s.cfg.TTL {
		return domain.UniverseSnapshot{}, false
	}

	rc, err := s.reader.Get(ctx, s.cfg.BlobPath)
	if err != nil {
		s.logger.WarnContext(ctx, "universe archive read failed", slog.String("error", err.Error()))
		return domain.UniverseSnapshot{}, false
	}
	defer rc.Close()

	var snap domain.UniverseSnapshot
	if err := json.NewDecoder(rc).Decode(&snap); err != nil {
		s.logger.WarnContext(ctx, "universe archive decode failed", slog.String("error", err.Error()))
		return domain.UniverseSnapshot{}, false
	}
	if snap.Key != UniverseAllKey || s.now().Sub(snap.BuiltAt) > s.cfg.TTL {
		return domain.UniverseSnapshot{}, false
	}
	return snap, true
}

func (s *UniverseService) archive(ctx context.Context, snap domain.UniverseSnapshot) error {
	if s.writer == nil {
		return nil
	}
	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(json.NewEncoder(pw).Encode(snap))
	}()

	err := s.writer.PutMultipart(ctx, s.cfg.BlobPath, pr, 0)
	_ = pr.CloseWithError(err)
	if err != nil {
		return fmt.Errorf("universe_service: archive: %w", err)
	}
	return nil
}
