package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/fundybot/internal/domain"
)

// SubscriberStore implements domain.SubscriberStore on the
// alert_subscribers table.
type SubscriberStore struct {
	pool *pgxpool.Pool
}

// NewSubscriberStore creates a SubscriberStore backed by the given pool.
func NewSubscriberStore(pool *pgxpool.Pool) *SubscriberStore {
	return &SubscriberStore{pool: pool}
}

const subscriberColumns = `chat_id, min_abs_rate::text, sources, notify_before_sec, zone, bucket_sec, updated_at`

// Get returns one subscriber or domain.ErrNotFound.
func (s *SubscriberStore) Get(ctx context.Context, id int64) (domain.Subscriber, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+subscriberColumns+` FROM alert_subscribers WHERE chat_id = $1`, id)
	sub, err := scanSubscriber(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Subscriber{}, domain.ErrNotFound
		}
		return domain.Subscriber{}, fmt.Errorf("postgres: get subscriber %d: %w", id, err)
	}
	return sub, nil
}

// List returns every subscriber ordered by id.
func (s *SubscriberStore) List(ctx context.Context) ([]domain.Subscriber, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+subscriberColumns+` FROM alert_subscribers ORDER BY chat_id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list subscribers: %w", err)
	}
	defer rows.Close()

	var subs []domain.Subscriber
	for rows.Next() {
		sub, err := scanSubscriber(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan subscriber: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate subscribers: %w", err)
	}
	return subs, nil
}

// Upsert inserts or replaces a subscriber's preferences.
func (s *SubscriberStore) Upsert(ctx context.Context, sub domain.Subscriber) error {
	const query = `
		INSERT INTO alert_subscribers (chat_id, min_abs_rate, sources, notify_before_sec, zone, bucket_sec, updated_at)
		VALUES ($1, $2::numeric, $3, $4, $5, $6, NOW())
		ON CONFLICT (chat_id) DO UPDATE SET
			min_abs_rate      = EXCLUDED.min_abs_rate,
			sources           = EXCLUDED.sources,
			notify_before_sec = EXCLUDED.notify_before_sec,
			zone              = EXCLUDED.zone,
			bucket_sec        = EXCLUDED.bucket_sec,
			updated_at        = NOW()`

	sources := make([]string, len(sub.Sources))
	for i, src := range sub.Sources {
		sources[i] = string(src)
	}

	_, err := s.pool.Exec(ctx, query,
		sub.ID,
		sub.MinAbsRate.String(),
		sources,
		int64(sub.NotifyBefore/time.Second),
		sub.TimeZone,
		int64(sub.BucketWidth/time.Second),
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert subscriber %d: %w", sub.ID, err)
	}
	return nil
}

// Delete removes a subscriber. Deleting an unknown id returns
// domain.ErrNotFound.
func (s *SubscriberStore) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM alert_subscribers WHERE chat_id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete subscriber %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanSubscriber(row pgx.Row) (domain.Subscriber, error) {
	var (
		sub            domain.Subscriber
		minRate        string
		sources        []string
		notifySec, bkt int64
	)
	if err := row.Scan(&sub.ID, &minRate, &sources, &notifySec, &sub.TimeZone, &bkt, &sub.UpdatedAt); err != nil {
		return domain.Subscriber{}, err
	}

	rate, err := decimal.NewFromString(minRate)
	if err != nil {
		return domain.Subscriber{}, fmt.Errorf("min_abs_rate %q: %w", minRate, err)
	}
	sub.MinAbsRate = rate
	sub.NotifyBefore = time.Duration(notifySec) * time.Second
	sub.BucketWidth = time.Duration(bkt) * time.Second
	for _, name := range sources {
		if id, err := domain.ParseSource(name); err == nil {
			sub.Sources = append(sub.Sources, id)
		}
	}
	return sub, nil
}

var _ domain.SubscriberStore = (*SubscriberStore)(nil)
