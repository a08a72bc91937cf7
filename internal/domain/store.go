package domain

import "context"

// SubscriberStore persists alert subscriber preferences.
type SubscriberStore interface {
	Get(ctx context.Context, id int64) (Subscriber, error)
	List(ctx context.Context) ([]Subscriber, error)
	Upsert(ctx context.Context, sub Subscriber) error
	Delete(ctx context.Context, id int64) error
}
