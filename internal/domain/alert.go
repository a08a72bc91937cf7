package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// AlertKey identifies one notification slot: a subscriber, an instrument on
// one source and the funding period it falls into.
type AlertKey struct {
	SubscriberID int64
	Source       SourceID
	NativeSymbol string
	Bucket       int64
}

func (k AlertKey) String() string {
	return fmt.Sprintf("%d:%s:%s:%d", k.SubscriberID, k.Source, k.NativeSymbol, k.Bucket)
}

// Subscriber holds one alert recipient's preferences.
type Subscriber struct {
	ID           int64           `json:"id"`
	MinAbsRate   decimal.Decimal `json:"minAbsRate"`
	Sources      []SourceID      `json:"exchanges"`
	NotifyBefore time.Duration   `json:"notifyBefore"`
	TimeZone     string          `json:"timeZone"`
	BucketWidth  time.Duration   `json:"bucketWidth"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// Wants reports whether the subscriber follows the given source. An empty
// source list means all sources.
func (s Subscriber) Wants(src SourceID) bool {
	if len(s.Sources) == 0 {
		return true
	}
	for _, x := range s.Sources {
		if x == src {
			return true
		}
	}
	return false
}

// Location resolves the subscriber's zone, falling back to the host zone.
func (s Subscriber) Location() *time.Location {
	return LoadLocation(s.TimeZone)
}

// LoadLocation resolves an IANA zone name. Empty or unknown names resolve
// to time.Local.
func LoadLocation(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.Local
	}
	return loc
}

// SubscriberDefaults are the preferences a new subscriber starts with.
type SubscriberDefaults struct {
	MinAbsRate   decimal.Decimal
	NotifyBefore time.Duration
	TimeZone     string
	BucketWidth  time.Duration
}

// DefaultSubscriberDefaults: 0.5% minimum, every source, 30 minutes lead
// time, host zone, hourly buckets.
func DefaultSubscriberDefaults() SubscriberDefaults {
	return SubscriberDefaults{
		MinAbsRate:   decimal.New(5, -3),
		NotifyBefore: 30 * time.Minute,
		BucketWidth:  time.Hour,
	}
}

// New returns a subscriber with id and the default preferences.
func (d SubscriberDefaults) New(id int64) Subscriber {
	return Subscriber{
		ID:           id,
		MinAbsRate:   d.MinAbsRate,
		NotifyBefore: d.NotifyBefore,
		TimeZone:     d.TimeZone,
		BucketWidth:  d.BucketWidth,
	}
}
