package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/fundybot/internal/domain"
)

// SubscriberHandler manages alert subscriber preferences.
type SubscriberHandler struct {
	store    domain.SubscriberStore
	defaults domain.SubscriberDefaults
	logger   *slog.Logger
}

// NewSubscriberHandler creates a SubscriberHandler. New subscribers start
// from defaults.
func NewSubscriberHandler(store domain.SubscriberStore, defaults domain.SubscriberDefaults, logger *slog.Logger) *SubscriberHandler {
	return &SubscriberHandler{store: store, defaults: defaults, logger: logger}
}

type subscriberView struct {
	ID                  int64             `json:"id"`
	MinAbsRate          decimal.Decimal   `json:"minAbsRate"`
	Exchanges           []domain.SourceID `json:"exchanges"`
	NotifyBeforeMinutes int               `json:"notifyBeforeMinutes"`
	TimeZone            string            `json:"timeZone"`
	BucketMinutes       int               `json:"bucketMinutes"`
	UpdatedAt           time.Time         `json:"updatedAt"`
}

func toView(s domain.Subscriber) subscriberView {
	ex := s.Sources
	if ex == nil {
		ex = []domain.SourceID{}
	}
	return subscriberView{
		ID:                  s.ID,
		MinAbsRate:          s.MinAbsRate,
		Exchanges:           ex,
		NotifyBeforeMinutes: int(s.NotifyBefore / time.Minute),
		TimeZone:            s.TimeZone,
		BucketMinutes:       int(s.BucketWidth / time.Minute),
		UpdatedAt:           s.UpdatedAt,
	}
}

// subscriberPatch carries the fields a PUT may change; nil fields keep their
// current value.
type subscriberPatch struct {
	MinAbsRate          *decimal.Decimal `json:"minAbsRate"`
	Exchanges           *[]string        `json:"exchanges"`
	NotifyBeforeMinutes *int             `json:"notifyBeforeMinutes" validate:"omitempty,min=1,max=1440"`
	TimeZone            *string          `json:"timeZone" validate:"omitempty,timezone"`
	BucketMinutes       *int             `json:"bucketMinutes" validate:"omitempty,min=1,max=1440"`
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, &domain.ValidationError{Field: "id", Err: errors.New("must be an integer chat id")}
	}
	return id, nil
}

// ListSubscribers returns every subscriber.
// GET /api/subscribers
func (h *SubscriberHandler) ListSubscribers(w http.ResponseWriter, r *http.Request) {
	subs, err := h.store.List(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err, http.StatusInternalServerError)
		return
	}
	out := make([]subscriberView, 0, len(subs))
	for _, s := range subs {
		out = append(out, toView(s))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetSubscriber returns one subscriber.
// GET /api/subscribers/{id}
func (h *SubscriberHandler) GetSubscriber(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeServiceError(w, r, h.logger, err, http.StatusBadRequest)
		return
	}
	sub, err := h.store.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toView(sub))
}

// PutSubscriber creates or updates a subscriber. Unknown ids start from the
// defaults.
// PUT /api/subscribers/{id}
func (h *SubscriberHandler) PutSubscriber(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeServiceError(w, r, h.logger, err, http.StatusBadRequest)
		return
	}
	var patch subscriberPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeServiceError(w, r, h.logger, err, http.StatusBadRequest)
		return
	}

	sub, err := h.store.Get(r.Context(), id)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		sub = h.defaults.New(id)
	case err != nil:
		writeServiceError(w, r, h.logger, err, http.StatusInternalServerError)
		return
	}

	if err := applyPatch(&sub, patch); err != nil {
		writeServiceError(w, r, h.logger, err, http.StatusBadRequest)
		return
	}
	if err := h.store.Upsert(r.Context(), sub); err != nil {
		writeServiceError(w, r, h.logger, err, http.StatusInternalServerError)
		return
	}

	saved, err := h.store.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toView(saved))
}

// DeleteSubscriber removes a subscriber.
// DELETE /api/subscribers/{id}
func (h *SubscriberHandler) DeleteSubscriber(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeServiceError(w, r, h.logger, err, http.StatusBadRequest)
		return
	}
	if err := h.store.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, h.logger, err, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func applyPatch(sub *domain.Subscriber, p subscriberPatch) error {
	if p.MinAbsRate != nil {
		if p.MinAbsRate.IsNegative() {
			return &domain.ValidationError{Field: "minAbsRate", Err: errors.New("must not be negative")}
		}
		sub.MinAbsRate = *p.MinAbsRate
	}
	if p.Exchanges != nil {
		if len(*p.Exchanges) == 0 {
			sub.Sources = nil
		} else {
			ids, err := parseSources(*p.Exchanges)
			if err != nil {
				return err
			}
			sub.Sources = ids
		}
	}
	if p.NotifyBeforeMinutes != nil {
		sub.NotifyBefore = time.Duration(*p.NotifyBeforeMinutes) * time.Minute
	}
	if p.TimeZone != nil {
		sub.TimeZone = *p.TimeZone
	}
	if p.BucketMinutes != nil {
		sub.BucketWidth = time.Duration(*p.BucketMinutes) * time.Minute
	}
	return nil
}
