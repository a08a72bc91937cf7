package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/fundybot/internal/domain"
)

// UniverseService builds perpetual universes.
type UniverseService interface {
	Snapshot(ctx context.Context, ids []domain.SourceID) (domain.UniverseSnapshot, error)
}

// UniverseHandler serves the cross-exchange universe.
type UniverseHandler struct {
	universe UniverseService
	logger   *slog.Logger
}

// NewUniverseHandler creates a UniverseHandler.
func NewUniverseHandler(universe UniverseService, logger *slog.Logger) *UniverseHandler {
	return &UniverseHandler{universe: universe, logger: logger}
}

// GetUniverse returns the universe over the requested exchanges.
// GET /api/universe?exchanges=BYBIT,OKX
func (h *UniverseHandler) GetUniverse(w http.ResponseWriter, r *http.Request) {
	sources, err := parseSources(r.URL.Query()["exchanges"])
	if err != nil {
		writeServiceError(w, r, h.logger, err, http.StatusBadRequest)
		return
	}
	snap, err := h.universe.Snapshot(r.Context(), sources)
	if err != nil {
		writeServiceError(w, r, h.logger, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
