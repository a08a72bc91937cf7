package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/fundybot/internal/domain"
	"github.com/alanyoungcy/fundybot/internal/service"
)

// ArbService ranks cross-exchange arbitrage.
type ArbService interface {
	Opportunities(ctx context.Context, q service.ArbitrageQuery) []domain.ArbitrageRecord
}

// ArbHandler serves arbitrage scans.
type ArbHandler struct {
	arb    ArbService
	logger *slog.Logger
}

// NewArbHandler creates an ArbHandler.
func NewArbHandler(arb ArbService, logger *slog.Logger) *ArbHandler {
	return &ArbHandler{arb: arb, logger: logger}
}

type arbitrageRequest struct {
	Exchanges      []string        `json:"exchanges" validate:"max=9"`
	MinFundingRate decimal.Decimal `json:"minFundingRate"`
	MinPriceSpread decimal.Decimal `json:"minPriceSpread"`
	Limit          int             `json:"limit" validate:"min=0,max=1000"`
}

// Opportunities returns arbitrage records ordered by funding spread.
// POST /api/arbitrage/opportunities
func (h *ArbHandler) Opportunities(w http.ResponseWriter, r *http.Request) {
	var req arbitrageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, h.logger, err, http.StatusBadRequest)
		return
	}
	sources, err := parseSources(req.Exchanges)
	if err != nil {
		writeServiceError(w, r, h.logger, err, http.StatusBadRequest)
		return
	}

	records := h.arb.Opportunities(r.Context(), service.ArbitrageQuery{
		Sources:          sources,
		MinFundingSpread: req.MinFundingRate,
		MinPriceSpread:   req.MinPriceSpread,
		Limit:            req.Limit,
	})
	if records == nil {
		records = []domain.ArbitrageRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}
