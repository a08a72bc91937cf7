package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/fundybot/internal/service"
)

// FundingService ranks funding rates.
type FundingService interface {
	Opportunities(ctx context.Context, q service.FundingQuery) []service.FundingView
}

// FundingHandler serves funding scans.
type FundingHandler struct {
	funding FundingService
	logger  *slog.Logger
}

// NewFundingHandler creates a FundingHandler.
func NewFundingHandler(funding FundingService, logger *slog.Logger) *FundingHandler {
	return &FundingHandler{funding: funding, logger: logger}
}

type fundingRequest struct {
	Exchanges      []string        `json:"exchanges" validate:"max=9"`
	MinFundingRate decimal.Decimal `json:"minFundingRate"`
	TimeZone       string          `json:"timeZone"`
	Limit          int             `json:"limit" validate:"min=0,max=1000"`
}

// Opportunities returns funding rates with |rate| >= |minFundingRate|.
// Unknown time zones fall back to the server zone.
// POST /api/funding/opportunities
func (h *FundingHandler) Opportunities(w http.ResponseWriter, r *http.Request) {
	var req fundingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, h.logger, err, http.StatusBadRequest)
		return
	}
	sources, err := parseSources(req.Exchanges)
	if err != nil {
		writeServiceError(w, r, h.logger, err, http.StatusBadRequest)
		return
	}

	views := h.funding.Opportunities(r.Context(), service.FundingQuery{
		Sources:  sources,
		MinRate:  req.MinFundingRate,
		TimeZone: req.TimeZone,
		Limit:    req.Limit,
	})
	writeJSON(w, http.StatusOK, views)
}
