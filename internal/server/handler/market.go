package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/fundybot/internal/domain"
	"github.com/alanyoungcy/fundybot/internal/service"
)

// MarketService is what the market handler needs from the service layer.
type MarketService interface {
	Sources() []service.SourceStatus
	Instruments(ctx context.Context, src domain.SourceID) ([]domain.Instrument, error)
	Ticker(ctx context.Context, src domain.SourceID, base, quote string) (domain.Ticker, error)
	Tickers(ctx context.Context, src domain.SourceID, pairs []service.Pair) ([]domain.Ticker, error)
}

// MarketHandler serves single-exchange market data.
type MarketHandler struct {
	markets MarketService
	logger  *slog.Logger
}

// NewMarketHandler creates a MarketHandler.
func NewMarketHandler(markets MarketService, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{markets: markets, logger: logger}
}

// ListSources reports every exchange and whether it is enabled.
// GET /api/sources
func (h *MarketHandler) ListSources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.markets.Sources())
}

// ListInstruments returns the exchange's instruments.
// GET /api/market/instruments?exchange=BYBIT
func (h *MarketHandler) ListInstruments(w http.ResponseWriter, r *http.Request) {
	src, err := requireSource(r.URL.Query().Get("exchange"))
	if err != nil {
		writeServiceError(w, r, h.logger, err, http.StatusBadRequest)
		return
	}
	instruments, err := h.markets.Instruments(r.Context(), src)
	if err != nil {
		writeServiceError(w, r, h.logger, err, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, instruments)
}

type tickerQuery struct {
	Exchange string `validate:"required"`
	Base     string `validate:"required"`
	Quote    string `validate:"required"`
}

// GetTicker returns one ticker.
// GET /api/market/ticker?exchange=OKX&base=BTC&quote=USDT
func (h *MarketHandler) GetTicker(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	in := tickerQuery{Exchange: q.Get("exchange"), Base: q.Get("base"), Quote: q.Get("quote")}
	if err := validateStruct(in); err != nil {
		writeServiceError(w, r, h.logger, err, http.StatusBadRequest)
		return
	}
	src, err := domain.ParseSource(in.Exchange)
	if err != nil {
		writeServiceError(w, r, h.logger, err, http.StatusBadRequest)
		return
	}

	ticker, err := h.markets.Ticker(r.Context(), src, in.Base, in.Quote)
	if err != nil {
		writeServiceError(w, r, h.logger, err, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, ticker)
}

type tickersRequest struct {
	Exchange string         `json:"exchange" validate:"required"`
	Pairs    []service.Pair `json:"pairs" validate:"required,min=1,max=200,dive"`
}

// BatchTickers returns tickers for several pairs of one exchange.
// POST /api/market/tickers
func (h *MarketHandler) BatchTickers(w http.ResponseWriter, r *http.Request) {
	var req tickersRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, h.logger, err, http.StatusBadRequest)
		return
	}
	src, err := domain.ParseSource(req.Exchange)
	if err != nil {
		writeServiceError(w, r, h.logger, err, http.StatusBadRequest)
		return
	}

	tickers, err := h.markets.Tickers(r.Context(), src, req.Pairs)
	if err != nil {
		writeServiceError(w, r, h.logger, err, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, tickers)
}
