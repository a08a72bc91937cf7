// Package server exposes the scanners over HTTP and websocket.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/fundybot/internal/domain"
	"github.com/alanyoungcy/fundybot/internal/server/handler"
	"github.com/alanyoungcy/fundybot/internal/server/middleware"
	"github.com/alanyoungcy/fundybot/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	// APIKey enables authentication when set.
	APIKey string
	// RateLimit is the per-IP request budget per RateWindow; 0 disables it.
	RateLimit  int
	RateWindow time.Duration
}

// Handlers aggregates the HTTP handlers. Subscribers may be nil.
type Handlers struct {
	Health      *handler.HealthHandler
	Markets     *handler.MarketHandler
	Funding     *handler.FundingHandler
	Arb         *handler.ArbHandler
	Universe    *handler.UniverseHandler
	Subscribers *handler.SubscriberHandler
}

// Server is the headless HTTP + websocket API.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer registers the routes and the middleware chain. wsHub and limiter
// may be nil.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           NewHandler(cfg, handlers, wsHub, limiter, logger),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logger: logger.With(slog.String("component", "server")),
	}
}

// NewHandler builds the routed and wrapped http.Handler.
func NewHandler(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	mux.HandleFunc("GET /api/sources", handlers.Markets.ListSources)
	mux.HandleFunc("GET /api/market/instruments", handlers.Markets.ListInstruments)
	mux.HandleFunc("GET /api/market/ticker", handlers.Markets.GetTicker)
	mux.HandleFunc("POST /api/market/tickers", handlers.Markets.BatchTickers)

	mux.HandleFunc("POST /api/funding/opportunities", handlers.Funding.Opportunities)
	mux.HandleFunc("POST /api/arbitrage/opportunities", handlers.Arb.Opportunities)
	mux.HandleFunc("GET /api/universe", handlers.Universe.GetUniverse)

	if handlers.Subscribers != nil {
		mux.HandleFunc("GET /api/subscribers", handlers.Subscribers.ListSubscribers)
		mux.HandleFunc("GET /api/subscribers/{id}", handlers.Subscribers.GetSubscriber)
		mux.HandleFunc("PUT /api/subscribers/{id}", handlers.Subscribers.PutSubscriber)
		mux.HandleFunc("DELETE /api/subscribers/{id}", handlers.Subscribers.DeleteSubscriber)
	}

	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey, "/api/health")(h)
	if limiter != nil && cfg.RateLimit > 0 {
		window := cfg.RateWindow
		if window <= 0 {
			window = time.Minute
		}
		h = middleware.RateLimit(limiter, cfg.RateLimit, window)(h)
	}
	h = middleware.Logging(logger.With(slog.String("component", "http")))(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)
	return h
}

// Start listens until the server fails or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown waits for in-flight requests until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
