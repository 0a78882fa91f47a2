// Package server exposes the read API and the realtime websocket stream.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/emmatheo/polyscop/internal/domain"
	"github.com/emmatheo/polyscop/internal/server/handler"
	"github.com/emmatheo/polyscop/internal/server/middleware"
	"github.com/emmatheo/polyscop/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	RateLimit   int
	RateWindow  time.Duration
}

// Handlers aggregates the HTTP handlers the server registers.
type Handlers struct {
	Health   *handler.HealthHandler
	Trades   *handler.TradeHandler
	Traders  *handler.TraderHandler
	Wallets  *handler.WalletHandler
	Markets  *handler.MarketHandler
	Insights *handler.InsightHandler
}

// Server is the HTTP + websocket API server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer registers every route and wraps the mux in the middleware chain
// (rate limit, logging, CORS from innermost to outermost).
func NewServer(cfg Config, handlers Handlers, hub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      NewHandler(cfg, handlers, hub, limiter, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return &Server{httpServer: srv, logger: logger}
}

// route is one mux pattern of the form "METHOD /path".
type route struct {
	pattern string
	handler http.HandlerFunc
}

func routes(handlers Handlers, hub *ws.Hub) []route {
	rs := []route{
		{"GET /health", handlers.Health.Health},
		{"GET /ready", handlers.Health.Ready},

		{"GET /api/trades", handlers.Trades.List},
		{"GET /api/traders", handlers.Traders.Top},
		{"GET /api/wallets/{wallet}/trades", handlers.Wallets.Trades},
		{"GET /api/wallet-trades", handlers.Wallets.Trades},
		{"GET /api/markets", handlers.Markets.Top},

		{"GET /api/insights/momentum", handlers.Insights.Momentum},
		{"GET /api/insights/sentiment", handlers.Insights.Sentiment},
		{"GET /api/insights/volume", handlers.Insights.Volume},
		{"GET /api/alerts/huge", handlers.Insights.HugeWhales},
	}
	if hub != nil {
		rs = append(rs, route{"GET /ws", hub.HandleWS})
	}
	return rs
}

// routeMethods returns the distinct methods of rs in first-seen order.
func routeMethods(rs []route) []string {
	var methods []string
	for _, r := range rs {
		m, _, _ := strings.Cut(r.pattern, " ")
		if !slices.Contains(methods, m) {
			methods = append(methods, m)
		}
	}
	return methods
}

// NewHandler builds the routed, middleware-wrapped handler.
func NewHandler(cfg Config, handlers Handlers, hub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) http.Handler {
	rs := routes(handlers, hub)
	mux := http.NewServeMux()
	for _, r := range rs {
		mux.HandleFunc(r.pattern, r.handler)
	}

	var h http.Handler = mux
	h = middleware.RateLimit(limiter, cfg.RateLimit, cfg.RateWindow, logger)(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins, routeMethods(rs))(h)
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

// Shutdown gracefully stops the server within ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
