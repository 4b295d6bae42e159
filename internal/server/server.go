// Package server exposes the fund daemon's HTTP and WebSocket API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alphavault/fundd/internal/domain"
	"github.com/alphavault/fundd/internal/server/handler"
	"github.com/alphavault/fundd/internal/server/middleware"
	"github.com/alphavault/fundd/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string

	// Operator is the address whose request signatures unlock privileged
	// routes.
	Operator common.Address

	// AuthMaxSkew bounds the accepted clock drift of signed requests.
	AuthMaxSkew time.Duration

	// RateLimit caps public ledger requests per client IP per window.
	// Zero disables rate limiting.
	RateLimit       int
	RateLimitWindow time.Duration
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health *handler.HealthHandler
	Fund   *handler.FundHandler
	Assets *handler.AssetHandler
}

// Server is the headless HTTP + WebSocket API server for the fund daemon.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, operator auth on privileged
// routes, rate limiting on public ledger routes) and attaches the
// WebSocket hub. The limiter may be nil to disable rate limiting.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	opAuth := middleware.OperatorAuth(cfg.Operator, cfg.AuthMaxSkew)

	public := func(h http.HandlerFunc) http.Handler {
		if limiter == nil || cfg.RateLimit <= 0 {
			return h
		}
		window := cfg.RateLimitWindow
		if window <= 0 {
			window = time.Minute
		}
		return middleware.RateLimit(limiter, cfg.RateLimit, window)(h)
	}

	// Health check and fund state (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)
	mux.HandleFunc("GET /api/fund", handlers.Fund.GetFund)
	mux.HandleFunc("GET /api/fund/activity", handlers.Fund.ListActivity)

	// Asset registry.
	mux.HandleFunc("GET /api/fund/assets", handlers.Assets.ListAssets)
	mux.Handle("POST /api/fund/assets", opAuth(http.HandlerFunc(handlers.Assets.AddAsset)))
	mux.Handle("PUT /api/fund/assets/{token}", opAuth(http.HandlerFunc(handlers.Assets.UpdateAsset)))
	mux.Handle("DELETE /api/fund/assets/{token}", opAuth(http.HandlerFunc(handlers.Assets.RemoveAsset)))

	// Ledger operations (public, rate limited).
	mux.Handle("POST /api/fund/deposit", public(handlers.Fund.Deposit))
	mux.Handle("POST /api/fund/withdraw", public(handlers.Fund.Withdraw))

	// Rebalancing.
	mux.HandleFunc("GET /api/fund/rebalance/preview", handlers.Fund.PreviewRebalance)
	mux.Handle("POST /api/fund/rebalance", opAuth(http.HandlerFunc(handlers.Fund.Rebalance)))

	// Fee collection is permissionless.
	mux.Handle("POST /api/fund/fees/collect", public(handlers.Fund.CollectFees))

	// Pause control.
	mux.Handle("POST /api/fund/pause", opAuth(http.HandlerFunc(handlers.Fund.Pause)))
	mux.Handle("POST /api/fund/unpause", opAuth(http.HandlerFunc(handlers.Fund.Unpause)))

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
