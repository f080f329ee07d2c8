// Package server exposes the control-plane HTTP API: starting and stopping
// the quoting bot, querying its status, and a health check.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/mexcquoter/internal/domain"
	"github.com/alanyoungcy/mexcquoter/internal/server/handler"
	"github.com/alanyoungcy/mexcquoter/internal/server/middleware"
)

// Control-plane rate limit, applied per client IP when a limiter is
// available.
const (
	rateLimitRequests = 60
	rateLimitWindow   = time.Minute
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health *handler.HealthHandler
	Bot    *handler.BotHandler
}

// Server is the headless HTTP API server for the quoting bot.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered on the ServeMux and
// the middleware chain (rate limiting, auth, logging, CORS) applied. limiter
// may be nil, in which case rate limiting is skipped.
func NewServer(cfg Config, handlers Handlers, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required once the chain sees no key; with a key
	// configured it is protected like everything else).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Bot control endpoints.
	mux.HandleFunc("POST /api/start-bot", handlers.Bot.StartBot)
	mux.HandleFunc("POST /api/stop-bot", handlers.Bot.StopBot)
	mux.HandleFunc("GET /api/bot-status", handlers.Bot.BotStatus)

	var h http.Handler = mux
	if limiter != nil {
		h = middleware.RateLimit(limiter, rateLimitRequests, rateLimitWindow)(h)
	}
	h = middleware.Auth(cfg.APIKey)(h)
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
