// Package server assembles the HTTP and WebSocket API of the collectibles
// service.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/collectibles/internal/domain"
	"github.com/alanyoungcy/collectibles/internal/server/handler"
	"github.com/alanyoungcy/collectibles/internal/server/middleware"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port         int
	CORSOrigins  []string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	MetricsPath  string

	// Limiter throttles write endpoints per client IP to RateLimit requests
	// per minute. Nil or a non-positive RateLimit disables it.
	Limiter   domain.RateLimiter
	RateLimit int
}

// Handlers aggregates all HTTP handlers that the server needs to register.
// Audit and Metrics are optional.
type Handlers struct {
	Health  *handler.HealthHandler
	Status  *handler.StatusHandler
	Offers  *handler.OfferHandler
	Items   *handler.ItemHandler
	Audit   *handler.AuditHandler
	Prices  http.HandlerFunc
	Metrics http.Handler
}

// Server is the HTTP + WebSocket API server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux
// and wraps them in the logging and CORS middleware.
func NewServer(cfg Config, handlers Handlers, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	limited := func(scope string, h http.HandlerFunc) http.Handler {
		if cfg.Limiter == nil || cfg.RateLimit <= 0 {
			return h
		}
		return middleware.RateLimit(cfg.Limiter, scope, cfg.RateLimit, time.Minute, logger)(h)
	}

	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)
	mux.HandleFunc("GET /api/status", handlers.Status.GetStatus)

	// Offer endpoints.
	mux.Handle("POST /api/offers", limited("offers", handlers.Offers.Submit))
	mux.HandleFunc("GET /api/offers", handlers.Offers.ListAll)
	mux.HandleFunc("GET /api/items/{id}/offers", handlers.Offers.ListForItem)

	// Item endpoints.
	mux.HandleFunc("GET /api/items/{id}", handlers.Items.GetItem)
	mux.HandleFunc("GET /api/items/{id}/price", handlers.Items.GetPrice)
	mux.Handle("PUT /api/items/{id}/price", limited("prices", handlers.Items.UpdatePrice))

	if handlers.Audit != nil {
		mux.HandleFunc("GET /api/audit", handlers.Audit.List)
	}

	// Live price WebSocket.
	if handlers.Prices != nil {
		mux.HandleFunc("GET /ws/prices", handlers.Prices)
	}

	if handlers.Metrics != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		mux.Handle("GET "+path, handlers.Metrics)
	}

	// Middleware chain: logging inside CORS so preflights are not logged.
	var h http.Handler = mux
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	return &Server{
		httpServer: srv,
		handler:    h,
		logger:     logger,
	}
}

// Handler returns the fully wrapped root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline. Hijacked WebSocket
// connections are not tracked here; the hub closes them.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
