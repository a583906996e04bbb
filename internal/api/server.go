// Package api exposes the advisory workflows over a JSON REST API.
//
// Endpoints:
//
//	GET  /health                     liveness probe
//	GET  /ready                      readiness probe (pings the database)
//	POST /api/ask                    grounded Q&A
//	POST /api/maintenance-plan       seasonal checklist
//	POST /api/troubleshoot/intake    troubleshooting intake (first invocation)
//	POST /api/troubleshoot/answers   follow-up answers and diagnosis
//	POST /api/parts                  parts and consumables lookup
//
// File structure:
//   - server.go: HTTP server setup and lifecycle
//   - middleware.go: HTTP middleware (recovery, logging, rate limiting)
//   - ratelimit.go: per-IP token bucket
//   - health.go: health check endpoints (/health, /ready)
//   - handlers.go: advisory endpoints
//   - response.go: JSON request/response helpers
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/homewarden/homewarden/internal/log"
	"github.com/homewarden/homewarden/internal/workflow"
)

const (
	// DefaultAddr is the default address for the HTTP server.
	DefaultAddr = "127.0.0.1:3400"

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout is the timeout for reading request headers.
	// This prevents Slowloris attacks (CWE-400).
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout is the maximum duration for writing the response.
	// Generation-backed endpoints can take tens of seconds.
	WriteTimeout = 120 * time.Second

	// IdleTimeout is the maximum time to wait for the next request on
	// keep-alive connections.
	IdleTimeout = 120 * time.Second
)

// ServerConfig contains everything the API server depends on.
type ServerConfig struct {
	Logger         log.Logger
	Asker          *workflow.Asker          // Required
	Planner        *workflow.Planner        // Required
	Troubleshooter *workflow.Troubleshooter // Required
	Parts          *workflow.PartsHelper    // Required
	LoadProfile    workflow.ProfileLoader   // Required
	Pool           *pgxpool.Pool            // Optional: nil disables the DB ping in /ready
	TrustProxy     bool                     // Trust X-Real-IP/X-Forwarded-For (behind reverse proxy)
	RateBurst      int                      // Rate limiter burst size per IP (0 = default 60)
}

// Server is the JSON API HTTP server.
type Server struct {
	mux    *http.ServeMux
	logger log.Logger
	rl     *rateLimiter
	trust  bool
}

// NewServer creates a new HTTP server with all routes registered.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Asker == nil || cfg.Planner == nil || cfg.Troubleshooter == nil || cfg.Parts == nil {
		return nil, errors.New("all workflow handlers are required")
	}
	if cfg.LoadProfile == nil {
		return nil, errors.New("profile loader is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}

	mux := http.NewServeMux()

	hh := &healthHandler{pool: cfg.Pool, logger: logger}
	hh.registerRoutes(mux)

	ah := &adviceHandler{
		asker:          cfg.Asker,
		planner:        cfg.Planner,
		troubleshooter: cfg.Troubleshooter,
		parts:          cfg.Parts,
		loadProfile:    cfg.LoadProfile,
		logger:         logger,
	}
	ah.registerRoutes(mux)

	return &Server{
		mux:    mux,
		logger: logger,
		rl:     newRateLimiter(1.0, burst),
		trust:  cfg.TrustProxy,
	}, nil
}

// Handler returns the HTTP handler with middleware applied.
// Middleware order: recovery → logging → rate limit → routes.
func (s *Server) Handler() http.Handler {
	return chain(s.mux,
		recoveryMiddleware(s.logger),
		loggingMiddleware(s.logger),
		rateLimitMiddleware(s.rl, s.trust, s.logger),
	)
}

// Run starts the HTTP server and blocks until the context is cancelled,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
