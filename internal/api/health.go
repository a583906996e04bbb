package api

import (
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/homewarden/homewarden/internal/log"
)

// healthHandler handles health check endpoints.
type healthHandler struct {
	pool   *pgxpool.Pool
	logger log.Logger
}

func (h *healthHandler) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.liveness)
	mux.HandleFunc("GET /ready", h.readiness)
}

// liveness returns 200 OK if the process is alive.
func (h *healthHandler) liveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readiness returns 200 OK if all dependencies are ready.
// Pings the database when a pool is configured.
func (h *healthHandler) readiness(w http.ResponseWriter, r *http.Request) {
	if h.pool != nil {
		if err := h.pool.Ping(r.Context()); err != nil {
			h.logger.Error("readiness check failed", "error", err)
			writeError(w, http.StatusServiceUnavailable, "not_ready", "database not ready")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
