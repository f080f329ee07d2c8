package handler

import (
	"log/slog"
	"net/http"
	"time"
)

// HealthHandler serves the control-plane liveness endpoint.
type HealthHandler struct {
	logger  *slog.Logger
	started time.Time
}

// NewHealthHandler creates a HealthHandler with the provided logger.
func NewHealthHandler(logger *slog.Logger) *HealthHandler {
	return &HealthHandler{logger: logger, started: time.Now()}
}

// HealthCheck reports liveness and process uptime.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"service":        "mexcquoter",
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
}
