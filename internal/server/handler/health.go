package handler

import (
	"net/http"
	"time"
)

// HealthHandler serves the liveness endpoint with basic daemon identity.
type HealthHandler struct {
	mode      string
	fundName  string
	startedAt time.Time
}

// NewHealthHandler creates a HealthHandler reporting the given mode and fund.
func NewHealthHandler(mode, fundName string, startedAt time.Time) *HealthHandler {
	return &HealthHandler{mode: mode, fundName: fundName, startedAt: startedAt}
}

// HealthCheck reports daemon liveness, mode, fund name, and uptime.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"mode":           h.mode,
		"fund":           h.fundName,
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
}
