package handler

import (
	"net/http"
	"time"
)

// HealthHandler serves the liveness endpoint.
type HealthHandler struct {
	mode   string
	venues int
}

// NewHealthHandler creates a HealthHandler reporting the running mode and the
// number of connected venues.
func NewHealthHandler(mode string, venues int) *HealthHandler {
	return &HealthHandler{mode: mode, venues: venues}
}

// HealthCheck responds with a simple JSON status indicating the process is
// alive, which mode it runs in, and how many venues are wired.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"mode":      h.mode,
		"venues":    h.venues,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
