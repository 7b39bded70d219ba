package handler

import (
	"net/http"
	"time"
)

// CycleInfo reports the progress of the scan loop. The scan loop updates it
// through the StatusHandler after every cycle.
type CycleInfo struct {
	Cycle       uint64    `json:"cycle"`
	QuoteCount  int       `json:"quote_count"`
	Detections  int       `json:"detections"`
	CompletedAt time.Time `json:"completed_at"`
}

// StatusHandler serves the scanner status for dashboards.
type StatusHandler struct {
	mode   string
	venues []string

	cycleFn func() CycleInfo // nil in monitor mode
}

// NewStatusHandler creates a StatusHandler. cycleFn may be nil when no scan
// loop is running in this process.
func NewStatusHandler(mode string, venues []string, cycleFn func() CycleInfo) *StatusHandler {
	return &StatusHandler{mode: mode, venues: venues, cycleFn: cycleFn}
}

// GetStatus responds with the current mode, monitored venues and the last
// completed cycle.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"mode":   h.mode,
		"venues": h.venues,
	}
	if h.cycleFn != nil {
		resp["last_cycle"] = h.cycleFn()
	}
	writeJSON(w, http.StatusOK, resp)
}
