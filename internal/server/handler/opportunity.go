package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/quantrino/spreadscan/internal/domain"
)

// OpportunityService defines the queries the opportunity handler requires.
type OpportunityService interface {
	Recent(ctx context.Context, limit int) ([]domain.ArbitrageOpportunity, error)
	TopByProfit(ctx context.Context, since time.Time, limit int) ([]domain.ArbitrageOpportunity, error)
	Summary(ctx context.Context, since time.Time) (domain.OpportunitySummary, error)
}

// OpportunityHandler serves opportunity read endpoints.
type OpportunityHandler struct {
	svc    OpportunityService
	logger *slog.Logger
}

// NewOpportunityHandler creates an OpportunityHandler.
func NewOpportunityHandler(svc OpportunityService, logger *slog.Logger) *OpportunityHandler {
	return &OpportunityHandler{svc: svc, logger: logger}
}

type listOpportunitiesResponse struct {
	Opportunities []domain.ArbitrageOpportunity `json:"opportunities"`
}

// ListRecent returns the most recently detected opportunities.
// GET /api/opportunities/recent?limit=20
func (h *OpportunityHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, 20, 200)

	opps, err := h.svc.Recent(r.Context(), limit)
	if err != nil {
		h.writeServiceError(w, r, "list recent opportunities", err)
		return
	}
	if opps == nil {
		opps = []domain.ArbitrageOpportunity{}
	}
	writeJSON(w, http.StatusOK, listOpportunitiesResponse{Opportunities: opps})
}

// ListTop returns the highest-net opportunities since a cutoff.
// GET /api/opportunities/top?since=2026-08-24&limit=20
func (h *OpportunityHandler) ListTop(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, 20, 200)
	since := querySince(r, time.Now().UTC().Add(-24*time.Hour))

	opps, err := h.svc.TopByProfit(r.Context(), since, limit)
	if err != nil {
		h.writeServiceError(w, r, "list top opportunities", err)
		return
	}
	if opps == nil {
		opps = []domain.ArbitrageOpportunity{}
	}
	writeJSON(w, http.StatusOK, listOpportunitiesResponse{Opportunities: opps})
}

// GetSummary returns aggregate detection statistics since a cutoff.
// GET /api/opportunities/summary?since=2026-08-24
func (h *OpportunityHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	since := querySince(r, time.Now().UTC().Add(-24*time.Hour))

	sum, err := h.svc.Summary(r.Context(), since)
	if err != nil {
		h.writeServiceError(w, r, "opportunity summary", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"since":   since.Format(time.RFC3339),
		"summary": sum,
	})
}

func (h *OpportunityHandler) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if errors.Is(err, domain.ErrUnavailable) {
		writeError(w, http.StatusNotImplemented, "persistent storage not configured")
		return
	}
	h.logger.ErrorContext(r.Context(), "handler: "+op+" failed",
		slog.String("error", err.Error()),
	)
	writeError(w, http.StatusInternalServerError, "failed to "+op)
}
