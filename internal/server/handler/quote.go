package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/quantrino/spreadscan/internal/domain"
)

// QuoteReader defines the cache queries the quote handler requires.
type QuoteReader interface {
	GetQuote(ctx context.Context, venue string, pair domain.TradingPair) (domain.Quote, error)
	GetVenueQuotes(ctx context.Context, venue string) ([]domain.Quote, error)
}

// QuoteHandler serves the live quotes mirrored into the shared cache by the
// price feed and the scan loop.
type QuoteHandler struct {
	cache  QuoteReader
	logger *slog.Logger
}

// NewQuoteHandler creates a QuoteHandler. cache may be nil when no quote
// cache is configured; requests then answer 501.
func NewQuoteHandler(cache QuoteReader, logger *slog.Logger) *QuoteHandler {
	return &QuoteHandler{cache: cache, logger: logger}
}

type quoteResponse struct {
	Venue      string    `json:"venue"`
	Pair       string    `json:"pair"`
	BidPrice   float64   `json:"bid_price"`
	BidSize    float64   `json:"bid_size"`
	AskPrice   float64   `json:"ask_price"`
	AskSize    float64   `json:"ask_size"`
	CapturedAt time.Time `json:"captured_at"`
}

type listQuotesResponse struct {
	Venue  string          `json:"venue"`
	Quotes []quoteResponse `json:"quotes"`
}

// ListVenueQuotes returns every live quote for a venue, or a single quote when
// the pair query parameter is present.
// GET /api/quotes/{venue}?pair=BTC/USDT
func (h *QuoteHandler) ListVenueQuotes(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		writeError(w, http.StatusNotImplemented, "quote cache not configured")
		return
	}
	venue := strings.ToLower(r.PathValue("venue"))

	if raw := r.URL.Query().Get("pair"); raw != "" {
		pair, err := domain.ParsePair(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "pair must be BASE/QUOTE")
			return
		}
		q, err := h.cache.GetQuote(r.Context(), venue, pair)
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no live quote for "+venue+" "+pair.String())
			return
		}
		if err != nil {
			h.writeCacheError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, listQuotesResponse{
			Venue:  venue,
			Quotes: []quoteResponse{toQuoteResponse(q)},
		})
		return
	}

	quotes, err := h.cache.GetVenueQuotes(r.Context(), venue)
	if err != nil {
		h.writeCacheError(w, r, err)
		return
	}

	resp := listQuotesResponse{Venue: venue, Quotes: make([]quoteResponse, 0, len(quotes))}
	for _, q := range quotes {
		resp.Quotes = append(resp.Quotes, toQuoteResponse(q))
	}
	// Cache reads come back in index order; sort for a stable payload.
	sort.Slice(resp.Quotes, func(i, j int) bool { return resp.Quotes[i].Pair < resp.Quotes[j].Pair })
	writeJSON(w, http.StatusOK, resp)
}

func (h *QuoteHandler) writeCacheError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.ErrorContext(r.Context(), "handler: quote cache read failed",
		slog.String("error", err.Error()),
	)
	writeError(w, http.StatusInternalServerError, "failed to read quotes")
}

func toQuoteResponse(q domain.Quote) quoteResponse {
	return quoteResponse{
		Venue:      q.Venue,
		Pair:       q.Pair.String(),
		BidPrice:   q.BidPrice,
		BidSize:    q.BidSize,
		AskPrice:   q.AskPrice,
		AskSize:    q.AskSize,
		CapturedAt: q.CapturedAt,
	}
}
