package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/quantrino/spreadscan/internal/domain"
)

type fakeQuoteCache struct {
	quotes []domain.Quote
	err    error

	venue string
	pair  domain.TradingPair
}

func (f *fakeQuoteCache) GetQuote(ctx context.Context, venue string, pair domain.TradingPair) (domain.Quote, error) {
	f.venue, f.pair = venue, pair
	if f.err != nil {
		return domain.Quote{}, f.err
	}
	for _, q := range f.quotes {
		if q.Pair == pair {
			return q, nil
		}
	}
	return domain.Quote{}, domain.ErrNotFound
}

func (f *fakeQuoteCache) GetVenueQuotes(ctx context.Context, venue string) ([]domain.Quote, error) {
	f.venue = venue
	return f.quotes, f.err
}

func quoteRequest(target string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.SetPathValue("venue", "binance")
	return req
}

func TestListVenueQuotes(t *testing.T) {
	now := time.Now().UTC()
	cache := &fakeQuoteCache{quotes: []domain.Quote{
		{Venue: "binance", Pair: domain.NewTradingPair("ETH", "USDT"), BidPrice: 4200, BidSize: 3, AskPrice: 4201, AskSize: 2, CapturedAt: now},
		{Venue: "binance", Pair: domain.NewTradingPair("BTC", "USDT"), BidPrice: 65000, BidSize: 1, AskPrice: 65010, AskSize: 0.5, CapturedAt: now},
	}}
	h := NewQuoteHandler(cache, discardLogger())

	rec := httptest.NewRecorder()
	h.ListVenueQuotes(rec, quoteRequest("/api/quotes/binance"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if cache.venue != "binance" {
		t.Errorf("venue = %q, want binance", cache.venue)
	}
	var resp listQuotesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Quotes) != 2 {
		t.Fatalf("quotes = %d, want 2", len(resp.Quotes))
	}
	if resp.Quotes[0].Pair != "BTC/USDT" || resp.Quotes[1].Pair != "ETH/USDT" {
		t.Errorf("quotes not sorted by pair: %+v", resp.Quotes)
	}
	if resp.Quotes[0].BidPrice != 65000 {
		t.Errorf("bid_price = %v, want 65000", resp.Quotes[0].BidPrice)
	}
}

func TestListVenueQuotesEmptyIsArray(t *testing.T) {
	h := NewQuoteHandler(&fakeQuoteCache{}, discardLogger())

	rec := httptest.NewRecorder()
	h.ListVenueQuotes(rec, quoteRequest("/api/quotes/binance"))

	var resp listQuotesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Quotes == nil {
		t.Error("quotes should serialize as [], not null")
	}
}

func TestGetSingleQuoteByPair(t *testing.T) {
	cache := &fakeQuoteCache{quotes: []domain.Quote{
		{Venue: "binance", Pair: domain.NewTradingPair("BTC", "USDT"), BidPrice: 65000, AskPrice: 65010},
	}}
	h := NewQuoteHandler(cache, discardLogger())

	rec := httptest.NewRecorder()
	h.ListVenueQuotes(rec, quoteRequest("/api/quotes/binance?pair=BTC%2FUSDT"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if cache.pair != domain.NewTradingPair("BTC", "USDT") {
		t.Errorf("pair = %s, want BTC/USDT", cache.pair)
	}
	var resp listQuotesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Quotes) != 1 || resp.Quotes[0].Pair != "BTC/USDT" {
		t.Errorf("quotes = %+v", resp.Quotes)
	}
}

func TestGetSingleQuoteMissingReturns404(t *testing.T) {
	h := NewQuoteHandler(&fakeQuoteCache{}, discardLogger())

	rec := httptest.NewRecorder()
	h.ListVenueQuotes(rec, quoteRequest("/api/quotes/binance?pair=DOGE%2FUSDT"))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestGetSingleQuoteBadPairReturns400(t *testing.T) {
	h := NewQuoteHandler(&fakeQuoteCache{}, discardLogger())

	rec := httptest.NewRecorder()
	h.ListVenueQuotes(rec, quoteRequest("/api/quotes/binance?pair=BTCUSDT"))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestQuotesWithoutCacheReturns501(t *testing.T) {
	h := NewQuoteHandler(nil, discardLogger())

	rec := httptest.NewRecorder()
	h.ListVenueQuotes(rec, quoteRequest("/api/quotes/binance"))

	if rec.Code != http.StatusNotImplemented {
		t.Errorf("status = %d, want 501", rec.Code)
	}
}
