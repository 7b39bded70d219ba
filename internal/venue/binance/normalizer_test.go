package binance

import (
	"errors"
	"testing"
	"time"

	"github.com/quantrino/spreadscan/internal/domain"
)

func TestNormalizeBookTicker(t *testing.T) {
	pair := domain.NewTradingPair("BTC", "USDT")
	now := time.Now()

	raw := bookTickerResponse{
		Symbol:   "BTCUSDT",
		BidPrice: "64250.10",
		BidQty:   "1.5",
		AskPrice: "64251.90",
		AskQty:   "0.75",
	}
	q, err := normalizeBookTicker(raw, pair, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Venue != VenueName {
		t.Errorf("Venue = %q, want %q", q.Venue, VenueName)
	}
	if q.Pair != pair {
		t.Errorf("Pair = %v, want %v", q.Pair, pair)
	}
	if q.BidPrice != 64250.10 || q.AskPrice != 64251.90 {
		t.Errorf("prices = %v/%v", q.BidPrice, q.AskPrice)
	}
	if q.BidSize != 1.5 || q.AskSize != 0.75 {
		t.Errorf("sizes = %v/%v", q.BidSize, q.AskSize)
	}
	if !q.CapturedAt.Equal(now) {
		t.Errorf("CapturedAt = %v, want %v", q.CapturedAt, now)
	}
}

func TestNormalizeBookTickerOneSided(t *testing.T) {
	pair := domain.NewTradingPair("XYZ", "USDT")
	raw := bookTickerResponse{
		Symbol:   "XYZUSDT",
		BidPrice: "0",
		BidQty:   "0",
		AskPrice: "3.25",
		AskQty:   "100",
	}
	q, err := normalizeBookTicker(raw, pair, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.HasBid() {
		t.Error("bid side should be absent")
	}
	if !q.HasAsk() {
		t.Error("ask side should be present")
	}
}

func TestNormalizeBookTickerMalformed(t *testing.T) {
	pair := domain.NewTradingPair("BTC", "USDT")
	tests := []struct {
		name string
		raw  bookTickerResponse
	}{
		{name: "empty symbol", raw: bookTickerResponse{BidPrice: "1", BidQty: "1", AskPrice: "2", AskQty: "1"}},
		{name: "non numeric price", raw: bookTickerResponse{Symbol: "BTCUSDT", BidPrice: "abc", BidQty: "1", AskPrice: "2", AskQty: "1"}},
		{name: "missing field", raw: bookTickerResponse{Symbol: "BTCUSDT", BidPrice: "1", AskPrice: "2", AskQty: "1"}},
		{name: "negative size", raw: bookTickerResponse{Symbol: "BTCUSDT", BidPrice: "1", BidQty: "-1", AskPrice: "2", AskQty: "1"}},
		{name: "crossed book", raw: bookTickerResponse{Symbol: "BTCUSDT", BidPrice: "3", BidQty: "1", AskPrice: "2", AskQty: "1"}},
		{name: "both sides zero", raw: bookTickerResponse{Symbol: "BTCUSDT", BidPrice: "0", BidQty: "0", AskPrice: "0", AskQty: "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := normalizeBookTicker(tt.raw, pair, time.Now())
			if !errors.Is(err, domain.ErrMalformedResponse) {
				t.Fatalf("error = %v, want ErrMalformedResponse", err)
			}
		})
	}
}

func TestSymbolFor(t *testing.T) {
	if got := symbolFor(domain.NewTradingPair("ETH", "USDT")); got != "ETHUSDT" {
		t.Errorf("symbolFor = %q, want ETHUSDT", got)
	}
}
