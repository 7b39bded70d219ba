package kucoin

import (
	"errors"
	"testing"
	"time"

	"github.com/quantrino/spreadscan/internal/domain"
)

func TestNormalizeLevel1(t *testing.T) {
	pair := domain.NewTradingPair("ETH", "USDT")
	now := time.Now()

	raw := level1Data{
		Time:        1724580000000,
		Price:       "3150.2",
		BestBid:     "3150.1",
		BestBidSize: "12.4",
		BestAsk:     "3150.9",
		BestAskSize: "8.1",
	}
	q, err := normalizeLevel1(raw, pair, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Venue != VenueName {
		t.Errorf("Venue = %q, want %q", q.Venue, VenueName)
	}
	if q.BidPrice != 3150.1 || q.BidSize != 12.4 {
		t.Errorf("bid = %v @ %v", q.BidSize, q.BidPrice)
	}
	if q.AskPrice != 3150.9 || q.AskSize != 8.1 {
		t.Errorf("ask = %v @ %v", q.AskSize, q.AskPrice)
	}
}

func TestNormalizeLevel1OneSided(t *testing.T) {
	pair := domain.NewTradingPair("ABC", "USDT")
	raw := level1Data{
		Time:        1724580000000,
		BestAsk:     "1.01",
		BestAskSize: "500",
	}
	q, err := normalizeLevel1(raw, pair, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.HasBid() {
		t.Error("bid side should be absent when fields are empty")
	}
	if !q.HasAsk() {
		t.Error("ask side should be present")
	}
}

func TestNormalizeLevel1Malformed(t *testing.T) {
	pair := domain.NewTradingPair("ETH", "USDT")
	tests := []struct {
		name string
		raw  level1Data
	}{
		{name: "missing timestamp", raw: level1Data{BestBid: "1", BestBidSize: "1", BestAsk: "2", BestAskSize: "1"}},
		{name: "non numeric", raw: level1Data{Time: 1, BestBid: "x", BestBidSize: "1", BestAsk: "2", BestAskSize: "1"}},
		{name: "no sides", raw: level1Data{Time: 1}},
		{name: "crossed", raw: level1Data{Time: 1, BestBid: "3", BestBidSize: "1", BestAsk: "2", BestAskSize: "1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := normalizeLevel1(tt.raw, pair, time.Now())
			if !errors.Is(err, domain.ErrMalformedResponse) {
				t.Fatalf("error = %v, want ErrMalformedResponse", err)
			}
		})
	}
}

func TestSymbolFor(t *testing.T) {
	if got := symbolFor(domain.NewTradingPair("BTC", "USDT")); got != "BTC-USDT" {
		t.Errorf("symbolFor = %q, want BTC-USDT", got)
	}
}
