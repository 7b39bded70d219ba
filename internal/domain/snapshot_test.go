package domain

import (
	"testing"
	"time"
)

func TestMarketSnapshotCopiesInput(t *testing.T) {
	pair := NewTradingPair("BTC", "USDT")
	src := map[string]map[TradingPair]Quote{
		"binance": {pair: {Venue: "binance", Pair: pair, BidPrice: 100, AskPrice: 101}},
	}
	snap := NewMarketSnapshot(7, time.Now(), src)

	// Mutating the source after construction must not leak into the snapshot.
	src["binance"][pair] = Quote{Venue: "binance", Pair: pair, BidPrice: 1, AskPrice: 2}
	delete(src, "binance")

	q, ok := snap.Quote("binance", pair)
	if !ok {
		t.Fatal("quote missing after source mutation")
	}
	if q.BidPrice != 100 {
		t.Errorf("BidPrice = %v, want 100", q.BidPrice)
	}
	if snap.Cycle() != 7 {
		t.Errorf("Cycle() = %d, want 7", snap.Cycle())
	}
}

func TestMarketSnapshotAccessors(t *testing.T) {
	btc := NewTradingPair("BTC", "USDT")
	eth := NewTradingPair("ETH", "USDT")
	snap := NewMarketSnapshot(1, time.Now(), map[string]map[TradingPair]Quote{
		"binance": {
			btc: {Venue: "binance", Pair: btc, BidPrice: 100, AskPrice: 101},
			eth: {Venue: "binance", Pair: eth, BidPrice: 10, AskPrice: 11},
		},
		"kucoin": {
			btc: {Venue: "kucoin", Pair: btc, BidPrice: 100, AskPrice: 101},
		},
	})

	if got := snap.QuoteCount(); got != 3 {
		t.Errorf("QuoteCount() = %d, want 3", got)
	}
	if got := len(snap.Venues()); got != 2 {
		t.Errorf("Venues() returned %d venues, want 2", got)
	}
	if got := len(snap.Pairs()); got != 2 {
		t.Errorf("Pairs() returned %d pairs, want 2", got)
	}
	if _, ok := snap.Quote("kucoin", eth); ok {
		t.Error("kucoin ETH/USDT should be absent")
	}
	if _, ok := snap.Quote("kraken", btc); ok {
		t.Error("unknown venue should report absent")
	}
}
