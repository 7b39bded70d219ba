package scanner

import (
	"io"
	"log/slog"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/quantrino/spreadscan/internal/domain"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func profiles(takerPct map[string]float64) map[string]domain.VenueProfile {
	out := make(map[string]domain.VenueProfile, len(takerPct))
	for venue, pct := range takerPct {
		out[venue] = domain.VenueProfile{Venue: venue, TakerFeeRate: pct / 100}
	}
	return out
}

func snapshotOf(cycle uint64, quotes ...domain.Quote) domain.MarketSnapshot {
	byVenue := make(map[string]map[domain.TradingPair]domain.Quote)
	for _, q := range quotes {
		if byVenue[q.Venue] == nil {
			byVenue[q.Venue] = make(map[domain.TradingPair]domain.Quote)
		}
		byVenue[q.Venue][q.Pair] = q
	}
	return domain.NewMarketSnapshot(cycle, time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC), byVenue)
}

func TestScanEmitsProfitableSpread(t *testing.T) {
	pair := domain.NewTradingPair("BTC", "USDT")
	snap := snapshotOf(1,
		domain.Quote{Venue: "a", Pair: pair, BidPrice: 99.9, BidSize: 2, AskPrice: 100.00, AskSize: 2},
		domain.Quote{Venue: "b", Pair: pair, BidPrice: 101.50, BidSize: 3, AskPrice: 101.6, AskSize: 3},
	)
	s := New(Config{MinProfitPct: 0.5, SlippagePct: 0.2}, quietLogger())

	opps := s.Scan(snap, profiles(map[string]float64{"a": 0.1, "b": 0.1}))
	if len(opps) != 1 {
		t.Fatalf("got %d opportunities, want 1", len(opps))
	}
	opp := opps[0]
	if opp.BuyVenue != "a" || opp.SellVenue != "b" {
		t.Errorf("direction = buy %s sell %s, want buy a sell b", opp.BuyVenue, opp.SellVenue)
	}
	if math.Abs(opp.GrossSpreadPct-1.5) > 1e-9 {
		t.Errorf("GrossSpreadPct = %v, want 1.5", opp.GrossSpreadPct)
	}
	if math.Abs(opp.NetProfitPct-1.1) > 1e-9 {
		t.Errorf("NetProfitPct = %v, want 1.1", opp.NetProfitPct)
	}
	if opp.RealizableSize != 2 {
		t.Errorf("RealizableSize = %v, want 2 (thinner side)", opp.RealizableSize)
	}
	if !opp.DetectedAt.Equal(snap.StartedAt()) {
		t.Errorf("DetectedAt = %v, want snapshot start %v", opp.DetectedAt, snap.StartedAt())
	}
}

func TestScanDropsUnprofitableSpread(t *testing.T) {
	pair := domain.NewTradingPair("BTC", "USDT")
	snap := snapshotOf(1,
		domain.Quote{Venue: "a", Pair: pair, BidPrice: 99.9, BidSize: 2, AskPrice: 100.00, AskSize: 2},
		domain.Quote{Venue: "b", Pair: pair, BidPrice: 100.30, BidSize: 3, AskPrice: 100.4, AskSize: 3},
	)
	s := New(Config{MinProfitPct: 0.5, SlippagePct: 0.2}, quietLogger())

	opps := s.Scan(snap, profiles(map[string]float64{"a": 0.1, "b": 0.1}))
	if len(opps) != 0 {
		t.Fatalf("got %d opportunities, want none (net is negative after costs)", len(opps))
	}
}

func TestScanDropsAnomalousSpread(t *testing.T) {
	pair := domain.NewTradingPair("BTC", "USDT")
	snap := snapshotOf(1,
		domain.Quote{Venue: "a", Pair: pair, BidPrice: 99.9, BidSize: 2, AskPrice: 100.00, AskSize: 2},
		domain.Quote{Venue: "b", Pair: pair, BidPrice: 250.00, BidSize: 3, AskPrice: 250.1, AskSize: 3},
	)
	s := New(Config{MinProfitPct: 0.5, MaxProfitPct: 100, SlippagePct: 0.2}, quietLogger())

	opps := s.Scan(snap, profiles(map[string]float64{"a": 0.1, "b": 0.1}))
	if len(opps) != 0 {
		t.Fatalf("got %d opportunities, want none (tenfold anomaly must be dropped)", len(opps))
	}
}

func TestScanSkipsOneSidedQuotes(t *testing.T) {
	pair := domain.NewTradingPair("ETH", "USDT")
	snap := snapshotOf(1,
		// Venue a has no ask, so it can never be the buy leg.
		domain.Quote{Venue: "a", Pair: pair, BidPrice: 100, BidSize: 1},
		domain.Quote{Venue: "b", Pair: pair, BidPrice: 110, BidSize: 1, AskPrice: 111, AskSize: 1},
	)
	s := New(Config{MinProfitPct: 0}, quietLogger())

	opps := s.Scan(snap, profiles(map[string]float64{"a": 0, "b": 0}))
	if len(opps) != 0 {
		t.Fatalf("got %d opportunities from a one-sided book, want none", len(opps))
	}
}

func TestScanIdempotent(t *testing.T) {
	btc := domain.NewTradingPair("BTC", "USDT")
	eth := domain.NewTradingPair("ETH", "USDT")
	snap := snapshotOf(9,
		domain.Quote{Venue: "a", Pair: btc, BidPrice: 99, BidSize: 2, AskPrice: 100, AskSize: 2},
		domain.Quote{Venue: "b", Pair: btc, BidPrice: 103, BidSize: 3, AskPrice: 104, AskSize: 3},
		domain.Quote{Venue: "a", Pair: eth, BidPrice: 50, BidSize: 10, AskPrice: 50.5, AskSize: 10},
		domain.Quote{Venue: "b", Pair: eth, BidPrice: 52, BidSize: 4, AskPrice: 52.5, AskSize: 4},
	)
	s := New(Config{MinProfitPct: 0.5, SlippagePct: 0.1}, quietLogger())
	feeTable := profiles(map[string]float64{"a": 0.1, "b": 0.1})

	first := s.Scan(snap, feeTable)
	second := s.Scan(snap, feeTable)
	if len(first) == 0 {
		t.Fatal("expected at least one opportunity")
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("re-scanning the same snapshot must yield an identical ordered list")
	}
	for _, opp := range first {
		if opp.ID == "" {
			t.Fatal("opportunity ID missing")
		}
	}
	if first[0].ID != second[0].ID {
		t.Error("IDs must be stable across re-scans of the same snapshot")
	}
}

func TestScanOrdering(t *testing.T) {
	btc := domain.NewTradingPair("BTC", "USDT")
	eth := domain.NewTradingPair("ETH", "USDT")
	// BTC spread nets higher than ETH spread; both profitable.
	snap := snapshotOf(1,
		domain.Quote{Venue: "a", Pair: btc, BidPrice: 99, BidSize: 2, AskPrice: 100, AskSize: 2},
		domain.Quote{Venue: "b", Pair: btc, BidPrice: 105, BidSize: 3, AskPrice: 106, AskSize: 3},
		domain.Quote{Venue: "a", Pair: eth, BidPrice: 50, BidSize: 10, AskPrice: 50.0, AskSize: 10},
		domain.Quote{Venue: "b", Pair: eth, BidPrice: 51, BidSize: 4, AskPrice: 51.5, AskSize: 4},
	)
	s := New(Config{MinProfitPct: 0.1}, quietLogger())

	opps := s.Scan(snap, profiles(map[string]float64{"a": 0, "b": 0}))
	if len(opps) < 2 {
		t.Fatalf("got %d opportunities, want >= 2", len(opps))
	}
	for i := 1; i < len(opps); i++ {
		if opps[i].NetProfitPct > opps[i-1].NetProfitPct {
			t.Fatalf("opportunities not sorted by net profit: %v after %v",
				opps[i].NetProfitPct, opps[i-1].NetProfitPct)
		}
	}
	if opps[0].Pair != btc {
		t.Errorf("highest-net opportunity should be BTC, got %s", opps[0].Pair)
	}
}

func TestScanCapitalBoundsSize(t *testing.T) {
	pair := domain.NewTradingPair("BTC", "USDT")
	snap := snapshotOf(1,
		domain.Quote{Venue: "a", Pair: pair, BidPrice: 99, BidSize: 50, AskPrice: 100, AskSize: 50},
		domain.Quote{Venue: "b", Pair: pair, BidPrice: 105, BidSize: 50, AskPrice: 106, AskSize: 50},
	)
	// 1000 USDT of capital at an ask of 100 buys at most 10 base units.
	s := New(Config{MinProfitPct: 0.1, InitialCapital: 1000}, quietLogger())

	opps := s.Scan(snap, profiles(map[string]float64{"a": 0, "b": 0}))
	if len(opps) != 1 {
		t.Fatalf("got %d opportunities, want 1", len(opps))
	}
	if opps[0].RealizableSize != 10 {
		t.Errorf("RealizableSize = %v, want 10 (capital bound)", opps[0].RealizableSize)
	}
}
