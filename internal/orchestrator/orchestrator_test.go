package orchestrator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/quantrino/spreadscan/internal/domain"
	"github.com/quantrino/spreadscan/internal/venue"
)

type fakeVenue struct {
	name    string
	ceiling int
	fetch   func(ctx context.Context, pair domain.TradingPair) (domain.Quote, error)
}

func (f *fakeVenue) Name() string { return f.name }

func (f *fakeVenue) FetchQuote(ctx context.Context, pair domain.TradingPair) (domain.Quote, error) {
	return f.fetch(ctx, pair)
}

func (f *fakeVenue) TickerUniverse(ctx context.Context) (map[domain.TradingPair]struct{}, error) {
	return nil, nil
}

func (f *fakeVenue) Profile() domain.VenueProfile {
	ceiling := f.ceiling
	if ceiling == 0 {
		ceiling = 10
	}
	return domain.VenueProfile{Venue: f.name, TakerFeeRate: 0.001, RequestRateCeiling: ceiling}
}

func venues(fakes ...*fakeVenue) []venue.Exchange {
	out := make([]venue.Exchange, len(fakes))
	for i, f := range fakes {
		out[i] = f
	}
	return out
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func goodQuote(venue string, pair domain.TradingPair) domain.Quote {
	return domain.Quote{
		Venue: venue, Pair: pair,
		BidPrice: 100, BidSize: 1, AskPrice: 101, AskSize: 1,
		CapturedAt: time.Now(),
	}
}

func TestSnapshotIsolatesSlowVenue(t *testing.T) {
	pair := domain.NewTradingPair("BTC", "USDT")

	fast := &fakeVenue{name: "fast", fetch: func(_ context.Context, p domain.TradingPair) (domain.Quote, error) {
		return goodQuote("fast", p), nil
	}}
	slow := &fakeVenue{name: "slow", fetch: func(ctx context.Context, p domain.TradingPair) (domain.Quote, error) {
		select {
		case <-ctx.Done():
			return domain.Quote{}, ctx.Err()
		case <-time.After(5 * time.Second):
			return goodQuote("slow", p), nil
		}
	}}

	orch := New(venues(fast, slow), nil, Config{CycleTimeout: 150 * time.Millisecond}, quietLogger())

	start := time.Now()
	snap, err := orch.Snapshot(context.Background(), []domain.TradingPair{pair})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("cycle took %v, slow venue blocked it", elapsed)
	}
	if _, ok := snap.Quote("fast", pair); !ok {
		t.Error("fast venue quote missing")
	}
	if _, ok := snap.Quote("slow", pair); ok {
		t.Error("slow venue quote should have been dropped at the deadline")
	}
}

func TestSnapshotCooldownAfterRateLimit(t *testing.T) {
	pair := domain.NewTradingPair("BTC", "USDT")

	var calls atomic.Int64
	limited := &fakeVenue{name: "limited", fetch: func(_ context.Context, p domain.TradingPair) (domain.Quote, error) {
		calls.Add(1)
		return domain.Quote{}, &domain.RateLimitError{Venue: "limited", RetryAfter: time.Hour}
	}}
	healthy := &fakeVenue{name: "healthy", fetch: func(_ context.Context, p domain.TradingPair) (domain.Quote, error) {
		return goodQuote("healthy", p), nil
	}}

	orch := New(venues(limited, healthy), nil, Config{CycleTimeout: time.Second}, quietLogger())

	if _, err := orch.Snapshot(context.Background(), []domain.TradingPair{pair}); err != nil {
		t.Fatalf("cycle 1: %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("cycle 1 calls = %d, want 1", got)
	}

	snap, err := orch.Snapshot(context.Background(), []domain.TradingPair{pair})
	if err != nil {
		t.Fatalf("cycle 2: %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("venue on cooldown was called again (calls = %d)", got)
	}
	if _, ok := snap.Quote("healthy", pair); !ok {
		t.Error("healthy venue should be unaffected by the other venue's cooldown")
	}
}

func TestSnapshotContainsPanic(t *testing.T) {
	pair := domain.NewTradingPair("ETH", "USDT")

	panicky := &fakeVenue{name: "panicky", fetch: func(_ context.Context, p domain.TradingPair) (domain.Quote, error) {
		panic("connector bug")
	}}
	healthy := &fakeVenue{name: "healthy", fetch: func(_ context.Context, p domain.TradingPair) (domain.Quote, error) {
		return goodQuote("healthy", p), nil
	}}

	orch := New(venues(panicky, healthy), nil, Config{CycleTimeout: time.Second}, quietLogger())
	snap, err := orch.Snapshot(context.Background(), []domain.TradingPair{pair})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := snap.Quote("healthy", pair); !ok {
		t.Error("healthy venue quote missing after peer panic")
	}
	if _, ok := snap.Quote("panicky", pair); ok {
		t.Error("panicking venue should contribute nothing")
	}
}

func TestSnapshotRespectsVenueConcurrencyCap(t *testing.T) {
	var inFlight, peak atomic.Int64
	capped := &fakeVenue{name: "capped", ceiling: 2, fetch: func(_ context.Context, p domain.TradingPair) (domain.Quote, error) {
		cur := inFlight.Add(1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
		return goodQuote("capped", p), nil
	}}

	pairs := []domain.TradingPair{
		domain.NewTradingPair("BTC", "USDT"),
		domain.NewTradingPair("ETH", "USDT"),
		domain.NewTradingPair("SOL", "USDT"),
		domain.NewTradingPair("ADA", "USDT"),
		domain.NewTradingPair("XRP", "USDT"),
	}

	orch := New(venues(capped), nil, Config{CycleTimeout: 5 * time.Second}, quietLogger())
	snap, err := orch.Snapshot(context.Background(), pairs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := peak.Load(); got > 2 {
		t.Errorf("peak in-flight = %d, want <= 2", got)
	}
	if got := snap.QuoteCount(); got != len(pairs) {
		t.Errorf("QuoteCount = %d, want %d", got, len(pairs))
	}
}

func TestSnapshotCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	orch := New(nil, nil, Config{}, quietLogger())
	if _, err := orch.Snapshot(ctx, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}
