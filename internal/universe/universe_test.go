package universe

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/quantrino/spreadscan/internal/domain"
	"github.com/quantrino/spreadscan/internal/venue"
)

type fakeRanker struct {
	symbols []string
	err     error
}

func (f *fakeRanker) RankedAssets(ctx context.Context, start, end int) ([]string, error) {
	return f.symbols, f.err
}

type fakeUniverseCache struct {
	stored []domain.TradingPair
	getErr error
}

func (f *fakeUniverseCache) SetUniverse(ctx context.Context, pairs []domain.TradingPair) error {
	f.stored = append([]domain.TradingPair(nil), pairs...)
	return nil
}

func (f *fakeUniverseCache) GetUniverse(ctx context.Context) ([]domain.TradingPair, error) {
	return f.stored, f.getErr
}

type fakeVenue struct {
	name  string
	pairs []domain.TradingPair
	err   error
}

func (f *fakeVenue) Name() string { return f.name }

func (f *fakeVenue) FetchQuote(ctx context.Context, pair domain.TradingPair) (domain.Quote, error) {
	return domain.Quote{}, domain.ErrPairUnsupported
}

func (f *fakeVenue) TickerUniverse(ctx context.Context) (map[domain.TradingPair]struct{}, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[domain.TradingPair]struct{}, len(f.pairs))
	for _, p := range f.pairs {
		out[p] = struct{}{}
	}
	return out, nil
}

func (f *fakeVenue) Profile() domain.VenueProfile {
	return domain.VenueProfile{Venue: f.name}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pairsOf(names ...string) []domain.TradingPair {
	out := make([]domain.TradingPair, 0, len(names))
	for _, n := range names {
		p, err := domain.ParsePair(n)
		if err != nil {
			panic(err)
		}
		out = append(out, p)
	}
	return out
}

func TestResolveStaticVerbatim(t *testing.T) {
	static := pairsOf("ETH/USDT", "BTC/USDT")
	r := New(&fakeRanker{err: errors.New("must not be called")}, nil, nil,
		Config{StaticPairs: static}, quietLogger())

	got := r.Resolve(context.Background())
	want := pairsOf("BTC/USDT", "ETH/USDT")
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("Resolve = %v, want %v", got, want)
	}
}

func TestResolveRankedIntersected(t *testing.T) {
	binanceLike := &fakeVenue{name: "a", pairs: pairsOf("BTC/USDT", "ETH/USDT", "SOL/USDT")}
	kucoinLike := &fakeVenue{name: "b", pairs: pairsOf("BTC/USDT", "ETH/USDT", "ADA/USDT")}
	cache := &fakeUniverseCache{}

	r := New(&fakeRanker{symbols: []string{"BTC", "ETH", "SOL", "ADA"}},
		[]venue.Exchange{binanceLike, kucoinLike}, cache, Config{}, quietLogger())

	got := r.Resolve(context.Background())
	// SOL and ADA are each listed on only one venue; a spread needs two legs.
	want := pairsOf("BTC/USDT", "ETH/USDT")
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("Resolve = %v, want %v", got, want)
	}
	if len(cache.stored) != 2 {
		t.Errorf("resolved universe should be persisted, cache has %v", cache.stored)
	}
}

func TestResolveDegradesToLastKnown(t *testing.T) {
	cache := &fakeUniverseCache{stored: pairsOf("BTC/USDT", "SOL/USDT")}
	r := New(&fakeRanker{err: errors.New("ranking down")}, nil, cache, Config{}, quietLogger())

	got := r.Resolve(context.Background())
	if len(got) != 2 {
		t.Fatalf("Resolve = %v, want the 2 cached pairs", got)
	}
}

func TestResolveFallsBackToSeeds(t *testing.T) {
	r := New(&fakeRanker{err: errors.New("ranking down")}, nil, &fakeUniverseCache{}, Config{}, quietLogger())

	got := r.Resolve(context.Background())
	want := pairsOf("BTC/USDT", "ETH/USDT")
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("Resolve = %v, want seed pairs %v", got, want)
	}
}

func TestResolveSkipsBrokenVenueInIntersection(t *testing.T) {
	healthy := &fakeVenue{name: "a", pairs: pairsOf("BTC/USDT")}
	broken := &fakeVenue{name: "b", err: domain.ErrUnavailable}

	r := New(&fakeRanker{symbols: []string{"BTC", "ETH"}},
		[]venue.Exchange{healthy, broken}, nil, Config{}, quietLogger())

	// With only one votable universe no intersection is applied.
	got := r.Resolve(context.Background())
	if len(got) != 2 {
		t.Fatalf("Resolve = %v, want both ranked pairs to pass through", got)
	}
}
