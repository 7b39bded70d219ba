package universe

import (
	"context"
	"log/slog"
	"sort"

	"github.com/quantrino/spreadscan/internal/domain"
	"github.com/quantrino/spreadscan/internal/venue"
)

// Ranker supplies asset symbols ordered by market capitalization.
type Ranker interface {
	RankedAssets(ctx context.Context, startRank, endRank int) ([]string, error)
}

// Config controls universe resolution.
type Config struct {
	// StaticPairs, when set, is used verbatim and no ranking call is made.
	StaticPairs []domain.TradingPair

	// QuoteAsset is paired with each ranked base asset, normally USDT.
	QuoteAsset string

	// StartRank and EndRank bound the ranked asset window, inclusive.
	StartRank int
	EndRank   int
}

// seedPairs is the floor the scan loop never drops below: when neither the
// ranking service nor the last-known cache yields anything, these majors are
// monitored so the process stays useful.
var seedPairs = []domain.TradingPair{
	domain.NewTradingPair("BTC", "USDT"),
	domain.NewTradingPair("ETH", "USDT"),
}

// Resolver builds the working set of trading pairs to monitor.
type Resolver struct {
	ranker Ranker
	venues []venue.Exchange
	cache  domain.UniverseCache
	cfg    Config
	logger *slog.Logger
}

// New creates a resolver. ranker and cache may be nil; resolution then relies
// on static configuration and the seed fallback.
func New(ranker Ranker, venues []venue.Exchange, cache domain.UniverseCache, cfg Config, logger *slog.Logger) *Resolver {
	if cfg.QuoteAsset == "" {
		cfg.QuoteAsset = "USDT"
	}
	if cfg.StartRank <= 0 {
		cfg.StartRank = 1
	}
	if cfg.EndRank < cfg.StartRank {
		cfg.EndRank = cfg.StartRank + 19
	}
	return &Resolver{
		ranker: ranker,
		venues: venues,
		cache:  cache,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "universe")),
	}
}

// Resolve returns the pair working set, sorted. It never fails outright: a
// ranking-service outage degrades to the last known universe, then to the
// seed pairs.
func (r *Resolver) Resolve(ctx context.Context) []domain.TradingPair {
	if len(r.cfg.StaticPairs) > 0 {
		out := append([]domain.TradingPair(nil), r.cfg.StaticPairs...)
		sortPairs(out)
		return out
	}

	candidates, fresh := r.rankedCandidates(ctx)
	if len(candidates) == 0 {
		r.logger.Warn("no universe available, falling back to seed pairs")
		return append([]domain.TradingPair(nil), seedPairs...)
	}

	resolved := r.intersectVenues(ctx, candidates)
	if len(resolved) == 0 {
		r.logger.Warn("universe empty after venue intersection, falling back to seed pairs")
		return append([]domain.TradingPair(nil), seedPairs...)
	}

	sortPairs(resolved)
	if fresh && r.cache != nil {
		if err := r.cache.SetUniverse(ctx, resolved); err != nil {
			r.logger.Warn("persist universe failed", slog.String("error", err.Error()))
		}
	}
	return resolved
}

// rankedCandidates asks the ranking service for the configured rank window,
// degrading to the cached last-known universe. The bool reports whether the
// result came fresh from the ranking service.
func (r *Resolver) rankedCandidates(ctx context.Context) ([]domain.TradingPair, bool) {
	if r.ranker != nil {
		symbols, err := r.ranker.RankedAssets(ctx, r.cfg.StartRank, r.cfg.EndRank)
		if err == nil {
			pairs := make([]domain.TradingPair, 0, len(symbols))
			for _, sym := range symbols {
				pair := domain.NewTradingPair(sym, r.cfg.QuoteAsset)
				if pair.Base == pair.Quote {
					continue
				}
				pairs = append(pairs, pair)
			}
			return pairs, true
		}
		r.logger.Warn("ranking service failed, trying last known universe", slog.String("error", err.Error()))
	}

	if r.cache != nil {
		cached, err := r.cache.GetUniverse(ctx)
		if err != nil {
			r.logger.Warn("last known universe unavailable", slog.String("error", err.Error()))
		} else if len(cached) > 0 {
			r.logger.Info("using last known universe", slog.Int("pairs", len(cached)))
			return cached, false
		}
	}
	return nil, false
}

// intersectVenues keeps candidates tradable on at least two venues; a spread
// needs two legs. Venues whose universe cannot be fetched are left out of the
// vote; with fewer than two votable venues the candidates pass through.
func (r *Resolver) intersectVenues(ctx context.Context, candidates []domain.TradingPair) []domain.TradingPair {
	var universes []map[domain.TradingPair]struct{}
	for _, ex := range r.venues {
		u, err := ex.TickerUniverse(ctx)
		if err != nil {
			r.logger.Warn("venue universe unavailable, excluded from intersection",
				slog.String("venue", ex.Name()),
				slog.String("error", err.Error()))
			continue
		}
		universes = append(universes, u)
	}
	if len(universes) < 2 {
		return candidates
	}

	out := make([]domain.TradingPair, 0, len(candidates))
	for _, pair := range candidates {
		listings := 0
		for _, u := range universes {
			if _, ok := u[pair]; ok {
				listings++
			}
		}
		if listings >= 2 {
			out = append(out, pair)
		}
	}
	return out
}

func sortPairs(pairs []domain.TradingPair) {
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Less(pairs[j]) })
}
