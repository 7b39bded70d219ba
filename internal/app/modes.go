package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quantrino/spreadscan/internal/domain"
	"github.com/quantrino/spreadscan/internal/feed"
	"github.com/quantrino/spreadscan/internal/orchestrator"
	"github.com/quantrino/spreadscan/internal/scanner"
	"github.com/quantrino/spreadscan/internal/server"
	"github.com/quantrino/spreadscan/internal/server/handler"
	"github.com/quantrino/spreadscan/internal/service"
	"github.com/quantrino/spreadscan/internal/universe"
)

// cycleTracker records the progress of the scan loop for the status endpoint.
type cycleTracker struct {
	mu   sync.Mutex
	info handler.CycleInfo
}

func (t *cycleTracker) update(info handler.CycleInfo) {
	t.mu.Lock()
	t.info = info
	t.mu.Unlock()
}

func (t *cycleTracker) snapshot() handler.CycleInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.info
}

// buildScanComponents constructs the orchestrator, scanner, universe resolver
// and opportunity service shared by scan and once modes.
func (a *App) buildScanComponents(deps *Dependencies) (*orchestrator.Orchestrator, *scanner.Scanner, *universe.Resolver, *service.OpportunityService) {
	orch := orchestrator.New(deps.Venues, deps.RateLimiter, orchestrator.Config{
		CycleTimeout:    a.cfg.Orchestrator.CycleTimeout.Duration,
		RequestTimeout:  a.cfg.Orchestrator.RequestTimeout.Duration,
		DefaultCooldown: a.cfg.Orchestrator.DefaultCooldown.Duration,
	}, a.logger)

	scan := scanner.New(scanner.Config{
		MinProfitPct:   a.cfg.Scanner.MinProfitPct,
		MaxProfitPct:   a.cfg.Scanner.MaxProfitPct,
		SlippagePct:    a.cfg.Scanner.MaxSlippagePct,
		InitialCapital: a.cfg.Scanner.InitialCapital,
	}, a.logger)

	resolver := universe.New(deps.Ranker, deps.Venues, deps.UniverseCache, universe.Config{
		StaticPairs: a.staticPairs(),
		QuoteAsset:  a.cfg.Universe.QuoteAsset,
		StartRank:   a.cfg.Universe.StartRank,
		EndRank:     a.cfg.Universe.EndRank,
	}, a.logger)

	svc := service.NewOpportunityService(deps.Store, deps.SignalBus, deps.Notifier, a.logger)

	return orch, scan, resolver, svc
}

// staticPairs parses the configured pair list. Entries that fail to parse were
// already rejected by config validation.
func (a *App) staticPairs() []domain.TradingPair {
	var out []domain.TradingPair
	for _, s := range a.cfg.Universe.Pairs {
		pair, err := domain.ParsePair(s)
		if err != nil {
			continue
		}
		out = append(out, pair)
	}
	return out
}

// venueProfiles collects the current fee profile of every venue. Called every
// cycle so refreshed fee schedules take effect immediately.
func venueProfiles(deps *Dependencies) map[string]domain.VenueProfile {
	profiles := make(map[string]domain.VenueProfile, len(deps.Venues))
	for _, ex := range deps.Venues {
		profiles[ex.Name()] = ex.Profile()
	}
	return profiles
}

func venueNames(deps *Dependencies) []string {
	names := make([]string, 0, len(deps.Venues))
	for _, ex := range deps.Venues {
		names = append(names, ex.Name())
	}
	return names
}

// ScanMode runs the continuous detection loop plus all enabled side workers:
// fee refresh, universe refresh, the live price feed, archival, and the HTTP
// server.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting scan mode",
		slog.Int("venues", len(deps.Venues)),
		slog.Duration("interval", a.cfg.Scanner.ScanInterval.Duration),
	)

	g, ctx := errgroup.WithContext(ctx)

	orch, scan, resolver, svc := a.buildScanComponents(deps)
	tracker := &cycleTracker{}

	// Working pair set, refreshed periodically.
	var (
		pairMu sync.RWMutex
		pairs  = resolver.Resolve(ctx)
	)
	a.logger.InfoContext(ctx, "universe resolved", slog.Int("pairs", len(pairs)))

	// Live price feed mirroring into the quote cache. The supervisor tears the
	// websocket subscription down and rebuilds it whenever the universe refresh
	// changes the pair set, so the mirror never drifts from the scan universe.
	var feedUpdates chan []domain.TradingPair
	if a.cfg.Feed.Enabled && deps.QuoteCache != nil {
		feedUpdates = make(chan []domain.TradingPair, 1)
		feedUpdates <- append([]domain.TradingPair(nil), pairs...)

		sup := feed.NewSupervisor(func(ctx context.Context, ps []domain.TradingPair) error {
			return feed.NewBinanceWSFeed(
				a.cfg.Feed.WsURL,
				ps,
				deps.QuoteCache,
				a.cfg.Feed.CacheTTL.Duration,
				a.logger,
			).Run(ctx)
		}, a.logger)
		g.Go(func() error {
			return sup.Run(ctx, feedUpdates)
		})
	}

	if len(a.cfg.Universe.Pairs) == 0 && a.cfg.Universe.RefreshInterval.Duration > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(a.cfg.Universe.RefreshInterval.Duration)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					refreshed := resolver.Resolve(ctx)
					pairMu.Lock()
					pairs = refreshed
					pairMu.Unlock()
					if feedUpdates != nil {
						// Replace any pending set the supervisor has not
						// consumed yet.
						select {
						case <-feedUpdates:
						default:
						}
						feedUpdates <- refreshed
					}
					a.logger.InfoContext(ctx, "universe refreshed", slog.Int("pairs", len(refreshed)))
				}
			}
		})
	}

	// Fee schedule refresh for venues with credentials.
	if len(deps.FeeRefreshers) > 0 && a.cfg.Venues.FeeRefreshInterval.Duration > 0 {
		g.Go(func() error {
			a.refreshFees(ctx, deps)
			ticker := time.NewTicker(a.cfg.Venues.FeeRefreshInterval.Duration)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					a.refreshFees(ctx, deps)
				}
			}
		})
	}

	// Cold-storage archival.
	if deps.Archiver != nil {
		retention := time.Duration(a.cfg.Archive.RetentionDays) * 24 * time.Hour
		g.Go(func() error {
			return deps.Archiver.Run(ctx, a.cfg.Archive.Interval.Duration, retention)
		})
	}

	// The scan loop itself.
	g.Go(func() error {
		ticker := time.NewTicker(a.cfg.Scanner.ScanInterval.Duration)
		defer ticker.Stop()
		for {
			pairMu.RLock()
			current := pairs
			pairMu.RUnlock()

			a.runCycle(ctx, deps, orch, scan, svc, tracker, current)

			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	})

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, svc, tracker)
	}

	return g.Wait()
}

// runCycle executes one snapshot-scan-record round.
func (a *App) runCycle(
	ctx context.Context,
	deps *Dependencies,
	orch *orchestrator.Orchestrator,
	scan *scanner.Scanner,
	svc *service.OpportunityService,
	tracker *cycleTracker,
	pairs []domain.TradingPair,
) {
	snap, err := orch.Snapshot(ctx, pairs)
	if err != nil {
		return
	}

	opps := scan.Scan(snap, venueProfiles(deps))
	if len(opps) > 0 {
		a.logger.InfoContext(ctx, "cycle detections",
			slog.Uint64("cycle", snap.Cycle()),
			slog.Int("count", len(opps)),
			slog.Float64("best_net_pct", opps[0].NetProfitPct),
		)
		if err := svc.RecordBatch(ctx, opps); err != nil {
			a.logger.WarnContext(ctx, "recording detections failed",
				slog.String("error", err.Error()),
			)
		}
	}

	if tracker != nil {
		tracker.update(handler.CycleInfo{
			Cycle:       snap.Cycle(),
			QuoteCount:  snap.QuoteCount(),
			Detections:  len(opps),
			CompletedAt: time.Now().UTC(),
		})
	}
}

// refreshFees re-polls the signed fee endpoints. A venue failure is logged
// and the stale schedule stays in effect.
func (a *App) refreshFees(ctx context.Context, deps *Dependencies) {
	for _, fr := range deps.FeeRefreshers {
		if err := fr.RefreshFees(ctx); err != nil {
			a.logger.WarnContext(ctx, "fee refresh failed",
				slog.String("error", err.Error()),
			)
		}
	}
}

// MonitorMode serves the read-only HTTP API and tails the opportunity stream
// into the log. No venue polling happens in this process.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")

	g, ctx := errgroup.WithContext(ctx)

	svc := service.NewOpportunityService(deps.Store, deps.SignalBus, nil, a.logger)

	// Keep the quote cache warm so the monitor surface serves live data even
	// though this process never polls venues.
	if a.cfg.Feed.Enabled && deps.QuoteCache != nil {
		_, _, resolver, _ := a.buildScanComponents(deps)
		wsFeed := feed.NewBinanceWSFeed(
			a.cfg.Feed.WsURL,
			resolver.Resolve(ctx),
			deps.QuoteCache,
			a.cfg.Feed.CacheTTL.Duration,
			a.logger,
		)
		g.Go(func() error {
			return wsFeed.Run(ctx)
		})
	}

	if deps.SignalBus != nil {
		g.Go(func() error {
			return a.tailOpportunities(ctx, deps.SignalBus)
		})
	}

	a.startHTTPServer(ctx, g, deps, svc, nil)

	return g.Wait()
}

// tailOpportunities follows the opportunity stream and logs each entry, so a
// monitor process gives operators a live view without database access.
func (a *App) tailOpportunities(ctx context.Context, bus domain.SignalBus) error {
	lastID := "$"
	for {
		if ctx.Err() != nil {
			return nil
		}
		msgs, err := bus.ReadOpportunities(ctx, lastID, 32)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			a.logger.WarnContext(ctx, "opportunity stream read failed",
				slog.String("error", err.Error()),
			)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(5 * time.Second):
			}
			continue
		}
		for _, msg := range msgs {
			lastID = msg.ID
			var opp domain.ArbitrageOpportunity
			if err := json.Unmarshal(msg.Payload, &opp); err != nil {
				continue
			}
			a.logger.InfoContext(ctx, "opportunity observed",
				slog.String("opp_id", opp.ID),
				slog.String("pair", opp.Pair.String()),
				slog.String("buy_venue", opp.BuyVenue),
				slog.String("sell_venue", opp.SellVenue),
				slog.Float64("net_profit_pct", opp.NetProfitPct),
			)
		}
	}
}

// OnceMode runs a single collection-and-scan cycle, prints the detections as
// JSON to stdout, and exits. Useful for cron jobs and smoke tests.
func (a *App) OnceMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting single-cycle run")

	orch, scan, resolver, svc := a.buildScanComponents(deps)

	pairs := resolver.Resolve(ctx)
	snap, err := orch.Snapshot(ctx, pairs)
	if err != nil {
		return fmt.Errorf("once mode: snapshot: %w", err)
	}

	opps := scan.Scan(snap, venueProfiles(deps))
	if err := svc.RecordBatch(ctx, opps); err != nil {
		a.logger.WarnContext(ctx, "recording detections failed",
			slog.String("error", err.Error()),
		)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(map[string]any{
		"cycle":         snap.Cycle(),
		"pairs":         len(pairs),
		"quotes":        snap.QuoteCount(),
		"opportunities": opps,
	}); err != nil {
		return fmt.Errorf("once mode: encode result: %w", err)
	}
	return nil
}

// startHTTPServer adds the HTTP server goroutines to the given errgroup. The
// server is shut down gracefully when the context is cancelled.
func (a *App) startHTTPServer(
	ctx context.Context,
	g *errgroup.Group,
	deps *Dependencies,
	svc *service.OpportunityService,
	tracker *cycleTracker,
) {
	var cycleFn func() handler.CycleInfo
	if tracker != nil {
		cycleFn = tracker.snapshot
	}

	srv := server.NewServer(
		server.Config{
			Port:        a.cfg.Server.Port,
			CORSOrigins: a.cfg.Server.CORSOrigins,
		},
		server.Handlers{
			Health:        handler.NewHealthHandler(a.cfg.Mode, len(deps.Venues)),
			Status:        handler.NewStatusHandler(a.cfg.Mode, venueNames(deps), cycleFn),
			Quotes:        handler.NewQuoteHandler(deps.QuoteCache, a.logger),
			Opportunities: handler.NewOpportunityHandler(svc, a.logger),
		},
		a.logger,
	)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
