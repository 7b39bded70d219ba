package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/quantrino/spreadscan/internal/domain"
	"github.com/quantrino/spreadscan/internal/venue"
)

// Config tunes one orchestrator cycle.
type Config struct {
	// CycleTimeout bounds the whole fan-out. Quotes still in flight at the
	// deadline are dropped; the snapshot ships with whatever arrived.
	CycleTimeout time.Duration

	// RequestTimeout bounds a single venue request inside the cycle.
	RequestTimeout time.Duration

	// DefaultCooldown applies when a venue rate-limits without a retry hint.
	DefaultCooldown time.Duration
}

func (c *Config) fill() {
	if c.CycleTimeout <= 0 {
		c.CycleTimeout = 10 * time.Second
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 5 * time.Second
	}
	if c.DefaultCooldown <= 0 {
		c.DefaultCooldown = time.Minute
	}
}

// Orchestrator runs the per-cycle quote fan-out: every venue is polled
// concurrently for every pair, each venue behind its own admission semaphore
// so one venue's rate ceiling never throttles another, and each venue's
// faults stay contained to that venue.
type Orchestrator struct {
	venues    []venue.Exchange
	limiter   domain.RateLimiter
	cooldowns *cooldownTable
	cfg       Config
	logger    *slog.Logger
	cycle     atomic.Uint64
}

// New builds an orchestrator. limiter may be nil, in which case only the
// in-process semaphore caps request rates.
func New(venues []venue.Exchange, limiter domain.RateLimiter, cfg Config, logger *slog.Logger) *Orchestrator {
	cfg.fill()
	return &Orchestrator{
		venues:    venues,
		limiter:   limiter,
		cooldowns: newCooldownTable(),
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "orchestrator")),
	}
}

// Snapshot runs one collection cycle over pairs and returns the immutable
// snapshot. It only fails when ctx is already cancelled; venue faults shrink
// the snapshot instead of failing the cycle.
func (o *Orchestrator) Snapshot(ctx context.Context, pairs []domain.TradingPair) (domain.MarketSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return domain.MarketSnapshot{}, err
	}

	cycle := o.cycle.Add(1)
	started := time.Now()

	cycleCtx, cancel := context.WithTimeout(ctx, o.cfg.CycleTimeout)
	defer cancel()

	var (
		mu     sync.Mutex
		quotes = make(map[string]map[domain.TradingPair]domain.Quote, len(o.venues))
	)

	g := new(errgroup.Group)
	for _, ex := range o.venues {
		ex := ex
		g.Go(func() error {
			collected := o.collectVenue(cycleCtx, ex, pairs, cycle)
			if len(collected) == 0 {
				return nil
			}
			mu.Lock()
			quotes[ex.Name()] = collected
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	snap := domain.NewMarketSnapshot(cycle, started, quotes)
	o.logger.Debug("cycle complete",
		slog.Uint64("cycle", cycle),
		slog.Int("quotes", snap.QuoteCount()),
		slog.Duration("elapsed", time.Since(started)))
	return snap, nil
}

// collectVenue fans out over pairs for one venue behind its admission
// semaphore. All faults are logged and contained here.
func (o *Orchestrator) collectVenue(ctx context.Context, ex venue.Exchange, pairs []domain.TradingPair, cycle uint64) map[domain.TradingPair]domain.Quote {
	name := ex.Name()
	log := o.logger.With(slog.String("venue", name), slog.Uint64("cycle", cycle))

	if remaining := o.cooldowns.Remaining(name); remaining > 0 {
		log.Info("venue on cooldown, skipping cycle", slog.Duration("remaining", remaining))
		return nil
	}

	profile := ex.Profile()
	weight := int64(profile.RequestRateCeiling)
	if weight <= 0 {
		weight = 1
	}
	sem := semaphore.NewWeighted(weight)

	var (
		mu        sync.Mutex
		collected = make(map[domain.TradingPair]domain.Quote, len(pairs))
	)

	g := new(errgroup.Group)
	for _, pair := range pairs {
		pair := pair
		g.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				return nil
			}
			defer sem.Release(1)

			if !o.admit(ctx, name, profile.RequestRateCeiling) {
				log.Debug("rate budget exhausted, skipping fetch", slog.String("pair", pair.String()))
				return nil
			}

			q, err := o.fetchOne(ctx, ex, pair)
			if err != nil {
				o.handleFetchError(log, name, pair, err)
				return nil
			}
			mu.Lock()
			collected[pair] = q
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return collected
}

// admit consults the shared rate limiter when one is configured. Limiter
// failures fail open; the in-process semaphore still applies.
func (o *Orchestrator) admit(ctx context.Context, name string, ceiling int) bool {
	if o.limiter == nil || ceiling <= 0 {
		return true
	}
	ok, err := o.limiter.Allow(ctx, "venue:"+name, ceiling, time.Second)
	if err != nil {
		if ctx.Err() == nil {
			o.logger.Warn("rate limiter unavailable, admitting", slog.String("error", err.Error()))
		}
		return true
	}
	return ok
}

// fetchOne runs a single bounded quote fetch. A connector panic is converted
// to ErrUnavailable so it never takes down the cycle.
func (o *Orchestrator) fetchOne(ctx context.Context, ex venue.Exchange, pair domain.TradingPair) (q domain.Quote, err error) {
	reqCtx, cancel := context.WithTimeout(ctx, o.cfg.RequestTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: connector panic: %v", domain.ErrUnavailable, r)
		}
	}()

	return ex.FetchQuote(reqCtx, pair)
}

func (o *Orchestrator) handleFetchError(log *slog.Logger, name string, pair domain.TradingPair, err error) {
	switch {
	case errors.Is(err, domain.ErrRateLimited):
		cooldown := o.cfg.DefaultCooldown
		var rlErr *domain.RateLimitError
		if errors.As(err, &rlErr) && rlErr.RetryAfter > 0 {
			cooldown = rlErr.RetryAfter
		}
		o.cooldowns.Set(name, cooldown)
		log.Warn("venue rate limited, entering cooldown",
			slog.String("pair", pair.String()),
			slog.Duration("cooldown", cooldown))
	case errors.Is(err, domain.ErrPairUnsupported):
		log.Debug("pair unsupported on venue", slog.String("pair", pair.String()))
	case errors.Is(err, domain.ErrMalformedResponse):
		log.Warn("malformed venue response",
			slog.String("pair", pair.String()),
			slog.String("error", err.Error()))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		log.Debug("fetch cut off by deadline", slog.String("pair", pair.String()))
	default:
		log.Warn("venue fetch failed",
			slog.String("pair", pair.String()),
			slog.String("error", err.Error()))
	}
}
