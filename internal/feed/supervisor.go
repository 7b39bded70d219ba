package feed

import (
	"context"
	"log/slog"

	"github.com/quantrino/spreadscan/internal/domain"
)

// RunFunc runs one feed subscription for the given pairs until its context is
// cancelled.
type RunFunc func(ctx context.Context, pairs []domain.TradingPair) error

// Supervisor owns a single feed subscription and rebuilds it whenever the
// monitored pair set changes, so the live quote mirror follows universe
// refreshes instead of staying pinned to the startup set.
type Supervisor struct {
	run    RunFunc
	logger *slog.Logger
}

// NewSupervisor creates a Supervisor around run.
func NewSupervisor(run RunFunc, logger *slog.Logger) *Supervisor {
	return &Supervisor{
		run:    run,
		logger: logger.With(slog.String("component", "feed_supervisor")),
	}
}

// Run consumes pair sets from updates and keeps exactly one subscription alive
// for the latest set. An update with the same pairs is ignored; a changed set
// stops the active subscription and starts a fresh one. Run returns when ctx
// is cancelled or updates is closed.
func (s *Supervisor) Run(ctx context.Context, updates <-chan []domain.TradingPair) error {
	var (
		active []domain.TradingPair
		cancel context.CancelFunc
		done   chan struct{}
	)
	stop := func() {
		if cancel == nil {
			return
		}
		cancel()
		<-done
		cancel = nil
	}
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case pairs, ok := <-updates:
			if !ok {
				return nil
			}
			if samePairs(active, pairs) {
				continue
			}
			stop()
			active = pairs
			if len(pairs) == 0 {
				s.logger.Warn("empty pair set, feed idle")
				continue
			}

			subCtx, subCancel := context.WithCancel(ctx)
			subDone := make(chan struct{})
			cancel, done = subCancel, subDone
			go func() {
				defer close(subDone)
				if err := s.run(subCtx, pairs); err != nil && subCtx.Err() == nil {
					s.logger.Warn("feed subscription ended",
						slog.String("error", err.Error()))
				}
			}()
			s.logger.Info("feed subscription started", slog.Int("pairs", len(pairs)))
		}
	}
}

// samePairs compares pair sets positionally. Resolved universes are sorted, so
// positional equality is set equality.
func samePairs(a, b []domain.TradingPair) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
