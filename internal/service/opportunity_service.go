// Package service contains the application services that sit between the
// scan loop and the persistence/notification layers.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/quantrino/spreadscan/internal/domain"
	"github.com/quantrino/spreadscan/internal/notify"
)

// OpportunityService records detected opportunities and serves read queries
// for the HTTP API. The store, bus and notifier are all optional; a nil
// dependency disables that sink.
type OpportunityService struct {
	store    domain.OpportunityStore
	bus      domain.SignalBus
	notifier *notify.Notifier
	logger   *slog.Logger
}

// NewOpportunityService creates an OpportunityService. Any of store, bus and
// notifier may be nil.
func NewOpportunityService(
	store domain.OpportunityStore,
	bus domain.SignalBus,
	notifier *notify.Notifier,
	logger *slog.Logger,
) *OpportunityService {
	return &OpportunityService{
		store:    store,
		bus:      bus,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "opportunity_service")),
	}
}

// Record fans a detected opportunity out to every configured sink. The store
// write is authoritative; bus and notification failures are logged but do not
// fail the call, so a Redis or Telegram outage never stalls the scan loop.
func (s *OpportunityService) Record(ctx context.Context, opp domain.ArbitrageOpportunity) error {
	if s.store != nil {
		if err := s.store.Insert(ctx, opp); err != nil {
			return fmt.Errorf("service: insert opportunity: %w", err)
		}
	}

	if s.bus != nil {
		if err := s.bus.AppendOpportunity(ctx, opp); err != nil {
			s.logger.WarnContext(ctx, "stream append failed",
				slog.String("opp_id", opp.ID),
				slog.String("error", err.Error()),
			)
		}
		if err := s.bus.PublishOpportunity(ctx, opp); err != nil {
			s.logger.WarnContext(ctx, "publish failed",
				slog.String("opp_id", opp.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	if s.notifier != nil {
		// Notifications go out asynchronously; channel latency must not block
		// the next scan cycle.
		go func(opp domain.ArbitrageOpportunity) {
			nctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			title, message := notify.FormatOpportunity(opp)
			if err := s.notifier.Notify(nctx, notify.EventOpportunity, title, message); err != nil {
				s.logger.Warn("notification failed",
					slog.String("opp_id", opp.ID),
					slog.String("error", err.Error()),
				)
			}
		}(opp)
	}

	s.logger.InfoContext(ctx, "opportunity recorded",
		slog.String("opp_id", opp.ID),
		slog.String("pair", opp.Pair.String()),
		slog.String("buy_venue", opp.BuyVenue),
		slog.String("sell_venue", opp.SellVenue),
		slog.Float64("net_profit_pct", opp.NetProfitPct),
	)
	return nil
}

// RecordBatch records every opportunity from a scan cycle, continuing past
// individual failures and returning the first error encountered.
func (s *OpportunityService) RecordBatch(ctx context.Context, opps []domain.ArbitrageOpportunity) error {
	var firstErr error
	for _, opp := range opps {
		if err := s.Record(ctx, opp); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			s.logger.WarnContext(ctx, "record failed",
				slog.String("opp_id", opp.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	return firstErr
}

// Recent returns the most recently detected opportunities.
func (s *OpportunityService) Recent(ctx context.Context, limit int) ([]domain.ArbitrageOpportunity, error) {
	if s.store == nil {
		return nil, domain.ErrUnavailable
	}
	opps, err := s.store.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("service: recent opportunities: %w", err)
	}
	return opps, nil
}

// TopByProfit returns the highest-net opportunities since the cutoff.
func (s *OpportunityService) TopByProfit(ctx context.Context, since time.Time, limit int) ([]domain.ArbitrageOpportunity, error) {
	if s.store == nil {
		return nil, domain.ErrUnavailable
	}
	opps, err := s.store.TopByProfit(ctx, since, limit)
	if err != nil {
		return nil, fmt.Errorf("service: top opportunities: %w", err)
	}
	return opps, nil
}

// Summary aggregates detections since the cutoff.
func (s *OpportunityService) Summary(ctx context.Context, since time.Time) (domain.OpportunitySummary, error) {
	if s.store == nil {
		return domain.OpportunitySummary{}, domain.ErrUnavailable
	}
	sum, err := s.store.Summary(ctx, since)
	if err != nil {
		return domain.OpportunitySummary{}, fmt.Errorf("service: opportunity summary: %w", err)
	}
	return sum, nil
}
