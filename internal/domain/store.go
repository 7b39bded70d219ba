package domain

import (
	"context"
	"io"
	"time"
)

// OpportunityStore is the append-only history of detected opportunities.
type OpportunityStore interface {
	Insert(ctx context.Context, opp ArbitrageOpportunity) error
	Recent(ctx context.Context, limit int) ([]ArbitrageOpportunity, error)
	TopByProfit(ctx context.Context, since time.Time, limit int) ([]ArbitrageOpportunity, error)
	Summary(ctx context.Context, since time.Time) (OpportunitySummary, error)
	// OlderThan returns rows detected before cutoff, oldest first, for archival.
	OlderThan(ctx context.Context, cutoff time.Time, limit int) ([]ArbitrageOpportunity, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// OpportunitySummary aggregates stored opportunities over a window.
type OpportunitySummary struct {
	Count         int64
	AvgNetPct     float64
	MaxNetPct     float64
	DistinctPairs int64
}

// BlobWriter uploads archive objects to cold storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}
