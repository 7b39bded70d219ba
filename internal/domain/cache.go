package domain

import (
	"context"
	"time"
)

// QuoteCache mirrors live quotes into a shared cache so the monitor surface
// can serve current prices without touching the venues.
type QuoteCache interface {
	SetQuote(ctx context.Context, q Quote, ttl time.Duration) error
	GetQuote(ctx context.Context, venue string, pair TradingPair) (Quote, error)
	GetVenueQuotes(ctx context.Context, venue string) ([]Quote, error)
}

// UniverseCache persists the last successfully resolved symbol universe so a
// ranking-service outage degrades to stale data instead of an empty scan.
type UniverseCache interface {
	SetUniverse(ctx context.Context, pairs []TradingPair) error
	GetUniverse(ctx context.Context) ([]TradingPair, error)
}

// RateLimiter gates outbound venue requests client-side.
type RateLimiter interface {
	// Allow reports whether one more request to key is permitted within the
	// window, consuming a slot when it is.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// StreamMessage is one entry read back from the opportunity stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// SignalBus publishes detected opportunities for downstream consumers: an
// ephemeral pub/sub channel plus a bounded replayable stream.
type SignalBus interface {
	PublishOpportunity(ctx context.Context, opp ArbitrageOpportunity) error
	AppendOpportunity(ctx context.Context, opp ArbitrageOpportunity) error
	ReadOpportunities(ctx context.Context, lastID string, count int) ([]StreamMessage, error)
}
