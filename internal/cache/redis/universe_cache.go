package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/quantrino/spreadscan/internal/domain"
)

// universeKey holds the last successfully resolved pair universe as a JSON
// array of "BASE/QUOTE" strings. Deliberately without TTL: stale beats empty
// when the ranking service is down.
const universeKey = "universe:last"

// UniverseCache implements domain.UniverseCache on a single Redis key.
type UniverseCache struct {
	rdb *redis.Client
}

// NewUniverseCache creates a UniverseCache backed by the given Client.
func NewUniverseCache(c *Client) *UniverseCache {
	return &UniverseCache{rdb: c.Underlying()}
}

// SetUniverse replaces the stored universe.
func (uc *UniverseCache) SetUniverse(ctx context.Context, pairs []domain.TradingPair) error {
	strs := make([]string, len(pairs))
	for i, p := range pairs {
		strs[i] = p.String()
	}
	payload, err := json.Marshal(strs)
	if err != nil {
		return fmt.Errorf("redis: encode universe: %w", err)
	}
	if err := uc.rdb.Set(ctx, universeKey, payload, 0).Err(); err != nil {
		return fmt.Errorf("redis: set universe: %w", err)
	}
	return nil
}

// GetUniverse returns the stored universe, or domain.ErrNotFound when none
// has been persisted yet.
func (uc *UniverseCache) GetUniverse(ctx context.Context) ([]domain.TradingPair, error) {
	payload, err := uc.rdb.Get(ctx, universeKey).Bytes()
	if err == redis.Nil {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis: get universe: %w", err)
	}

	var strs []string
	if err := json.Unmarshal(payload, &strs); err != nil {
		return nil, fmt.Errorf("redis: decode universe: %w", err)
	}

	pairs := make([]domain.TradingPair, 0, len(strs))
	for _, s := range strs {
		pair, err := domain.ParsePair(s)
		if err != nil {
			continue
		}
		pairs = append(pairs, pair)
	}
	return pairs, nil
}

// Compile-time interface check.
var _ domain.UniverseCache = (*UniverseCache)(nil)
