package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quantrino/spreadscan/internal/domain"
)

// QuoteCache implements domain.QuoteCache using Redis hashes. Each quote is a
// hash at "quote:{venue}:{BASE/QUOTE}"; a per-venue set at
// "quote:index:{venue}" tracks which pairs currently have entries.
type QuoteCache struct {
	rdb *redis.Client
}

// NewQuoteCache creates a QuoteCache backed by the given Client.
func NewQuoteCache(c *Client) *QuoteCache {
	return &QuoteCache{rdb: c.Underlying()}
}

func quoteKey(venue string, pair domain.TradingPair) string {
	return "quote:" + venue + ":" + pair.String()
}

func quoteIndexKey(venue string) string {
	return "quote:index:" + venue
}

// SetQuote stores a quote with the given TTL and registers it in the venue
// index.
func (qc *QuoteCache) SetQuote(ctx context.Context, q domain.Quote, ttl time.Duration) error {
	key := quoteKey(q.Venue, q.Pair)
	fields := map[string]interface{}{
		"bid_price": strconv.FormatFloat(q.BidPrice, 'f', -1, 64),
		"bid_size":  strconv.FormatFloat(q.BidSize, 'f', -1, 64),
		"ask_price": strconv.FormatFloat(q.AskPrice, 'f', -1, 64),
		"ask_size":  strconv.FormatFloat(q.AskSize, 'f', -1, 64),
		"ts":        strconv.FormatInt(q.CapturedAt.UnixNano(), 10),
	}

	pipe := qc.rdb.Pipeline()
	pipe.HSet(ctx, key, fields)
	if ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	pipe.SAdd(ctx, quoteIndexKey(q.Venue), q.Pair.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set quote %s %s: %w", q.Venue, q.Pair, err)
	}
	return nil
}

// GetQuote retrieves one quote. It returns domain.ErrNotFound when the entry
// does not exist or has expired.
func (qc *QuoteCache) GetQuote(ctx context.Context, venue string, pair domain.TradingPair) (domain.Quote, error) {
	vals, err := qc.rdb.HGetAll(ctx, quoteKey(venue, pair)).Result()
	if err != nil {
		return domain.Quote{}, fmt.Errorf("redis: get quote %s %s: %w", venue, pair, err)
	}
	if len(vals) == 0 {
		return domain.Quote{}, domain.ErrNotFound
	}
	return decodeQuote(venue, pair, vals)
}

// GetVenueQuotes returns every live quote for a venue. Index entries whose
// hashes have expired are pruned as a side effect.
func (qc *QuoteCache) GetVenueQuotes(ctx context.Context, venue string) ([]domain.Quote, error) {
	members, err := qc.rdb.SMembers(ctx, quoteIndexKey(venue)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: venue quotes %s: %w", venue, err)
	}
	if len(members) == 0 {
		return nil, nil
	}

	pipe := qc.rdb.Pipeline()
	cmds := make(map[string]*redis.MapStringStringCmd, len(members))
	for _, m := range members {
		pair, err := domain.ParsePair(m)
		if err != nil {
			continue
		}
		cmds[m] = pipe.HGetAll(ctx, quoteKey(venue, pair))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis: venue quotes pipeline %s: %w", venue, err)
	}

	var (
		quotes  []domain.Quote
		expired []interface{}
	)
	for member, cmd := range cmds {
		vals, err := cmd.Result()
		if err != nil || len(vals) == 0 {
			expired = append(expired, member)
			continue
		}
		pair, _ := domain.ParsePair(member)
		q, err := decodeQuote(venue, pair, vals)
		if err != nil {
			continue
		}
		quotes = append(quotes, q)
	}
	if len(expired) > 0 {
		_ = qc.rdb.SRem(ctx, quoteIndexKey(venue), expired...).Err()
	}
	return quotes, nil
}

func decodeQuote(venue string, pair domain.TradingPair, vals map[string]string) (domain.Quote, error) {
	parse := func(field string) (float64, error) {
		s, ok := vals[field]
		if !ok {
			return 0, fmt.Errorf("redis: quote %s %s: missing field %s", venue, pair, field)
		}
		return strconv.ParseFloat(s, 64)
	}

	bidPrice, err := parse("bid_price")
	if err != nil {
		return domain.Quote{}, err
	}
	bidSize, err := parse("bid_size")
	if err != nil {
		return domain.Quote{}, err
	}
	askPrice, err := parse("ask_price")
	if err != nil {
		return domain.Quote{}, err
	}
	askSize, err := parse("ask_size")
	if err != nil {
		return domain.Quote{}, err
	}

	tsNano, err := strconv.ParseInt(vals["ts"], 10, 64)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("redis: quote %s %s: parse ts: %w", venue, pair, err)
	}

	return domain.Quote{
		Venue:      venue,
		Pair:       pair,
		BidPrice:   bidPrice,
		BidSize:    bidSize,
		AskPrice:   askPrice,
		AskSize:    askSize,
		CapturedAt: time.Unix(0, tsNano),
	}, nil
}

// Compile-time interface check.
var _ domain.QuoteCache = (*QuoteCache)(nil)
