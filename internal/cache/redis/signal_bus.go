package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quantrino/spreadscan/internal/domain"
)

const (
	// opportunityChannel carries ephemeral opportunity notifications.
	opportunityChannel = "opportunities"

	// opportunityStream is the durable, replayable opportunity log.
	opportunityStream = "opportunities:stream"

	// streamMaxLen is the approximate maximum stream length, enforced via
	// XADD MAXLEN ~.
	streamMaxLen int64 = 10000
)

// SignalBus implements domain.SignalBus using Redis Pub/Sub for ephemeral
// delivery and Redis Streams for durable, ordered delivery of detected
// opportunities.
type SignalBus struct {
	rdb *redis.Client
}

// NewSignalBus creates a SignalBus backed by the given Client.
func NewSignalBus(c *Client) *SignalBus {
	return &SignalBus{rdb: c.Underlying()}
}

// PublishOpportunity sends the opportunity to the pub/sub channel. Delivery
// is best effort; subscribers that are not listening miss the message.
func (sb *SignalBus) PublishOpportunity(ctx context.Context, opp domain.ArbitrageOpportunity) error {
	payload, err := json.Marshal(opp)
	if err != nil {
		return fmt.Errorf("redis: encode opportunity %s: %w", opp.ID, err)
	}
	if err := sb.rdb.Publish(ctx, opportunityChannel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish opportunity %s: %w", opp.ID, err)
	}
	return nil
}

// AppendOpportunity appends the opportunity to the durable stream with
// approximate trimming.
func (sb *SignalBus) AppendOpportunity(ctx context.Context, opp domain.ArbitrageOpportunity) error {
	payload, err := json.Marshal(opp)
	if err != nil {
		return fmt.Errorf("redis: encode opportunity %s: %w", opp.ID, err)
	}
	args := &redis.XAddArgs{
		Stream: opportunityStream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"payload": payload,
		},
	}
	if err := sb.rdb.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("redis: stream append opportunity %s: %w", opp.ID, err)
	}
	return nil
}

// ReadOpportunities reads up to count entries from the stream starting after
// lastID. Use "0" to read from the beginning or "$" for new entries only. It
// returns an empty slice (not an error) when nothing is available.
func (sb *SignalBus) ReadOpportunities(ctx context.Context, lastID string, count int) ([]domain.StreamMessage, error) {
	args := &redis.XReadArgs{
		Streams: []string{opportunityStream, lastID},
		Count:   int64(count),
		Block:   5 * time.Second,
	}

	results, err := sb.rdb.XRead(ctx, args).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis: stream read opportunities: %w", err)
	}

	var messages []domain.StreamMessage
	for _, s := range results {
		for _, msg := range s.Messages {
			payload, ok := msg.Values["payload"]
			if !ok {
				continue
			}

			var data []byte
			switch v := payload.(type) {
			case string:
				data = []byte(v)
			case []byte:
				data = v
			default:
				continue
			}

			messages = append(messages, domain.StreamMessage{
				ID:      msg.ID,
				Payload: data,
			})
		}
	}

	return messages, nil
}

// Compile-time interface check.
var _ domain.SignalBus = (*SignalBus)(nil)
