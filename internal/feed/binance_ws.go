// Package feed mirrors live venue prices into the shared quote cache so the
// monitor surface can serve current data between scan cycles.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/quantrino/spreadscan/internal/domain"
)

const (
	// writeWait bounds a single control-frame write.
	writeWait = 10 * time.Second

	// pongWait is how long a connection may stay silent before it is
	// considered dead; pingPeriod keeps it under that.
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10

	reconnectDelay = 2 * time.Second
)

// bookTickerEvent is one entry of the Binance combined bookTicker stream.
type bookTickerEvent struct {
	Stream string `json:"stream"`
	Data   struct {
		Symbol   string `json:"s"`
		BidPrice string `json:"b"`
		BidQty   string `json:"B"`
		AskPrice string `json:"a"`
		AskQty   string `json:"A"`
	} `json:"data"`
}

// BinanceWSFeed subscribes to the Binance combined bookTicker stream for the
// given pairs and mirrors every update into the quote cache. It reconnects on
// disconnect and runs until the context is cancelled.
type BinanceWSFeed struct {
	wsURL    string
	pairs    map[string]domain.TradingPair
	cache    domain.QuoteCache
	cacheTTL time.Duration
	logger   *slog.Logger
}

// NewBinanceWSFeed creates a feed for the given pairs. wsURL is the combined
// stream root, normally "wss://stream.binance.com:9443".
func NewBinanceWSFeed(wsURL string, pairs []domain.TradingPair, cache domain.QuoteCache, cacheTTL time.Duration, logger *slog.Logger) *BinanceWSFeed {
	bySymbol := make(map[string]domain.TradingPair, len(pairs))
	for _, p := range pairs {
		bySymbol[strings.ToLower(p.Base+p.Quote)] = p
	}
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}
	return &BinanceWSFeed{
		wsURL:    wsURL,
		pairs:    bySymbol,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger.With(slog.String("component", "binance_ws_feed")),
	}
}

// Run connects and consumes updates until ctx is cancelled, reconnecting with
// a fixed delay on disconnect.
func (f *BinanceWSFeed) Run(ctx context.Context) error {
	if len(f.pairs) == 0 {
		f.logger.Info("no pairs to stream, exiting")
		return nil
	}
	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := f.runConnection(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			f.logger.Warn("binance ws disconnected, reconnecting", slog.String("error", err.Error()))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(reconnectDelay):
		}
	}
}

func (f *BinanceWSFeed) runConnection(ctx context.Context) error {
	streams := make([]string, 0, len(f.pairs))
	for sym := range f.pairs {
		streams = append(streams, sym+"@bookTicker")
	}
	endpoint := fmt.Sprintf("%s/stream?streams=%s", f.wsURL, url.QueryEscape(strings.Join(streams, "/")))

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("feed: dial %s: %w", f.wsURL, err)
	}
	defer conn.Close()

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return fmt.Errorf("feed: set read deadline: %w", err)
	}

	f.logger.Info("binance ws subscribed", slog.Int("streams", len(streams)))

	// Close the connection when ctx ends so the read loop unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				_ = conn.Close()
				return
			case <-done:
				return
			case <-ticker.C:
				_ = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			}
		}
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("feed: read: %w", err)
		}
		f.handleMessage(ctx, payload)
	}
}

func (f *BinanceWSFeed) handleMessage(ctx context.Context, payload []byte) {
	var event bookTickerEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		f.logger.Warn("undecodable stream message", slog.String("error", err.Error()))
		return
	}

	symbol, _, _ := strings.Cut(event.Stream, "@")
	pair, ok := f.pairs[symbol]
	if !ok {
		return
	}

	q, err := quoteFromEvent(event, pair)
	if err != nil {
		f.logger.Warn("bad bookTicker update",
			slog.String("pair", pair.String()),
			slog.String("error", err.Error()))
		return
	}

	if err := f.cache.SetQuote(ctx, q, f.cacheTTL); err != nil && ctx.Err() == nil {
		f.logger.Warn("quote cache write failed", slog.String("error", err.Error()))
	}
}

func quoteFromEvent(event bookTickerEvent, pair domain.TradingPair) (domain.Quote, error) {
	parse := func(s string) (float64, error) {
		if s == "" {
			return 0, nil
		}
		return strconv.ParseFloat(s, 64)
	}

	bidPrice, err := parse(event.Data.BidPrice)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("%w: bid price %q", domain.ErrMalformedResponse, event.Data.BidPrice)
	}
	bidSize, err := parse(event.Data.BidQty)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("%w: bid qty %q", domain.ErrMalformedResponse, event.Data.BidQty)
	}
	askPrice, err := parse(event.Data.AskPrice)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("%w: ask price %q", domain.ErrMalformedResponse, event.Data.AskPrice)
	}
	askSize, err := parse(event.Data.AskQty)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("%w: ask qty %q", domain.ErrMalformedResponse, event.Data.AskQty)
	}

	q := domain.Quote{
		Venue:      "binance",
		Pair:       pair,
		BidPrice:   bidPrice,
		BidSize:    bidSize,
		AskPrice:   askPrice,
		AskSize:    askSize,
		CapturedAt: time.Now(),
	}
	if err := q.Validate(); err != nil {
		return domain.Quote{}, err
	}
	return q, nil
}
