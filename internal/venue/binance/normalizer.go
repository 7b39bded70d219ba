package binance

import (
	"fmt"
	"strconv"
	"time"

	"github.com/quantrino/spreadscan/internal/domain"
)

// normalizeBookTicker maps a Binance book ticker payload onto a domain.Quote.
// It is pure: no I/O, no clock reads beyond the capturedAt argument. Sizes are
// already denominated in the base asset on Binance.
func normalizeBookTicker(raw bookTickerResponse, pair domain.TradingPair, capturedAt time.Time) (domain.Quote, error) {
	if raw.Symbol == "" {
		return domain.Quote{}, fmt.Errorf("binance: %w: empty symbol", domain.ErrMalformedResponse)
	}

	bidPrice, err := parseSide(raw.BidPrice, "bidPrice")
	if err != nil {
		return domain.Quote{}, err
	}
	askPrice, err := parseSide(raw.AskPrice, "askPrice")
	if err != nil {
		return domain.Quote{}, err
	}
	bidSize, err := parseSide(raw.BidQty, "bidQty")
	if err != nil {
		return domain.Quote{}, err
	}
	askSize, err := parseSide(raw.AskQty, "askQty")
	if err != nil {
		return domain.Quote{}, err
	}

	q := domain.Quote{
		Venue:      VenueName,
		Pair:       pair,
		BidPrice:   bidPrice,
		BidSize:    bidSize,
		AskPrice:   askPrice,
		AskSize:    askSize,
		CapturedAt: capturedAt,
	}
	if err := q.Validate(); err != nil {
		return domain.Quote{}, err
	}
	return q, nil
}

// parseSide parses one numeric string field. Binance reports an absent side as
// "0", which maps onto the domain's one-sided quote convention unchanged.
func parseSide(s, field string) (float64, error) {
	if s == "" {
		return 0, fmt.Errorf("binance: %w: missing %s", domain.ErrMalformedResponse, field)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("binance: %w: %s %q not numeric", domain.ErrMalformedResponse, field, s)
	}
	if v < 0 {
		return 0, fmt.Errorf("binance: %w: negative %s %q", domain.ErrMalformedResponse, field, s)
	}
	return v, nil
}

// parseFeeRate parses a fractional commission string such as "0.001".
func parseFeeRate(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || v >= 1 {
		return 0, fmt.Errorf("binance: %w: bad fee rate %q", domain.ErrMalformedResponse, s)
	}
	return v, nil
}
