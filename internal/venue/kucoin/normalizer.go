package kucoin

import (
	"fmt"
	"strconv"
	"time"

	"github.com/quantrino/spreadscan/internal/domain"
)

// normalizeLevel1 maps a KuCoin level1 orderbook payload onto a domain.Quote.
// KuCoin omits a side entirely (empty string) when the book is one-sided, and
// sizes are denominated in the base asset.
func normalizeLevel1(raw level1Data, pair domain.TradingPair, capturedAt time.Time) (domain.Quote, error) {
	if raw.Time == 0 {
		return domain.Quote{}, fmt.Errorf("kucoin: %w: missing timestamp", domain.ErrMalformedResponse)
	}

	bidPrice, err := parseOptional(raw.BestBid, "bestBid")
	if err != nil {
		return domain.Quote{}, err
	}
	bidSize, err := parseOptional(raw.BestBidSize, "bestBidSize")
	if err != nil {
		return domain.Quote{}, err
	}
	askPrice, err := parseOptional(raw.BestAsk, "bestAsk")
	if err != nil {
		return domain.Quote{}, err
	}
	askSize, err := parseOptional(raw.BestAskSize, "bestAskSize")
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

// parseOptional parses a numeric field that KuCoin may leave empty for an
// absent side. Empty maps to zero, which the domain treats as side-absent.
func parseOptional(s, field string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("kucoin: %w: %s %q not numeric", domain.ErrMalformedResponse, field, s)
	}
	if v < 0 {
		return 0, fmt.Errorf("kucoin: %w: negative %s %q", domain.ErrMalformedResponse, field, s)
	}
	return v, nil
}

func parseFeeRate(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || v >= 1 {
		return 0, fmt.Errorf("kucoin: %w: bad fee rate %q", domain.ErrMalformedResponse, s)
	}
	return v, nil
}
