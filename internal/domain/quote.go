package domain

import (
	"fmt"
	"time"
)

// Quote is the best bid/ask for one trading pair on one venue at one instant.
// Prices are in quote currency, sizes in base currency. CapturedAt is the
// local capture time, not the venue's own timestamp, so staleness can be
// bounded without trusting venue clocks.
//
// A quote may be one-sided: a side with price <= 0 is absent and must be
// excluded from spread computation on that side.
type Quote struct {
	Venue      string
	Pair       TradingPair
	BidPrice   float64
	BidSize    float64
	AskPrice   float64
	AskSize    float64
	CapturedAt time.Time

	// FeeRef optionally names the VenueProfile whose fee schedule applies to
	// this quote. Empty means the venue's default profile.
	FeeRef string
}

// HasBid reports whether the bid side is present.
func (q Quote) HasBid() bool { return q.BidPrice > 0 }

// HasAsk reports whether the ask side is present.
func (q Quote) HasAsk() bool { return q.AskPrice > 0 }

// Validate checks quote consistency. A crossed quote (bid above ask with both
// sides present) is rejected so it never reaches the scanner.
func (q Quote) Validate() error {
	if q.Venue == "" {
		return fmt.Errorf("quote %s: %w: missing venue", q.Pair, ErrMalformedResponse)
	}
	if q.Pair.IsZero() {
		return fmt.Errorf("quote from %s: %w: missing trading pair", q.Venue, ErrMalformedResponse)
	}
	if !q.HasBid() && !q.HasAsk() {
		return fmt.Errorf("quote %s %s: %w: no sides present", q.Venue, q.Pair, ErrMalformedResponse)
	}
	if q.HasBid() && q.HasAsk() && q.BidPrice > q.AskPrice {
		return fmt.Errorf("quote %s %s: %w: crossed book bid=%v ask=%v",
			q.Venue, q.Pair, ErrMalformedResponse, q.BidPrice, q.AskPrice)
	}
	return nil
}

// VenueProfile carries static per-venue trading metadata. It is created at
// configuration load and immutable for the process lifetime; fee rates are
// fractional (0.001 = 0.1%).
type VenueProfile struct {
	Venue        string
	MakerFeeRate float64
	TakerFeeRate float64

	// WithdrawalFees maps asset symbol to the flat withdrawal fee in units of
	// that asset. Informational only; it is never folded into net profit.
	WithdrawalFees map[string]float64

	// RequestRateCeiling is the venue's advertised request budget in requests
	// per second. The orchestrator must stay under it client-side.
	RequestRateCeiling int
}

// TakerFeePct returns the taker fee as a percentage (0.1 for a 0.001 rate).
func (v VenueProfile) TakerFeePct() float64 { return v.TakerFeeRate * 100 }
