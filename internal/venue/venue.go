package venue

import (
	"context"

	"github.com/quantrino/spreadscan/internal/domain"
)

// Exchange is the facade every venue connector implements. Implementations
// classify all faults into the domain error taxonomy (ErrUnavailable,
// ErrRateLimited, ErrMalformedResponse, ErrPairUnsupported), never retry
// internally, and never let a panic escape. The orchestrator owns retries,
// cooldowns, and deadlines.
type Exchange interface {
	// Name returns the stable venue identifier used in quotes and logs.
	Name() string

	// FetchQuote returns the current best bid/ask for pair.
	FetchQuote(ctx context.Context, pair domain.TradingPair) (domain.Quote, error)

	// TickerUniverse returns the pairs currently tradable on the venue.
	TickerUniverse(ctx context.Context) (map[domain.TradingPair]struct{}, error)

	// Profile returns the venue's trading metadata. It must be cheap; fee
	// refresh happens out of band via FeeRefresher.
	Profile() domain.VenueProfile
}

// FeeRefresher is implemented by venues that can pull their live fee schedule.
// The app refreshes fees at startup and on an hourly tick; venues without
// credentials keep their configured defaults.
type FeeRefresher interface {
	RefreshFees(ctx context.Context) error
}
