package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnavailable marks transient venue faults: network errors, timeouts,
	// 5xx responses. The pair is simply absent this cycle; retry next cycle.
	ErrUnavailable = errors.New("venue unavailable")

	// ErrRateLimited marks an explicit throttling signal from a venue. The
	// venue enters a client-side cooldown.
	ErrRateLimited = errors.New("venue rate limited")

	// ErrMalformedResponse marks a payload the normalizer could not map.
	// Callers treat it like ErrUnavailable but it is logged distinctly.
	ErrMalformedResponse = errors.New("malformed venue response")

	ErrNotFound        = errors.New("not found")
	ErrPairUnsupported = errors.New("pair not supported by venue")
)

// RateLimitError wraps ErrRateLimited with the venue's retry-after hint.
type RateLimitError struct {
	Venue      string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: rate limited, retry after %s", e.Venue, e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }
