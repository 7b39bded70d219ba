package generic

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/quantrino/spreadscan/internal/domain"
)

// normalizeTicker maps a decoded JSON document onto a domain.Quote using the
// descriptor's field paths. Pure; no I/O.
func normalizeTicker(d Descriptor, doc map[string]any, pair domain.TradingPair, capturedAt time.Time) (domain.Quote, error) {
	bidPrice, err := numberAt(d, doc, d.BidPriceField, false)
	if err != nil {
		return domain.Quote{}, err
	}
	askPrice, err := numberAt(d, doc, d.AskPriceField, false)
	if err != nil {
		return domain.Quote{}, err
	}

	// Size fields are optional in the descriptor; venues without depth report
	// a zero size and the scanner treats the quote as unsizeable.
	var bidSize, askSize float64
	if d.BidSizeField != "" {
		if bidSize, err = numberAt(d, doc, d.BidSizeField, true); err != nil {
			return domain.Quote{}, err
		}
	}
	if d.AskSizeField != "" {
		if askSize, err = numberAt(d, doc, d.AskSizeField, true); err != nil {
			return domain.Quote{}, err
		}
	}

	if d.SizesInQuote {
		if bidPrice > 0 {
			bidSize /= bidPrice
		}
		if askPrice > 0 {
			askSize /= askPrice
		}
	}

	q := domain.Quote{
		Venue:      d.Name,
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

// numberAt resolves a dot path and coerces the value to float64. JSON numbers
// arrive as float64, most exchange APIs send numerics as strings; both are
// accepted.
func numberAt(d Descriptor, doc map[string]any, path string, optional bool) (float64, error) {
	v, ok := lookup(doc, path)
	if !ok || v == nil {
		if optional {
			return 0, nil
		}
		return 0, fmt.Errorf("%s: %w: missing field %q", d.Name, domain.ErrMalformedResponse, path)
	}

	switch n := v.(type) {
	case float64:
		if n < 0 {
			return 0, fmt.Errorf("%s: %w: negative %q", d.Name, domain.ErrMalformedResponse, path)
		}
		return n, nil
	case string:
		if n == "" {
			if optional {
				return 0, nil
			}
			return 0, fmt.Errorf("%s: %w: empty field %q", d.Name, domain.ErrMalformedResponse, path)
		}
		f, err := strconv.ParseFloat(n, 64)
		if err != nil || f < 0 {
			return 0, fmt.Errorf("%s: %w: field %q value %q", d.Name, domain.ErrMalformedResponse, path, n)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%s: %w: field %q has type %T", d.Name, domain.ErrMalformedResponse, path, v)
	}
}

// lookup walks a dot path through nested JSON objects.
func lookup(doc map[string]any, path string) (any, bool) {
	parts := strings.Split(path, ".")
	var cur any = doc
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// stringAt resolves a dot path to a string field.
func stringAt(doc map[string]any, path string) (string, bool) {
	v, ok := lookup(doc, path)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
