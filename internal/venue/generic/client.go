package generic

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/quantrino/spreadscan/internal/domain"
	"github.com/quantrino/spreadscan/internal/venue"
)

// Client is a descriptor-driven REST connector for venues declared entirely
// in configuration. Fees come from the descriptor and are never refreshed.
type Client struct {
	desc       Descriptor
	httpClient *http.Client
	profile    domain.VenueProfile
}

var _ venue.Exchange = (*Client)(nil)

// New creates a connector from a validated descriptor.
func New(desc Descriptor) (*Client, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	timeout := desc.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ceiling := desc.RequestRateCeiling
	if ceiling <= 0 {
		ceiling = 5
	}
	return &Client{
		desc:       desc,
		httpClient: &http.Client{Timeout: timeout},
		profile: domain.VenueProfile{
			Venue:              desc.Name,
			MakerFeeRate:       desc.MakerFeeRate,
			TakerFeeRate:       desc.TakerFeeRate,
			RequestRateCeiling: ceiling,
		},
	}, nil
}

// Name implements venue.Exchange.
func (c *Client) Name() string { return c.desc.Name }

// Profile implements venue.Exchange.
func (c *Client) Profile() domain.VenueProfile { return c.profile }

// FetchQuote renders the ticker path for pair and normalizes the response
// through the descriptor's field paths.
func (c *Client) FetchQuote(ctx context.Context, pair domain.TradingPair) (domain.Quote, error) {
	path := strings.ReplaceAll(c.desc.TickerPath, "{symbol}", c.desc.symbolFor(pair.Base, pair.Quote))

	doc, err := c.get(ctx, path)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("%s: fetch quote %s: %w", c.desc.Name, pair, err)
	}

	return normalizeTicker(c.desc, doc, pair, time.Now())
}

// TickerUniverse lists tradable pairs via the descriptor's universe endpoint.
// Descriptors without one return ErrPairUnsupported so the universe resolver
// falls back to treating the configured pairs as the venue's universe.
func (c *Client) TickerUniverse(ctx context.Context) (map[domain.TradingPair]struct{}, error) {
	if c.desc.UniversePath == "" {
		return nil, fmt.Errorf("%s: ticker universe: %w", c.desc.Name, domain.ErrPairUnsupported)
	}

	doc, err := c.get(ctx, c.desc.UniversePath)
	if err != nil {
		return nil, fmt.Errorf("%s: ticker universe: %w", c.desc.Name, err)
	}

	var list any = any(doc)
	if c.desc.UniverseListField != "" {
		v, ok := lookup(doc, c.desc.UniverseListField)
		if !ok {
			return nil, fmt.Errorf("%s: ticker universe: %w: missing list %q",
				c.desc.Name, domain.ErrMalformedResponse, c.desc.UniverseListField)
		}
		list = v
	}
	entries, ok := list.([]any)
	if !ok {
		return nil, fmt.Errorf("%s: ticker universe: %w: list is %T", c.desc.Name, domain.ErrMalformedResponse, list)
	}

	out := make(map[domain.TradingPair]struct{}, len(entries))
	for _, e := range entries {
		obj, ok := e.(map[string]any)
		if !ok {
			continue
		}
		base, okB := stringAt(obj, c.desc.UniverseBaseField)
		quote, okQ := stringAt(obj, c.desc.UniverseQuoteField)
		if !okB || !okQ || base == "" || quote == "" {
			continue
		}
		out[domain.NewTradingPair(base, quote)] = struct{}{}
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.desc.BaseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", domain.ErrUnavailable, err)
	}

	if err := c.checkStatus(resp); err != nil {
		return nil, err
	}

	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	return doc, nil
}

// checkStatus maps HTTP status codes onto the domain error taxonomy.
func (c *Client) checkStatus(resp *http.Response) error {
	code := resp.StatusCode
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusTooManyRequests:
		return &domain.RateLimitError{
			Venue:      c.desc.Name,
			RetryAfter: retryAfter(resp.Header.Get("Retry-After")),
		}
	case code == http.StatusNotFound:
		return domain.ErrPairUnsupported
	case code >= 500:
		return fmt.Errorf("%w: HTTP %d", domain.ErrUnavailable, code)
	default:
		return fmt.Errorf("%w: HTTP %d", domain.ErrMalformedResponse, code)
	}
}

func retryAfter(header string) time.Duration {
	if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return time.Minute
}
