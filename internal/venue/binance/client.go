package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/quantrino/spreadscan/internal/domain"
	"github.com/quantrino/spreadscan/internal/venue"
)

// VenueName is the stable identifier for Binance spot.
const VenueName = "binance"

// invalidSymbolCode is Binance's error code for an unknown trading symbol.
const invalidSymbolCode = -1121

// ClientConfig configures the Binance spot connector. APIKey and APISecret are
// only needed for the signed trade-fee endpoint; public market data works
// without them.
type ClientConfig struct {
	BaseURL   string
	APIKey    string
	APISecret string

	// Default fee rates used until RefreshFees succeeds, fractional.
	MakerFeeRate float64
	TakerFeeRate float64

	RequestRateCeiling int
	HTTPTimeout        time.Duration
}

// Client is the Binance spot REST connector.
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client

	mu      sync.RWMutex
	profile domain.VenueProfile
}

var (
	_ venue.Exchange     = (*Client)(nil)
	_ venue.FeeRefresher = (*Client)(nil)
)

// New creates a Binance connector.
func New(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.binance.com"
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 10 * time.Second
	}
	if cfg.RequestRateCeiling <= 0 {
		cfg.RequestRateCeiling = 20
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		profile: domain.VenueProfile{
			Venue:              VenueName,
			MakerFeeRate:       cfg.MakerFeeRate,
			TakerFeeRate:       cfg.TakerFeeRate,
			RequestRateCeiling: cfg.RequestRateCeiling,
		},
	}
}

// Name implements venue.Exchange.
func (c *Client) Name() string { return VenueName }

// Profile implements venue.Exchange.
func (c *Client) Profile() domain.VenueProfile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.profile
}

// FetchQuote returns the best bid/ask for pair from the book ticker endpoint.
func (c *Client) FetchQuote(ctx context.Context, pair domain.TradingPair) (domain.Quote, error) {
	params := url.Values{}
	params.Set("symbol", symbolFor(pair))

	body, err := c.get(ctx, "/api/v3/ticker/bookTicker", params)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("binance: fetch quote %s: %w", pair, err)
	}

	var raw bookTickerResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return domain.Quote{}, fmt.Errorf("binance: fetch quote %s: %w: %v", pair, domain.ErrMalformedResponse, err)
	}

	return normalizeBookTicker(raw, pair, time.Now())
}

// TickerUniverse returns all symbols with status TRADING.
func (c *Client) TickerUniverse(ctx context.Context) (map[domain.TradingPair]struct{}, error) {
	body, err := c.get(ctx, "/api/v3/exchangeInfo", nil)
	if err != nil {
		return nil, fmt.Errorf("binance: ticker universe: %w", err)
	}

	var raw exchangeInfoResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("binance: ticker universe: %w: %v", domain.ErrMalformedResponse, err)
	}

	out := make(map[domain.TradingPair]struct{}, len(raw.Symbols))
	for _, s := range raw.Symbols {
		if s.Status != "TRADING" || s.BaseAsset == "" || s.QuoteAsset == "" {
			continue
		}
		out[domain.NewTradingPair(s.BaseAsset, s.QuoteAsset)] = struct{}{}
	}
	return out, nil
}

// RefreshFees pulls the account trade-fee schedule from the signed SAPI
// endpoint and updates the cached profile. Without credentials the configured
// defaults stay in place and no request is made.
func (c *Client) RefreshFees(ctx context.Context) error {
	if c.cfg.APIKey == "" || c.cfg.APISecret == "" {
		return nil
	}

	params := url.Values{}
	params.Set("symbol", "BTCUSDT")
	body, err := c.getSigned(ctx, "/sapi/v1/asset/tradeFee", params)
	if err != nil {
		return fmt.Errorf("binance: refresh fees: %w", err)
	}

	var fees []tradeFeeEntry
	if err := json.Unmarshal(body, &fees); err != nil {
		return fmt.Errorf("binance: refresh fees: %w: %v", domain.ErrMalformedResponse, err)
	}
	if len(fees) == 0 {
		return fmt.Errorf("binance: refresh fees: %w: empty schedule", domain.ErrMalformedResponse)
	}

	maker, err := parseFeeRate(fees[0].MakerCommission)
	if err != nil {
		return fmt.Errorf("binance: refresh fees: %w", err)
	}
	taker, err := parseFeeRate(fees[0].TakerCommission)
	if err != nil {
		return fmt.Errorf("binance: refresh fees: %w", err)
	}

	c.mu.Lock()
	c.profile.MakerFeeRate = maker
	c.profile.TakerFeeRate = taker
	c.mu.Unlock()
	return nil
}

// symbolFor renders the Binance wire symbol, e.g. BTC/USDT -> BTCUSDT.
func symbolFor(pair domain.TradingPair) string {
	return pair.Base + pair.Quote
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	fullURL := c.cfg.BaseURL + path
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	return c.do(req)
}

// getSigned appends a timestamp and an HMAC-SHA256 signature over the query
// string, as the SAPI endpoints require.
func (c *Client) getSigned(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	params.Set("recvWindow", "5000")

	query := params.Encode()
	mac := hmac.New(sha256.New, []byte(c.cfg.APISecret))
	mac.Write([]byte(query))
	query += "&signature=" + hex.EncodeToString(mac.Sum(nil))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path+"?"+query, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-MBX-APIKEY", c.cfg.APIKey)

	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", domain.ErrUnavailable, err)
	}

	if err := c.checkStatus(resp, body); err != nil {
		return nil, err
	}
	return body, nil
}

// checkStatus maps Binance HTTP status codes onto the domain error taxonomy.
// Binance signals an IP ban with 418 in addition to the usual 429.
func (c *Client) checkStatus(resp *http.Response, body []byte) error {
	code := resp.StatusCode
	if code >= 200 && code < 300 {
		return nil
	}

	var apiErr apiError
	_ = json.Unmarshal(body, &apiErr)

	switch {
	case code == http.StatusTooManyRequests || code == 418:
		return &domain.RateLimitError{
			Venue:      VenueName,
			RetryAfter: retryAfter(resp.Header.Get("Retry-After")),
		}
	case code == http.StatusBadRequest && apiErr.Code == invalidSymbolCode:
		return fmt.Errorf("%w: %s", domain.ErrPairUnsupported, apiErr.Msg)
	case code >= 500:
		return fmt.Errorf("%w: HTTP %d: %s", domain.ErrUnavailable, code, apiErr.Msg)
	default:
		return fmt.Errorf("%w: HTTP %d: %s", domain.ErrMalformedResponse, code, apiErr.Msg)
	}
}

// retryAfter parses a Retry-After seconds header, defaulting to a minute when
// the venue gives no hint.
func retryAfter(header string) time.Duration {
	if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return time.Minute
}
