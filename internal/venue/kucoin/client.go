package kucoin

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
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

// VenueName is the stable identifier for KuCoin spot.
const VenueName = "kucoin"

// ClientConfig configures the KuCoin spot connector. Credentials are only
// required for the signed trade-fee endpoint.
type ClientConfig struct {
	BaseURL       string
	APIKey        string
	APISecret     string
	APIPassphrase string

	MakerFeeRate float64
	TakerFeeRate float64

	RequestRateCeiling int
	HTTPTimeout        time.Duration
}

// Client is the KuCoin spot REST connector.
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

// New creates a KuCoin connector.
func New(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.kucoin.com"
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 10 * time.Second
	}
	if cfg.RequestRateCeiling <= 0 {
		cfg.RequestRateCeiling = 10
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

// FetchQuote returns the best bid/ask for pair from the level1 orderbook.
func (c *Client) FetchQuote(ctx context.Context, pair domain.TradingPair) (domain.Quote, error) {
	params := url.Values{}
	params.Set("symbol", symbolFor(pair))

	data, err := c.get(ctx, "/api/v1/market/orderbook/level1", params)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("kucoin: fetch quote %s: %w", pair, err)
	}
	if string(data) == "null" {
		return domain.Quote{}, fmt.Errorf("kucoin: fetch quote %s: %w", pair, domain.ErrPairUnsupported)
	}

	var raw level1Data
	if err := json.Unmarshal(data, &raw); err != nil {
		return domain.Quote{}, fmt.Errorf("kucoin: fetch quote %s: %w: %v", pair, domain.ErrMalformedResponse, err)
	}

	return normalizeLevel1(raw, pair, time.Now())
}

// TickerUniverse returns all symbols with trading enabled.
func (c *Client) TickerUniverse(ctx context.Context) (map[domain.TradingPair]struct{}, error) {
	data, err := c.get(ctx, "/api/v2/symbols", nil)
	if err != nil {
		return nil, fmt.Errorf("kucoin: ticker universe: %w", err)
	}

	var symbols []symbolData
	if err := json.Unmarshal(data, &symbols); err != nil {
		return nil, fmt.Errorf("kucoin: ticker universe: %w: %v", domain.ErrMalformedResponse, err)
	}

	out := make(map[domain.TradingPair]struct{}, len(symbols))
	for _, s := range symbols {
		if !s.EnableTrading || s.BaseCurrency == "" || s.QuoteCurrency == "" {
			continue
		}
		out[domain.NewTradingPair(s.BaseCurrency, s.QuoteCurrency)] = struct{}{}
	}
	return out, nil
}

// RefreshFees pulls the account fee schedule from the signed trade-fees
// endpoint and updates the cached profile. Without credentials the configured
// defaults stay in place.
func (c *Client) RefreshFees(ctx context.Context) error {
	if c.cfg.APIKey == "" || c.cfg.APISecret == "" || c.cfg.APIPassphrase == "" {
		return nil
	}

	endpoint := "/api/v1/trade-fees?symbols=BTC-USDT"
	data, err := c.getSigned(ctx, endpoint)
	if err != nil {
		return fmt.Errorf("kucoin: refresh fees: %w", err)
	}

	var fees []tradeFeeData
	if err := json.Unmarshal(data, &fees); err != nil {
		return fmt.Errorf("kucoin: refresh fees: %w: %v", domain.ErrMalformedResponse, err)
	}
	if len(fees) == 0 {
		return fmt.Errorf("kucoin: refresh fees: %w: empty schedule", domain.ErrMalformedResponse)
	}

	maker, err := parseFeeRate(fees[0].MakerFeeRate)
	if err != nil {
		return fmt.Errorf("kucoin: refresh fees: %w", err)
	}
	taker, err := parseFeeRate(fees[0].TakerFeeRate)
	if err != nil {
		return fmt.Errorf("kucoin: refresh fees: %w", err)
	}

	c.mu.Lock()
	c.profile.MakerFeeRate = maker
	c.profile.TakerFeeRate = taker
	c.mu.Unlock()
	return nil
}

// symbolFor renders the KuCoin wire symbol, e.g. BTC/USDT -> BTC-USDT.
func symbolFor(pair domain.TradingPair) string {
	return pair.Base + "-" + pair.Quote
}

func (c *Client) get(ctx context.Context, path string, params url.Values) (json.RawMessage, error) {
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

// getSigned signs the request per KuCoin API key version 2: HMAC-SHA256 over
// timestamp+method+endpoint, base64-encoded, with an HMAC-signed passphrase.
func (c *Client) getSigned(ctx context.Context, endpoint string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("KC-API-KEY", c.cfg.APIKey)
	req.Header.Set("KC-API-TIMESTAMP", ts)
	req.Header.Set("KC-API-SIGN", signHMAC(c.cfg.APISecret, ts+http.MethodGet+endpoint))
	req.Header.Set("KC-API-PASSPHRASE", signHMAC(c.cfg.APISecret, c.cfg.APIPassphrase))
	req.Header.Set("KC-API-KEY-VERSION", "2")

	return c.do(req)
}

func signHMAC(secret, message string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func (c *Client) do(req *http.Request) (json.RawMessage, error) {
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

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	if env.Code != "200000" {
		return nil, c.classifyAPICode(env)
	}
	return env.Data, nil
}

// classifyAPICode maps KuCoin application-level error codes carried inside a
// 200 envelope onto the domain taxonomy.
func (c *Client) classifyAPICode(env envelope) error {
	switch env.Code {
	case "429000":
		return &domain.RateLimitError{Venue: VenueName, RetryAfter: 30 * time.Second}
	case "400100":
		return fmt.Errorf("%w: %s", domain.ErrPairUnsupported, env.Msg)
	default:
		return fmt.Errorf("%w: code %s: %s", domain.ErrMalformedResponse, env.Code, env.Msg)
	}
}

// checkStatus maps KuCoin HTTP status codes onto the domain error taxonomy.
func (c *Client) checkStatus(resp *http.Response, body []byte) error {
	code := resp.StatusCode
	if code >= 200 && code < 300 {
		return nil
	}

	var env envelope
	_ = json.Unmarshal(body, &env)

	switch {
	case code == http.StatusTooManyRequests:
		return &domain.RateLimitError{
			Venue:      VenueName,
			RetryAfter: retryAfter(resp.Header.Get("Retry-After")),
		}
	case code == http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrPairUnsupported, env.Msg)
	case code >= 500:
		return fmt.Errorf("%w: HTTP %d: %s", domain.ErrUnavailable, code, env.Msg)
	default:
		return fmt.Errorf("%w: HTTP %d: %s", domain.ErrMalformedResponse, code, env.Msg)
	}
}

func retryAfter(header string) time.Duration {
	if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return time.Minute
}
