package cmarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/quantrino/spreadscan/internal/domain"
)

// Client is the REST client for the market-cap ranking service. It speaks the
// CoinMarketCap listings API shape.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// ClientConfig configures the ranking client.
type ClientConfig struct {
	BaseURL     string
	APIKey      string
	HTTPTimeout time.Duration
}

// New creates a ranking client.
func New(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://pro-api.coinmarketcap.com"
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 15 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
	}
}

type listingsResponse struct {
	Status struct {
		ErrorCode    int    `json:"error_code"`
		ErrorMessage string `json:"error_message"`
	} `json:"status"`
	Data []struct {
		Symbol string `json:"symbol"`
		Rank   int    `json:"cmc_rank"`
	} `json:"data"`
}

// RankedAssets returns asset symbols ranked by market capitalization for the
// inclusive rank range [startRank, endRank], in rank order.
func (c *Client) RankedAssets(ctx context.Context, startRank, endRank int) ([]string, error) {
	if startRank < 1 || endRank < startRank {
		return nil, fmt.Errorf("cmarket: bad rank range [%d, %d]", startRank, endRank)
	}

	params := url.Values{}
	params.Set("start", strconv.Itoa(startRank))
	params.Set("limit", strconv.Itoa(endRank-startRank+1))
	params.Set("sort", "market_cap")

	fullURL := c.baseURL + "/v1/cryptocurrency/listings/latest?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("cmarket: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-CMC_PRO_API_KEY", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cmarket: %w: %v", domain.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("cmarket: %w: read response: %v", domain.ErrUnavailable, err)
	}
	if err := c.checkStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}

	var raw listingsResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("cmarket: %w: %v", domain.ErrMalformedResponse, err)
	}
	if raw.Status.ErrorCode != 0 {
		return nil, fmt.Errorf("cmarket: %w: %s", domain.ErrUnavailable, raw.Status.ErrorMessage)
	}

	symbols := make([]string, 0, len(raw.Data))
	for _, entry := range raw.Data {
		if entry.Symbol == "" {
			continue
		}
		symbols = append(symbols, entry.Symbol)
	}
	return symbols, nil
}

func (c *Client) checkStatus(code int, body []byte) error {
	if code >= 200 && code < 300 {
		return nil
	}

	var raw listingsResponse
	_ = json.Unmarshal(body, &raw)

	switch {
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("cmarket: %w: %s", domain.ErrRateLimited, raw.Status.ErrorMessage)
	case code >= 500:
		return fmt.Errorf("cmarket: %w: HTTP %d", domain.ErrUnavailable, code)
	default:
		return fmt.Errorf("cmarket: %w: HTTP %d: %s", domain.ErrMalformedResponse, code, raw.Status.ErrorMessage)
	}
}
