package generic

import (
	"errors"
	"testing"
	"time"

	"github.com/quantrino/spreadscan/internal/domain"
)

func testDescriptor() Descriptor {
	return Descriptor{
		Name:          "okx",
		BaseURL:       "https://example.test",
		TickerPath:    "/ticker?symbol={symbol}",
		BidPriceField: "data.bidPx",
		BidSizeField:  "data.bidSz",
		AskPriceField: "data.askPx",
		AskSizeField:  "data.askSz",
		TakerFeeRate:  0.001,
	}
}

func TestNormalizeTickerNestedPaths(t *testing.T) {
	d := testDescriptor()
	pair := domain.NewTradingPair("SOL", "USDT")
	doc := map[string]any{
		"data": map[string]any{
			"bidPx": "151.20",
			"bidSz": float64(40),
			"askPx": "151.35",
			"askSz": "25.5",
		},
	}
	q, err := normalizeTicker(d, doc, pair, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Venue != "okx" {
		t.Errorf("Venue = %q", q.Venue)
	}
	if q.BidPrice != 151.20 || q.BidSize != 40 {
		t.Errorf("bid = %v @ %v", q.BidSize, q.BidPrice)
	}
	if q.AskPrice != 151.35 || q.AskSize != 25.5 {
		t.Errorf("ask = %v @ %v", q.AskSize, q.AskPrice)
	}
}

func TestNormalizeTickerQuoteSizes(t *testing.T) {
	d := testDescriptor()
	d.SizesInQuote = true
	pair := domain.NewTradingPair("BTC", "USDT")
	doc := map[string]any{
		"data": map[string]any{
			"bidPx": float64(50000),
			"bidSz": float64(100000), // 100k USDT of depth = 2 BTC
			"askPx": float64(50100),
			"askSz": float64(50100), // 1 BTC
		},
	}
	q, err := normalizeTicker(d, doc, pair, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.BidSize != 2 {
		t.Errorf("BidSize = %v, want 2", q.BidSize)
	}
	if q.AskSize != 1 {
		t.Errorf("AskSize = %v, want 1", q.AskSize)
	}
}

func TestNormalizeTickerMissingField(t *testing.T) {
	d := testDescriptor()
	pair := domain.NewTradingPair("SOL", "USDT")
	doc := map[string]any{
		"data": map[string]any{
			"bidPx": "151.20",
			"bidSz": "40",
			"askSz": "25.5",
		},
	}
	_, err := normalizeTicker(d, doc, pair, time.Now())
	if !errors.Is(err, domain.ErrMalformedResponse) {
		t.Fatalf("error = %v, want ErrMalformedResponse", err)
	}
}

func TestDescriptorSymbolFor(t *testing.T) {
	d := Descriptor{SymbolTemplate: "{base}-{quote}"}
	if got := d.symbolFor("BTC", "USDT"); got != "BTC-USDT" {
		t.Errorf("symbolFor = %q", got)
	}
	d.SymbolTemplate = ""
	if got := d.symbolFor("BTC", "USDT"); got != "BTCUSDT" {
		t.Errorf("default symbolFor = %q", got)
	}
}

func TestDescriptorValidate(t *testing.T) {
	d := Descriptor{}
	err := d.Validate()
	if err == nil {
		t.Fatal("empty descriptor should fail validation")
	}

	d = testDescriptor()
	if err := d.Validate(); err != nil {
		t.Fatalf("valid descriptor rejected: %v", err)
	}

	d.TickerPath = "/ticker"
	if err := d.Validate(); err == nil {
		t.Error("ticker_path without {symbol} should fail")
	}
}
