package feed

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/quantrino/spreadscan/internal/domain"
)

func TestQuoteFromEvent(t *testing.T) {
	payload := []byte(`{"stream":"btcusdt@bookTicker","data":{"u":400900217,"s":"BTCUSDT","b":"64250.10","B":"1.5","a":"64251.90","A":"0.75"}}`)

	var event bookTickerEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		t.Fatalf("decode: %v", err)
	}

	pair := domain.NewTradingPair("BTC", "USDT")
	q, err := quoteFromEvent(event, pair)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Venue != "binance" || q.Pair != pair {
		t.Errorf("identity = %s %s", q.Venue, q.Pair)
	}
	if q.BidPrice != 64250.10 || q.BidSize != 1.5 || q.AskPrice != 64251.90 || q.AskSize != 0.75 {
		t.Errorf("quote = %+v", q)
	}
}

func TestQuoteFromEventRejectsGarbage(t *testing.T) {
	var event bookTickerEvent
	event.Data.BidPrice = "not-a-number"
	event.Data.AskPrice = "1"

	_, err := quoteFromEvent(event, domain.NewTradingPair("BTC", "USDT"))
	if !errors.Is(err, domain.ErrMalformedResponse) {
		t.Fatalf("error = %v, want ErrMalformedResponse", err)
	}
}
