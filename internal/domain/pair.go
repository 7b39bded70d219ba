package domain

import (
	"fmt"
	"strings"
)

// TradingPair identifies a market as base/quote asset symbols, e.g. BTC/USDT.
// It is an immutable value; equality and ordering are defined over the symbol
// pair.
type TradingPair struct {
	Base  string
	Quote string
}

// NewTradingPair builds a TradingPair with upper-cased, trimmed symbols.
func NewTradingPair(base, quote string) TradingPair {
	return TradingPair{
		Base:  strings.ToUpper(strings.TrimSpace(base)),
		Quote: strings.ToUpper(strings.TrimSpace(quote)),
	}
}

// ParsePair parses the canonical "BASE/QUOTE" form.
func ParsePair(s string) (TradingPair, error) {
	base, quote, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok || base == "" || quote == "" {
		return TradingPair{}, fmt.Errorf("parse trading pair %q: want BASE/QUOTE", s)
	}
	return NewTradingPair(base, quote), nil
}

// String returns the canonical "BASE/QUOTE" form.
func (p TradingPair) String() string {
	return p.Base + "/" + p.Quote
}

// IsZero reports whether the pair is empty.
func (p TradingPair) IsZero() bool {
	return p.Base == "" && p.Quote == ""
}

// Less orders pairs lexically by base symbol, then quote symbol.
func (p TradingPair) Less(other TradingPair) bool {
	if p.Base != other.Base {
		return p.Base < other.Base
	}
	return p.Quote < other.Quote
}
