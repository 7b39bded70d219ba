package generic

import (
	"fmt"
	"strings"
	"time"
)

// Descriptor declares how to speak to a REST venue that follows the common
// ticker-endpoint shape, without a purpose-built connector. All field
// references are dot paths into the JSON document ("data.bestBid").
type Descriptor struct {
	Name    string
	BaseURL string

	// SymbolTemplate renders the venue's wire symbol from a pair, using
	// {base} and {quote} placeholders. Defaults to "{base}{quote}".
	SymbolTemplate string

	// TickerPath is the quote endpoint with a {symbol} placeholder, e.g.
	// "/api/v1/ticker?symbol={symbol}".
	TickerPath string

	BidPriceField string
	BidSizeField  string
	AskPriceField string
	AskSizeField  string

	// SizesInQuote marks venues that report depth in quote currency. The
	// normalizer divides by the side's price to get base-asset sizes.
	SizesInQuote bool

	// UniversePath lists tradable symbols; UniverseListField points at the
	// array, the base/quote fields at the asset symbols within each entry.
	UniversePath       string
	UniverseListField  string
	UniverseBaseField  string
	UniverseQuoteField string

	MakerFeeRate       float64
	TakerFeeRate       float64
	RequestRateCeiling int
	HTTPTimeout        time.Duration
}

// Validate reports every problem with the descriptor at once.
func (d Descriptor) Validate() error {
	var problems []string
	if d.Name == "" {
		problems = append(problems, "name is required")
	}
	if d.BaseURL == "" {
		problems = append(problems, "base_url is required")
	}
	if d.TickerPath == "" {
		problems = append(problems, "ticker_path is required")
	} else if !strings.Contains(d.TickerPath, "{symbol}") {
		problems = append(problems, "ticker_path must contain {symbol}")
	}
	if d.BidPriceField == "" || d.AskPriceField == "" {
		problems = append(problems, "bid_price_field and ask_price_field are required")
	}
	if d.UniversePath != "" && (d.UniverseBaseField == "" || d.UniverseQuoteField == "") {
		problems = append(problems, "universe base/quote fields are required when universe_path is set")
	}
	if d.TakerFeeRate < 0 || d.TakerFeeRate >= 1 {
		problems = append(problems, "taker_fee_rate must be in [0, 1)")
	}
	if len(problems) > 0 {
		return fmt.Errorf("generic venue %q: %s", d.Name, strings.Join(problems, "; "))
	}
	return nil
}

// symbolFor renders the wire symbol for pair.
func (d Descriptor) symbolFor(base, quote string) string {
	tmpl := d.SymbolTemplate
	if tmpl == "" {
		tmpl = "{base}{quote}"
	}
	s := strings.ReplaceAll(tmpl, "{base}", base)
	return strings.ReplaceAll(s, "{quote}", quote)
}
