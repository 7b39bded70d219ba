package domain

import "time"

// ArbitrageOpportunity is one profitable buy-on-A, sell-on-B observation for a
// single pair in a single snapshot. All percentages are in percent units
// (1.1 means 1.1%), prices in quote currency, sizes in base currency.
type ArbitrageOpportunity struct {
	ID        string
	Cycle     uint64
	Pair      TradingPair
	BuyVenue  string
	SellVenue string

	BuyPrice  float64
	SellPrice float64

	GrossSpreadPct float64
	BuyFeePct      float64
	SellFeePct     float64
	SlippagePct    float64
	NetProfitPct   float64

	// RealizableSize is the base-asset quantity executable at the quoted
	// prices: the smaller of the buy-side ask size, the sell-side bid size,
	// and the configured capital divided by the buy price.
	RealizableSize float64

	// EstimatedProfit is the quote-currency profit over RealizableSize at the
	// net rate.
	EstimatedProfit float64

	// BuyWithdrawalFee is the flat base-asset withdrawal fee on the buy venue,
	// when known. Informational; not part of NetProfitPct.
	BuyWithdrawalFee float64

	DetectedAt time.Time
}
