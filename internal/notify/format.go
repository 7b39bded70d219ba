package notify

import (
	"fmt"

	"github.com/quantrino/spreadscan/internal/domain"
)

// FormatOpportunity renders an opportunity as a notification title and body.
func FormatOpportunity(opp domain.ArbitrageOpportunity) (title, message string) {
	title = fmt.Sprintf("Arb %s: buy %s / sell %s (+%.2f%%)",
		opp.Pair, opp.BuyVenue, opp.SellVenue, opp.NetProfitPct)

	message = fmt.Sprintf(
		"buy %.8g @ %s, sell %.8g @ %s\ngross %.2f%%, fees %.2f%%+%.2f%%, slippage %.2f%%\nsize %.6g %s, est. profit %.2f %s",
		opp.BuyPrice, opp.BuyVenue,
		opp.SellPrice, opp.SellVenue,
		opp.GrossSpreadPct, opp.BuyFeePct, opp.SellFeePct, opp.SlippagePct,
		opp.RealizableSize, opp.Pair.Base,
		opp.EstimatedProfit, opp.Pair.Quote,
	)
	return title, message
}
