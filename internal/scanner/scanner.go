package scanner

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/quantrino/spreadscan/internal/domain"
)

// opportunityNamespace seeds deterministic opportunity IDs. Re-scanning the
// same snapshot yields byte-identical records, so downstream stores can
// deduplicate on ID.
var opportunityNamespace = uuid.MustParse("7b1dca18-64dd-4c0f-9bb2-3a1f0a6e2d91")

// Config tunes the profitability filters.
type Config struct {
	// MinProfitPct is the net profit floor in percent. Opportunities below it
	// are discarded.
	MinProfitPct float64

	// MaxProfitPct is the anomaly ceiling in percent. A net profit above it
	// almost always means a stale or broken quote; such opportunities are
	// dropped and logged. Zero disables the ceiling.
	MaxProfitPct float64

	// SlippagePct is the global slippage ceiling subtracted from every gross
	// spread, in percent.
	SlippagePct float64

	// InitialCapital caps position sizing, in quote currency. Zero means
	// sizing is bounded by book depth alone.
	InitialCapital float64
}

// Scanner turns market snapshots into ranked arbitrage opportunities.
type Scanner struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a scanner.
func New(cfg Config, logger *slog.Logger) *Scanner {
	return &Scanner{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "scanner")),
	}
}

// Scan evaluates every ordered venue pair for every pair in the snapshot.
// profiles supplies the current fee schedule per venue; a venue missing from
// it contributes no opportunities. The result is deterministically ordered:
// net profit descending, realizable size descending, then pair lexical.
func (s *Scanner) Scan(snap domain.MarketSnapshot, profiles map[string]domain.VenueProfile) []domain.ArbitrageOpportunity {
	pairs := snap.Pairs()
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Less(pairs[j]) })

	venues := snap.Venues()
	sort.Strings(venues)

	var out []domain.ArbitrageOpportunity
	for _, pair := range pairs {
		for _, buyVenue := range venues {
			for _, sellVenue := range venues {
				if buyVenue == sellVenue {
					continue
				}
				opp, ok := s.evaluate(snap, pair, buyVenue, sellVenue, profiles)
				if ok {
					out = append(out, opp)
				}
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.NetProfitPct != b.NetProfitPct {
			return a.NetProfitPct > b.NetProfitPct
		}
		if a.RealizableSize != b.RealizableSize {
			return a.RealizableSize > b.RealizableSize
		}
		if a.Pair != b.Pair {
			return a.Pair.Less(b.Pair)
		}
		if a.BuyVenue != b.BuyVenue {
			return a.BuyVenue < b.BuyVenue
		}
		return a.SellVenue < b.SellVenue
	})
	return out
}

// evaluate prices one directed buy/sell leg pair.
func (s *Scanner) evaluate(snap domain.MarketSnapshot, pair domain.TradingPair, buyVenue, sellVenue string, profiles map[string]domain.VenueProfile) (domain.ArbitrageOpportunity, bool) {
	buyQuote, ok := snap.Quote(buyVenue, pair)
	if !ok || !buyQuote.HasAsk() {
		return domain.ArbitrageOpportunity{}, false
	}
	sellQuote, ok := snap.Quote(sellVenue, pair)
	if !ok || !sellQuote.HasBid() {
		return domain.ArbitrageOpportunity{}, false
	}

	buyProfile, ok := profiles[buyVenue]
	if !ok {
		return domain.ArbitrageOpportunity{}, false
	}
	sellProfile, ok := profiles[sellVenue]
	if !ok {
		return domain.ArbitrageOpportunity{}, false
	}

	buyPrice := buyQuote.AskPrice
	sellPrice := sellQuote.BidPrice

	grossPct := (sellPrice - buyPrice) / buyPrice * 100
	if grossPct <= 0 {
		return domain.ArbitrageOpportunity{}, false
	}

	buyFeePct := buyProfile.TakerFeePct()
	sellFeePct := sellProfile.TakerFeePct()
	netPct := grossPct - buyFeePct - sellFeePct - s.cfg.SlippagePct

	if netPct < s.cfg.MinProfitPct {
		return domain.ArbitrageOpportunity{}, false
	}
	if s.cfg.MaxProfitPct > 0 && netPct > s.cfg.MaxProfitPct {
		s.logger.Warn("suspicious spread dropped",
			slog.String("pair", pair.String()),
			slog.String("buy_venue", buyVenue),
			slog.String("sell_venue", sellVenue),
			slog.Float64("net_pct", netPct))
		return domain.ArbitrageOpportunity{}, false
	}

	size := realizableSize(buyQuote, sellQuote, s.cfg.InitialCapital)

	opp := domain.ArbitrageOpportunity{
		ID:               opportunityID(snap.Cycle(), pair, buyVenue, sellVenue),
		Cycle:            snap.Cycle(),
		Pair:             pair,
		BuyVenue:         buyVenue,
		SellVenue:        sellVenue,
		BuyPrice:         buyPrice,
		SellPrice:        sellPrice,
		GrossSpreadPct:   grossPct,
		BuyFeePct:        buyFeePct,
		SellFeePct:       sellFeePct,
		SlippagePct:      s.cfg.SlippagePct,
		NetProfitPct:     netPct,
		RealizableSize:   size,
		EstimatedProfit:  size * buyPrice * netPct / 100,
		BuyWithdrawalFee: buyProfile.WithdrawalFees[pair.Base],
		DetectedAt:       snap.StartedAt(),
	}
	return opp, true
}

// realizableSize is the base-asset quantity executable at the quoted prices:
// bounded by depth on both legs and by the configured capital.
func realizableSize(buy, sell domain.Quote, capital float64) float64 {
	size := buy.AskSize
	if sell.BidSize < size {
		size = sell.BidSize
	}
	if capital > 0 && buy.AskPrice > 0 {
		if max := capital / buy.AskPrice; max < size {
			size = max
		}
	}
	if size < 0 {
		return 0
	}
	return size
}

// opportunityID derives a stable ID from the observation coordinates.
func opportunityID(cycle uint64, pair domain.TradingPair, buyVenue, sellVenue string) string {
	key := fmt.Sprintf("%d|%s|%s|%s", cycle, pair, buyVenue, sellVenue)
	return uuid.NewSHA1(opportunityNamespace, []byte(key)).String()
}
