package domain

import "time"

// MarketSnapshot is the immutable result of one orchestrator cycle: every
// quote that was captured before the cycle deadline, keyed by venue then pair.
// The scanner only ever sees complete snapshots, never a half-filled cycle.
type MarketSnapshot struct {
	cycle   uint64
	started time.Time
	quotes  map[string]map[TradingPair]Quote
}

// NewMarketSnapshot builds a snapshot from the per-venue quote maps. The input
// map is deep-copied so the snapshot cannot be mutated after publication.
func NewMarketSnapshot(cycle uint64, started time.Time, quotes map[string]map[TradingPair]Quote) MarketSnapshot {
	copied := make(map[string]map[TradingPair]Quote, len(quotes))
	for venue, byPair := range quotes {
		inner := make(map[TradingPair]Quote, len(byPair))
		for pair, q := range byPair {
			inner[pair] = q
		}
		copied[venue] = inner
	}
	return MarketSnapshot{cycle: cycle, started: started, quotes: copied}
}

// Cycle returns the monotonically increasing cycle sequence number.
func (s MarketSnapshot) Cycle() uint64 { return s.cycle }

// StartedAt returns the instant the cycle began. Opportunity timestamps derive
// from it so re-scanning the same snapshot yields identical records.
func (s MarketSnapshot) StartedAt() time.Time { return s.started }

// Quote returns the quote for pair on venue, if one was captured this cycle.
func (s MarketSnapshot) Quote(venue string, pair TradingPair) (Quote, bool) {
	byPair, ok := s.quotes[venue]
	if !ok {
		return Quote{}, false
	}
	q, ok := byPair[pair]
	return q, ok
}

// Venues returns the venues that contributed at least one quote.
func (s MarketSnapshot) Venues() []string {
	out := make([]string, 0, len(s.quotes))
	for v := range s.quotes {
		out = append(out, v)
	}
	return out
}

// Pairs returns the union of pairs present across all venues.
func (s MarketSnapshot) Pairs() []TradingPair {
	seen := make(map[TradingPair]struct{})
	for _, byPair := range s.quotes {
		for p := range byPair {
			seen[p] = struct{}{}
		}
	}
	out := make([]TradingPair, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	return out
}

// QuoteCount returns the total number of captured quotes.
func (s MarketSnapshot) QuoteCount() int {
	n := 0
	for _, byPair := range s.quotes {
		n += len(byPair)
	}
	return n
}
