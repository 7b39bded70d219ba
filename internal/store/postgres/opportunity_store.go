package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quantrino/spreadscan/internal/domain"
)

// OpportunityStore implements domain.OpportunityStore using PostgreSQL.
type OpportunityStore struct {
	pool *pgxpool.Pool
}

// NewOpportunityStore creates a store backed by the given connection pool.
func NewOpportunityStore(pool *pgxpool.Pool) *OpportunityStore {
	return &OpportunityStore{pool: pool}
}

const opportunityCols = `id, cycle, base_asset, quote_asset, buy_venue, sell_venue,
	buy_price, sell_price, gross_spread_pct, buy_fee_pct, sell_fee_pct,
	slippage_pct, net_profit_pct, realizable_size, estimated_profit,
	buy_withdrawal_fee, detected_at`

// Insert stores a detected opportunity. Opportunity IDs are deterministic per
// snapshot coordinates, so a re-scan of the same snapshot is a no-op here.
func (s *OpportunityStore) Insert(ctx context.Context, opp domain.ArbitrageOpportunity) error {
	const query = `
		INSERT INTO opportunities (
			id, cycle, base_asset, quote_asset, buy_venue, sell_venue,
			buy_price, sell_price, gross_spread_pct, buy_fee_pct, sell_fee_pct,
			slippage_pct, net_profit_pct, realizable_size, estimated_profit,
			buy_withdrawal_fee, detected_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11,
			$12, $13, $14, $15,
			$16, $17
		)
		ON CONFLICT (id) DO NOTHING`

	_, err := s.pool.Exec(ctx, query,
		opp.ID, int64(opp.Cycle), opp.Pair.Base, opp.Pair.Quote, opp.BuyVenue, opp.SellVenue,
		opp.BuyPrice, opp.SellPrice, opp.GrossSpreadPct, opp.BuyFeePct, opp.SellFeePct,
		opp.SlippagePct, opp.NetProfitPct, opp.RealizableSize, opp.EstimatedProfit,
		opp.BuyWithdrawalFee, opp.DetectedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert opportunity %s: %w", opp.ID, err)
	}
	return nil
}

// Recent returns the most recently detected opportunities.
func (s *OpportunityStore) Recent(ctx context.Context, limit int) ([]domain.ArbitrageOpportunity, error) {
	query := `SELECT ` + opportunityCols + ` FROM opportunities ORDER BY detected_at DESC, net_profit_pct DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: recent opportunities: %w", err)
	}
	defer rows.Close()
	return scanOpportunities(rows)
}

// TopByProfit returns the highest-net opportunities detected since the cutoff.
func (s *OpportunityStore) TopByProfit(ctx context.Context, since time.Time, limit int) ([]domain.ArbitrageOpportunity, error) {
	const query = `
		SELECT ` + opportunityCols + `
		FROM opportunities
		WHERE detected_at >= $1
		ORDER BY net_profit_pct DESC, detected_at DESC
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: top opportunities: %w", err)
	}
	defer rows.Close()
	return scanOpportunities(rows)
}

// Summary aggregates opportunities detected since the cutoff.
func (s *OpportunityStore) Summary(ctx context.Context, since time.Time) (domain.OpportunitySummary, error) {
	const query = `
		SELECT
			COUNT(*),
			COALESCE(AVG(net_profit_pct), 0),
			COALESCE(MAX(net_profit_pct), 0),
			COUNT(DISTINCT base_asset || '/' || quote_asset)
		FROM opportunities
		WHERE detected_at >= $1`

	var out domain.OpportunitySummary
	err := s.pool.QueryRow(ctx, query, since).Scan(
		&out.Count, &out.AvgNetPct, &out.MaxNetPct, &out.DistinctPairs,
	)
	if err != nil {
		return domain.OpportunitySummary{}, fmt.Errorf("postgres: opportunity summary: %w", err)
	}
	return out, nil
}

// OlderThan returns rows detected before the cutoff, oldest first, for
// archival.
func (s *OpportunityStore) OlderThan(ctx context.Context, cutoff time.Time, limit int) ([]domain.ArbitrageOpportunity, error) {
	const query = `
		SELECT ` + opportunityCols + `
		FROM opportunities
		WHERE detected_at < $1
		ORDER BY detected_at ASC
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: opportunities older than %s: %w", cutoff.Format(time.RFC3339), err)
	}
	defer rows.Close()
	return scanOpportunities(rows)
}

// DeleteOlderThan removes archived rows and returns the number deleted.
func (s *OpportunityStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM opportunities WHERE detected_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete opportunities older than %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return tag.RowsAffected(), nil
}

func scanOpportunities(rows pgx.Rows) ([]domain.ArbitrageOpportunity, error) {
	var opps []domain.ArbitrageOpportunity
	for rows.Next() {
		var (
			opp        domain.ArbitrageOpportunity
			cycle      int64
			base, quot string
		)
		if err := rows.Scan(
			&opp.ID, &cycle, &base, &quot, &opp.BuyVenue, &opp.SellVenue,
			&opp.BuyPrice, &opp.SellPrice, &opp.GrossSpreadPct, &opp.BuyFeePct, &opp.SellFeePct,
			&opp.SlippagePct, &opp.NetProfitPct, &opp.RealizableSize, &opp.EstimatedProfit,
			&opp.BuyWithdrawalFee, &opp.DetectedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan opportunity: %w", err)
		}
		opp.Cycle = uint64(cycle)
		opp.Pair = domain.NewTradingPair(base, quot)
		opps = append(opps, opp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate opportunities: %w", err)
	}
	return opps, nil
}

// Compile-time interface check.
var _ domain.OpportunityStore = (*OpportunityStore)(nil)
