package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/harunobu-k/fundingarb/internal/domain"
)

// OpportunityStore records reported opportunities in PostgreSQL for later
// audit. Decimal values are sent as their exact string forms into numeric
// columns.
type OpportunityStore struct {
	pool *pgxpool.Pool
}

// NewOpportunityStore creates an OpportunityStore backed by the given
// connection pool.
func NewOpportunityStore(pool *pgxpool.Pool) *OpportunityStore {
	return &OpportunityStore{pool: pool}
}

// Record implements domain.OpportunitySink.
func (s *OpportunityStore) Record(ctx context.Context, opp domain.Opportunity) error {
	const query = `
		INSERT INTO opportunities (
			id, asset,
			buy_venue, buy_instrument, buy_currency, buy_price_raw, buy_cost_jpy, buy_fee_jpy,
			sell_venue, sell_instrument, sell_currency, sell_price_raw, sell_proceeds_jpy, sell_fee_jpy,
			base_profit_jpy, funding_profit_jpy, slippage_cost_jpy, net_profit_jpy, net_profit_pct,
			fx_rate, detected_at
		) VALUES (
			$1, $2,
			$3, $4, $5, $6, $7, $8,
			$9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19,
			$20, $21
		)`

	_, err := s.pool.Exec(ctx, query,
		opp.ID, string(opp.Asset),
		string(opp.BuyVenue), string(opp.BuyInstrument), string(opp.BuyCurrency),
		opp.BuyPriceRaw.String(), opp.BuyCost.String(), opp.BuyFee.String(),
		string(opp.SellVenue), string(opp.SellInstrument), string(opp.SellCurrency),
		opp.SellPriceRaw.String(), opp.SellProceeds.String(), opp.SellFee.String(),
		opp.BaseProfit.String(), opp.FundingProfit.String(), opp.SlippageCost.String(),
		opp.NetProfit.String(), opp.NetProfitPct.String(),
		opp.FXRate.String(), opp.DetectedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert opportunity %s: %w", opp.ID, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.OpportunitySink = (*OpportunityStore)(nil)
