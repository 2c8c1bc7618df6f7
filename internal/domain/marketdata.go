package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// SymbolKey addresses one market on one venue.
type SymbolKey struct {
	Venue  Venue
	Symbol string
}

// SymbolData is the latest price/funding snapshot for a SymbolKey. Price
// updates and funding updates are independent write paths that share the
// key, so a reader may observe a price-fresh/funding-stale combination;
// that is accepted eventual consistency, not an error.
type SymbolData struct {
	Bid         decimal.Decimal
	Ask         decimal.Decimal
	Last        decimal.Decimal
	FundingRate decimal.Decimal
	Timestamp   int64 // seconds since epoch of the most recent write
}

// Leg is one venue/instrument/currency combination's current price and
// funding state for an asset, assembled per evaluation cycle. It is never
// stored.
type Leg struct {
	Venue       Venue
	Asset       Asset
	Instrument  InstrumentType
	Currency    Currency
	Ask         decimal.Decimal
	Bid         decimal.Decimal
	FundingRate decimal.Decimal
}

// Opportunity is the best buy/sell leg pairing found for one asset at one
// evaluation instant, with the full cost breakdown so a consumer can audit
// every intermediate value. Converted amounts are in JPY.
type Opportunity struct {
	ID    string `json:"id"`
	Asset Asset  `json:"asset"`

	BuyVenue      Venue           `json:"buy_venue"`
	BuyInstrument InstrumentType  `json:"buy_instrument"`
	BuyCurrency   Currency        `json:"buy_currency"`
	BuyPriceRaw   decimal.Decimal `json:"buy_price_raw"`
	BuyCost       decimal.Decimal `json:"buy_cost_jpy"`
	BuyFee        decimal.Decimal `json:"buy_fee_jpy"`

	SellVenue      Venue           `json:"sell_venue"`
	SellInstrument InstrumentType  `json:"sell_instrument"`
	SellCurrency   Currency        `json:"sell_currency"`
	SellPriceRaw   decimal.Decimal `json:"sell_price_raw"`
	SellProceeds   decimal.Decimal `json:"sell_proceeds_jpy"`
	SellFee        decimal.Decimal `json:"sell_fee_jpy"`

	BaseProfit    decimal.Decimal `json:"base_profit_jpy"`
	FundingProfit decimal.Decimal `json:"funding_profit_jpy"`
	SlippageCost  decimal.Decimal `json:"slippage_cost_jpy"`
	NetProfit     decimal.Decimal `json:"net_profit_jpy"`
	NetProfitPct  decimal.Decimal `json:"net_profit_pct"`

	FXRate     decimal.Decimal `json:"fx_rate"`
	DetectedAt time.Time       `json:"detected_at"`
}

// OpportunitySink receives opportunities that cleared the reporting
// threshold. This is the hand-off point for an order-execution subsystem;
// the built-in implementations only record or publish.
type OpportunitySink interface {
	Record(ctx context.Context, opp Opportunity) error
}
