// Package engine implements the cross-venue arbitrage evaluation. FindBest
// is a pure function over a point-in-time slice of legs; it holds no state
// beyond the injected fee/slippage parameters.
package engine

import (
	"github.com/shopspring/decimal"

	"github.com/harunobu-k/fundingarb/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Params holds the cost model injected into the engine: per-venue taker
// fees (fractions, e.g. 0.0005 for 0.05%) and the symmetric slippage rate.
// Taker fees are used because arbitrage requires immediate execution; a
// venue absent from the map trades at zero fee.
type Params struct {
	TakerFees map[domain.Venue]decimal.Decimal
	Slippage  decimal.Decimal
}

// Engine evaluates leg pairings under a fixed cost model.
type Engine struct {
	params Params
}

// New creates an Engine with the given cost model.
func New(params Params) *Engine {
	return &Engine{params: params}
}

func (e *Engine) takerFee(v domain.Venue) decimal.Decimal {
	return e.params.TakerFees[v]
}

// convert maps an amount in the leg's currency to JPY.
func convert(amount decimal.Decimal, c domain.Currency, fxRate decimal.Decimal) decimal.Decimal {
	if c == domain.CurrencyUSD {
		return amount.Mul(fxRate)
	}
	return amount
}

// FindBest searches every ordered (buy, sell) pairing of the legs matching
// the target asset and returns the most profitable one net of fees,
// slippage, funding carry, and FX conversion. Pairs sharing both venue and
// instrument are skipped. A candidate must have a strictly positive net
// profit percentage that strictly exceeds the best found so far, so ties
// keep the earlier pairing; callers pass legs in a fixed venue order to
// make that deterministic. Returns false when no pairing qualifies.
func (e *Engine) FindBest(legs []domain.Leg, asset domain.Asset, fxRate decimal.Decimal) (domain.Opportunity, bool) {
	relevant := make([]domain.Leg, 0, len(legs))
	for _, l := range legs {
		if l.Asset == asset {
			relevant = append(relevant, l)
		}
	}

	var best domain.Opportunity
	found := false
	maxPct := decimal.Zero

	for _, buy := range relevant {
		for _, sell := range relevant {
			if buy.Venue == sell.Venue && buy.Instrument == sell.Instrument {
				continue
			}

			// Per-unit cost: ask * (1 + fee + slippage), in JPY.
			buyFee := e.takerFee(buy.Venue)
			buyMultiplier := decimal.NewFromInt(1).Add(buyFee).Add(e.params.Slippage)
			buyCost := convert(buy.Ask.Mul(buyMultiplier), buy.Currency, fxRate)

			// Per-unit proceeds: bid * (1 - fee - slippage), in JPY.
			sellFee := e.takerFee(sell.Venue)
			sellMultiplier := decimal.NewFromInt(1).Sub(sellFee).Sub(e.params.Slippage)
			sellProceeds := convert(sell.Bid.Mul(sellMultiplier), sell.Currency, fxRate)

			if buyCost.IsZero() {
				continue
			}

			// Funding carry as a fraction of buy-side cost: paid when long
			// a perpetual, received when short, relative to the sign the
			// venue reports. Spot legs contribute nothing.
			frImpact := decimal.Zero
			if buy.Instrument == domain.InstrumentPerp {
				frImpact = frImpact.Sub(buy.FundingRate)
			}
			if sell.Instrument == domain.InstrumentPerp {
				frImpact = frImpact.Add(sell.FundingRate)
			}

			baseProfit := sellProceeds.Sub(buyCost)
			frProfit := buyCost.Mul(frImpact)
			netProfit := baseProfit.Add(frProfit)
			netPct := netProfit.Div(buyCost)

			if !(netPct.IsPositive() && netPct.GreaterThan(maxPct)) {
				continue
			}
			maxPct = netPct

			slippageCost := convert(buy.Ask.Mul(e.params.Slippage), buy.Currency, fxRate).
				Add(convert(sell.Bid.Mul(e.params.Slippage), sell.Currency, fxRate))

			best = domain.Opportunity{
				Asset:          asset,
				BuyVenue:       buy.Venue,
				BuyInstrument:  buy.Instrument,
				BuyCurrency:    buy.Currency,
				BuyPriceRaw:    buy.Ask,
				BuyCost:        buyCost,
				BuyFee:         convert(buy.Ask.Mul(buyFee), buy.Currency, fxRate),
				SellVenue:      sell.Venue,
				SellInstrument: sell.Instrument,
				SellCurrency:   sell.Currency,
				SellPriceRaw:   sell.Bid,
				SellProceeds:   sellProceeds,
				SellFee:        convert(sell.Bid.Mul(sellFee), sell.Currency, fxRate),
				BaseProfit:     baseProfit,
				FundingProfit:  frProfit,
				SlippageCost:   slippageCost,
				NetProfit:      netProfit,
				NetProfitPct:   netPct.Mul(hundred),
				FXRate:         fxRate,
			}
			found = true
		}
	}

	return best, found
}
