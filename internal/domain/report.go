package domain

import (
	"fmt"
	"strings"
)

// Format renders the opportunity as a multi-line human-readable report with
// the full per-unit cost breakdown.
func (o Opportunity) Format() string {
	var b strings.Builder

	fmt.Fprintf(&b, "arbitrage opportunity: %s\n", o.Asset)
	fmt.Fprintf(&b, "  buy : %s %s @ %s %s\n", o.BuyVenue, o.BuyInstrument, o.BuyPriceRaw, o.BuyCurrency)
	fmt.Fprintf(&b, "  sell: %s %s @ %s %s\n", o.SellVenue, o.SellInstrument, o.SellPriceRaw, o.SellCurrency)
	fmt.Fprintf(&b, "  fx rate: %s JPY/USD\n", o.FXRate)
	fmt.Fprintf(&b, "  buy cost (JPY):      %s\n", o.BuyCost.StringFixed(2))
	fmt.Fprintf(&b, "  sell proceeds (JPY): %s\n", o.SellProceeds.StringFixed(2))
	fmt.Fprintf(&b, "  base profit:   %s\n", o.BaseProfit.StringFixed(2))
	fmt.Fprintf(&b, "  buy fee:       %s\n", o.BuyFee.StringFixed(2))
	fmt.Fprintf(&b, "  sell fee:      %s\n", o.SellFee.StringFixed(2))
	fmt.Fprintf(&b, "  slippage cost: %s\n", o.SlippageCost.StringFixed(2))
	fmt.Fprintf(&b, "  funding impact: %s\n", o.FundingProfit.StringFixed(2))
	fmt.Fprintf(&b, "  net profit: %s (%s%%)", o.NetProfit.StringFixed(2), o.NetProfitPct.StringFixed(4))

	return b.String()
}
