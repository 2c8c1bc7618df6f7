// Package coordinator runs the periodic evaluation loop: read the market
// store, assemble legs per asset, invoke the engine, and report any
// opportunity that clears the threshold.
package coordinator

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harunobu-k/fundingarb/internal/domain"
	"github.com/harunobu-k/fundingarb/internal/engine"
	"github.com/harunobu-k/fundingarb/internal/marketstore"
)

// Config holds the evaluation loop's timing and reporting parameters.
type Config struct {
	Assets       []domain.Asset
	PollInterval time.Duration
	WarmupDelay  time.Duration
	// ThresholdPct is the minimum net profit percentage (×100 scale, so
	// 0.05 means 0.05%) an opportunity must exceed to be reported.
	ThresholdPct decimal.Decimal
}

// Coordinator polls the store at a fixed cadence and evaluates every
// configured asset each cycle.
type Coordinator struct {
	cfg    Config
	store  *marketstore.Store
	engine *engine.Engine
	sinks  []domain.OpportunitySink
	logger *slog.Logger
}

// New creates a Coordinator. sinks receive every reported opportunity and
// are the hand-off point for order execution; they may be empty.
func New(cfg Config, store *marketstore.Store, eng *engine.Engine, sinks []domain.OpportunitySink, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		cfg:    cfg,
		store:  store,
		engine: eng,
		sinks:  sinks,
		logger: logger.With(slog.String("component", "coordinator")),
	}
}

// Run waits out the warm-up delay so the feeds can populate, then
// evaluates on every tick until ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context) error {
	c.logger.Info("waiting for market data warmup",
		slog.Duration("delay", c.cfg.WarmupDelay))
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.cfg.WarmupDelay):
	}

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	c.logger.Info("evaluation loop started",
		slog.Duration("interval", c.cfg.PollInterval))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.evaluate(ctx)
		}
	}
}

func (c *Coordinator) evaluate(ctx context.Context) {
	fxRate, ok := c.store.FXRate(domain.FXSymbol)
	if !ok {
		c.logger.Warn("fx rate not available yet, skipping cycle")
		return
	}

	for _, asset := range c.cfg.Assets {
		legs := c.collectLegs(asset)
		if len(legs) < 2 {
			continue
		}

		opp, found := c.engine.FindBest(legs, asset, fxRate)
		if !found || !opp.NetProfitPct.GreaterThan(c.cfg.ThresholdPct) {
			continue
		}

		opp.ID = uuid.NewString()
		opp.DetectedAt = time.Now().UTC()
		c.report(ctx, opp)
	}
}

// collectLegs reads the store for each (venue, instrument) combination of
// interest, in a fixed order so the engine's first-found tie-break is
// deterministic across runs: Hyperliquid perp, Hyperliquid spot, bitbank
// spot, GMO. The GMO leg reads the bare symbol, which the collector feeds
// from the leveraged _JPY market; the _SPOT key is collected but not
// evaluated.
func (c *Coordinator) collectLegs(asset domain.Asset) []domain.Leg {
	legs := make([]domain.Leg, 0, 4)

	if d, ok := c.store.Read(domain.VenueHyperliquid, asset.Symbol()); ok {
		legs = append(legs, domain.Leg{
			Venue:       domain.VenueHyperliquid,
			Asset:       asset,
			Instrument:  domain.InstrumentPerp,
			Currency:    domain.CurrencyUSD,
			Ask:         d.Ask,
			Bid:         d.Bid,
			FundingRate: d.FundingRate,
		})
	}

	if d, ok := c.store.Read(domain.VenueHyperliquid, domain.SpotKey(asset)); ok {
		legs = append(legs, domain.Leg{
			Venue:      domain.VenueHyperliquid,
			Asset:      asset,
			Instrument: domain.InstrumentSpot,
			Currency:   domain.CurrencyUSD,
			Ask:        d.Ask,
			Bid:        d.Bid,
		})
	}

	if d, ok := c.store.Read(domain.VenueBitbank, asset.Symbol()); ok {
		legs = append(legs, domain.Leg{
			Venue:      domain.VenueBitbank,
			Asset:      asset,
			Instrument: domain.InstrumentSpot,
			Currency:   domain.CurrencyJPY,
			Ask:        d.Ask,
			Bid:        d.Bid,
		})
	}

	if d, ok := c.store.Read(domain.VenueGMO, asset.Symbol()); ok {
		legs = append(legs, domain.Leg{
			Venue:      domain.VenueGMO,
			Asset:      asset,
			Instrument: domain.InstrumentSpot,
			Currency:   domain.CurrencyJPY,
			Ask:        d.Ask,
			Bid:        d.Bid,
		})
	}

	return legs
}

func (c *Coordinator) report(ctx context.Context, opp domain.Opportunity) {
	c.logger.Info("arbitrage opportunity detected",
		slog.String("id", opp.ID),
		slog.String("asset", opp.Asset.Symbol()),
		slog.String("buy_venue", string(opp.BuyVenue)),
		slog.String("buy_instrument", string(opp.BuyInstrument)),
		slog.String("sell_venue", string(opp.SellVenue)),
		slog.String("sell_instrument", string(opp.SellInstrument)),
		slog.String("net_profit_jpy", opp.NetProfit.StringFixed(2)),
		slog.String("net_profit_pct", opp.NetProfitPct.StringFixed(4)),
		slog.String("fx_rate", opp.FXRate.String()),
	)
	c.logger.Info("opportunity breakdown", slog.String("report", opp.Format()))

	for _, sink := range c.sinks {
		if err := sink.Record(ctx, opp); err != nil {
			c.logger.Warn("opportunity sink failed",
				slog.String("id", opp.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}
