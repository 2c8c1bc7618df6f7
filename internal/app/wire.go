package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	cacheredis "github.com/harunobu-k/fundingarb/internal/cache/redis"
	"github.com/harunobu-k/fundingarb/internal/config"
	"github.com/harunobu-k/fundingarb/internal/coordinator"
	"github.com/harunobu-k/fundingarb/internal/domain"
	"github.com/harunobu-k/fundingarb/internal/engine"
	"github.com/harunobu-k/fundingarb/internal/marketstore"
	"github.com/harunobu-k/fundingarb/internal/store/postgres"
	"github.com/harunobu-k/fundingarb/internal/venue/bitbank"
	"github.com/harunobu-k/fundingarb/internal/venue/gmo"
	"github.com/harunobu-k/fundingarb/internal/venue/hyperliquid"
	"github.com/harunobu-k/fundingarb/internal/venue/kraken"
)

// Runner is a long-lived task supervised by the app.
type Runner interface {
	Run(ctx context.Context) error
}

// Deps holds the wired application graph.
type Deps struct {
	Store       *marketstore.Store
	Collectors  []Runner
	Coordinator *coordinator.Coordinator
}

// Wire builds the full dependency graph from the validated config and
// returns it with a cleanup function that releases external connections.
// Recording backends are only connected in record mode and only when
// enabled; the watcher itself needs nothing but the feeds.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Deps, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	assets := make([]domain.Asset, 0, len(cfg.Assets))
	for _, s := range cfg.Assets {
		assets = append(assets, domain.Asset(strings.ToUpper(strings.TrimSpace(s))))
	}

	store := marketstore.New()

	params, err := engineParams(cfg.Engine)
	if err != nil {
		return nil, cleanup, err
	}
	eng := engine.New(params)

	// Sinks are the execution hand-off surface; record mode attaches the
	// configured backends to it.
	var sinks []domain.OpportunitySink
	if strings.EqualFold(cfg.Mode, "record") {
		if cfg.Redis.Enabled {
			client, err := cacheredis.NewClient(ctx, cacheredis.ClientConfig{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
				PoolSize: cfg.Redis.PoolSize,
			})
			if err != nil {
				return nil, cleanup, err
			}
			closers = append(closers, func() { _ = client.Close() })
			sinks = append(sinks, cacheredis.NewOpportunityBus(client, cfg.Redis.Channel))
			logger.Info("opportunity bus enabled", slog.String("channel", cfg.Redis.Channel))
		}

		if cfg.Postgres.Enabled {
			client, err := postgres.New(ctx, postgres.ClientConfig{
				DSN:      cfg.Postgres.DSN,
				Host:     cfg.Postgres.Host,
				Port:     cfg.Postgres.Port,
				Database: cfg.Postgres.Database,
				User:     cfg.Postgres.User,
				Password: cfg.Postgres.Password,
				SSLMode:  cfg.Postgres.SSLMode,
				MaxConns: cfg.Postgres.PoolMaxConns,
				MinConns: cfg.Postgres.PoolMinConns,
			})
			if err != nil {
				return nil, cleanup, err
			}
			closers = append(closers, client.Close)
			if cfg.Postgres.RunMigrations {
				if err := client.RunMigrations(ctx); err != nil {
					return nil, cleanup, err
				}
			}
			sinks = append(sinks, postgres.NewOpportunityStore(client.Pool()))
			logger.Info("opportunity history enabled")
		}
	}

	spotIDs := hyperliquid.ResolveSpotIDs(ctx, assets,
		cfg.Feeds.Hyperliquid.SpotIDs, cfg.Feeds.Hyperliquid.InfoURL,
		logger.With(slog.String("venue", string(domain.VenueHyperliquid))))

	delay := cfg.Feeds.ReconnectDelay.Duration
	collectors := []Runner{
		hyperliquid.NewCollector(hyperliquid.Config{
			WSURL:          cfg.Feeds.Hyperliquid.WsURL,
			ReconnectDelay: delay,
			Assets:         assets,
		}, spotIDs, store, logger),
		bitbank.NewCollector(bitbank.Config{
			WSURL:          cfg.Feeds.Bitbank.WsURL,
			ReconnectDelay: delay,
			Assets:         assets,
		}, store, logger),
		gmo.NewCollector(gmo.Config{
			WSURL:          cfg.Feeds.GMO.WsURL,
			ReconnectDelay: delay,
			Assets:         assets,
		}, store, logger),
		kraken.NewCollector(kraken.Config{
			WSURL:          cfg.Feeds.Kraken.WsURL,
			ReconnectDelay: delay,
		}, store, logger),
	}

	threshold, err := decimal.NewFromString(cfg.Eval.ReportThresholdPct)
	if err != nil {
		return nil, cleanup, fmt.Errorf("app: report threshold: %w", err)
	}

	coord := coordinator.New(coordinator.Config{
		Assets:       assets,
		PollInterval: cfg.Eval.PollInterval.Duration,
		WarmupDelay:  cfg.Eval.WarmupDelay.Duration,
		ThresholdPct: threshold,
	}, store, eng, sinks, logger)

	return &Deps{
		Store:       store,
		Collectors:  collectors,
		Coordinator: coord,
	}, cleanup, nil
}

// engineParams parses the decimal-string cost model from config.
func engineParams(cfg config.EngineConfig) (engine.Params, error) {
	slippage, err := decimal.NewFromString(cfg.Slippage)
	if err != nil {
		return engine.Params{}, fmt.Errorf("app: slippage rate: %w", err)
	}

	fees := make(map[domain.Venue]decimal.Decimal, len(cfg.TakerFees))
	for name, raw := range cfg.TakerFees {
		fee, err := decimal.NewFromString(raw)
		if err != nil {
			return engine.Params{}, fmt.Errorf("app: taker fee %s: %w", name, err)
		}
		fees[domain.Venue(strings.ToLower(name))] = fee
	}

	return engine.Params{TakerFees: fees, Slippage: slippage}, nil
}
