// Package config defines the top-level configuration for the funding-rate
// arbitrage watcher and provides validation helpers.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by FUNDINGARB_* environment
// variables. Rates are decimal strings so no value ever passes through
// binary floating point.
type Config struct {
	Assets   []string       `toml:"assets"`
	Feeds    FeedsConfig    `toml:"feeds"`
	Engine   EngineConfig   `toml:"engine"`
	Eval     EvalConfig     `toml:"evaluation"`
	Redis    RedisConfig    `toml:"redis"`
	Postgres PostgresConfig `toml:"postgres"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// FeedsConfig holds per-venue connection parameters.
type FeedsConfig struct {
	ReconnectDelay duration          `toml:"reconnect_delay"`
	Hyperliquid    HyperliquidConfig `toml:"hyperliquid"`
	Bitbank        VenueEndpoint     `toml:"bitbank"`
	GMO            VenueEndpoint     `toml:"gmo"`
	Kraken         VenueEndpoint     `toml:"kraken"`
}

// HyperliquidConfig holds the Hyperliquid endpoints and the static
// asset→spot-id table. An empty table is fine; ids are then resolved via
// the info endpoint or the compiled-in defaults.
type HyperliquidConfig struct {
	WsURL   string         `toml:"ws_url"`
	InfoURL string         `toml:"info_url"`
	SpotIDs map[string]int `toml:"spot_ids"`
}

// VenueEndpoint holds a plain WebSocket endpoint.
type VenueEndpoint struct {
	WsURL string `toml:"ws_url"`
}

// EngineConfig holds the arbitrage cost model: per-venue taker fees and
// the symmetric slippage rate, as decimal-string fractions.
type EngineConfig struct {
	TakerFees map[string]string `toml:"taker_fees"`
	Slippage  string            `toml:"slippage"`
}

// EvalConfig holds the evaluation loop parameters. ReportThresholdPct is
// on the ×100 scale: "0.05" reports above 0.05%.
type EvalConfig struct {
	PollInterval       duration `toml:"poll_interval"`
	WarmupDelay        duration `toml:"warmup_delay"`
	ReportThresholdPct string   `toml:"report_threshold_pct"`
}

// RedisConfig holds the optional opportunity-bus connection parameters.
type RedisConfig struct {
	Enabled  bool   `toml:"enabled"`
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	PoolSize int    `toml:"pool_size"`
	Channel  string `toml:"channel"`
}

// PostgresConfig holds the optional opportunity-history connection
// parameters.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5s", "500ms").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder
// can parse duration strings.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with the values the watcher ships
// with: the four venues' public endpoints, their published taker fees, and
// the known spot-id table left empty for runtime resolution.
func Defaults() Config {
	return Config{
		Assets: []string{"BTC", "ETH", "SOL", "HYPE"},
		Feeds: FeedsConfig{
			ReconnectDelay: duration{5 * time.Second},
			Hyperliquid: HyperliquidConfig{
				WsURL:   "wss://api.hyperliquid.xyz/ws",
				InfoURL: "https://api.hyperliquid.xyz/info",
				SpotIDs: map[string]int{},
			},
			Bitbank: VenueEndpoint{WsURL: "wss://stream.bitbank.cc/socket.io/?EIO=4&transport=websocket"},
			GMO:     VenueEndpoint{WsURL: "wss://api.coin.z.com/ws/public/v1"},
			Kraken:  VenueEndpoint{WsURL: "wss://ws.kraken.com"},
		},
		Engine: EngineConfig{
			// Published taker rates: Hyperliquid 0.045%, GMO 0.05%,
			// bitbank 0.12%. Kraken never trades, so zero.
			TakerFees: map[string]string{
				"hyperliquid": "0.00045",
				"gmo":         "0.0005",
				"bitbank":     "0.0012",
				"kraken":      "0",
			},
			Slippage: "0.0001",
		},
		Eval: EvalConfig{
			PollInterval:       duration{500 * time.Millisecond},
			WarmupDelay:        duration{5 * time.Second},
			ReportThresholdPct: "0.05",
		},
		Redis: RedisConfig{
			Enabled:  false,
			Addr:     "localhost:6379",
			PoolSize: 10,
			Channel:  "opportunities",
		},
		Postgres: PostgresConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "fundingarb",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  5,
			PoolMinConns:  1,
			RunMigrations: true,
		},
		Mode:     "watch",
		LogLevel: "info",
	}
}

// SlogLevel maps LogLevel to its slog value. Comparison is
// case-insensitive, matching Validate; unknown values fall back to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"watch":  true,
	"record": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and
// returns a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: watch, record)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if len(c.Assets) == 0 {
		errs = append(errs, "assets must not be empty")
	}

	if c.Feeds.Hyperliquid.WsURL == "" {
		errs = append(errs, "feeds.hyperliquid: ws_url must not be empty")
	}
	if c.Feeds.Bitbank.WsURL == "" {
		errs = append(errs, "feeds.bitbank: ws_url must not be empty")
	}
	if c.Feeds.GMO.WsURL == "" {
		errs = append(errs, "feeds.gmo: ws_url must not be empty")
	}
	if c.Feeds.Kraken.WsURL == "" {
		errs = append(errs, "feeds.kraken: ws_url must not be empty")
	}
	if c.Feeds.ReconnectDelay.Duration <= 0 {
		errs = append(errs, "feeds: reconnect_delay must be > 0")
	}

	if _, err := decimal.NewFromString(c.Engine.Slippage); err != nil {
		errs = append(errs, fmt.Sprintf("engine: slippage %q is not a decimal", c.Engine.Slippage))
	}
	for venue, fee := range c.Engine.TakerFees {
		if _, err := decimal.NewFromString(fee); err != nil {
			errs = append(errs, fmt.Sprintf("engine: taker fee for %s %q is not a decimal", venue, fee))
		}
	}

	if c.Eval.PollInterval.Duration <= 0 {
		errs = append(errs, "evaluation: poll_interval must be > 0")
	}
	if c.Eval.WarmupDelay.Duration < 0 {
		errs = append(errs, "evaluation: warmup_delay must be >= 0")
	}
	if _, err := decimal.NewFromString(c.Eval.ReportThresholdPct); err != nil {
		errs = append(errs, fmt.Sprintf("evaluation: report_threshold_pct %q is not a decimal", c.Eval.ReportThresholdPct))
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty when enabled")
		}
		if c.Redis.Channel == "" {
			errs = append(errs, "redis: channel must not be empty when enabled")
		}
	}

	if c.Postgres.Enabled && strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty when enabled (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty when enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
