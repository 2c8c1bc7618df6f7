package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies FUNDINGARB_* environment variable overrides,
// and returns the final Config. A missing file is not an error: the
// defaults cover every venue, so the watcher runs with no config at all.
// The returned Config has NOT been validated; the caller should invoke
// Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known FUNDINGARB_* environment variables
// and overwrites the corresponding Config fields when a variable is set.
// This lets operators inject credentials at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	setStringSlice(&cfg.Assets, "FUNDINGARB_ASSETS")

	// ── Feeds ──
	setDuration(&cfg.Feeds.ReconnectDelay, "FUNDINGARB_FEEDS_RECONNECT_DELAY")
	setStr(&cfg.Feeds.Hyperliquid.WsURL, "FUNDINGARB_FEEDS_HYPERLIQUID_WS_URL")
	setStr(&cfg.Feeds.Hyperliquid.InfoURL, "FUNDINGARB_FEEDS_HYPERLIQUID_INFO_URL")
	setStr(&cfg.Feeds.Bitbank.WsURL, "FUNDINGARB_FEEDS_BITBANK_WS_URL")
	setStr(&cfg.Feeds.GMO.WsURL, "FUNDINGARB_FEEDS_GMO_WS_URL")
	setStr(&cfg.Feeds.Kraken.WsURL, "FUNDINGARB_FEEDS_KRAKEN_WS_URL")

	// ── Engine ──
	setStr(&cfg.Engine.Slippage, "FUNDINGARB_ENGINE_SLIPPAGE")

	// ── Evaluation ──
	setDuration(&cfg.Eval.PollInterval, "FUNDINGARB_EVAL_POLL_INTERVAL")
	setDuration(&cfg.Eval.WarmupDelay, "FUNDINGARB_EVAL_WARMUP_DELAY")
	setStr(&cfg.Eval.ReportThresholdPct, "FUNDINGARB_EVAL_REPORT_THRESHOLD_PCT")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "FUNDINGARB_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "FUNDINGARB_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "FUNDINGARB_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "FUNDINGARB_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "FUNDINGARB_REDIS_POOL_SIZE")
	setStr(&cfg.Redis.Channel, "FUNDINGARB_REDIS_CHANNEL")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "FUNDINGARB_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "FUNDINGARB_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "FUNDINGARB_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "FUNDINGARB_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "FUNDINGARB_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "FUNDINGARB_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "FUNDINGARB_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "FUNDINGARB_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "FUNDINGARB_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "FUNDINGARB_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "FUNDINGARB_POSTGRES_RUN_MIGRATIONS")

	// ── Top-level ──
	setStr(&cfg.Mode, "FUNDINGARB_MODE")
	setStr(&cfg.LogLevel, "FUNDINGARB_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
