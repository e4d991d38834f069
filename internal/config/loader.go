package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Load merges an optional TOML file at path on top of Defaults, loads .env
// when present and applies MONEYRUSH_* overrides. An empty path skips the
// file. The result has not been validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Missing .env is fine.
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.LogLevel, "MONEYRUSH_LOG_LEVEL")

	// ── Server ──
	setStr(&cfg.Server.Addr, "MONEYRUSH_SERVER_ADDR")
	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Addr = ":" + port
	}
	setDuration(&cfg.Server.RequestTimeout, "MONEYRUSH_SERVER_REQUEST_TIMEOUT")
	setDuration(&cfg.Server.SessionTTL, "MONEYRUSH_SERVER_SESSION_TTL")
	setStr(&cfg.Server.Static, "MONEYRUSH_SERVER_STATIC")

	// ── Store ──
	setStr(&cfg.Store.Kind, "MONEYRUSH_STORE_KIND")
	setStr(&cfg.Store.Path, "MONEYRUSH_STORE_PATH")
	setStr(&cfg.Store.PostgresDSN, "MONEYRUSH_STORE_POSTGRES_DSN")
	setStr(&cfg.Store.GameKey, "MONEYRUSH_STORE_GAME_KEY")
	setStr(&cfg.Store.RedisURL, "MONEYRUSH_STORE_REDIS_URL")
	setDuration(&cfg.Store.CacheTTL, "MONEYRUSH_STORE_CACHE_TTL")

	// ── Catalog ──
	setStr(&cfg.Catalog.Path, "MONEYRUSH_CATALOG_PATH")

	// ── Game ──
	setStr(&cfg.Game.AdminPIN, "MONEYRUSH_ADMIN_PIN")
	setStr(&cfg.Game.EventName, "MONEYRUSH_GAME_EVENT_NAME")
	setStr(&cfg.Game.GameName, "MONEYRUSH_GAME_NAME")
	setDecimal(&cfg.Game.StartingMoney, "MONEYRUSH_GAME_STARTING_MONEY")
	setInt(&cfg.Game.RoundsTotal, "MONEYRUSH_GAME_ROUNDS_TOTAL")
	setInt(&cfg.Game.MarketOpenSeconds, "MONEYRUSH_GAME_MARKET_OPEN_SECONDS")
	setInt(&cfg.Game.TradingSeconds, "MONEYRUSH_GAME_TRADING_SECONDS")
	setBool(&cfg.Game.AutoAdvance, "MONEYRUSH_GAME_AUTO_ADVANCE")
	setDuration(&cfg.Game.TickInterval, "MONEYRUSH_GAME_TICK_INTERVAL")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "MONEYRUSH_ARCHIVE_ENABLED")
	setStr(&cfg.Archive.Endpoint, "MONEYRUSH_ARCHIVE_ENDPOINT")
	setStr(&cfg.Archive.Region, "MONEYRUSH_ARCHIVE_REGION")
	setStr(&cfg.Archive.Bucket, "MONEYRUSH_ARCHIVE_BUCKET")
	setStr(&cfg.Archive.AccessKey, "MONEYRUSH_ARCHIVE_ACCESS_KEY")
	setStr(&cfg.Archive.SecretKey, "MONEYRUSH_ARCHIVE_SECRET_KEY")
	setStr(&cfg.Archive.Prefix, "MONEYRUSH_ARCHIVE_PREFIX")
	setBool(&cfg.Archive.ForcePathStyle, "MONEYRUSH_ARCHIVE_FORCE_PATH_STYLE")
}

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

func setDecimal(dst *decimal.Decimal, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			*dst = d
		}
	}
}
