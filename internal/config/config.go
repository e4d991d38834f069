// Package config loads the server configuration: built-in defaults, an
// optional TOML file, a .env file and MONEYRUSH_* environment overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/moneyrush/round-engine/internal/game"
	"github.com/moneyrush/round-engine/internal/model"
)

// Config is the root configuration for the round engine.
type Config struct {
	LogLevel string        `toml:"log_level"`
	Server   ServerConfig  `toml:"server"`
	Store    StoreConfig   `toml:"store"`
	Catalog  CatalogConfig `toml:"catalog"`
	Game     GameConfig    `toml:"game"`
	Archive  ArchiveConfig `toml:"archive"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Addr           string   `toml:"addr"`
	ReadTimeout    duration `toml:"read_timeout"`
	WriteTimeout   duration `toml:"write_timeout"`
	IdleTimeout    duration `toml:"idle_timeout"`
	RequestTimeout duration `toml:"request_timeout"`
	SessionTTL     duration `toml:"session_ttl"`
	// Static is an optional directory served at / for the browser UI.
	Static string `toml:"static"`
}

// Store kinds.
const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StorePostgres = "postgres"
)

// StoreConfig selects where the game snapshot is persisted.
type StoreConfig struct {
	Kind        string   `toml:"kind"`
	Path        string   `toml:"path"`
	PostgresDSN string   `toml:"postgres_dsn"`
	GameKey     string   `toml:"game_key"`
	RedisURL    string   `toml:"redis_url"`
	CacheTTL    duration `toml:"cache_ttl"`
}

// CatalogConfig points at an optional YAML avenue catalog. Empty means the
// built-in catalog.
type CatalogConfig struct {
	Path string `toml:"path"`
}

// GameConfig seeds a fresh game. AdminPIN also overrides a persisted PIN.
type GameConfig struct {
	AdminPIN          string          `toml:"admin_pin"`
	EventName         string          `toml:"event_name"`
	GameName          string          `toml:"game_name"`
	Copyright         string          `toml:"copyright"`
	StartingMoney     decimal.Decimal `toml:"starting_money"`
	RoundsTotal       int             `toml:"rounds_total"`
	MarketOpenSeconds int             `toml:"market_open_seconds"`
	TradingSeconds    int             `toml:"trading_seconds"`
	EventsPerRound    int             `toml:"events_per_round"`
	WheelEventsCount  int             `toml:"wheel_events_count"`
	AutoAdvance       bool            `toml:"auto_advance"`
	TickInterval      duration        `toml:"tick_interval"`
}

// ArchiveConfig configures the end-of-game S3 export.
type ArchiveConfig struct {
	Enabled        bool     `toml:"enabled"`
	Endpoint       string   `toml:"endpoint"`
	Region         string   `toml:"region"`
	Bucket         string   `toml:"bucket"`
	AccessKey      string   `toml:"access_key"`
	SecretKey      string   `toml:"secret_key"`
	Prefix         string   `toml:"prefix"`
	UseSSL         bool     `toml:"use_ssl"`
	ForcePathStyle bool     `toml:"force_path_style"`
	Timeout        duration `toml:"timeout"`
}

// duration wraps time.Duration so TOML strings like "30s" decode.
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with the stock event settings.
func Defaults() Config {
	boot := game.DefaultBootstrap()
	return Config{
		LogLevel: "info",
		Server: ServerConfig{
			Addr:           ":8080",
			ReadTimeout:    duration{10 * time.Second},
			WriteTimeout:   duration{10 * time.Second},
			IdleTimeout:    duration{60 * time.Second},
			RequestTimeout: duration{30 * time.Second},
			SessionTTL:     duration{12 * time.Hour},
		},
		Store: StoreConfig{
			Kind:     StoreFile,
			Path:     "data/db.json",
			GameKey:  "default",
			CacheTTL: duration{30 * time.Second},
		},
		Game: GameConfig{
			AdminPIN:          boot.AdminPIN,
			EventName:         boot.Meta.EventName,
			GameName:          boot.Meta.GameName,
			Copyright:         boot.Meta.Copyright,
			StartingMoney:     boot.Settings.StartingMoney,
			RoundsTotal:       boot.Settings.RoundsTotal,
			MarketOpenSeconds: boot.Settings.MarketOpenSeconds,
			TradingSeconds:    boot.Settings.TradingSeconds,
			EventsPerRound:    boot.Settings.EventsPerRound,
			WheelEventsCount:  boot.Settings.WheelEventsCount,
			TickInterval:      duration{game.DefaultTickInterval},
		},
		Archive: ArchiveConfig{
			Region:  "us-east-1",
			Prefix:  "moneyrush",
			UseSSL:  true,
			Timeout: duration{30 * time.Second},
		},
	}
}

// Bootstrap converts the game section into engine seed values.
func (c *Config) Bootstrap() game.Bootstrap {
	return game.Bootstrap{
		Meta: model.Meta{
			EventName: c.Game.EventName,
			GameName:  c.Game.GameName,
			Copyright: c.Game.Copyright,
		},
		AdminPIN: c.Game.AdminPIN,
		Settings: model.Settings{
			StartingMoney:     c.Game.StartingMoney,
			RoundsTotal:       c.Game.RoundsTotal,
			MarketOpenSeconds: c.Game.MarketOpenSeconds,
			TradingSeconds:    c.Game.TradingSeconds,
			EventsPerRound:    c.Game.EventsPerRound,
			WheelEventsCount:  c.Game.WheelEventsCount,
		},
	}
}

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate checks the configuration for values the server cannot start with.
// All problems are reported together.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}
	if c.Server.Addr == "" {
		errs = append(errs, "server: addr must not be empty")
	}
	if c.Server.SessionTTL.Duration <= 0 {
		errs = append(errs, "server: session_ttl must be positive")
	}

	switch c.Store.Kind {
	case StoreMemory:
	case StoreFile:
		if c.Store.Path == "" {
			errs = append(errs, "store: path is required for the file store")
		}
	case StorePostgres:
		if c.Store.PostgresDSN == "" {
			errs = append(errs, "store: postgres_dsn is required for the postgres store")
		}
	default:
		errs = append(errs, fmt.Sprintf("store: unknown kind %q (valid: memory, file, postgres)", c.Store.Kind))
	}
	if c.Store.RedisURL != "" && c.Store.Kind != StorePostgres {
		errs = append(errs, "store: redis_url requires the postgres store")
	}

	if c.Game.AdminPIN == "" {
		errs = append(errs, "game: admin_pin must not be empty")
	}
	if !c.Game.StartingMoney.IsPositive() {
		errs = append(errs, "game: starting_money must be positive")
	}
	for _, f := range []struct {
		name string
		v    int
	}{
		{"rounds_total", c.Game.RoundsTotal},
		{"market_open_seconds", c.Game.MarketOpenSeconds},
		{"trading_seconds", c.Game.TradingSeconds},
		{"events_per_round", c.Game.EventsPerRound},
		{"wheel_events_count", c.Game.WheelEventsCount},
	} {
		if f.v <= 0 {
			errs = append(errs, fmt.Sprintf("game: %s must be positive", f.name))
		}
	}
	if c.Game.AutoAdvance && c.Game.TickInterval.Duration <= 0 {
		errs = append(errs, "game: tick_interval must be positive when auto_advance is on")
	}

	if c.Archive.Enabled {
		if c.Archive.Bucket == "" {
			errs = append(errs, "archive: bucket is required when enabled")
		}
		if c.Archive.Region == "" {
			errs = append(errs, "archive: region is required when enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
