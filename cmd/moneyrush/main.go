package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/moneyrush/round-engine/internal/catalog"
	"github.com/moneyrush/round-engine/internal/config"
	"github.com/moneyrush/round-engine/internal/store"
)

func main() {
	var cfgPath string

	root := &cobra.Command{
		Use:          "moneyrush",
		Short:        "Money Rush round engine",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", os.Getenv("MONEYRUSH_CONFIG"), "path to a TOML config file")

	root.AddCommand(
		newServeCmd(&cfgPath),
		newReportCmd(&cfgPath),
		newCatalogCmd(&cfgPath),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func loadCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	if cfg.Catalog.Path == "" {
		return catalog.Default(), nil
	}
	return catalog.Load(cfg.Catalog.Path)
}

// openStore builds the configured snapshot store. The returned cleanup
// closes any connections it opened.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	var cleanup []func()
	closeAll := func() {
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
	}

	switch cfg.Store.Kind {
	case config.StoreMemory:
		slog.Warn("using in-memory store (data will not persist)")
		return store.NewMemoryStore(), closeAll, nil

	case config.StoreFile:
		slog.Info("using file store", "path", cfg.Store.Path)
		return store.NewFileStore(cfg.Store.Path), closeAll, nil

	case config.StorePostgres:
		pool, err := pgxpool.New(ctx, cfg.Store.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("database connection failed: %w", err)
		}
		cleanup = append(cleanup, pool.Close)

		pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := pool.Ping(pctx); err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("database ping failed: %w", err)
		}
		pg := store.NewPostgresStore(pool, cfg.Store.GameKey)
		if err := pg.EnsureSchema(pctx); err != nil {
			closeAll()
			return nil, nil, err
		}
		slog.Info("connected to PostgreSQL")

		var st store.Store = pg
		if cfg.Store.RedisURL != "" {
			opt, err := redis.ParseURL(cfg.Store.RedisURL)
			if err != nil {
				closeAll()
				return nil, nil, fmt.Errorf("invalid redis_url: %w", err)
			}
			rdb := redis.NewClient(opt)
			cleanup = append(cleanup, func() { rdb.Close() })
			st = store.NewCachedStore(pg, rdb, cfg.Store.CacheTTL.Duration, cfg.Store.GameKey, slog.Default())
			slog.Info("Redis cache enabled", "ttl", cfg.Store.CacheTTL.Duration.String())
		}
		return st, closeAll, nil
	}
	return nil, nil, fmt.Errorf("unknown store kind %q", cfg.Store.Kind)
}
