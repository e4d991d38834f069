package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/moneyrush/round-engine/internal/api"
	"github.com/moneyrush/round-engine/internal/archive"
	"github.com/moneyrush/round-engine/internal/config"
	"github.com/moneyrush/round-engine/internal/game"
	"github.com/moneyrush/round-engine/internal/model"
)

func newServeCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the game server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(parent context.Context, cfg *config.Config) error {
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cat, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	opts := []game.Option{game.WithLogger(logger)}
	if cfg.Archive.Enabled {
		w, err := archive.NewS3Writer(ctx, archive.S3Config{
			Endpoint:       cfg.Archive.Endpoint,
			Region:         cfg.Archive.Region,
			Bucket:         cfg.Archive.Bucket,
			AccessKey:      cfg.Archive.AccessKey,
			SecretKey:      cfg.Archive.SecretKey,
			UseSSL:         cfg.Archive.UseSSL,
			ForcePathStyle: cfg.Archive.ForcePathStyle,
		})
		if err != nil {
			return err
		}
		opts = append(opts, game.WithArchiver(timeoutArchiver{
			Archiver: archive.New(w, cfg.Archive.Prefix),
			timeout:  cfg.Archive.Timeout.Duration,
		}))
		slog.Info("results archive enabled", "bucket", cfg.Archive.Bucket, "prefix", cfg.Archive.Prefix)
	}

	engine, err := game.New(ctx, cat, st, cfg.Bootstrap(), opts...)
	if err != nil {
		return fmt.Errorf("start engine: %w", err)
	}

	srv := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: api.New(engine, api.Options{
			Logger:         logger,
			RequestTimeout: cfg.Server.RequestTimeout.Duration,
			SessionTTL:     cfg.Server.SessionTTL.Duration,
			Static:         cfg.Server.Static,
		}).Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
		IdleTimeout:  cfg.Server.IdleTimeout.Duration,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("moneyrush listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down moneyrush...")
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	if cfg.Game.AutoAdvance {
		sched := game.NewScheduler(engine, cfg.Game.TickInterval.Duration)
		g.Go(func() error { return sched.Run(gctx) })
	}

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("moneyrush stopped")
	return nil
}

// timeoutArchiver bounds each export by the configured timeout.
type timeoutArchiver struct {
	*archive.Archiver
	timeout time.Duration
}

func (a timeoutArchiver) Archive(ctx context.Context, snap *model.Snapshot) error {
	if a.timeout <= 0 {
		return a.Archiver.Archive(ctx, snap)
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return a.Archiver.Archive(ctx, snap)
}
