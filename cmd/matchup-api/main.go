package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/baseball-sim/matchup-engine/api"
	"github.com/baseball-sim/matchup-engine/config"
	"github.com/baseball-sim/matchup-engine/matchupcache"
	"github.com/baseball-sim/matchup-engine/metrics"
	"github.com/baseball-sim/matchup-engine/obslog"
	"github.com/baseball-sim/matchup-engine/report"
	"github.com/baseball-sim/matchup-engine/statsfeed"
	"github.com/baseball-sim/matchup-engine/store"
	"github.com/baseball-sim/matchup-engine/streakboard"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "matchup-api:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := obslog.New(obslog.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	m := metrics.New()
	loc := cfg.Location()

	feed := statsfeed.NewClient(statsfeed.Options{
		BaseURL:      cfg.Feed.BaseURL,
		LiveBaseURL:  cfg.Feed.LiveBaseURL,
		UserAgent:    cfg.Feed.UserAgent,
		Timeout:      cfg.Feed.Timeout,
		Retries:      cfg.Feed.Retries,
		RetryBackoff: cfg.Feed.RetryBackoff,
		Logger:       logger.Named("feed"),
	})

	cache, err := matchupcache.New(matchupcache.Options{
		Dir:      cfg.Cache.Dir,
		Location: loc,
		Logger:   logger.Named("cache"),
		Metrics:  m,
	})
	if err != nil {
		return err
	}

	deps := api.Deps{
		Cache:   cache,
		Teams:   feed,
		Metrics: m,
		Logger:  logger.Named("api"),
	}

	var stats report.StatLookup
	if cfg.DB.Enabled {
		pool, err := store.NewPool(context.Background(), cfg.DB)
		if err != nil {
			return err
		}
		defer pool.Close()

		st := store.New(pool, logger.Named("store"))
		if err := st.Migrate(context.Background()); err != nil {
			return err
		}
		deps.DB = st
		deps.Picks = st
		if cfg.Report.StatSource == "postgres" {
			stats = st
		}
		logger.Info("connected to database", zap.String("host", cfg.DB.Host), zap.String("stat_source", cfg.Report.StatSource))
	}

	builder := report.NewBuilder(feed, cache, stats, report.Options{
		Workers:      cfg.Report.Workers,
		StreakWindow: cfg.Report.StreakWindow,
		FetchTimeout: cfg.Report.FetchTimeout,
		Season:       cfg.Season,
		Location:     loc,
		Logger:       logger.Named("report"),
		Metrics:      m,
	})
	deps.Reports = builder

	if cfg.Redis.Enabled {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("failed to parse redis URL: %w", err)
		}
		client := redis.NewClient(opts)
		defer client.Close()

		if err := client.Ping(context.Background()).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		board := streakboard.NewBoard(client, cfg.Redis.TTL)
		deps.Streaks = streakboard.NewScanner(feed, board, streakboard.ScannerOptions{
			Workers: cfg.Report.Workers,
			Window:  cfg.Report.StreakWindow,
			Logger:  logger.Named("streaks"),
			Metrics: m,
		})
		logger.Info("connected to redis")
	}

	server := api.NewServer(deps, api.Options{
		Port:           cfg.Port,
		RatePerMinute:  cfg.RateLimit.PerMinute,
		RateBurst:      cfg.RateLimit.Burst,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		IncludeH2H:     cfg.Report.IncludeH2H,
		Season:         cfg.Season,
		Location:       loc,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-sigChan:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info("server shutdown complete")
	return nil
}
