package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/baseball-sim/matchup-engine/config"
	"github.com/baseball-sim/matchup-engine/models"
	"github.com/baseball-sim/matchup-engine/obslog"
	"github.com/baseball-sim/matchup-engine/statsfeed"
	"github.com/baseball-sim/matchup-engine/store"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "roster-sync:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("roster-sync", pflag.ContinueOnError)
	season := flags.Int("season", 0, "season to sync (default: current season)")
	workers := flags.Int("workers", 0, "concurrent stat fetches (default: report.workers)")
	teams := flags.IntSlice("team", nil, "team id to sync; repeat for several (default: all)")
	skipStats := flags.Bool("skip-stats", false, "sync teams and rosters only")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if *season == 0 {
		*season = cfg.Season
	}
	if *season == 0 {
		*season = models.SeasonOf(time.Now().In(cfg.Location()))
	}
	if *workers == 0 {
		*workers = cfg.Report.Workers
	}

	logger, err := obslog.New(obslog.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := store.NewPool(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer pool.Close()

	st := store.New(pool, logger.Named("store"))
	if err := st.Migrate(ctx); err != nil {
		return err
	}

	feed := statsfeed.NewClient(statsfeed.Options{
		BaseURL:      cfg.Feed.BaseURL,
		LiveBaseURL:  cfg.Feed.LiveBaseURL,
		UserAgent:    cfg.Feed.UserAgent,
		Timeout:      cfg.Feed.Timeout,
		Retries:      cfg.Feed.Retries,
		RetryBackoff: cfg.Feed.RetryBackoff,
		Logger:       logger.Named("feed"),
	})

	start := time.Now()
	s := &syncer{feed: feed, dst: st, logger: logger}
	res, err := s.Run(ctx, syncOptions{
		Season:    *season,
		Workers:   *workers,
		TeamIDs:   *teams,
		SkipStats: *skipStats,
	})
	if err != nil {
		return err
	}

	logger.Info("roster sync complete",
		zap.Int("season", *season),
		zap.Int("teams", res.Teams),
		zap.Int("players", res.Players),
		zap.Int("stat_lines", res.Stats),
		zap.Int("failed", res.Failed),
		zap.Duration("took", time.Since(start)))
	return nil
}
