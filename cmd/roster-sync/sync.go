package main

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/baseball-sim/matchup-engine/models"
)

// Feed is the upstream surface the sync reads
type Feed interface {
	FetchTeams(ctx context.Context) ([]models.Team, error)
	FetchRoster(ctx context.Context, teamID int) ([]models.Player, error)
	FetchSeasonStats(ctx context.Context, playerID int, group models.StatGroup, season int) (*models.SeasonStat, error)
}

// Snapshots is where synced data lands
type Snapshots interface {
	UpsertTeams(ctx context.Context, teams []models.Team) error
	ReplaceRoster(ctx context.Context, teamID int, players []models.Player) error
	UpsertSeasonStat(ctx context.Context, stat *models.SeasonStat) error
}

type syncOptions struct {
	Season    int
	Workers   int
	TeamIDs   []int // empty syncs every team
	SkipStats bool
}

type syncResult struct {
	Teams   int
	Players int
	Stats   int
	Failed  int
}

type syncer struct {
	feed   Feed
	dst    Snapshots
	logger *zap.Logger
}

// Run copies teams, rosters and season lines into dst. Only the team list is
// required; a failed roster or stat line is logged and counted.
func (s *syncer) Run(ctx context.Context, opts syncOptions) (syncResult, error) {
	var res syncResult

	teams, err := s.feed.FetchTeams(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to fetch teams: %w", err)
	}
	if err := s.dst.UpsertTeams(ctx, teams); err != nil {
		return res, err
	}
	res.Teams = len(teams)

	wanted := make(map[int]bool, len(opts.TeamIDs))
	for _, id := range opts.TeamIDs {
		wanted[id] = true
	}

	var players, stats, failed atomic.Int64
	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, team := range teams {
		if len(wanted) > 0 && !wanted[team.ID] {
			continue
		}
		roster, err := s.feed.FetchRoster(ctx, team.ID)
		if err != nil {
			s.logger.Warn("roster unavailable", zap.Int("team_id", team.ID), zap.Error(err))
			failed.Add(1)
			continue
		}
		if err := s.dst.ReplaceRoster(ctx, team.ID, roster); err != nil {
			s.logger.Warn("failed to store roster", zap.Int("team_id", team.ID), zap.Error(err))
			failed.Add(1)
			continue
		}
		players.Add(int64(len(roster)))
		if opts.SkipStats {
			continue
		}

		for _, p := range roster {
			group := models.GroupHitting
			if p.IsPitcher() {
				group = models.GroupPitching
			}
			g.Go(func() error {
				stat, err := s.feed.FetchSeasonStats(gctx, p.ID, group, opts.Season)
				if err == nil && stat != nil {
					err = s.dst.UpsertSeasonStat(gctx, stat)
				}
				if err != nil {
					s.logger.Warn("failed to sync season stats",
						zap.Int("player_id", p.ID),
						zap.String("group", string(group)),
						zap.Error(err))
					failed.Add(1)
					return nil
				}
				if stat != nil {
					stats.Add(1)
				}
				return nil
			})
		}
	}
	_ = g.Wait()

	res.Players = int(players.Load())
	res.Stats = int(stats.Load())
	res.Failed = int(failed.Load())
	return res, ctx.Err()
}
