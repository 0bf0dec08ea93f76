package report

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/baseball-sim/matchup-engine/analytics"
	"github.com/baseball-sim/matchup-engine/metrics"
	"github.com/baseball-sim/matchup-engine/models"
)

// StreakView is a single hitter's current streak as of a date
type StreakView struct {
	PlayerID int                   `json:"player_id"`
	Date     string                `json:"date"`
	Season   int                   `json:"season"`
	Window   int                   `json:"window"`
	Streak   int                   `json:"streak"`
	Recent   []models.GameLogEntry `json:"recent_games"`
}

// PlayerStreak computes a hitter's streak as of date. Unlike report
// assembly, a feed failure here is returned to the caller.
func (b *Builder) PlayerStreak(ctx context.Context, playerID int, date string) (*StreakView, error) {
	day, err := b.ParseDate(date)
	if err != nil {
		return nil, err
	}
	season := b.seasonFor(day)
	asOf := b.asOf(day)

	log, err := call(ctx, b, func(ctx context.Context) ([]models.GameLogEntry, error) {
		return b.feed.FetchGameLog(ctx, playerID, models.GroupHitting, season)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch game log for player %d: %w", playerID, err)
	}

	return &StreakView{
		PlayerID: playerID,
		Date:     date,
		Season:   season,
		Window:   b.streakWindow,
		Streak:   analytics.HitStreak(log, asOf, b.streakWindow),
		Recent:   analytics.RecentGames(log, asOf.AddDate(0, 0, 1), b.streakWindow),
	}, nil
}

// RecentGames returns a player's last n games played before date
func (b *Builder) RecentGames(ctx context.Context, playerID int, group models.StatGroup, date string, n int) ([]models.GameLogEntry, error) {
	day, err := b.ParseDate(date)
	if err != nil {
		return nil, err
	}
	if !group.Valid() {
		return nil, fmt.Errorf("unknown stat group %q", group)
	}

	log, err := call(ctx, b, func(ctx context.Context) ([]models.GameLogEntry, error) {
		return b.feed.FetchGameLog(ctx, playerID, group, b.seasonFor(day))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch game log for player %d: %w", playerID, err)
	}
	return analytics.RecentGames(log, day, n), nil
}

// ErrInvalidMatchup is returned when a head-to-head lookup lacks a player or
// a team cannot be determined for one
var ErrInvalidMatchup = errors.New("invalid matchup")

// Matchup identifies a batter-vs-pitcher lookup outside of a report. Zero team
// ids are resolved from the players' season lines; a zero season is the
// current one.
type Matchup struct {
	BatterID      int
	BatterTeamID  int
	PitcherID     int
	PitcherTeamID int
	Season        int
}

// HeadToHeadView is a resolved lookup and its line
type HeadToHeadView struct {
	BatterID      int               `json:"batter_id"`
	BatterTeamID  int               `json:"batter_team_id"`
	PitcherID     int               `json:"pitcher_id"`
	PitcherTeamID int               `json:"pitcher_team_id"`
	Season        int               `json:"season"`
	H2H           analytics.H2HLine `json:"h2h"`
}

// HeadToHead resolves one pair's line for a season. The batter's game log
// feeds the approximate fallback; without it the fallback is 0-0.
func (b *Builder) HeadToHead(ctx context.Context, m Matchup) (*HeadToHeadView, error) {
	if m.BatterID <= 0 || m.PitcherID <= 0 {
		return nil, fmt.Errorf("%w: batter and pitcher ids are required", ErrInvalidMatchup)
	}
	now := b.now().In(b.loc)
	if m.Season <= 0 {
		m.Season = b.seasonFor(now)
	}

	var err error
	if m.BatterTeamID <= 0 {
		if m.BatterTeamID, err = b.playerTeam(ctx, m.BatterID, models.GroupHitting, m.Season); err != nil {
			return nil, err
		}
	}
	if m.PitcherTeamID <= 0 {
		if m.PitcherTeamID, err = b.playerTeam(ctx, m.PitcherID, models.GroupPitching, m.Season); err != nil {
			return nil, err
		}
	}

	r := &run{
		asOf:   now,
		season: m.Season,
		memo:   analytics.NewH2HMemo(),
	}

	log, err := call(ctx, b, func(ctx context.Context) ([]models.GameLogEntry, error) {
		return b.feed.FetchGameLog(ctx, m.BatterID, models.GroupHitting, m.Season)
	})
	if err != nil {
		b.swallow(metrics.GameLog, "game log unavailable for h2h fallback", err, zap.Int("player_id", m.BatterID))
	}

	return &HeadToHeadView{
		BatterID:      m.BatterID,
		BatterTeamID:  m.BatterTeamID,
		PitcherID:     m.PitcherID,
		PitcherTeamID: m.PitcherTeamID,
		Season:        m.Season,
		H2H:           b.resolveH2H(ctx, r, m.BatterID, m.BatterTeamID, m.PitcherID, m.PitcherTeamID, log),
	}, nil
}

// playerTeam reads the club a player's season line was recorded for
func (b *Builder) playerTeam(ctx context.Context, playerID int, group models.StatGroup, season int) (int, error) {
	stat, err := call(ctx, b, func(ctx context.Context) (*models.SeasonStat, error) {
		return b.feed.FetchSeasonStats(ctx, playerID, group, season)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to fetch %s stats for player %d: %w", group, playerID, err)
	}
	if stat == nil || stat.TeamID == 0 {
		return 0, fmt.Errorf("%w: no %d %s team for player %d", ErrInvalidMatchup, season, group, playerID)
	}
	return stat.TeamID, nil
}
