package report

import (
	"context"

	"github.com/baseball-sim/matchup-engine/models"
)

// StatLookup resolves a hitter's season line however it is stored.
// A nil stat with a nil error means the hitter has no line.
type StatLookup interface {
	HittingStats(ctx context.Context, playerID, season int) (*models.SeasonStat, error)
}

// Feed is the upstream surface the builder depends on
type Feed interface {
	FetchSchedule(ctx context.Context, date string) ([]models.ScheduledGame, error)
	FetchRoster(ctx context.Context, teamID int) ([]models.Player, error)
	FetchSeasonStats(ctx context.Context, playerID int, group models.StatGroup, season int) (*models.SeasonStat, error)
	FetchGameLog(ctx context.Context, playerID int, group models.StatGroup, season int) ([]models.GameLogEntry, error)
	FetchPlayByPlay(ctx context.Context, gameID int) ([]models.PlateAppearanceEvent, error)
	FetchTeamMatchupGames(ctx context.Context, teamID, opponentID, season int) ([]models.GameRef, error)
}

// SlateCache is the date-keyed store for fetched slates
type SlateCache interface {
	Get(date string, forceRefresh bool) ([]models.ScheduledGame, bool)
	Put(date string, games []models.ScheduledGame) error
}

// FeedStatLookup adapts the feed to StatLookup
type FeedStatLookup struct {
	feed Feed
}

// NewFeedStatLookup creates a new adapter
func NewFeedStatLookup(feed Feed) *FeedStatLookup {
	return &FeedStatLookup{feed: feed}
}

// HittingStats implements StatLookup
func (f *FeedStatLookup) HittingStats(ctx context.Context, playerID, season int) (*models.SeasonStat, error) {
	return f.feed.FetchSeasonStats(ctx, playerID, models.GroupHitting, season)
}
