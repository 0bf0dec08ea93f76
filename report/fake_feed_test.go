package report

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/baseball-sim/matchup-engine/models"
)

// fakeFeed is an in-memory Feed with per-entity failure injection
type fakeFeed struct {
	mu sync.Mutex

	schedule     map[string][]models.ScheduledGame
	scheduleErr  error
	scheduleGate chan struct{}
	pitching     map[int]*models.SeasonStat
	pitchingErr  map[int]error
	hitting      map[int]*models.SeasonStat
	hittingErr   map[int]error
	hittingBlock map[int]bool
	rosters      map[int][]models.Player
	rosterErr    map[int]error
	logs         map[int][]models.GameLogEntry
	teamGames    map[[2]int][]models.GameRef
	teamGamesErr error
	plays        map[int][]models.PlateAppearanceEvent
	playsErr     map[int]error
	calls        map[string]int
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{
		schedule:     map[string][]models.ScheduledGame{},
		pitching:     map[int]*models.SeasonStat{},
		pitchingErr:  map[int]error{},
		hitting:      map[int]*models.SeasonStat{},
		hittingErr:   map[int]error{},
		hittingBlock: map[int]bool{},
		rosters:      map[int][]models.Player{},
		rosterErr:    map[int]error{},
		logs:         map[int][]models.GameLogEntry{},
		teamGames:    map[[2]int][]models.GameRef{},
		plays:        map[int][]models.PlateAppearanceEvent{},
		playsErr:     map[int]error{},
		calls:        map[string]int{},
	}
}

func (f *fakeFeed) count(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[key]++
}

func (f *fakeFeed) Calls(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *fakeFeed) FetchSchedule(ctx context.Context, date string) ([]models.ScheduledGame, error) {
	f.count("schedule")
	if f.scheduleGate != nil {
		select {
		case <-f.scheduleGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.scheduleErr != nil {
		return nil, f.scheduleErr
	}
	games := f.schedule[date]
	out := make([]models.ScheduledGame, len(games))
	copy(out, games)
	return out, nil
}

func (f *fakeFeed) FetchRoster(ctx context.Context, teamID int) ([]models.Player, error) {
	f.count(fmt.Sprintf("roster:%d", teamID))
	if err := f.rosterErr[teamID]; err != nil {
		return nil, err
	}
	return f.rosters[teamID], nil
}

func (f *fakeFeed) FetchSeasonStats(ctx context.Context, playerID int, group models.StatGroup, season int) (*models.SeasonStat, error) {
	f.count(fmt.Sprintf("stats:%s:%d", group, playerID))
	if group == models.GroupPitching {
		if err := f.pitchingErr[playerID]; err != nil {
			return nil, err
		}
		return f.pitching[playerID], nil
	}
	if f.hittingBlock[playerID] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err := f.hittingErr[playerID]; err != nil {
		return nil, err
	}
	return f.hitting[playerID], nil
}

func (f *fakeFeed) FetchGameLog(ctx context.Context, playerID int, group models.StatGroup, season int) ([]models.GameLogEntry, error) {
	f.count(fmt.Sprintf("log:%d", playerID))
	return f.logs[playerID], nil
}

func (f *fakeFeed) FetchPlayByPlay(ctx context.Context, gameID int) ([]models.PlateAppearanceEvent, error) {
	f.count(fmt.Sprintf("plays:%d", gameID))
	if err := f.playsErr[gameID]; err != nil {
		return nil, err
	}
	return f.plays[gameID], nil
}

func (f *fakeFeed) FetchTeamMatchupGames(ctx context.Context, teamID, opponentID, season int) ([]models.GameRef, error) {
	f.count(fmt.Sprintf("team_games:%d:%d", teamID, opponentID))
	if f.teamGamesErr != nil {
		return nil, f.teamGamesErr
	}
	return f.teamGames[[2]int{teamID, opponentID}], nil
}

// memoryCache is a SlateCache without freshness rules
type memoryCache struct {
	mu    sync.Mutex
	games map[string][]models.ScheduledGame
	puts  int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{games: map[string][]models.ScheduledGame{}}
}

func (c *memoryCache) Get(date string, forceRefresh bool) ([]models.ScheduledGame, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if forceRefresh {
		return nil, false
	}
	g, ok := c.games[date]
	return g, ok
}

func (c *memoryCache) Put(date string, games []models.ScheduledGame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.games[date] = games
	c.puts++
	return nil
}

func (c *memoryCache) Puts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.puts
}

func intPtr(v int) *int { return &v }

func pitchingStat(id int, era, whip, hits9, avgAgainst, k9, bb9, ip float64) *models.SeasonStat {
	return &models.SeasonStat{
		PlayerID: id,
		Season:   2025,
		Group:    models.GroupPitching,
		Values: map[string]float64{
			"era":                   era,
			"whip":                  whip,
			"hitsPer9Inn":           hits9,
			"battingAverageAgainst": avgAgainst,
			"strikeoutsPer9Inn":     k9,
			"walksPer9Inn":          bb9,
			"inningsPitched":        ip,
		},
	}
}

func hittingStat(id int, avg float64) *models.SeasonStat {
	return &models.SeasonStat{
		PlayerID: id,
		Season:   2025,
		Group:    models.GroupHitting,
		Values: map[string]float64{
			"avg":         avg,
			"ops":         avg * 2.6,
			"homeRuns":    10,
			"rbi":         30,
			"gamesPlayed": 60,
		},
	}
}

var testNow = time.Date(2025, time.June, 6, 14, 0, 0, 0, time.UTC)
