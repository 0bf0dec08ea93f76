package statsfeed

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/baseball-sim/matchup-engine/models"
)

type pitcherJSON struct {
	ID       int    `json:"id"`
	FullName string `json:"fullName"`
}

type scheduleSide struct {
	Team struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"team"`
	ProbablePitcher *pitcherJSON `json:"probablePitcher"`
}

type scheduleGame struct {
	GamePk       int    `json:"gamePk"`
	GameDate     string `json:"gameDate"`
	OfficialDate string `json:"officialDate"`
	Status       struct {
		AbstractGameState string `json:"abstractGameState"`
		DetailedState     string `json:"detailedState"`
	} `json:"status"`
	Teams struct {
		Home scheduleSide `json:"home"`
		Away scheduleSide `json:"away"`
	} `json:"teams"`
	Venue struct {
		Name string `json:"name"`
	} `json:"venue"`
}

type scheduleResponse struct {
	Dates []struct {
		Date  string         `json:"date"`
		Games []scheduleGame `json:"games"`
	} `json:"dates"`
}

type boxscoreResponse struct {
	Teams struct {
		Home struct {
			ProbablePitcher *pitcherJSON `json:"probablePitcher"`
		} `json:"home"`
		Away struct {
			ProbablePitcher *pitcherJSON `json:"probablePitcher"`
		} `json:"away"`
	} `json:"teams"`
}

// FetchSchedule returns the games scheduled on date (YYYY-MM-DD) with probable
// pitchers. Stats are not attached here. When the schedule carries no probable
// pitcher for either side, the game's boxscore is consulted as a fallback.
func (c *Client) FetchSchedule(ctx context.Context, date string) ([]models.ScheduledGame, error) {
	const op = "schedule"
	endpoint := c.baseURL + "/schedule"

	var resp scheduleResponse
	params := url.Values{
		"sportId": {mlbSportID},
		"date":    {date},
		"hydrate": {"probablePitcher"},
	}
	if err := c.getJSON(ctx, op, endpoint, params, &resp); err != nil {
		return nil, err
	}
	// An off day comes back with an empty (or absent) dates list
	if len(resp.Dates) == 0 {
		return []models.ScheduledGame{}, nil
	}

	games := make([]models.ScheduledGame, 0, len(resp.Dates[0].Games))
	for _, g := range resp.Dates[0].Games {
		if g.GamePk == 0 {
			continue
		}
		game := convertScheduleGame(g, date)

		if g.Teams.Home.ProbablePitcher == nil && g.Teams.Away.ProbablePitcher == nil {
			home, away, err := c.fetchBoxscorePitchers(ctx, g.GamePk)
			if err != nil {
				c.logger.Warn("boxscore fallback failed",
					zap.Int("game_id", g.GamePk),
					zap.Error(err))
			} else {
				game.HomePitcher = home
				game.AwayPitcher = away
			}
		}
		games = append(games, game)
	}
	return games, nil
}

func (c *Client) fetchBoxscorePitchers(ctx context.Context, gameID int) (models.ProbablePitcher, models.ProbablePitcher, error) {
	endpoint := fmt.Sprintf("%s/game/%d/boxscore", c.baseURL, gameID)

	var resp boxscoreResponse
	if err := c.getJSON(ctx, "boxscore", endpoint, nil, &resp); err != nil {
		return models.TBDPitcher(), models.TBDPitcher(), err
	}
	return probable(resp.Teams.Home.ProbablePitcher), probable(resp.Teams.Away.ProbablePitcher), nil
}

// FetchTeamMatchupGames returns completed games between two teams in a season
func (c *Client) FetchTeamMatchupGames(ctx context.Context, teamID, opponentID, season int) ([]models.GameRef, error) {
	const op = "team_matchup_games"
	endpoint := c.baseURL + "/schedule"

	var resp scheduleResponse
	params := url.Values{
		"sportId":    {mlbSportID},
		"teamId":     {strconv.Itoa(teamID)},
		"opponentId": {strconv.Itoa(opponentID)},
		"startDate":  {fmt.Sprintf("%d-03-01", season)},
		"endDate":    {fmt.Sprintf("%d-10-31", season)},
	}
	if err := c.getJSON(ctx, op, endpoint, params, &resp); err != nil {
		return nil, err
	}

	var games []models.GameRef
	for _, d := range resp.Dates {
		for _, g := range d.Games {
			status := models.ParseGameStatus(g.Status.AbstractGameState, g.Status.DetailedState)
			if g.GamePk == 0 || status != models.StatusFinal {
				continue
			}
			date := g.OfficialDate
			if date == "" {
				date = d.Date
			}
			games = append(games, models.GameRef{ID: g.GamePk, Date: date})
		}
	}
	return games, nil
}

func convertScheduleGame(g scheduleGame, date string) models.ScheduledGame {
	game := models.ScheduledGame{
		GameID:      g.GamePk,
		Date:        g.OfficialDate,
		Status:      models.ParseGameStatus(g.Status.AbstractGameState, g.Status.DetailedState),
		HomeTeam:    models.TeamRef{ID: g.Teams.Home.Team.ID, Name: g.Teams.Home.Team.Name},
		AwayTeam:    models.TeamRef{ID: g.Teams.Away.Team.ID, Name: g.Teams.Away.Team.Name},
		HomePitcher: probable(g.Teams.Home.ProbablePitcher),
		AwayPitcher: probable(g.Teams.Away.ProbablePitcher),
		Venue:       g.Venue.Name,
	}
	if game.Date == "" {
		game.Date = date
	}
	if t, err := time.Parse(time.RFC3339, g.GameDate); err == nil {
		game.GameTime = &t
	}
	return game
}

func probable(p *pitcherJSON) models.ProbablePitcher {
	if p == nil || p.ID == 0 {
		return models.TBDPitcher()
	}
	id := p.ID
	name := p.FullName
	if name == "" {
		name = "Unknown"
	}
	return models.ProbablePitcher{ID: &id, FullName: name}
}
