package statsfeed

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/baseball-sim/matchup-engine/models"
)

type teamsResponse struct {
	Teams []struct {
		ID           int    `json:"id"`
		Name         string `json:"name"`
		Abbreviation string `json:"abbreviation"`
		League       struct {
			Name string `json:"name"`
		} `json:"league"`
		Division struct {
			Name string `json:"name"`
		} `json:"division"`
		Sport struct {
			ID int `json:"id"`
		} `json:"sport"`
	} `json:"teams"`
}

type rosterResponse struct {
	Roster []struct {
		Person struct {
			ID       int    `json:"id"`
			FullName string `json:"fullName"`
		} `json:"person"`
		Position struct {
			Abbreviation string `json:"abbreviation"`
		} `json:"position"`
		ParentTeamID int `json:"parentTeamId"`
	} `json:"roster"`
}

type statsResponse struct {
	Stats []struct {
		Splits []statSplit `json:"splits"`
	} `json:"stats"`
}

type statSplit struct {
	Date   string         `json:"date"`
	Season string         `json:"season"`
	IsWin  *bool          `json:"isWin"`
	Stat   map[string]any `json:"stat"`
	Team   struct {
		ID int `json:"id"`
	} `json:"team"`
	Opponent struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"opponent"`
	Game struct {
		GamePk int `json:"gamePk"`
	} `json:"game"`
}

// FetchTeams lists MLB teams
func (c *Client) FetchTeams(ctx context.Context) ([]models.Team, error) {
	const op = "teams"
	endpoint := c.baseURL + "/teams"

	var resp teamsResponse
	if err := c.getJSON(ctx, op, endpoint, url.Values{"sportId": {mlbSportID}}, &resp); err != nil {
		return nil, err
	}
	if resp.Teams == nil {
		return nil, malformed(op, endpoint, "response has no teams list")
	}

	teams := make([]models.Team, 0, len(resp.Teams))
	for _, t := range resp.Teams {
		if t.ID == 0 {
			continue
		}
		// The listing occasionally includes affiliates when sportId is ignored
		if t.Sport.ID != 0 && t.Sport.ID != 1 {
			continue
		}
		teams = append(teams, models.Team{
			ID:           t.ID,
			Name:         t.Name,
			Abbreviation: t.Abbreviation,
			League:       t.League.Name,
			Division:     t.Division.Name,
		})
	}
	return teams, nil
}

// FetchRoster returns the active roster for a team
func (c *Client) FetchRoster(ctx context.Context, teamID int) ([]models.Player, error) {
	const op = "roster"
	endpoint := fmt.Sprintf("%s/teams/%d/roster", c.baseURL, teamID)

	var resp rosterResponse
	if err := c.getJSON(ctx, op, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Roster == nil {
		return nil, malformed(op, endpoint, "response has no roster for team %d", teamID)
	}

	players := make([]models.Player, 0, len(resp.Roster))
	for _, r := range resp.Roster {
		if r.Person.ID == 0 {
			continue
		}
		players = append(players, models.Player{
			ID:       r.Person.ID,
			FullName: r.Person.FullName,
			Position: r.Position.Abbreviation,
			TeamID:   teamID,
		})
	}
	return players, nil
}

// FetchSeasonStats returns a player's season aggregate for the group.
// A nil stat with a nil error means the player has no line for the season.
func (c *Client) FetchSeasonStats(ctx context.Context, playerID int, group models.StatGroup, season int) (*models.SeasonStat, error) {
	const op = "season_stats"
	endpoint := fmt.Sprintf("%s/people/%d/stats", c.baseURL, playerID)

	var resp statsResponse
	params := url.Values{
		"stats":  {"season"},
		"group":  {string(group)},
		"season": {strconv.Itoa(season)},
	}
	if err := c.getJSON(ctx, op, endpoint, params, &resp); err != nil {
		return nil, err
	}
	if resp.Stats == nil {
		return nil, malformed(op, endpoint, "response has no stats list")
	}
	if len(resp.Stats) == 0 || len(resp.Stats[0].Splits) == 0 {
		return nil, nil
	}

	splits := resp.Stats[0].Splits
	if splits[0].Stat == nil {
		return nil, malformed(op, endpoint, "season split has no stat object")
	}
	stat := models.NewSeasonStat(playerID, season, group, splits[0].Stat)
	// Traded players get one split per club; the last one is the current club
	for _, s := range splits {
		if s.Team.ID != 0 {
			stat.TeamID = s.Team.ID
		}
	}
	return stat, nil
}

// FetchGameLog returns every game-log entry for the season, in feed order
func (c *Client) FetchGameLog(ctx context.Context, playerID int, group models.StatGroup, season int) ([]models.GameLogEntry, error) {
	const op = "game_log"
	endpoint := fmt.Sprintf("%s/people/%d/stats", c.baseURL, playerID)

	var resp statsResponse
	params := url.Values{
		"stats":  {"gameLog"},
		"group":  {string(group)},
		"season": {strconv.Itoa(season)},
	}
	if err := c.getJSON(ctx, op, endpoint, params, &resp); err != nil {
		return nil, err
	}
	if resp.Stats == nil {
		return nil, malformed(op, endpoint, "response has no stats list")
	}
	if len(resp.Stats) == 0 {
		return []models.GameLogEntry{}, nil
	}

	entries := make([]models.GameLogEntry, 0, len(resp.Stats[0].Splits))
	for _, s := range resp.Stats[0].Splits {
		entry := models.GameLogEntry{
			PlayerID: playerID,
			GameID:   s.Game.GamePk,
			Date:     s.Date,
			Opponent: models.TeamRef{ID: s.Opponent.ID, Name: s.Opponent.Name},
			IsWin:    s.IsWin,
			Stats:    make(map[string]float64, len(s.Stat)),
		}
		for name, value := range s.Stat {
			if f, ok := models.ParseStatValue(value); ok {
				entry.Stats[name] = f
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
