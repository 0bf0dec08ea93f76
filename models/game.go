package models

import (
	"strings"
	"time"
)

// DateLayout is the ISO calendar date format used for slate keys
const DateLayout = "2006-01-02"

// TBDName is the display name used when no probable pitcher is announced
const TBDName = "TBD"

// GameStatus is the coarse state of a scheduled game
type GameStatus string

const (
	StatusScheduled GameStatus = "Scheduled"
	StatusLive      GameStatus = "Live"
	StatusFinal     GameStatus = "Final"
	StatusOther     GameStatus = "Other"
)

// ParseGameStatus maps the feed's abstract/detailed state onto GameStatus
func ParseGameStatus(abstract, detailed string) GameStatus {
	switch strings.ToLower(strings.TrimSpace(abstract)) {
	case "final":
		return StatusFinal
	case "live":
		return StatusLive
	case "preview":
		return StatusScheduled
	}
	switch strings.ToLower(strings.TrimSpace(detailed)) {
	case "final", "game over", "completed early":
		return StatusFinal
	case "in progress", "manager challenge", "delayed":
		return StatusLive
	case "scheduled", "pre-game", "warmup":
		return StatusScheduled
	}
	return StatusOther
}

// ProbablePitcher is the announced starter for one side. A nil ID means TBD.
type ProbablePitcher struct {
	ID       *int        `json:"id"`
	FullName string      `json:"full_name"`
	Stats    *SeasonStat `json:"stats,omitempty"`
}

// TBDPitcher returns the sentinel used when no starter is announced
func TBDPitcher() ProbablePitcher {
	return ProbablePitcher{FullName: TBDName}
}

// IsTBD reports whether the starter is unknown
func (p ProbablePitcher) IsTBD() bool {
	return p.ID == nil || strings.EqualFold(p.FullName, TBDName)
}

// ScheduledGame is one game of a daily slate with probable pitchers attached
type ScheduledGame struct {
	GameID      int             `json:"game_id"`
	Date        string          `json:"date"`
	GameTime    *time.Time      `json:"game_time,omitempty"`
	Status      GameStatus      `json:"status"`
	HomeTeam    TeamRef         `json:"home_team"`
	AwayTeam    TeamRef         `json:"away_team"`
	HomePitcher ProbablePitcher `json:"home_pitcher"`
	AwayPitcher ProbablePitcher `json:"away_pitcher"`
	Venue       string          `json:"venue,omitempty"`
}

// GameRef is a completed game identified by id and official date
type GameRef struct {
	ID   int    `json:"id"`
	Date string `json:"date"`
}

// SeasonOf returns the MLB season a calendar date belongs to. The season
// runs March through October, so January and February map to the prior year.
func SeasonOf(t time.Time) int {
	if t.Month() < time.March {
		return t.Year() - 1
	}
	return t.Year()
}

// ParseDate parses an ISO calendar date in loc
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation(DateLayout, strings.TrimSpace(s), loc)
}
