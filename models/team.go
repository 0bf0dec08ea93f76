package models

import "strings"

// Team is immutable reference data looked up by id
type Team struct {
	ID           int    `json:"id" db:"id"`
	Name         string `json:"name" db:"name"`
	Abbreviation string `json:"abbreviation,omitempty" db:"abbreviation"`
	League       string `json:"league,omitempty" db:"league"`
	Division     string `json:"division,omitempty" db:"division"`
}

// TeamRef is the lightweight team reference carried on games and game logs
type TeamRef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Player is a point-in-time roster snapshot; TeamID is a lookup, not ownership
type Player struct {
	ID       int    `json:"id" db:"id"`
	FullName string `json:"full_name" db:"full_name"`
	Position string `json:"position" db:"position"`
	Bats     string `json:"bats,omitempty" db:"bats"`
	Throws   string `json:"throws,omitempty" db:"throws"`
	TeamID   int    `json:"team_id" db:"team_id"`
}

// IsPitcher reports whether the player is listed at the pitcher position.
// Two-way players listed as "TWP" count as hitters.
func (p Player) IsPitcher() bool {
	return strings.EqualFold(strings.TrimSpace(p.Position), "P")
}

// cityPrefixes are stripped from team names for compact display
var cityPrefixes = []string{
	"Los Angeles ",
	"San Francisco ",
	"San Diego ",
	"New York ",
	"St. Louis ",
	"Kansas City ",
	"Tampa Bay ",
	"Washington ",
}

// ShortTeamName removes a known location prefix, e.g. "New York Yankees" -> "Yankees"
func ShortTeamName(name string) string {
	name = strings.TrimSpace(name)
	for _, prefix := range cityPrefixes {
		if strings.HasPrefix(name, prefix) {
			return strings.TrimPrefix(name, prefix)
		}
	}
	return name
}
