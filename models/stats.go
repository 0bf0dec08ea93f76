package models

import (
	"strconv"
	"strings"
)

// StatGroup selects hitting or pitching statistics
type StatGroup string

const (
	GroupHitting  StatGroup = "hitting"
	GroupPitching StatGroup = "pitching"
)

// Valid reports whether g is a known stat group
func (g StatGroup) Valid() bool {
	return g == GroupHitting || g == GroupPitching
}

// SeasonStat is a flat mapping of statistic name to value for one player-season.
// A name missing from Values is absent, which is distinct from zero. Names that
// were present upstream but not numeric are listed in Malformed.
//
// A SeasonStat is replaced wholesale on refresh and never mutated after parsing.
type SeasonStat struct {
	PlayerID  int                `json:"player_id"`
	Season    int                `json:"season"`
	Group     StatGroup          `json:"group"`
	TeamID    int                `json:"team_id,omitempty"`
	Values    map[string]float64 `json:"values"`
	Malformed []string           `json:"malformed,omitempty"`
}

// Get returns the named value and whether it is present
func (s *SeasonStat) Get(name string) (float64, bool) {
	if s == nil || s.Values == nil {
		return 0, false
	}
	v, ok := s.Values[name]
	return v, ok
}

// IsMalformed reports whether the named stat was present but non-numeric
func (s *SeasonStat) IsMalformed(name string) bool {
	if s == nil {
		return false
	}
	for _, m := range s.Malformed {
		if m == name {
			return true
		}
	}
	return false
}

// Empty reports whether the snapshot carries no usable values
func (s *SeasonStat) Empty() bool {
	return s == nil || len(s.Values) == 0
}

// NewSeasonStat converts a raw upstream stat object into a SeasonStat.
// Numbers pass through, numeric strings like ".287" or "4.50" are parsed, and
// anything else ("-.--", "*.**", nested objects) is recorded as malformed.
func NewSeasonStat(playerID, season int, group StatGroup, raw map[string]any) *SeasonStat {
	s := &SeasonStat{
		PlayerID: playerID,
		Season:   season,
		Group:    group,
		Values:   make(map[string]float64, len(raw)),
	}
	for name, value := range raw {
		if f, ok := ParseStatValue(value); ok {
			s.Values[name] = f
		} else {
			s.Malformed = append(s.Malformed, name)
		}
	}
	return s
}

// ParseStatValue converts a decoded JSON value into a float
func ParseStatValue(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// GameLogEntry is one player-game record. Date is kept as delivered upstream
// (YYYY-MM-DD) so that unparseable dates can be discarded by consumers.
type GameLogEntry struct {
	PlayerID int                `json:"player_id"`
	GameID   int                `json:"game_id,omitempty"`
	Date     string             `json:"date"`
	Opponent TeamRef            `json:"opponent"`
	IsWin    *bool              `json:"is_win,omitempty"`
	Stats    map[string]float64 `json:"stats"`
}

// Stat returns a per-game value, zero when absent
func (e GameLogEntry) Stat(name string) float64 {
	return e.Stats[name]
}

// Hits is the per-game hit count
func (e GameLogEntry) Hits() int {
	return int(e.Stats["hits"])
}

// AtBats is the per-game at-bat count
func (e GameLogEntry) AtBats() int {
	return int(e.Stats["atBats"])
}
