package analytics

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/baseball-sim/matchup-engine/models"
)

// H2HLine is a batter's cumulative hits and at-bats against one pitcher.
// Approximate lines come from team-level game logs rather than play-by-play.
type H2HLine struct {
	Hits        int  `json:"hits"`
	AtBats      int  `json:"at_bats"`
	Games       int  `json:"games"`
	Approximate bool `json:"approximate"`
}

// String renders "hits-atBats"
func (l H2HLine) String() string {
	return fmt.Sprintf("%d-%d", l.Hits, l.AtBats)
}

// Add sums two lines; the result is approximate if either side is
func (l H2HLine) Add(o H2HLine) H2HLine {
	return H2HLine{
		Hits:        l.Hits + o.Hits,
		AtBats:      l.AtBats + o.AtBats,
		Games:       l.Games + o.Games,
		Approximate: l.Approximate || o.Approximate,
	}
}

func (l H2HLine) MarshalJSON() ([]byte, error) {
	type line H2HLine
	return json.Marshal(struct {
		line
		Line string `json:"line"`
	}{line(l), l.String()})
}

// ExtractHeadToHead tallies the pair's plate appearances in one game's events
func ExtractHeadToHead(batterID, pitcherID int, events []models.PlateAppearanceEvent) H2HLine {
	var line H2HLine
	faced := false
	for _, e := range events {
		if e.BatterID != batterID || e.PitcherID != pitcherID {
			continue
		}
		faced = true
		if !e.Outcome.IsAtBat() {
			continue
		}
		line.AtBats++
		if e.Outcome.IsHit() {
			line.Hits++
		}
	}
	if faced {
		line.Games = 1
	}
	return line
}

// ApproximateFromGameLog sums the batter's hits and at-bats in completed games
// against opponentTeamID. It stands in for true batter-vs-pitcher data when
// play-by-play is unavailable and is always marked approximate.
func ApproximateFromGameLog(entries []models.GameLogEntry, opponentTeamID int, asOf time.Time) H2HLine {
	line := H2HLine{Approximate: true}
	for _, g := range completedGames(entries, asOf, true) {
		if g.entry.Opponent.ID != opponentTeamID {
			continue
		}
		line.Hits += g.entry.Hits()
		line.AtBats += g.entry.AtBats()
		line.Games++
	}
	return line
}
