package analytics

import (
	"sort"
	"time"

	"github.com/baseball-sim/matchup-engine/models"
)

// DefaultStreakWindow is how many recent games a streak may span
const DefaultStreakWindow = 10

type datedEntry struct {
	entry models.GameLogEntry
	day   time.Time
	index int
}

// completedGames returns entries dated on or before asOf (only before it when
// inclusive is false), newest first. Unparseable dates are dropped. Same-day
// entries put the later feed position first so the second game of a
// doubleheader counts as more recent.
func completedGames(entries []models.GameLogEntry, asOf time.Time, inclusive bool) []datedEntry {
	loc := asOf.Location()
	cutoff := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, loc)

	valid := make([]datedEntry, 0, len(entries))
	for i, e := range entries {
		day, err := time.ParseInLocation(models.DateLayout, e.Date, loc)
		if err != nil {
			continue
		}
		if day.After(cutoff) || (!inclusive && day.Equal(cutoff)) {
			continue
		}
		valid = append(valid, datedEntry{entry: e, day: day, index: i})
	}

	sort.SliceStable(valid, func(i, j int) bool {
		if !valid[i].day.Equal(valid[j].day) {
			return valid[i].day.After(valid[j].day)
		}
		return valid[i].index > valid[j].index
	})
	return valid
}

// HitStreak counts consecutive most-recent games with at least one hit,
// looking at no more than window games played on or before asOf.
func HitStreak(entries []models.GameLogEntry, asOf time.Time, window int) int {
	if window <= 0 {
		window = DefaultStreakWindow
	}

	games := completedGames(entries, asOf, true)
	if len(games) > window {
		games = games[:window]
	}

	streak := 0
	for _, g := range games {
		if g.entry.Hits() <= 0 {
			break
		}
		streak++
	}
	return streak
}

// RecentGames returns up to n entries played strictly before asOf, newest first
func RecentGames(entries []models.GameLogEntry, asOf time.Time, n int) []models.GameLogEntry {
	games := completedGames(entries, asOf, false)
	if n > 0 && len(games) > n {
		games = games[:n]
	}

	recent := make([]models.GameLogEntry, len(games))
	for i, g := range games {
		recent[i] = g.entry
	}
	return recent
}
