package models

import "strings"

// Outcome is the result of a plate appearance
type Outcome string

const (
	OutcomeSingle              Outcome = "Single"
	OutcomeDouble              Outcome = "Double"
	OutcomeTriple              Outcome = "Triple"
	OutcomeHomeRun             Outcome = "HomeRun"
	OutcomeWalk                Outcome = "Walk"
	OutcomeHitByPitch          Outcome = "HitByPitch"
	OutcomeCatcherInterference Outcome = "CatcherInterference"
	OutcomeIntentionalWalk     Outcome = "IntentionalWalk"
	OutcomeOut                 Outcome = "Out"
	OutcomeOther               Outcome = "Other"
)

// IsAtBat reports whether the outcome is charged as an at-bat
func (o Outcome) IsAtBat() bool {
	switch o {
	case OutcomeWalk, OutcomeHitByPitch, OutcomeCatcherInterference, OutcomeIntentionalWalk:
		return false
	}
	return true
}

// IsHit reports whether the outcome is a base hit
func (o Outcome) IsHit() bool {
	switch o {
	case OutcomeSingle, OutcomeDouble, OutcomeTriple, OutcomeHomeRun:
		return true
	}
	return false
}

// OutcomeFromEvent maps a play-by-play result event name onto an Outcome
func OutcomeFromEvent(event string) Outcome {
	switch strings.TrimSpace(event) {
	case "Single":
		return OutcomeSingle
	case "Double":
		return OutcomeDouble
	case "Triple":
		return OutcomeTriple
	case "Home Run":
		return OutcomeHomeRun
	case "Walk":
		return OutcomeWalk
	case "Hit By Pitch":
		return OutcomeHitByPitch
	case "Catcher Interference":
		return OutcomeCatcherInterference
	case "Intent Walk", "Intentional Walk":
		return OutcomeIntentionalWalk
	}

	lower := strings.ToLower(event)
	switch {
	case strings.Contains(lower, "out"),
		strings.Contains(lower, "double play"),
		strings.Contains(lower, "triple play"),
		strings.Contains(lower, "dp"):
		return OutcomeOut
	}
	return OutcomeOther
}

// PlateAppearanceEvent is one completed plate appearance from play-by-play
type PlateAppearanceEvent struct {
	GameID    int     `json:"game_id"`
	BatterID  int     `json:"batter_id"`
	PitcherID int     `json:"pitcher_id"`
	Inning    int     `json:"inning"`
	Event     string  `json:"event"`
	Outcome   Outcome `json:"outcome"`
}
