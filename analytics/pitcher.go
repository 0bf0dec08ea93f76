package analytics

import "github.com/baseball-sim/matchup-engine/models"

// PitcherStrength is the two-valued pitcher classification
type PitcherStrength string

const (
	PitcherStrong PitcherStrength = "Strong"
	PitcherWeak   PitcherStrength = "Weak"
)

// PitcherReason explains how a classification was reached
type PitcherReason string

const (
	ReasonScored             PitcherReason = "scored"
	ReasonInsufficientSample PitcherReason = "insufficient_sample"
	ReasonMissingStats       PitcherReason = "missing_stats"
	ReasonMalformedStats     PitcherReason = "malformed_stats"
)

const (
	// Points needed to flag a pitcher weak
	WeakPointThreshold = 4

	// Below this many innings the sample is too small to flag
	MinInningsPitched = 20.0
)

// PitcherAssessment is the classifier output with its supporting detail
type PitcherAssessment struct {
	Strength PitcherStrength `json:"strength"`
	Points   int             `json:"points"`
	Reason   PitcherReason   `json:"reason"`
	Fields   []string        `json:"fields,omitempty"` // missing or malformed inputs
}

// IsWeak is shorthand for the classification result
func (a PitcherAssessment) IsWeak() bool {
	return a.Strength == PitcherWeak
}

type pitcherInputs struct {
	era, whip, hitsPer9, avgAgainst, strikeoutsPer9, walksPer9, innings float64
}

// ClassifyPitcher scores a season line. Primary indicators (era, whip, hits
// per nine) weigh more than secondary ones. Anything it cannot read leaves the
// pitcher Strong.
func ClassifyPitcher(stat *models.SeasonStat) PitcherAssessment {
	if stat.Empty() {
		return PitcherAssessment{Strength: PitcherStrong, Reason: ReasonMissingStats}
	}

	in, reason, fields := readPitcherInputs(stat)
	if reason != "" {
		return PitcherAssessment{Strength: PitcherStrong, Reason: reason, Fields: fields}
	}

	points := 0
	if in.era > 4.75 {
		points += 2
	}
	if in.whip > 1.35 {
		points += 2
	}
	if in.hitsPer9 > 9.0 {
		points++
	}

	if in.avgAgainst > 0.260 {
		points++
	}
	if in.strikeoutsPer9 < 7.5 {
		points++
	}
	if in.walksPer9 > 3.0 {
		points++
	}

	if in.innings < MinInningsPitched {
		return PitcherAssessment{Strength: PitcherStrong, Points: points, Reason: ReasonInsufficientSample}
	}

	strength := PitcherStrong
	if points >= WeakPointThreshold {
		strength = PitcherWeak
	}
	return PitcherAssessment{Strength: strength, Points: points, Reason: ReasonScored}
}

// IsWeakPitcher reports whether the season line classifies as Weak
func IsWeakPitcher(stat *models.SeasonStat) bool {
	return ClassifyPitcher(stat).IsWeak()
}

func readPitcherInputs(stat *models.SeasonStat) (pitcherInputs, PitcherReason, []string) {
	var (
		in        pitcherInputs
		missing   []string
		malformed []string
	)

	read := func(dst *float64, names ...string) {
		for _, name := range names {
			if stat.IsMalformed(name) {
				malformed = append(malformed, name)
				return
			}
			if v, ok := stat.Get(name); ok {
				*dst = v
				return
			}
		}
		missing = append(missing, names[0])
	}

	read(&in.era, "era")
	read(&in.whip, "whip")
	read(&in.hitsPer9, "hitsPer9Inn")
	read(&in.avgAgainst, "battingAverageAgainst", "avg")
	read(&in.strikeoutsPer9, "strikeoutsPer9Inn")
	read(&in.walksPer9, "walksPer9Inn")
	read(&in.innings, "inningsPitched")

	switch {
	case len(malformed) > 0:
		return in, ReasonMalformedStats, malformed
	case len(missing) > 0:
		return in, ReasonMissingStats, missing
	}
	return in, "", nil
}
