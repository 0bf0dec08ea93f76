package analytics

import "github.com/baseball-sim/matchup-engine/models"

// Tier is the four-valued hitter quality bucket
type Tier string

const (
	TierStrong  Tier = "Strong"
	TierBubble  Tier = "Bubble"
	TierWeak    Tier = "Weak"
	TierUnknown Tier = "Unknown"
)

// QualityScoreField is the stat name carrying the hitter quality score.
// Snapshots reuse the pitching "era" name for it; the value is a rate on the
// batting-average scale, not an earned run average.
const QualityScoreField = "era"

const (
	strongCutoff = 0.280
	bubbleCutoff = 0.225
	weakCeiling  = 0.220
)

// Priority orders tiers for sorting, strongest first
func (t Tier) Priority() int {
	switch t {
	case TierStrong:
		return 0
	case TierBubble:
		return 1
	case TierWeak:
		return 2
	default:
		return 3
	}
}

// ClassifyHitter buckets a hitter by quality score, falling back to batting
// average. A quality score strictly between the weak ceiling and the bubble
// cutoff is not bucketed by itself and also falls back to average.
func ClassifyHitter(stat *models.SeasonStat) Tier {
	quality := positive(stat, QualityScoreField)
	avg := positive(stat, "avg")

	hasData := quality > 0 ||
		avg > 0 ||
		positive(stat, "homeRuns") > 0 ||
		positive(stat, "rbi") > 0 ||
		positive(stat, "gamesPlayed") > 0
	if !hasData {
		return TierUnknown
	}

	switch {
	case quality >= strongCutoff:
		return TierStrong
	case quality >= bubbleCutoff:
		return TierBubble
	case quality > 0 && quality <= weakCeiling:
		return TierWeak
	}

	switch {
	case avg >= strongCutoff:
		return TierStrong
	case avg >= bubbleCutoff:
		return TierBubble
	default:
		return TierWeak
	}
}

// positive returns the named value, or zero when absent or negative
func positive(stat *models.SeasonStat, name string) float64 {
	v, ok := stat.Get(name)
	if !ok || v < 0 {
		return 0
	}
	return v
}
