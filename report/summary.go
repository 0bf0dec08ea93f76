package report

import (
	"math"
	"sort"

	"github.com/baseball-sim/matchup-engine/analytics"
)

// SortHitters orders by batting average descending, then tier priority.
// Name and id break remaining ties so the order is deterministic.
func SortHitters(hitters []HitterLine) {
	sort.SliceStable(hitters, func(i, j int) bool {
		a, b := hitters[i], hitters[j]
		if avgOf(a) != avgOf(b) {
			return avgOf(a) > avgOf(b)
		}
		if a.Tier.Priority() != b.Tier.Priority() {
			return a.Tier.Priority() < b.Tier.Priority()
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.PlayerID < b.PlayerID
	})
}

func avgOf(h HitterLine) float64 {
	if h.Avg == nil {
		return 0
	}
	return *h.Avg
}

// Partition splits sorted hitters into the likely lineup and the bench
func Partition(hitters []HitterLine) (lineup, bench []HitterLine) {
	if len(hitters) <= LineupSize {
		return hitters, []HitterLine{}
	}
	return hitters[:LineupSize], hitters[LineupSize:]
}

// Summarize counts tiers and computes percentages rounded to one decimal
func Summarize(hitters []HitterLine) TierSummary {
	s := TierSummary{Total: len(hitters)}
	for _, h := range hitters {
		switch h.Tier {
		case analytics.TierStrong:
			s.Strong++
		case analytics.TierBubble:
			s.Bubble++
		case analytics.TierWeak:
			s.Weak++
		default:
			s.Unknown++
		}
	}
	if s.Total > 0 {
		s.StrongPct = pct(s.Strong, s.Total)
		s.BubblePct = pct(s.Bubble, s.Total)
		s.WeakPct = pct(s.Weak, s.Total)
		s.UnknownPct = pct(s.Unknown, s.Total)
	}
	return s
}

func pct(n, total int) float64 {
	return math.Round(float64(n)/float64(total)*1000) / 10
}

// share is the unrounded fraction of Total that n represents. Tags compare
// against it; the rounded percentages are for display only.
func (s TierSummary) share(n int) float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(n) / float64(s.Total)
}

// Recommend tags a lineup facing a weak pitcher by its strong-hitter share
func Recommend(lineup TierSummary) string {
	switch strong := lineup.share(lineup.Strong); {
	case strong > 0.30:
		return Excellent
	case strong > 0.15:
		return Good
	default:
		return Limited
	}
}

// BenchDepth tags the bench by its count of strong hitters
func BenchDepth(bench TierSummary) string {
	switch {
	case bench.Strong > 2:
		return Excellent
	case bench.Strong > 0:
		return Good
	default:
		return Limited
	}
}

// Outlook tags a likely lineup facing a strong pitcher
func Outlook(lineup TierSummary) string {
	strong, weak := lineup.share(lineup.Strong), lineup.share(lineup.Weak)
	switch {
	case strong > 0.40:
		return OutlookElite
	case strong > 0.25:
		return OutlookCompetitive
	case weak > 0.50:
		return OutlookPitcherAdvantage
	default:
		return OutlookBalanced
	}
}
