package report

import (
	"time"

	"github.com/baseball-sim/matchup-engine/analytics"
	"github.com/baseball-sim/matchup-engine/models"
)

// LineupSize is how many top-sorted hitters form the likely lineup
const LineupSize = 9

// Recommendation tags
const (
	Excellent = "excellent"
	Good      = "good"
	Limited   = "limited"
)

// Outlook tags for lineups facing a strong pitcher
const (
	OutlookElite            = "elite"
	OutlookCompetitive      = "competitive"
	OutlookPitcherAdvantage = "pitcher_advantage"
	OutlookBalanced         = "balanced"
)

// Request selects the slate and the optional parts of a report
type Request struct {
	Date         string
	ForceRefresh bool
	WeakOnly     bool // omit games without a weak pitcher
	IncludeH2H   bool
	AnalyzeAll   bool // break down lineups facing strong pitchers as well
}

// Report is the per-date output consumed by presentation layers
type Report struct {
	Date        string       `json:"date"`
	Season      int          `json:"season"`
	GeneratedAt time.Time    `json:"generated_at"`
	FromCache   bool         `json:"from_cache"`
	Partial     bool         `json:"partial"`
	Games       []GameReport `json:"games"`
	Dropped     []Dropped    `json:"dropped,omitempty"`
}

// Dropped records a unit left out of the report and why
type Dropped struct {
	Kind   string `json:"kind"` // schedule, game, matchup, hitter
	ID     int    `json:"id,omitempty"`
	Reason string `json:"reason"`
}

type TeamView struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"short_name"`
}

func teamView(t models.TeamRef) TeamView {
	return TeamView{ID: t.ID, Name: t.Name, ShortName: models.ShortTeamName(t.Name)}
}

type PitcherReport struct {
	ID         *int                         `json:"id"`
	Name       string                       `json:"name"`
	TBD        bool                         `json:"tbd"`
	Assessment *analytics.PitcherAssessment `json:"assessment,omitempty"`
	Stats      *models.SeasonStat           `json:"stats,omitempty"`
}

// IsWeak reports whether an announced pitcher classified Weak
func (p PitcherReport) IsWeak() bool {
	return !p.TBD && p.Assessment != nil && p.Assessment.IsWeak()
}

type GameReport struct {
	GameID      int               `json:"game_id"`
	Status      models.GameStatus `json:"status"`
	GameTime    *time.Time        `json:"game_time,omitempty"`
	Venue       string            `json:"venue,omitempty"`
	HomeTeam    TeamView          `json:"home_team"`
	AwayTeam    TeamView          `json:"away_team"`
	HomePitcher PitcherReport     `json:"home_pitcher"`
	AwayPitcher PitcherReport     `json:"away_pitcher"`
	Matchups    []MatchupReport   `json:"matchups,omitempty"`
}

// HasWeakPitcher reports whether either starter classified Weak
func (g GameReport) HasWeakPitcher() bool {
	return g.HomePitcher.IsWeak() || g.AwayPitcher.IsWeak()
}

// MatchupReport breaks down one lineup against one opposing starter
type MatchupReport struct {
	PitcherID       int                       `json:"pitcher_id"`
	PitcherName     string                    `json:"pitcher_name"`
	PitcherStrength analytics.PitcherStrength `json:"pitcher_strength"`
	PitchingTeam    TeamView                  `json:"pitching_team"`
	BattingTeam     TeamView                  `json:"batting_team"`
	Lineup          []HitterLine              `json:"lineup"`
	Bench           []HitterLine              `json:"bench"`
	LineupSummary   TierSummary               `json:"lineup_summary"`
	BenchSummary    TierSummary               `json:"bench_summary"`
	RosterSummary   TierSummary               `json:"roster_summary"`
	Recommendation  string                    `json:"recommendation,omitempty"`
	BenchDepth      string                    `json:"bench_depth,omitempty"`
	Outlook         string                    `json:"outlook,omitempty"`
}

// HitterLine is one hitter's row. Pointer fields are nil when the stat was absent.
type HitterLine struct {
	PlayerID int                `json:"player_id"`
	Name     string             `json:"name"`
	Position string             `json:"position"`
	Tier     analytics.Tier     `json:"tier"`
	Avg      *float64           `json:"avg"`
	OPS      *float64           `json:"ops"`
	HomeRuns *int               `json:"home_runs"`
	RBI      *int               `json:"rbi"`
	Streak   int                `json:"streak"`
	H2H      *analytics.H2HLine `json:"h2h,omitempty"`
}

// TierSummary counts hitters per tier with percentages of Total
type TierSummary struct {
	Total      int     `json:"total"`
	Strong     int     `json:"strong"`
	Bubble     int     `json:"bubble"`
	Weak       int     `json:"weak"`
	Unknown    int     `json:"unknown"`
	StrongPct  float64 `json:"strong_pct"`
	BubblePct  float64 `json:"bubble_pct"`
	WeakPct    float64 `json:"weak_pct"`
	UnknownPct float64 `json:"unknown_pct"`
}
