package report

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/baseball-sim/matchup-engine/analytics"
	"github.com/baseball-sim/matchup-engine/metrics"
	"github.com/baseball-sim/matchup-engine/models"
)

// analyzeMatchup breaks down the batting team's hitters against one starter.
// It reports false when the roster could not be fetched in time.
func (b *Builder) analyzeMatchup(ctx context.Context, r *run, gameID int, pitcher PitcherReport, pitching, batting models.TeamRef) (MatchupReport, bool) {
	roster, err := call(ctx, b, func(ctx context.Context) ([]models.Player, error) {
		return b.feed.FetchRoster(ctx, batting.ID)
	})
	if err != nil {
		b.swallow(metrics.Roster, "roster unavailable", err,
			zap.Int("game_id", gameID),
			zap.Int("team_id", batting.ID))
		reason := "roster unavailable"
		if isTimeout(err) {
			reason = "roster timed out"
		}
		r.drop("matchup", gameID, reason)
		return MatchupReport{}, false
	}

	var hitters []models.Player
	for _, p := range roster {
		if !p.IsPitcher() {
			hitters = append(hitters, p)
		}
	}

	withH2H := r.req.IncludeH2H && pitcher.IsWeak()
	lines := make([]*HitterLine, len(hitters))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i, h := range hitters {
		g.Go(func() error {
			lines[i] = b.hitterLine(gctx, r, h, *pitcher.ID, pitching.ID, withH2H)
			return nil
		})
	}
	_ = g.Wait()

	sorted := make([]HitterLine, 0, len(lines))
	for _, l := range lines {
		if l != nil {
			sorted = append(sorted, *l)
		}
	}
	SortHitters(sorted)
	lineup, bench := Partition(sorted)

	m := MatchupReport{
		PitcherID:       *pitcher.ID,
		PitcherName:     pitcher.Name,
		PitcherStrength: pitcher.Assessment.Strength,
		PitchingTeam:    teamView(pitching),
		BattingTeam:     teamView(batting),
		Lineup:          lineup,
		Bench:           bench,
		LineupSummary:   Summarize(lineup),
		BenchSummary:    Summarize(bench),
		RosterSummary:   Summarize(sorted),
	}
	if pitcher.IsWeak() {
		m.Recommendation = Recommend(m.LineupSummary)
		m.BenchDepth = BenchDepth(m.BenchSummary)
	} else {
		m.Outlook = Outlook(m.LineupSummary)
	}
	return m, true
}

// hitterLine classifies one hitter. It returns nil when the hitter must be
// dropped because a lookup timed out.
func (b *Builder) hitterLine(ctx context.Context, r *run, p models.Player, pitcherID, pitchingTeamID int, withH2H bool) *HitterLine {
	line := &HitterLine{
		PlayerID: p.ID,
		Name:     p.FullName,
		Position: p.Position,
		Tier:     analytics.TierUnknown,
	}

	stat, err := call(ctx, b, func(ctx context.Context) (*models.SeasonStat, error) {
		return b.stats.HittingStats(ctx, p.ID, r.season)
	})
	if err != nil {
		b.swallow(metrics.HitterStats, "hitter stats unavailable", err, zap.Int("player_id", p.ID))
		if isTimeout(err) {
			r.drop("hitter", p.ID, "stats timed out")
			return nil
		}
	} else {
		line.Tier = analytics.ClassifyHitter(stat)
		line.Avg = optFloat(stat, "avg")
		line.OPS = optFloat(stat, "ops")
		line.HomeRuns = optInt(stat, "homeRuns")
		line.RBI = optInt(stat, "rbi")
	}

	log, err := call(ctx, b, func(ctx context.Context) ([]models.GameLogEntry, error) {
		return b.feed.FetchGameLog(ctx, p.ID, models.GroupHitting, r.season)
	})
	if err != nil {
		b.swallow(metrics.GameLog, "game log unavailable", err, zap.Int("player_id", p.ID))
		if isTimeout(err) {
			r.drop("hitter", p.ID, "game log timed out")
			return nil
		}
	} else {
		line.Streak = analytics.HitStreak(log, r.asOf, b.streakWindow)
	}

	if withH2H {
		key := analytics.H2HKey{BatterID: p.ID, PitcherID: pitcherID, Season: r.season}
		h2h := r.memo.Resolve(ctx, key, func(ctx context.Context) analytics.H2HLine {
			return b.resolveH2H(ctx, r, p.ID, p.TeamID, pitcherID, pitchingTeamID, log)
		})
		line.H2H = &h2h
	}
	return line
}

// resolveH2H sums play-by-play at-bats for the pair across completed games
// between the two teams played on or before r.asOf. When no game's
// play-by-play can be read it falls back to the batter's game-log totals
// against the pitcher's team, which is flagged approximate. Failures are
// logged and counted here.
func (b *Builder) resolveH2H(ctx context.Context, r *run, batterID, batterTeamID, pitcherID, pitchingTeamID int, log []models.GameLogEntry) analytics.H2HLine {
	approximate := func() analytics.H2HLine {
		return analytics.ApproximateFromGameLog(log, pitchingTeamID, r.asOf)
	}

	games, err := r.teamGames.Do([2]int{batterTeamID, pitchingTeamID}, func() ([]models.GameRef, error) {
		return call(ctx, b, func(ctx context.Context) ([]models.GameRef, error) {
			return b.feed.FetchTeamMatchupGames(ctx, batterTeamID, pitchingTeamID, r.season)
		})
	})
	if err != nil {
		b.swallow(metrics.HeadToHead, "team matchup games unavailable", err,
			zap.Int("team_id", batterTeamID),
			zap.Int("opponent_id", pitchingTeamID))
		return approximate()
	}

	gameIDs := playedBy(games, r.asOf)
	var total analytics.H2HLine
	read := 0
	for _, id := range gameIDs {
		events, err := r.plays.Do(id, func() ([]models.PlateAppearanceEvent, error) {
			return call(ctx, b, func(ctx context.Context) ([]models.PlateAppearanceEvent, error) {
				return b.feed.FetchPlayByPlay(ctx, id)
			})
		})
		if err != nil {
			b.swallow(metrics.HeadToHead, "play-by-play unavailable", err, zap.Int("game_id", id))
			continue
		}
		read++
		total = total.Add(analytics.ExtractHeadToHead(batterID, pitcherID, events))
	}

	if len(gameIDs) > 0 && read == 0 {
		return approximate()
	}
	return total
}

// playedBy returns ids of games dated on or before asOf's calendar day.
// Games with unreadable dates are skipped.
func playedBy(games []models.GameRef, asOf time.Time) []int {
	cutoff := asOf.Format(models.DateLayout)
	ids := make([]int, 0, len(games))
	for _, g := range games {
		day, err := time.ParseInLocation(models.DateLayout, g.Date, asOf.Location())
		if err != nil || day.Format(models.DateLayout) > cutoff {
			continue
		}
		ids = append(ids, g.ID)
	}
	return ids
}

func optFloat(stat *models.SeasonStat, name string) *float64 {
	v, ok := stat.Get(name)
	if !ok {
		return nil
	}
	return &v
}

func optInt(stat *models.SeasonStat, name string) *int {
	v, ok := stat.Get(name)
	if !ok {
		return nil
	}
	n := int(v)
	return &n
}

// onceMap computes each key's value at most once; later callers wait for
// and share the first result.
type onceMap[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*onceEntry[V]
}

type onceEntry[V any] struct {
	once sync.Once
	val  V
	err  error
}

func (m *onceMap[K, V]) Do(key K, fn func() (V, error)) (V, error) {
	m.mu.Lock()
	if m.entries == nil {
		m.entries = make(map[K]*onceEntry[V])
	}
	e, ok := m.entries[key]
	if !ok {
		e = &onceEntry[V]{}
		m.entries[key] = e
	}
	m.mu.Unlock()

	e.once.Do(func() {
		e.val, e.err = fn()
	})
	return e.val, e.err
}
