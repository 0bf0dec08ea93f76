package report

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/baseball-sim/matchup-engine/analytics"
	"github.com/baseball-sim/matchup-engine/metrics"
	"github.com/baseball-sim/matchup-engine/models"
	"github.com/baseball-sim/matchup-engine/obslog"
)

// ErrInvalidDate is returned when the requested date is not YYYY-MM-DD
var ErrInvalidDate = errors.New("invalid date")

const (
	defaultWorkers      = 8
	defaultFetchTimeout = 15 * time.Second
)

// Options configures a Builder. Zero values select defaults.
type Options struct {
	Workers      int           // concurrent upstream calls
	StreakWindow int           // games considered for hit streaks
	FetchTimeout time.Duration // deadline per upstream call
	Season       int           // 0 derives the season from the requested date
	Location     *time.Location
	Now          func() time.Time
	Logger       *zap.Logger
	Metrics      *metrics.Metrics
}

// Builder assembles matchup reports from the feed, the slate cache and a
// hitter stat lookup. Upstream calls share one bounded pool.
type Builder struct {
	feed  Feed
	cache SlateCache
	stats StatLookup

	workers      int
	streakWindow int
	fetchTimeout time.Duration
	season       int
	loc          *time.Location
	now          func() time.Time
	logger       *zap.Logger
	metrics      *metrics.Metrics

	slots   *semaphore.Weighted
	refresh singleflight.Group
}

// NewBuilder creates a report builder
func NewBuilder(feed Feed, cache SlateCache, stats StatLookup, opts Options) *Builder {
	b := &Builder{
		feed:         feed,
		cache:        cache,
		stats:        stats,
		workers:      opts.Workers,
		streakWindow: opts.StreakWindow,
		fetchTimeout: opts.FetchTimeout,
		season:       opts.Season,
		loc:          opts.Location,
		now:          opts.Now,
		logger:       obslog.OrNop(opts.Logger),
		metrics:      opts.Metrics,
	}
	if b.stats == nil {
		b.stats = NewFeedStatLookup(feed)
	}
	if b.workers <= 0 {
		b.workers = defaultWorkers
	}
	if b.streakWindow <= 0 {
		b.streakWindow = analytics.DefaultStreakWindow
	}
	if b.fetchTimeout <= 0 {
		b.fetchTimeout = defaultFetchTimeout
	}
	if b.loc == nil {
		b.loc = time.Local
	}
	if b.now == nil {
		b.now = time.Now
	}
	b.slots = semaphore.NewWeighted(int64(b.workers))
	return b
}

// call runs one upstream request inside a pool slot with its own deadline
func call[T any](ctx context.Context, b *Builder, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := b.slots.Acquire(ctx, 1); err != nil {
		return zero, err
	}
	defer b.slots.Release(1)

	ctx, cancel := context.WithTimeout(ctx, b.fetchTimeout)
	defer cancel()
	return fn(ctx)
}

// isTimeout reports whether err came from a deadline rather than a bad response
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// swallow logs and counts an error absorbed at an entity boundary
func (b *Builder) swallow(category, msg string, err error, fields ...zap.Field) {
	b.metrics.RecordSwallowed(category)
	b.logger.Warn(msg, append(fields, zap.String("category", category), zap.Error(err))...)
}

// seasonFor returns the configured season or the one containing day
func (b *Builder) seasonFor(day time.Time) int {
	if b.season > 0 {
		return b.season
	}
	return models.SeasonOf(day)
}

// ParseDate validates a report date in the builder's zone
func (b *Builder) ParseDate(date string) (time.Time, error) {
	day, err := models.ParseDate(date, b.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", ErrInvalidDate, date, err)
	}
	return day, nil
}

// slate is a day's games plus pitcher stat failures keyed by game id
type slate struct {
	games     []models.ScheduledGame
	fromCache bool
	failures  map[int]error
}

// Slate returns the day's games with probable pitcher stats attached, from
// the cache when fresh. Concurrent refreshes of the same date share one fetch.
func (b *Builder) Slate(ctx context.Context, date string, forceRefresh bool) ([]models.ScheduledGame, bool, error) {
	if _, err := b.ParseDate(date); err != nil {
		return nil, false, err
	}
	s, err := b.loadSlate(ctx, date, forceRefresh)
	if err != nil {
		return nil, false, err
	}
	return s.games, s.fromCache, nil
}

func (b *Builder) loadSlate(ctx context.Context, date string, forceRefresh bool) (*slate, error) {
	if games, ok := b.cache.Get(date, forceRefresh); ok {
		return &slate{games: games, fromCache: true}, nil
	}

	// The fetch is shared with every caller waiting on this date, so it must
	// not end when the first caller goes away. Each upstream call inside is
	// still bounded by the fetch timeout.
	v, err, _ := b.refresh.Do(date, func() (any, error) {
		return b.fetchSlate(context.WithoutCancel(ctx), date)
	})
	if err != nil {
		return nil, err
	}
	return v.(*slate), nil
}

func (b *Builder) fetchSlate(ctx context.Context, date string) (*slate, error) {
	day, err := b.ParseDate(date)
	if err != nil {
		return nil, err
	}
	season := b.seasonFor(day)

	games, err := call(ctx, b, func(ctx context.Context) ([]models.ScheduledGame, error) {
		return b.feed.FetchSchedule(ctx, date)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch schedule for %s: %w", date, err)
	}

	s := &slate{games: games, failures: make(map[int]error)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for i := range s.games {
		for _, side := range []*models.ProbablePitcher{&s.games[i].HomePitcher, &s.games[i].AwayPitcher} {
			if side.IsTBD() {
				continue
			}
			gameID := s.games[i].GameID
			pitcher := side
			g.Go(func() error {
				stat, err := call(gctx, b, func(ctx context.Context) (*models.SeasonStat, error) {
					return b.feed.FetchSeasonStats(ctx, *pitcher.ID, models.GroupPitching, season)
				})
				if err != nil {
					b.swallow(metrics.PitcherStats, "pitcher stats unavailable", err,
						zap.Int("game_id", gameID),
						zap.Int("player_id", *pitcher.ID))
					mu.Lock()
					s.failures[gameID] = err
					mu.Unlock()
					return nil
				}
				pitcher.Stats = stat
				return nil
			})
		}
	}
	_ = g.Wait()

	// A slate with missing pitcher lines is served but not cached, so the
	// next request retries the failed lookups.
	if len(s.failures) == 0 {
		if err := b.cache.Put(date, s.games); err != nil {
			b.swallow(metrics.CacheWrite, "failed to cache slate", err, zap.String("date", date))
		}
	}

	b.logger.Info("fetched slate",
		zap.String("date", date),
		zap.Int("games", len(s.games)),
		zap.Int("pitcher_failures", len(s.failures)))
	return s, nil
}

// run holds per-report state shared across concurrent matchup analyses
type run struct {
	req    Request
	asOf   time.Time
	season int

	memo      *analytics.H2HMemo
	plays     onceMap[int, []models.PlateAppearanceEvent]
	teamGames onceMap[[2]int, []models.GameRef]

	mu      sync.Mutex
	dropped []Dropped
}

func (r *run) drop(kind string, id int, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dropped = append(r.dropped, Dropped{Kind: kind, ID: id, Reason: reason})
}

// Build produces the report for req.Date. Only an invalid date is an error;
// every other failure is absorbed and reflected in Partial and Dropped.
func (b *Builder) Build(ctx context.Context, req Request) (*Report, error) {
	day, err := b.ParseDate(req.Date)
	if err != nil {
		return nil, err
	}

	r := &run{
		req:    req,
		asOf:   b.asOf(day),
		season: b.seasonFor(day),
		memo:   analytics.NewH2HMemo(),
	}
	report := &Report{
		Date:        req.Date,
		Season:      r.season,
		GeneratedAt: b.now(),
		Games:       []GameReport{},
	}

	s, err := b.loadSlate(ctx, req.Date, req.ForceRefresh)
	if err != nil {
		b.swallow(metrics.SchedulePayload, "schedule unavailable", err, zap.String("date", req.Date))
		report.Partial = true
		report.Dropped = []Dropped{{Kind: "schedule", Reason: err.Error()}}
		return report, nil
	}
	report.FromCache = s.fromCache

	built := make([]*GameReport, len(s.games))
	g, gctx := errgroup.WithContext(ctx)
	for i, game := range s.games {
		if ferr, ok := s.failures[game.GameID]; ok && isTimeout(ferr) {
			r.drop("game", game.GameID, "pitcher stats timed out")
			continue
		}
		g.Go(func() error {
			gr := b.buildGame(gctx, r, game)
			built[i] = &gr
			return nil
		})
	}
	_ = g.Wait()

	for _, gr := range built {
		if gr == nil {
			continue
		}
		if req.WeakOnly && !gr.HasWeakPitcher() {
			continue
		}
		report.Games = append(report.Games, *gr)
	}
	report.Dropped = r.dropped
	report.Partial = len(r.dropped) > 0

	b.logger.Info("built matchup report",
		zap.String("date", req.Date),
		zap.Int("games", len(report.Games)),
		zap.Int("dropped", len(report.Dropped)),
		zap.Bool("from_cache", report.FromCache),
		zap.Int("h2h_pairs", r.memo.Len()))
	return report, nil
}

// asOf is the evaluation instant for streaks: the report day,
// or now when the report day is today.
func (b *Builder) asOf(day time.Time) time.Time {
	now := b.now().In(b.loc)
	if now.Format(models.DateLayout) == day.Format(models.DateLayout) {
		return now
	}
	return day
}

func (b *Builder) buildGame(ctx context.Context, r *run, game models.ScheduledGame) GameReport {
	gr := GameReport{
		GameID:      game.GameID,
		Status:      game.Status,
		GameTime:    game.GameTime,
		Venue:       game.Venue,
		HomeTeam:    teamView(game.HomeTeam),
		AwayTeam:    teamView(game.AwayTeam),
		HomePitcher: pitcherReport(game.HomePitcher),
		AwayPitcher: pitcherReport(game.AwayPitcher),
	}

	type side struct {
		pitcher  PitcherReport
		pitching models.TeamRef
		batting  models.TeamRef
	}
	sides := []side{
		{gr.HomePitcher, game.HomeTeam, game.AwayTeam},
		{gr.AwayPitcher, game.AwayTeam, game.HomeTeam},
	}

	for _, sd := range sides {
		if sd.pitcher.TBD {
			continue
		}
		if !sd.pitcher.IsWeak() && !r.req.AnalyzeAll {
			continue
		}
		m, ok := b.analyzeMatchup(ctx, r, game.GameID, sd.pitcher, sd.pitching, sd.batting)
		if ok {
			gr.Matchups = append(gr.Matchups, m)
		}
	}
	return gr
}

func pitcherReport(p models.ProbablePitcher) PitcherReport {
	if p.IsTBD() {
		return PitcherReport{Name: models.TBDName, TBD: true}
	}
	assessment := analytics.ClassifyPitcher(p.Stats)
	return PitcherReport{
		ID:         p.ID,
		Name:       p.FullName,
		Assessment: &assessment,
		Stats:      p.Stats,
	}
}
