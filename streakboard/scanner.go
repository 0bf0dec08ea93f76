package streakboard

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/baseball-sim/matchup-engine/analytics"
	"github.com/baseball-sim/matchup-engine/metrics"
	"github.com/baseball-sim/matchup-engine/models"
	"github.com/baseball-sim/matchup-engine/obslog"
)

// MinStreak is the shortest streak that makes the board
const MinStreak = 2

// Feed is the upstream surface a scan needs
type Feed interface {
	FetchTeams(ctx context.Context) ([]models.Team, error)
	FetchRoster(ctx context.Context, teamID int) ([]models.Player, error)
	FetchGameLog(ctx context.Context, playerID int, group models.StatGroup, season int) ([]models.GameLogEntry, error)
}

type ScannerOptions struct {
	Workers int
	Window  int
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// Scanner computes every rostered hitter's current streak
type Scanner struct {
	feed    Feed
	board   *Board
	workers int
	window  int
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewScanner(feed Feed, board *Board, opts ScannerOptions) *Scanner {
	s := &Scanner{
		feed:    feed,
		board:   board,
		workers: opts.Workers,
		window:  opts.Window,
		logger:  obslog.OrNop(opts.Logger),
		metrics: opts.Metrics,
	}
	if s.workers <= 0 {
		s.workers = 8
	}
	if s.window <= 0 {
		s.window = analytics.DefaultStreakWindow
	}
	return s
}

// Scan walks all team rosters and returns hitters with a streak of at least
// MinStreak as of asOf, longest first. Only the team list is required; a
// roster or game log that cannot be read skips that team or player.
func (s *Scanner) Scan(ctx context.Context, season int, asOf time.Time) ([]Entry, error) {
	teams, err := s.feed.FetchTeams(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch teams: %w", err)
	}

	var (
		mu      sync.Mutex
		entries []Entry
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, team := range teams {
		roster, err := s.feed.FetchRoster(ctx, team.ID)
		if err != nil {
			s.swallow("roster unavailable", err, zap.Int("team_id", team.ID))
			continue
		}
		for _, p := range roster {
			if p.IsPitcher() {
				continue
			}
			g.Go(func() error {
				log, err := s.feed.FetchGameLog(gctx, p.ID, models.GroupHitting, season)
				if err != nil {
					s.swallow("game log unavailable", err, zap.Int("player_id", p.ID))
					return nil
				}
				streak := analytics.HitStreak(log, asOf, s.window)
				if streak < MinStreak {
					return nil
				}
				mu.Lock()
				entries = append(entries, Entry{
					PlayerID: p.ID,
					Name:     p.FullName,
					TeamID:   team.ID,
					TeamName: team.Name,
					Streak:   streak,
				})
				mu.Unlock()
				return nil
			})
		}
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Streak != entries[j].Streak {
			return entries[i].Streak > entries[j].Streak
		}
		if entries[i].Name != entries[j].Name {
			return entries[i].Name < entries[j].Name
		}
		return entries[i].PlayerID < entries[j].PlayerID
	})
	return entries, nil
}

// Refresh scans and replaces the board for date
func (s *Scanner) Refresh(ctx context.Context, season int, date string, asOf time.Time) ([]Entry, error) {
	start := time.Now()
	entries, err := s.Scan(ctx, season, asOf)
	if err != nil {
		return nil, err
	}
	if err := s.board.Write(ctx, season, date, entries); err != nil {
		return nil, err
	}

	s.logger.Info("refreshed streak board",
		zap.String("date", date),
		zap.Int("entries", len(entries)),
		zap.Duration("took", time.Since(start)))
	return entries, nil
}

func (s *Scanner) swallow(msg string, err error, fields ...zap.Field) {
	s.metrics.RecordSwallowed(metrics.StreakBoard)
	s.logger.Warn(msg, append(fields, zap.String("category", metrics.StreakBoard), zap.Error(err))...)
}

// Top reads the stored board for date
func (s *Scanner) Top(ctx context.Context, season int, date string, limit int) ([]Entry, error) {
	return s.board.Top(ctx, season, date, limit)
}
