package matchupcache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/baseball-sim/matchup-engine/metrics"
	"github.com/baseball-sim/matchup-engine/models"
	"github.com/baseball-sim/matchup-engine/obslog"
)

const (
	// Freshness for the current calendar date
	TodayTTL = 6 * time.Hour

	// Freshness for past and future dates
	OtherDayTTL = 24 * time.Hour

	filePrefix = "matchup_"
	fileSuffix = ".json"
)

// Entry is the on-disk record for one date
type Entry struct {
	Date     string                 `json:"date"`
	CachedAt time.Time              `json:"cached_at"`
	Games    []models.ScheduledGame `json:"games"`
}

// Options configures a Cache
type Options struct {
	Dir      string
	Location *time.Location   // zone that decides "today"; defaults to time.Local
	Now      func() time.Time // injectable clock
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
}

// Cache stores one slate per date as matchup_{date}.json. Writes replace
// the whole file via temp file + rename, so a reader sees either the old
// record or the new one.
type Cache struct {
	dir     string
	loc     *time.Location
	now     func() time.Time
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates the cache directory if needed
func New(opts Options) (*Cache, error) {
	if strings.TrimSpace(opts.Dir) == "" {
		return nil, errors.New("matchupcache: directory is required")
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}

	c := &Cache{
		dir:     opts.Dir,
		loc:     opts.Location,
		now:     opts.Now,
		logger:  obslog.OrNop(opts.Logger),
		metrics: opts.Metrics,
		locks:   make(map[string]*sync.Mutex),
	}
	if c.loc == nil {
		c.loc = time.Local
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c, nil
}

// Get returns the cached games for date when a fresh entry exists. A missing,
// stale, unreadable entry or forceRefresh all report false.
func (c *Cache) Get(date string, forceRefresh bool) ([]models.ScheduledGame, bool) {
	if forceRefresh {
		c.recordMiss()
		return nil, false
	}

	entry, err := c.Lookup(date)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			c.logger.Warn("unreadable cache entry",
				zap.String("date", date),
				zap.Error(err))
			c.metrics.RecordSwallowed(metrics.CacheRead)
		}
		c.recordMiss()
		return nil, false
	}

	if !c.IsFresh(entry) {
		c.logger.Debug("cache entry expired",
			zap.String("date", date),
			zap.Time("cached_at", entry.CachedAt))
		c.recordMiss()
		return nil, false
	}

	if c.metrics != nil {
		c.metrics.IncrementCacheHit()
	}
	return entry.Games, true
}

// Lookup reads the raw entry for date regardless of freshness
func (c *Cache) Lookup(date string) (*Entry, error) {
	path, err := c.path(date)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	if entry.Date != date {
		return nil, fmt.Errorf("entry in %s is for %q", filepath.Base(path), entry.Date)
	}
	if entry.Games == nil {
		entry.Games = []models.ScheduledGame{}
	}
	return &entry, nil
}

// TTL returns the freshness threshold for date relative to the clock
func (c *Cache) TTL(date string) time.Duration {
	if date == c.now().In(c.loc).Format(models.DateLayout) {
		return TodayTTL
	}
	return OtherDayTTL
}

// IsFresh reports whether entry is younger than its date's threshold
func (c *Cache) IsFresh(entry *Entry) bool {
	if entry == nil {
		return false
	}
	age := c.now().Sub(entry.CachedAt)
	return age < c.TTL(entry.Date)
}

// Put overwrites the entry for date with games, stamped with the current clock
func (c *Cache) Put(date string, games []models.ScheduledGame) error {
	path, err := c.path(date)
	if err != nil {
		return err
	}
	if games == nil {
		games = []models.ScheduledGame{}
	}

	data, err := json.MarshalIndent(Entry{
		Date:     date,
		CachedAt: c.now(),
		Games:    games,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	unlock := c.Lock(date)
	defer unlock()

	tmp, err := os.CreateTemp(c.dir, filePrefix+date+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace cache entry: %w", err)
	}

	c.logger.Debug("cached slate", zap.String("date", date), zap.Int("games", len(games)))
	return nil
}

// Clear removes every cached entry and returns how many were deleted
func (c *Cache) Clear() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	matches, err := filepath.Glob(filepath.Join(c.dir, filePrefix+"*"+fileSuffix))
	if err != nil {
		return 0, fmt.Errorf("failed to list cache entries: %w", err)
	}

	removed := 0
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !errors.Is(err, os.ErrNotExist) {
			return removed, fmt.Errorf("failed to remove %s: %w", filepath.Base(m), err)
		}
		removed++
	}
	c.logger.Info("cleared matchup cache", zap.Int("entries", removed))
	return removed, nil
}

// Lock acquires the per-date lock and returns its release function
func (c *Cache) Lock(date string) func() {
	c.mu.Lock()
	l, ok := c.locks[date]
	if !ok {
		l = &sync.Mutex{}
		c.locks[date] = l
	}
	c.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Today returns the current calendar date in the cache's zone
func (c *Cache) Today() string {
	return c.now().In(c.loc).Format(models.DateLayout)
}

func (c *Cache) path(date string) (string, error) {
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return "", fmt.Errorf("invalid cache key %q: %w", date, err)
	}
	return filepath.Join(c.dir, filePrefix+date+fileSuffix), nil
}

func (c *Cache) recordMiss() {
	if c.metrics != nil {
		c.metrics.IncrementCacheMiss()
	}
}
