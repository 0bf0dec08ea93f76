package matchupcache

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baseball-sim/matchup-engine/metrics"
	"github.com/baseball-sim/matchup-engine/models"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestCache(t *testing.T, start time.Time) (*Cache, *fakeClock, *metrics.Metrics) {
	t.Helper()
	clock := &fakeClock{now: start}
	m := metrics.New()
	c, err := New(Options{
		Dir:      t.TempDir(),
		Location: time.UTC,
		Now:      clock.Now,
		Metrics:  m,
	})
	require.NoError(t, err)
	return c, clock, m
}

func sampleGames() []models.ScheduledGame {
	id := 605400
	first := time.Date(2025, time.June, 6, 23, 15, 0, 0, time.UTC)
	return []models.ScheduledGame{
		{
			GameID:   777620,
			Date:     "2025-06-06",
			GameTime: &first,
			Status:   models.StatusScheduled,
			HomeTeam: models.TeamRef{ID: 138, Name: "St. Louis Cardinals"},
			AwayTeam: models.TeamRef{ID: 119, Name: "Los Angeles Dodgers"},
			HomePitcher: models.ProbablePitcher{
				ID:       &id,
				FullName: "Home Starter",
				Stats: &models.SeasonStat{
					PlayerID: id,
					Season:   2025,
					Group:    models.GroupPitching,
					Values:   map[string]float64{"era": 5.1, "whip": 1.42, "inningsPitched": 61.1},
				},
			},
			AwayPitcher: models.TBDPitcher(),
		},
	}
}

func TestRoundTrip(t *testing.T) {
	c, _, _ := newTestCache(t, time.Date(2025, time.June, 6, 12, 0, 0, 0, time.UTC))
	games := sampleGames()

	require.NoError(t, c.Put("2025-06-06", games))

	got, ok := c.Get("2025-06-06", false)
	require.True(t, ok)
	assert.Equal(t, games, got)
}

func TestMiss(t *testing.T) {
	c, _, m := newTestCache(t, time.Date(2025, time.June, 6, 12, 0, 0, 0, time.UTC))

	_, ok := c.Get("2025-06-07", false)
	assert.False(t, ok)
	assert.Equal(t, int64(1), m.Snapshot().Cache.Misses)
	assert.Equal(t, int64(0), m.Swallowed(metrics.CacheRead), "absent file is not an error")
}

func TestFreshnessToday(t *testing.T) {
	tests := []struct {
		name  string
		age   time.Duration
		fresh bool
	}{
		{"5 hours", 5 * time.Hour, true},
		{"just under 6 hours", 6*time.Hour - time.Second, true},
		{"exactly 6 hours", 6 * time.Hour, false},
		{"7 hours", 7 * time.Hour, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, clock, _ := newTestCache(t, time.Date(2025, time.June, 6, 1, 0, 0, 0, time.UTC))
			require.NoError(t, c.Put("2025-06-06", sampleGames()))

			clock.Advance(tt.age)
			_, ok := c.Get("2025-06-06", false)
			assert.Equal(t, tt.fresh, ok)
		})
	}
}

func TestFreshnessOtherDays(t *testing.T) {
	c, clock, _ := newTestCache(t, time.Date(2025, time.June, 6, 1, 0, 0, 0, time.UTC))
	require.NoError(t, c.Put("2025-06-05", sampleGames()))

	clock.Advance(20 * time.Hour)
	_, ok := c.Get("2025-06-05", false)
	assert.True(t, ok, "past date within 24h is fresh")

	clock.Advance(5 * time.Hour)
	_, ok = c.Get("2025-06-05", false)
	assert.False(t, ok, "past date after 24h is stale")
}

func TestTTLFollowsClock(t *testing.T) {
	c, clock, _ := newTestCache(t, time.Date(2025, time.June, 6, 23, 0, 0, 0, time.UTC))
	assert.Equal(t, TodayTTL, c.TTL("2025-06-06"))
	assert.Equal(t, OtherDayTTL, c.TTL("2025-06-07"))

	clock.Advance(2 * time.Hour)
	assert.Equal(t, OtherDayTTL, c.TTL("2025-06-06"))
	assert.Equal(t, TodayTTL, c.TTL("2025-06-07"))
}

func TestForceRefresh(t *testing.T) {
	c, _, _ := newTestCache(t, time.Date(2025, time.June, 6, 12, 0, 0, 0, time.UTC))
	require.NoError(t, c.Put("2025-06-06", sampleGames()))

	_, ok := c.Get("2025-06-06", true)
	assert.False(t, ok)

	_, ok = c.Get("2025-06-06", false)
	assert.True(t, ok, "force refresh does not discard the entry")
}

func TestEmptySlate(t *testing.T) {
	c, _, _ := newTestCache(t, time.Date(2025, time.June, 6, 12, 0, 0, 0, time.UTC))
	require.NoError(t, c.Put("2025-12-25", nil))

	games, ok := c.Get("2025-12-25", false)
	require.True(t, ok)
	assert.NotNil(t, games)
	assert.Empty(t, games)
}

func TestCorruptEntry(t *testing.T) {
	c, _, m := newTestCache(t, time.Date(2025, time.June, 6, 12, 0, 0, 0, time.UTC))
	path := filepath.Join(c.dir, "matchup_2025-06-06.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"date":"2025-06-06","games":[`), 0o644))

	_, ok := c.Get("2025-06-06", false)
	assert.False(t, ok)
	assert.Equal(t, int64(1), m.Swallowed(metrics.CacheRead))
}

func TestInvalidKey(t *testing.T) {
	c, _, _ := newTestCache(t, time.Date(2025, time.June, 6, 12, 0, 0, 0, time.UTC))

	assert.Error(t, c.Put("../escape", sampleGames()))
	_, ok := c.Get("../escape", false)
	assert.False(t, ok)
}

func TestPutLeavesNoTempFiles(t *testing.T) {
	c, _, _ := newTestCache(t, time.Date(2025, time.June, 6, 12, 0, 0, 0, time.UTC))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, c.Put("2025-06-06", sampleGames()))
		}()
	}
	wg.Wait()

	entries, err := os.ReadDir(c.dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "matchup_2025-06-06.json", entries[0].Name())

	_, ok := c.Get("2025-06-06", false)
	assert.True(t, ok)
}

func TestClear(t *testing.T) {
	c, _, _ := newTestCache(t, time.Date(2025, time.June, 6, 12, 0, 0, 0, time.UTC))
	require.NoError(t, c.Put("2025-06-05", sampleGames()))
	require.NoError(t, c.Put("2025-06-06", sampleGames()))
	require.NoError(t, os.WriteFile(filepath.Join(c.dir, "notes.txt"), []byte("keep"), 0o644))

	removed, err := c.Clear()
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	_, ok := c.Get("2025-06-06", false)
	assert.False(t, ok)
	_, err = os.Stat(filepath.Join(c.dir, "notes.txt"))
	assert.NoError(t, err)
}
