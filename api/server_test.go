package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baseball-sim/matchup-engine/analytics"
	"github.com/baseball-sim/matchup-engine/metrics"
	"github.com/baseball-sim/matchup-engine/models"
	"github.com/baseball-sim/matchup-engine/report"
	"github.com/baseball-sim/matchup-engine/store"
	"github.com/baseball-sim/matchup-engine/streakboard"
)

var testNow = time.Date(2025, time.June, 5, 18, 0, 0, 0, time.UTC)

type fakeReports struct {
	lastRequest report.Request
	lastMatchup report.Matchup
	lastGroup   models.StatGroup
	lastLimit   int
	slateErr    error
	panicBuild  bool
}

func (f *fakeReports) Build(ctx context.Context, req report.Request) (*report.Report, error) {
	if f.panicBuild {
		panic("boom")
	}
	if _, err := models.ParseDate(req.Date, time.UTC); err != nil {
		return nil, report.ErrInvalidDate
	}
	f.lastRequest = req
	return &report.Report{Date: req.Date, Season: 2025, Games: []report.GameReport{{GameID: 100}}}, nil
}

func (f *fakeReports) Slate(ctx context.Context, date string, forceRefresh bool) ([]models.ScheduledGame, bool, error) {
	if f.slateErr != nil {
		return nil, false, f.slateErr
	}
	return []models.ScheduledGame{{GameID: 100, Date: date}}, true, nil
}

func (f *fakeReports) PlayerStreak(ctx context.Context, playerID int, date string) (*report.StreakView, error) {
	return &report.StreakView{PlayerID: playerID, Date: date, Streak: 4}, nil
}

func (f *fakeReports) RecentGames(ctx context.Context, playerID int, group models.StatGroup, date string, n int) ([]models.GameLogEntry, error) {
	f.lastGroup, f.lastLimit = group, n
	return []models.GameLogEntry{{PlayerID: playerID, Date: "2025-06-04"}}, nil
}

func (f *fakeReports) HeadToHead(ctx context.Context, m report.Matchup) (*report.HeadToHeadView, error) {
	f.lastMatchup = m
	switch m.BatterID {
	case 0:
		return nil, fmt.Errorf("%w: batter and pitcher ids are required", report.ErrInvalidMatchup)
	case 1:
		return nil, errors.New("feed 503")
	}
	if m.BatterTeamID == 0 {
		m.BatterTeamID = 147
	}
	if m.PitcherTeamID == 0 {
		m.PitcherTeamID = 111
	}
	if m.Season == 0 {
		m.Season = 2025
	}
	return &report.HeadToHeadView{
		BatterID:      m.BatterID,
		BatterTeamID:  m.BatterTeamID,
		PitcherID:     m.PitcherID,
		PitcherTeamID: m.PitcherTeamID,
		Season:        m.Season,
		H2H:           analytics.H2HLine{Hits: 3, AtBats: 10, Games: 4},
	}, nil
}

type fakeCache struct{ removed int }

func (f *fakeCache) Clear() (int, error) { return f.removed, nil }

type fakeTeams struct{}

func (fakeTeams) FetchTeams(ctx context.Context) ([]models.Team, error) {
	return []models.Team{{ID: 147, Name: "New York Yankees"}}, nil
}

type fakeStreaks struct {
	refreshedAsOf time.Time
}

func (f *fakeStreaks) Top(ctx context.Context, season int, date string, limit int) ([]streakboard.Entry, error) {
	return []streakboard.Entry{{PlayerID: 1, Name: "Hot Bat", Streak: 9}}, nil
}

func (f *fakeStreaks) Refresh(ctx context.Context, season int, date string, asOf time.Time) ([]streakboard.Entry, error) {
	f.refreshedAsOf = asOf
	return []streakboard.Entry{{PlayerID: 1, Streak: 9}, {PlayerID: 2, Streak: 3}}, nil
}

type fakePicks struct {
	created []store.Pick
}

func (f *fakePicks) CreatePick(ctx context.Context, p *store.Pick) error {
	if err := p.Validate(); err != nil {
		return err
	}
	f.created = append(f.created, *p)
	return nil
}

func (f *fakePicks) PicksByDate(ctx context.Context, date time.Time) ([]store.Pick, error) {
	return f.created, nil
}

func (f *fakePicks) PickSummary(ctx context.Context) (*store.PickSummary, error) {
	return &store.PickSummary{Total: len(f.created), ByType: map[string]int{}, ByStars: map[int]int{}}, nil
}

type fakeDB struct{ err error }

func (f fakeDB) Ping(ctx context.Context) error { return f.err }

type testServer struct {
	*Server
	reports *fakeReports
	streaks *fakeStreaks
	picks   *fakePicks
	metrics *metrics.Metrics
}

func newTestServer(t *testing.T, mutate func(*Deps, *Options)) *testServer {
	t.Helper()
	ts := &testServer{
		reports: &fakeReports{},
		streaks: &fakeStreaks{},
		picks:   &fakePicks{},
		metrics: metrics.New(),
	}
	deps := Deps{
		Reports: ts.reports,
		Cache:   &fakeCache{removed: 3},
		Teams:   fakeTeams{},
		Streaks: ts.streaks,
		Picks:   ts.picks,
		Metrics: ts.metrics,
	}
	opts := Options{
		Location: time.UTC,
		Now:      func() time.Time { return testNow },
	}
	if mutate != nil {
		mutate(&deps, &opts)
	}
	ts.Server = NewServer(deps, opts)
	return ts
}

func (ts *testServer) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestHealth(t *testing.T) {
	t.Run("without database", func(t *testing.T) {
		ts := newTestServer(t, nil)
		rec := ts.do("GET", "/api/v1/health", "")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("database down", func(t *testing.T) {
		ts := newTestServer(t, func(d *Deps, _ *Options) { d.DB = fakeDB{err: errors.New("refused")} })
		rec := ts.do("GET", "/api/v1/health", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var body map[string]any
		decode(t, rec, &body)
		assert.Equal(t, "disconnected", body["database"])
	})
}

func TestMatchups(t *testing.T) {
	ts := newTestServer(t, func(_ *Deps, o *Options) { o.IncludeH2H = true })

	rec := ts.do("GET", "/api/v1/matchups/2025-06-05?weak_only=true&refresh=1&all=yes", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, report.Request{
		Date:         "2025-06-05",
		ForceRefresh: true,
		WeakOnly:     true,
		IncludeH2H:   true,
		AnalyzeAll:   true,
	}, ts.reports.lastRequest)

	var rep report.Report
	decode(t, rec, &rep)
	assert.Equal(t, "2025-06-05", rep.Date)
	require.Len(t, rep.Games, 1)

	rec = ts.do("GET", "/api/v1/matchups/today?h2h=false", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2025-06-05", ts.reports.lastRequest.Date)
	assert.False(t, ts.reports.lastRequest.IncludeH2H)
}

func TestMatchupsInvalidDate(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do("GET", "/api/v1/matchups/06-05-2025", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var apiErr APIError
	decode(t, rec, &apiErr)
	assert.Equal(t, "invalid_date", apiErr.Code)
}

func TestGamesByDate(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do("GET", "/api/v1/games/date/2025-06-05", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		FromCache bool `json:"from_cache"`
		Count     int  `json:"count"`
	}
	decode(t, rec, &body)
	assert.True(t, body.FromCache)
	assert.Equal(t, 1, body.Count)

	ts.reports.slateErr = errors.New("feed down")
	rec = ts.do("GET", "/api/v1/games/date/2025-06-05", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	ts.reports.slateErr = report.ErrInvalidDate
	rec = ts.do("GET", "/api/v1/games/date/bad", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClearCache(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do("DELETE", "/api/v1/cache", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"removed": 3}`, rec.Body.String())

	rec = ts.do("GET", "/api/v1/cache", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	var apiErr APIError
	decode(t, rec, &apiErr)
	assert.Equal(t, "method_not_allowed", apiErr.Code)

	rec = ts.do("POST", "/", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestTeams(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do("GET", "/api/v1/teams", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var teams []models.Team
	decode(t, rec, &teams)
	require.Len(t, teams, 1)
	assert.Equal(t, 147, teams[0].ID)
}

func TestPlayerRoutes(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do("GET", "/api/v1/players/592450/streak?date=2025-06-01", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var view report.StreakView
	decode(t, rec, &view)
	assert.Equal(t, 592450, view.PlayerID)
	assert.Equal(t, "2025-06-01", view.Date)

	rec = ts.do("GET", "/api/v1/players/abc/streak", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do("GET", "/api/v1/players/592450/games?group=Pitching&limit=8", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.GroupPitching, ts.reports.lastGroup)
	assert.Equal(t, 8, ts.reports.lastLimit)

	rec = ts.do("GET", "/api/v1/players/592450/games?limit=500", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, defaultRecentGames, ts.reports.lastLimit)

	rec = ts.do("GET", "/api/v1/players/592450/games?group=fielding", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHeadToHead(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do("GET", "/api/v1/h2h?batter=592450&batter_team=147&pitcher=543037&pitcher_team=111&season=2024", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, report.Matchup{BatterID: 592450, BatterTeamID: 147, PitcherID: 543037, PitcherTeamID: 111, Season: 2024}, ts.reports.lastMatchup)

	var body struct {
		Season        int `json:"season"`
		PitcherTeamID int `json:"pitcher_team_id"`
		H2H           struct {
			Line string `json:"line"`
		} `json:"h2h"`
	}
	decode(t, rec, &body)
	assert.Equal(t, "3-10", body.H2H.Line)
	assert.Equal(t, 2024, body.Season)

	t.Run("players only", func(t *testing.T) {
		rec := ts.do("GET", "/api/v1/h2h?batter=592450&pitcher=543037", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, report.Matchup{BatterID: 592450, PitcherID: 543037}, ts.reports.lastMatchup)

		decode(t, rec, &body)
		assert.Equal(t, 2025, body.Season, "the defaulted season is echoed")
		assert.Equal(t, 111, body.PitcherTeamID)
	})

	t.Run("missing batter", func(t *testing.T) {
		rec := ts.do("GET", "/api/v1/h2h?pitcher=543037", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("feed failure", func(t *testing.T) {
		rec := ts.do("GET", "/api/v1/h2h?batter=1&pitcher=543037", "")
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}

func TestStreakRoutes(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do("GET", "/api/v1/streaks", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Date    string              `json:"date"`
		Season  int                 `json:"season"`
		Entries []streakboard.Entry `json:"entries"`
	}
	decode(t, rec, &body)
	assert.Equal(t, "2025-06-05", body.Date)
	assert.Equal(t, 2025, body.Season)
	require.Len(t, body.Entries, 1)

	rec = ts.do("POST", "/api/v1/streaks/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, testNow, ts.streaks.refreshedAsOf, "today's board is evaluated as of now")

	rec = ts.do("POST", "/api/v1/streaks/refresh?date=2025-05-01", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC), ts.streaks.refreshedAsOf)

	rec = ts.do("GET", "/api/v1/streaks?date=May-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOptionalRoutesUnmounted(t *testing.T) {
	ts := newTestServer(t, func(d *Deps, _ *Options) {
		d.Streaks = nil
		d.Picks = nil
	})

	assert.Equal(t, http.StatusNotFound, ts.do("GET", "/api/v1/streaks", "").Code)
	assert.Equal(t, http.StatusNotFound, ts.do("GET", "/api/v1/picks", "").Code)
}

func TestPickRoutes(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do("POST", "/api/v1/picks", `{"game_pk": 777001, "market": "moneyline", "selection": "NYY", "stars": 4}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, ts.picks.created, 1)

	rec = ts.do("POST", "/api/v1/picks", `{"game_pk": 777001, "market": "moneyline", "selection": "NYY", "stars": 7}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var apiErr APIError
	decode(t, rec, &apiErr)
	assert.Equal(t, "invalid_pick", apiErr.Code)

	rec = ts.do("POST", "/api/v1/picks", `{"game_pk": 1, "unknown_field": true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do("GET", "/api/v1/picks?date=2025-06-05", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var picks []store.Pick
	decode(t, rec, &picks)
	assert.Len(t, picks, 1)

	rec = ts.do("GET", "/api/v1/picks/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":1`)
}

func TestRecoveryMiddleware(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.reports.panicBuild = true

	rec := ts.do("GET", "/api/v1/matchups/2025-06-05", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.EqualValues(t, 1, ts.metrics.Snapshot().Requests.Errors)
}

func TestRateLimitMiddleware(t *testing.T) {
	ts := newTestServer(t, func(_ *Deps, o *Options) {
		o.RatePerMinute = 1
		o.RateBurst = 2
	})

	assert.Equal(t, http.StatusOK, ts.do("GET", "/api/v1/health", "").Code)
	assert.Equal(t, http.StatusOK, ts.do("GET", "/api/v1/health", "").Code)

	rec := ts.do("GET", "/api/v1/health", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestCompressionAndCORS(t *testing.T) {
	ts := newTestServer(t, func(_ *Deps, o *Options) {
		o.AllowedOrigins = []string{"http://localhost:3000"}
	})

	req := httptest.NewRequest("GET", "/api/v1/teams", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest("GET", "/api/v1/teams", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)

	ts.do("GET", "/api/v1/health", "")
	ts.do("GET", "/api/v1/teams", "")

	rec := ts.do("GET", "/api/v1/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var snap metrics.Snapshot
	decode(t, rec, &snap)
	assert.EqualValues(t, 2, snap.Requests.Total, "the metrics request is counted after it is served")
}

func TestRequestID(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do("GET", "/api/v1/teams", "")
	_, err := uuid.Parse(rec.Header().Get("X-Request-ID"))
	assert.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/v1/teams", nil)
	req.Header.Set("X-Request-ID", "upstream-42")
	rec = httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "upstream-42", rec.Header().Get("X-Request-ID"))
}
