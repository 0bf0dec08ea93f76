package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/baseball-sim/matchup-engine/models"
	"github.com/baseball-sim/matchup-engine/report"
	"github.com/baseball-sim/matchup-engine/store"
)

const (
	defaultRecentGames = 5
	maxRecentGames     = 50
	defaultStreakLimit = 25
	maxPickBody        = 1 << 16
)

func (s *Server) methodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", r.Method+" is not supported for "+r.URL.Path)
}

func (s *Server) rootHandler(w http.ResponseWriter, r *http.Request) {
	endpoints := map[string]string{
		"health":   "/api/v1/health",
		"matchups": "/api/v1/matchups/{date}",
		"games":    "/api/v1/games/date/{date}",
		"teams":    "/api/v1/teams",
		"h2h":      "/api/v1/h2h",
		"metrics":  "/api/v1/metrics",
	}
	if s.deps.Streaks != nil {
		endpoints["streaks"] = "/api/v1/streaks"
	}
	if s.deps.Picks != nil {
		endpoints["picks"] = "/api/v1/picks"
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"service":   "Matchup Analytics API",
		"version":   "1.0.0",
		"time":      s.now().UTC(),
		"endpoints": endpoints,
	})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	health := map[string]any{
		"status": "healthy",
		"time":   s.now().UTC(),
	}
	status := http.StatusOK

	if s.deps.DB != nil {
		ctx, cancel := contextWithTimeout(r.Context())
		defer cancel()

		health["database"] = "connected"
		if err := s.deps.DB.Ping(ctx); err != nil {
			health["database"] = "disconnected"
			health["status"] = "unhealthy"
			status = http.StatusServiceUnavailable
		}
	}

	s.writeJSON(w, status, health)
}

func (s *Server) metricsHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.metrics.Snapshot())
}

func (s *Server) matchupsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := report.Request{
		Date:         s.resolveDate(mux.Vars(r)["date"]),
		ForceRefresh: parseBoolParam(q.Get("refresh"), false),
		WeakOnly:     parseBoolParam(q.Get("weak_only"), false),
		IncludeH2H:   parseBoolParam(q.Get("h2h"), s.includeH2H),
		AnalyzeAll:   parseBoolParam(q.Get("all"), false),
	}

	rep, err := s.deps.Reports.Build(r.Context(), req)
	if err != nil {
		if errors.Is(err, report.ErrInvalidDate) {
			s.writeError(w, http.StatusBadRequest, "invalid_date", "Date must be YYYY-MM-DD")
			return
		}
		s.logger.Error("failed to build report", zap.String("date", req.Date), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "report_failed", "Failed to build report")
		return
	}

	s.writeJSON(w, http.StatusOK, rep)
}

func (s *Server) gamesByDateHandler(w http.ResponseWriter, r *http.Request) {
	date := s.resolveDate(mux.Vars(r)["date"])

	games, fromCache, err := s.deps.Reports.Slate(r.Context(), date, parseBoolParam(r.URL.Query().Get("refresh"), false))
	if err != nil {
		if errors.Is(err, report.ErrInvalidDate) {
			s.writeError(w, http.StatusBadRequest, "invalid_date", "Date must be YYYY-MM-DD")
			return
		}
		s.logger.Warn("schedule unavailable", zap.String("date", date), zap.Error(err))
		s.writeError(w, http.StatusBadGateway, "feed_unavailable", "Schedule unavailable")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"date":       date,
		"from_cache": fromCache,
		"count":      len(games),
		"games":      games,
	})
}

func (s *Server) clearCacheHandler(w http.ResponseWriter, r *http.Request) {
	removed, err := s.deps.Cache.Clear()
	if err != nil {
		s.logger.Error("failed to clear cache", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "cache_clear_failed", "Failed to clear cache")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

func (s *Server) teamsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := contextWithTimeout(r.Context())
	defer cancel()

	teams, err := s.deps.Teams.FetchTeams(ctx)
	if err != nil {
		s.logger.Warn("teams unavailable", zap.Error(err))
		s.writeError(w, http.StatusBadGateway, "feed_unavailable", "Teams unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, teams)
}

func (s *Server) playerStreakHandler(w http.ResponseWriter, r *http.Request) {
	playerID, ok := pathID(r, "id")
	if !ok {
		s.writeError(w, http.StatusBadRequest, "invalid_player", "Player ID must be a positive integer")
		return
	}
	ctx, cancel := contextWithTimeout(r.Context())
	defer cancel()

	view, err := s.deps.Reports.PlayerStreak(ctx, playerID, s.resolveDate(r.URL.Query().Get("date")))
	if err != nil {
		s.writeUpstreamError(w, err, "Game log unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) playerGamesHandler(w http.ResponseWriter, r *http.Request) {
	playerID, ok := pathID(r, "id")
	if !ok {
		s.writeError(w, http.StatusBadRequest, "invalid_player", "Player ID must be a positive integer")
		return
	}
	q := r.URL.Query()

	group := models.GroupHitting
	if g := q.Get("group"); g != "" {
		group = models.StatGroup(strings.ToLower(g))
	}
	if !group.Valid() {
		s.writeError(w, http.StatusBadRequest, "invalid_group", "Group must be hitting or pitching")
		return
	}

	limit := parseIntParam(q.Get("limit"), defaultRecentGames)
	if limit < 1 || limit > maxRecentGames {
		limit = defaultRecentGames
	}

	ctx, cancel := contextWithTimeout(r.Context())
	defer cancel()

	date := s.resolveDate(q.Get("date"))
	games, err := s.deps.Reports.RecentGames(ctx, playerID, group, date, limit)
	if err != nil {
		s.writeUpstreamError(w, err, "Game log unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"player_id": playerID,
		"group":     group,
		"date":      date,
		"games":     games,
	})
}

func (s *Server) headToHeadHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	m := report.Matchup{
		BatterID:      parseIntParam(q.Get("batter"), 0),
		BatterTeamID:  parseIntParam(q.Get("batter_team"), 0),
		PitcherID:     parseIntParam(q.Get("pitcher"), 0),
		PitcherTeamID: parseIntParam(q.Get("pitcher_team"), 0),
		Season:        parseIntParam(q.Get("season"), 0),
	}

	ctx, cancel := contextWithTimeout(r.Context())
	defer cancel()

	view, err := s.deps.Reports.HeadToHead(ctx, m)
	if errors.Is(err, report.ErrInvalidMatchup) {
		s.writeError(w, http.StatusBadRequest, "invalid_matchup", err.Error())
		return
	}
	if err != nil {
		s.writeUpstreamError(w, err, "Head-to-head lookup failed")
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) streaksHandler(w http.ResponseWriter, r *http.Request) {
	date := s.resolveDate(r.URL.Query().Get("date"))
	day, err := models.ParseDate(date, s.loc)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_date", "Date must be YYYY-MM-DD")
		return
	}
	season := s.seasonFor(day)
	limit := parseIntParam(r.URL.Query().Get("limit"), defaultStreakLimit)

	ctx, cancel := contextWithTimeout(r.Context())
	defer cancel()

	entries, err := s.deps.Streaks.Top(ctx, season, date, limit)
	if err != nil {
		s.logger.Error("failed to read streak board", zap.String("date", date), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "streaks_unavailable", "Failed to read streak board")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"date":    date,
		"season":  season,
		"entries": entries,
	})
}

func (s *Server) refreshStreaksHandler(w http.ResponseWriter, r *http.Request) {
	date := s.resolveDate(r.URL.Query().Get("date"))
	day, err := models.ParseDate(date, s.loc)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_date", "Date must be YYYY-MM-DD")
		return
	}

	asOf := day
	if now := s.now().In(s.loc); now.Format(models.DateLayout) == date {
		asOf = now
	}

	entries, err := s.deps.Streaks.Refresh(r.Context(), s.seasonFor(day), date, asOf)
	if err != nil {
		s.logger.Error("failed to refresh streak board", zap.String("date", date), zap.Error(err))
		s.writeError(w, http.StatusBadGateway, "refresh_failed", "Failed to refresh streak board")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"date":    date,
		"count":   len(entries),
		"entries": entries,
	})
}

func (s *Server) listPicksHandler(w http.ResponseWriter, r *http.Request) {
	day, err := models.ParseDate(s.resolveDate(r.URL.Query().Get("date")), s.loc)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_date", "Date must be YYYY-MM-DD")
		return
	}

	ctx, cancel := contextWithTimeout(r.Context())
	defer cancel()

	picks, err := s.deps.Picks.PicksByDate(ctx, day)
	if err != nil {
		s.logger.Error("failed to list picks", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "picks_unavailable", "Failed to list picks")
		return
	}
	s.writeJSON(w, http.StatusOK, picks)
}

func (s *Server) createPickHandler(w http.ResponseWriter, r *http.Request) {
	var pick store.Pick
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPickBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&pick); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_body", "Request body must be a pick object")
		return
	}

	ctx, cancel := contextWithTimeout(r.Context())
	defer cancel()

	if err := s.deps.Picks.CreatePick(ctx, &pick); err != nil {
		if errors.Is(err, store.ErrInvalidPick) {
			s.writeError(w, http.StatusBadRequest, "invalid_pick", err.Error())
			return
		}
		s.logger.Error("failed to create pick", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "pick_failed", "Failed to store pick")
		return
	}
	s.writeJSON(w, http.StatusCreated, pick)
}

func (s *Server) pickSummaryHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := contextWithTimeout(r.Context())
	defer cancel()

	summary, err := s.deps.Picks.PickSummary(ctx)
	if err != nil {
		s.logger.Error("failed to summarize picks", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "picks_unavailable", "Failed to summarize picks")
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

// writeUpstreamError maps an invalid date to 400 and anything else to 502
func (s *Server) writeUpstreamError(w http.ResponseWriter, err error, message string) {
	if errors.Is(err, report.ErrInvalidDate) {
		s.writeError(w, http.StatusBadRequest, "invalid_date", "Date must be YYYY-MM-DD")
		return
	}
	s.logger.Warn(strings.ToLower(message), zap.Error(err))
	s.writeError(w, http.StatusBadGateway, "feed_unavailable", message)
}
