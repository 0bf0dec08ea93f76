// Package api serves matchup reports and the supporting views over HTTP.
package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/baseball-sim/matchup-engine/metrics"
	"github.com/baseball-sim/matchup-engine/models"
	"github.com/baseball-sim/matchup-engine/obslog"
	"github.com/baseball-sim/matchup-engine/report"
	"github.com/baseball-sim/matchup-engine/store"
	"github.com/baseball-sim/matchup-engine/streakboard"
)

// Reports is the report engine surface the API exposes
type Reports interface {
	Build(ctx context.Context, req report.Request) (*report.Report, error)
	Slate(ctx context.Context, date string, forceRefresh bool) ([]models.ScheduledGame, bool, error)
	PlayerStreak(ctx context.Context, playerID int, date string) (*report.StreakView, error)
	RecentGames(ctx context.Context, playerID int, group models.StatGroup, date string, n int) ([]models.GameLogEntry, error)
	HeadToHead(ctx context.Context, m report.Matchup) (*report.HeadToHeadView, error)
}

type CacheAdmin interface {
	Clear() (int, error)
}

type TeamSource interface {
	FetchTeams(ctx context.Context) ([]models.Team, error)
}

type Streaks interface {
	Top(ctx context.Context, season int, date string, limit int) ([]streakboard.Entry, error)
	Refresh(ctx context.Context, season int, date string, asOf time.Time) ([]streakboard.Entry, error)
}

type Picks interface {
	CreatePick(ctx context.Context, p *store.Pick) error
	PicksByDate(ctx context.Context, date time.Time) ([]store.Pick, error)
	PickSummary(ctx context.Context) (*store.PickSummary, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the components behind the routes. Streaks, Picks and DB are
// optional; their routes are only mounted when set.
type Deps struct {
	Reports Reports
	Cache   CacheAdmin
	Teams   TeamSource
	Streaks Streaks
	Picks   Picks
	DB      Pinger
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

type Options struct {
	Port           string
	RatePerMinute  int
	RateBurst      int
	AllowedOrigins []string
	IncludeH2H     bool // default for the h2h query parameter
	Season         int
	Location       *time.Location
	Now            func() time.Time
}

type Server struct {
	deps       Deps
	router     *mux.Router
	httpServer *http.Server
	limiter    *RateLimiter
	stop       chan struct{}
	stopOnce   sync.Once
	logger     *zap.Logger
	metrics    *metrics.Metrics

	port       string
	origins    []string
	includeH2H bool
	season     int
	loc        *time.Location
	now        func() time.Time
}

func NewServer(deps Deps, opts Options) *Server {
	s := &Server{
		deps:       deps,
		router:     mux.NewRouter(),
		stop:       make(chan struct{}),
		logger:     obslog.OrNop(deps.Logger),
		metrics:    deps.Metrics,
		port:       opts.Port,
		origins:    opts.AllowedOrigins,
		includeH2H: opts.IncludeH2H,
		season:     opts.Season,
		loc:        opts.Location,
		now:        opts.Now,
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	if s.port == "" {
		s.port = "8080"
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.now == nil {
		s.now = time.Now
	}
	if opts.RatePerMinute > 0 {
		s.limiter = NewRateLimiter(opts.RatePerMinute, opts.RateBurst)
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/", s.rootHandler).Methods("GET")

	s.router.MethodNotAllowedHandler = http.HandlerFunc(s.methodNotAllowedHandler)

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.MethodNotAllowedHandler = http.HandlerFunc(s.methodNotAllowedHandler)

	api.HandleFunc("/health", s.healthHandler).Methods("GET")
	api.HandleFunc("/metrics", s.metricsHandler).Methods("GET")

	// Reports and slates
	api.HandleFunc("/matchups/{date}", s.matchupsHandler).Methods("GET")
	api.HandleFunc("/games/date/{date}", s.gamesByDateHandler).Methods("GET")
	api.HandleFunc("/cache", s.clearCacheHandler).Methods("DELETE")

	// Teams and players
	api.HandleFunc("/teams", s.teamsHandler).Methods("GET")
	api.HandleFunc("/players/{id}/streak", s.playerStreakHandler).Methods("GET")
	api.HandleFunc("/players/{id}/games", s.playerGamesHandler).Methods("GET")
	api.HandleFunc("/h2h", s.headToHeadHandler).Methods("GET")

	if s.deps.Streaks != nil {
		api.HandleFunc("/streaks", s.streaksHandler).Methods("GET")
		api.HandleFunc("/streaks/refresh", s.refreshStreaksHandler).Methods("POST")
	}

	if s.deps.Picks != nil {
		api.HandleFunc("/picks", s.listPicksHandler).Methods("GET")
		api.HandleFunc("/picks", s.createPickHandler).Methods("POST")
		api.HandleFunc("/picks/summary", s.pickSummaryHandler).Methods("GET")
	}

	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.recoveryMiddleware)
	if s.limiter != nil {
		s.router.Use(s.rateLimitMiddleware)
	}
}

// Handler returns the full middleware chain around the router
func (s *Server) Handler() http.Handler {
	origins := s.origins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:8080"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		MaxAge:         86400,
	})

	return c.Handler(handlers.CompressHandler(handlers.ProxyHeaders(s.router)))
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:        ":" + s.port,
		Handler:     s.Handler(),
		ReadTimeout: 15 * time.Second,
		// full reports fan out to the feed; leave room for a cold slate
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	if s.limiter != nil {
		go s.pruneLimiter()
	}

	s.logger.Info("starting matchup API", zap.String("port", s.port))
	return s.httpServer.ListenAndServe()
}

func (s *Server) pruneLimiter() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if n := s.limiter.Prune(); n > 0 {
				s.logger.Debug("pruned idle rate limit clients", zap.Int("removed", n))
			}
		}
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down matchup API")
	s.stopOnce.Do(func() { close(s.stop) })
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
