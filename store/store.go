// Package store persists normalized snapshots of teams, rosters and season
// stats in Postgres, along with pick records.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/baseball-sim/matchup-engine/config"
	"github.com/baseball-sim/matchup-engine/obslog"
)

// queryTimeout bounds a single statement issued by the store
const queryTimeout = 5 * time.Second

// DB is the subset of *pgxpool.Pool the store uses
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// Store reads and writes snapshots and picks
type Store struct {
	db     DB
	logger *zap.Logger
	now    func() time.Time
}

// New wraps an open connection pool
func New(db DB, logger *zap.Logger) *Store {
	return &Store{db: db, logger: obslog.OrNop(logger), now: time.Now}
}

// NewPool opens and pings a pgx pool sized by cfg
func NewPool(ctx context.Context, cfg config.DBConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = cfg.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// Ping checks database connectivity
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return s.db.Ping(ctx)
}

func (s *Store) Close() {
	s.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS teams (
	id           INTEGER PRIMARY KEY,
	name         TEXT NOT NULL,
	abbreviation TEXT NOT NULL DEFAULT '',
	league       TEXT NOT NULL DEFAULT '',
	division     TEXT NOT NULL DEFAULT '',
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS players (
	id         INTEGER PRIMARY KEY,
	full_name  TEXT NOT NULL,
	position   TEXT NOT NULL DEFAULT '',
	bats       TEXT NOT NULL DEFAULT '',
	throws     TEXT NOT NULL DEFAULT '',
	team_id    INTEGER REFERENCES teams(id),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS players_team_id_idx ON players (team_id);

CREATE TABLE IF NOT EXISTS player_season_aggregates (
	player_id        INTEGER NOT NULL,
	season           INTEGER NOT NULL,
	stats_type       TEXT NOT NULL,
	aggregated_stats JSONB NOT NULL,
	games_played     INTEGER NOT NULL DEFAULT 0,
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (player_id, season, stats_type)
);

CREATE TABLE IF NOT EXISTS picks (
	id         UUID PRIMARY KEY,
	game_pk    INTEGER NOT NULL,
	pick_type  TEXT NOT NULL,
	market     TEXT NOT NULL,
	selection  TEXT NOT NULL,
	odds       INTEGER,
	stars      SMALLINT NOT NULL CHECK (stars BETWEEN 1 AND 5),
	comment    TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS picks_created_at_idx ON picks (created_at);
`

// Migrate creates the tables if they do not exist
func (s *Store) Migrate(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
