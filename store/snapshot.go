package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/baseball-sim/matchup-engine/models"
)

// statsType maps a stat group onto the stats_type column value
func statsType(group models.StatGroup) (string, error) {
	switch group {
	case models.GroupHitting:
		return "batting", nil
	case models.GroupPitching:
		return "pitching", nil
	}
	return "", fmt.Errorf("unknown stat group %q", group)
}

// UpsertTeams replaces the stored reference data for each team
func (s *Store) UpsertTeams(ctx context.Context, teams []models.Team) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		INSERT INTO teams (id, name, abbreviation, league, division, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			abbreviation = EXCLUDED.abbreviation,
			league = EXCLUDED.league,
			division = EXCLUDED.division,
			updated_at = NOW()`

	for _, t := range teams {
		if _, err := s.db.Exec(ctx, query, t.ID, t.Name, t.Abbreviation, t.League, t.Division); err != nil {
			return fmt.Errorf("failed to upsert team %d: %w", t.ID, err)
		}
	}
	return nil
}

// ReplaceRoster makes players the team's current roster. Players no longer
// listed keep their rows but lose the team link.
func (s *Store) ReplaceRoster(ctx context.Context, teamID int, players []models.Player) (err error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin roster transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, `UPDATE players SET team_id = NULL WHERE team_id = $1`, teamID); err != nil {
		return fmt.Errorf("failed to detach roster for team %d: %w", teamID, err)
	}

	query := `
		INSERT INTO players (id, full_name, position, bats, throws, team_id, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (id) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			position = EXCLUDED.position,
			bats = EXCLUDED.bats,
			throws = EXCLUDED.throws,
			team_id = EXCLUDED.team_id,
			updated_at = NOW()`

	for _, p := range players {
		if _, err = tx.Exec(ctx, query, p.ID, p.FullName, p.Position, p.Bats, p.Throws, teamID); err != nil {
			return fmt.Errorf("failed to upsert player %d: %w", p.ID, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit roster for team %d: %w", teamID, err)
	}
	return nil
}

// UpsertSeasonStat stores one player-season line as JSON
func (s *Store) UpsertSeasonStat(ctx context.Context, stat *models.SeasonStat) error {
	if stat == nil {
		return nil
	}
	kind, err := statsType(stat.Group)
	if err != nil {
		return err
	}

	statsJSON, err := json.Marshal(stat.Values)
	if err != nil {
		return fmt.Errorf("failed to marshal stats for player %d: %w", stat.PlayerID, err)
	}
	gamesPlayed, _ := stat.Get("gamesPlayed")

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		INSERT INTO player_season_aggregates (player_id, season, stats_type, aggregated_stats, games_played, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (player_id, season, stats_type) DO UPDATE SET
			aggregated_stats = EXCLUDED.aggregated_stats,
			games_played = EXCLUDED.games_played,
			updated_at = NOW()`

	if _, err := s.db.Exec(ctx, query, stat.PlayerID, stat.Season, kind, statsJSON, int(gamesPlayed)); err != nil {
		return fmt.Errorf("failed to store %s stats for player %d: %w", kind, stat.PlayerID, err)
	}
	return nil
}

// SeasonStat loads a stored line. A missing row is (nil, nil).
func (s *Store) SeasonStat(ctx context.Context, playerID, season int, group models.StatGroup) (*models.SeasonStat, error) {
	kind, err := statsType(group)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		SELECT aggregated_stats
		FROM player_season_aggregates
		WHERE player_id = $1 AND season = $2 AND stats_type = $3`

	var statsJSON []byte
	if err := s.db.QueryRow(ctx, query, playerID, season, kind).Scan(&statsJSON); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query %s stats for player %d: %w", kind, playerID, err)
	}

	var raw map[string]any
	if err := json.Unmarshal(statsJSON, &raw); err != nil {
		s.logger.Warn("failed to parse aggregated stats",
			zap.Int("player_id", playerID),
			zap.Int("season", season),
			zap.Error(err))
		return nil, fmt.Errorf("failed to parse %s stats for player %d: %w", kind, playerID, err)
	}
	return models.NewSeasonStat(playerID, season, group, raw), nil
}

// HittingStats serves report building from stored snapshots
func (s *Store) HittingStats(ctx context.Context, playerID, season int) (*models.SeasonStat, error) {
	return s.SeasonStat(ctx, playerID, season, models.GroupHitting)
}

// Teams lists stored teams ordered by name
func (s *Store) Teams(ctx context.Context) ([]models.Team, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.db.Query(ctx, `
		SELECT id, name, abbreviation, league, division
		FROM teams
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query teams: %w", err)
	}
	defer rows.Close()

	teams := []models.Team{}
	for rows.Next() {
		var t models.Team
		if err := rows.Scan(&t.ID, &t.Name, &t.Abbreviation, &t.League, &t.Division); err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

// Roster lists the stored players linked to a team
func (s *Store) Roster(ctx context.Context, teamID int) ([]models.Player, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.db.Query(ctx, `
		SELECT id, full_name, position, bats, throws, team_id
		FROM players
		WHERE team_id = $1
		ORDER BY full_name`, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to query roster for team %d: %w", teamID, err)
	}
	defer rows.Close()

	players := []models.Player{}
	for rows.Next() {
		var p models.Player
		if err := rows.Scan(&p.ID, &p.FullName, &p.Position, &p.Bats, &p.Throws, &p.TeamID); err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}
