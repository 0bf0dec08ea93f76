package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidPick is returned when a pick fails validation
var ErrInvalidPick = errors.New("invalid pick")

// Pick is a recorded selection on one game
type Pick struct {
	ID        uuid.UUID `json:"id"`
	GamePK    int       `json:"game_pk"`
	PickType  string    `json:"pick_type"`
	Market    string    `json:"market"`
	Selection string    `json:"selection"`
	Odds      *int      `json:"odds,omitempty"` // American odds
	Stars     int       `json:"stars"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks the fields a caller must supply
func (p *Pick) Validate() error {
	var problems []string
	if p.GamePK <= 0 {
		problems = append(problems, "game_pk is required")
	}
	if strings.TrimSpace(p.Market) == "" {
		problems = append(problems, "market is required")
	}
	if strings.TrimSpace(p.Selection) == "" {
		problems = append(problems, "selection is required")
	}
	if p.Stars < 1 || p.Stars > 5 {
		problems = append(problems, fmt.Sprintf("stars must be between 1 and 5, got %d", p.Stars))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidPick, strings.Join(problems, "; "))
	}
	return nil
}

// PickSummary counts picks by type and by star rating
type PickSummary struct {
	Total   int            `json:"total"`
	ByType  map[string]int `json:"by_type"`
	ByStars map[int]int    `json:"by_stars"`
}

// CreatePick validates and stores p, assigning its id and timestamp
func (s *Store) CreatePick(ctx context.Context, p *Pick) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.PickType == "" {
		p.PickType = "straight"
	}
	p.ID = uuid.New()
	p.CreatedAt = s.now().UTC()

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		INSERT INTO picks (id, game_pk, pick_type, market, selection, odds, stars, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.db.Exec(ctx, query,
		p.ID,
		p.GamePK,
		p.PickType,
		p.Market,
		p.Selection,
		p.Odds,
		p.Stars,
		p.Comment,
		p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store pick: %w", err)
	}
	return nil
}

// PicksByDate lists picks created on the calendar day of date in its zone,
// newest first
func (s *Store) PicksByDate(ctx context.Context, date time.Time) ([]Pick, error) {
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	end := start.AddDate(0, 0, 1)

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.db.Query(ctx, `
		SELECT id, game_pk, pick_type, market, selection, odds, stars, comment, created_at
		FROM picks
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at DESC`, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query picks: %w", err)
	}
	defer rows.Close()

	picks := []Pick{}
	for rows.Next() {
		var p Pick
		if err := rows.Scan(&p.ID, &p.GamePK, &p.PickType, &p.Market, &p.Selection,
			&p.Odds, &p.Stars, &p.Comment, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan pick: %w", err)
		}
		picks = append(picks, p)
	}
	return picks, rows.Err()
}

// PickSummary aggregates all stored picks
func (s *Store) PickSummary(ctx context.Context) (*PickSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.db.Query(ctx, `
		SELECT pick_type, stars, COUNT(*)
		FROM picks
		GROUP BY pick_type, stars`)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize picks: %w", err)
	}
	defer rows.Close()

	summary := &PickSummary{ByType: map[string]int{}, ByStars: map[int]int{}}
	for rows.Next() {
		var (
			pickType string
			stars    int
			count    int64
		)
		if err := rows.Scan(&pickType, &stars, &count); err != nil {
			return nil, fmt.Errorf("failed to scan pick summary: %w", err)
		}
		summary.Total += int(count)
		summary.ByType[pickType] += int(count)
		summary.ByStars[stars] += int(count)
	}
	return summary, rows.Err()
}
