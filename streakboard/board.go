// Package streakboard keeps a league-wide leaderboard of active hit streaks
// in Redis.
package streakboard

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL keeps one day's board around until the next refresh
const DefaultTTL = 24 * time.Hour

// Entry is one hitter on the board
type Entry struct {
	PlayerID int    `json:"player_id"`
	Name     string `json:"name"`
	TeamID   int    `json:"team_id"`
	TeamName string `json:"team_name"`
	Streak   int    `json:"streak"`
}

// playerInfo is the hash value stored next to each ranked player
type playerInfo struct {
	Name     string `json:"name"`
	TeamID   int    `json:"team_id"`
	TeamName string `json:"team_name"`
}

// Board stores streaks as a sorted set per season and date
type Board struct {
	client *redis.Client
	ttl    time.Duration
}

// NewBoard creates a board; ttl <= 0 selects DefaultTTL
func NewBoard(client *redis.Client, ttl time.Duration) *Board {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Board{client: client, ttl: ttl}
}

func rankKey(season int, date string) string {
	return fmt.Sprintf("streaks:%d:%s", season, date)
}

func namesKey(season int, date string) string {
	return rankKey(season, date) + ":players"
}

// Write replaces the board for date with entries
func (b *Board) Write(ctx context.Context, season int, date string, entries []Entry) error {
	rank, names := rankKey(season, date), namesKey(season, date)

	members := make([]redis.Z, 0, len(entries))
	info := make(map[string]any, len(entries))
	for _, e := range entries {
		id := strconv.Itoa(e.PlayerID)
		data, err := json.Marshal(playerInfo{Name: e.Name, TeamID: e.TeamID, TeamName: e.TeamName})
		if err != nil {
			return fmt.Errorf("marshaling player %d: %w", e.PlayerID, err)
		}
		members = append(members, redis.Z{Score: float64(e.Streak), Member: id})
		info[id] = data
	}

	pipe := b.client.TxPipeline()
	pipe.Del(ctx, rank, names)
	if len(members) > 0 {
		pipe.ZAdd(ctx, rank, members...)
		pipe.HSet(ctx, names, info)
		pipe.Expire(ctx, rank, b.ttl)
		pipe.Expire(ctx, names, b.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("writing streak board %s: %w", rank, err)
	}
	return nil
}

// Top returns up to limit entries with the longest streaks first. A board
// that was never written is empty, not an error.
func (b *Board) Top(ctx context.Context, season int, date string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 25
	}
	rank := rankKey(season, date)

	ranked, err := b.client.ZRevRangeWithScores(ctx, rank, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("reading streak board %s: %w", rank, err)
	}
	entries := make([]Entry, 0, len(ranked))
	if len(ranked) == 0 {
		return entries, nil
	}

	ids := make([]string, len(ranked))
	for i, z := range ranked {
		ids[i] = z.Member.(string)
	}
	infos, err := b.client.HMGet(ctx, namesKey(season, date), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("reading streak board players: %w", err)
	}

	for i, z := range ranked {
		id, err := strconv.Atoi(ids[i])
		if err != nil {
			continue
		}
		e := Entry{PlayerID: id, Streak: int(z.Score)}
		if raw, ok := infos[i].(string); ok {
			var pi playerInfo
			if json.Unmarshal([]byte(raw), &pi) == nil {
				e.Name, e.TeamID, e.TeamName = pi.Name, pi.TeamID, pi.TeamName
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}
