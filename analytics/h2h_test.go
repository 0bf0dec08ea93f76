package analytics

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baseball-sim/matchup-engine/models"
)

func pa(batter, pitcher int, event string) models.PlateAppearanceEvent {
	return models.PlateAppearanceEvent{
		GameID:    777620,
		BatterID:  batter,
		PitcherID: pitcher,
		Event:     event,
		Outcome:   models.OutcomeFromEvent(event),
	}
}

func TestExtractHeadToHead(t *testing.T) {
	events := []models.PlateAppearanceEvent{
		pa(1, 9, "Single"),
		pa(1, 9, "Walk"),
		pa(1, 9, "Groundout"),
		pa(1, 8, "Home Run"),
		pa(2, 9, "Double"),
	}

	got := ExtractHeadToHead(1, 9, events)
	assert.Equal(t, "1-2", got.String())
	assert.Equal(t, 1, got.Games)
	assert.False(t, got.Approximate)
}

func TestExtractHeadToHeadNoHistory(t *testing.T) {
	got := ExtractHeadToHead(1, 9, []models.PlateAppearanceEvent{pa(2, 9, "Single")})
	assert.Equal(t, "0-0", got.String())
	assert.Equal(t, 0, got.Games)
	assert.Equal(t, "0-0", H2HLine{}.String())
}

func TestExtractHeadToHeadNonAtBats(t *testing.T) {
	events := []models.PlateAppearanceEvent{
		pa(1, 9, "Walk"),
		pa(1, 9, "Hit By Pitch"),
		pa(1, 9, "Catcher Interference"),
		pa(1, 9, "Intent Walk"),
	}
	got := ExtractHeadToHead(1, 9, events)
	assert.Equal(t, "0-0", got.String())
	assert.Equal(t, 1, got.Games, "faced without an at-bat")
}

func TestH2HLineAdd(t *testing.T) {
	total := H2HLine{Hits: 1, AtBats: 2, Games: 1}.Add(H2HLine{Hits: 2, AtBats: 4, Games: 1})
	assert.Equal(t, "3-6", total.String())
	assert.Equal(t, 2, total.Games)
	assert.True(t, H2HLine{}.Add(H2HLine{Approximate: true}).Approximate)
}

func TestH2HLineJSON(t *testing.T) {
	data, err := json.Marshal(H2HLine{Hits: 3, AtBats: 8, Games: 2})
	require.NoError(t, err)
	assert.JSONEq(t, `{"hits":3,"at_bats":8,"games":2,"approximate":false,"line":"3-8"}`, string(data))
}

func TestApproximateFromGameLog(t *testing.T) {
	vsCardinals := func(date string, hits, atBats int) models.GameLogEntry {
		e := game(date, hits, atBats)
		e.Opponent = models.TeamRef{ID: 138, Name: "St. Louis Cardinals"}
		return e
	}
	entries := []models.GameLogEntry{
		vsCardinals("2025-06-06", 2, 4),
		vsCardinals("2025-06-07", 0, 3),
		vsCardinals("2025-06-11", 3, 3),
		game("2025-06-08", 4, 4),
	}

	got := ApproximateFromGameLog(entries, 138, evalDay)
	assert.Equal(t, "2-7", got.String())
	assert.Equal(t, 2, got.Games)
	assert.True(t, got.Approximate)
}

func TestH2HMemoComputesOnce(t *testing.T) {
	memo := NewH2HMemo()
	key := H2HKey{BatterID: 1, PitcherID: 9, Season: 2025}

	var calls atomic.Int32
	compute := func(ctx context.Context) H2HLine {
		calls.Add(1)
		return H2HLine{Hits: 1, AtBats: 2, Games: 1}
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got := memo.Resolve(context.Background(), key, compute)
			assert.Equal(t, "1-2", got.String())
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, memo.Len())
}

func TestH2HMemoDoesNotRecompute(t *testing.T) {
	memo := NewH2HMemo()
	key := H2HKey{BatterID: 1, PitcherID: 9, Season: 2025}

	got := memo.Resolve(context.Background(), key, func(ctx context.Context) H2HLine {
		return H2HLine{Approximate: true}
	})
	assert.Equal(t, "0-0", got.String())

	got = memo.Resolve(context.Background(), key, func(ctx context.Context) H2HLine {
		t.Fatal("memoized key recomputed")
		return H2HLine{}
	})
	assert.True(t, got.Approximate)
}

func TestH2HMemoKeysAreIndependent(t *testing.T) {
	memo := NewH2HMemo()
	ctx := context.Background()

	memo.Resolve(ctx, H2HKey{1, 9, 2025}, func(context.Context) H2HLine {
		return H2HLine{Hits: 1, AtBats: 1}
	})
	memo.Resolve(ctx, H2HKey{1, 9, 2024}, func(context.Context) H2HLine {
		return H2HLine{Hits: 0, AtBats: 3}
	})

	a, _ := memo.Get(H2HKey{1, 9, 2025})
	b, _ := memo.Get(H2HKey{1, 9, 2024})
	assert.Equal(t, "1-1", a.String())
	assert.Equal(t, "0-3", b.String())
}
