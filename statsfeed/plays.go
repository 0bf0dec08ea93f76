package statsfeed

import (
	"context"
	"fmt"

	"github.com/baseball-sim/matchup-engine/models"
)

type liveFeedResponse struct {
	LiveData *struct {
		Plays struct {
			AllPlays []struct {
				Result struct {
					Event string `json:"event"`
				} `json:"result"`
				About struct {
					Inning     int  `json:"inning"`
					IsComplete bool `json:"isComplete"`
				} `json:"about"`
				Matchup *struct {
					Batter struct {
						ID int `json:"id"`
					} `json:"batter"`
					Pitcher struct {
						ID int `json:"id"`
					} `json:"pitcher"`
				} `json:"matchup"`
			} `json:"allPlays"`
		} `json:"plays"`
	} `json:"liveData"`
}

// FetchPlayByPlay returns the completed plate appearances of a game
func (c *Client) FetchPlayByPlay(ctx context.Context, gameID int) ([]models.PlateAppearanceEvent, error) {
	const op = "play_by_play"
	endpoint := fmt.Sprintf("%s/game/%d/feed/live", c.liveBaseURL, gameID)

	var resp liveFeedResponse
	if err := c.getJSON(ctx, op, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	if resp.LiveData == nil {
		return nil, malformed(op, endpoint, "game %d has no liveData", gameID)
	}

	plays := resp.LiveData.Plays.AllPlays
	events := make([]models.PlateAppearanceEvent, 0, len(plays))
	for _, p := range plays {
		// Plays without a matchup or a result event are in progress or non-PA
		if p.Matchup == nil || p.Result.Event == "" {
			continue
		}
		events = append(events, models.PlateAppearanceEvent{
			GameID:    gameID,
			BatterID:  p.Matchup.Batter.ID,
			PitcherID: p.Matchup.Pitcher.ID,
			Inning:    p.About.Inning,
			Event:     p.Result.Event,
			Outcome:   models.OutcomeFromEvent(p.Result.Event),
		})
	}
	return events, nil
}
