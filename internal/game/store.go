package game

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/victornm/deuce/internal/domain"
	"github.com/victornm/deuce/internal/tennis"
)

// record is the JSON stored in Redis for a game.
type record struct {
	GameID        string         `json:"game_id"`
	Player1       string         `json:"player1"`
	Player2       string         `json:"player2"`
	Player1Points tennis.Point   `json:"player1_points"`
	Player2Points tennis.Point   `json:"player2_points"`
	Outcome       tennis.Outcome `json:"outcome"`
	Rallies       int            `json:"rallies"`
	CreateTime    time.Time      `json:"create_time"`
	UpdateTime    time.Time      `json:"update_time"`
}

func encodeGame(g *domain.Game) ([]byte, error) {
	b, err := json.Marshal(record{
		GameID:        g.GameID,
		Player1:       g.Player1,
		Player2:       g.Player2,
		Player1Points: g.State.Player1,
		Player2Points: g.State.Player2,
		Outcome:       g.State.Outcome,
		Rallies:       g.Rallies,
		CreateTime:    g.CreateTime,
		UpdateTime:    g.UpdateTime,
	})
	if err != nil {
		return nil, fmt.Errorf("encode game %s: %w", g.GameID, err)
	}

	return b, nil
}

func decodeGame(b []byte) (*domain.Game, error) {
	var r record
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("decode game: %w", err)
	}

	return &domain.Game{
		GameID:  r.GameID,
		Player1: r.Player1,
		Player2: r.Player2,
		State: tennis.Game{
			Player1: r.Player1Points,
			Player2: r.Player2Points,
			Outcome: r.Outcome,
		},
		Rallies:    r.Rallies,
		CreateTime: r.CreateTime,
		UpdateTime: r.UpdateTime,
	}, nil
}
