package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/victornm/deuce/internal/tennis"
)

// Game is a tennis game tracked by the scoreboard.
type Game struct {
	GameID     string
	Player1    string
	Player2    string
	State      tennis.Game
	Rallies    int
	CreateTime time.Time
	UpdateTime time.Time
}

// Winner returns the name of the player who won the game, or "" while it is in progress.
func (g Game) Winner() string {
	s, ok := g.State.Winner()
	if !ok {
		return ""
	}
	return g.PlayerName(s)
}

// Loser returns the name of the player who lost the game, or "" while it is in progress.
func (g Game) Loser() string {
	s, ok := g.State.Winner()
	if !ok {
		return ""
	}
	if s == tennis.Player1Scored {
		return g.Player2
	}
	return g.Player1
}

func (g Game) PlayerName(s tennis.Scorer) string {
	if s == tennis.Player2Scored {
		return g.Player2
	}
	return g.Player1
}

// Standings ranks players by games won, in descending order.
type Standings struct {
	Entries []StandingsEntry
}

type StandingsEntry struct {
	Player  string
	Won     int64
	Played  int64
	WinRate decimal.Decimal
}
