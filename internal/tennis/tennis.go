// Package tennis implements the point-scoring rules of a single tennis game.
//
// The package is a pure value type with one transition function. It does no I/O
// and holds no package-level state; callers that share a Game across goroutines
// must serialize calls to Score themselves.
package tennis

import (
	"errors"
	"fmt"
)

// ErrGameOver is returned by ScoreStrict when the game already has a winner.
var ErrGameOver = errors.New("tennis: game is over")

// Point is a player's standing within the current game.
type Point uint8

const (
	Love Point = iota
	Fifteen
	Thirty
	Forty
	Advantage
	GameWon
)

// Outcome of a game. The zero value is InProgress.
type Outcome uint8

const (
	InProgress Outcome = iota
	Player1Wins
	Player2Wins
)

// Scorer identifies which player won the most recent rally.
type Scorer uint8

const (
	Player1Scored Scorer = iota
	Player2Scored
)

// Game is the score of one game between two players.
type Game struct {
	Player1 Point
	Player2 Point
	Outcome Outcome
}

// New returns a game with both players at love.
func New() Game {
	return Game{Player1: Love, Player2: Love, Outcome: InProgress}
}

// Score applies one rally to the game. Once the game has an outcome it
// ignores further rallies.
func (g *Game) Score(s Scorer) {
	if g.Finished() {
		return
	}

	switch s {
	case Player1Scored:
		g.Player1, g.Player2 = Advance(g.Player1, g.Player2)
	case Player2Scored:
		g.Player2, g.Player1 = Advance(g.Player2, g.Player1)
	}

	g.Outcome = outcomeOf(g.Player1, g.Player2)
}

// ScoreStrict is Score for callers that treat a rally on a finished game as a
// fault. It returns ErrGameOver and leaves g untouched in that case.
func (g *Game) ScoreStrict(s Scorer) error {
	if g.Finished() {
		return ErrGameOver
	}

	g.Score(s)
	return nil
}

// Finished reports whether the game has an outcome.
func (g Game) Finished() bool {
	return g.Outcome != InProgress
}

// Winner returns the scorer who won the game, or false while it is in progress.
func (g Game) Winner() (Scorer, bool) {
	switch g.Outcome {
	case Player1Wins:
		return Player1Scored, true
	case Player2Wins:
		return Player2Scored, true
	default:
		return 0, false
	}
}

// Advance computes the new points of the player who won the rally (self) and
// of their opponent. Cases are matched in order; the first one wins.
func Advance(self, opponent Point) (Point, Point) {
	switch {
	case self == GameWon:
		return GameWon, Love
	case self == Advantage:
		return GameWon, Love
	case self == Forty && opponent == Advantage:
		return Forty, Forty
	case self == Forty && opponent == Forty:
		return Advantage, opponent
	case self == Forty:
		return GameWon, Love
	case self == Thirty:
		return Forty, opponent
	case self == Fifteen:
		return Thirty, opponent
	default:
		// Love, and anything outside the enum.
		return Fifteen, opponent
	}
}

func outcomeOf(p1, p2 Point) Outcome {
	switch {
	case p1 == GameWon:
		return Player1Wins
	case p2 == GameWon:
		return Player2Wins
	default:
		return InProgress
	}
}

// Call is what the umpire announces for the current score, player 1 first.
func (g Game) Call() string {
	switch {
	case g.Outcome == Player1Wins:
		return "game player1"
	case g.Outcome == Player2Wins:
		return "game player2"
	case g.Player1 == Advantage:
		return "advantage player1"
	case g.Player2 == Advantage:
		return "advantage player2"
	case g.Player1 == Forty && g.Player2 == Forty:
		return "deuce"
	case g.Player1 == g.Player2:
		return fmt.Sprintf("%s-all", g.Player1)
	default:
		return fmt.Sprintf("%s-%s", g.Player1, g.Player2)
	}
}
