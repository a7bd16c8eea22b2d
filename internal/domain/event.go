package domain

import "github.com/victornm/deuce/internal/tennis"

const (
	EventNameGameCreated      = "game.created"
	EventNameRallyScored      = "rally.scored"
	EventNameGameFinished     = "game.finished"
	EventNameStandingsUpdated = "standings.updated"
)

type EventGameCreated struct {
	Game Game
}

func (EventGameCreated) Name() string { return EventNameGameCreated }

// EventRallyScored is published after a rally changed the score of a game.
type EventRallyScored struct {
	Game   Game
	Scorer tennis.Scorer
}

func (EventRallyScored) Name() string { return EventNameRallyScored }

// EventGameFinished is published once, on the rally that decided the game.
type EventGameFinished struct {
	Game Game
}

func (EventGameFinished) Name() string { return EventNameGameFinished }

type EventStandingsUpdated struct {
	Standings Standings
}

func (EventStandingsUpdated) Name() string { return EventNameStandingsUpdated }
