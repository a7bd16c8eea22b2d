package tennis

import "fmt"

var (
	pointNames   = [...]string{Love: "love", Fifteen: "15", Thirty: "30", Forty: "40", Advantage: "advantage", GameWon: "game"}
	outcomeNames = [...]string{InProgress: "in_progress", Player1Wins: "player1_wins", Player2Wins: "player2_wins"}
	scorerNames  = [...]string{Player1Scored: "player1", Player2Scored: "player2"}
)

func (p Point) String() string {
	if int(p) < len(pointNames) {
		return pointNames[p]
	}
	return fmt.Sprintf("Point(%d)", p)
}

func (o Outcome) String() string {
	if int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return fmt.Sprintf("Outcome(%d)", o)
}

func (s Scorer) String() string {
	if int(s) < len(scorerNames) {
		return scorerNames[s]
	}
	return fmt.Sprintf("Scorer(%d)", s)
}

// ParsePoint is the inverse of Point.String.
func ParsePoint(s string) (Point, error) {
	for i, n := range pointNames {
		if n == s {
			return Point(i), nil
		}
	}
	return 0, fmt.Errorf("tennis: unknown point %q", s)
}

// ParseOutcome is the inverse of Outcome.String.
func ParseOutcome(s string) (Outcome, error) {
	for i, n := range outcomeNames {
		if n == s {
			return Outcome(i), nil
		}
	}
	return 0, fmt.Errorf("tennis: unknown outcome %q", s)
}

// ParseScorer is the inverse of Scorer.String.
func ParseScorer(s string) (Scorer, error) {
	for i, n := range scorerNames {
		if n == s {
			return Scorer(i), nil
		}
	}
	return 0, fmt.Errorf("tennis: unknown scorer %q", s)
}

func (p Point) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Point) UnmarshalText(b []byte) (err error) {
	*p, err = ParsePoint(string(b))
	return err
}

func (o Outcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

func (o *Outcome) UnmarshalText(b []byte) (err error) {
	*o, err = ParseOutcome(string(b))
	return err
}

func (s Scorer) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Scorer) UnmarshalText(b []byte) (err error) {
	*s, err = ParseScorer(string(b))
	return err
}
