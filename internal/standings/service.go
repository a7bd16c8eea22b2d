package standings

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/victornm/deuce/internal/domain"
	"github.com/victornm/deuce/internal/errors"
	"github.com/victornm/deuce/internal/event"
)

const (
	publishInterval = 200 * time.Millisecond

	// countedTTL is how long a finished game is remembered to avoid counting it twice.
	countedTTL = 7 * 24 * time.Hour

	winRatePlaces = 3
)

// countGame marks a game as counted and bumps both players' counters in one
// step, so a failed attempt leaves nothing behind and can be retried.
//
// KEYS: counted, won, played. ARGV: counted value, counted TTL in ms, winner, loser.
var countGame = redis.NewScript(`
if not redis.call('SET', KEYS[1], ARGV[1], 'NX', 'PX', ARGV[2]) then
	return 0
end
redis.call('ZINCRBY', KEYS[2], 1, ARGV[3])
redis.call('ZINCRBY', KEYS[2], 0, ARGV[4])
redis.call('ZINCRBY', KEYS[3], 1, ARGV[3])
redis.call('ZINCRBY', KEYS[3], 1, ARGV[4])
return 1
`)

type Config struct {
	EventBus *event.Bus
	Redis    redis.UniversalClient
	Prefix   string
}

type Service struct {
	eb     *event.Bus
	redis  redis.UniversalClient
	prefix string
}

func NewService(c Config) *Service {
	s := &Service{
		eb:     c.EventBus,
		redis:  c.Redis,
		prefix: c.Prefix,
	}

	s.eb.Subscribe(domain.EventNameGameFinished, func(ctx context.Context, e event.Event) error {
		return s.UpdateStandings(ctx, e.(domain.EventGameFinished))
	})

	return s
}

// GetStandings returns every player who finished a game, ordered by games won.
func (s *Service) GetStandings(ctx context.Context) (*domain.Standings, error) {
	won, err := s.redis.ZRevRangeWithScores(ctx, s.getWonKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("get standings: %w", err)
	}

	if len(won) == 0 {
		return nil, errors.New(errors.CodeNotFound, errors.WithMessagef("no finished games yet"))
	}

	played := make([]*redis.FloatCmd, len(won))
	_, err = s.redis.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, z := range won {
			played[i] = p.ZScore(ctx, s.getPlayedKey(), z.Member.(string))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get games played: %w", err)
	}

	entries := make([]domain.StandingsEntry, 0, len(won))
	for i, z := range won {
		e := domain.StandingsEntry{
			Player: z.Member.(string),
			Won:    int64(z.Score),
			Played: int64(played[i].Val()),
		}

		if e.Played > 0 {
			e.WinRate = decimal.NewFromInt(e.Won).Div(decimal.NewFromInt(e.Played)).Round(winRatePlaces)
		}

		entries = append(entries, e)
	}

	return &domain.Standings{Entries: entries}, nil
}

// UpdateStandings counts a finished game for both of its players. A game is
// only counted once even if the event is delivered again.
func (s *Service) UpdateStandings(ctx context.Context, e domain.EventGameFinished) error {
	g := e.Game
	winner, loser := g.Winner(), g.Loser()
	if winner == "" {
		return fmt.Errorf("update standings: game %s is not finished", g.GameID)
	}

	keys := []string{s.getCountedKey(g.GameID), s.getWonKey(), s.getPlayedKey()}
	counted, err := countGame.Run(ctx, s.redis, keys, g.UpdateTime.UnixMilli(), countedTTL.Milliseconds(), winner, loser).Int()
	if err != nil {
		return fmt.Errorf("update standings: %w", err)
	}

	if counted == 0 {
		return nil
	}

	return s.schedulePublishStandings(ctx, g.UpdateTime)
}

// schedulePublishStandings publishes at most one standings.updated per interval,
// shared by every instance of the service.
func (s *Service) schedulePublishStandings(ctx context.Context, t time.Time) error {
	ok, err := s.redis.SetNX(ctx, s.getPublishTimeKey(), t.UnixMilli(), publishInterval).Result()
	if err != nil {
		return fmt.Errorf("setnx: %w", err)
	}

	if !ok {
		return nil
	}

	st, err := s.GetStandings(ctx)
	if err != nil {
		return fmt.Errorf("get standings failed: %w", err)
	}

	s.eb.Publish(ctx, domain.EventStandingsUpdated{
		Standings: *st,
	})

	return nil
}

func (s *Service) getWonKey() string {
	return fmt.Sprintf("%s:standings:won", s.prefix)
}

func (s *Service) getPlayedKey() string {
	return fmt.Sprintf("%s:standings:played", s.prefix)
}

func (s *Service) getCountedKey(game string) string {
	return fmt.Sprintf("%s:standings:counted:%s", s.prefix, game)
}

func (s *Service) getPublishTimeKey() string {
	return fmt.Sprintf("%s:standings:time", s.prefix)
}
