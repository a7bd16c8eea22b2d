package game

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/victornm/deuce/internal/domain"
	"github.com/victornm/deuce/internal/errors"
	"github.com/victornm/deuce/internal/event"
	"github.com/victornm/deuce/internal/telemetry"
	"github.com/victornm/deuce/internal/tennis"
)

const (
	defaultTTL = 24 * time.Hour

	// maxTxRetries bounds optimistic retries when rallies on the same game race.
	maxTxRetries = 10
)

type Config struct {
	EventBus *event.Bus
	Redis    redis.UniversalClient
	Prefix   string
	// TTL of a stored game, refreshed on every rally.
	TTL time.Duration
	// StrictFinished rejects rallies on finished games instead of ignoring them.
	StrictFinished bool
	NowFunc        func() time.Time
}

type Service struct {
	eb     *event.Bus
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
	strict bool
	now    func() time.Time
}

func NewService(c Config) *Service {
	s := &Service{
		eb:     c.EventBus,
		redis:  c.Redis,
		prefix: c.Prefix,
		ttl:    c.TTL,
		strict: c.StrictFinished,
		now:    c.NowFunc,
	}

	if s.ttl <= 0 {
		s.ttl = defaultTTL
	}

	if s.now == nil {
		s.now = time.Now
	}

	return s
}

type CreateGameRequest struct {
	Player1 string
	Player2 string
}

// CreateGame starts a new game at love-all between two players.
func (s *Service) CreateGame(ctx context.Context, req CreateGameRequest) (*domain.Game, error) {
	p1, p2 := strings.TrimSpace(req.Player1), strings.TrimSpace(req.Player2)
	if p1 == "" || p2 == "" {
		return nil, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("both players are required"))
	}

	if p1 == p2 {
		return nil, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("players must be different: player=%s", p1))
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate game ID: %w", err)
	}

	now := s.now()
	g := &domain.Game{
		GameID:     id.String(),
		Player1:    p1,
		Player2:    p2,
		State:      tennis.New(),
		CreateTime: now,
		UpdateTime: now,
	}

	b, err := encodeGame(g)
	if err != nil {
		return nil, err
	}

	ok, err := s.redis.SetNX(ctx, s.getGameKey(g.GameID), b, s.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("save game: %w", err)
	}

	if !ok {
		return nil, errors.New(errors.CodeAlreadyExists, errors.WithMessagef("game already exists: game=%s", g.GameID))
	}

	s.eb.Publish(ctx, domain.EventGameCreated{Game: *g})

	return g, nil
}

type GetGameRequest struct {
	GameID string
}

func (s *Service) GetGame(ctx context.Context, req GetGameRequest) (*domain.Game, error) {
	b, err := s.redis.Get(ctx, s.getGameKey(req.GameID)).Bytes()
	if err != nil {
		return nil, s.getError(req.GameID, err)
	}

	return decodeGame(b)
}

type ScoreRallyRequest struct {
	GameID string
	Scorer tennis.Scorer
}

// ScoreRally applies one rally to a game and returns the updated game.
//
// A rally on a finished game returns the game unchanged and publishes nothing,
// unless the service is configured with StrictFinished.
func (s *Service) ScoreRally(ctx context.Context, req ScoreRallyRequest) (*domain.Game, error) {
	if req.Scorer != tennis.Player1Scored && req.Scorer != tennis.Player2Scored {
		return nil, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("unknown scorer: %s", req.Scorer))
	}

	key := s.getGameKey(req.GameID)

	var (
		g      *domain.Game
		scored bool
	)

	update := func(tx *redis.Tx) error {
		b, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			return s.getError(req.GameID, err)
		}

		g, err = decodeGame(b)
		if err != nil {
			return err
		}

		scored, err = s.score(g, req.Scorer)
		if err != nil || !scored {
			return err
		}

		b, err = encodeGame(g)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, b, s.ttl)
			return nil
		})
		return err
	}

	if err := s.watch(ctx, key, update); err != nil {
		return nil, err
	}

	if scored {
		s.publishRally(ctx, *g, req.Scorer)
	}

	return g, nil
}

func (s *Service) score(g *domain.Game, sc tennis.Scorer) (bool, error) {
	if !s.strict && g.State.Finished() {
		return false, nil
	}

	if err := g.State.ScoreStrict(sc); err != nil {
		return false, errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("game is over: game=%s", g.GameID),
			errors.WithCause(err),
		)
	}

	g.Rallies++
	g.UpdateTime = s.now()
	return true, nil
}

// watch runs fn in a WATCH/MULTI transaction on key, retrying when another
// client modified the key in between.
func (s *Service) watch(ctx context.Context, key string, fn func(tx *redis.Tx) error) error {
	for i := 0; i < maxTxRetries; i++ {
		err := s.redis.Watch(ctx, fn, key)
		if stderrors.Is(err, redis.TxFailedErr) {
			continue
		}

		return err
	}

	return errors.New(errors.CodeAborted, errors.WithMessagef("too many concurrent rallies: key=%s", key))
}

func (s *Service) publishRally(ctx context.Context, g domain.Game, sc tennis.Scorer) {
	telemetry.RallyScored(sc)
	s.eb.Publish(ctx, domain.EventRallyScored{
		Game:   g,
		Scorer: sc,
	})

	if !g.State.Finished() {
		return
	}

	telemetry.GameFinished(g.State.Outcome)
	slog.InfoContext(ctx, "game: game finished",
		"game", g.GameID,
		"winner", g.Winner(),
		"rallies", g.Rallies,
	)

	s.eb.Publish(ctx, domain.EventGameFinished{
		Game: g,
	})
}

func (s *Service) getError(id string, err error) error {
	if stderrors.Is(err, redis.Nil) {
		return errors.New(errors.CodeNotFound, errors.WithMessagef("game not found: game=%s", id))
	}

	return fmt.Errorf("get game: %w", err)
}

func (s *Service) getGameKey(id string) string {
	return fmt.Sprintf("%s:game:%s", s.prefix, id)
}
