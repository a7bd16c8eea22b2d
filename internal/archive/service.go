package archive

import (
	"context"
	_ "embed"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/victornm/deuce/internal/domain"
	"github.com/victornm/deuce/internal/errors"
	"github.com/victornm/deuce/internal/event"
	"github.com/victornm/deuce/internal/tennis"
)

//go:embed schema.sql
var schema string

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// DB is the subset of *pgxpool.Pool used by the archive.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type Config struct {
	EventBus *event.Bus
	DB       DB
}

// Service keeps the history of finished games in Postgres.
type Service struct {
	db DB
}

func NewService(c Config) *Service {
	s := &Service{
		db: c.DB,
	}

	c.EventBus.Subscribe(domain.EventNameGameFinished, func(ctx context.Context, e event.Event) error {
		err := s.ArchiveGame(ctx, e.(domain.EventGameFinished))
		if errors.Is(err, errors.CodeAlreadyExists) {
			slog.InfoContext(ctx, "archive: game already archived", "error", err)
			return nil
		}
		return err
	})

	return s
}

// Migrate creates the archive tables if they do not exist.
func (s *Service) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("archive: migrate: %w", err)
	}

	return nil
}

// ArchiveGame stores a finished game. Archiving the same game twice returns AlreadyExists.
func (s *Service) ArchiveGame(ctx context.Context, e domain.EventGameFinished) error {
	g := e.Game
	if !g.State.Finished() {
		return errors.New(errors.CodeFailedPrecondition, errors.WithMessagef("game is not finished: game=%s", g.GameID))
	}

	const stmt = `
INSERT INTO games (game_id, player1, player2, winner, player1_points, player2_points, outcome, rallies, create_time, finish_time)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);`

	_, err := s.db.Exec(ctx, stmt,
		g.GameID, g.Player1, g.Player2, g.Winner(),
		g.State.Player1.String(), g.State.Player2.String(), g.State.Outcome.String(),
		g.Rallies, g.CreateTime, g.UpdateTime,
	)

	var pgErr *pgconn.PgError
	const codeUniqueViolation = "23505"
	if stderrors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation {
		return errors.New(errors.CodeAlreadyExists,
			errors.WithMessagef("game already archived: game=%s", g.GameID),
			errors.WithCause(err))
	}

	if err != nil {
		return fmt.Errorf("archive game %s: %w", g.GameID, err)
	}

	return nil
}

type ListGamesRequest struct {
	Player string
	Limit  int
}

// ListGames returns the finished games of a player, most recent first.
func (s *Service) ListGames(ctx context.Context, req ListGamesRequest) ([]domain.Game, error) {
	if req.Player == "" {
		return nil, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("player is required"))
	}

	limit := req.Limit
	switch {
	case limit <= 0:
		limit = defaultListLimit
	case limit > maxListLimit:
		limit = maxListLimit
	}

	const stmt = `
SELECT game_id, player1, player2, player1_points, player2_points, outcome, rallies, create_time, finish_time
FROM games
WHERE player1 = $1 OR player2 = $1
ORDER BY finish_time DESC
LIMIT $2;`

	rows, err := s.db.Query(ctx, stmt, req.Player, limit)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}

	games, err := pgx.CollectRows(rows, scanGame)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}

	return games, nil
}

func scanGame(r pgx.CollectableRow) (domain.Game, error) {
	var (
		g          domain.Game
		p1, p2, o  string
		createTime time.Time
		finishTime time.Time
	)

	if err := r.Scan(&g.GameID, &g.Player1, &g.Player2, &p1, &p2, &o, &g.Rallies, &createTime, &finishTime); err != nil {
		return domain.Game{}, err
	}

	var err error
	if g.State.Player1, err = tennis.ParsePoint(p1); err != nil {
		return domain.Game{}, err
	}
	if g.State.Player2, err = tennis.ParsePoint(p2); err != nil {
		return domain.Game{}, err
	}
	if g.State.Outcome, err = tennis.ParseOutcome(o); err != nil {
		return domain.Game{}, err
	}

	g.CreateTime, g.UpdateTime = createTime, finishTime
	return g, nil
}
