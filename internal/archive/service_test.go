package archive_test

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/deuce/internal/archive"
	"github.com/victornm/deuce/internal/domain"
	"github.com/victornm/deuce/internal/errors"
	"github.com/victornm/deuce/internal/event"
	"github.com/victornm/deuce/internal/tennis"
)

var t0 = time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)

func TestService_ArchiveGame(t *testing.T) {
	db := newFakeDB()
	s := archive.NewService(archive.Config{EventBus: event.NewBus(), DB: db})

	e := finished("g1", "alice", "bob", tennis.Player2Wins, t0)
	require.NoError(t, s.ArchiveGame(context.Background(), e))

	err := s.ArchiveGame(context.Background(), e)
	require.True(t, errors.Is(err, errors.CodeAlreadyExists), "got %v", err)

	require.Len(t, db.rows, 1)
	assert.Equal(t, []any{
		"g1", "alice", "bob", "bob", "love", "game", "player2_wins", 5, t0, t0.Add(time.Minute),
	}, db.rows[0])
}

func TestService_ArchiveGame_InProgress(t *testing.T) {
	s := archive.NewService(archive.Config{EventBus: event.NewBus(), DB: newFakeDB()})

	err := s.ArchiveGame(context.Background(), domain.EventGameFinished{
		Game: domain.Game{GameID: "g1", State: tennis.Game{Player1: tennis.Forty}},
	})
	require.True(t, errors.Is(err, errors.CodeFailedPrecondition), "got %v", err)
}

func TestService_ListGames(t *testing.T) {
	db := newFakeDB()
	eb := event.NewBus()
	s := archive.NewService(archive.Config{EventBus: eb, DB: db})

	// Archived through the event bus, including a duplicate delivery.
	for _, e := range []domain.EventGameFinished{
		finished("g1", "alice", "bob", tennis.Player1Wins, t0),
		finished("g2", "carol", "alice", tennis.Player1Wins, t0.Add(time.Hour)),
		finished("g3", "bob", "carol", tennis.Player2Wins, t0.Add(2*time.Hour)),
		finished("g1", "alice", "bob", tennis.Player1Wins, t0),
	} {
		eb.Publish(context.Background(), e)
	}
	eb.Stop()

	tests := map[string]struct {
		req  archive.ListGamesRequest
		want []string
	}{
		"most recent first": {
			req:  archive.ListGamesRequest{Player: "alice"},
			want: []string{"g2", "g1"},
		},
		"limit": {
			req:  archive.ListGamesRequest{Player: "carol", Limit: 1},
			want: []string{"g3"},
		},
		"unknown player": {
			req:  archive.ListGamesRequest{Player: "dave"},
			want: []string{},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			games, err := s.ListGames(context.Background(), tt.req)
			require.NoError(t, err)

			ids := make([]string, 0, len(games))
			for _, g := range games {
				ids = append(ids, g.GameID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}

	games, err := s.ListGames(context.Background(), archive.ListGamesRequest{Player: "bob", Limit: 1})
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, tennis.Game{Player1: tennis.Love, Player2: tennis.GameWon, Outcome: tennis.Player2Wins}, games[0].State)
	assert.Equal(t, "carol", games[0].Winner())
}

func TestService_ListGames_InvalidRequest(t *testing.T) {
	s := archive.NewService(archive.Config{EventBus: event.NewBus(), DB: newFakeDB()})

	_, err := s.ListGames(context.Background(), archive.ListGamesRequest{})
	require.True(t, errors.Is(err, errors.CodeInvalidArgument), "got %v", err)
}

func finished(id, p1, p2 string, o tennis.Outcome, created time.Time) domain.EventGameFinished {
	st := tennis.Game{Player1: tennis.GameWon, Player2: tennis.Love, Outcome: o}
	if o == tennis.Player2Wins {
		st.Player1, st.Player2 = tennis.Love, tennis.GameWon
	}

	return domain.EventGameFinished{
		Game: domain.Game{
			GameID:     id,
			Player1:    p1,
			Player2:    p2,
			State:      st,
			Rallies:    5,
			CreateTime: created,
			UpdateTime: created.Add(time.Minute),
		},
	}
}

// fakeDB understands just the statements issued by the archive.
type fakeDB struct {
	mu   sync.Mutex
	rows [][]any
}

func newFakeDB() *fakeDB {
	return &fakeDB{}
}

func (db *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if !strings.Contains(sql, "INSERT INTO games") {
		return pgconn.NewCommandTag("CREATE TABLE"), nil
	}

	for _, r := range db.rows {
		if r[0] == args[0] {
			return pgconn.CommandTag{}, &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
		}
	}

	db.rows = append(db.rows, args)
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (db *fakeDB) Query(_ context.Context, _ string, args ...any) (pgx.Rows, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	player, limit := args[0].(string), args[1].(int)

	var out [][]any
	for _, r := range db.rows {
		if r[1] == player || r[2] == player {
			// game_id, player1, player2, player1_points, player2_points, outcome, rallies, create_time, finish_time
			out = append(out, []any{r[0], r[1], r[2], r[4], r[5], r[6], r[7], r[8], r[9]})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i][8].(time.Time).After(out[j][8].(time.Time))
	})

	if len(out) > limit {
		out = out[:limit]
	}

	return &fakeRows{rows: out, i: -1}, nil
}

type fakeRows struct {
	pgx.Rows

	rows [][]any
	i    int
}

func (r *fakeRows) Close()     {}
func (r *fakeRows) Err() error { return nil }

func (r *fakeRows) CommandTag() pgconn.CommandTag {
	return pgconn.NewCommandTag(fmt.Sprintf("SELECT %d", len(r.rows)))
}

func (r *fakeRows) Next() bool {
	r.i++
	return r.i < len(r.rows)
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.rows[r.i]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: want %d destinations, got %d", len(row), len(dest))
	}

	for i, d := range dest {
		switch d := d.(type) {
		case *string:
			*d = row[i].(string)
		case *int:
			*d = row[i].(int)
		case *time.Time:
			*d = row[i].(time.Time)
		default:
			return fmt.Errorf("scan: unsupported destination %T", d)
		}
	}

	return nil
}
