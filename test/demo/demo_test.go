//go:build integration_test

package demo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/victornm/deuce/internal/api"
	"github.com/victornm/deuce/internal/domain"
	"github.com/victornm/deuce/internal/tennis"
)

const (
	httpAddr  = "http://localhost:8080"
	grpcAddr  = "localhost:8081"
	redisAddr = "localhost:6379"
)

func TestScoreboard(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	checkHealth(ctx, t)

	wg := new(sync.WaitGroup)
	subscribeAsPlayer(t, makeRedis(t), wg, "alice")

	// alice plays three games at the same time and loses the odd ones.
	var eg errgroup.Group
	for i := range 3 {
		eg.Go(func() error {
			g, err := createGame(ctx, "alice", fmt.Sprintf("opponent-%d", i))
			if err != nil {
				return err
			}

			scorer := "player1"
			if i%2 == 1 {
				scorer = "player2"
			}

			for g.Outcome == tennis.InProgress {
				if g, err = scoreRally(ctx, g.GameID, scorer); err != nil {
					return err
				}
			}

			t.Logf("game %s: %s after %d rallies", g.GameID, g.Call, g.Rallies)
			return nil
		})
	}
	require.NoError(t, eg.Wait())

	wg.Wait()
}

func checkHealth(ctx context.Context, t *testing.T) {
	conn, err := grpc.NewClient(grpcAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}

func createGame(ctx context.Context, p1, p2 string) (api.Game, error) {
	return post(ctx, "/v1/games", api.CreateGameRequest{Player1: p1, Player2: p2})
}

func scoreRally(ctx context.Context, id, scorer string) (api.Game, error) {
	return post(ctx, "/v1/games/"+id+"/rallies", map[string]string{"scorer": scorer})
}

func post(ctx context.Context, path string, body any) (api.Game, error) {
	var g api.Game

	b, err := json.Marshal(body)
	if err != nil {
		return g, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, httpAddr+path, bytes.NewReader(b))
	if err != nil {
		return g, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return g, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return g, fmt.Errorf("POST %s: status %d", path, resp.StatusCode)
	}

	return g, json.NewDecoder(resp.Body).Decode(&g)
}

func subscribeAsPlayer(t *testing.T, rc redis.UniversalClient, wg *sync.WaitGroup, player string) {
	wg.Add(1)
	sub := subscribeRedis(t, rc, fmt.Sprintf("local:pubsub:player:%s", player))
	go func() {
		defer wg.Done()

		for msg := range sub {
			var n struct {
				Event string          `json:"event"`
				Data  json.RawMessage `json:"data"`
			}
			if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
				t.Logf("unmarshal notification: %v", err)
				continue
			}

			switch n.Event {
			case domain.EventNameRallyScored:
				var g api.Game
				if err := json.Unmarshal(n.Data, &g); err != nil {
					t.Logf("unmarshal game: %v", err)
					continue
				}
				t.Logf("%s: %s vs %s: %s", player, g.Player1, g.Player2, g.Call)

			case domain.EventNameStandingsUpdated:
				var st api.Standings
				if err := json.Unmarshal(n.Data, &st); err != nil {
					t.Logf("unmarshal standings: %v", err)
					continue
				}
				for i, e := range st.Entries {
					t.Logf("%s: standings #%d %s won %d of %d (%s)", player, i+1, e.Player, e.Won, e.Played, e.WinRate)
				}
			}
		}
	}()
}

func subscribeRedis(t *testing.T, rc redis.UniversalClient, channel string) <-chan *redis.Message {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)

	sub := rc.Subscribe(ctx, channel)
	t.Cleanup(func() { sub.Close() })

	c := make(chan *redis.Message)
	go func() {
		defer cancel()
		defer close(c)

		for {
			msg, err := sub.ReceiveMessage(ctx)
			if err != nil {
				t.Log(err)
				return
			}

			c <- msg
		}
	}()

	return c
}

func makeRedis(t *testing.T) redis.UniversalClient {
	rc := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{redisAddr},
	})
	t.Cleanup(func() { rc.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rc.Ping(ctx).Err(); err != nil {
		t.Fatal(err)
	}

	return rc
}
