package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/victornm/deuce/internal/domain"
	"github.com/victornm/deuce/internal/game"
	"github.com/victornm/deuce/internal/tennis"
)

// EventNameGameSnapshot is the first message sent to a watcher: the game as it
// was when the watch started.
const EventNameGameSnapshot = "game.snapshot"

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// WatchGame streams the notifications of a game over a websocket until the
// game is finished or the client goes away.
func (a *API) WatchGame(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	// Subscribe before reading the snapshot so no rally falls in between.
	sub := a.redis.Subscribe(ctx, a.getGameChannel(id))
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		a.abort(c, fmt.Errorf("subscribe: %w", err))
		return
	}

	g, err := a.gs.GetGame(ctx, game.GetGameRequest{GameID: id})
	if err != nil {
		a.abort(c, err)
		return
	}

	conn, err := a.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// The upgrader has already replied to the client.
		slog.InfoContext(ctx, "api: websocket upgrade failed", "game", id, "error", err)
		return
	}
	defer conn.Close()

	if err := a.watch(ctx, conn, sub, *g); err != nil {
		slog.InfoContext(ctx, "api: watch ended", "game", id, "error", err)
	}
}

func (a *API) watch(ctx context.Context, conn *websocket.Conn, sub *redis.PubSub, g domain.Game) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Watchers never send data; reading only serves pongs and close frames.
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	snapshot, err := json.Marshal(Notification{Event: EventNameGameSnapshot, Data: newGame(g)})
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := write(conn, websocket.TextMessage, snapshot); err != nil {
		return err
	}

	if g.State.Finished() {
		return closeNormal(conn)
	}

	msgs := sub.Channel()
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-ticker.C:
			if err := write(conn, websocket.PingMessage, nil); err != nil {
				return err
			}

		case m, ok := <-msgs:
			if !ok {
				return nil
			}

			if err := write(conn, websocket.TextMessage, []byte(m.Payload)); err != nil {
				return err
			}

			if isFinished(m.Payload) {
				return closeNormal(conn)
			}
		}
	}
}

func write(conn *websocket.Conn, typ int, b []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(typ, b)
}

func closeNormal(conn *websocket.Conn) error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "game over")
	return conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}

func isFinished(payload string) bool {
	var n struct {
		Data struct {
			Outcome tennis.Outcome `json:"outcome"`
		} `json:"data"`
	}

	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		return false
	}

	return n.Data.Outcome != tennis.InProgress
}
