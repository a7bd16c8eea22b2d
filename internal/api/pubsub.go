package api

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/victornm/deuce/internal/domain"
	"github.com/victornm/deuce/internal/telemetry"
)

const maxConcurrent = 100

// Notification is the message published on Redis channels.
type Notification struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// PublishGameCreated tells both players a game between them has started.
func (a *API) PublishGameCreated(ctx context.Context, e domain.EventGameCreated) error {
	data := newGame(e.Game)

	var eg errgroup.Group
	for _, p := range []string{e.Game.Player1, e.Game.Player2} {
		eg.Go(func() error {
			return a.publishNotification(ctx, a.getPlayerChannel(p), e.Name(), data)
		})
	}

	return eg.Wait()
}

// PublishRallyScored notifies watchers of the game and both of its players.
func (a *API) PublishRallyScored(ctx context.Context, e domain.EventRallyScored) error {
	data := newGame(e.Game)

	var eg errgroup.Group
	for _, ch := range []string{
		a.getGameChannel(e.Game.GameID),
		a.getPlayerChannel(e.Game.Player1),
		a.getPlayerChannel(e.Game.Player2),
	} {
		eg.Go(func() error {
			return a.publishNotification(ctx, ch, e.Name(), data)
		})
	}

	return eg.Wait()
}

// PublishStandingsUpdated notifies the standings channel and every ranked player.
func (a *API) PublishStandingsUpdated(ctx context.Context, e domain.EventStandingsUpdated) error {
	data := newStandings(e.Standings)

	var eg errgroup.Group
	eg.SetLimit(maxConcurrent)

	eg.Go(func() error {
		return a.publishNotification(ctx, a.getStandingsChannel(), e.Name(), data)
	})

	for _, entry := range data.Entries {
		eg.Go(func() error {
			return a.publishNotification(ctx, a.getPlayerChannel(entry.Player), e.Name(), data)
		})
	}

	return eg.Wait()
}

func (a *API) publishNotification(ctx context.Context, channel, event string, data any) error {
	n := Notification{
		Event: event,
		Data:  data,
	}

	b, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("pubsub: marshal %s: %v", event, err)
	}

	err = a.redis.Publish(ctx, channel, b).Err()
	telemetry.NotificationPublished(event, err)
	return err
}

func (a *API) getGameChannel(id string) string {
	return fmt.Sprintf("%s:game:%s", a.prefix, id)
}

func (a *API) getPlayerChannel(player string) string {
	return fmt.Sprintf("%s:player:%s", a.prefix, player)
}

func (a *API) getStandingsChannel() string {
	return fmt.Sprintf("%s:standings", a.prefix)
}
