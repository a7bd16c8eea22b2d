package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/victornm/deuce/internal/archive"
	"github.com/victornm/deuce/internal/domain"
	"github.com/victornm/deuce/internal/event"
	"github.com/victornm/deuce/internal/game"
	"github.com/victornm/deuce/internal/standings"
)

type Config struct {
	Router       gin.IRouter
	GRPC         *grpc.Server
	EventBus     *event.Bus
	Game         *game.Service
	Standings    *standings.Service
	Archive      Archive
	Redis        Redis
	PubsubPrefix string
}

type Redis interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

// Archive lists finished games. It is implemented by *archive.Service.
type Archive interface {
	ListGames(ctx context.Context, req archive.ListGamesRequest) ([]domain.Game, error)
}

type API struct {
	gs *game.Service
	ss *standings.Service
	as Archive

	health   *health.Server
	upgrader websocket.Upgrader

	redis  Redis
	prefix string
}

func New(c Config) *API {
	a := &API{
		gs:     c.Game,
		ss:     c.Standings,
		as:     c.Archive,
		health: health.NewServer(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		redis:  c.Redis,
		prefix: c.PubsubPrefix,
	}

	// HTTP APIs
	v1 := c.Router.Group("/v1")
	v1.POST("/games", a.CreateGame)
	v1.GET("/games/:id", a.GetGame)
	v1.POST("/games/:id/rallies", a.ScoreRally)
	v1.GET("/games/:id/watch", a.WatchGame)
	v1.GET("/standings", a.GetStandings)
	v1.GET("/players/:name/games", a.ListPlayerGames)

	// gRPC APIs
	if c.GRPC != nil {
		healthpb.RegisterHealthServer(c.GRPC, a.health)
		reflection.Register(c.GRPC)
	}

	// Register event handlers
	c.EventBus.Subscribe(domain.EventNameGameCreated, func(ctx context.Context, e event.Event) error {
		return a.PublishGameCreated(ctx, e.(domain.EventGameCreated))
	})

	c.EventBus.Subscribe(domain.EventNameRallyScored, func(ctx context.Context, e event.Event) error {
		return a.PublishRallyScored(ctx, e.(domain.EventRallyScored))
	})

	c.EventBus.Subscribe(domain.EventNameStandingsUpdated, func(ctx context.Context, e event.Event) error {
		return a.PublishStandingsUpdated(ctx, e.(domain.EventStandingsUpdated))
	})

	return a
}

// Shutdown reports NOT_SERVING to health checks so load balancers stop routing here.
func (a *API) Shutdown() {
	a.health.Shutdown()
}
