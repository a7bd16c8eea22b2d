package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/victornm/deuce/internal/archive"
	"github.com/victornm/deuce/internal/domain"
	"github.com/victornm/deuce/internal/errors"
	"github.com/victornm/deuce/internal/game"
	"github.com/victornm/deuce/internal/tennis"
)

type (
	CreateGameRequest struct {
		Player1 string `json:"player1" binding:"required"`
		Player2 string `json:"player2" binding:"required"`
	}

	ScoreRallyRequest struct {
		Scorer *tennis.Scorer `json:"scorer" binding:"required"`
	}

	Game struct {
		GameID        string         `json:"game_id"`
		Player1       string         `json:"player1"`
		Player2       string         `json:"player2"`
		Player1Points tennis.Point   `json:"player1_points"`
		Player2Points tennis.Point   `json:"player2_points"`
		Outcome       tennis.Outcome `json:"outcome"`
		Winner        string         `json:"winner,omitempty"`
		Call          string         `json:"call"`
		Rallies       int            `json:"rallies"`
		CreateTime    time.Time      `json:"create_time"`
		UpdateTime    time.Time      `json:"update_time"`
	}

	Standings struct {
		Entries []StandingsEntry `json:"entries"`
	}

	StandingsEntry struct {
		Player  string `json:"player"`
		Won     int64  `json:"won"`
		Played  int64  `json:"played"`
		WinRate string `json:"win_rate"`
	}

	ListGamesResponse struct {
		Games []Game `json:"games"`
	}
)

func (a *API) CreateGame(c *gin.Context) {
	var req CreateGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.abort(c, invalidBody(err))
		return
	}

	g, err := a.gs.CreateGame(c.Request.Context(), game.CreateGameRequest{
		Player1: req.Player1,
		Player2: req.Player2,
	})
	if err != nil {
		a.abort(c, err)
		return
	}

	c.JSON(http.StatusCreated, newGame(*g))
}

func (a *API) GetGame(c *gin.Context) {
	g, err := a.gs.GetGame(c.Request.Context(), game.GetGameRequest{
		GameID: c.Param("id"),
	})
	if err != nil {
		a.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, newGame(*g))
}

func (a *API) ScoreRally(c *gin.Context) {
	var req ScoreRallyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.abort(c, invalidBody(err))
		return
	}

	g, err := a.gs.ScoreRally(c.Request.Context(), game.ScoreRallyRequest{
		GameID: c.Param("id"),
		Scorer: *req.Scorer,
	})
	if err != nil {
		a.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, newGame(*g))
}

func (a *API) GetStandings(c *gin.Context) {
	st, err := a.ss.GetStandings(c.Request.Context())
	if err != nil {
		a.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, newStandings(*st))
}

func (a *API) ListPlayerGames(c *gin.Context) {
	var limit int
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			a.abort(c, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("invalid limit: %q", s)))
			return
		}
		limit = n
	}

	games, err := a.as.ListGames(c.Request.Context(), archive.ListGamesRequest{
		Player: c.Param("name"),
		Limit:  limit,
	})
	if err != nil {
		a.abort(c, err)
		return
	}

	resp := ListGamesResponse{Games: make([]Game, 0, len(games))}
	for _, g := range games {
		resp.Games = append(resp.Games, newGame(g))
	}

	c.JSON(http.StatusOK, resp)
}

func (a *API) abort(c *gin.Context, err error) {
	e := errors.Convert(err)
	if e.Code == errors.CodeInternal {
		slog.ErrorContext(c.Request.Context(), "api: request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err,
		)
	}

	c.AbortWithStatusJSON(e.HTTPStatusCode(), e)
}

func invalidBody(err error) error {
	return errors.New(errors.CodeInvalidArgument,
		errors.WithMessagef("invalid request body: %v", err),
		errors.WithCause(err),
	)
}

func newGame(g domain.Game) Game {
	return Game{
		GameID:        g.GameID,
		Player1:       g.Player1,
		Player2:       g.Player2,
		Player1Points: g.State.Player1,
		Player2Points: g.State.Player2,
		Outcome:       g.State.Outcome,
		Winner:        g.Winner(),
		Call:          g.State.Call(),
		Rallies:       g.Rallies,
		CreateTime:    g.CreateTime,
		UpdateTime:    g.UpdateTime,
	}
}

func newStandings(st domain.Standings) Standings {
	resp := Standings{Entries: make([]StandingsEntry, 0, len(st.Entries))}
	for _, e := range st.Entries {
		resp.Entries = append(resp.Entries, StandingsEntry{
			Player:  e.Player,
			Won:     e.Won,
			Played:  e.Played,
			WinRate: e.WinRate.StringFixed(3),
		})
	}

	return resp
}
