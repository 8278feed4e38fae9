package tictactoe

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/iguagile/iguagile-tictactoe/game"
	"github.com/iguagile/iguagile-tictactoe/id"
	"github.com/iguagile/iguagile-tictactoe/registry"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type userView struct {
	Name  string `json:"name"`
	State string `json:"state"`
}

type gameView struct {
	ID    int    `json:"id"`
	X     string `json:"x"`
	O     string `json:"o"`
	Board string `json:"board"`
	Turn  string `json:"turn"`
}

// NewAdminHandler serves read-only snapshots of the server state.
// ws, when non-nil, is mounted at /ws.
func NewAdminHandler(reg *registry.Registry, engine *game.Engine, metrics *Metrics, ws http.HandlerFunc) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"users":  reg.Count(),
			"games":  engine.Count(),
		})
	})

	r.GET("/users", func(c *gin.Context) {
		users := reg.Users()
		views := make([]userView, 0, len(users))
		for _, u := range users {
			views = append(views, userView{Name: u.Name, State: u.Availability.String()})
		}
		c.JSON(http.StatusOK, views)
	})

	r.GET("/games", func(c *gin.Context) {
		name := func(session id.Session) string {
			if u, ok := reg.FindBySession(session); ok {
				return u.Name
			}
			return ""
		}

		games := engine.All()
		sort.Slice(games, func(i, j int) bool { return games[i].ID < games[j].ID })
		views := make([]gameView, 0, len(games))
		for _, g := range games {
			views = append(views, gameView{
				ID:    g.ID,
				X:     name(g.X),
				O:     name(g.O),
				Board: g.Board.String(),
				Turn:  g.Turn.String(),
			})
		}
		c.JSON(http.StatusOK, views)
	})

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	if ws != nil {
		r.GET("/ws", gin.WrapF(ws))
	}

	return r
}
