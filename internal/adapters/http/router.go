package http

import (
	"github.com/dkeye/CollabRelay/internal/adapters/signal"
	"github.com/dkeye/CollabRelay/internal/app/orch"
	"github.com/dkeye/CollabRelay/internal/config"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const sessionName = "relay_session"

func genClientToken() string {
	return uuid.NewString()
}

// ClientTokenMiddleware keeps a stable client token in the session cookie.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		token, _ := session.Get("client_token").(string)
		if token == "" {
			token = genClientToken()
			session.Set("client_token", token)
			if err := session.Save(); err != nil {
				log.Warn().Err(err).Str("module", "adapters.http").Msg("save session")
			}
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(cfg *config.Config, o *orch.Orchestrator, ctl *signal.SignalWSController, journal StatsSource) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{Path: "/", MaxAge: 3600 * 24 * 7, HttpOnly: true})
	r.Use(sessions.Sessions(sessionName, store))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	api := NewAPI(o, journal)
	r.GET("/health", api.Health)
	r.GET("/ws", func(c *gin.Context) {
		log.Debug().Str("module", "adapters.http").Str("token", c.GetString("client_token")).Msg("ws endpoint hit")
		ctl.HandleSignal(c)
	})

	g := r.Group("/api")
	g.GET("/rooms", api.ListRooms)
	g.GET("/rooms/:id", api.GetRoom)
	g.GET("/stats", api.Stats)

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")
	return r
}
