package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/dkeye/VideoChat/internal/adapters/hostws"
	"github.com/dkeye/VideoChat/internal/app"
	"github.com/dkeye/VideoChat/internal/app/credentials"
	"github.com/dkeye/VideoChat/internal/app/orch"
	"github.com/dkeye/VideoChat/internal/config"
	"github.com/dkeye/VideoChat/internal/core"
	"github.com/dkeye/VideoChat/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

func genClientToken() string {
	idStr := uuid.NewString()
	return idStr
}

func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

// Deps is everything the routes drive. Transport is an interface so tests
// can run calls against a fake provider.
type Deps struct {
	Registry  *app.Registry
	Hubs      *hostws.Hubs
	Store     *credentials.Store
	Transport core.Transport
}

type callRequest struct {
	User int `json:"user" binding:"required"`
}

func screenID(c *gin.Context) domain.ScreenID {
	return domain.ScreenID(c.GetString("client_token"))
}

func SetupRouter(ctx context.Context, cfg *config.Config, deps Deps) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("VideoChatSessions", store))
	r.Use(ClientTokenMiddleware())

	if cfg.StaticPath != "" {
		r.Static("/static", cfg.StaticPath)
		r.GET("/", func(c *gin.Context) {
			c.File(cfg.StaticPath + "/index.html")
		})
	}
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	limiter := NewRateLimiter(cfg.RateLimit, cfg.RateInterval)
	plan := app.PlanConfig{
		APIKey:          cfg.APIKey,
		CountCameras:    cfg.CountCameras,
		MaxCountCameras: cfg.MaxCountCameras,
		SlotsPerDevice:  cfg.SlotsPerDevice,
	}

	api := r.Group("/api")

	// GET /api/slots: state of this client's call screen
	api.GET("/slots", func(c *gin.Context) {
		info, ok := deps.Registry.Info(screenID(c))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "no active call"})
			return
		}
		c.JSON(http.StatusOK, info)
	})

	// POST /api/call: plan the slots for one user and connect them
	api.POST("/call", func(c *gin.Context) {
		id := screenID(c)
		var req callRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid user"})
			return
		}
		side := domain.UserSide(req.User)
		if !side.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user must be 1 or 2"})
			return
		}
		if !limiter.Allow(string(id)) {
			log.Warn().Str("module", "adapters.http").Str("screen", string(id)).Msg("call rate limited")
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many call attempts"})
			return
		}

		slots, err := app.PlanSlots(side, plan, deps.Store)
		if err != nil {
			log.Error().Err(err).Str("module", "adapters.http").Str("screen", string(id)).Msg("plan slots")
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}

		// Connect before publishing the screen: a concurrent start for the
		// same screen then replaces a live coordinator, never a fresh one.
		coord := orch.New(orch.Config{PublisherName: cfg.PublisherName}, deps.Transport, deps.Hubs.GetOrCreate(id))
		if err := coord.ConnectAll(slots); err != nil {
			if _, open := deps.Registry.Get(id); !open {
				deps.Hubs.ReleaseIdle(id)
			}
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		deps.Registry.Open(id, side, coord)

		info, _ := deps.Registry.Info(id)
		c.JSON(http.StatusCreated, info)
	})

	// DELETE /api/call: tear the call down
	api.DELETE("/call", func(c *gin.Context) {
		id := screenID(c)
		if !deps.Registry.Close(id) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no active call"})
			return
		}
		deps.Hubs.ReleaseIdle(id)
		c.Status(http.StatusNoContent)
	})

	api.GET("/ws/events", func(c *gin.Context) {
		id := screenID(c)
		log.Info().Str("module", "adapters.http").Str("screen", string(id)).Msg("ws events endpoint hit")
		deps.Hubs.GetOrCreate(id).ServeWS(ctx, c.Writer, c.Request, func() {
			if _, open := deps.Registry.Get(id); !open {
				deps.Hubs.ReleaseIdle(id)
			}
		})
	})

	return r
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrConfiguration):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidState):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
