// Package http wires the gin engine: middleware chain and route
// registration.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pawmarket/internal/http/handlers"
	"pawmarket/internal/http/middleware"
	"pawmarket/internal/infra"
	"pawmarket/internal/modules/presence"
	"pawmarket/internal/modules/track"
	"pawmarket/internal/modules/walk"
)

type ServerDeps struct {
	Walk     *walk.Service
	Track    *track.Service
	Presence *presence.Service
	Verifier infra.TokenVerifier
	Logger   *slog.Logger
}

func NewRouter(deps ServerDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.Observe(deps.Logger))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api", middleware.Auth(deps.Verifier))

	walkHandler := handlers.NewWalkHandler(deps.Walk)
	trackHandler := handlers.NewTrackHandler(deps.Track)
	walkerHandler := handlers.NewWalkerHandler(deps.Presence)

	api.GET("/walks/walkers/available", walkerHandler.Available)
	api.PUT("/walks/walkers/heartbeat", walkerHandler.Heartbeat)

	api.POST("/walks/book", walkHandler.Book)
	api.GET("/walks/my-walks", walkHandler.MyWalks)
	api.GET("/walks/:id", walkHandler.Get)
	api.GET("/walks/:id/events", walkHandler.Events)

	api.PUT("/walks/:id/accept", walkHandler.Accept)
	api.PUT("/walks/:id/decline", walkHandler.Decline)
	api.PUT("/walks/:id/start", walkHandler.Start)
	api.PUT("/walks/:id/complete", walkHandler.Complete)
	api.PUT("/walks/:id/cancel", walkHandler.Cancel)
	api.PUT("/walks/:id/cancel-by-owner", walkHandler.CancelByOwner)

	api.PUT("/walks/:id/location", trackHandler.UpdateLocation)
	api.GET("/walks/:id/location", trackHandler.GetLocation)

	return r
}
