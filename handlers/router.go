package handlers

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sitepulse/api/aggregation"
	"sitepulse/api/config"
	"sitepulse/api/ingest"
	"sitepulse/api/logger"
	"sitepulse/api/middleware"
)

// Router holds what the HTTP surface needs.
type Router struct {
	Config *config.Config
	Store  Pinger
	Ingest *ingest.Service
	Engine *aggregation.Engine
	Log    *logger.Logger
}

func (rt Router) Build() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(rt.Log))
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS(rt.Config.AllowedOrigins))

	r.GET("/healthz", Health(rt.Store, rt.Log))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/tracker.js", TrackerScript)

	trackHandlers := NewTrackHandlers(rt.Ingest, rt.Log)
	statsHandlers := NewStatsHandlers(rt.Engine, rt.Config.QueryTimeout, rt.Log)

	api := r.Group("/api")
	{
		api.POST("/track", trackHandlers.Track)

		admin := api.Group("/")
		admin.Use(gzip.Gzip(gzip.DefaultCompression))
		admin.Use(middleware.AdminRequired(rt.Config.Auth, rt.Log))
		{
			admin.GET("/analytics", statsHandlers.Dashboard)

			statsGroup := admin.Group("/stats")
			{
				statsGroup.GET("/overview", statsHandlers.Overview)
				statsGroup.GET("/top-pages", statsHandlers.TopPages)
				statsGroup.GET("/sources", statsHandlers.Sources)
				statsGroup.GET("/devices", statsHandlers.Devices)
				statsGroup.GET("/trend", statsHandlers.Trend)
				statsGroup.GET("/realtime", statsHandlers.Realtime)
				statsGroup.GET("/events", statsHandlers.Events)
			}
		}
	}

	return r
}
