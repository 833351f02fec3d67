package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sitepulse/api/aggregation"
	"sitepulse/api/logger"
	"sitepulse/api/models"
	"sitepulse/api/utils"
)

type StatsHandlers struct {
	Engine       *aggregation.Engine
	queryTimeout time.Duration
	log          *logger.Logger
}

func NewStatsHandlers(engine *aggregation.Engine, queryTimeout time.Duration, log *logger.Logger) *StatsHandlers {
	if queryTimeout <= 0 {
		queryTimeout = 30 * time.Second
	}
	return &StatsHandlers{Engine: engine, queryTimeout: queryTimeout, log: log}
}

// respond runs one bounded aggregation and writes its result or a 500.
func respond[T any](h *StatsHandlers, c *gin.Context, query string, fn func(ctx context.Context) (T, error)) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.queryTimeout)
	defer cancel()

	result, err := fn(ctx)
	if err != nil {
		h.log.Error("aggregation failed", zap.String("query", query), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve " + query + " statistics"})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *StatsHandlers) limit(c *gin.Context) (int, bool) {
	limit, ok := utils.ParseLimit(c.Query("limit"), aggregation.DefaultTopLimit, aggregation.MaxTopLimit)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'limit' parameter. Must be a positive integer."})
	}
	return limit, ok
}

// Dashboard serves the full analytics document.
func (h *StatsHandlers) Dashboard(c *gin.Context) {
	respond(h, c, "dashboard", h.Engine.Dashboard)
}

func (h *StatsHandlers) Overview(c *gin.Context) {
	respond(h, c, "overview", h.Engine.Overview)
}

func (h *StatsHandlers) TopPages(c *gin.Context) {
	limit, ok := h.limit(c)
	if !ok {
		return
	}
	respond(h, c, "top pages", func(ctx context.Context) ([]models.TopPathResult, error) {
		return h.Engine.TopPages(ctx, limit)
	})
}

func (h *StatsHandlers) Sources(c *gin.Context) {
	respond(h, c, "traffic sources", h.Engine.TrafficSources)
}

func (h *StatsHandlers) Devices(c *gin.Context) {
	respond(h, c, "device", h.Engine.Devices)
}

func (h *StatsHandlers) Trend(c *gin.Context) {
	respond(h, c, "trend", h.Engine.Trend)
}

func (h *StatsHandlers) Realtime(c *gin.Context) {
	respond(h, c, "realtime", h.Engine.ActiveNow)
}

func (h *StatsHandlers) Events(c *gin.Context) {
	limit, ok := h.limit(c)
	if !ok {
		return
	}
	respond(h, c, "event", func(ctx context.Context) ([]models.EventCount, error) {
		return h.Engine.TopEvents(ctx, limit)
	})
}
