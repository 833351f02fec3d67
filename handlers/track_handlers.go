// api/handlers/track_handlers.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sitepulse/api/ingest"
	"sitepulse/api/logger"
	"sitepulse/api/metrics"
)

type TrackHandlers struct {
	Ingest *ingest.Service
	log    *logger.Logger
}

func NewTrackHandlers(svc *ingest.Service, log *logger.Logger) *TrackHandlers {
	return &TrackHandlers{Ingest: svc, log: log}
}

// Track accepts one page view or event per call.
func (h *TrackHandlers) Track(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, ingest.MaxBodyBytes)

	var sub ingest.Submission
	if err := c.ShouldBindJSON(&sub); err != nil {
		metrics.IngestFailures.WithLabelValues(metrics.ReasonInvalidPayload).Inc()
		h.log.Debug("rejected tracking payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": ingest.ErrInvalidPayload.Error()})
		return
	}

	if _, err := h.Ingest.Ingest(c.Request.Context(), c.Request, &sub); err != nil {
		switch {
		case errors.Is(err, ingest.ErrMissingPath), errors.Is(err, ingest.ErrMissingEventName):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record analytics event"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
