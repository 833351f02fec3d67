package handlers

import (
	_ "embed"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed static/tracker.js
var trackerScript []byte

// TrackerScript serves the browser shim that reports page views and events.
func TrackerScript(c *gin.Context) {
	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, "application/javascript; charset=utf-8", trackerScript)
}
