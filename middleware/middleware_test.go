package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"

	"sitepulse/api/config"
	"sitepulse/api/logger"
	"sitepulse/api/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func adminRouter(cfg config.AuthConfig) *gin.Engine {
	r := gin.New()
	r.GET("/stats", AdminRequired(cfg, logger.NewNop()), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"subject": c.GetString(adminSubjectKey)})
	})
	return r
}

func TestAdminRequired(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-key"), bcrypt.MinCost)
	require.NoError(t, err)
	secret := "jwt-secret"
	cfg := config.AuthConfig{APIKeyHash: string(hash), JWTSecret: secret}

	token, err := utils.GenerateAdminToken([]byte(secret), "ops", time.Hour)
	require.NoError(t, err)
	foreign, err := utils.GenerateAdminToken([]byte("other"), "ops", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name    string
		headers map[string]string
		want    int
	}{
		{name: "no credentials", want: http.StatusUnauthorized},
		{name: "valid api key", headers: map[string]string{"X-API-KEY": "s3cret-key"}, want: http.StatusOK},
		{name: "wrong api key", headers: map[string]string{"X-API-KEY": "guess"}, want: http.StatusUnauthorized},
		{name: "valid token", headers: map[string]string{"Authorization": "Bearer " + token}, want: http.StatusOK},
		{name: "foreign token", headers: map[string]string{"Authorization": "Bearer " + foreign}, want: http.StatusUnauthorized},
		{name: "garbage token", headers: map[string]string{"Authorization": "Bearer abc.def.ghi"}, want: http.StatusUnauthorized},
	}

	r := adminRouter(cfg)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/stats", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestAdminRequiredOpenWhenUnconfigured(t *testing.T) {
	r := adminRouter(config.AuthConfig{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stats", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"https://parks.example.org"}))
	r.POST("/api/track", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/api/track", nil)
	req.Header.Set("Origin", "https://parks.example.org")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://parks.example.org", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/track", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestLoggerOmitsClientAddress(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	log := &logger.Logger{Logger: zap.New(core)}

	r := gin.New()
	r.Use(RequestLogger(log))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "203.0.113.9:5555"
	req.Header.Set("X-Forwarded-For", "198.51.100.23")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "/ping", entry.ContextMap()["route"])
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	for _, v := range entry.ContextMap() {
		s, ok := v.(string)
		if !ok {
			continue
		}
		assert.NotContains(t, s, "203.0.113.9")
		assert.NotContains(t, s, "198.51.100.23")
	}
}
