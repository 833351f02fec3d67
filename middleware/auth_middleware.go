package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"sitepulse/api/config"
	"sitepulse/api/logger"
	"sitepulse/api/utils"
)

const adminSubjectKey = "admin_subject"

// AdminRequired gates aggregated data behind either an X-API-KEY matching the
// configured bcrypt hash or a bearer JWT with the admin role. With neither
// configured the routes stay open.
func AdminRequired(cfg config.AuthConfig, log *logger.Logger) gin.HandlerFunc {
	apiKeyHash := []byte(cfg.APIKeyHash)
	secret := []byte(cfg.JWTSecret)

	if len(apiKeyHash) == 0 && len(secret) == 0 {
		log.Warn("admin routes are unauthenticated: set ADMIN_API_KEY_HASH or JWT_SECRET_KEY")
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		if key := c.GetHeader("X-API-KEY"); key != "" && len(apiKeyHash) > 0 {
			if bcrypt.CompareHashAndPassword(apiKeyHash, []byte(key)) == nil {
				c.Set(adminSubjectKey, "api-key")
				c.Next()
				return
			}
			log.Warn("AdminRequired: API key rejected", zap.String("route", c.FullPath()))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid API key"})
			return
		}

		tokenString := utils.BearerToken(c.GetHeader("Authorization"))
		if tokenString == "" || len(secret) == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: No credentials provided"})
			return
		}

		claims, err := utils.ValidateAdminToken(secret, tokenString)
		if err != nil {
			log.Warn("AdminRequired: invalid token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid or expired token"})
			return
		}

		c.Set(adminSubjectKey, claims.Subject)
		c.Next()
	}
}
