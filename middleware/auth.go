// Package middleware carries the HTTP cross-cutting concerns: Supabase JWT
// authentication and AppError-to-response translation.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/glasscast-app/glasscast-backend/config"
	"github.com/glasscast-app/glasscast-backend/logger"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// userIDKey is the gin context key carrying the authenticated owner identity.
const userIDKey = "user_id"

// AuthMiddleware validates the Bearer token as a Supabase-issued HS256 JWT
// and stores the owner identity in the request context. Every request past
// it carries a valid owner identity.
func AuthMiddleware(cfg *config.SupabaseConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.GetLogger()

		authHeader := c.GetHeader("Authorization")
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if authHeader == "" || token == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization required",
			})
			return
		}

		if cfg.JWTSecret == "" {
			log.Errorw("SUPABASE_JWT_SECRET is not set, rejecting request",
				"path", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error": "Authentication is not configured",
			})
			return
		}

		parsed, err := jwt.Parse([]byte(token),
			jwt.WithKey(jwa.HS256, []byte(cfg.JWTSecret)),
			jwt.WithValidate(true),
		)
		if err != nil {
			message := "Invalid authentication token"
			if strings.Contains(err.Error(), "exp") {
				message = "Your session has expired"
			}
			log.Warnw("JWT validation failed",
				"error", err,
				"path", c.Request.URL.Path,
				"client_ip", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": message,
			})
			return
		}

		ownerID, err := uuid.Parse(parsed.Subject())
		if err != nil {
			log.Warnw("JWT subject is not a valid owner identity",
				"subject", logger.MaskSensitiveString(parsed.Subject(), 4, 2),
				"error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid authentication token",
			})
			return
		}

		c.Set(userIDKey, ownerID)
		c.Next()
	}
}

// GetUserID returns the authenticated owner identity set by AuthMiddleware.
func GetUserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(userIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}
