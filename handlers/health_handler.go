package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glasscast-app/glasscast-backend/config"
	"github.com/redis/go-redis/v9"
)

// HealthHandler reports process liveness and dependency readiness.
type HealthHandler struct {
	cfg         *config.Config
	redisClient *redis.Client
	startedAt   time.Time
}

func NewHealthHandler(cfg *config.Config, redisClient *redis.Client) *HealthHandler {
	return &HealthHandler{
		cfg:         cfg,
		redisClient: redisClient,
		startedAt:   time.Now(),
	}
}

// Liveness reports that the process is up. It checks nothing else.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness reports whether the service can do useful work. The cache being
// unreachable makes the service degraded but not down: reads fall through to
// the upstreams.
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	cacheStatus := "up"
	if err := h.redisClient.Ping(ctx).Err(); err != nil {
		cacheStatus = "down"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": h.cfg.Server.Version,
		"uptime":  time.Since(h.startedAt).Round(time.Second).String(),
		"components": gin.H{
			"cache":            cacheStatus,
			"city_persistence": boolToStatus(h.cfg.Supabase.IsConfigured()),
			"weather_provider": boolToStatus(h.cfg.Weather.APIKey != ""),
		},
	})
}

func boolToStatus(configured bool) string {
	if configured {
		return "configured"
	}
	return "not_configured"
}
