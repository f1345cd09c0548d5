package handler

import (
	"net/http"

	"revshare/pkg/store/mysql"
	"revshare/pkg/store/redis"

	"github.com/gin-gonic/gin"
)

// HealthHandler serves liveness checks
type HealthHandler struct {
	repo        *mysql.Repository
	redisClient *redis.RedisClient
}

// NewHealthHandler creates health handler
func NewHealthHandler(repo *mysql.Repository, redisClient *redis.RedisClient) *HealthHandler {
	return &HealthHandler{repo: repo, redisClient: redisClient}
}

// Check reports service and backing store health
// @Summary Health check
// @Tags health
// @Produce json
// @Router /health [get]
func (h *HealthHandler) Check(c *gin.Context) {
	status := http.StatusOK
	result := gin.H{"status": "ok", "database": "ok", "redis": "ok"}

	if err := h.repo.GetDatastore().Ping(c.Request.Context()); err != nil {
		status = http.StatusServiceUnavailable
		result["status"] = "degraded"
		result["database"] = err.Error()
	}
	if err := h.redisClient.Ping(c.Request.Context()); err != nil {
		status = http.StatusServiceUnavailable
		result["status"] = "degraded"
		result["redis"] = err.Error()
	}

	c.JSON(status, result)
}
