package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger 可做连通性检查的依赖
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler 健康检查
type HealthHandler struct {
	db    Pinger
	redis Pinger // 可为 nil
}

// NewHealthHandler 创建 HealthHandler；redis 未启用时传 nil
func NewHealthHandler(db, redis Pinger) *HealthHandler {
	return &HealthHandler{db: db, redis: redis}
}

// Health 存活 + 依赖检查；数据库不可用时返回 503
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	body := gin.H{"status": "ok", "database": "ok", "redis": "disabled"}

	if err := h.db.Ping(ctx); err != nil {
		status = http.StatusServiceUnavailable
		body["status"] = "degraded"
		body["database"] = "unavailable"
	}
	if h.redis != nil {
		body["redis"] = "ok"
		if err := h.redis.Ping(ctx); err != nil {
			body["redis"] = "unavailable"
		}
	}

	c.JSON(status, body)
}
