package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/skillproof/proctor-backend/internal/config"
	"github.com/skillproof/proctor-backend/internal/response"
)

// SystemHandler exposes operational status: readiness of the backing
// stores and the audit queue depth.
type SystemHandler struct {
	rdb       *redis.Client
	startTime time.Time
	log       zerolog.Logger
}

func NewSystemHandler(rdb *redis.Client, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		rdb:       rdb,
		startTime: time.Now(),
		log:       log.With().Str("component", "system_handler").Logger(),
	}
}

// Status godoc
// GET /api/v1/system/status
func (h *SystemHandler) Status(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	redisUp := h.rdb.Ping(ctx).Err() == nil
	var queueDepth int64
	if redisUp {
		queueDepth, _ = h.rdb.LLen(ctx, config.WorkerKey.PersistViolationsQueue).Result()
	}

	response.Success(c, http.StatusOK, gin.H{
		"uptime_seconds":  int64(time.Since(h.startTime).Seconds()),
		"go_version":      runtime.Version(),
		"goroutines":      runtime.NumGoroutine(),
		"redis_up":        redisUp,
		"violation_queue": queueDepth,
	})
}
