package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/skillproof/proctor-backend/internal/config"
	"github.com/skillproof/proctor-backend/internal/handler"
	"github.com/skillproof/proctor-backend/internal/identity"
	"github.com/skillproof/proctor-backend/internal/middleware"
	"github.com/skillproof/proctor-backend/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Session *handler.SessionHandler
	WS      *handler.WSHandler
	System  *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	verifier *identity.Verifier,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// ─── Exam Group (JWT) ──────────────────────────────────────────────
	examAPI := router.Group("/api/v1/exam")
	examAPI.Use(middleware.RequireAuth(verifier))
	{
		examAPI.GET("/tests/:test_id/attempt", handlers.Session.GetAttemptStatus)
		examAPI.POST("/tests/:test_id/sessions", handlers.Session.CreateSession)
		examAPI.GET("/sessions/:session_id", handlers.Session.GetSession)
		examAPI.POST("/sessions/:session_id/files", handlers.Session.UploadFiles)
	}

	// ─── System Group (JWT) ────────────────────────────────────────────
	systemAPI := router.Group("/api/v1/system")
	systemAPI.Use(middleware.RequireAuth(verifier))
	{
		systemAPI.GET("/status", handlers.System.Status)
	}

	// ─── WebSocket Group (JWT via query param) ─────────────────────────
	wsAPI := router.Group("/ws/v1")
	wsAPI.Use(middleware.RequireWSAuth(verifier))
	{
		wsAPI.GET("/exam/sessions/:session_id/stream", handlers.WS.SessionStream)
	}

	return router
}
