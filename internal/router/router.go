package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stemsi/leave-assessment/internal/config"
	"github.com/stemsi/leave-assessment/internal/handler"
	"github.com/stemsi/leave-assessment/internal/metrics"
	"github.com/stemsi/leave-assessment/internal/middleware"
	"github.com/stemsi/leave-assessment/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Leave     *handler.LeaveHandler
	Test      *handler.TestHandler
	WS        *handler.ProctorWSHandler
	Setting   *handler.SettingHandler
	Monitor   *handler.MonitorHandler
	Dashboard *handler.DashboardHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// limiter may be nil, which disables rate limiting.
func SetupRouter(
	auth middleware.TokenValidator,
	handlers *Handlers,
	cfg *config.Config,
	rec *metrics.Recorder,
	limiter *middleware.RateLimiter,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Retry-After"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())
	router.Use(rec.Middleware())
	router.Use(middleware.Compress(cfg.CompressMinBytes, "/metrics", "/ws/"))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", rec.Handler())

	// ─── 1. Student Group (JWT + Rate Limit) ───────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(middleware.NoStore(), middleware.RequireStudentJWT(auth))
	if limiter != nil {
		studentAPI.Use(limiter.Middleware())
	}
	{
		studentAPI.POST("/leaves", handlers.Leave.ApplyLeave)
		studentAPI.GET("/leaves", handlers.Leave.ListMyLeaves)
		studentAPI.GET("/leaves/:leave_id", handlers.Leave.GetLeave)
		studentAPI.GET("/leaves/:leave_id/test", handlers.Test.GetTestForLeave)
		studentAPI.GET("/subjects", handlers.Leave.ListSubjects)

		studentAPI.POST("/tests/:test_id/answer", handlers.Test.SubmitAnswer)
		studentAPI.POST("/tests/:test_id/submit", handlers.Test.SubmitTest)
		studentAPI.POST("/tests/:test_id/violation", handlers.Test.RecordViolation)
		studentAPI.GET("/tests/:test_id/result", handlers.Test.GetResult)
	}

	// ─── 2. WebSocket Group (Student WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireStudentWSAuth(auth))
	{
		ws.GET("/student/tests/:test_id/proctor", handlers.WS.ProctorStream)
	}

	// ─── 3. Admin Group (JWT) ──────────────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.NoStore(), middleware.RequireAdminJWT(auth))
	{
		adminAPI.GET("/dashboard", handlers.Dashboard.GetDashboardData)

		adminAPI.GET("/leaves", handlers.Leave.ListAllLeaves)
		adminAPI.GET("/leaves/:leave_id", handlers.Leave.GetLeave)

		adminAPI.GET("/settings", handlers.Setting.GetSettings)
		adminAPI.PUT("/settings", handlers.Setting.UpdateSettings)

		adminAPI.GET("/tests/:test_id/result", handlers.Test.GetResult)
		adminAPI.GET("/tests/:test_id/monitor", handlers.Monitor.MonitorTestSSE)
	}

	return router
}
