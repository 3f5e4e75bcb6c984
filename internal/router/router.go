package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prepsio/testline-backend/internal/config"
	"github.com/prepsio/testline-backend/internal/handler"
	"github.com/prepsio/testline-backend/internal/middleware"
	"github.com/prepsio/testline-backend/internal/response"
	"github.com/prepsio/testline-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth     *handler.AuthHandler
	Session  *handler.SessionHandler
	Report   *handler.ReportHandler
	Analysis *handler.AnalysisHandler
	Admin    *handler.AdminHandler
	WS       *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
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
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/login", handlers.Auth.Login)
		auth.POST("/register", handlers.Auth.Register)
		auth.POST("/admin/login", handlers.Auth.AdminLogin)
	}

	// ─── 2. User Group (JWT + Single Device) ───────────────────────────
	userAPI := router.Group("/api/v1")
	userAPI.Use(
		middleware.RequireUserJWT(authService),
		middleware.CheckSingleDeviceLogin(authService),
	)
	{
		userAPI.GET("/me", handlers.Auth.Me)

		// Test catalog, bucketed by status relative to the user.
		userAPI.GET("/tests/status", handlers.Report.GetStatusReport)

		// Session lifecycle
		userAPI.POST("/tests/:test_id/session", handlers.Session.Open)
		userAPI.GET("/tests/:test_id/session", handlers.Session.GetState)
		userAPI.POST("/tests/:test_id/session/events", handlers.Session.ApplyEvent)
		userAPI.POST("/tests/:test_id/session/finalize", handlers.Session.Finalize)
		userAPI.GET("/tests/:test_id/paper", handlers.Session.GetPaper)

		// Direct submission path (clients that assemble the payload themselves).
		userAPI.POST("/submissions", handlers.Report.Submit)

		// Per-test reports
		userAPI.GET("/tests/:test_id/report/scorecard", handlers.Report.GetScorecard)
		userAPI.GET("/tests/:test_id/report/subjects", handlers.Report.GetSubjects)
		userAPI.GET("/tests/:test_id/report/topics", handlers.Report.GetTopics)
		userAPI.GET("/tests/:test_id/report/review", handlers.Report.GetReview)

		// Post-test self analysis
		userAPI.PUT("/analysis", handlers.Analysis.Save)
		userAPI.GET("/tests/:test_id/analysis", handlers.Analysis.List)

		// Cross-test reports
		userAPI.GET("/reports/overall", handlers.Report.GetOverallStats)
		userAPI.GET("/reports/errors", handlers.Report.GetErrorTaxonomy)
	}

	// ─── 3. WebSocket Group (User WS Auth) ─────────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireUserWSAuth(authService))
	{
		ws.GET("/tests/:test_id/stream", handlers.WS.SessionStream)
	}

	// ─── 4. Admin Group (JWT) ──────────────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(authService))
	{
		// Test authoring
		adminAPI.GET("/tests", handlers.Admin.ListTests)
		adminAPI.POST("/tests", handlers.Admin.CreateTest)
		adminAPI.GET("/tests/:test_id", handlers.Admin.GetTest)
		adminAPI.PUT("/tests/:test_id", handlers.Admin.UpdateTest)
		adminAPI.DELETE("/tests/:test_id", handlers.Admin.DeleteTest)

		// Question authoring
		adminAPI.GET("/tests/:test_id/questions", handlers.Admin.ListQuestions)
		adminAPI.POST("/tests/:test_id/questions", handlers.Admin.AddQuestion)
		adminAPI.PUT("/tests/:test_id/questions/:question_id", handlers.Admin.UpdateQuestion)
		adminAPI.DELETE("/tests/:test_id/questions/:question_id", handlers.Admin.RemoveQuestion)

		// Results
		adminAPI.GET("/tests/:test_id/results", handlers.Admin.GetResults)

		// Device management
		adminAPI.POST("/users/:user_id/reset-login", handlers.Admin.ResetUserLogin)
	}

	return router
}
