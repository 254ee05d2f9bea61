package router

import (
	"net/http"
	"time"

	"github.com/courseloop/hwboard-backend/internal/config"
	"github.com/courseloop/hwboard-backend/internal/handler"
	"github.com/courseloop/hwboard-backend/internal/middleware"
	"github.com/courseloop/hwboard-backend/internal/response"
	"github.com/courseloop/hwboard-backend/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Submission  *handler.SubmissionHandler
	Achievement *handler.AchievementHandler
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

	// ─── Student Group ─────────────────────────────────────────────────
	student := router.Group("/api/v1/student", middleware.RequireStudentJWT(authService))
	{
		student.POST("/courses/:course_id/sets/:set_id/problems/:problem_id/submit", handlers.Submission.Submit)
		student.GET("/courses/:course_id/sets/:set_id/problems/:problem_id/answers/last", handlers.Submission.StickyAnswers)

		student.GET("/courses/:course_id/achievements", handlers.Achievement.GetState)
		student.POST("/courses/:course_id/sets/:set_id/extend-due-date", handlers.Achievement.ExtendDueDate)
	}

	// ─── Instructor Group ──────────────────────────────────────────────
	instructor := router.Group("/api/v1/instructor", middleware.RequireInstructorJWT(authService))
	{
		instructor.GET("/courses/:course_id/users/:user_id/sets/:set_id/problems/:problem_id/past-answers", handlers.Submission.PastAnswers)
	}

	return router
}
