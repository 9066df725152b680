package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/handlers"
	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/middleware"
	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/utils"
)

type RouterConfig struct {
	AuthHandler      *handlers.AuthHandler
	AuthMiddleware   *middleware.AuthMiddleware
	UserHandler      *handlers.UserHandler
	GoogleHandler    *handlers.GoogleHandler
	ClassroomHandler *handlers.ClassroomHandler
	SolutionHandler  *handlers.SolutionHandler
	SummaryHandler   *handlers.SummaryHandler
	SSEHandler       *handlers.SSEHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	origins := []string{"http://localhost:3000", "http://localhost:5173"}
	if env := utils.GetEnv("CORS_ORIGINS", "", nil); env != "" {
		origins = strings.Split(env, ",")
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)
	router.POST("/register", cfg.AuthHandler.Register)
	router.POST("/login", cfg.AuthHandler.Login)

	// ===============
	// || Protected ||
	// ===============
	protected := router.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	// Auth
	protected.POST("/refresh", cfg.AuthHandler.Refresh)
	protected.POST("/logout", cfg.AuthHandler.Logout)
	// User
	protected.GET("/user", cfg.UserHandler.GetMe)

	api := protected.Group("/api")
	// Google connection
	api.POST("/google/connect", cfg.GoogleHandler.Connect)
	api.GET("/google/status", cfg.GoogleHandler.Status)
	api.DELETE("/google/connect", cfg.GoogleHandler.Disconnect)
	// Classroom browsing
	api.GET("/classroom/courses", cfg.ClassroomHandler.ListCourses)
	api.GET("/classroom/courses/:courseId/coursework", cfg.ClassroomHandler.ListCourseWork)
	api.GET("/classroom/courses/:courseId/coursework/:courseWorkId", cfg.ClassroomHandler.GetCourseWork)
	api.GET("/classroom/courses/:courseId/materials", cfg.ClassroomHandler.ListCourseWorkMaterials)
	// Solutions
	api.POST("/solutions", cfg.SolutionHandler.Create)
	api.POST("/solutions/upload", cfg.SolutionHandler.CreateFromUpload)
	api.GET("/solutions", cfg.SolutionHandler.List)
	api.GET("/solutions/latest", cfg.SolutionHandler.GetLatestForCourseWork)
	api.GET("/solutions/:id", cfg.SolutionHandler.Get)
	api.GET("/solutions/:id/status", cfg.SolutionHandler.GetStatus)
	api.GET("/solutions/:id/pdf", cfg.SolutionHandler.GetPDF)
	api.DELETE("/solutions/:id", cfg.SolutionHandler.Delete)
	// Summaries
	api.POST("/summaries", cfg.SummaryHandler.Create)
	api.GET("/summaries", cfg.SummaryHandler.List)
	api.GET("/summaries/:id", cfg.SummaryHandler.Get)
	api.GET("/summaries/:id/pdf", cfg.SummaryHandler.GetPDF)
	api.DELETE("/summaries/:id", cfg.SummaryHandler.Delete)
	// SSE
	api.GET("/sse/stream", cfg.SSEHandler.Stream)

	return router
}
