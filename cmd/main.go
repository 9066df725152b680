package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/db"
	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/handlers"
	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/logger"
	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/middleware"
	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/repos"
	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/server"
	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/services"
	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/sse"
	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTL := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
	refreshTokenTTL := utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 86400, log)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	userRepo := repos.NewUserRepo(thePG, log)
	userTokenRepo := repos.NewUserTokenRepo(thePG, log)
	googleTokenRepo := repos.NewGoogleTokenRepo(thePG, log)
	solutionRepo := repos.NewSolutionRepo(thePG, log)
	summaryRepo := repos.NewSummaryRepo(thePG, log)
	llmLogRepo := repos.NewLLMCallLogRepo(thePG, log)

	// SSE
	log.Info("Setting up SSE hub now...")
	sseHub := sse.NewSSEHub(log)
	var emitter services.SSEEmitter = services.NewHubEmitter(sseHub)
	sseBus, err := services.NewRedisSSEBus(log)
	if err != nil {
		log.Warn("Redis SSE bus disabled, using local hub only", "error", err)
	} else {
		if err := sseBus.StartForwarder(context.Background(), sseHub.Broadcast); err != nil {
			log.Warn("Redis SSE forwarder failed to start, using local hub only", "error", err)
		} else {
			emitter = services.NewBusEmitter(log, sseBus)
		}
	}

	// Services
	log.Info("Setting up Services from main...")
	bucketService, err := services.NewBucketService(log)
	if err != nil {
		log.Warn("Could not init BucketService", "error", err)
	}
	geminiClient, err := services.NewGeminiClient(log)
	if err != nil {
		log.Error("Could not init GeminiClient", "error", err)
		os.Exit(1)
	}
	avatarService, err := services.NewAvatarService(thePG, log, userRepo, bucketService)
	if err != nil {
		log.Error("Could not init AvatarService", "error", err)
		os.Exit(1)
	}
	authService := services.NewAuthService(thePG, log, userRepo, avatarService, userTokenRepo, jwtSecretKey, time.Duration(accessTokenTTL)*time.Second, time.Duration(refreshTokenTTL)*time.Second)
	userService := services.NewUserService(thePG, log, userRepo)
	googleAuthService := services.NewGoogleAuthService(thePG, log, googleTokenRepo)
	classroomService := services.NewClassroomService(log, googleAuthService)
	driveService := services.NewDriveService(log, googleAuthService)
	solutionNotifier := services.NewSolutionNotifier(emitter)
	summaryNotifier := services.NewSummaryNotifier(emitter)
	solverService := services.NewSolverService(
		thePG,
		log,
		solutionRepo,
		summaryRepo,
		llmLogRepo,
		classroomService,
		driveService,
		geminiClient,
		bucketService,
		solutionNotifier,
		summaryNotifier,
	)
	solverService.StartWorker(context.Background())
	solutionService := services.NewSolutionService(thePG, log, solutionRepo)
	summaryService := services.NewSummaryService(thePG, log, summaryRepo)

	// Handlers
	log.Info("Setting up handlers from main...")
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService)
	googleHandler := handlers.NewGoogleHandler(googleAuthService)
	classroomHandler := handlers.NewClassroomHandler(classroomService)
	solutionHandler := handlers.NewSolutionHandler(solverService, solutionService)
	summaryHandler := handlers.NewSummaryHandler(solverService, summaryService)
	sseHandler := handlers.NewSSEHandler(log, sseHub)

	// Middleware
	log.Info("Setting up middleware from main...")
	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		AuthHandler:      authHandler,
		AuthMiddleware:   authMiddleware,
		UserHandler:      userHandler,
		GoogleHandler:    googleHandler,
		ClassroomHandler: classroomHandler,
		SolutionHandler:  solutionHandler,
		SummaryHandler:   summaryHandler,
		SSEHandler:       sseHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	log.Info("Server listening", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Server exited", "error", err)
	}
}
