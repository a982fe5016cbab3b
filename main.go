package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"remindme/config"
	"remindme/handler"
	"remindme/middleware"
	"remindme/parser"
	"remindme/repository"
	"remindme/services"
	"remindme/usecase"
	"remindme/utils"
)

func init() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil && os.Getenv("GO_ENV") != "test" {
		log.Printf("No .env file loaded: %v", err)
	}

	// Check required environment variables
	requiredEnvVars := []string{
		"MONGO_URI",
		"MONGO_DB",
		"TASKS_COLLECTION",
		"USERS_COLLECTION",
		"JWT_SECRET_KEY",
		"JWT_EXPIRATION_TIME",
		"PORT",
	}
	for _, envVar := range requiredEnvVars {
		if os.Getenv(envVar) == "" && os.Getenv("GO_ENV") != "test" {
			log.Fatalf("Required environment variable %s is not set", envVar)
		}
	}

	utils.InitValidator()
	utils.InitJWT()
	utils.InitMongoClient()
}

func setupRouter(taskHandler *handler.TaskHandler, userService *usecase.UserService) *gin.Engine {
	router := gin.Default()

	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.EnhancedRecoveryMiddleware())

	router.GET("/health", handler.HealthHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public routes (no authentication required)
	public := router.Group("/api")
	{
		auth := public.Group("/auth")
		{
			auth.POST("/register", func(c *gin.Context) {
				handler.RegistrationHandler(c, userService)
			})
			auth.POST("/login", func(c *gin.Context) {
				handler.LoginHandler(c, userService)
			})
		}
	}

	// Protected routes (authentication required)
	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware())
	{
		tasks := protected.Group("/tasks")
		{
			tasks.GET("/", taskHandler.ListTasks)
			tasks.POST("/", taskHandler.CreateTask)
			tasks.GET("/stats", taskHandler.TaskStats)
			tasks.POST("/sync", taskHandler.SyncTasks)
			tasks.PUT("/:id", taskHandler.UpdateTask)
			tasks.POST("/:id/toggle", taskHandler.ToggleTask)
			tasks.PUT("/:id/position", taskHandler.MoveTask)
			tasks.DELETE("/:id", taskHandler.DeleteTask)
		}
	}

	return router
}

func main() {
	dbConfig := config.LoadDatabaseConfig()
	serverConfig := config.LoadServerConfig()

	db := utils.MongoClient.Database(dbConfig.DatabaseName)
	if err := repository.SetupIndexes(db); err != nil {
		log.Printf("Failed to set up indexes: %v", err)
	}

	// Local store: Redis when configured, in-process memory otherwise
	var localStore repository.LocalTaskStore
	if serverConfig.RedisURL != "" {
		redisStore, err := services.NewRedisTaskStore(serverConfig.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect local task store: %v", err)
		}
		localStore = redisStore
	} else {
		localStore = repository.NewMemoryTaskStore()
	}

	tasksRepo := repository.GetTasksRepo(utils.MongoClient)
	userRepo := repository.GetUserRepo(utils.MongoClient)
	userService := &usecase.UserService{UsersRepo: userRepo}

	dispatcher := services.NewReminderDispatcher(serverConfig.ReminderSweepInterval, nil)
	dispatcher.Start()
	defer dispatcher.Stop()

	engine := usecase.NewSyncEngine(localStore, tasksRepo, dispatcher)
	taskService := usecase.NewTaskService(localStore, engine, dispatcher, parser.New())
	taskHandler := handler.NewTaskHandler(taskService, engine)

	// Apply remote changes as they happen, across all users
	if serverConfig.ListenForChanges {
		if err := engine.Listen(context.Background(), ""); err != nil {
			log.Printf("Remote change listener unavailable: %v", err)
		}
	}

	router := setupRouter(taskHandler, userService)

	serverAddr := fmt.Sprintf(":%s", serverConfig.Port)
	log.Printf("Server starting on %s", serverAddr)
	if err := router.Run(serverAddr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
