package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	_ "github.com/joho/godotenv/autoload"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/acadarchive/archive-api/docs" // Swagger docs
	"github.com/acadarchive/archive-api/internal/config"
	"github.com/acadarchive/archive-api/internal/database"
	"github.com/acadarchive/archive-api/internal/handlers"
	"github.com/acadarchive/archive-api/internal/jobs"
	"github.com/acadarchive/archive-api/internal/middleware"
	"github.com/acadarchive/archive-api/internal/repository"
	"github.com/acadarchive/archive-api/internal/services"
	"github.com/acadarchive/archive-api/internal/storage"
	"github.com/acadarchive/archive-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Orphaned uploads get an hour before the sweep may touch them, so a file
// staged for an in-flight operation is never collected.
const orphanSweepGrace = time.Hour

// @title AcadArchive API
// @version 1.0
// @description REST API for the academic abstract archive (theses and dissertations)

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Setup(cfg.Environment)

	// Initialize Sentry when DSN is configured
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			TracesSampleRate: 0.2,
			Environment:      cfg.Environment,
		}); err != nil {
			logger.Error("Sentry initialization failed", "error", err)
		} else {
			logger.Info("Sentry initialized")
		}
	}

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	logger.Info("Connected to database")

	if err := database.Migrate(db); err != nil {
		logger.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Initialize attachment storage
	store, err := storage.NewLocalStorage(cfg.StoragePath)
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	logger.Info("Initialized local storage", "path", store.BasePath())

	// Initialize repositories
	repos := repository.NewRepositories(db)

	// Initialize background worker
	worker := jobs.NewWorker(cfg.WorkerCount)
	logger.Info("Started background worker", "goroutines", cfg.WorkerCount)

	// Initialize services
	svcs := services.NewServices(db, repos, store, worker)

	// Schedule recurring jobs
	scheduleJobs(worker, svcs)

	// Initialize handlers
	h := handlers.NewHandlers(svcs, cfg, worker)

	// Setup router
	router := setupRouter(h, cfg)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	worker.Shutdown()
	logger.Info("Background worker stopped")

	if cfg.SentryDSN != "" {
		sentry.Flush(5 * time.Second)
	}

	logger.Info("Server exited gracefully")
}

func setupRouter(h *handlers.Handlers, cfg *config.Config) *gin.Engine {
	router := gin.New()

	// Global middleware
	if cfg.SentryDSN != "" {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	// Redirect root to swagger
	router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Health check (public)
		v1.GET("/health", h.Health.Check)

		// Protected routes (requires authentication)
		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTSecret))
		{
			// Abstracts
			protected.GET("/abstracts", h.Abstract.Index)
			protected.GET("/abstracts/:id", h.Abstract.Show)
			protected.POST("/abstracts", h.Abstract.Create)
			protected.GET("/abstracts/:id/download", h.Abstract.Download)
			protected.POST("/abstracts/:id/view", h.Abstract.View)
			protected.GET("/abstracts/:id/record_pdf", h.Report.RecordSheetPDF)

			// Reference data (read for everyone)
			protected.GET("/programs", h.Reference.IndexPrograms)
			protected.GET("/departments", h.Reference.IndexDepartments)

			// Reports
			protected.GET("/reports/abstracts_xlsx", h.Report.AbstractsXLSX)

			// Admin-only routes
			admin := protected.Group("")
			admin.Use(middleware.RequireAdmin())
			{
				admin.PUT("/abstracts/:id", h.Abstract.Update)
				admin.DELETE("/abstracts/:id", h.Abstract.Delete)

				admin.POST("/programs", h.Reference.CreateProgram)
				admin.PUT("/programs/:id", h.Reference.UpdateProgram)
				admin.DELETE("/programs/:id", h.Reference.DeleteProgram)

				admin.POST("/departments", h.Reference.CreateDepartment)
				admin.PUT("/departments/:id", h.Reference.UpdateDepartment)
				admin.DELETE("/departments/:id", h.Reference.DeleteDepartment)

				admin.GET("/audits", h.Audit.Index)
			}
		}
	}

	return router
}

func scheduleJobs(worker *jobs.Worker, svcs *services.Services) {
	// Hourly sweep for files left behind by operations that never committed
	worker.ScheduleEvery(time.Hour, func(ctx context.Context) error {
		return svcs.Abstract.SweepOrphanFiles(ctx, orphanSweepGrace)
	})
}
