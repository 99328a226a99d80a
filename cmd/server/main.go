package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/mansoora/rehaish/internal/agent"
	"github.com/mansoora/rehaish/internal/config"
	"github.com/mansoora/rehaish/internal/handlers"
	"github.com/mansoora/rehaish/internal/logger"
	"github.com/mansoora/rehaish/internal/middleware"
	"github.com/mansoora/rehaish/internal/repository"
	"github.com/mansoora/rehaish/internal/search"
	"github.com/mansoora/rehaish/internal/services"
)

const (
	shutdownTimeout = 30 * time.Second
	webRoot         = "./web"
)

func main() {
	// Load .env if present; real deployments set the environment directly.
	_ = godotenv.Load()

	// Load configuration from environment variables
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	log := logger.New(cfg.Server.Env)
	log.Info("Starting Rehaish API", map[string]interface{}{
		"version":     handlers.APIVersion,
		"environment": cfg.Server.Env,
		"port":        cfg.Server.Port,
	})

	if err := os.MkdirAll(cfg.Store.DataDir, 0o755); err != nil {
		log.Fatal("Failed to create data directory", err, map[string]interface{}{
			"dir": cfg.Store.DataDir,
		})
	}

	// Initialize record stores and the search index
	listingRepo := repository.NewListingRepository(cfg.Store.ListingsPath())
	userRepo := repository.NewUserRepository(cfg.Store.UsersPath())
	index := search.NewIndex()

	// Initialize service layer
	listingService := services.NewListingService(listingRepo, index, log)
	userService := services.NewUserService(userRepo, log, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	// Build the search index from the store at startup. A failure here is not
	// fatal: the store stays authoritative and /health/ready reports the gap
	// until a later rebuild succeeds.
	ctx := context.Background()
	if err := listingService.RebuildIndex(ctx); err != nil {
		log.Warn("Initial search index build failed", map[string]interface{}{
			"error": err.Error(),
		})
	} else {
		log.Info("Search index built", map[string]interface{}{
			"indexed": index.Len(),
		})
	}

	pipeline := agent.NewLocalPipeline(listingRepo, index, log, cfg.Search.TopK)

	// Setup Gin router
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware in order: RequestID -> Logger -> Recovery -> CORS
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS(cfg.CORS.Origins))

	// Register health check routes
	healthHandler := handlers.NewHealthHandler(listingRepo, index, cfg.Server.Env)
	router.GET("/health", healthHandler.Health)
	router.GET("/health/ready", healthHandler.Ready)
	router.GET("/api/v1/info", healthHandler.Info)

	// Initialize handlers
	listingHandler := handlers.NewListingHandler(listingService)
	userHandler := handlers.NewUserHandler(userService)
	askHandler := handlers.NewAskHandler(pipeline)

	// Register routes
	router.POST("/ask", askHandler.Ask)

	api := router.Group("/api")
	{
		api.POST("/register", userHandler.Register)
		api.POST("/login", userHandler.Login)
		api.GET("/property/:id", listingHandler.Get)

		owner := api.Group("", middleware.RequireAuth(cfg.Auth.JWTSecret))
		{
			owner.POST("/upload-property", listingHandler.Upload)
			owner.PUT("/property/:id/status", listingHandler.UpdateStatus)
			owner.GET("/owner/properties", listingHandler.List)
		}
	}

	// Serve the bundled frontend when it ships alongside the binary.
	if info, err := os.Stat(webRoot); err == nil && info.IsDir() {
		router.Static("/app", webRoot)
		router.StaticFile("/", webRoot+"/index.html")
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server listening", map[string]interface{}{
			"port": cfg.Server.Port,
			"addr": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", err, nil)
		}
	}()

	// Wait for interrupt signal (SIGINT or SIGTERM)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Graceful shutdown
	log.Info("Shutting down server...", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", err, map[string]interface{}{
			"timeout": shutdownTimeout.String(),
		})
	}

	log.Info("Server exited", nil)
}
