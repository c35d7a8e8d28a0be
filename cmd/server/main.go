package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"housing-assistant/internal/config"
	"housing-assistant/internal/handler"
	"housing-assistant/internal/logger"
	"housing-assistant/internal/repository"
	"housing-assistant/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("housing assistant starting", "version", Version, "build_time", BuildTime, "git_commit", GitCommit)

	// Set Gin mode
	gin.SetMode(cfg.Server.GinMode)

	ctx := context.Background()

	// Initialize database connection
	var repo *repository.PostgresRepository
	if cfg.UsePostgres() {
		repo, err = repository.NewPostgresRepository(
			cfg.GetPostgreSQLDSN(),
			cfg.PostgreSQL.MaxConnections,
			cfg.PostgreSQL.MaxIdleConnections,
			log,
		)
		if err != nil {
			log.Fatal("failed to connect to database", "error", err)
		}
		defer repo.Close()

		if err := repo.EnsureSchema(ctx); err != nil {
			log.Fatal("failed to prepare database schema", "error", err)
		}
		log.Info("connected to PostgreSQL", "host", cfg.PostgreSQL.Host, "database", cfg.PostgreSQL.Database)
	}

	// Load inventory
	var inventory *repository.Inventory
	switch cfg.Inventory.Source {
	case "postgres":
		inventory, err = repo.LoadListings(ctx)
	default:
		inventory, err = repository.LoadCSV(cfg.Inventory.CSVPath, log)
	}
	if err != nil {
		log.Fatal("failed to load inventory", "source", cfg.Inventory.Source, "error", err)
	}
	log.Info("inventory loaded", "source", cfg.Inventory.Source, "listings", inventory.Len())

	// Initialize session store
	var store service.SessionStore
	switch cfg.Session.Store {
	case "redis":
		redisStore, err := repository.NewRedisSessionStore(ctx, cfg.Session.RedisAddr, cfg.Session.RedisPassword, cfg.Session.RedisDB, cfg.Session.TTL)
		if err != nil {
			log.Fatal("failed to connect to redis", "addr", cfg.Session.RedisAddr, "error", err)
		}
		defer redisStore.Close()
		store = redisStore
		log.Info("using redis session store", "addr", cfg.Session.RedisAddr, "ttl", cfg.Session.TTL)
	default:
		store = repository.NewMemorySessionStore()
		log.Info("using in-memory session store")
	}

	// Initialize OpenAI client
	aiClient := service.NewOpenAIClient(&cfg.OpenAI, log.With("component", "openai"))
	if aiClient.IsEnabled() {
		log.Info("OpenAI client initialized",
			"api_base", cfg.OpenAI.APIBase,
			"chat_model", cfg.OpenAI.ChatModel,
			"moderation_model", cfg.OpenAI.ModerationModel,
			"max_retries", cfg.OpenAI.MaxRetries,
		)
	} else {
		log.Warn("OpenAI is disabled, conversations will fail until OPENAI_API_KEY is set")
	}

	// Initialize services
	var turnLog service.TurnLogger
	var feedbackRecorder handler.FeedbackRecorder
	if repo != nil {
		turnLog = repo
		feedbackRecorder = repo
	}

	conversation := service.NewConversation(
		aiClient,
		inventory,
		service.NewRanker(cfg.Matching.TopK),
		service.NewValidator(cfg.Matching.MinScore, cfg.Matching.MinBudget),
		store,
		turnLog,
		cfg.Matching.MinBudget,
		log.With("component", "conversation"),
	)

	// Initialize handlers
	chatHandler := handler.NewChatHandler(conversation)
	listingHandler := handler.NewListingHandler(inventory)
	feedbackHandler := handler.NewFeedbackHandler(conversation, feedbackRecorder, log)

	// Setup Gin router
	router := gin.New()
	router.Use(gin.Recovery(), log.GinMiddleware())

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Server.AllowedOrigins}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Authorization"}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":     "healthy",
			"service":    "housing-assistant",
			"listings":   inventory.Len(),
			"ai_enabled": aiClient.IsEnabled(),
			"version":    Version,
		})
	})

	// Version endpoint
	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})

	// API routes
	apiV1 := router.Group("/api/v1")
	{
		// Conversation endpoints
		apiV1.POST("/sessions", chatHandler.StartSession)
		apiV1.GET("/sessions/:id", chatHandler.GetSession)
		apiV1.DELETE("/sessions/:id", chatHandler.EndSession)
		apiV1.POST("/sessions/:id/messages", chatHandler.SendMessage)
		apiV1.POST("/sessions/:id/reset", chatHandler.ResetSession)

		// Listing endpoint
		apiV1.GET("/listings/:id", listingHandler.GetListing)

		// Feedback endpoint
		apiV1.POST("/feedback", feedbackHandler.Submit)
	}

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("failed to start server", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shut down", "error", err)
	}
	log.Info("server stopped")
}
