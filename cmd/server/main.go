package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"couponagent/internal/agent"
	"couponagent/internal/catalog"
	"couponagent/internal/config"
	"couponagent/internal/handler"
	"couponagent/internal/logger"
	"couponagent/internal/repository"
	"couponagent/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
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
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog, err := logger.New(cfg.Logging, cfg.Agent.Debug)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zlog.Sync()

	zlog.Info("KFC Coupon Agent",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit))

	if err := cfg.Validate(); err != nil {
		zlog.Fatal("Invalid configuration", zap.Error(err))
	}

	// Set Gin mode
	gin.SetMode(cfg.Server.GinMode)

	gen, err := service.NewGenerator(cfg, zlog)
	if err != nil {
		zlog.Fatal("Failed to create generator", zap.Error(err))
	}

	// Load the coupon catalog
	source := catalog.NewSourceFromConfig(cfg, gen, zlog)
	bundles, err := source.Load(context.Background(), false, nil)
	if err != nil {
		zlog.Fatal("Failed to load coupons", zap.Error(err))
	}
	if len(bundles) == 0 {
		zlog.Fatal("Failed to load coupons", zap.Error(catalog.ErrEmptyCatalog))
	}
	zlog.Info("✅ Coupons loaded", zap.Int("count", len(bundles)))

	// Conversation log is optional
	var (
		convLog service.ConversationLog
		history handler.TurnHistory
	)
	if cfg.PostgreSQL.DSN != "" {
		repo, err := repository.NewPostgresRepository(
			cfg.PostgreSQL.DSN,
			cfg.PostgreSQL.MaxConnections,
			cfg.PostgreSQL.MaxIdleConnections,
		)
		if err != nil {
			zlog.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer repo.Close()

		if err := repo.EnsureSchema(context.Background()); err != nil {
			zlog.Fatal("Failed to prepare database", zap.Error(err))
		}
		convLog, history = repo, repo
		zlog.Info("✅ Connected to PostgreSQL database")
	} else {
		zlog.Warn("⚠️  DATABASE_URL not set, conversation log is disabled")
	}

	// Initialize services
	lexicon := agent.DefaultLexicon()
	extractor := agent.NewLLMExtractor(gen, lexicon, service.DefaultGenerateOptions(cfg), zlog)
	sessions := service.NewSessionManager(
		func() *agent.Controller {
			return agent.NewController(bundles, extractor,
				agent.WithLexicon(lexicon),
				agent.WithServingTolerance(cfg.Agent.PeopleTolerance),
				agent.WithLogger(zlog))
		},
		time.Duration(cfg.Session.IdleTTLMinutes)*time.Minute,
		time.Duration(cfg.Session.SweepSeconds)*time.Second,
		convLog,
		zlog,
	)
	defer sessions.Close()

	zlog.Info("✅ Services initialized")

	// Initialize handlers
	sessionHandler := handler.NewSessionHandler(sessions, history)
	catalogHandler := handler.NewCatalogHandler(bundles, agent.BuildVocabulary(bundles, lexicon))
	feedbackHandler := handler.NewFeedbackHandler(sessions)

	// Setup Gin router
	router := gin.New()
	router.Use(gin.Recovery())

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
			"service":    "kfc-coupon-agent",
			"provider":   gen.Name(),
			"coupons":    len(bundles),
			"sessions":   sessions.Len(),
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
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
		apiV1.POST("/sessions", sessionHandler.Create)
		apiV1.GET("/sessions/:id", sessionHandler.Get)
		apiV1.DELETE("/sessions/:id", sessionHandler.Delete)
		apiV1.POST("/sessions/:id/messages", sessionHandler.Message)
		apiV1.POST("/sessions/:id/reset", sessionHandler.Reset)
		apiV1.GET("/sessions/:id/history", sessionHandler.History)

		// Catalog endpoints
		apiV1.GET("/menu", catalogHandler.Menu)
		apiV1.GET("/bundles", catalogHandler.Bundles)

		// Feedback endpoint
		apiV1.POST("/feedback", feedbackHandler.Submit)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "API endpoint not found"})
	})

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	zlog.Info("🚀 Starting server", zap.String("addr", addr))

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zlog.Error("Server forced to shut down", zap.Error(err))
	}

	zlog.Info("✅ Server stopped")
}
