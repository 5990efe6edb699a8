// Package server
//
// @title Optivoo CRM API
// @version 1.0
// @description Accounts, sessions, onboarding and the contact book for Optivoo CRM
// @host localhost:8080
// @BasePath /
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/optivoo/crm/internal/assert"
	"github.com/optivoo/crm/internal/auth"
	"github.com/optivoo/crm/internal/config"
	"github.com/optivoo/crm/internal/httplog"
	"github.com/optivoo/crm/internal/database"
	"github.com/optivoo/crm/internal/models"
	"github.com/optivoo/crm/internal/tasks"
)

// Server represents the HTTP server
type Server struct {
	router      *gin.Engine
	db          *gorm.DB
	config      *config.Config
	logger      zerolog.Logger
	issuer      *auth.Issuer
	enqueuer    tasks.Enqueuer
	asynqClient *asynq.Client
	version     string
	now         func() time.Time
}

// New creates a new server instance
func New(cfg *config.Config, zlog zerolog.Logger, version string) (*Server, error) {
	db, err := database.Open(cfg.Database.URL, zlog)
	if err != nil {
		return nil, err
	}

	// Initialize Asynq client for enqueueing tasks
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr: cfg.Redis.Address,
	})

	s, err := newServer(cfg, db, asynqClient, zlog, version)
	if err != nil {
		return nil, err
	}
	s.asynqClient = asynqClient
	return s, nil
}

func newServer(cfg *config.Config, db *gorm.DB, enqueuer tasks.Enqueuer, zlog zerolog.Logger, version string) (*Server, error) {
	secret, err := loadJWTSecret(db, zlog)
	if err != nil {
		return nil, err
	}

	s := &Server{
		db:       db,
		config:   cfg,
		logger:   zlog,
		issuer:   auth.NewIssuer(secret),
		enqueuer: enqueuer,
		version:  version,
		now:      time.Now,
	}
	s.setupRouter()
	return s, nil
}

// loadJWTSecret returns the persisted signing secret, generating it on first start
func loadJWTSecret(db *gorm.DB, zlog zerolog.Logger) (string, error) {
	var cfg models.Config
	err := db.First(&cfg).Error
	if err == nil {
		zlog.Debug().Msg("Loaded JWT secret from database")
		return cfg.JWTSecret, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("failed to load config: %w", err)
	}

	// 64 hex characters = 32 bytes of randomness
	secret, err := auth.RandomHex(32)
	if err != nil {
		return "", err
	}
	assert.Length(secret, 64)

	if err := db.Create(&models.Config{JWTSecret: secret}).Error; err != nil {
		return "", fmt.Errorf("failed to persist JWT secret: %w", err)
	}
	zlog.Info().Msg("Generated JWT secret")
	return secret, nil
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()

	s.router.Use(gin.Recovery())
	s.router.Use(httplog.Middleware(s.logger))

	s.router.Use(cors.New(cors.Config{
		AllowOrigins:     s.config.API.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint (no auth required)
	s.router.GET("/health", s.healthCheck)

	// Public auth endpoints (no auth required)
	public := s.router.Group("/api/auth")
	{
		public.POST("/register", s.register)
		public.POST("/login", s.login)
		public.POST("/forgot-password", s.forgotPassword)
		public.POST("/reset-password", s.resetPassword)
	}

	// Authenticated API routes (JWT required)
	api := s.router.Group("/api")
	api.Use(JWTAuthMiddleware(s.db, s.issuer, s.logger))
	{
		api.GET("/auth/me", s.getCurrentUser)

		api.GET("/onboarding", s.getOnboarding)
		api.PUT("/onboarding", s.saveOnboarding)

		api.GET("/contacts", s.listContacts)
		api.POST("/contacts", s.createContact)
		api.GET("/contacts/:id", s.getContact)
		api.PATCH("/contacts/:id", s.updateContact)
		api.DELETE("/contacts/:id", s.deleteContact)
		api.GET("/contacts/:id/messages", s.listMessages)
		api.POST("/contacts/:id/messages", s.sendMessage)
		api.POST("/contacts/:id/messages/inbound", s.receiveMessage)
		api.POST("/contacts/:id/read", s.markAsRead)

		api.GET("/templates", s.listTemplates)
		api.POST("/sentiment/analyze", s.analyzeSentiment)
		api.GET("/dashboard/overview", s.overview)
	}
}

// @Router /health [get]
// @Success 200 {object} map[string]interface{}
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "online",
		"timestamp": s.now().UTC(),
		"service":   "optivoo-api",
		"version":   s.version,
	})
}

// enqueue submits a task; failures are logged and never fail the request
func (s *Server) enqueue(task *asynq.Task, err error) {
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to build task")
		return
	}
	info, err := s.enqueuer.Enqueue(task, asynq.MaxRetry(5), asynq.Timeout(time.Minute))
	if err != nil {
		s.logger.Error().Err(err).Str("task_type", task.Type()).Msg("Failed to enqueue task")
		return
	}
	s.logger.Debug().Str("task_type", task.Type()).Str("task_id", info.ID).Msg("Task enqueued")
}

// Start starts the HTTP server and blocks until SIGINT or SIGTERM
func (s *Server) Start() error {
	addr := s.config.API.Addr

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-sigChan:
		s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")
	case err := <-errChan:
		s.logger.Error().Err(err).Msg("HTTP server error")
		return err
	}

	if s.asynqClient != nil {
		if err := s.asynqClient.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("Error closing Asynq client")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}

	// Close database connection to flush WAL writes
	if err := database.Close(s.db); err != nil {
		s.logger.Error().Err(err).Msg("Error closing database")
	}

	s.logger.Info().Msg("Server shutdown complete")
	return nil
}
