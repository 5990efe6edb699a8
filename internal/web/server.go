// Package web serves the browser front end. Every request gets its own
// session manager over the cookie slot; the route guard runs before any page.
package web

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"github.com/rs/zerolog"

	"github.com/optivoo/crm/internal/auth"
	"github.com/optivoo/crm/internal/config"
	"github.com/optivoo/crm/internal/httplog"
	"github.com/optivoo/crm/internal/guard"
	"github.com/optivoo/crm/internal/session"
	"github.com/optivoo/crm/internal/slot"
)

// Server is the web front end
type Server struct {
	router  *gin.Engine
	config  config.WebConfig
	logger  zerolog.Logger
	backend Backend
	store   sessions.Store
	table   *guard.Table
	paths   session.Paths
}

// New creates the web front end over backend
func New(cfg config.WebConfig, backend Backend, zlog zerolog.Logger) (*Server, error) {
	secret := cfg.SessionSecret
	if secret == "" {
		generated, err := auth.RandomHex(32)
		if err != nil {
			return nil, fmt.Errorf("failed to generate session secret: %w", err)
		}
		secret = generated
		zlog.Warn().Msg("WEB_SESSION_SECRET not set, sessions will not survive a restart")
	}

	s := &Server{
		config:  cfg,
		logger:  zlog,
		backend: backend,
		store:   slot.NewCookieStore([]byte(secret), cfg.SecureCookies),
		table:   guard.DefaultTable(),
		paths:   session.DefaultPaths,
	}
	s.setupRouter()
	return s, nil
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()
	s.router.Use(gin.Recovery())
	s.router.Use(httplog.Middleware(s.logger))

	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "online", "service": "optivoo-web"})
	})

	pages := s.router.Group("/")
	pages.Use(s.sessionMiddleware(), s.guardMiddleware())
	{
		pages.GET("/", s.landingPage)

		pages.GET("/login", s.loginPage)
		pages.POST("/login", s.loginSubmit)
		pages.GET("/signup", s.signupPage)
		pages.POST("/signup", s.signupSubmit)
		pages.GET("/forgot-password", s.forgotPasswordPage)
		pages.POST("/forgot-password", s.forgotPasswordSubmit)
		pages.GET("/reset-password", s.resetPasswordPage)
		pages.POST("/reset-password", s.resetPasswordSubmit)
		pages.POST("/logout", s.logoutSubmit)

		pages.GET("/dashboard", s.overviewPage)
		pages.GET("/dashboard/contacts", s.contactsPage)
		pages.POST("/dashboard/contacts", s.contactsCreate)
		pages.POST("/dashboard/contacts/:id", s.contactsUpdate)
		pages.POST("/dashboard/contacts/:id/delete", s.contactsDelete)
		pages.GET("/dashboard/whatsapp", s.inboxPage)
		pages.GET("/dashboard/whatsapp/:id", s.conversationPage)
		pages.POST("/dashboard/whatsapp/:id", s.conversationSend)
		pages.GET("/dashboard/analytics", s.analyticsPage)
		pages.POST("/dashboard/analytics", s.analyticsSubmit)
		pages.GET("/dashboard/:section", s.sectionPage)

		pages.GET("/onboarding", s.onboardingIndex)
		pages.GET("/onboarding/:step", s.onboardingPage)
		pages.POST("/onboarding/:step", s.onboardingSubmit)
	}

	s.router.NoRoute(s.sessionMiddleware(), s.guardMiddleware(), func(c *gin.Context) {
		s.render(c, http.StatusNotFound, "not-found", nil)
	})
}

// Start starts the web server and blocks until SIGINT or SIGTERM
func (s *Server) Start() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.config.Addr).Str("backend", s.config.Backend).Msg("Starting web server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-sigChan:
		s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")
	case err := <-errChan:
		s.logger.Error().Err(err).Msg("Web server error")
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down web server")
		return err
	}

	s.logger.Info().Msg("Web server shutdown complete")
	return nil
}
