// Package devapi is a local stand-in for the fleet backend. It speaks the
// same JSON endpoints the dashboard and CLI call, over SQLite.
package devapi

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/fleettrack-dev/fleettrack/internal/config"
	"github.com/fleettrack-dev/fleettrack/internal/database"
)

// Server represents the development backend
type Server struct {
	router       *gin.Engine
	db           *gorm.DB
	config       *config.Config
	tokens       *TokenIssuer
	logger       zerolog.Logger
	passwordCost int
	now          func() time.Time
}

// New migrates and seeds db and builds the router
func New(cfg *config.Config, db *gorm.DB, zlog zerolog.Logger) (*Server, error) {
	tokens, err := NewTokenIssuer(cfg.DevAPI.JWTSecret, cfg.DevAPI.TokenTTL)
	if err != nil {
		return nil, err
	}

	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	if err := Seed(db, time.Now(), cfg.DevAPI.FakeDrivers, zlog); err != nil {
		return nil, fmt.Errorf("failed to seed database: %w", err)
	}

	s := &Server{
		db:           db,
		config:       cfg,
		tokens:       tokens,
		logger:       zlog.With().Str("component", "devapi").Logger(),
		passwordCost: bcrypt.DefaultCost,
		now:          time.Now,
	}
	s.setupRouter()

	return s, nil
}

func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())

	if len(s.config.HTTP.CORSAllowedOrigins) > 0 {
		s.router.Use(cors.New(cors.Config{
			AllowOrigins:     s.config.HTTP.CORSAllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "online", "service": "fleettrack-devapi"})
	})

	api := s.router.Group("/api")
	{
		api.POST("/auth/login", s.login)
		api.POST("/auth/register", s.register)

		authed := api.Group("")
		authed.Use(s.bearerAuth())
		{
			authed.POST("/auth/logout", s.logout)
			authed.GET("/auth/me", s.me)
			authed.POST("/auth/refresh-token", s.refreshToken)

			authed.GET("/drivers", s.listDrivers)
			authed.POST("/drivers", s.createDriver)
			authed.GET("/trips", s.listTrips)
			authed.GET("/positions", s.listPositions)
			authed.GET("/dashboard", s.dashboard)
			authed.GET("/company", s.getCompany)
			authed.PUT("/company", s.updateCompany)
		}
	}
}

// loggingMiddleware creates a custom logging middleware using zerolog
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	}
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves on the configured address and blocks until SIGINT or SIGTERM
func (s *Server) Start() error {
	addr := s.config.DevAPI.Addr

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("Starting development backend")
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

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}

	if err := database.Close(s.db); err != nil {
		s.logger.Error().Err(err).Msg("Error closing database")
	}
	return nil
}
