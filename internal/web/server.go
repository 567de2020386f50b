// Package web serves the FleetTrack dashboard. The browser only ever holds an
// HTTP-only visitor cookie; the bearer token stays in the visitor's session
// store on this side.
package web

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/fleettrack-dev/fleettrack/internal/config"
	"github.com/fleettrack-dev/fleettrack/internal/database"
	"github.com/fleettrack-dev/fleettrack/internal/fleet"
	"github.com/fleettrack-dev/fleettrack/internal/forms"
	"github.com/fleettrack-dev/fleettrack/internal/guard"
	"github.com/fleettrack-dev/fleettrack/internal/metrics"
	"github.com/fleettrack-dev/fleettrack/internal/models"
	"github.com/fleettrack-dev/fleettrack/internal/registration"
	"github.com/fleettrack-dev/fleettrack/internal/session"
	"github.com/fleettrack-dev/fleettrack/internal/storage"
	"github.com/fleettrack-dev/fleettrack/internal/transport"
)

//go:embed static
var staticFS embed.FS

// Server represents the dashboard HTTP server
type Server struct {
	router    *gin.Engine
	db        *gorm.DB
	config    *config.Config
	logger    zerolog.Logger
	validator *forms.Validator
	registry  *Registry
	limiter   *RateLimiter
	metrics   *metrics.Collector
	gatherer  prometheus.Gatherer
	fixtures  fleet.Source
	version   string
}

// New creates a new server instance. The database must already be open; the
// server migrates it and closes it on shutdown.
func New(cfg *config.Config, db *gorm.DB, zlog zerolog.Logger, version string) (*Server, error) {
	// Run database migrations
	if err := models.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := &Server{
		db:        db,
		config:    cfg,
		logger:    zlog,
		validator: forms.New(),
		limiter:   NewRateLimiter(cfg.HTTP.AuthRateLimit, 10*time.Minute),
		metrics:   metrics.NewCollector(reg),
		gatherer:  reg,
		version:   version,
	}

	// Fixture data is shared by every visitor, like a single backend would be
	if cfg.Fleet.Source == "fixtures" {
		src, err := fleet.NewFixtureSource()
		if err != nil {
			return nil, fmt.Errorf("failed to load fleet fixtures: %w", err)
		}
		s.fixtures = src
	}

	s.registry = NewRegistry(db, s.newVisitor, s.metrics, zlog)

	if err := s.setupRouter(); err != nil {
		return nil, err
	}

	return s, nil
}

// newVisitor wires one visitor: its own transport client, a session store over
// the visitor's storage namespace, and the store as the client's token source
func (s *Server) newVisitor(id string, st storage.Storage) *Visitor {
	api := transport.New(s.config.API.BaseURL, transport.WithTimeout(s.config.API.Timeout))
	store := session.New(api, st, s.logger.With().Str("visitor_id", id).Logger())
	api.SetTokenSource(store)

	src := s.fixtures
	if src == nil {
		src = fleet.NewRemoteSource(api)
	}

	v := &Visitor{
		ID:     id,
		Store:  store,
		API:    api,
		Fleet:  src,
		Wizard: registration.New(s.validator),
	}
	v.mapboxToken = s.config.Fleet.MapboxToken
	return v
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter() error {
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()

	renderer, err := newHTMLRenderer(time.Now)
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}
	s.router.HTMLRender = renderer

	// Add middleware
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())

	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		return err
	}
	s.router.StaticFS("/static", http.FS(static))

	// Health check and metrics (no visitor)
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(metrics.Handler(s.gatherer)))

	pages := s.router.Group("/")
	pages.Use(s.visitorMiddleware())

	lookup := func(c *gin.Context) guard.RouteContext {
		return guard.RouteContext{Auth: visitorFrom(c).Store}
	}
	authLimit := s.limiter.Middleware(s.rateLimited)

	// Public-only pages
	public := pages.Group("")
	public.Use(guard.Middleware(guard.PublicOnly, lookup, s.metrics, s.logger))
	{
		public.GET("/", s.landing)
		public.GET(guard.SignInPath, s.signInPage)
		public.POST(guard.SignInPath, authLimit, s.signIn)
		public.GET(guard.SignUpPath, s.signUpPage)
		public.POST(guard.SignUpPath, authLimit, s.signUp)
	}

	pages.POST("/sign-out", s.signOut)

	// Protected pages
	app := pages.Group("")
	app.Use(guard.Middleware(guard.Protected, lookup, s.metrics, s.logger))
	{
		app.GET(guard.DashboardPath, s.dashboard)
		app.GET("/drivers", s.listDrivers)
		app.GET("/drivers/new", s.driverWizard)
		app.POST("/drivers/new", s.driverWizardStep)
		app.GET("/trips", s.listTrips)
		app.GET("/maps", s.maps)
		app.POST("/maps/token", s.setMapToken)
		app.GET("/settings", s.settingsIndex)
		app.GET("/settings/profile/:userId", s.settingsProfile)
		app.POST("/settings/profile/:userId", s.saveSettingsProfile)
	}

	// JSON API for scripts running in the dashboard origin
	api := s.router.Group("/api")
	if len(s.config.HTTP.CORSAllowedOrigins) > 0 {
		api.Use(cors.New(cors.Config{
			AllowOrigins:     s.config.HTTP.CORSAllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	api.Use(s.visitorMiddleware())
	{
		api.GET("/session", s.getSession)
		api.POST("/session/refresh", s.refreshSession)
	}

	return nil
}

// loggingMiddleware creates a custom logging middleware using zerolog
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		s.metrics.ObserveRequest(c.Request.Method, route, c.Writer.Status(), duration)

		s.logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "online",
		"timestamp": time.Now().UTC(),
		"service":   "fleettrack-dashboard",
		"version":   s.version,
	})
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Registry returns the visitor registry
func (s *Server) Registry() *Registry {
	return s.registry
}

// Sweep releases idle visitors and forgets idle rate-limit entries. The sweep
// scheduler calls it.
func (s *Server) Sweep(ctx context.Context) (int, error) {
	n, err := s.registry.Sweep(ctx, s.config.Session.IdleTTL)
	if dropped := s.limiter.Cleanup(); dropped > 0 {
		s.logger.Debug().Int("clients", dropped).Msg("Dropped idle rate-limit entries")
	}
	return n, err
}

// Start starts the HTTP server and blocks until SIGINT or SIGTERM
func (s *Server) Start() error {
	addr := s.config.HTTP.Addr

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		s.logger.Info().Str("addr", addr).Str("public_url", s.config.HTTP.PublicURL).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	// Wait for shutdown signal
	select {
	case <-sigChan:
		s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")
	case err := <-errChan:
		s.logger.Error().Err(err).Msg("HTTP server error")
		return err
	}

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	s.logger.Info().Msg("Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}

	s.logger.Info().Msg("Server shutdown complete")

	// Close database connection to flush WAL writes
	s.logger.Info().Msg("Closing database connection...")
	if err := database.Close(s.db); err != nil {
		s.logger.Error().Err(err).Msg("Error closing database")
	} else {
		s.logger.Info().Msg("Database closed successfully")
	}

	return nil
}
