package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// HTTP Configuration
	HTTP HTTPConfig

	// Backend API Configuration
	API APIConfig

	// Database Configuration
	Database DatabaseConfig

	// Session Configuration
	Session SessionConfig

	// Fleet data Configuration
	Fleet FleetConfig

	// Logging Configuration
	Logging LoggingConfig

	// Development backend Configuration
	DevAPI DevAPIConfig
}

// HTTPConfig holds dashboard server configuration
type HTTPConfig struct {
	Addr               string   `env:"HTTP_ADDR" envDefault:":8080"`
	PublicURL          string   `env:"PUBLIC_URL" envDefault:"http://localhost:8080"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`
	AuthRateLimit      int      `env:"AUTH_RATE_LIMIT" envDefault:"10"` // attempts per minute per client IP
}

// APIConfig holds the backend the transport adapter talks to
type APIConfig struct {
	BaseURL string        `env:"API_BASE_URL" envDefault:"http://localhost:3000/api"`
	Timeout time.Duration `env:"API_TIMEOUT" envDefault:"15s"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string `env:"DATABASE_URL" envDefault:"fleettrack.sqlite"`
}

// MinIdleTTL is the shortest SESSION_IDLE_TTL accepted. Visitor activity is
// written back at most this often, so a shorter TTL would sweep live visitors.
const MinIdleTTL = time.Minute

// SessionConfig holds visitor session configuration
type SessionConfig struct {
	CookieSecure  bool          `env:"COOKIE_SECURE" envDefault:"false"`
	IdleTTL       time.Duration `env:"SESSION_IDLE_TTL" envDefault:"24h"`
	SweepSchedule string        `env:"SESSION_SWEEP_SCHEDULE" envDefault:"*/10 * * * *"`
}

// FleetConfig selects where fleet records come from
type FleetConfig struct {
	Source      string `env:"FLEET_SOURCE" envDefault:"fixtures"` // fixtures, remote
	MapboxToken string `env:"MAPBOX_TOKEN"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"` // json, console
}

// DevAPIConfig holds configuration for the local stand-in backend
type DevAPIConfig struct {
	Addr        string        `env:"DEVAPI_ADDR" envDefault:":3000"`
	DatabaseURL string        `env:"DEVAPI_DATABASE_URL" envDefault:"fleettrack-devapi.sqlite"`
	JWTSecret   string        `env:"DEVAPI_JWT_SECRET" envDefault:"dev-secret-change-me"`
	TokenTTL    time.Duration `env:"DEVAPI_TOKEN_TTL" envDefault:"12h"`
	FakeDrivers int           `env:"DEVAPI_FAKE_DRIVERS" envDefault:"0"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Fleet.Source {
	case "fixtures", "remote":
	default:
		return fmt.Errorf("invalid FLEET_SOURCE %q, must be one of: fixtures, remote", c.Fleet.Source)
	}

	if c.API.BaseURL == "" {
		return fmt.Errorf("API_BASE_URL must not be empty")
	}

	if c.Session.IdleTTL < MinIdleTTL {
		return fmt.Errorf("SESSION_IDLE_TTL must be at least %s", MinIdleTTL)
	}

	return nil
}
