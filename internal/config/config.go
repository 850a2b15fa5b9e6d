package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Distance estimator modes
const (
	DistanceRandom = "random"
	DistanceFixed  = "fixed"
	DistanceGeo    = "geo"
)

// Config holds everything the service reads from the environment
type Config struct {
	Port     string `env:"PORT" envDefault:"8000"`
	GinMode  string `env:"GIN_MODE"`
	AppEnv   string `env:"APP_ENV"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	DatabaseURL string `env:"DATABASE_URL"`
	DataPath    string `env:"DATA_PATH" envDefault:"maintenance.db"`

	JWTSecret       string `env:"JWT_SECRET"`
	APIMasterSecret string `env:"API_MASTER_SECRET"`
	AdminEmail      string `env:"ADMIN_EMAIL" envDefault:"admin@example.com"`
	AdminPassword   string `env:"ADMIN_PASSWORD" envDefault:"admin123"`

	Dispatch DispatchConfig
	SMTP     SMTPConfig
}

// DispatchConfig tunes the technician scorer
type DispatchConfig struct {
	// MaxUrgency is the top of the urgency scale requests are validated and normalized against.
	MaxUrgency    int     `env:"DISPATCH_MAX_URGENCY" envDefault:"3"`
	TieEpsilon    float64 `env:"DISPATCH_TIE_EPSILON" envDefault:"1e-9"`
	MaxAttempts   int     `env:"DISPATCH_MAX_ATTEMPTS" envDefault:"3"`
	Distance      string  `env:"DISPATCH_DISTANCE" envDefault:"random"`
	FixedDistance float64 `env:"DISPATCH_FIXED_DISTANCE" envDefault:"0.5"`
	GeoRadiusKm   float64 `env:"DISPATCH_GEO_RADIUS_KM" envDefault:"25"`
}

// SMTPConfig configures outgoing mail. An empty Host disables delivery.
type SMTPConfig struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT" envDefault:"587"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM" envDefault:"no-reply@example.com"`
}

// LoadDotEnv loads the first .env found in the working directory or its parents
func LoadDotEnv() {
	for _, p := range []string{".env", "../.env", "../../.env"} {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(filepath.Clean(p))
			return
		}
	}
}

// Load reads .env (if any) and the process environment
func Load() (*Config, error) {
	LoadDotEnv()
	return Parse()
}

// Parse reads the process environment only
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	return c.Dispatch.Validate()
}

// Validate checks value ranges
func (c DispatchConfig) Validate() error {
	if c.MaxUrgency < 1 {
		return fmt.Errorf("DISPATCH_MAX_URGENCY must be at least 1, got %d", c.MaxUrgency)
	}
	if c.TieEpsilon < 0 {
		return fmt.Errorf("DISPATCH_TIE_EPSILON must not be negative")
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("DISPATCH_MAX_ATTEMPTS must be at least 1, got %d", c.MaxAttempts)
	}
	switch c.Distance {
	case DistanceRandom, DistanceGeo:
	case DistanceFixed:
		if c.FixedDistance < 0 || c.FixedDistance > 1 {
			return fmt.Errorf("DISPATCH_FIXED_DISTANCE must be within [0,1]")
		}
	default:
		return fmt.Errorf("unknown DISPATCH_DISTANCE %q", c.Distance)
	}
	if c.Distance == DistanceGeo && c.GeoRadiusKm <= 0 {
		return fmt.Errorf("DISPATCH_GEO_RADIUS_KM must be positive")
	}
	return nil
}
