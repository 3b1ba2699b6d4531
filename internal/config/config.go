package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Session backends.
const (
	SessionBackendMemory   = "memory"
	SessionBackendPostgres = "postgres"
)

// Config holds runtime configuration sourced from env vars.
type Config struct {
	Port                    string `mapstructure:"PORT"`
	DatabaseURL             string `mapstructure:"DATABASE_URL"`
	DBMaxConns              int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns              int32  `mapstructure:"DB_MIN_CONNS"`
	SessionSecret           string `mapstructure:"SESSION_SECRET"`
	SessionTTLMinutes       int    `mapstructure:"SESSION_TTL_MINUTES"`
	SessionBackend          string `mapstructure:"SESSION_BACKEND"`
	CookieSecure            bool   `mapstructure:"COOKIE_SECURE"`
	CORSAllowedOrigins      string `mapstructure:"CORS_ALLOWED_ORIGINS"`
	AppTimezone             string `mapstructure:"APP_TIMEZONE"`
	LogLevel                string `mapstructure:"LOG_LEVEL"`
	LogPretty               bool   `mapstructure:"LOG_PRETTY"`
	LoginRatePerMinute      int    `mapstructure:"LOGIN_RATE_PER_MINUTE"`
	AttachmentBucket        string `mapstructure:"ATTACHMENT_BUCKET"`
	AttachmentURLTTLMinutes int    `mapstructure:"ATTACHMENT_URL_TTL_MINUTES"`

	location *time.Location
}

var defaults = map[string]any{
	"PORT":                       "8080",
	"DATABASE_URL":               "",
	"DB_MAX_CONNS":               10,
	"DB_MIN_CONNS":               2,
	"SESSION_SECRET":             "",
	"SESSION_TTL_MINUTES":        480,
	"SESSION_BACKEND":            SessionBackendMemory,
	"COOKIE_SECURE":              false,
	"CORS_ALLOWED_ORIGINS":       "*",
	"APP_TIMEZONE":               "America/Sao_Paulo",
	"LOG_LEVEL":                  "info",
	"LOG_PRETTY":                 false,
	"LOGIN_RATE_PER_MINUTE":      10,
	"ATTACHMENT_BUCKET":          "",
	"ATTACHMENT_URL_TTL_MINUTES": 15,
}

// Load reads configuration from the environment and validates it. A local
// .env file should already have been applied by the caller.
func Load() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
		// Unmarshal only sees keys viper knows about.
		_ = v.BindEnv(key)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.DatabaseURL = strings.TrimSpace(cfg.DatabaseURL)
	cfg.SessionSecret = strings.TrimSpace(cfg.SessionSecret)
	cfg.SessionBackend = strings.ToLower(strings.TrimSpace(cfg.SessionBackend))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks required values and ranges, and resolves the time zone.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.SessionSecret == "" {
		return errors.New("SESSION_SECRET is required")
	}
	switch c.SessionBackend {
	case SessionBackendMemory, SessionBackendPostgres:
	default:
		return fmt.Errorf("SESSION_BACKEND must be %q or %q, got %q", SessionBackendMemory, SessionBackendPostgres, c.SessionBackend)
	}
	if c.SessionTTLMinutes <= 0 {
		return errors.New("SESSION_TTL_MINUTES must be positive")
	}
	if c.AttachmentURLTTLMinutes <= 0 {
		return errors.New("ATTACHMENT_URL_TTL_MINUTES must be positive")
	}
	if c.LoginRatePerMinute <= 0 {
		return errors.New("LOGIN_RATE_PER_MINUTE must be positive")
	}
	loc, err := time.LoadLocation(c.AppTimezone)
	if err != nil {
		return fmt.Errorf("APP_TIMEZONE: %w", err)
	}
	c.location = loc
	return nil
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

// SessionTTL is the lifetime of a login session.
func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

// AttachmentURLTTL is the lifetime of presigned attachment links.
func (c Config) AttachmentURLTTL() time.Duration {
	return time.Duration(c.AttachmentURLTTLMinutes) * time.Minute
}

// Location is the clinic's time zone used for calendar-day boundaries.
func (c Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// CORSOrigins splits the comma separated allow list.
func (c Config) CORSOrigins() []string {
	return parseCSV(c.CORSAllowedOrigins)
}

func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	var out []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
