package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Storage backends
const (
	StorageMemory    = "memory"
	StorageRedis     = "redis"
	StorageSQLite    = "sqlite"
	StorageFirestore = "firestore"
	StoragePostgres  = "postgres"
)

// Config holds all configuration values for the application
type Config struct {
	Port        string `env:"PORT" envDefault:"5173"`
	Environment string `env:"ENVIRONMENT" envDefault:"production"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"json"`

	// Project API the session authenticates against
	APIBaseURL string        `env:"API_BASE_URL"`
	APITimeout time.Duration `env:"API_TIMEOUT" envDefault:"30s"`

	// Identity provider authorization endpoint
	AuthURL     string `env:"OAUTH_AUTH_URL"`
	ClientID    string `env:"OAUTH_CLIENT_ID"`
	RedirectURI string `env:"OAUTH_REDIRECT_URI"`
	Scopes      string `env:"OAUTH_SCOPES" envDefault:"openid email"`
	Language    string `env:"OAUTH_LANGUAGE" envDefault:"en"`

	LoginPath    string `env:"LOGIN_PATH" envDefault:"/login"`
	CallbackPath string `env:"CALLBACK_PATH" envDefault:"/callback"`
	LandingPath  string `env:"LANDING_PATH" envDefault:"/dashboard"`

	// Browser origins allowed to read /api/session
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	// Per-client budget for login start and callback requests
	LoginRateLimit  int           `env:"LOGIN_RATE_LIMIT" envDefault:"20"`
	LoginRateWindow time.Duration `env:"LOGIN_RATE_WINDOW" envDefault:"1m"`

	StorageBackend      string `env:"STORAGE_BACKEND" envDefault:"memory"`
	RedisURL            string `env:"REDIS_URL"`
	SQLitePath          string `env:"SQLITE_PATH" envDefault:"fe-v2.db"`
	DatabaseURL         string `env:"DATABASE_URL"`
	FirestoreProjectID  string `env:"FIRESTORE_PROJECT_ID"`
	FirestoreDatabase   string `env:"FIRESTORE_DATABASE"`
	FirestoreCollection string `env:"FIRESTORE_COLLECTION" envDefault:"fe_v2_session"`
	FirestoreCredsFile  string `env:"FIRESTORE_CREDENTIALS_FILE"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// ScopeList splits the configured scopes on spaces and commas
func (c *Config) ScopeList() []string {
	return strings.FieldsFunc(c.Scopes, func(r rune) bool {
		return r == ' ' || r == ','
	})
}

// Validate checks the settings the session core cannot run without
func (c *Config) Validate() error {
	var missing []string
	if c.APIBaseURL == "" {
		missing = append(missing, "API_BASE_URL")
	}
	if c.AuthURL == "" {
		missing = append(missing, "OAUTH_AUTH_URL")
	}
	if c.ClientID == "" {
		missing = append(missing, "OAUTH_CLIENT_ID")
	}
	if c.RedirectURI == "" {
		missing = append(missing, "OAUTH_REDIRECT_URI")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}

	for name, raw := range map[string]string{
		"API_BASE_URL":       c.APIBaseURL,
		"OAUTH_AUTH_URL":     c.AuthURL,
		"OAUTH_REDIRECT_URI": c.RedirectURI,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s must be an absolute URL, got %q", name, raw)
		}
	}

	switch c.StorageBackend {
	case StorageMemory, StorageSQLite:
	case StorageRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for the redis storage backend")
		}
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres storage backend")
		}
	case StorageFirestore:
		if c.FirestoreProjectID == "" {
			return fmt.Errorf("FIRESTORE_PROJECT_ID is required for the firestore storage backend")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}

	for name, p := range map[string]string{
		"LOGIN_PATH":    c.LoginPath,
		"CALLBACK_PATH": c.CallbackPath,
		"LANDING_PATH":  c.LandingPath,
	} {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("%s must start with '/', got %q", name, p)
		}
	}
	return nil
}
