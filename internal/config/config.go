package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig
	Commerce  CommerceConfig
	Reconcile ReconcileConfig
	Persist   PersistConfig
	DB        DBConfig
	Log       LogConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port            string `envconfig:"SERVER_PORT" default:"3000"`
	ShutdownTimeout int    `envconfig:"SHUTDOWN_TIMEOUT" default:"30"` // seconds
}

// CommerceConfig holds the remote commerce API client configuration.
type CommerceConfig struct {
	BaseURL string `envconfig:"COMMERCE_BASE_URL" default:"http://localhost:8080/api"`
	Timeout int    `envconfig:"COMMERCE_TIMEOUT" default:"10"` // seconds
}

// ReconcileConfig holds coupon revalidation configuration.
type ReconcileConfig struct {
	DebounceMS int `envconfig:"RECONCILE_DEBOUNCE_MS" default:"500"`
}

// Window returns the debounce interval as a duration.
func (c ReconcileConfig) Window() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// PersistConfig selects the cart persistence backend.
// "memory" keeps the cart for the process lifetime only; "postgres"
// survives restarts and requires the DB section.
type PersistConfig struct {
	Backend string `envconfig:"PERSIST_BACKEND" default:"memory"`
}

// DBConfig holds database-related configuration, used when the postgres
// persistence backend is selected.
// WARNING: Default password is for local development only.
// In production, always set DB_PASSWORD via environment variable.
// In production, set DB_SSLMODE to "require" or "verify-full".
type DBConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"postgres"`
	Password string `envconfig:"DB_PASSWORD" default:"postgres"` // CHANGE IN PRODUCTION
	Name     string `envconfig:"DB_NAME" default:"cartsync_db"`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"` // Use "require" in production
	MaxConns int    `envconfig:"DB_MAX_CONNS" default:"25"`
	MinConns int    `envconfig:"DB_MIN_CONNS" default:"5"`
}

// DSN returns the PostgreSQL connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&pool_max_conns=%d&pool_min_conns=%d",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode, c.MaxConns, c.MinConns)
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Pretty bool   `envconfig:"LOG_PRETTY" default:"false"`
}

// Load parses environment variables into the Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
