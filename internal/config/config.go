package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig
	DB        DBConfig
	Redis     RedisConfig
	Sale      SaleConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port            string `envconfig:"SERVER_PORT" default:"3000"`
	ShutdownTimeout int    `envconfig:"SHUTDOWN_TIMEOUT" default:"30"` // seconds
}

// DBConfig holds configuration for the durable order log (PostgreSQL).
// WARNING: Default password is for local development only.
// In production, always set DB_PASSWORD via environment variable.
// In production, set DB_SSLMODE to "require" or "verify-full".
type DBConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"postgres"`
	Password string `envconfig:"DB_PASSWORD" default:"postgres"` // CHANGE IN PRODUCTION
	Name     string `envconfig:"DB_NAME" default:"flashsale_db"`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"` // Use "require" in production
	MaxConns int    `envconfig:"DB_MAX_CONNS" default:"20"`
	MinConns int    `envconfig:"DB_MIN_CONNS" default:"5"`
}

// DSN returns the PostgreSQL connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&pool_max_conns=%d&pool_min_conns=%d",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode, c.MaxConns, c.MinConns)
}

// RedisConfig holds configuration for the fast coordinator (Redis).
// StockPrefix and MarkPrefix control the key layout:
// "<stock_prefix><sale_id>" and "<mark_prefix><sale_id>:<user_id>".
type RedisConfig struct {
	Host        string `envconfig:"REDIS_HOST" default:"localhost"`
	Port        int    `envconfig:"REDIS_PORT" default:"6379"`
	Password    string `envconfig:"REDIS_PASSWORD" default:""`
	DB          int    `envconfig:"REDIS_DB" default:"0"`
	StockPrefix string `envconfig:"REDIS_STOCK_PREFIX" default:"stock:"`
	MarkPrefix  string `envconfig:"REDIS_MARK_PREFIX" default:"user:"`
	MarkTTL     int    `envconfig:"REDIS_MARK_TTL_HOURS" default:"24"` // hours
}

// Addr returns the Redis host:port address.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// MarkTTLDuration returns the user-mark expiry as a duration.
// Should comfortably exceed the sale window.
func (c RedisConfig) MarkTTLDuration() time.Duration {
	return time.Duration(c.MarkTTL) * time.Hour
}

// SaleConfig holds the default sale the server bootstraps and serves when a
// request does not name one.
type SaleConfig struct {
	DefaultID string `envconfig:"SALE_DEFAULT_ID" default:"flash-sale-1"`
}

// RateLimitConfig holds the request rate limit applied at the HTTP layer.
// The defaults are deliberately permissive: admission correctness never
// depends on rate limiting.
type RateLimitConfig struct {
	Max           int `envconfig:"RATE_LIMIT_MAX" default:"100000"`
	WindowSeconds int `envconfig:"RATE_LIMIT_WINDOW" default:"60"`
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
