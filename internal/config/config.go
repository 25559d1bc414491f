package config

import (
	"fmt"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	LLM      LLMConfig
	Lookup   LookupConfig
	Cache    CacheConfig
	Worker   WorkerConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Env  string `mapstructure:"env"`

	CORSOrigins []string `mapstructure:"cors_origins"`
	// RateLimitPerMinute caps requests per client IP; zero disables limiting.
	RateLimitPerMinute int `mapstructure:"rate_limit_per_minute"`
}

// PostgresConfig holds PostgreSQL configuration
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// DSN returns the PostgreSQL connection string
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LLMConfig holds text-generation provider configuration.
// Provider selects the backend. There is no process-wide provider state;
// this struct is passed explicitly into the extraction tool's factory.
type LLMConfig struct {
	Provider  string        `mapstructure:"provider"` // "openai" or "anthropic"
	Model     string        `mapstructure:"model"`
	APIKey    string        `mapstructure:"api_key"`
	BaseURL   string        `mapstructure:"base_url"` // override for self-hosted gateways
	TimeoutMs int           `mapstructure:"timeout_ms"`
	Timeout   time.Duration `mapstructure:"-"`
	MaxTokens int           `mapstructure:"max_tokens"`
}

// LookupConfig holds reference-code lookup configuration for the NIH
// terminology services.
type LookupConfig struct {
	ICD10BaseURL  string        `mapstructure:"icd10_base_url"`
	RxNormBaseURL string        `mapstructure:"rxnorm_base_url"`
	TimeoutMs     int           `mapstructure:"timeout_ms"`
	Timeout       time.Duration `mapstructure:"-"`
	MaxCandidates int           `mapstructure:"max_candidates"`
	BreakerName   string        `mapstructure:"-"`
}

// CacheConfig holds lookup-cache configuration
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTLMin  int           `mapstructure:"ttl_minutes"`
	TTL     time.Duration `mapstructure:"-"`
}

// WorkerConfig holds background worker configuration
type WorkerConfig struct {
	Concurrency   int    `mapstructure:"concurrency"`
	QueueCritical string `mapstructure:"queue_critical"`
	QueueDefault  string `mapstructure:"queue_default"`
	QueueLow      string `mapstructure:"queue_low"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// IsDevelopment returns true if running in development mode
func (c Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode
func (c Config) IsProduction() bool {
	return c.Server.Env == "production"
}
