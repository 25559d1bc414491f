package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix("")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Optionally read from config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/medextract")

	// Ignore error if config file not found
	_ = v.ReadInConfig()

	var cfg Config

	// Server
	cfg.Server.Host = v.GetString("server_host")
	cfg.Server.Port = v.GetInt("server_port")
	cfg.Server.Env = v.GetString("server_env")
	cfg.Server.CORSOrigins = v.GetStringSlice("server_cors_origins")
	cfg.Server.RateLimitPerMinute = v.GetInt("server_rate_limit_per_minute")

	// PostgreSQL
	cfg.Postgres.Host = v.GetString("postgres_host")
	cfg.Postgres.Port = v.GetInt("postgres_port")
	cfg.Postgres.User = v.GetString("postgres_user")
	cfg.Postgres.Password = v.GetString("postgres_password")
	cfg.Postgres.Database = v.GetString("postgres_db")
	cfg.Postgres.SSLMode = v.GetString("postgres_ssl_mode")
	cfg.Postgres.MaxConns = int32(v.GetInt("postgres_max_conns"))
	cfg.Postgres.MinConns = int32(v.GetInt("postgres_min_conns"))

	// Redis
	cfg.Redis.Host = v.GetString("redis_host")
	cfg.Redis.Port = v.GetInt("redis_port")
	cfg.Redis.Password = v.GetString("redis_password")
	cfg.Redis.DB = v.GetInt("redis_db")

	// LLM provider
	cfg.LLM.Provider = v.GetString("llm_provider")
	cfg.LLM.Model = v.GetString("llm_model")
	cfg.LLM.APIKey = v.GetString("llm_api_key")
	cfg.LLM.BaseURL = v.GetString("llm_base_url")
	cfg.LLM.TimeoutMs = v.GetInt("llm_timeout_ms")
	cfg.LLM.Timeout = time.Duration(cfg.LLM.TimeoutMs) * time.Millisecond
	cfg.LLM.MaxTokens = v.GetInt("llm_max_tokens")

	// Code lookup
	cfg.Lookup.ICD10BaseURL = v.GetString("lookup_icd10_base_url")
	cfg.Lookup.RxNormBaseURL = v.GetString("lookup_rxnorm_base_url")
	cfg.Lookup.TimeoutMs = v.GetInt("lookup_timeout_ms")
	cfg.Lookup.Timeout = time.Duration(cfg.Lookup.TimeoutMs) * time.Millisecond
	cfg.Lookup.MaxCandidates = v.GetInt("lookup_max_candidates")

	// Lookup cache
	cfg.Cache.Enabled = v.GetBool("lookup_cache_enabled")
	cfg.Cache.TTLMin = v.GetInt("lookup_cache_ttl_minutes")
	cfg.Cache.TTL = time.Duration(cfg.Cache.TTLMin) * time.Minute

	// Worker
	cfg.Worker.Concurrency = v.GetInt("worker_concurrency")
	cfg.Worker.QueueCritical = v.GetString("worker_queue_critical")
	cfg.Worker.QueueDefault = v.GetString("worker_queue_default")
	cfg.Worker.QueueLow = v.GetString("worker_queue_low")

	// Logging
	cfg.Log.Level = v.GetString("log_level")
	cfg.Log.Format = v.GetString("log_format")

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server_host", "0.0.0.0")
	v.SetDefault("server_port", 8080)
	v.SetDefault("server_env", "development")
	v.SetDefault("server_cors_origins", []string{"*"})
	v.SetDefault("server_rate_limit_per_minute", 120)

	// PostgreSQL defaults
	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "medextract")
	v.SetDefault("postgres_password", "medextract")
	v.SetDefault("postgres_db", "medextract")
	v.SetDefault("postgres_ssl_mode", "disable")
	v.SetDefault("postgres_max_conns", 25)
	v.SetDefault("postgres_min_conns", 5)

	// Redis defaults
	v.SetDefault("redis_host", "localhost")
	v.SetDefault("redis_port", 6379)
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)

	// LLM defaults
	v.SetDefault("llm_provider", "openai")
	v.SetDefault("llm_model", "gpt-4o-mini")
	v.SetDefault("llm_api_key", "")
	v.SetDefault("llm_base_url", "")
	v.SetDefault("llm_timeout_ms", 60000)
	v.SetDefault("llm_max_tokens", 4096)

	// Lookup defaults: NIH ClinicalTables and RxNav public endpoints
	v.SetDefault("lookup_icd10_base_url", "https://clinicaltables.nlm.nih.gov/api/icd10cm/v3")
	v.SetDefault("lookup_rxnorm_base_url", "https://rxnav.nlm.nih.gov/REST")
	v.SetDefault("lookup_timeout_ms", 10000)
	v.SetDefault("lookup_max_candidates", 5)

	// Lookup cache defaults
	v.SetDefault("lookup_cache_enabled", true)
	v.SetDefault("lookup_cache_ttl_minutes", 1440)

	// Worker defaults
	v.SetDefault("worker_concurrency", 10)
	v.SetDefault("worker_queue_critical", "critical")
	v.SetDefault("worker_queue_default", "default")
	v.SetDefault("worker_queue_low", "low")

	// Logging defaults
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
}

func validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}
	switch cfg.LLM.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("unsupported llm provider: %q", cfg.LLM.Provider)
	}
	if cfg.Lookup.MaxCandidates <= 0 {
		return fmt.Errorf("lookup_max_candidates must be positive, got %d", cfg.Lookup.MaxCandidates)
	}
	if cfg.Lookup.Timeout <= 0 {
		return fmt.Errorf("lookup_timeout_ms must be positive, got %d", cfg.Lookup.TimeoutMs)
	}
	return nil
}
