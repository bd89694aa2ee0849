package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the DealScope server.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Queue     QueueConfig
	LLM       LLMConfig
	Scheduler SchedulerConfig
}

type ServerConfig struct {
	Port            int
	Env             string
	RateLimitPerMin int
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

type QueueConfig struct {
	LockTTL            time.Duration
	StuckAfter         time.Duration
	CompletedRetention time.Duration
}

type LLMConfig struct {
	Provider        string
	Timeout         time.Duration
	DealCostCap     float64
	MinuteCostCap   float64
	RateLimitPerMin int
	CacheTTL        time.Duration
	OpenAI          OpenAIConfig
	Perplexity      PerplexityConfig
}

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
}

type PerplexityConfig struct {
	APIKey  string
	BaseURL string
}

type SchedulerConfig struct {
	Enabled          bool
	DispatchInterval time.Duration
	CleanupInterval  time.Duration
}

var validProviders = map[string]bool{
	"openai":     true,
	"perplexity": true,
	"mock":       true,
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            envInt("DEALSCOPE_PORT", 8080),
			Env:             envString("DEALSCOPE_ENV", "development"),
			RateLimitPerMin: envInt("API_RATE_LIMIT_PER_MIN", 120),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Queue: QueueConfig{
			LockTTL:            envDuration("QUEUE_LOCK_TTL", 5*time.Minute),
			StuckAfter:         envDuration("QUEUE_STUCK_AFTER", 15*time.Minute),
			CompletedRetention: envDuration("QUEUE_COMPLETED_RETENTION", 24*time.Hour),
		},
		LLM: LLMConfig{
			Provider:        os.Getenv("LLM_PROVIDER"),
			Timeout:         envDuration("LLM_TIMEOUT", 60*time.Second),
			DealCostCap:     envFloat("LLM_DEAL_COST_CAP", 50.0),
			MinuteCostCap:   envFloat("LLM_MINUTE_COST_CAP", 10.0),
			RateLimitPerMin: envInt("LLM_RATE_LIMIT_PER_MIN", 60),
			CacheTTL:        envDuration("LLM_CACHE_TTL", 24*time.Hour),
			OpenAI: OpenAIConfig{
				APIKey:  os.Getenv("OPENAI_API_KEY"),
				BaseURL: envString("OPENAI_BASE_URL", "https://api.openai.com"),
			},
			Perplexity: PerplexityConfig{
				APIKey:  os.Getenv("PERPLEXITY_API_KEY"),
				BaseURL: envString("PERPLEXITY_BASE_URL", "https://api.perplexity.ai"),
			},
		},
		Scheduler: SchedulerConfig{
			Enabled:          envBool("SCHEDULER_ENABLED", true),
			DispatchInterval: envDuration("QUEUE_DISPATCH_INTERVAL", 30*time.Second),
			CleanupInterval:  envDuration("QUEUE_CLEANUP_INTERVAL", 5*time.Minute),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.LLM.Provider == "" {
		return fmt.Errorf("LLM_PROVIDER is required")
	}
	if !validProviders[c.LLM.Provider] {
		return fmt.Errorf("LLM_PROVIDER must be one of openai, perplexity, mock; got %q", c.LLM.Provider)
	}

	if c.LLM.Provider == "openai" && c.LLM.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required when LLM_PROVIDER is openai")
	}
	if c.LLM.Provider == "perplexity" && c.LLM.Perplexity.APIKey == "" {
		return fmt.Errorf("PERPLEXITY_API_KEY is required when LLM_PROVIDER is perplexity")
	}

	if c.LLM.DealCostCap <= 0 {
		return fmt.Errorf("LLM_DEAL_COST_CAP must be positive, got %v", c.LLM.DealCostCap)
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func envBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
