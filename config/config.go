// Package config provides configuration management for the application.
// Values come from environment variables, optionally seeded from a .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Defaults applied when the environment leaves a knob unset.
const (
	DefaultPort          = "8080"
	DefaultCacheTTL      = 5 * time.Minute
	DefaultRetentionDays = 90
	DefaultRetryAttempts = 3
	DefaultRetryDelay    = time.Second
)

// Config holds the application configuration
type Config struct {
	Server    ServerConfig
	Cache     CacheConfig
	Mongo     MongoConfig
	Retry     RetryConfig
	Providers ProvidersConfig

	// PricingOverridesPath points at an optional YAML price-override file.
	PricingOverridesPath string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string
	MasterKey       string
	MetricsEnabled  bool
	MetricsEndpoint string
}

// CacheConfig selects the result cache backend. An empty RedisURL means the
// in-memory cache.
type CacheConfig struct {
	TTL      time.Duration
	RedisURL string
}

// MongoConfig holds the report ledger connection. An empty URI disables the
// ledger entirely.
type MongoConfig struct {
	URI           string
	Database      string
	RetentionDays int
}

// RetryConfig holds the upstream retry knobs.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// ProviderConfig holds one provider's credential and optional endpoint
// override. A provider with no APIKey is not constructed.
type ProviderConfig struct {
	APIKey  string
	BaseURL string
}

// ProvidersConfig holds per-provider settings.
type ProvidersConfig struct {
	OpenAI     ProviderConfig
	Anthropic  ProviderConfig
	ElevenLabs ProviderConfig
	Deepgram   ProviderConfig
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", DefaultPort),
			MasterKey:       os.Getenv("COSTWATCH_MASTER_KEY"),
			MetricsEnabled:  getEnvBool("METRICS_ENABLED", true),
			MetricsEndpoint: getEnv("METRICS_ENDPOINT", "/metrics"),
		},
		Cache: CacheConfig{
			TTL:      getEnvDuration("CACHE_TTL", DefaultCacheTTL),
			RedisURL: os.Getenv("REDIS_URL"),
		},
		Mongo: MongoConfig{
			URI:           os.Getenv("MONGO_URI"),
			Database:      getEnv("MONGO_DATABASE", "costwatch"),
			RetentionDays: getEnvInt("REPORT_RETENTION_DAYS", DefaultRetentionDays),
		},
		Retry: RetryConfig{
			MaxAttempts: getEnvInt("RETRY_MAX_ATTEMPTS", DefaultRetryAttempts),
			BaseDelay:   getEnvDuration("RETRY_BASE_DELAY", DefaultRetryDelay),
		},
		Providers: ProvidersConfig{
			OpenAI: ProviderConfig{
				APIKey:  os.Getenv("OPENAI_ADMIN_KEY"),
				BaseURL: os.Getenv("OPENAI_BASE_URL"),
			},
			Anthropic: ProviderConfig{
				APIKey:  os.Getenv("ANTHROPIC_ADMIN_KEY"),
				BaseURL: os.Getenv("ANTHROPIC_BASE_URL"),
			},
			ElevenLabs: ProviderConfig{
				APIKey:  os.Getenv("ELEVENLABS_API_KEY"),
				BaseURL: os.Getenv("ELEVENLABS_BASE_URL"),
			},
			Deepgram: ProviderConfig{
				APIKey:  os.Getenv("DEEPGRAM_API_KEY"),
				BaseURL: os.Getenv("DEEPGRAM_BASE_URL"),
			},
		},
		PricingOverridesPath: os.Getenv("PRICING_OVERRIDES"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Configured returns the provider configs that carry a credential, keyed by
// provider id.
func (p ProvidersConfig) Configured() map[string]ProviderConfig {
	all := map[string]ProviderConfig{
		"openai":     p.OpenAI,
		"anthropic":  p.Anthropic,
		"elevenlabs": p.ElevenLabs,
		"deepgram":   p.Deepgram,
	}
	configured := make(map[string]ProviderConfig)
	for id, pc := range all {
		if pc.APIKey != "" {
			configured[id] = pc
		}
	}
	return configured
}

func (c *Config) validate() error {
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive, got %s", c.Cache.TTL)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.BaseDelay < 0 {
		return fmt.Errorf("RETRY_BASE_DELAY must not be negative, got %s", c.Retry.BaseDelay)
	}
	if c.Mongo.RetentionDays < 0 {
		return fmt.Errorf("REPORT_RETENTION_DAYS must not be negative, got %d", c.Mongo.RetentionDays)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return parsed
}
