package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"redline.app/engine/core/db"
)

type Config struct {
	OTel        OTelConfig
	OpenAI      OpenAIConfig
	Redis       RedisConfig
	Decision    DecisionConfig
	Debounce    DebounceConfig
	Cache       CacheConfig
	Env         string
	Port        string
	AdminAPIKey string
	DB          db.Config
}

type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
}

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type RedisConfig struct {
	URL string
}

// DecisionConfig holds the cost/latency model for local-vs-remote routing.
// All thresholds are policy, not law; they exist so product can tune the
// escalation behavior without touching the engine.
type DecisionConfig struct {
	MaxCostPerCheck        float64 // hard ceiling per analysis pass, in USD
	ConstrainedCostCeiling float64 // per-request ceiling for constrained-tier users
	CostPerThousandChars   float64 // remote cost estimate input
	MaxRemoteWords         int     // documents above this stay local
	LocalLatencyMs         int
	RemoteLatencyMs        int
}

type DebounceConfig struct {
	Delay     time.Duration
	MinLength int
}

type CacheConfig struct {
	TTL time.Duration
}

// Load loads configuration from environment variables. In development it
// also reads a .env file from the working directory.
func Load() (Config, error) {
	if getEnv("REDLINE_ENV", "development") == "development" {
		_ = godotenv.Load(".env")
	}

	cfg := Config{
		Env:         getEnv("REDLINE_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		AdminAPIKey: getEnv("ADMIN_API_KEY", ""),
		DB: db.Config{
			DSN:      getEnv("DATABASE_URL", ""),
			MaxConns: getEnvInt32("DB_MAX_CONNS", 10),
			MinConns: getEnvInt32("DB_MIN_CONNS", 2),
		},
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "redline-engine"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
		},
		OpenAI: OpenAIConfig{
			APIKey:  getEnv("OPENAI_API_KEY", ""),
			BaseURL: getEnv("OPENAI_BASE_URL", ""),
			Model:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},
		Decision: DecisionConfig{
			MaxCostPerCheck:        getEnvFloat("DECISION_MAX_COST_PER_CHECK", 0.10),
			ConstrainedCostCeiling: getEnvFloat("DECISION_CONSTRAINED_COST_CEILING", 0.01),
			CostPerThousandChars:   getEnvFloat("DECISION_COST_PER_KCHARS", 0.002),
			MaxRemoteWords:         getEnvInt("DECISION_MAX_REMOTE_WORDS", 2000),
			LocalLatencyMs:         getEnvInt("DECISION_LOCAL_LATENCY_MS", 30),
			RemoteLatencyMs:        getEnvInt("DECISION_REMOTE_LATENCY_MS", 1800),
		},
		Debounce: DebounceConfig{
			Delay:     time.Duration(getEnvInt("DEBOUNCE_DELAY_MS", 400)) * time.Millisecond,
			MinLength: getEnvInt("DEBOUNCE_MIN_LENGTH", 8),
		},
		Cache: CacheConfig{
			TTL: time.Duration(getEnvInt("CACHE_TTL_SECONDS", 300)) * time.Second,
		},
	}

	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

func (c OpenAIConfig) Enabled() bool {
	return c.APIKey != ""
}

func (c RedisConfig) Enabled() bool {
	return c.URL != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt32(key string, fallback int32) int32 {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(i)
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}
