package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultCleanupSchedule runs the sweeper at the top of every hour.
const DefaultCleanupSchedule = "0 * * * *"

// Config holds all application configuration
type Config struct {
	Port        string
	Environment string
	LogLevel    string
	MongoURI    string // empty selects the in-memory store (development only)
	RedisURL    string // empty disables the distributed sweep lock

	// Recommendation source (OpenAI-compatible chat completions)
	OpenAIAPIKey     string
	OpenAIBaseURL    string
	OpenAIModel      string
	RecommendRPS     float64
	RecommendTimeout time.Duration // 0 means no deadline on the upstream call

	// Build and cache lifetimes
	BuildExpiry         time.Duration
	QueryCacheTTL       time.Duration
	QueryCacheRetention time.Duration
	CleanupSchedule     string

	CatalogSeedFile string
	AllowedOrigins  string

	// Requests per minute
	RateLimitGlobalAPI int
	RateLimitAutoBuild int
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "3000"),
		Environment: strings.ToLower(getEnv("ENVIRONMENT", "development")),
		LogLevel:    getEnv("LOG_LEVEL", ""),
		MongoURI:    getEnv("MONGODB_URI", ""),
		RedisURL:    getEnv("REDIS_URL", ""),

		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:    getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:      getEnv("OPENAI_MODEL", "gpt-3.5-turbo"),
		RecommendRPS:     getFloatEnv("RECOMMEND_RPS", 2),
		RecommendTimeout: getDurationEnv("RECOMMEND_TIMEOUT", 0),

		BuildExpiry:         getDurationEnv("BUILD_EXPIRY", 7*24*time.Hour),
		QueryCacheTTL:       getDurationEnv("QUERY_CACHE_TTL", time.Hour),
		QueryCacheRetention: getDurationEnv("QUERY_CACHE_RETENTION", 24*time.Hour),
		CleanupSchedule:     getCronEnv("CLEANUP_CRON", DefaultCleanupSchedule),

		CatalogSeedFile: getEnv("CATALOG_SEED_FILE", ""),
		AllowedOrigins:  getEnv("ALLOWED_ORIGINS", ""),

		RateLimitGlobalAPI: getIntEnv("RATE_LIMIT_GLOBAL_API", 200),
		RateLimitAutoBuild: getIntEnv("RATE_LIMIT_AUTO_BUILD", 10),
	}
}

// IsProduction reports whether ENVIRONMENT=production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

// getDurationEnv accepts Go durations ("90m", "168h"). Negative values fall
// back to the default.
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err == nil && parsed >= 0 {
			return parsed
		}
		log.Printf("⚠️  Invalid duration for %s: %q, using %s", key, value, defaultValue)
	}
	return defaultValue
}

// getCronEnv validates a 5-field cron expression.
func getCronEnv(key, defaultValue string) string {
	value := getEnv(key, defaultValue)
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(value); err != nil {
		log.Printf("⚠️  Invalid cron expression for %s: %q (%v), using %q", key, value, err, defaultValue)
		return defaultValue
	}
	return value
}
