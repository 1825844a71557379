package middleware

import (
	"log"
	"time"

	"pcbuilder/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// RateLimitConfig holds rate limiting settings
type RateLimitConfig struct {
	// Global limits (per IP)
	GlobalAPIMax        int
	GlobalAPIExpiration time.Duration

	// Automatic builds call the recommendation source several times each
	AutoBuildMax        int
	AutoBuildExpiration time.Duration
}

// DefaultRateLimitConfig returns production-safe defaults
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		GlobalAPIMax:        200,
		GlobalAPIExpiration: 1 * time.Minute,

		AutoBuildMax:        10,
		AutoBuildExpiration: 1 * time.Minute,
	}
}

// NewRateLimitConfig derives the limits from the application config
func NewRateLimitConfig(cfg *config.Config) *RateLimitConfig {
	rl := DefaultRateLimitConfig()
	if cfg.RateLimitGlobalAPI > 0 {
		rl.GlobalAPIMax = cfg.RateLimitGlobalAPI
	}
	if cfg.RateLimitAutoBuild > 0 {
		rl.AutoBuildMax = cfg.RateLimitAutoBuild
	}

	// Development mode: more lenient global limit
	if cfg.Environment == "development" {
		rl.GlobalAPIMax = max(rl.GlobalAPIMax, 1000)
		log.Println("⚠️  [RATE-LIMIT] Development mode: using relaxed rate limits")
	}
	return rl
}

// GlobalAPIRateLimiter creates a rate limiter for all API requests
func GlobalAPIRateLimiter(config *RateLimitConfig) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        config.GlobalAPIMax,
		Expiration: config.GlobalAPIExpiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			return "global:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			log.Printf("🚫 [RATE-LIMIT] Global limit reached for IP: %s", c.IP())
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "Too many requests. Please slow down.",
				"retry_after": int(config.GlobalAPIExpiration.Seconds()),
			})
		},
	})
}

// AutoBuildRateLimiter limits automatic build requests per IP
func AutoBuildRateLimiter(config *RateLimitConfig) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        config.AutoBuildMax,
		Expiration: config.AutoBuildExpiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			return "autobuild:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			log.Printf("⚠️  [RATE-LIMIT] Automatic build limit reached for IP: %s", c.IP())
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "Automatic build rate limit reached. Please wait before requesting another build.",
				"retry_after": int(config.AutoBuildExpiration.Seconds()),
			})
		},
	})
}
