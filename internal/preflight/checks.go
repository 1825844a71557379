package preflight

import (
	"context"
	"fmt"
	"log"
	"time"

	"pcbuilder/internal/config"
	"pcbuilder/internal/services"

	"github.com/robfig/cron/v3"
)

// CheckResult represents the result of a preflight check
type CheckResult struct {
	Name    string
	Status  string // "pass", "fail", "warning"
	Message string
	Error   error
}

// Pinger is the store connection under check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Checker performs pre-flight checks before server starts
type Checker struct {
	store  Pinger
	driver string
	cfg    *config.Config
	now    func() time.Time
}

// NewChecker creates a new preflight checker
func NewChecker(store Pinger, driver string, cfg *config.Config) *Checker {
	return &Checker{
		store:  store,
		driver: driver,
		cfg:    cfg,
		now:    time.Now,
	}
}

// RunAll runs all preflight checks and returns results
func (c *Checker) RunAll(ctx context.Context) []CheckResult {
	log.Println("🔍 Running pre-flight checks...")

	results := []CheckResult{
		c.checkStoreConnection(ctx),
		c.checkStoreDriver(),
		c.checkRecommendationSource(),
		c.checkCleanupSchedule(),
		c.checkCatalogSeed(),
	}

	passed := 0
	failed := 0
	warnings := 0

	for _, result := range results {
		switch result.Status {
		case "pass":
			log.Printf("   ✅ %s: %s", result.Name, result.Message)
			passed++
		case "fail":
			log.Printf("   ❌ %s: %s", result.Name, result.Message)
			if result.Error != nil {
				log.Printf("      Error: %v", result.Error)
			}
			failed++
		case "warning":
			log.Printf("   ⚠️  %s: %s", result.Name, result.Message)
			warnings++
		}
	}

	log.Printf("📊 Pre-flight summary: %d passed, %d failed, %d warnings", passed, failed, warnings)

	return results
}

// HasFailures returns true if any check failed
func HasFailures(results []CheckResult) bool {
	for _, result := range results {
		if result.Status == "fail" {
			return true
		}
	}
	return false
}

func (c *Checker) checkStoreConnection(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := c.store.Ping(ctx); err != nil {
		return CheckResult{
			Name:    "Store Connection",
			Status:  "fail",
			Message: fmt.Sprintf("Cannot reach %s store", c.driver),
			Error:   err,
		}
	}

	return CheckResult{
		Name:    "Store Connection",
		Status:  "pass",
		Message: fmt.Sprintf("%s store reachable", c.driver),
	}
}

// checkStoreDriver warns when the catalog and sessions live in process memory
func (c *Checker) checkStoreDriver() CheckResult {
	if c.driver == "memory" {
		return CheckResult{
			Name:    "Store Driver",
			Status:  "warning",
			Message: "MONGODB_URI is not set; sessions and catalog are lost on restart",
		}
	}

	return CheckResult{
		Name:    "Store Driver",
		Status:  "pass",
		Message: "Using " + c.driver,
	}
}

func (c *Checker) checkRecommendationSource() CheckResult {
	if c.cfg.OpenAIAPIKey == "" {
		return CheckResult{
			Name:    "Recommendation Source",
			Status:  "warning",
			Message: "OPENAI_API_KEY not set; automatic builds will fail",
		}
	}

	return CheckResult{
		Name:    "Recommendation Source",
		Status:  "pass",
		Message: fmt.Sprintf("%s via %s", c.cfg.OpenAIModel, c.cfg.OpenAIBaseURL),
	}
}

func (c *Checker) checkCleanupSchedule() CheckResult {
	schedule, err := cron.ParseStandard(c.cfg.CleanupSchedule)
	if err != nil {
		return CheckResult{
			Name:    "Cleanup Schedule",
			Status:  "fail",
			Message: fmt.Sprintf("Invalid cron expression %q", c.cfg.CleanupSchedule),
			Error:   err,
		}
	}

	return CheckResult{
		Name:    "Cleanup Schedule",
		Status:  "pass",
		Message: fmt.Sprintf("%s (next sweep %s)", c.cfg.CleanupSchedule, schedule.Next(c.now().UTC()).Format(time.RFC3339)),
	}
}

func (c *Checker) checkCatalogSeed() CheckResult {
	if c.cfg.CatalogSeedFile == "" {
		return CheckResult{
			Name:    "Catalog Seed",
			Status:  "pass",
			Message: "Skipped (CATALOG_SEED_FILE not set)",
		}
	}

	components, err := services.LoadSeedFile(c.cfg.CatalogSeedFile)
	if err != nil {
		return CheckResult{
			Name:    "Catalog Seed",
			Status:  "fail",
			Message: "Cannot load " + c.cfg.CatalogSeedFile,
			Error:   err,
		}
	}

	return CheckResult{
		Name:    "Catalog Seed",
		Status:  "pass",
		Message: fmt.Sprintf("%d components in %s", len(components), c.cfg.CatalogSeedFile),
	}
}
