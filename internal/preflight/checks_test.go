package preflight

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pcbuilder/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(ctx context.Context) error { return f.err }

func baseConfig() *config.Config {
	return &config.Config{
		Environment:     "development",
		OpenAIAPIKey:    "sk-test",
		OpenAIModel:     "gpt-3.5-turbo",
		OpenAIBaseURL:   "https://api.openai.com/v1",
		CleanupSchedule: "0 * * * *",
	}
}

func statusByName(results []CheckResult) map[string]string {
	out := make(map[string]string, len(results))
	for _, r := range results {
		out[r.Name] = r.Status
	}
	return out
}

func TestRunAll_Healthy(t *testing.T) {
	results := NewChecker(fakePinger{}, "mongodb", baseConfig()).RunAll(context.Background())

	assert.False(t, HasFailures(results))
	assert.Equal(t, map[string]string{
		"Store Connection":      "pass",
		"Store Driver":          "pass",
		"Recommendation Source": "pass",
		"Cleanup Schedule":      "pass",
		"Catalog Seed":          "pass",
	}, statusByName(results))
}

func TestRunAll_Failures(t *testing.T) {
	cfg := baseConfig()
	cfg.Environment = "production"
	cfg.OpenAIAPIKey = ""
	cfg.CleanupSchedule = "every hour"
	cfg.CatalogSeedFile = filepath.Join(t.TempDir(), "missing.yaml")

	results := NewChecker(fakePinger{err: errors.New("connection refused")}, "memory", cfg).RunAll(context.Background())

	assert.True(t, HasFailures(results))
	assert.Equal(t, map[string]string{
		"Store Connection":      "fail",
		"Store Driver":          "warning",
		"Recommendation Source": "warning",
		"Cleanup Schedule":      "fail",
		"Catalog Seed":          "fail",
	}, statusByName(results))
}

func TestCheckCleanupSchedule_ReportsNextRun(t *testing.T) {
	checker := NewChecker(fakePinger{}, "memory", baseConfig())
	checker.now = func() time.Time { return time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC) }

	result := checker.checkCleanupSchedule()
	assert.Equal(t, "pass", result.Status)
	assert.Contains(t, result.Message, "2025-03-01T13:00:00Z")
}

func TestCheckCatalogSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`components:
  - type: CPU
    brand: AMD
    modelName: Ryzen 5 5600X
    price: 199
    specs:
      socket: AM4
`), 0o644))

	cfg := baseConfig()
	cfg.CatalogSeedFile = path
	result := NewChecker(fakePinger{}, "memory", cfg).checkCatalogSeed()
	assert.Equal(t, "pass", result.Status)
	assert.Contains(t, result.Message, "1 components")
}
