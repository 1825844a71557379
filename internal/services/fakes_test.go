package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"pcbuilder/internal/models"
	"pcbuilder/internal/store"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeSource is a scripted RecommendationSource.
type fakeSource struct {
	mu          sync.Mutex
	parts       []RecommendedPart
	partsErr    error
	details     map[string]*models.Component // by requested model name
	detailErr   map[string]error
	replacement string
	described   []string
}

func (f *fakeSource) RecommendParts(ctx context.Context, budget float64, preferences string) ([]RecommendedPart, error) {
	if f.partsErr != nil {
		return nil, f.partsErr
	}
	return f.parts, nil
}

func (f *fakeSource) DescribeComponent(ctx context.Context, componentType, modelName string) (*models.Component, error) {
	f.mu.Lock()
	f.described = append(f.described, modelName)
	f.mu.Unlock()

	if err := f.detailErr[modelName]; err != nil {
		return nil, err
	}
	d, ok := f.details[modelName]
	if !ok {
		return nil, &UpstreamError{Op: "describe_component", Err: errors.New("no details scripted")}
	}
	c := *d
	c.Normalize()
	return &c, nil
}

func (f *fakeSource) SuggestReplacement(ctx context.Context, componentType, currentModel, issue string) (string, error) {
	if f.replacement == "" {
		return "", &UpstreamError{Op: "suggest_replacement", Err: errors.New("no suggestion")}
	}
	return f.replacement, nil
}

// countingCatalog counts Find calls on an embedded store.
type countingCatalog struct {
	store.ComponentStore

	mu    sync.Mutex
	finds int
}

func (c *countingCatalog) Find(ctx context.Context, filter models.ComponentFilter) ([]models.Component, error) {
	c.mu.Lock()
	c.finds++
	c.mu.Unlock()
	return c.ComponentStore.Find(ctx, filter)
}

func (c *countingCatalog) findCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.finds
}

// failingQueries is a cached-query store whose reads fail.
type failingQueries struct {
	store.CachedQueryStore
}

func (failingQueries) Get(ctx context.Context, queryType, queryKey string) (*models.CachedQuery, error) {
	return nil, errors.New("connection reset")
}

func comp(typ, brand, model string, price float64, specs map[string]interface{}) models.Component {
	return models.Component{Type: typ, Brand: brand, ModelName: model, Price: price, Specs: specs}
}

// seedCatalog inserts components in order.
func seedCatalog(ctx context.Context, s store.ComponentStore, components ...models.Component) error {
	for i := range components {
		if _, err := s.Insert(ctx, &components[i]); err != nil {
			return err
		}
	}
	return nil
}
