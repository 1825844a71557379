package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pcbuilder/internal/models"
	"pcbuilder/internal/store"
)

// ErrComponentNotFound wraps store.ErrNotFound for unknown component ids.
var ErrComponentNotFound = fmt.Errorf("component not found: %w", store.ErrNotFound)

// ErrDuplicateModel wraps store.ErrDuplicate for model names already stored.
var ErrDuplicateModel = fmt.Errorf("a component with this model name already exists: %w", store.ErrDuplicate)

// CatalogService fronts the component catalog. Searches go through the
// query cache; writes go straight to the store and leave cache entries alone.
type CatalogService struct {
	components store.ComponentStore
	cache      *QueryCache
}

// NewCatalogService creates a catalog service
func NewCatalogService(components store.ComponentStore, cache *QueryCache) *CatalogService {
	return &CatalogService{components: components, cache: cache}
}

// List returns every component.
func (s *CatalogService) List(ctx context.Context) ([]models.Component, error) {
	components, err := s.components.Find(ctx, models.ComponentFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list components: %w", err)
	}
	return components, nil
}

// Search returns components matching filter and whether the cache served it.
func (s *CatalogService) Search(ctx context.Context, filter models.ComponentFilter) ([]models.Component, bool, error) {
	if filter.PriceMin != nil && filter.PriceMax != nil && *filter.PriceMin > *filter.PriceMax {
		verr := &ValidationError{}
		verr.Add("price_min", "must not exceed price_max")
		return nil, false, verr
	}
	return s.cache.Search(ctx, filter)
}

// Create validates and stores a new component.
func (s *CatalogService) Create(ctx context.Context, component *models.Component) (*models.Component, error) {
	verr := &ValidationError{}
	if strings.TrimSpace(component.Type) == "" {
		verr.Add("type", "is required")
	}
	if strings.TrimSpace(component.Brand) == "" {
		verr.Add("brand", "is required")
	}
	if models.NormalizeModelName(component.ModelName) == "" {
		verr.Add("modelName", "is required")
	}
	if component.Price <= 0 {
		verr.Add("price", "must be a positive number")
	}
	if component.Specs == nil {
		verr.Add("specs", "is required")
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	created, err := s.components.Insert(ctx, component)
	if errors.Is(err, store.ErrDuplicate) {
		return nil, ErrDuplicateModel
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create component: %w", err)
	}
	return created, nil
}

// Update applies a partial update.
func (s *CatalogService) Update(ctx context.Context, id string, patch models.ComponentPatch) (*models.Component, error) {
	verr := &ValidationError{}
	if patch.Price != nil && *patch.Price <= 0 {
		verr.Add("price", "must be a positive number")
	}
	if patch.ModelName != nil && models.NormalizeModelName(*patch.ModelName) == "" {
		verr.Add("modelName", "must not be empty")
	}
	if patch.Type != nil && strings.TrimSpace(*patch.Type) == "" {
		verr.Add("type", "must not be empty")
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	updated, err := s.components.UpdateByID(ctx, id, patch)
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrInvalidID):
		return nil, ErrComponentNotFound
	case errors.Is(err, store.ErrDuplicate):
		return nil, ErrDuplicateModel
	case err != nil:
		return nil, fmt.Errorf("failed to update component: %w", err)
	}
	return updated, nil
}

// Delete removes a component.
func (s *CatalogService) Delete(ctx context.Context, id string) error {
	err := s.components.DeleteByID(ctx, id)
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrInvalidID):
		return ErrComponentNotFound
	case err != nil:
		return fmt.Errorf("failed to delete component: %w", err)
	}
	return nil
}
