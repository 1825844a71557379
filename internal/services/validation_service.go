package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pcbuilder/internal/compatibility"
	"pcbuilder/internal/models"
	"pcbuilder/internal/store"
)

// BuildReport is the compatibility verdict for one saved build.
type BuildReport struct {
	BuildID    string   `json:"buildId"`
	Compatible bool     `json:"compatible"`
	Issues     []string `json:"issues"`
	Unresolved []string `json:"unresolved,omitempty"`
}

// StepCandidate is the part proposed in a step validation. Either an inline
// Component or a Type/ModelName pair resolved against the catalog.
type StepCandidate struct {
	BuildID   string            `json:"buildId"`
	Type      string            `json:"type"`
	ModelName string            `json:"modelName"`
	Component *models.Component `json:"component"`
}

// ValidationService runs the compatibility rules against saved builds.
type ValidationService struct {
	catalog  store.ComponentStore
	sessions *SessionBuildService
}

// NewValidationService creates a validation service
func NewValidationService(catalog store.ComponentStore, sessions *SessionBuildService) *ValidationService {
	return &ValidationService{catalog: catalog, sessions: sessions}
}

// ValidateSession checks every build of a session independently. Parts that
// are not in the catalog are reported as unresolved and skipped by the rules.
func (v *ValidationService) ValidateSession(ctx context.Context, sessionID string) ([]BuildReport, error) {
	builds, err := v.sessions.ListBuilds(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	reports := make([]BuildReport, 0, len(builds))
	for _, build := range builds {
		parts, unresolved, err := v.resolve(ctx, build.Components)
		if err != nil {
			return nil, err
		}
		issues := compatibility.Check(parts)
		reports = append(reports, BuildReport{
			BuildID:    build.BuildID,
			Compatible: len(issues) == 0,
			Issues:     issues,
			Unresolved: unresolved,
		})
	}
	return reports, nil
}

// ValidateStep returns the issues the candidate would add to the build. With
// no BuildID the candidate is checked on its own.
func (v *ValidationService) ValidateStep(ctx context.Context, sessionID string, step StepCandidate) ([]string, error) {
	candidate, err := v.candidate(ctx, step)
	if err != nil {
		return nil, err
	}

	var base []models.Component
	if step.BuildID != "" {
		build, err := v.sessions.GetBuild(ctx, sessionID, step.BuildID)
		if err != nil {
			return nil, err
		}
		if base, _, err = v.resolve(ctx, build.Components); err != nil {
			return nil, err
		}
	}

	issues := compatibility.Introduced(base, *candidate)
	if issues == nil {
		issues = []string{}
	}
	return issues, nil
}

// CompatibleCandidates lists catalog parts of componentType that add no issue
// to the given build.
func (v *ValidationService) CompatibleCandidates(ctx context.Context, sessionID, buildID, componentType string) ([]models.Component, error) {
	kind := models.CanonicalType(componentType)
	if kind == "" {
		verr := &ValidationError{}
		verr.Add("type", "is required")
		return nil, verr
	}

	build, err := v.sessions.GetBuild(ctx, sessionID, buildID)
	if err != nil {
		return nil, err
	}
	base, _, err := v.resolve(ctx, build.Components)
	if err != nil {
		return nil, err
	}

	all, err := v.catalog.Find(ctx, models.ComponentFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list components: %w", err)
	}
	var ofKind []models.Component
	for _, c := range all {
		if c.Kind() == kind {
			ofKind = append(ofKind, c)
		}
	}

	compatible := compatibility.Compatible(base, ofKind)
	if compatible == nil {
		compatible = []models.Component{}
	}
	return compatible, nil
}

func (v *ValidationService) candidate(ctx context.Context, step StepCandidate) (*models.Component, error) {
	if step.Component != nil {
		c := *step.Component
		c.Normalize()
		if c.Type == "" {
			verr := &ValidationError{}
			verr.Add("component.type", "is required")
			return nil, verr
		}
		return &c, nil
	}

	verr := &ValidationError{}
	if strings.TrimSpace(step.Type) == "" {
		verr.Add("type", "is required")
	}
	if models.NormalizeModelName(step.ModelName) == "" {
		verr.Add("modelName", "is required")
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	c, err := v.catalog.FindOne(ctx, models.ComponentFilter{ModelName: step.ModelName})
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("component %q: %w", step.ModelName, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up component: %w", err)
	}
	return c, nil
}

// resolve maps build entries onto catalog records in build order. Names that
// are not in the catalog are returned separately.
func (v *ValidationService) resolve(ctx context.Context, entries []models.BuildComponent) ([]models.Component, []string, error) {
	if len(entries) == 0 {
		return []models.Component{}, nil, nil
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.ModelName)
	}
	found, err := v.catalog.Find(ctx, models.ComponentFilter{ModelNames: names})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve build components: %w", err)
	}

	byKey := make(map[string]models.Component, len(found))
	for _, c := range found {
		byKey[c.ModelKey] = c
	}

	parts := make([]models.Component, 0, len(entries))
	var unresolved []string
	for _, e := range entries {
		if c, ok := byKey[models.ModelKeyOf(e.ModelName)]; ok {
			parts = append(parts, c)
		} else {
			unresolved = append(unresolved, e.ModelName)
		}
	}
	return parts, unresolved, nil
}
