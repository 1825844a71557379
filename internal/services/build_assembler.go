package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"pcbuilder/internal/compatibility"
	"pcbuilder/internal/logging"
	"pcbuilder/internal/models"
	"pcbuilder/internal/store"
)

// AutoBuildRequest is the input of the automatic build pipeline.
type AutoBuildRequest struct {
	Budget      float64 `json:"budget"`
	Preferences string  `json:"preferences"`
	SessionID   string  `json:"sessionId"`
}

// Validate checks the request fields.
func (r AutoBuildRequest) Validate() error {
	verr := &ValidationError{}
	if r.Budget <= 0 {
		verr.Add("budget", "must be a positive number")
	}
	if strings.TrimSpace(r.SessionID) == "" {
		verr.Add("sessionId", "is required")
	}
	return verr.Err()
}

// BuildAssembler turns a budget and preferences into a saved, compatible
// build. Nothing is retried: one upstream failure aborts the attempt.
type BuildAssembler struct {
	source   RecommendationSource
	catalog  store.ComponentStore
	sessions *SessionBuildService
}

// NewBuildAssembler creates the automatic build pipeline
func NewBuildAssembler(source RecommendationSource, catalog store.ComponentStore, sessions *SessionBuildService) *BuildAssembler {
	return &BuildAssembler{source: source, catalog: catalog, sessions: sessions}
}

// Generate runs the pipeline. It returns an *UpstreamError when the source
// fails or its output is unusable, a *CompatibilityError when the resolved
// parts conflict, and a wrapped store error otherwise. Catalog entries created
// along the way are kept even when a later step fails.
func (a *BuildAssembler) Generate(ctx context.Context, req AutoBuildRequest) (*models.Build, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	sessionID := strings.TrimSpace(req.SessionID)
	logger := logging.WithSession(sessionID)

	recommended, err := a.source.RecommendParts(ctx, req.Budget, req.Preferences)
	if err != nil {
		GetMetrics().RecordAutoBuildFailure("upstream")
		return nil, err
	}
	logger.Info("parts recommended", "count", len(recommended))

	resolved := make([]models.Component, 0, len(recommended))
	for _, part := range recommended {
		component, err := a.resolve(ctx, part)
		if err != nil {
			var upstream *UpstreamError
			if errors.As(err, &upstream) {
				GetMetrics().RecordAutoBuildFailure("upstream")
			} else {
				GetMetrics().RecordAutoBuildFailure("store")
			}
			logging.WithPart(logger, part.Category, part.ModelName).Error("part resolution failed", "error", err)
			return nil, err
		}
		resolved = append(resolved, *component)
	}

	if issues := compatibility.Check(resolved); len(issues) > 0 {
		GetMetrics().RecordAutoBuildFailure("compatibility")
		logger.Warn("generated build rejected", "issues", len(issues))
		return nil, &CompatibilityError{Issues: issues}
	}

	var total float64
	components := make([]models.BuildComponent, 0, len(resolved))
	for _, c := range resolved {
		total += c.Price
		components = append(components, models.BuildComponent{
			Type:      c.Type,
			ModelName: c.ModelName,
			Price:     c.Price,
		})
	}

	build := a.sessions.NewBuild(components, total, true)
	if _, err := a.sessions.Upsert(ctx, sessionID, build); err != nil {
		GetMetrics().RecordAutoBuildFailure("store")
		return nil, err
	}

	GetMetrics().RecordBuildGenerated()
	log.Printf("✅ [AUTO-BUILD] Saved build %s for session %s (%d parts, total %.2f)",
		build.BuildID, sessionID, len(components), total)
	return &build, nil
}

// resolve looks a recommended model up in the catalog and, on a miss, creates
// it from the source's detail record.
func (a *BuildAssembler) resolve(ctx context.Context, part RecommendedPart) (*models.Component, error) {
	name := models.NormalizeModelName(part.ModelName)

	existing, err := a.catalog.FindOne(ctx, models.ComponentFilter{ModelName: name})
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up %q: %w", name, err)
	}

	log.Printf("🔍 [AUTO-BUILD] %s %q not in catalog, requesting details", part.Category, name)
	details, err := a.source.DescribeComponent(ctx, part.Category, name)
	if err != nil {
		return nil, err
	}
	if details == nil || models.NormalizeModelName(details.ModelName) == "" {
		return nil, &UpstreamError{Op: "describe_component", Err: ErrMissingModelName}
	}

	created, err := a.catalog.Insert(ctx, details)
	if errors.Is(err, store.ErrDuplicate) {
		// The detail record named a model that is already stored.
		return a.catalog.FindOne(ctx, models.ComponentFilter{ModelName: details.ModelName})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to store %q: %w", details.ModelName, err)
	}

	GetMetrics().RecordComponentCreated()
	log.Printf("✅ [AUTO-BUILD] Saved new component from recommendation: %s", created.ModelName)
	return created, nil
}
