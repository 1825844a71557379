package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pcbuilder/internal/models"
	"pcbuilder/internal/store"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// DefaultBuildExpiry is how long a saved build stays live.
const DefaultBuildExpiry = 7 * 24 * time.Hour

// Not-found causes, both wrapping store.ErrNotFound.
var (
	ErrSessionNotFound = fmt.Errorf("session not found: %w", store.ErrNotFound)
	ErrBuildNotFound   = fmt.Errorf("build not found: %w", store.ErrNotFound)
)

// BuildInput is a user-submitted build. Nil fields take their defaults.
type BuildInput struct {
	BuildID     string                  `json:"buildId"`
	Components  []models.BuildComponent `json:"components"`
	TotalPrice  *float64                `json:"totalPrice"`
	CreatedAt   *time.Time              `json:"createdAt"`
	ExpiresAt   *time.Time              `json:"expiresAt"`
	AIGenerated bool                    `json:"aiGenerated"`
}

// SessionBuildService manages the builds stored under a session. Every write
// reads the whole session document, edits it and saves it back; concurrent
// writers to one session resolve last-write-wins.
type SessionBuildService struct {
	sessions store.SessionBuildStore
	horizon  time.Duration
	clock    clockwork.Clock
}

// NewSessionBuildService creates a session build service
func NewSessionBuildService(sessions store.SessionBuildStore, horizon time.Duration, clock clockwork.Clock) *SessionBuildService {
	if horizon <= 0 {
		horizon = DefaultBuildExpiry
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SessionBuildService{sessions: sessions, horizon: horizon, clock: clock}
}

// Horizon returns the configured build lifetime.
func (s *SessionBuildService) Horizon() time.Duration {
	return s.horizon
}

// ListBuilds returns the builds of a session in stored order.
func (s *SessionBuildService) ListBuilds(ctx context.Context, sessionID string) ([]models.Build, error) {
	session, err := s.get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return session.Builds, nil
}

// GetBuild returns one build of a session.
func (s *SessionBuildService) GetBuild(ctx context.Context, sessionID, buildID string) (*models.Build, error) {
	session, err := s.get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	i := session.FindBuild(buildID)
	if i < 0 {
		return nil, ErrBuildNotFound
	}
	return &session.Builds[i], nil
}

// CreateOrUpdate validates input, fills defaults and upserts the build into
// the session, creating the session on first write.
func (s *SessionBuildService) CreateOrUpdate(ctx context.Context, sessionID string, input BuildInput) (*models.SessionBuild, error) {
	build, err := s.buildFromInput(input)
	if err != nil {
		return nil, err
	}
	return s.Upsert(ctx, sessionID, build)
}

// NewBuild stamps a generated id and the validity window onto components.
func (s *SessionBuildService) NewBuild(components []models.BuildComponent, totalPrice float64, aiGenerated bool) models.Build {
	createdAt := s.clock.Now().UTC()
	return models.Build{
		BuildID:     uuid.NewString(),
		Components:  components,
		TotalPrice:  totalPrice,
		CreatedAt:   createdAt,
		ExpiresAt:   createdAt.Add(s.horizon),
		AIGenerated: aiGenerated,
	}
}

// Upsert replaces the build with the same id or appends it.
func (s *SessionBuildService) Upsert(ctx context.Context, sessionID string, build models.Build) (*models.SessionBuild, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		session = &models.SessionBuild{SessionID: sessionID, Builds: []models.Build{}}
	} else if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	session.Upsert(build)
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return session, nil
}

// DeleteBuild removes one build. The session document stays, possibly empty,
// until the sweeper removes it.
func (s *SessionBuildService) DeleteBuild(ctx context.Context, sessionID, buildID string) error {
	session, err := s.get(ctx, sessionID)
	if err != nil {
		return err
	}
	if !session.Remove(buildID) {
		return ErrBuildNotFound
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// DeleteSession removes a session and all its builds.
func (s *SessionBuildService) DeleteSession(ctx context.Context, sessionID string) error {
	err := s.sessions.Delete(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrSessionNotFound
	}
	return err
}

func (s *SessionBuildService) get(ctx context.Context, sessionID string) (*models.SessionBuild, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return session, nil
}

func (s *SessionBuildService) buildFromInput(input BuildInput) (models.Build, error) {
	verr := &ValidationError{}

	var sum float64
	components := make([]models.BuildComponent, 0, len(input.Components))
	for i, c := range input.Components {
		field := fmt.Sprintf("components[%d]", i)
		c.Type = strings.TrimSpace(c.Type)
		c.ModelName = models.NormalizeModelName(c.ModelName)
		if c.Type == "" {
			verr.Add(field+".type", "is required")
		}
		if c.ModelName == "" {
			verr.Add(field+".modelName", "is required")
		}
		if c.Price <= 0 {
			verr.Add(field+".price", "must be a positive number")
		}
		sum += c.Price
		components = append(components, c)
	}

	total := sum
	if input.TotalPrice != nil {
		total = *input.TotalPrice
	}
	if total <= 0 {
		verr.Add("totalPrice", "must be a positive number")
	}

	createdAt := s.clock.Now().UTC()
	if input.CreatedAt != nil {
		createdAt = *input.CreatedAt
	}
	expiresAt := createdAt.Add(s.horizon)
	if input.ExpiresAt != nil {
		expiresAt = *input.ExpiresAt
	}
	if !expiresAt.After(createdAt) {
		verr.Add("expiresAt", "must be after createdAt")
	}

	if err := verr.Err(); err != nil {
		return models.Build{}, err
	}

	buildID := strings.TrimSpace(input.BuildID)
	if buildID == "" {
		buildID = uuid.NewString()
	}
	return models.Build{
		BuildID:     buildID,
		Components:  components,
		TotalPrice:  total,
		CreatedAt:   createdAt,
		ExpiresAt:   expiresAt,
		AIGenerated: input.AIGenerated,
	}, nil
}
