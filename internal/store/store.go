// Package store holds the persistence contracts for the catalog, session
// builds and cached queries, with a MongoDB driver and an in-memory driver.
package store

import (
	"context"
	"errors"
	"time"

	"pcbuilder/internal/models"
)

// Common errors returned by every driver.
var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
	ErrInvalidID = errors.New("invalid record id")
)

// ComponentStore is the component catalog.
type ComponentStore interface {
	Find(ctx context.Context, filter models.ComponentFilter) ([]models.Component, error)
	// FindOne returns ErrNotFound when nothing matches.
	FindOne(ctx context.Context, filter models.ComponentFilter) (*models.Component, error)
	// Insert returns ErrDuplicate when the model key is already taken.
	Insert(ctx context.Context, component *models.Component) (*models.Component, error)
	UpdateByID(ctx context.Context, id string, patch models.ComponentPatch) (*models.Component, error)
	DeleteByID(ctx context.Context, id string) error
}

// SessionBuildStore persists one document per session. Save replaces the
// whole document; there is no per-build locking.
type SessionBuildStore interface {
	Get(ctx context.Context, sessionID string) (*models.SessionBuild, error)
	Save(ctx context.Context, session *models.SessionBuild) error
	Delete(ctx context.Context, sessionID string) error
	// DeleteExpired removes sessions with no build expiring at or after now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// CachedQueryStore persists memoized catalog reads.
type CachedQueryStore interface {
	Get(ctx context.Context, queryType, queryKey string) (*models.CachedQuery, error)
	// Put overwrites any entry with the same type and key.
	Put(ctx context.Context, entry *models.CachedQuery) error
	// DeleteOlderThan removes entries with a timestamp strictly before cutoff.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Stores bundles the three record sets behind one owned handle.
type Stores struct {
	Components ComponentStore
	Sessions   SessionBuildStore
	Queries    CachedQueryStore
	Driver     string

	ping  func(ctx context.Context) error
	close func(ctx context.Context) error
}

// Ping checks the underlying connection.
func (s *Stores) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

// Close releases the underlying connection.
func (s *Stores) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}
