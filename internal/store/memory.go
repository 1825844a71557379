package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"pcbuilder/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NewMemoryStores returns stores backed by process memory. Intended for
// development without MongoDB and for tests.
func NewMemoryStores() *Stores {
	return &Stores{
		Components: NewMemoryComponentStore(),
		Sessions:   NewMemorySessionBuildStore(),
		Queries:    NewMemoryCachedQueryStore(),
		Driver:     "memory",
	}
}

// MemoryComponentStore implements ComponentStore.
type MemoryComponentStore struct {
	mu    sync.RWMutex
	items []models.Component
}

// NewMemoryComponentStore creates an empty catalog.
func NewMemoryComponentStore() *MemoryComponentStore {
	return &MemoryComponentStore{}
}

func (s *MemoryComponentStore) Find(ctx context.Context, filter models.ComponentFilter) ([]models.Component, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Component{}
	for _, c := range s.items {
		if filter.Matches(c) {
			out = append(out, cloneComponent(c))
		}
	}
	return out, nil
}

func (s *MemoryComponentStore) FindOne(ctx context.Context, filter models.ComponentFilter) (*models.Component, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.items {
		if filter.Matches(c) {
			found := cloneComponent(c)
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryComponentStore) Insert(ctx context.Context, component *models.Component) (*models.Component, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := cloneComponent(*component)
	c.Normalize()
	for _, existing := range s.items {
		if existing.ModelKey == c.ModelKey {
			return nil, ErrDuplicate
		}
	}
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	if c.Timestamp.IsZero() {
		c.Timestamp = time.Now()
	}
	s.items = append(s.items, c)

	out := cloneComponent(c)
	return &out, nil
}

func (s *MemoryComponentStore) UpdateByID(ctx context.Context, id string, patch models.ComponentPatch) (*models.Component, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ID != oid {
			continue
		}
		updated := cloneComponent(s.items[i])
		patch.Apply(&updated)
		for j, other := range s.items {
			if j != i && other.ModelKey == updated.ModelKey {
				return nil, ErrDuplicate
			}
		}
		s.items[i] = updated
		out := cloneComponent(updated)
		return &out, nil
	}
	return nil, ErrNotFound
}

func (s *MemoryComponentStore) DeleteByID(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ID == oid {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// MemorySessionBuildStore implements SessionBuildStore.
type MemorySessionBuildStore struct {
	mu       sync.RWMutex
	sessions map[string]models.SessionBuild
}

// NewMemorySessionBuildStore creates an empty session store.
func NewMemorySessionBuildStore() *MemorySessionBuildStore {
	return &MemorySessionBuildStore{sessions: make(map[string]models.SessionBuild)}
}

func (s *MemorySessionBuildStore) Get(ctx context.Context, sessionID string) (*models.SessionBuild, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneSession(session)
	return &out, nil
}

func (s *MemorySessionBuildStore) Save(ctx context.Context, session *models.SessionBuild) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := cloneSession(*session)
	stored.SessionID = strings.Clone(session.SessionID)
	if existing, ok := s.sessions[stored.SessionID]; ok {
		stored.ID = existing.ID
	} else if stored.ID.IsZero() {
		stored.ID = primitive.NewObjectID()
	}
	session.ID = stored.ID
	s.sessions[stored.SessionID] = stored
	return nil
}

func (s *MemorySessionBuildStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, sessionID)
	return nil
}

func (s *MemorySessionBuildStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, session := range s.sessions {
		if session.AllExpired(now) {
			delete(s.sessions, id)
			deleted++
		}
	}
	return deleted, nil
}

// SessionIDs lists stored session ids in sorted order.
func (s *MemorySessionBuildStore) SessionIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// MemoryCachedQueryStore implements CachedQueryStore.
type MemoryCachedQueryStore struct {
	mu      sync.RWMutex
	entries map[string]models.CachedQuery
}

// NewMemoryCachedQueryStore creates an empty cache store.
func NewMemoryCachedQueryStore() *MemoryCachedQueryStore {
	return &MemoryCachedQueryStore{entries: make(map[string]models.CachedQuery)}
}

func cacheMapKey(queryType, queryKey string) string {
	return queryType + "\x00" + queryKey
}

func (s *MemoryCachedQueryStore) Get(ctx context.Context, queryType, queryKey string) (*models.CachedQuery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[cacheMapKey(queryType, queryKey)]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneCachedQuery(entry)
	return &out, nil
}

func (s *MemoryCachedQueryStore) Put(ctx context.Context, entry *models.CachedQuery) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := cloneCachedQuery(*entry)
	key := cacheMapKey(entry.QueryType, entry.QueryKey)
	if existing, ok := s.entries[key]; ok {
		stored.ID = existing.ID
	} else if stored.ID.IsZero() {
		stored.ID = primitive.NewObjectID()
	}
	entry.ID = stored.ID
	s.entries[key] = stored
	return nil
}

func (s *MemoryCachedQueryStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for key, entry := range s.entries {
		if entry.Timestamp.Before(cutoff) {
			delete(s.entries, key)
			deleted++
		}
	}
	return deleted, nil
}

// Len returns the number of cached entries.
func (s *MemoryCachedQueryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func cloneComponent(c models.Component) models.Component {
	if c.Specs != nil {
		specs := make(map[string]interface{}, len(c.Specs))
		for k, v := range c.Specs {
			specs[k] = v
		}
		c.Specs = specs
	}
	return c
}

func cloneSession(s models.SessionBuild) models.SessionBuild {
	builds := make([]models.Build, len(s.Builds))
	for i, b := range s.Builds {
		b.Components = append([]models.BuildComponent(nil), b.Components...)
		builds[i] = b
	}
	s.Builds = builds
	return s
}

func cloneCachedQuery(q models.CachedQuery) models.CachedQuery {
	results := make([]models.Component, len(q.Results))
	for i, c := range q.Results {
		results[i] = cloneComponent(c)
	}
	q.Results = results
	q.QueryParams.ModelNames = append([]string(nil), q.QueryParams.ModelNames...)
	return q
}
