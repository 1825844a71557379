package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"pcbuilder/internal/models"
	"pcbuilder/internal/store"

	"github.com/jonboulle/clockwork"
	"github.com/patrickmn/go-cache"
)

// QueryCache memoizes catalog searches for a fixed TTL. Entries live in the
// durable cached-query store with an in-process tier in front of it. Catalog
// writes never invalidate entries; staleness is bounded by the TTL alone.
type QueryCache struct {
	catalog store.ComponentStore
	queries store.CachedQueryStore
	memory  *cache.Cache
	ttl     time.Duration
	clock   clockwork.Clock
}

// NewQueryCache creates a query cache
func NewQueryCache(catalog store.ComponentStore, queries store.CachedQueryStore, ttl time.Duration, clock clockwork.Clock) *QueryCache {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &QueryCache{
		catalog: catalog,
		queries: queries,
		memory:  cache.New(ttl, 10*time.Minute),
		ttl:     ttl,
		clock:   clock,
	}
}

// Search returns the components matching filter and whether the result came
// from the cache. Misses read the catalog and store a fresh entry.
func (q *QueryCache) Search(ctx context.Context, filter models.ComponentFilter) ([]models.Component, bool, error) {
	key := filter.CacheKey()
	now := q.clock.Now()

	if cached, ok := q.memory.Get(key); ok {
		if entry := cached.(*models.CachedQuery); entry.Fresh(now, q.ttl) {
			GetMetrics().RecordCacheLookup("hit_memory")
			return cloneResults(entry.Results), true, nil
		}
		q.memory.Delete(key)
	}

	entry, err := q.queries.Get(ctx, models.QueryTypeComponentSearch, key)
	switch {
	case err == nil && entry.Fresh(now, q.ttl):
		q.remember(key, entry, now)
		GetMetrics().RecordCacheLookup("hit_store")
		return cloneResults(entry.Results), true, nil
	case err != nil && !errors.Is(err, store.ErrNotFound):
		log.Printf("⚠️  [QUERY-CACHE] Lookup failed, reading catalog: %v", err)
	}

	GetMetrics().RecordCacheLookup("miss")
	results, err := q.catalog.Find(ctx, filter)
	if err != nil {
		return nil, false, fmt.Errorf("failed to search components: %w", err)
	}

	entry = &models.CachedQuery{
		QueryType:   models.QueryTypeComponentSearch,
		QueryKey:    key,
		QueryParams: filter,
		Results:     cloneResults(results),
		Timestamp:   now,
	}
	if err := q.queries.Put(ctx, entry); err != nil {
		log.Printf("⚠️  [QUERY-CACHE] Failed to store entry: %v", err)
	}
	q.remember(key, entry, now)
	return results, false, nil
}

// MemoryEntries returns the number of entries in the in-process tier.
func (q *QueryCache) MemoryEntries() int {
	return q.memory.ItemCount()
}

func (q *QueryCache) remember(key string, entry *models.CachedQuery, now time.Time) {
	remaining := q.ttl - now.Sub(entry.Timestamp)
	if remaining <= 0 {
		return
	}
	q.memory.Set(key, entry, remaining)
}

func cloneResults(in []models.Component) []models.Component {
	out := make([]models.Component, len(in))
	for i, c := range in {
		if c.Specs != nil {
			specs := make(map[string]interface{}, len(c.Specs))
			for k, v := range c.Specs {
				specs[k] = v
			}
			c.Specs = specs
		}
		out[i] = c
	}
	return out
}
