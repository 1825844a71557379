package store

import (
	"context"
	"os"
	"testing"
	"time"

	"pcbuilder/internal/database"
	"pcbuilder/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMongoStores(t *testing.T) *Stores {
	t.Helper()
	uri := os.Getenv("MONGODB_TEST_URI")
	if uri == "" {
		t.Skip("MONGODB_TEST_URI not set - skipping MongoDB store tests")
	}

	ctx := context.Background()
	db, err := database.NewMongoDB(ctx, uri)
	require.NoError(t, err)

	drop := func() {
		for _, name := range []string{database.CollectionComponents, database.CollectionSessionBuilds, database.CollectionCachedQueries} {
			_ = db.Collection(name).Drop(ctx)
		}
	}
	drop()
	require.NoError(t, db.Initialize(ctx))

	t.Cleanup(func() {
		drop()
		_ = db.Close(ctx)
	})
	return NewMongoStores(db)
}

func TestMongoComponentStore(t *testing.T) {
	stores := setupMongoStores(t)
	ctx := context.Background()
	components := stores.Components

	created, err := components.Insert(ctx, &models.Component{
		Type: "CPU", Brand: "AMD", ModelName: " Ryzen 5  5600X ", Price: 199,
		Specs: map[string]interface{}{"socket": "AM4"},
	})
	require.NoError(t, err)
	assert.False(t, created.ID.IsZero())
	assert.Equal(t, "Ryzen 5  5600X", created.ModelName)

	_, err = components.Insert(ctx, &models.Component{Type: "CPU", ModelName: "ryzen 5 5600x", Price: 1})
	assert.ErrorIs(t, err, ErrDuplicate)

	found, err := components.FindOne(ctx, models.ComponentFilter{ModelName: "RYZEN 5 5600X"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, "AM4", found.SocketName())

	maxPrice := 150.0
	list, err := components.Find(ctx, models.ComponentFilter{Type: "CPU", PriceMax: &maxPrice})
	require.NoError(t, err)
	assert.Empty(t, list)

	price := 179.0
	updated, err := components.UpdateByID(ctx, created.ID.Hex(), models.ComponentPatch{Price: &price})
	require.NoError(t, err)
	assert.Equal(t, 179.0, updated.Price)

	require.NoError(t, components.DeleteByID(ctx, created.ID.Hex()))
	assert.ErrorIs(t, components.DeleteByID(ctx, created.ID.Hex()), ErrNotFound)
	assert.ErrorIs(t, components.DeleteByID(ctx, "nope"), ErrInvalidID)
}

func TestMongoSessionBuildStore(t *testing.T) {
	stores := setupMongoStores(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	save := func(id string, expires ...time.Time) {
		s := &models.SessionBuild{SessionID: id, Builds: []models.Build{}}
		for _, e := range expires {
			s.Builds = append(s.Builds, models.Build{BuildID: id + e.Format("150405"), TotalPrice: 1, CreatedAt: e.Add(-time.Hour), ExpiresAt: e})
		}
		require.NoError(t, stores.Sessions.Save(ctx, s))
	}
	save("expired", now.Add(-time.Minute))
	save("mixed", now.Add(-time.Hour), now.Add(time.Hour))
	save("boundary", now)
	save("empty")

	got, err := stores.Sessions.Get(ctx, "mixed")
	require.NoError(t, err)
	assert.Len(t, got.Builds, 2)

	deleted, err := stores.Sessions.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	_, err = stores.Sessions.Get(ctx, "expired")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = stores.Sessions.Get(ctx, "boundary")
	assert.NoError(t, err)
}

func TestMongoCachedQueryStore(t *testing.T) {
	stores := setupMongoStores(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	put := func(key string, age time.Duration) {
		require.NoError(t, stores.Queries.Put(ctx, &models.CachedQuery{
			QueryType: models.QueryTypeComponentSearch,
			QueryKey:  key,
			Results:   []models.Component{},
			Timestamp: now.Add(-age),
		}))
	}
	put("old", 25*time.Hour)
	put("edge", 24*time.Hour)
	put("fresh", time.Minute)
	put("fresh", 0)

	entry, err := stores.Queries.Get(ctx, models.QueryTypeComponentSearch, "fresh")
	require.NoError(t, err)
	assert.True(t, entry.Timestamp.Equal(now))

	deleted, err := stores.Queries.DeleteOlderThan(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}
