package store

import (
	"context"
	"testing"
	"time"
	"unsafe"

	"pcbuilder/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryComponentStore_InsertNormalizesAndRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryComponentStore()

	created, err := s.Insert(ctx, &models.Component{
		Type:      "CPU",
		Brand:     "AMD",
		ModelName: "  Ryzen 5  5600X ",
		Price:     199,
	})
	require.NoError(t, err)
	assert.Equal(t, "Ryzen 5  5600X", created.ModelName)
	assert.Equal(t, "ryzen 5 5600x", created.ModelKey)
	assert.False(t, created.ID.IsZero())
	assert.NotNil(t, created.Specs)

	_, err = s.Insert(ctx, &models.Component{Type: "CPU", Brand: "AMD", ModelName: "RYZEN 5 5600X", Price: 150})
	assert.ErrorIs(t, err, ErrDuplicate)

	found, err := s.FindOne(ctx, models.ComponentFilter{ModelName: "ryzen 5 5600x"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, 199.0, found.Price)
}

func TestMemoryComponentStore_FindFilters(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryComponentStore()
	for _, c := range []models.Component{
		{Type: "CPU", Brand: "AMD", ModelName: "Ryzen 5 5600X", Price: 199},
		{Type: "CPU", Brand: "Intel", ModelName: "Core i5-12400", Price: 180},
		{Type: "GPU", Brand: "NVIDIA", ModelName: "RTX 3060", Price: 329},
	} {
		c := c
		_, err := s.Insert(ctx, &c)
		require.NoError(t, err)
	}

	min, max := 185.0, 400.0
	tests := []struct {
		name   string
		filter models.ComponentFilter
		want   []string
	}{
		{"all", models.ComponentFilter{}, []string{"Ryzen 5 5600X", "Core i5-12400", "RTX 3060"}},
		{"type", models.ComponentFilter{Type: "CPU"}, []string{"Ryzen 5 5600X", "Core i5-12400"}},
		{"brand", models.ComponentFilter{Brand: "NVIDIA"}, []string{"RTX 3060"}},
		{"price range", models.ComponentFilter{PriceMin: &min, PriceMax: &max}, []string{"Ryzen 5 5600X", "RTX 3060"}},
		{"model names", models.ComponentFilter{ModelNames: []string{"rtx 3060", "core i5-12400"}}, []string{"Core i5-12400", "RTX 3060"}},
		{"no match", models.ComponentFilter{Type: "PSU"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Find(ctx, tt.filter)
			require.NoError(t, err)
			names := []string{}
			for _, c := range got {
				names = append(names, c.ModelName)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestMemoryComponentStore_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryComponentStore()
	a, err := s.Insert(ctx, &models.Component{Type: "RAM", Brand: "Corsair", ModelName: "Vengeance 16GB", Price: 60})
	require.NoError(t, err)
	b, err := s.Insert(ctx, &models.Component{Type: "RAM", Brand: "G.Skill", ModelName: "Ripjaws 16GB", Price: 55})
	require.NoError(t, err)

	price := 65.0
	updated, err := s.UpdateByID(ctx, a.ID.Hex(), models.ComponentPatch{Price: &price})
	require.NoError(t, err)
	assert.Equal(t, 65.0, updated.Price)

	clash := " ripjaws 16gb"
	_, err = s.UpdateByID(ctx, a.ID.Hex(), models.ComponentPatch{ModelName: &clash})
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = s.UpdateByID(ctx, "not-an-id", models.ComponentPatch{Price: &price})
	assert.ErrorIs(t, err, ErrInvalidID)

	require.NoError(t, s.DeleteByID(ctx, b.ID.Hex()))
	assert.ErrorIs(t, s.DeleteByID(ctx, b.ID.Hex()), ErrNotFound)
	_, err = s.UpdateByID(ctx, b.ID.Hex(), models.ComponentPatch{Price: &price})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryComponentStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryComponentStore()
	_, err := s.Insert(ctx, &models.Component{
		Type: "PSU", Brand: "Seasonic", ModelName: "Focus 650", Price: 90,
		Specs: map[string]interface{}{"wattage": 650},
	})
	require.NoError(t, err)

	got, err := s.FindOne(ctx, models.ComponentFilter{Type: "PSU"})
	require.NoError(t, err)
	got.Specs["wattage"] = 100

	again, err := s.FindOne(ctx, models.ComponentFilter{Type: "PSU"})
	require.NoError(t, err)
	assert.Equal(t, 650, again.Specs["wattage"])
}

func TestMemorySessionBuildStore_SaveGetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySessionBuildStore()

	_, err := s.Get(ctx, "sess-1")
	assert.ErrorIs(t, err, ErrNotFound)

	session := &models.SessionBuild{SessionID: "sess-1", Builds: []models.Build{{BuildID: "b1", TotalPrice: 10}}}
	require.NoError(t, s.Save(ctx, session))
	assert.False(t, session.ID.IsZero())

	got, err := s.Get(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, got.Builds, 1)
	assert.Equal(t, session.ID, got.ID)

	got.Builds[0].TotalPrice = 999
	again, err := s.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 10.0, again.Builds[0].TotalPrice)

	require.NoError(t, s.Delete(ctx, "sess-1"))
	assert.ErrorIs(t, s.Delete(ctx, "sess-1"), ErrNotFound)
}

func TestMemorySessionBuildStore_OwnsSessionID(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySessionBuildStore()

	// A string aliasing a reusable buffer, as zero-copy request params do.
	buf := []byte("aaaa1111")
	id := unsafe.String(&buf[0], len(buf))
	require.NoError(t, s.Save(ctx, &models.SessionBuild{SessionID: id}))
	copy(buf, "zzzz9999")

	got, err := s.Get(ctx, "aaaa1111")
	require.NoError(t, err)
	assert.Equal(t, "aaaa1111", got.SessionID)
	assert.Equal(t, []string{"aaaa1111"}, s.SessionIDs())
}

func TestMemorySessionBuildStore_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySessionBuildStore()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	build := func(id string, expires time.Time) models.Build {
		return models.Build{BuildID: id, CreatedAt: expires.Add(-time.Hour), ExpiresAt: expires}
	}
	require.NoError(t, s.Save(ctx, &models.SessionBuild{SessionID: "expired", Builds: []models.Build{
		build("a", now.Add(-time.Minute)),
		build("b", now.Add(-time.Hour)),
	}}))
	require.NoError(t, s.Save(ctx, &models.SessionBuild{SessionID: "mixed", Builds: []models.Build{
		build("a", now.Add(-time.Minute)),
		build("b", now.Add(time.Hour)),
	}}))
	require.NoError(t, s.Save(ctx, &models.SessionBuild{SessionID: "boundary", Builds: []models.Build{
		build("a", now),
	}}))
	require.NoError(t, s.Save(ctx, &models.SessionBuild{SessionID: "empty", Builds: []models.Build{}}))

	deleted, err := s.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
	assert.Equal(t, []string{"boundary", "mixed"}, s.SessionIDs())

	mixed, err := s.Get(ctx, "mixed")
	require.NoError(t, err)
	assert.Len(t, mixed.Builds, 2)
}

func TestMemoryCachedQueryStore_PutOverwritesAndPrunes(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryCachedQueryStore()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	filter := models.ComponentFilter{Type: "CPU"}
	first := &models.CachedQuery{
		QueryType: models.QueryTypeComponentSearch, QueryKey: filter.CacheKey(), QueryParams: filter,
		Results: []models.Component{{ModelName: "old"}}, Timestamp: now.Add(-2 * time.Hour),
	}
	require.NoError(t, s.Put(ctx, first))
	second := &models.CachedQuery{
		QueryType: models.QueryTypeComponentSearch, QueryKey: filter.CacheKey(), QueryParams: filter,
		Results: []models.Component{{ModelName: "new"}}, Timestamp: now,
	}
	require.NoError(t, s.Put(ctx, second))
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, first.ID, second.ID)

	got, err := s.Get(ctx, models.QueryTypeComponentSearch, filter.CacheKey())
	require.NoError(t, err)
	assert.Equal(t, "new", got.Results[0].ModelName)

	stale := &models.CachedQuery{
		QueryType: models.QueryTypeComponentSearch, QueryKey: "stale", Timestamp: now.Add(-25 * time.Hour),
	}
	edge := &models.CachedQuery{
		QueryType: models.QueryTypeComponentSearch, QueryKey: "edge", Timestamp: now.Add(-24 * time.Hour),
	}
	require.NoError(t, s.Put(ctx, stale))
	require.NoError(t, s.Put(ctx, edge))

	deleted, err := s.DeleteOlderThan(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	assert.Equal(t, 2, s.Len())

	_, err = s.Get(ctx, models.QueryTypeComponentSearch, "stale")
	assert.ErrorIs(t, err, ErrNotFound)
}
