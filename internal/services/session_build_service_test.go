package services

import (
	"context"
	"testing"
	"time"

	"pcbuilder/internal/models"
	"pcbuilder/internal/store"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSessionService() (*SessionBuildService, *store.MemorySessionBuildStore, clockwork.FakeClock) {
	sessions := store.NewMemorySessionBuildStore()
	clock := clockwork.NewFakeClockAt(testNow)
	return NewSessionBuildService(sessions, 7*24*time.Hour, clock), sessions, clock
}

func priceOf(v float64) *float64 { return &v }

func TestCreateOrUpdate_NewSessionGetsOneBuild(t *testing.T) {
	ctx := context.Background()
	svc, sessions, _ := newSessionService()

	session, err := svc.CreateOrUpdate(ctx, "sess-1", BuildInput{
		BuildID: "b1",
		Components: []models.BuildComponent{
			{Type: "CPU", ModelName: "Ryzen 5 5600X", Price: 199},
			{Type: "GPU", ModelName: "RTX 3060", Price: 329},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"sess-1"}, sessions.SessionIDs())
	require.Len(t, session.Builds, 1)
	build := session.Builds[0]
	assert.Equal(t, "b1", build.BuildID)
	assert.Equal(t, testNow, build.CreatedAt)
	assert.Equal(t, build.CreatedAt.Add(7*24*time.Hour), build.ExpiresAt)
	assert.Equal(t, 528.0, build.TotalPrice)
	assert.False(t, build.AIGenerated)
}

func TestCreateOrUpdate_ReplacesExistingBuild(t *testing.T) {
	ctx := context.Background()
	svc, _, clock := newSessionService()

	_, err := svc.CreateOrUpdate(ctx, "sess-1", BuildInput{
		BuildID:    "b1",
		Components: []models.BuildComponent{{Type: "CPU", ModelName: "Ryzen 5 5600X", Price: 199}},
	})
	require.NoError(t, err)
	_, err = svc.CreateOrUpdate(ctx, "sess-1", BuildInput{
		Components: []models.BuildComponent{{Type: "GPU", ModelName: "RTX 3060", Price: 329}},
	})
	require.NoError(t, err)

	clock.Advance(time.Hour)
	session, err := svc.CreateOrUpdate(ctx, "sess-1", BuildInput{
		BuildID:    "b1",
		Components: []models.BuildComponent{{Type: "CPU", ModelName: "Ryzen 7 5800X3D", Price: 329}},
		TotalPrice: priceOf(300),
	})
	require.NoError(t, err)
	require.Len(t, session.Builds, 2)
	assert.Equal(t, "b1", session.Builds[0].BuildID)
	assert.Equal(t, 300.0, session.Builds[0].TotalPrice)
	assert.Equal(t, testNow.Add(time.Hour), session.Builds[0].CreatedAt)
	assert.NotEmpty(t, session.Builds[1].BuildID)
}

func TestCreateOrUpdate_Validation(t *testing.T) {
	ctx := context.Background()
	svc, sessions, _ := newSessionService()
	created := testNow.Add(time.Hour)

	_, err := svc.CreateOrUpdate(ctx, "sess-1", BuildInput{
		Components: []models.BuildComponent{{Type: " ", ModelName: "", Price: 0}},
		CreatedAt:  &created,
		ExpiresAt:  &created,
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	var fields []string
	for _, f := range verr.Fields {
		fields = append(fields, f.Field)
	}
	assert.Equal(t, []string{
		"components[0].type",
		"components[0].modelName",
		"components[0].price",
		"totalPrice",
		"expiresAt",
	}, fields)
	assert.Empty(t, sessions.SessionIDs())
}

func TestSessionBuildService_ReadsAndDeletes(t *testing.T) {
	ctx := context.Background()
	svc, sessions, _ := newSessionService()

	_, err := svc.ListBuilds(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = svc.CreateOrUpdate(ctx, "sess-1", BuildInput{
		BuildID:    "b1",
		Components: []models.BuildComponent{{Type: "CPU", ModelName: "Ryzen 5 5600X", Price: 199}},
	})
	require.NoError(t, err)

	build, err := svc.GetBuild(ctx, "sess-1", "b1")
	require.NoError(t, err)
	assert.Equal(t, 199.0, build.TotalPrice)

	_, err = svc.GetBuild(ctx, "sess-1", "nope")
	assert.ErrorIs(t, err, ErrBuildNotFound)

	assert.ErrorIs(t, svc.DeleteBuild(ctx, "sess-1", "nope"), ErrBuildNotFound)
	require.NoError(t, svc.DeleteBuild(ctx, "sess-1", "b1"))

	builds, err := svc.ListBuilds(ctx, "sess-1")
	require.NoError(t, err)
	assert.Empty(t, builds)

	require.NoError(t, svc.DeleteSession(ctx, "sess-1"))
	assert.ErrorIs(t, svc.DeleteSession(ctx, "sess-1"), ErrSessionNotFound)
	assert.Empty(t, sessions.SessionIDs())
}

func TestSessionBuildService_ExpiredBuildsStayReadableUntilSwept(t *testing.T) {
	ctx := context.Background()
	svc, sessions, clock := newSessionService()

	_, err := svc.CreateOrUpdate(ctx, "sess-1", BuildInput{
		BuildID:    "old",
		Components: []models.BuildComponent{{Type: "CPU", ModelName: "Ryzen 5 5600X", Price: 199}},
	})
	require.NoError(t, err)
	clock.Advance(6 * 24 * time.Hour)
	_, err = svc.CreateOrUpdate(ctx, "sess-1", BuildInput{
		BuildID:    "new",
		Components: []models.BuildComponent{{Type: "GPU", ModelName: "RTX 3060", Price: 329}},
	})
	require.NoError(t, err)
	clock.Advance(2 * 24 * time.Hour)

	builds, err := svc.ListBuilds(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, builds, 2)
	assert.True(t, builds[0].ExpiresAt.Before(clock.Now()))

	old, err := svc.GetBuild(ctx, "sess-1", "old")
	require.NoError(t, err)
	assert.Equal(t, 199.0, old.TotalPrice)

	deleted, err := sessions.DeleteExpired(ctx, clock.Now())
	require.NoError(t, err)
	assert.Zero(t, deleted, "one live build keeps the session")
}

func TestNewBuild_StampsWindow(t *testing.T) {
	svc, _, _ := newSessionService()
	build := svc.NewBuild(nil, 100, true)
	assert.NotEmpty(t, build.BuildID)
	assert.True(t, build.AIGenerated)
	assert.True(t, build.ExpiresAt.After(build.CreatedAt))
	assert.Equal(t, svc.Horizon(), build.ExpiresAt.Sub(build.CreatedAt))
}
