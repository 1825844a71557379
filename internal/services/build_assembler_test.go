package services

import (
	"context"
	"errors"
	"testing"

	"pcbuilder/internal/models"
	"pcbuilder/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type assemblerFixture struct {
	catalog  *store.MemoryComponentStore
	sessions *store.MemorySessionBuildStore
	source   *fakeSource
	asm      *BuildAssembler
}

func newAssemblerFixture(t *testing.T, catalog ...models.Component) *assemblerFixture {
	t.Helper()
	f := &assemblerFixture{
		catalog: store.NewMemoryComponentStore(),
		source:  &fakeSource{details: map[string]*models.Component{}, detailErr: map[string]error{}},
	}
	require.NoError(t, seedCatalog(context.Background(), f.catalog, catalog...))
	svc, sessions, _ := newSessionService()
	f.sessions = sessions
	f.asm = NewBuildAssembler(f.source, f.catalog, svc)
	return f
}

func (f *assemblerFixture) catalogSize(t *testing.T) int {
	t.Helper()
	all, err := f.catalog.Find(context.Background(), models.ComponentFilter{})
	require.NoError(t, err)
	return len(all)
}

var autoRequest = AutoBuildRequest{Budget: 1000, Preferences: "quiet gaming", SessionID: "sess-1"}

func TestGenerate_ReusesExistingCatalogEntry(t *testing.T) {
	ctx := context.Background()
	f := newAssemblerFixture(t,
		comp("CPU", "AMD", "Ryzen 5 5600X", 189, map[string]interface{}{"socket": "AM4", "powerDraw": 65}),
		comp("Motherboard", "MSI", "B550 Tomahawk", 150, map[string]interface{}{"socket": "AM4", "memoryType": "DDR4"}),
	)
	f.source.parts = []RecommendedPart{
		{Category: "CPU", ModelName: "  ryzen 5 5600x "},
		{Category: "Motherboard", ModelName: "B550 Tomahawk"},
	}

	build, err := f.asm.Generate(ctx, autoRequest)
	require.NoError(t, err)

	assert.Empty(t, f.source.described)
	assert.Equal(t, 2, f.catalogSize(t))
	assert.True(t, build.AIGenerated)
	assert.Equal(t, 339.0, build.TotalPrice)
	assert.Equal(t, []models.BuildComponent{
		{Type: "CPU", ModelName: "Ryzen 5 5600X", Price: 189},
		{Type: "Motherboard", ModelName: "B550 Tomahawk", Price: 150},
	}, build.Components)
	assert.Equal(t, DefaultBuildExpiry, build.ExpiresAt.Sub(build.CreatedAt))

	session, err := f.sessions.Get(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, session.Builds, 1)
	assert.Equal(t, build.BuildID, session.Builds[0].BuildID)
}

func TestGenerate_CreatesMissingComponents(t *testing.T) {
	ctx := context.Background()
	f := newAssemblerFixture(t)
	f.source.parts = []RecommendedPart{{Category: "PSU", ModelName: "Corsair RM850x"}}
	f.source.details["Corsair RM850x"] = &models.Component{
		Type: "PSU", Brand: "Corsair", ModelName: " Corsair RM850x ", Price: 0,
		Specs: map[string]interface{}{"wattage": 850},
	}

	build, err := f.asm.Generate(ctx, autoRequest)
	require.NoError(t, err)
	assert.Equal(t, []string{"Corsair RM850x"}, f.source.described)

	stored, err := f.catalog.FindOne(ctx, models.ComponentFilter{ModelName: "corsair rm850x"})
	require.NoError(t, err)
	assert.Equal(t, "Corsair RM850x", stored.ModelName)
	assert.Zero(t, build.TotalPrice)
}

func TestGenerate_DetailNamingExistingModelIsReused(t *testing.T) {
	ctx := context.Background()
	f := newAssemblerFixture(t, comp("GPU", "NVIDIA", "GeForce RTX 4070", 599, nil))
	f.source.parts = []RecommendedPart{{Category: "GPU", ModelName: "RTX 4070"}}
	f.source.details["RTX 4070"] = &models.Component{Type: "GPU", Brand: "NVIDIA", ModelName: "GeForce RTX 4070", Price: 550}

	build, err := f.asm.Generate(ctx, autoRequest)
	require.NoError(t, err)
	assert.Equal(t, 1, f.catalogSize(t))
	assert.Equal(t, 599.0, build.TotalPrice)
}

func TestGenerate_UpstreamFailureAbortsWithoutBuild(t *testing.T) {
	ctx := context.Background()
	f := newAssemblerFixture(t)
	f.source.parts = []RecommendedPart{
		{Category: "CPU", ModelName: "Ryzen 5 7600"},
		{Category: "GPU", ModelName: "Mystery GPU"},
	}
	f.source.details["Ryzen 5 7600"] = &models.Component{Type: "CPU", Brand: "AMD", ModelName: "Ryzen 5 7600", Price: 220}
	f.source.detailErr["Mystery GPU"] = &UpstreamError{Op: "describe_component", Err: ErrMissingModelName}

	_, err := f.asm.Generate(ctx, autoRequest)
	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.ErrorIs(t, err, ErrMissingModelName)

	// The part resolved before the failure stays in the catalog.
	assert.Equal(t, 1, f.catalogSize(t))
	assert.Empty(t, f.sessions.SessionIDs())
}

func TestGenerate_RecommendationErrorAborts(t *testing.T) {
	f := newAssemblerFixture(t)
	f.source.partsErr = &UpstreamError{Op: "recommend_parts", Err: errors.New("timeout")}

	_, err := f.asm.Generate(context.Background(), autoRequest)
	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Empty(t, f.sessions.SessionIDs())
}

func TestGenerate_IncompatiblePartsAreRejected(t *testing.T) {
	ctx := context.Background()
	f := newAssemblerFixture(t,
		comp("CPU", "Intel", "Core i5-13600K", 300, map[string]interface{}{"socket": "LGA1700", "powerDraw": 125}),
		comp("Motherboard", "MSI", "B550 Tomahawk", 150, map[string]interface{}{"socket": "AM4"}),
	)
	f.source.parts = []RecommendedPart{
		{Category: "CPU", ModelName: "Core i5-13600K"},
		{Category: "Motherboard", ModelName: "B550 Tomahawk"},
		{Category: "PSU", ModelName: "Tiny 100W"},
	}
	f.source.details["Tiny 100W"] = &models.Component{
		Type: "PSU", Brand: "Generic", ModelName: "Tiny 100W", Price: 20,
		Specs: map[string]interface{}{"wattage": "100W"},
	}

	_, err := f.asm.Generate(ctx, autoRequest)
	var incompatible *CompatibilityError
	require.ErrorAs(t, err, &incompatible)
	assert.Len(t, incompatible.Issues, 2)

	assert.Empty(t, f.sessions.SessionIDs())
	assert.Equal(t, 3, f.catalogSize(t))
}

func TestGenerate_AppendsToExistingSession(t *testing.T) {
	ctx := context.Background()
	f := newAssemblerFixture(t, comp("Case", "NZXT", "H510", 70, nil))
	f.source.parts = []RecommendedPart{{Category: "Case", ModelName: "H510"}}

	first, err := f.asm.Generate(ctx, autoRequest)
	require.NoError(t, err)
	second, err := f.asm.Generate(ctx, autoRequest)
	require.NoError(t, err)
	assert.NotEqual(t, first.BuildID, second.BuildID)

	session, err := f.sessions.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Len(t, session.Builds, 2)
}

func TestGenerate_RejectsInvalidRequest(t *testing.T) {
	f := newAssemblerFixture(t)

	_, err := f.asm.Generate(context.Background(), AutoBuildRequest{Budget: 0, SessionID: " "})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 2)
}
