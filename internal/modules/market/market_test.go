package market

import (
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigenfolio/eigenfolio/internal/database"
)

func testService(t *testing.T) *Service {
	t.Helper()

	db, err := database.New(database.Config{
		Path:    fmt.Sprintf("file:market_%s?mode=memory&cache=shared", t.Name()),
		Profile: database.ProfileCache,
		Name:    "universe-test",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := zerolog.New(nil).Level(zerolog.Disabled)
	repo := NewRepository(db.Conn(), log)
	require.NoError(t, repo.InitSchema())
	return NewService(repo, log)
}

func TestGenerate_Deterministic(t *testing.T) {
	cfg := DefaultGeneratorConfig(4, 99)

	a, err := Generate(cfg)
	require.NoError(t, err)
	b, err := Generate(cfg)
	require.NoError(t, err)

	assert.Equal(t, a.ExpectedReturns, b.ExpectedReturns)
	assert.Equal(t, a.Prices(), b.Prices())
	for i := range a.Assets {
		assert.Equal(t, a.Assets[i].Drift, b.Assets[i].Drift)
	}
}

func TestGenerate_Shape(t *testing.T) {
	u, err := Generate(DefaultGeneratorConfig(5, 7))
	require.NoError(t, err)

	assert.Len(t, u.Assets, 5)
	assert.Len(t, u.ExpectedReturns, 5)
	assert.Len(t, u.Stats, 5)
	assert.Equal(t, 5, u.Covariance.SymmetricDim())
	require.Len(t, u.Prices(), 5)
	assert.Len(t, u.Prices()[0], DefaultPeriods)

	for _, series := range u.Prices() {
		for _, price := range series {
			assert.Greater(t, price, 0.0, "GBM prices stay positive")
		}
	}

	// Covariance diagonal is a variance, so non-negative.
	for i := 0; i < 5; i++ {
		assert.GreaterOrEqual(t, u.Covariance.At(i, i), 0.0)
	}
}

func TestGenerate_Validation(t *testing.T) {
	cfg := DefaultGeneratorConfig(0, 1)
	_, err := Generate(cfg)
	assert.Error(t, err)

	cfg = DefaultGeneratorConfig(3, 1)
	cfg.Periods = 2
	_, err = Generate(cfg)
	assert.Error(t, err)

	cfg = DefaultGeneratorConfig(3, 1)
	cfg.Correlation = 1.0
	_, err = Generate(cfg)
	assert.Error(t, err)
}

func TestRepository_SaveLoadRoundTrip(t *testing.T) {
	svc := testService(t)

	generated, err := svc.Regenerate(4, 42)
	require.NoError(t, err)

	loaded, err := svc.repo.Load(42)
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Len(t, loaded.Assets, 4)
	assert.Equal(t, generated.Periods, loaded.Periods)
	require.Len(t, loaded.Prices(), 4)
	// Assets come back sorted by symbol, which matches generation order
	// (SYN00, SYN01, ...).
	for i := range generated.Assets {
		assert.Equal(t, generated.Assets[i].Symbol, loaded.Assets[i].Symbol)
		assert.InDelta(t, generated.Assets[i].Drift, loaded.Assets[i].Drift, 1e-12)
		assert.InDeltaSlice(t, generated.Prices()[i], loaded.Prices()[i], 1e-12)
	}
}

func TestRepository_LoadMissingReturnsNil(t *testing.T) {
	svc := testService(t)

	loaded, err := svc.repo.Load(12345)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestService_GetUniverseReusesActive(t *testing.T) {
	svc := testService(t)

	first, err := svc.GetUniverse(4, 11)
	require.NoError(t, err)
	second, err := svc.GetUniverse(4, 11)
	require.NoError(t, err)
	assert.Same(t, first, second, "active universe is reused")

	// Changing the shape forces regeneration.
	third, err := svc.GetUniverse(5, 11)
	require.NoError(t, err)
	assert.Len(t, third.Assets, 5)
}

func TestService_RehydratesStoredUniverse(t *testing.T) {
	svc := testService(t)

	generated, err := svc.Regenerate(4, 21)
	require.NoError(t, err)

	// Drop the in-memory copy so the next request goes through storage.
	svc.setActive(nil)

	loaded, err := svc.GetUniverse(4, 21)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.NotSame(t, generated, loaded)

	require.Len(t, loaded.ExpectedReturns, 4)
	assert.InDeltaSlice(t, generated.ExpectedReturns, loaded.ExpectedReturns, 1e-9)
	require.NotNil(t, loaded.Covariance)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			assert.InDelta(t, generated.Covariance.At(i, j), loaded.Covariance.At(i, j), 1e-9)
		}
	}
}
