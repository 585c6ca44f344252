package settings

import (
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigenfolio/eigenfolio/internal/database"
)

func testRepository(t *testing.T) *Repository {
	t.Helper()

	db, err := database.New(database.Config{
		Path:    fmt.Sprintf("file:settings_%s?mode=memory&cache=shared", t.Name()),
		Profile: database.ProfileStandard,
		Name:    "config-test",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := NewRepository(db.Conn(), zerolog.New(nil).Level(zerolog.Disabled))
	require.NoError(t, repo.InitSchema())
	return repo
}

func TestRepository_GetMissingReturnsNil(t *testing.T) {
	repo := testRepository(t)

	value, err := repo.Get("nonexistent")
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestRepository_SetAndGet(t *testing.T) {
	repo := testRepository(t)

	desc := "number of assets in the synthetic universe"
	require.NoError(t, repo.Set(KeyNumAssets, "8", &desc))

	value, err := repo.Get(KeyNumAssets)
	require.NoError(t, err)
	require.NotNil(t, value)
	assert.Equal(t, "8", *value)

	// Upsert overwrites.
	require.NoError(t, repo.Set(KeyNumAssets, "6", nil))
	value, err = repo.Get(KeyNumAssets)
	require.NoError(t, err)
	assert.Equal(t, "6", *value)
}

func TestRepository_TypedAccessors(t *testing.T) {
	repo := testRepository(t)

	require.NoError(t, repo.SetFloat(KeyRiskAversion, 0.75))
	got, err := repo.GetFloat(KeyRiskAversion, 0.5)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, got, 1e-12)

	require.NoError(t, repo.SetInt(KeyBudget, 3))
	budget, err := repo.GetInt(KeyBudget, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, budget)

	// Ints stored as "3.0" still parse.
	require.NoError(t, repo.Set(KeyVQEReps, "3.0", nil))
	reps, err := repo.GetInt(KeyVQEReps, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, reps)

	require.NoError(t, repo.SetBool("pretty_logs", true))
	pretty, err := repo.GetBool("pretty_logs", false)
	require.NoError(t, err)
	assert.True(t, pretty)
}

func TestRepository_TypedAccessorDefaults(t *testing.T) {
	repo := testRepository(t)

	got, err := repo.GetFloat("missing", 1.25)
	require.NoError(t, err)
	assert.Equal(t, 1.25, got)

	require.NoError(t, repo.Set("garbage", "not-a-number", nil))
	fallback, err := repo.GetFloat("garbage", 2.5)
	require.NoError(t, err)
	assert.Equal(t, 2.5, fallback)
}

func TestRepository_GetAllAndDelete(t *testing.T) {
	repo := testRepository(t)

	require.NoError(t, repo.SetInt(KeyBudget, 2))
	require.NoError(t, repo.SetInt(KeyNumAssets, 5))

	all, err := repo.GetAll()
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, "2", all[KeyBudget])

	require.NoError(t, repo.Delete(KeyBudget))
	require.NoError(t, repo.Delete(KeyBudget)) // idempotent

	value, err := repo.Get(KeyBudget)
	require.NoError(t, err)
	assert.Nil(t, value)
}
