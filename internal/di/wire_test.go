package di

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigenfolio/eigenfolio/internal/config"
	"github.com/eigenfolio/eigenfolio/internal/modules/selection"
	"github.com/eigenfolio/eigenfolio/internal/modules/settings"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DataDir:      t.TempDir(),
		Port:         8010,
		NumAssets:    4,
		Budget:       2,
		RiskAversion: 0.5,
		Seed:         42,
	}
}

func TestWire(t *testing.T) {
	cfg := testConfig(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)

	container, err := Wire(cfg, log)
	require.NoError(t, err)
	defer container.Close()

	assert.NotNil(t, container.UniverseDB)
	assert.NotNil(t, container.RunsDB)
	assert.NotNil(t, container.ConfigDB)
	assert.NotNil(t, container.MarketService)
	assert.NotNil(t, container.SelectionService)
	assert.NotNil(t, container.Broadcaster)
	assert.NotNil(t, container.BackupService)
	assert.Nil(t, container.R2BackupService, "no credentials, cloud backups off")
	assert.Len(t, container.Databases(), 3)

	// A wired container can execute a full solve.
	run, err := container.SelectionService.Solve(context.Background(), selection.SolveRequest{})
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
}

func TestWire_SettingsOverrideDefaults(t *testing.T) {
	cfg := testConfig(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)

	// First container seeds a settings value.
	container, err := Wire(cfg, log)
	require.NoError(t, err)
	require.NoError(t, container.SettingsRepo.SetInt(settings.KeyBudget, 3))
	container.Close()

	// A fresh wire picks up the stored override.
	cfg2 := testConfig(t)
	cfg2.DataDir = cfg.DataDir
	container2, err := Wire(cfg2, log)
	require.NoError(t, err)
	defer container2.Close()

	assert.Equal(t, 3, cfg2.Budget)
}

func TestWire_RejectsInvalidOverrides(t *testing.T) {
	cfg := testConfig(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)

	container, err := Wire(cfg, log)
	require.NoError(t, err)
	// Budget larger than the universe is caught at wire time.
	require.NoError(t, container.SettingsRepo.SetInt(settings.KeyBudget, 99))
	container.Close()

	cfg2 := testConfig(t)
	cfg2.DataDir = cfg.DataDir
	_, err = Wire(cfg2, log)
	assert.Error(t, err)
}
