package di

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/eigenfolio/eigenfolio/internal/config"
	"github.com/eigenfolio/eigenfolio/internal/database"
	"github.com/eigenfolio/eigenfolio/internal/modules/market"
	"github.com/eigenfolio/eigenfolio/internal/modules/selection"
	"github.com/eigenfolio/eigenfolio/internal/modules/settings"
	"github.com/eigenfolio/eigenfolio/internal/reliability"
)

// Wire initializes all dependencies and returns a fully configured
// container. Order of operations:
//  1. Open databases
//  2. Initialize repositories and their schemas
//  3. Apply settings overrides to the config
//  4. Initialize services
func Wire(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	if err := initializeDatabases(container, cfg, log); err != nil {
		return nil, fmt.Errorf("failed to initialize databases: %w", err)
	}

	if err := initializeRepositories(container, log); err != nil {
		container.Close()
		return nil, fmt.Errorf("failed to initialize repositories: %w", err)
	}

	// Settings stored in config.db override environment defaults.
	if err := cfg.UpdateFromSettings(container.SettingsRepo); err != nil {
		log.Warn().Err(err).Msg("Failed to apply settings overrides")
	}
	if err := cfg.Validate(); err != nil {
		container.Close()
		return nil, fmt.Errorf("configuration invalid after settings overrides: %w", err)
	}

	initializeServices(container, cfg, log)

	log.Info().Msg("Dependency injection wiring completed")
	return container, nil
}

func initializeDatabases(c *Container, cfg *config.Config, log zerolog.Logger) error {
	var err error

	c.UniverseDB, err = database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "universe.db"),
		Profile: database.ProfileCache,
		Name:    "universe",
	})
	if err != nil {
		return fmt.Errorf("universe.db: %w", err)
	}

	c.RunsDB, err = database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "runs.db"),
		Profile: database.ProfileRuns,
		Name:    "runs",
	})
	if err != nil {
		c.Close()
		return fmt.Errorf("runs.db: %w", err)
	}

	c.ConfigDB, err = database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "config.db"),
		Profile: database.ProfileStandard,
		Name:    "config",
	})
	if err != nil {
		c.Close()
		return fmt.Errorf("config.db: %w", err)
	}

	log.Info().Str("data_dir", cfg.DataDir).Msg("Databases opened")
	return nil
}

func initializeRepositories(c *Container, log zerolog.Logger) error {
	c.MarketRepo = market.NewRepository(c.UniverseDB.Conn(), log)
	if err := c.MarketRepo.InitSchema(); err != nil {
		return err
	}

	c.RunsRepo = selection.NewRepository(c.RunsDB.Conn(), log)
	if err := c.RunsRepo.InitSchema(); err != nil {
		return err
	}

	c.SettingsRepo = settings.NewRepository(c.ConfigDB.Conn(), log)
	return c.SettingsRepo.InitSchema()
}

func initializeServices(c *Container, cfg *config.Config, log zerolog.Logger) {
	c.MarketService = market.NewService(c.MarketRepo, log)
	c.Broadcaster = selection.NewBroadcaster()
	c.SelectionService = selection.NewService(
		cfg,
		c.MarketService,
		c.RunsRepo,
		c.SettingsRepo,
		c.Broadcaster,
		log,
	)

	databases := map[string]*database.DB{
		"universe": c.UniverseDB,
		"runs":     c.RunsDB,
		"config":   c.ConfigDB,
	}
	backupDir := filepath.Join(cfg.DataDir, "backups")
	c.BackupService = reliability.NewBackupService(databases, cfg.DataDir, backupDir, log)

	var r2Client *reliability.R2Client
	if cfg.BackupConfigured() {
		client, err := reliability.NewR2Client(
			cfg.R2AccountID, cfg.R2AccessKeyID, cfg.R2SecretAccessKey, cfg.R2BucketName, log,
		)
		if err != nil {
			log.Error().Err(err).Msg("Failed to initialize R2 client, cloud backups disabled")
		} else {
			r2Client = client
			c.R2BackupService = reliability.NewR2BackupService(r2Client, c.BackupService, cfg.DataDir, log)
			log.Info().Str("bucket", cfg.R2BucketName).Msg("Cloud backups enabled")
		}
	}
	c.RestoreService = reliability.NewRestoreService(r2Client, cfg.DataDir, log)
}
