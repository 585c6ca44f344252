// Package di provides dependency injection wiring for the application.
// The Container is the single source of truth for database handles,
// repositories, and services; it is created once by Wire and passed down to
// the HTTP server and scheduler.
package di

import (
	"github.com/eigenfolio/eigenfolio/internal/database"
	"github.com/eigenfolio/eigenfolio/internal/modules/market"
	"github.com/eigenfolio/eigenfolio/internal/modules/selection"
	"github.com/eigenfolio/eigenfolio/internal/modules/settings"
	"github.com/eigenfolio/eigenfolio/internal/reliability"
)

// Container holds all application dependencies.
//
// Databases follow the 3-database layout:
//   - universe.db (cache profile): regenerable synthetic market data
//   - runs.db (runs profile): durable solver run history
//   - config.db (standard profile): runtime settings
type Container struct {
	// Databases
	UniverseDB *database.DB
	RunsDB     *database.DB
	ConfigDB   *database.DB

	// Repositories
	MarketRepo   *market.Repository
	RunsRepo     *selection.Repository
	SettingsRepo *settings.Repository

	// Services
	MarketService    *market.Service
	SelectionService *selection.Service
	Broadcaster      *selection.Broadcaster

	// Reliability (R2BackupService is nil when backups are not configured)
	BackupService   *reliability.BackupService
	R2BackupService *reliability.R2BackupService
	RestoreService  *reliability.RestoreService
}

// Databases returns the managed database handles.
func (c *Container) Databases() []*database.DB {
	return []*database.DB{c.UniverseDB, c.RunsDB, c.ConfigDB}
}

// Close closes all database connections.
func (c *Container) Close() {
	for _, db := range c.Databases() {
		if db != nil {
			db.Close()
		}
	}
}
