// Package reliability provides database backup, restore, and cloud
// replication for the three application databases (universe, runs, config).
package reliability

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"

	"github.com/eigenfolio/eigenfolio/internal/database"
)

// BackupService creates consistent snapshots of the application databases
// using SQLite's VACUUM INTO, which is safe against a live WAL-mode database.
type BackupService struct {
	databases map[string]*database.DB
	dataDir   string
	backupDir string
	log       zerolog.Logger
}

// NewBackupService creates a backup service over the given named databases.
func NewBackupService(databases map[string]*database.DB, dataDir, backupDir string, log zerolog.Logger) *BackupService {
	return &BackupService{
		databases: databases,
		dataDir:   dataDir,
		backupDir: backupDir,
		log:       log.With().Str("service", "backup").Logger(),
	}
}

// GetDatabaseNames returns the names of the managed databases, sorted for
// stable archive layouts. includeCache controls whether the regenerable
// universe database is included.
func (s *BackupService) GetDatabaseNames(includeCache bool) []string {
	names := make([]string, 0, len(s.databases))
	for name, db := range s.databases {
		if !includeCache && db.Profile() == database.ProfileCache {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BackupDatabase snapshots one database to destPath.
func (s *BackupService) BackupDatabase(name, destPath string) error {
	db, ok := s.databases[name]
	if !ok {
		return fmt.Errorf("unknown database %q", name)
	}

	// VACUUM INTO refuses to overwrite.
	if err := os.Remove(destPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear destination: %w", err)
	}

	if _, err := db.Exec("VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("vacuum into failed for %s: %w", name, err)
	}

	s.log.Debug().Str("database", name).Str("dest", destPath).Msg("Database backed up")
	return nil
}

// BackupAll snapshots every managed database into the backup directory and
// returns the created file paths.
func (s *BackupService) BackupAll() ([]string, error) {
	if err := os.MkdirAll(s.backupDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	var paths []string
	for _, name := range s.GetDatabaseNames(true) {
		dest := filepath.Join(s.backupDir, name+".db")
		if err := s.BackupDatabase(name, dest); err != nil {
			return nil, err
		}
		paths = append(paths, dest)
	}
	return paths, nil
}

// VerifyBackup opens a snapshot file read-only and runs an integrity check.
func (s *BackupService) VerifyBackup(path string) error {
	conn, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return fmt.Errorf("failed to open backup: %w", err)
	}
	defer conn.Close()

	var result string
	if err := conn.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("backup %s failed integrity check: %s", path, result)
	}
	return nil
}
