package reliability

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigenfolio/eigenfolio/internal/database"
)

func testBackupService(t *testing.T) (*BackupService, string) {
	t.Helper()
	dataDir := t.TempDir()

	databases := make(map[string]*database.DB)
	for name, profile := range map[string]database.DatabaseProfile{
		"universe": database.ProfileCache,
		"runs":     database.ProfileRuns,
		"config":   database.ProfileStandard,
	} {
		db, err := database.New(database.Config{
			Path:    filepath.Join(dataDir, name+".db"),
			Profile: profile,
			Name:    name,
		})
		require.NoError(t, err)
		t.Cleanup(func() { db.Close() })

		_, err = db.Exec("CREATE TABLE sample (id INTEGER PRIMARY KEY, value TEXT)")
		require.NoError(t, err)
		_, err = db.Exec("INSERT INTO sample (value) VALUES (?)", name)
		require.NoError(t, err)

		databases[name] = db
	}

	backupDir := filepath.Join(dataDir, "backups")
	return NewBackupService(databases, dataDir, backupDir, zerolog.New(nil).Level(zerolog.Disabled)), backupDir
}

func TestGetDatabaseNames(t *testing.T) {
	svc, _ := testBackupService(t)

	all := svc.GetDatabaseNames(true)
	assert.Equal(t, []string{"config", "runs", "universe"}, all)

	durable := svc.GetDatabaseNames(false)
	assert.Equal(t, []string{"config", "runs"}, durable, "cache-profile universe excluded")
}

func TestBackupDatabase(t *testing.T) {
	svc, backupDir := testBackupService(t)
	require.NoError(t, os.MkdirAll(backupDir, 0755))

	dest := filepath.Join(backupDir, "runs.db")
	require.NoError(t, svc.BackupDatabase("runs", dest))

	info, err := os.Stat(dest)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	require.NoError(t, svc.VerifyBackup(dest))

	// Overwriting an existing snapshot works.
	require.NoError(t, svc.BackupDatabase("runs", dest))
}

func TestBackupDatabase_UnknownName(t *testing.T) {
	svc, backupDir := testBackupService(t)
	err := svc.BackupDatabase("history", filepath.Join(backupDir, "history.db"))
	assert.Error(t, err)
}

func TestBackupAll(t *testing.T) {
	svc, _ := testBackupService(t)

	paths, err := svc.BackupAll()
	require.NoError(t, err)
	require.Len(t, paths, 3)
	for _, path := range paths {
		require.NoError(t, svc.VerifyBackup(path))
	}
}
