package reliability

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	pendingRestoreMarker = "pending-restore.json"
	restoreStagingDir    = "restore-staging"
)

// pendingRestore is the marker written when a restore is staged. The restore
// itself runs on the next startup, before any database is opened.
type pendingRestore struct {
	Archive  string    `json:"archive"`
	StagedAt time.Time `json:"staged_at"`
}

// RestoreService stages backup archives for restore and executes staged
// restores on startup. The R2 client may be nil; staging from the cloud is
// then unavailable but startup restore checks still work.
type RestoreService struct {
	r2Client *R2Client
	dataDir  string
	log      zerolog.Logger
}

// NewRestoreService creates the restore service.
func NewRestoreService(r2Client *R2Client, dataDir string, log zerolog.Logger) *RestoreService {
	return &RestoreService{
		r2Client: r2Client,
		dataDir:  dataDir,
		log:      log.With().Str("service", "restore").Logger(),
	}
}

// StageRestore downloads a backup archive from R2 into the staging directory
// and writes the pending-restore marker. Databases are not touched; the
// restore executes on the next startup, while no connections are open.
func (s *RestoreService) StageRestore(ctx context.Context, archiveName string) error {
	if s.r2Client == nil {
		return fmt.Errorf("cloud backups not configured")
	}
	if !strings.HasPrefix(archiveName, backupPrefix) || !strings.HasSuffix(archiveName, ".tar.gz") {
		return fmt.Errorf("invalid archive name %q", archiveName)
	}

	stagingDir := filepath.Join(s.dataDir, restoreStagingDir)
	if err := os.RemoveAll(stagingDir); err != nil {
		return fmt.Errorf("failed to clear staging directory: %w", err)
	}
	if err := os.MkdirAll(stagingDir, 0755); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}

	body, err := s.r2Client.Download(ctx, archiveName)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", archiveName, err)
	}
	defer body.Close()

	archivePath := filepath.Join(stagingDir, archiveName)
	archiveFile, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("failed to create staged archive: %w", err)
	}
	if _, err := io.Copy(archiveFile, body); err != nil {
		archiveFile.Close()
		return fmt.Errorf("failed to write staged archive: %w", err)
	}
	archiveFile.Close()

	marker := pendingRestore{Archive: archiveName, StagedAt: time.Now().UTC()}
	markerPath := filepath.Join(s.dataDir, pendingRestoreMarker)
	data, err := json.MarshalIndent(marker, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(markerPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write restore marker: %w", err)
	}

	s.log.Warn().Str("archive", archiveName).Msg("Restore staged, restart to apply")
	return nil
}

// CheckPendingRestore reports whether a staged restore is waiting.
func (s *RestoreService) CheckPendingRestore() (bool, error) {
	_, err := os.Stat(filepath.Join(s.dataDir, pendingRestoreMarker))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ExecuteStagedRestore extracts the staged archive, verifies every database
// file against the manifest checksums, and swaps the files into place. The
// replaced databases are kept beside the new ones with a .pre-restore suffix.
// Must be called before any database connection is opened.
func (s *RestoreService) ExecuteStagedRestore() error {
	markerPath := filepath.Join(s.dataDir, pendingRestoreMarker)
	data, err := os.ReadFile(markerPath)
	if err != nil {
		return fmt.Errorf("failed to read restore marker: %w", err)
	}

	var marker pendingRestore
	if err := json.Unmarshal(data, &marker); err != nil {
		return fmt.Errorf("malformed restore marker: %w", err)
	}

	stagingDir := filepath.Join(s.dataDir, restoreStagingDir)
	archivePath := filepath.Join(stagingDir, marker.Archive)
	if err := extractArchive(archivePath, stagingDir); err != nil {
		return fmt.Errorf("failed to extract %s: %w", marker.Archive, err)
	}

	metadataPath := filepath.Join(stagingDir, "backup-metadata.json")
	metadataRaw, err := os.ReadFile(metadataPath)
	if err != nil {
		return fmt.Errorf("archive has no manifest: %w", err)
	}
	var metadata BackupMetadata
	if err := json.Unmarshal(metadataRaw, &metadata); err != nil {
		return fmt.Errorf("malformed manifest: %w", err)
	}

	for _, db := range metadata.Databases {
		stagedPath := filepath.Join(stagingDir, db.Filename)
		checksum, err := checksumFile(stagedPath)
		if err != nil {
			return fmt.Errorf("failed to checksum %s: %w", db.Filename, err)
		}
		if checksum != db.Checksum {
			return fmt.Errorf("checksum mismatch for %s: got %s, want %s", db.Filename, checksum, db.Checksum)
		}
	}

	for _, db := range metadata.Databases {
		livePath := filepath.Join(s.dataDir, db.Filename)
		if _, err := os.Stat(livePath); err == nil {
			if err := os.Rename(livePath, livePath+".pre-restore"); err != nil {
				return fmt.Errorf("failed to set aside %s: %w", db.Filename, err)
			}
		}
		if err := os.Rename(filepath.Join(stagingDir, db.Filename), livePath); err != nil {
			return fmt.Errorf("failed to install %s: %w", db.Filename, err)
		}
		// WAL/SHM sidecars belong to the replaced database.
		os.Remove(livePath + "-wal")
		os.Remove(livePath + "-shm")
		s.log.Info().Str("database", db.Name).Msg("Database restored")
	}

	if err := os.Remove(markerPath); err != nil {
		return fmt.Errorf("failed to clear restore marker: %w", err)
	}
	if err := os.RemoveAll(stagingDir); err != nil {
		s.log.Warn().Err(err).Msg("Failed to remove restore staging directory")
	}

	s.log.Info().Str("archive", marker.Archive).Time("staged_at", marker.StagedAt).Msg("Staged restore completed")
	return nil
}

func extractArchive(archivePath, destDir string) error {
	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer archiveFile.Close()

	gzipReader, err := gzip.NewReader(archiveFile)
	if err != nil {
		return err
	}
	defer gzipReader.Close()

	tarReader := tar.NewReader(gzipReader)
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		// Archives are flat; reject anything that would escape destDir.
		name := filepath.Base(header.Name)
		if name != header.Name || header.Typeflag != tar.TypeReg {
			return fmt.Errorf("unexpected archive member %q", header.Name)
		}

		outFile, err := os.Create(filepath.Join(destDir, name))
		if err != nil {
			return err
		}
		if _, err := io.Copy(outFile, tarReader); err != nil {
			outFile.Close()
			return err
		}
		outFile.Close()
	}
	return nil
}
