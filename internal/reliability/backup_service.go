package reliability

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

const metadataFileName = "backup_metadata.msgpack"

// Uploader pushes a finished archive to durable storage.
type Uploader interface {
	Upload(ctx context.Context, key string, body io.Reader) error
}

// DatabaseMetadata describes one database file captured in a backup.
type DatabaseMetadata struct {
	Name      string `msgpack:"name"`
	SizeBytes int64  `msgpack:"size_bytes"`
	Checksum  string `msgpack:"checksum"`
}

// BackupMetadata is the manifest stored alongside the database files
// inside each archive.
type BackupMetadata struct {
	ID        string             `msgpack:"id"`
	CreatedAt time.Time          `msgpack:"created_at"`
	Databases []DatabaseMetadata `msgpack:"databases"`
}

// BackupService archives the database files under dataDir and uploads
// the result.
type BackupService struct {
	dataDir  string
	uploader Uploader
	log      zerolog.Logger
}

// NewBackupService creates a backup service for dataDir.
func NewBackupService(dataDir string, uploader Uploader, log zerolog.Logger) *BackupService {
	return &BackupService{
		dataDir:  dataDir,
		uploader: uploader,
		log:      log.With().Str("service", "backup").Logger(),
	}
}

// CreateAndUpload builds an archive of all database files and uploads it.
// The staging directory is removed when the upload finishes.
func (s *BackupService) CreateAndUpload(ctx context.Context) (string, error) {
	stagingDir, err := os.MkdirTemp("", "backup-staging-")
	if err != nil {
		return "", fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(stagingDir)

	archivePath, meta, err := s.createArchive(stagingDir)
	if err != nil {
		return "", err
	}

	f, err := os.Open(archivePath)
	if err != nil {
		return "", fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	key := "backups/" + filepath.Base(archivePath)
	if err := s.uploader.Upload(ctx, key, f); err != nil {
		return "", err
	}

	s.log.Info().
		Str("backup_id", meta.ID).
		Str("key", key).
		Int("databases", len(meta.Databases)).
		Msg("Backup completed")
	return key, nil
}

// createArchive copies database files into stagingDir, writes the
// manifest, and produces a tar.gz next to them. Returns the archive
// path and manifest.
func (s *BackupService) createArchive(stagingDir string) (string, BackupMetadata, error) {
	meta := BackupMetadata{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
	}

	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		return "", meta, fmt.Errorf("failed to read data directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".db") {
			continue
		}

		src := filepath.Join(s.dataDir, entry.Name())
		dst := filepath.Join(stagingDir, entry.Name())
		size, checksum, err := copyAndChecksum(src, dst)
		if err != nil {
			return "", meta, fmt.Errorf("failed to stage %s: %w", entry.Name(), err)
		}

		meta.Databases = append(meta.Databases, DatabaseMetadata{
			Name:      entry.Name(),
			SizeBytes: size,
			Checksum:  checksum,
		})
		files = append(files, dst)
	}

	if len(files) == 0 {
		return "", meta, fmt.Errorf("no database files found in %s", s.dataDir)
	}

	manifestPath := filepath.Join(stagingDir, metadataFileName)
	manifest, err := msgpack.Marshal(meta)
	if err != nil {
		return "", meta, fmt.Errorf("failed to encode backup metadata: %w", err)
	}
	if err := os.WriteFile(manifestPath, manifest, 0o644); err != nil {
		return "", meta, fmt.Errorf("failed to write backup metadata: %w", err)
	}
	files = append(files, manifestPath)

	archiveName := fmt.Sprintf("backup-%s-%s.tar.gz",
		meta.CreatedAt.Format("20060102-150405"), meta.ID[:8])
	archivePath := filepath.Join(stagingDir, archiveName)
	if err := writeTarGz(archivePath, files); err != nil {
		return "", meta, fmt.Errorf("failed to create archive: %w", err)
	}

	return archivePath, meta, nil
}

func copyAndChecksum(src, dst string) (int64, string, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, "", err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return 0, "", err
	}
	defer out.Close()

	hash := sha256.New()
	size, err := io.Copy(io.MultiWriter(out, hash), in)
	if err != nil {
		return 0, "", err
	}

	return size, hex.EncodeToString(hash.Sum(nil)), nil
}

func writeTarGz(archivePath string, files []string) error {
	out, err := os.Create(archivePath)
	if err != nil {
		return err
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	defer gz.Close()

	tw := tar.NewWriter(gz)
	defer tw.Close()

	for _, file := range files {
		if err := addFileToTar(tw, file); err != nil {
			return err
		}
	}

	return nil
}

func addFileToTar(tw *tar.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	header.Name = filepath.Base(path)

	if err := tw.WriteHeader(header); err != nil {
		return err
	}
	_, err = io.Copy(tw, f)
	return err
}
