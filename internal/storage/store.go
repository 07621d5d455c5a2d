// Package storage persists uploaded files on the local filesystem.
// Database rows reference files by path relative to the store root.
package storage

import (
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Store is a local-filesystem file store rooted at a base directory.
type Store struct {
	baseDir string
	log     *zap.Logger
}

// New creates the store and its base directory.
func New(baseDir string, log *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &Store{baseDir: baseDir, log: log}, nil
}

// Save writes the content under subdir with a unique name derived from the
// original filename and returns the path relative to the store root along
// with the number of bytes written.
func (s *Store) Save(subdir, originalName string, r io.Reader) (string, int64, error) {
	dir := filepath.Join(s.baseDir, subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	storedName := uniqueName(originalName)
	relPath := filepath.Join(subdir, storedName)
	fullPath := filepath.Join(s.baseDir, relPath)

	f, err := os.Create(fullPath)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create file %s: %w", fullPath, err)
	}
	defer f.Close()

	size, err := io.Copy(f, r)
	if err != nil {
		// The partially written file is left behind; the caller never
		// records it so it is orphaned collateral, logged only.
		s.log.Error("Failed to write uploaded file",
			zap.String("path", fullPath), zap.Error(err))
		return "", 0, fmt.Errorf("failed to write file %s: %w", fullPath, err)
	}

	return relPath, size, nil
}

// FullPath resolves a stored relative path against the store root.
func (s *Store) FullPath(relPath string) string {
	return filepath.Join(s.baseDir, relPath)
}

// Rel converts an absolute path inside the store back to a stored relative
// path.
func (s *Store) Rel(fullPath string) (string, error) {
	return filepath.Rel(s.baseDir, fullPath)
}

// Exists reports whether the stored file is still present on disk.
func (s *Store) Exists(relPath string) bool {
	_, err := os.Stat(filepath.Join(s.baseDir, relPath))
	return err == nil
}

// uniqueName prefixes the sanitized original filename with a timestamp and
// a random suffix so repeated uploads of the same file never collide.
func uniqueName(originalName string) string {
	base := filepath.Base(originalName)
	base = strings.ReplaceAll(base, string(os.PathSeparator), "_")
	return fmt.Sprintf("%d-%d-%s", time.Now().UnixMilli(), rand.Intn(1_000_000_000), base)
}
