package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrOutsideRoot is returned when a path resolves outside the storage root.
// Stored paths are validated on every read and delete, not just at upload
// time, so a corrupted or tampered database value cannot reach other files.
var ErrOutsideRoot = errors.New("path resolves outside the storage root")

// LocalStorage stores attachments in a single flat directory. Filenames are
// generated, never derived from user input.
type LocalStorage struct {
	basePath string // canonical absolute storage root
}

// NewLocalStorage creates the storage root if needed and canonicalizes it
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage directory: %w", err)
	}
	abs, err := filepath.Abs(resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage directory: %w", err)
	}
	return &LocalStorage{basePath: abs}, nil
}

// BasePath returns the canonical storage root
func (s *LocalStorage) BasePath() string {
	return s.basePath
}

// Resolve validates that a stored path lies within the storage root and
// returns its canonical absolute form. Relative paths are taken as relative
// to the root. Symlinked files are followed before the prefix check.
func (s *LocalStorage) Resolve(storedPath string) (string, error) {
	p := storedPath
	if !filepath.IsAbs(p) {
		p = filepath.Join(s.basePath, p)
	}
	p = filepath.Clean(p)

	// Follow symlinks when the target exists so a link inside the root
	// cannot point elsewhere. A missing file still gets the prefix check.
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		p = resolved
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	if p != s.basePath && !strings.HasPrefix(p, s.basePath+string(filepath.Separator)) {
		return "", ErrOutsideRoot
	}
	return p, nil
}

// Save writes the stream to a new file under the root and returns the
// relative stored path and byte size. The name is generated from a UUID plus
// the original extension; the caller-supplied name never becomes a path.
// No partial file survives a failed write.
func (s *LocalStorage) Save(r io.Reader, originalName string) (string, int64, error) {
	ext := strings.ToLower(filepath.Ext(filepath.Base(originalName)))
	filename := uuid.NewString() + ext
	fullPath := filepath.Join(s.basePath, filename)

	dst, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create file: %w", err)
	}

	size, err := io.Copy(dst, r)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(fullPath)
		return "", 0, fmt.Errorf("failed to save file: %w", err)
	}

	return filename, size, nil
}

// Delete removes a stored file. Deleting an already-absent file is not an
// error (removed=false); permission and other I/O failures are, because they
// signal a configuration problem that must surface.
func (s *LocalStorage) Delete(storedPath string) (bool, error) {
	fullPath, err := s.Resolve(storedPath)
	if err != nil {
		return false, err
	}
	if err := os.Remove(fullPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to delete file: %w", err)
	}
	return true, nil
}

// Open returns the stored file for reading, after path validation
func (s *LocalStorage) Open(storedPath string) (*os.File, error) {
	fullPath, err := s.Resolve(storedPath)
	if err != nil {
		return nil, err
	}
	return os.Open(fullPath)
}

// Exists checks if a stored file is present
func (s *LocalStorage) Exists(storedPath string) bool {
	fullPath, err := s.Resolve(storedPath)
	if err != nil {
		return false
	}
	_, err = os.Stat(fullPath)
	return err == nil
}

// Size returns the byte size of a stored file
func (s *LocalStorage) Size(storedPath string) (int64, error) {
	fullPath, err := s.Resolve(storedPath)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(fullPath)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// ListOlderThan returns the stored names of files whose modification time is
// before the cutoff. Used by the orphan sweep.
func (s *LocalStorage) ListOlderThan(cutoff time.Time) ([]string, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read storage directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// IsValidContentType checks if the content type is allowed for uploads
func IsValidContentType(contentType string) bool {
	return contentType == "application/pdf"
}
