// Package images stores cover images and computes their BlurHash placeholders.
package images

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrInvalidName is returned for file names that are empty or escape the
// storage directory.
var ErrInvalidName = errors.New("invalid image name")

// Storage manages image files in a single directory.
// Thread-safe for concurrent operations.
type Storage struct {
	dir string
	mu  sync.RWMutex // Protects file operations
}

// NewStorage creates a Storage rooted at {basePath}/{subdir}, creating the
// directory if needed.
// Example: NewStorage("/data", "covers") -> /data/covers/.
func NewStorage(basePath, subdir string) (*Storage, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}
	if subdir == "" {
		return nil, fmt.Errorf("subdirectory cannot be empty")
	}

	dir := filepath.Join(basePath, subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s directory: %w", subdir, err)
	}

	return &Storage{dir: dir}, nil
}

// Dir returns the directory images are stored in.
func (s *Storage) Dir() string {
	return s.dir
}

// validName accepts plain file names such as "42-dune.jpg".
func validName(name string) bool {
	return name != "" &&
		name == filepath.Base(name) &&
		!strings.HasPrefix(name, ".") &&
		!strings.ContainsAny(name, `/\`)
}

// Save writes image data under name, replacing any previous file.
func (s *Storage) Save(name string, data []byte) error {
	if !validName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if len(data) == 0 {
		return fmt.Errorf("image data cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Write to a temp file first so readers never see a partial image.
	tmp := s.path(name) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write image file: %w", err)
	}
	if err := os.Rename(tmp, s.path(name)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to move image file: %w", err)
	}
	return nil
}

// Get reads the image stored under name.
func (s *Storage) Get(name string) ([]byte, error) {
	if !validName(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("image %s not found: %w", name, err)
		}
		return nil, fmt.Errorf("failed to read image file: %w", err)
	}
	return data, nil
}

// Exists checks if an image is stored under name.
func (s *Storage) Exists(name string) bool {
	if !validName(name) {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err := os.Stat(s.path(name))
	return err == nil
}

// Delete removes the image stored under name. Missing files are not an error.
func (s *Storage) Delete(name string) error {
	if !validName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete image file: %w", err)
	}
	return nil
}

// Hash returns the hex SHA-256 of an image, used as its ETag.
func (s *Storage) Hash(name string) (string, error) {
	data, err := s.Get(name)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", sha256.Sum256(data)), nil
}

// Path returns the full filesystem path of an image.
func (s *Storage) Path(name string) (string, error) {
	if !validName(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return s.path(name), nil
}

func (s *Storage) path(name string) string {
	return filepath.Join(s.dir, name)
}
