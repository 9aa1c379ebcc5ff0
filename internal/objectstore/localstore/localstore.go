// Package localstore implements objectstore.Store on a local directory.
//
// Objects live at <root>/<bucket>/<key>. It exists so the service can run on a
// laptop without S3 credentials: drop CSV files into the bucket directory and
// reference them by name.
package localstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sakif/signal-registry/internal/objectstore"
)

var _ objectstore.Store = (*Store)(nil)

// ErrInvalidKey is returned for keys that would escape the bucket directory.
var ErrInvalidKey = errors.New("localstore: invalid object key")

// Store serves objects from a directory on disk.
type Store struct {
	dir string
}

// New returns a Store rooted at <root>/<bucket>, creating the directory if needed.
func New(root, bucket string) (*Store, error) {
	if bucket == "" {
		return nil, errors.New("localstore: bucket name is required")
	}
	dir := filepath.Join(root, bucket)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("localstore: creating %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the bucket directory.
func (s *Store) Dir() string {
	return s.dir
}

// Head stats the file. Directories do not count as objects.
func (s *Store) Head(_ context.Context, key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("localstore: checking %s: %w", key, objectstore.ErrNotFound)
		}
		return fmt.Errorf("localstore: checking %s: %w", key, err)
	}
	if info.IsDir() {
		return fmt.Errorf("localstore: checking %s: %w", key, objectstore.ErrNotFound)
	}
	return nil
}

// Get reads the object from disk.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("localstore: getting %s: %w", key, objectstore.ErrNotFound)
		}
		return nil, fmt.Errorf("localstore: getting %s: %w", key, err)
	}
	return data, nil
}

// Put writes an object. Not part of objectstore.Store; used to seed data.
func (s *Store) Put(_ context.Context, key string, data []byte) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("localstore: creating parent of %s: %w", key, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("localstore: writing %s: %w", key, err)
	}
	return nil
}

// Delete removes the object. A missing file is not an error, matching S3.
func (s *Store) Delete(_ context.Context, key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("localstore: deleting %s: %w", key, err)
	}
	return nil
}

// path maps an object key to a file path inside the bucket directory.
// Keys use "/" separators like S3 keys do.
func (s *Store) path(key string) (string, error) {
	local := filepath.FromSlash(key)
	if key == "" || !filepath.IsLocal(local) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(s.dir, local), nil
}
