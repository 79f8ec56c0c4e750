// Package localstore serves archive keys from a directory tree laid out like
// the bucket, for offline development against generated scans.
package localstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/storm-radar-service/internal/domain"
)

// Store implements radar.ObjectStore on a local directory.
type Store struct {
	root string
}

// New returns a Store rooted at dir.
func New(dir string) *Store {
	return &Store{root: dir}
}

// List walks the directory holding prefix and returns matching keys.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	dir := filepath.Join(s.root, filepath.FromSlash(prefix[:strings.LastIndex(prefix, "/")+1]))
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", domain.ErrUpstreamFetch, prefix, err)
	}

	var keys []string
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.IsDir() {
			continue
		}
		rel, err := filepath.Rel(s.root, filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// Get reads one key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	if strings.Contains(key, "..") {
		return nil, fmt.Errorf("%w: %s", domain.ErrScanNotFound, key)
	}
	b, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(key)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrScanNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrUpstreamFetch, key, err)
	}
	return b, nil
}

// Put writes body under key, creating directories as needed.
func (s *Store) Put(key string, body []byte) error {
	path := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, body, 0o644)
}
