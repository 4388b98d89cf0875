package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Store is an explicit handle to one workspace. There is no ambient global
// workspace state; every caller passes a *Store through.
type Store struct {
	root           string
	objectsDir     string
	checkpointsDir string
	catalog        *Catalog

	now func() time.Time
}

// Option configures a Store at open time.
type Option func(*Store)

// WithClock overrides the wall clock used for checkpoint timestamps.
// Tests use this for deterministic manifest ids.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open creates or opens a workspace rooted at dir. The objects and
// checkpoints directories and the catalog database are created if missing.
// Idempotent - safe to call on an existing workspace.
func Open(dir string, opts ...Option) (*Store, error) {
	s := &Store{
		root:           dir,
		objectsDir:     filepath.Join(dir, "objects"),
		checkpointsDir: filepath.Join(dir, "checkpoints"),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, d := range []string{s.objectsDir, s.checkpointsDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("create workspace dir: %w", err)
		}
	}

	catalog, err := openCatalog(filepath.Join(dir, "catalog.db"))
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	s.catalog = catalog

	return s, nil
}

// Close releases the catalog database handle.
func (s *Store) Close() error {
	if s.catalog == nil {
		return nil
	}
	return s.catalog.Close()
}

// Root returns the workspace root directory.
func (s *Store) Root() string {
	return s.root
}

// Catalog returns the workspace's blob/checkpoint index.
func (s *Store) Catalog() *Catalog {
	return s.catalog
}

// objectPath returns the absolute path for a blob reference.
func (s *Store) objectPath(ref Ref) (string, error) {
	name, err := ref.filename()
	if err != nil {
		return "", err
	}
	return filepath.Join(s.objectsDir, name), nil
}

// timestamp returns the store's current time as a fixed-width UTC string.
// Fixed millisecond precision keeps lexicographic order equal to time order.
func (s *Store) timestamp() string {
	return s.now().UTC().Format(timestampLayout)
}

const timestampLayout = "2006-01-02T15:04:05.000Z"
