package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Catalog is a SQLite index over the workspace's blobs and checkpoints.
// It exists for introspection (stats, fast listing) and is always
// rebuildable from the directories; the blob files remain the source of
// truth.
type Catalog struct {
	db *sql.DB
}

// openCatalog creates or opens the catalog database at path.
// Applies the required pragmas and schema. Idempotent.
func openCatalog(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect catalog database: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY under the store's single-writer model.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply catalog schema: %w", err)
	}

	return &Catalog{db: db}, nil
}

// Close closes the catalog database.
func (c *Catalog) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// recordBlob indexes a stored blob. ON CONFLICT DO NOTHING keeps the insert
// idempotent: re-putting deduplicated content leaves the original row.
func (c *Catalog) recordBlob(hash, kind string, size int64, createdAt string) error {
	_, err := c.db.Exec(`
		INSERT INTO blobs (hash, kind, size, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(hash) DO NOTHING
	`, hash, kind, size, createdAt)
	if err != nil {
		return fmt.Errorf("record blob: %w", err)
	}
	return nil
}

// recordCheckpoint indexes a saved manifest. Idempotent like recordBlob.
func (c *Catalog) recordCheckpoint(id, parentID, createdAt string) error {
	_, err := c.db.Exec(`
		INSERT INTO checkpoints (id, parent_id, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, id, parentID, createdAt)
	if err != nil {
		return fmt.Errorf("record checkpoint: %w", err)
	}
	return nil
}

// Stats summarizes the workspace contents.
type Stats struct {
	Objects     int   `json:"objects"`
	Sequences   int   `json:"sequences"`
	TotalBytes  int64 `json:"totalBytes"`
	Checkpoints int   `json:"checkpoints"`
}

// Stats aggregates blob and checkpoint counts from the catalog.
func (c *Catalog) Stats() (Stats, error) {
	var st Stats

	rows, err := c.db.Query(`SELECT kind, COUNT(*), COALESCE(SUM(size), 0) FROM blobs GROUP BY kind`)
	if err != nil {
		return Stats{}, fmt.Errorf("catalog stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var kind string
		var count int
		var size int64
		if err := rows.Scan(&kind, &count, &size); err != nil {
			return Stats{}, fmt.Errorf("catalog stats: %w", err)
		}
		switch kind {
		case KindJSON:
			st.Objects = count
		case KindJSONL:
			st.Sequences = count
		}
		st.TotalBytes += size
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("catalog stats: %w", err)
	}

	if err := c.db.QueryRow(`SELECT COUNT(*) FROM checkpoints`).Scan(&st.Checkpoints); err != nil {
		return Stats{}, fmt.Errorf("catalog stats: %w", err)
	}

	return st, nil
}

// RebuildCatalog drops and re-derives the catalog from the workspace
// directories.
// Used after manual workspace surgery or catalog corruption.
func (s *Store) RebuildCatalog() error {
	if _, err := s.catalog.db.Exec(`DELETE FROM blobs; DELETE FROM checkpoints;`); err != nil {
		return fmt.Errorf("rebuild catalog: clear: %w", err)
	}

	entries, err := os.ReadDir(s.objectsDir)
	if err != nil {
		return fmt.Errorf("rebuild catalog: read objects dir: %w", err)
	}
	for _, entry := range entries {
		name := entry.Name()
		ext := filepath.Ext(name)
		kind := strings.TrimPrefix(ext, ".")
		if kind != KindJSON && kind != KindJSONL {
			continue
		}
		hash := strings.TrimSuffix(name, ext)
		if len(hash) != hashHexLen || !isHex(hash) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return fmt.Errorf("rebuild catalog: stat %s: %w", name, err)
		}
		createdAt := info.ModTime().UTC().Format(timestampLayout)
		if err := s.catalog.recordBlob(hash, kind, info.Size(), createdAt); err != nil {
			return fmt.Errorf("rebuild catalog: %w", err)
		}
	}

	manifests, err := s.ListCheckpoints()
	if err != nil {
		return fmt.Errorf("rebuild catalog: %w", err)
	}
	for _, m := range manifests {
		if err := s.catalog.recordCheckpoint(m.ID, m.ParentID, m.CreatedAt); err != nil {
			return fmt.Errorf("rebuild catalog: %w", err)
		}
	}

	return nil
}
