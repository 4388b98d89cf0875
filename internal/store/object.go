package store

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/spoolhq/spool/internal/canonical"
)

// PutObject canonicalizes and hashes v, persisting it as a single-object
// blob. If a blob with the same content address already exists the existing
// reference is returned without rewriting. Logically equal values with
// different key insertion order dedup to one blob.
//
// A value that transitively contains itself fails with
// canonical.CircularStructureError and nothing is written.
func (s *Store) PutObject(v any) (Ref, error) {
	data, err := canonical.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}

	hash := canonical.HashBytes(canonical.DomainObject, data)
	ref := NewRef(KindJSON, hash)

	path, err := s.objectPath(ref)
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		return ref, nil // dedup: blob already present
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("put object: stat blob: %w", err)
	}

	if err := writeBlobAtomic(path, data); err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}

	if err := s.catalog.recordBlob(hash, KindJSON, int64(len(data)), s.timestamp()); err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}

	return ref, nil
}

// GetObject reads the blob at ref and unmarshals it into out.
// Fails with InvalidRefError if ref is malformed or not a single-object
// reference, and with NotFoundError if no blob exists at that hash.
func (s *Store) GetObject(ref Ref, out any) error {
	hash, err := ref.expectKind(KindJSON)
	if err != nil {
		return err
	}

	path, err := s.objectPath(ref)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &NotFoundError{Kind: "object", Key: hash}
	}
	if err != nil {
		return fmt.Errorf("get object: %w", err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("get object %s: %w", hash[:12], err)
	}
	return nil
}

// writeBlobAtomic writes data to a uuid-named temp file in the same
// directory, then promotes it by rename. Blobs at an existing hash path are
// never overwritten by callers; the rename either lands the new blob or
// replaces byte-identical content.
func writeBlobAtomic(path string, data []byte) error {
	tmp := path + ".tmp-" + uuid.NewString()
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp blob: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("promote blob: %w", err)
	}
	return nil
}
