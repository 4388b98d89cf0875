package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spoolhq/spool/internal/canonical"
)

// CurrentSchemaVersion is stamped on new manifests.
const CurrentSchemaVersion = 1

// TransformRecord is one entry in a manifest's ordered, append-only audit
// trail: a named transform, its configuration, the object references it
// consumed and produced, and optional numeric stats (e.g. counts before and
// after filtering).
type TransformRecord struct {
	Name      string         `json:"name"`
	Config    map[string]any `json:"config,omitempty"`
	InputRef  Ref            `json:"inputRef"`
	OutputRef Ref            `json:"outputRef"`
	Stats     map[string]int `json:"stats,omitempty"`
}

// ManifestInputs names the root inputs of a pipeline run.
type ManifestInputs struct {
	ItemsRef Ref `json:"itemsRef"`
}

// Manifest describes one pipeline run. Manifests are immutable once saved
// and form a linked list via ParentID: each run's parent is the checkpoint
// that was latest when the run started, approximating a linear provenance
// chain rather than a general DAG.
type Manifest struct {
	ID            string            `json:"id,omitempty"`
	CreatedAt     string            `json:"createdAt,omitempty"`
	SchemaVersion int               `json:"schemaVersion,omitempty"`
	ParentID      string            `json:"parentId,omitempty"`
	SourceRefs    []string          `json:"sourceRefs,omitempty"`
	Inputs        ManifestInputs    `json:"inputs"`
	Transforms    []TransformRecord `json:"transforms"`
	DecisionsRef  Ref               `json:"decisionsRef,omitempty"`
	Materialized  map[string]string `json:"materialized,omitempty"`
	Notes         string            `json:"notes,omitempty"`
}

// SaveCheckpoint persists a manifest, assigning defaults for any of ID,
// CreatedAt and SchemaVersion that are absent.
//
// Assigned ids have the form "cp-<compact UTC timestamp>-<8 hex>": a wall
// clock component plus a short hash of the manifest's structural basis
// (parent, source refs, inputs, transforms, notes, creation time), so
// repeated identical runs at different times produce distinguishable but
// traceable ids. Saving an id that already exists is a no-op: manifests are
// write-once and never overwritten.
func (s *Store) SaveCheckpoint(m *Manifest) (string, error) {
	if m.CreatedAt == "" {
		m.CreatedAt = s.timestamp()
	}
	if m.SchemaVersion == 0 {
		m.SchemaVersion = CurrentSchemaVersion
	}
	if m.ID == "" {
		id, err := deriveCheckpointID(m)
		if err != nil {
			return "", fmt.Errorf("save checkpoint: %w", err)
		}
		m.ID = id
	}

	path := filepath.Join(s.checkpointsDir, m.ID+".json")
	if _, err := os.Stat(path); err == nil {
		return m.ID, nil // write-once: existing manifest left untouched
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("save checkpoint: stat manifest: %w", err)
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("save checkpoint: marshal manifest: %w", err)
	}
	data = append(data, '\n')

	if err := writeBlobAtomic(path, data); err != nil {
		return "", fmt.Errorf("save checkpoint: %w", err)
	}

	if err := s.catalog.recordCheckpoint(m.ID, m.ParentID, m.CreatedAt); err != nil {
		return "", fmt.Errorf("save checkpoint: %w", err)
	}

	return m.ID, nil
}

// ReadCheckpoint loads the manifest with the given id.
// Fails with NotFoundError if absent.
func (s *Store) ReadCheckpoint(id string) (*Manifest, error) {
	path := filepath.Join(s.checkpointsDir, id+".json")

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, &NotFoundError{Kind: "checkpoint", Key: id}
	}
	if err != nil {
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("read checkpoint %s: %w", id, err)
	}
	return &m, nil
}

// ListCheckpoints returns all manifests sorted ascending by CreatedAt
// (lexicographic comparison of the fixed-width timestamps), id as tie-break.
func (s *Store) ListCheckpoints() ([]*Manifest, error) {
	entries, err := os.ReadDir(s.checkpointsDir)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}

	var manifests []*Manifest
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".json") {
			continue
		}
		m, err := s.ReadCheckpoint(strings.TrimSuffix(name, ".json"))
		if err != nil {
			return nil, err
		}
		manifests = append(manifests, m)
	}

	sort.Slice(manifests, func(i, j int) bool {
		if manifests[i].CreatedAt != manifests[j].CreatedAt {
			return manifests[i].CreatedAt < manifests[j].CreatedAt
		}
		return manifests[i].ID < manifests[j].ID
	})

	return manifests, nil
}

// ResolveLatestCheckpoint returns the most recent manifest, or nil when the
// ledger is empty.
func (s *Store) ResolveLatestCheckpoint() (*Manifest, error) {
	manifests, err := s.ListCheckpoints()
	if err != nil {
		return nil, err
	}
	if len(manifests) == 0 {
		return nil, nil
	}
	return manifests[len(manifests)-1], nil
}

// deriveCheckpointID builds the deterministic id for a manifest whose ID
// field is unset. CreatedAt must already be filled.
func deriveCheckpointID(m *Manifest) (string, error) {
	transforms := make([]any, len(m.Transforms))
	for i, t := range m.Transforms {
		transforms[i] = map[string]any{
			"name":      t.Name,
			"config":    t.Config,
			"inputRef":  string(t.InputRef),
			"outputRef": string(t.OutputRef),
		}
	}

	basis := map[string]any{
		"parentId":   m.ParentID,
		"sourceRefs": m.SourceRefs,
		"inputs":     map[string]any{"itemsRef": string(m.Inputs.ItemsRef)},
		"transforms": transforms,
		"notes":      m.Notes,
		"createdAt":  m.CreatedAt,
	}

	hash, err := canonical.HashValue(canonical.DomainCheckpoint, basis)
	if err != nil {
		return "", fmt.Errorf("derive checkpoint id: %w", err)
	}

	// CreatedAt "2006-01-02T15:04:05.000Z" -> "20060102T150405.000Z".
	compact := strings.NewReplacer("-", "", ":", "").Replace(m.CreatedAt)

	return "cp-" + compact + "-" + hash[:8], nil
}
