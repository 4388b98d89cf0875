// Package store persists pipeline artifacts in a content-addressed object
// store with checkpoint provenance.
//
// On-disk layout under a workspace root:
//
//	objects/<hex-hash>.json    single canonical-JSON values
//	objects/<hex-hash>.jsonl   newline-delimited JSON sequences
//	checkpoints/<id>.json      immutable run manifests
//	catalog.db                 SQLite index of blobs and checkpoints
//
// Blobs are write-once: a put whose content hashes to an existing blob
// returns the existing reference without rewriting. Manifests form a linked
// list via their parent id, recording one pipeline run each. The catalog is
// purely derived state - it can be rebuilt from the directories at any time
// and is never consulted to answer correctness-critical reads.
//
// Single-process, single-writer semantics. Rename-based promotion of temp
// files gives best-effort atomicity against partial writes within one
// process, not protection against concurrent processes.
package store
