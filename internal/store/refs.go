package store

import (
	"fmt"
	"strings"
)

// Blob kinds. The kind is encoded in both the reference string and the
// on-disk file extension.
const (
	KindJSON  = "json"  // single canonical-JSON value
	KindJSONL = "jsonl" // newline-delimited JSON sequence
)

const hashHexLen = 64 // SHA-256

// Ref is a typed reference to a content-addressed blob.
// Format: "<kind>:<hex-hash>" where kind is "json" or "jsonl".
type Ref string

// NewRef builds a reference from a kind and hex hash.
func NewRef(kind, hash string) Ref {
	return Ref(kind + ":" + hash)
}

// Parse splits the reference into kind and hash, validating both.
func (r Ref) Parse() (kind, hash string, err error) {
	kind, hash, ok := strings.Cut(string(r), ":")
	if !ok {
		return "", "", &InvalidRefError{Ref: string(r), Reason: "missing kind separator"}
	}
	if kind != KindJSON && kind != KindJSONL {
		return "", "", &InvalidRefError{Ref: string(r), Reason: fmt.Sprintf("unknown kind %q", kind)}
	}
	if len(hash) != hashHexLen || !isHex(hash) {
		return "", "", &InvalidRefError{Ref: string(r), Reason: "hash is not 64 hex characters"}
	}
	return kind, hash, nil
}

// Kind returns the reference's kind, or "" if the reference is malformed.
func (r Ref) Kind() string {
	kind, _, err := r.Parse()
	if err != nil {
		return ""
	}
	return kind
}

// filename returns the blob filename for this reference, e.g.
// "ab12...ef.jsonl". The kind doubles as the file extension.
func (r Ref) filename() (string, error) {
	kind, hash, err := r.Parse()
	if err != nil {
		return "", err
	}
	return hash + "." + kind, nil
}

// expectKind validates the reference and checks its kind.
func (r Ref) expectKind(want string) (hash string, err error) {
	kind, hash, err := r.Parse()
	if err != nil {
		return "", err
	}
	if kind != want {
		return "", &InvalidRefError{Ref: string(r), Reason: fmt.Sprintf("kind %q, want %q", kind, want)}
	}
	return hash, nil
}

func isHex(s string) bool {
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		default:
			return false
		}
	}
	return true
}
