package store

import (
	"errors"
	"fmt"
)

// NotFoundError reports a missing blob or checkpoint. Fatal for that read,
// recoverable by the caller.
type NotFoundError struct {
	Kind string // "object", "jsonl", "checkpoint"
	Key  string // hash or checkpoint id
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Key)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// InvalidRefError reports a malformed or kind-mismatched object reference.
type InvalidRefError struct {
	Ref    string
	Reason string
}

func (e *InvalidRefError) Error() string {
	return fmt.Sprintf("invalid ref %q: %s", e.Ref, e.Reason)
}

// IsInvalidRef reports whether err is (or wraps) an InvalidRefError.
func IsInvalidRef(err error) bool {
	var ir *InvalidRefError
	return errors.As(err, &ir)
}

// MalformedInputError reports one unparseable line in a JSONL stream.
// Readers skip the offending line and continue; a single bad line never
// aborts the whole stream.
type MalformedInputError struct {
	Line   int
	Reason string
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("malformed input at line %d: %s", e.Line, e.Reason)
}
