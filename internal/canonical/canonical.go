// Package canonical produces a byte-stable JSON encoding of arbitrary
// JSON-representable values and derives SHA-256 content addresses from it.
//
// Two logically equal values (same keys and values, different insertion
// order) encode to identical bytes, which is what makes store deduplication
// work. Object keys are sorted lexicographically by byte order, array order
// is preserved, strings are NFC normalized and HTML escaping is disabled.
package canonical

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// CircularStructureError reports a value that transitively contains itself.
// Hashing such a value can never terminate, so the encode fails instead of
// hanging or silently truncating.
type CircularStructureError struct {
	Path string
}

func (e *CircularStructureError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("circular structure detected at %s", e.Path)
	}
	return "circular structure detected"
}

// IsCircular reports whether err is (or wraps) a CircularStructureError.
func IsCircular(err error) bool {
	var ce *CircularStructureError
	return errors.As(err, &ce)
}

// Marshal encodes v to canonical JSON bytes.
//
// Maps and slices of any are walked directly with cycle detection. Other Go
// values (structs, typed slices, etc.) are routed through their standard JSON
// form first and then canonicalized, so a struct and the equivalent
// map[string]any produce identical bytes.
func Marshal(v any) ([]byte, error) {
	enc := &encoder{active: make(map[uintptr]bool)}
	var buf bytes.Buffer
	if err := enc.marshal(&buf, v, "$"); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// encoder tracks container identities along the current walk path so that a
// container reachable from itself is detected. A DAG (the same map referenced
// from two siblings) is legal and encodes twice.
type encoder struct {
	active map[uintptr]bool
}

func (e *encoder) enter(v any, path string) (uintptr, error) {
	ptr := reflect.ValueOf(v).Pointer()
	if e.active[ptr] {
		return 0, &CircularStructureError{Path: path}
	}
	e.active[ptr] = true
	return ptr, nil
}

func (e *encoder) leave(ptr uintptr) {
	delete(e.active, ptr)
}

func (e *encoder) marshal(buf *bytes.Buffer, v any, path string) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
		return nil
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
		return nil
	case string:
		return writeString(buf, val)
	case json.Number:
		buf.WriteString(val.String())
		return nil
	case int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
		return nil
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
		return nil
	case float64:
		return writeFloat(buf, val)
	case []any:
		return e.marshalArray(buf, val, path)
	case map[string]any:
		return e.marshalObject(buf, val, path)
	default:
		return e.marshalOther(buf, val, path)
	}
}

func (e *encoder) marshalArray(buf *bytes.Buffer, arr []any, path string) error {
	if len(arr) > 0 {
		ptr, err := e.enter(arr, path)
		if err != nil {
			return err
		}
		defer e.leave(ptr)
	}

	buf.WriteByte('[')
	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := e.marshal(buf, elem, fmt.Sprintf("%s[%d]", path, i)); err != nil {
			return err
		}
	}
	buf.WriteByte(']')
	return nil
}

func (e *encoder) marshalObject(buf *bytes.Buffer, obj map[string]any, path string) error {
	if obj != nil {
		ptr, err := e.enter(obj, path)
		if err != nil {
			return err
		}
		defer e.leave(ptr)
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeString(buf, k); err != nil {
			return fmt.Errorf("key %q: %w", k, err)
		}
		buf.WriteByte(':')
		if err := e.marshal(buf, obj[k], path+"."+k); err != nil {
			return fmt.Errorf("value for key %q: %w", k, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

// marshalOther canonicalizes any other Go value through its standard JSON
// form. encoding/json reports pointer cycles inside structs itself; that
// failure is translated to CircularStructureError so callers see one error
// type for all cyclic inputs.
func (e *encoder) marshalOther(buf *bytes.Buffer, v any, path string) error {
	data, err := json.Marshal(v)
	if err != nil {
		var uve *json.UnsupportedValueError
		if errors.As(err, &uve) {
			return &CircularStructureError{Path: path}
		}
		return fmt.Errorf("canonical marshal %T: %w", v, err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return fmt.Errorf("canonical reparse %T: %w", v, err)
	}
	return e.marshal(buf, tree, path)
}

// writeString emits a canonical JSON string: NFC normalized, HTML escaping
// disabled (<, > and & stay literal).
func writeString(buf *bytes.Buffer, s string) error {
	normalized := norm.NFC.String(s)

	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return err
	}

	// json.Encoder adds a trailing newline, remove it.
	out := tmp.Bytes()
	if n := len(out); n > 0 && out[n-1] == '\n' {
		out = out[:n-1]
	}
	buf.Write(out)
	return nil
}

func writeFloat(buf *bytes.Buffer, f float64) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("canonical marshal float: %w", err)
	}
	buf.Write(data)
	return nil
}
