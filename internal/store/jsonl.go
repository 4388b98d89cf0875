package store

import (
	"bufio"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"iter"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/spoolhq/spool/internal/canonical"
)

// PutJSONL streams items to a newline-delimited JSON blob, hashing the exact
// emitted bytes as they are written. The whole sequence is never buffered in
// memory: each item is marshaled, appended to one incremental digest, and
// written to a uuid-named temp file. The temp file is promoted to its final
// hash-named location by rename, or discarded when a blob with the same
// content address already exists.
//
// Unlike PutObject, lines are NOT canonicalized - the hash covers the bytes
// json.Marshal happens to emit per item in iteration order. Callers that
// want byte-identical dedup across runs must supply items in a stable field
// order. Returns the reference and the number of lines written.
func (s *Store) PutJSONL(items iter.Seq[any]) (Ref, int, error) {
	tmp := filepath.Join(s.objectsDir, "tmp-"+uuid.NewString()+".jsonl")
	f, err := os.Create(tmp)
	if err != nil {
		return "", 0, fmt.Errorf("put jsonl: create temp: %w", err)
	}
	defer os.Remove(tmp) // no-op after successful rename

	digest := canonical.NewHasher(canonical.DomainObject)
	w := bufio.NewWriter(f)
	count := 0

	for v := range items {
		line, err := json.Marshal(v)
		if err != nil {
			f.Close()
			return "", 0, fmt.Errorf("put jsonl: marshal line %d: %w", count, err)
		}
		line = append(line, '\n')
		digest.Write(line)
		if _, err := w.Write(line); err != nil {
			f.Close()
			return "", 0, fmt.Errorf("put jsonl: write line %d: %w", count, err)
		}
		count++
	}

	if err := w.Flush(); err != nil {
		f.Close()
		return "", 0, fmt.Errorf("put jsonl: flush: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", 0, fmt.Errorf("put jsonl: close temp: %w", err)
	}

	hash := hex.EncodeToString(digest.Sum(nil))
	ref := NewRef(KindJSONL, hash)

	final, err := s.objectPath(ref)
	if err != nil {
		return "", 0, fmt.Errorf("put jsonl: %w", err)
	}

	if _, err := os.Stat(final); err == nil {
		return ref, count, nil // dedup: identical content already stored
	} else if !os.IsNotExist(err) {
		return "", 0, fmt.Errorf("put jsonl: stat blob: %w", err)
	}

	if err := os.Rename(tmp, final); err != nil {
		return "", 0, fmt.Errorf("put jsonl: promote blob: %w", err)
	}

	info, err := os.Stat(final)
	if err != nil {
		return "", 0, fmt.Errorf("put jsonl: stat promoted blob: %w", err)
	}
	if err := s.catalog.recordBlob(hash, KindJSONL, info.Size(), s.timestamp()); err != nil {
		return "", 0, fmt.Errorf("put jsonl: %w", err)
	}

	return ref, count, nil
}

// GetJSONL opens the JSONL blob at ref for line-by-line reading.
// Fails with InvalidRefError on a malformed or single-object reference and
// with NotFoundError if no blob exists at that hash. The returned reader is
// finite and lazy; calling GetJSONL again restarts the sequence.
func (s *Store) GetJSONL(ref Ref) (*LineReader, error) {
	hash, err := ref.expectKind(KindJSONL)
	if err != nil {
		return nil, err
	}

	path, err := s.objectPath(ref)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, &NotFoundError{Kind: "jsonl", Key: hash}
	}
	if err != nil {
		return nil, fmt.Errorf("get jsonl: %w", err)
	}

	return &LineReader{f: f, scanner: newLineScanner(f)}, nil
}

// LineReader iterates the parsed lines of a JSONL blob. An unparseable line
// is skipped and recorded, never aborting the rest of the stream.
type LineReader struct {
	f       *os.File
	scanner *bufio.Scanner
	line    []byte
	lineNo  int
	skipped []MalformedInputError
	err     error
}

func newLineScanner(f *os.File) *bufio.Scanner {
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return sc
}

// Next advances to the next valid JSON line. Returns false at end of stream
// or on a read error (check Err).
func (r *LineReader) Next() bool {
	for r.scanner.Scan() {
		r.lineNo++
		line := r.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if !json.Valid(line) {
			r.skipped = append(r.skipped, MalformedInputError{
				Line:   r.lineNo,
				Reason: "invalid JSON",
			})
			continue
		}
		r.line = line
		return true
	}
	r.err = r.scanner.Err()
	return false
}

// Bytes returns the current line. Valid until the next call to Next.
func (r *LineReader) Bytes() []byte {
	return r.line
}

// Decode unmarshals the current line into out.
func (r *LineReader) Decode(out any) error {
	return json.Unmarshal(r.line, out)
}

// Skipped returns the malformed lines encountered so far.
func (r *LineReader) Skipped() []MalformedInputError {
	return r.skipped
}

// Err returns the first read error encountered, if any.
func (r *LineReader) Err() error {
	return r.err
}

// Close releases the underlying file.
func (r *LineReader) Close() error {
	return r.f.Close()
}

// DecodeAll reads every remaining line into a slice of T, closing the
// reader. Malformed lines are skipped per the reader's contract.
func DecodeAll[T any](r *LineReader) ([]T, error) {
	defer r.Close()
	var out []T
	for r.Next() {
		var v T
		if err := r.Decode(&v); err != nil {
			// Valid JSON that does not fit T counts as malformed: skip.
			continue
		}
		out = append(out, v)
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("decode jsonl: %w", err)
	}
	return out, nil
}
