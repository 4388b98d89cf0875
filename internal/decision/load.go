package decision

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

// ReadRecords parses newline-delimited JSON decision records from r.
// Unparseable lines are skipped and counted; one bad line never aborts the
// stream. Blank lines are ignored without counting.
func ReadRecords(r io.Reader) (records []Record, skipped int, err error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			skipped++
			continue
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, 0, fmt.Errorf("read decision records: %w", err)
	}

	return records, skipped, nil
}

// ReadIDList parses a bare JSON array of id strings, the bulk shorthand for
// "set this status for these ids". Each id becomes a Record carrying status
// and ts. IDs that are empty after decoding are dropped by the fold.
func ReadIDList(r io.Reader, status, ts string) ([]Record, error) {
	var ids []string
	if err := json.NewDecoder(r).Decode(&ids); err != nil {
		return nil, fmt.Errorf("read id list: %w", err)
	}

	records := make([]Record, 0, len(ids))
	for _, id := range ids {
		records = append(records, Record{ID: id, Status: status, TS: ts})
	}
	return records, nil
}
