// Package decision folds an append-only stream of per-item annotations into
// one latest-state-per-id view.
//
// Decision records are immutable once emitted; the folded view is the only
// derived, mutable aggregate. Renderers use it to select items for export,
// skip them, or mark them unread - the fold itself attaches no meaning to
// status values beyond optional membership in a known set.
package decision

import "time"

// Statuses commonly carried by decision records. Folding accepts any string
// unless FoldOptions restricts the set.
const (
	StatusExport = "export"
	StatusSkip   = "skip"
	StatusUnread = "unread"
)

// Record is one append-only annotation referencing a content item id.
type Record struct {
	ID     string         `json:"id"`
	Status string         `json:"status,omitempty"`
	Tags   []string       `json:"tags,omitempty"`
	Notes  string         `json:"notes,omitempty"`
	TS     string         `json:"ts,omitempty"`
	By     string         `json:"by,omitempty"`
	Meta   map[string]any `json:"meta,omitempty"`
}

// Latest is the folded per-id aggregate. Scalar fields carry the most recent
// record's values; Tags is the monotonic union of every record's tags for
// the id, sorted; TS is the latest observed timestamp.
type Latest struct {
	Status string         `json:"status,omitempty"`
	Tags   []string       `json:"tags,omitempty"`
	Notes  string         `json:"notes,omitempty"`
	TS     string         `json:"ts,omitempty"`
	By     string         `json:"by,omitempty"`
	Meta   map[string]any `json:"meta,omitempty"`
}

// timestamp layouts accepted for recency comparison, tried in order.
var tsLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02",
}

// parseTS parses a record timestamp. ok is false for missing or unparseable
// values, which compare older than any valid timestamp.
func parseTS(ts string) (time.Time, bool) {
	if ts == "" {
		return time.Time{}, false
	}
	for _, layout := range tsLayouts {
		if t, err := time.Parse(layout, ts); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// compareRecency orders two record timestamps: -1 when a is older, +1 when a
// is newer, 0 for equal recency. An invalid timestamp compared against a
// valid one is always older; two invalid timestamps are equally recent.
func compareRecency(a, b string) int {
	ta, okA := parseTS(a)
	tb, okB := parseTS(b)
	switch {
	case okA && okB:
		switch {
		case ta.Before(tb):
			return -1
		case ta.After(tb):
			return 1
		default:
			return 0
		}
	case okA:
		return 1
	case okB:
		return -1
	default:
		return 0
	}
}
