package pipeline

import (
	"time"
	"unicode/utf8"

	"github.com/spoolhq/spool/internal/item"
)

var filterTSLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02",
}

func parseFilterTS(ts string) (time.Time, bool) {
	if ts == "" {
		return time.Time{}, false
	}
	for _, layout := range filterTSLayouts {
		if t, err := time.Parse(layout, ts); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// applyFilter returns the subset of idx passing the configured rules.
// Context items always pass: dropping an ancestor would silently break the
// chains that reference it, and context items never start chains anyway.
func applyFilter(idx item.Index, rules FilterConfig, contextSources []string) item.Index {
	isContext := make(map[string]bool, len(contextSources))
	for _, src := range contextSources {
		isContext[src] = true
	}

	since, hasSince := parseFilterTS(rules.Since)
	until, hasUntil := parseFilterTS(rules.Until)

	out := make(item.Index, len(idx))
	for id, it := range idx {
		if isContext[it.Source] {
			out[id] = it
			continue
		}
		if keep(it, rules, since, hasSince, until, hasUntil) {
			out[id] = it
		}
	}
	return out
}

func keep(it item.ContentItem, rules FilterConfig, since time.Time, hasSince bool, until time.Time, hasUntil bool) bool {
	if hasSince || hasUntil {
		created, ok := parseFilterTS(it.CreatedAt)
		// Unparseable timestamps pass through rather than silently
		// vanishing from the archive.
		if ok {
			if hasSince && created.Before(since) {
				return false
			}
			if hasUntil && created.After(until) {
				return false
			}
		}
	}

	if rules.MinLength > 0 && utf8.RuneCountInString(it.Text) < rules.MinLength {
		return false
	}

	if rules.RequireMedia && len(it.Media) == 0 {
		return false
	}

	return true
}
