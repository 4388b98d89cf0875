package decision

import "sort"

// FoldOptions configures a fold.
type FoldOptions struct {
	// AllowedStatuses restricts status values when non-empty. An out-of-set
	// status normalizes to absent rather than failing the fold.
	AllowedStatuses []string
}

// Fold reduces a stream of records to one Latest aggregate per id.
//
// Records with a missing id are skipped. The first record for an id seeds
// its aggregate; later records overwrite the scalar fields (status, notes,
// by, meta, ts) only when at least as recent as the aggregate, with the
// incoming record winning ties. Tags are unioned regardless of which side
// wins recency - tags are never lost.
//
// The result is a pure function of the input stream except for genuine
// ties (equal recency for the same id), where stream order is the only
// tie-break: the later record in the stream wins the scalar fields.
func Fold(records []Record, opts FoldOptions) map[string]*Latest {
	allowed := map[string]bool{}
	for _, st := range opts.AllowedStatuses {
		allowed[st] = true
	}
	normalize := func(status string) string {
		if len(allowed) > 0 && status != "" && !allowed[status] {
			return ""
		}
		return status
	}

	out := make(map[string]*Latest)
	tagSets := make(map[string]map[string]bool)

	for _, rec := range records {
		if rec.ID == "" {
			continue
		}

		tags := tagSets[rec.ID]
		if tags == nil {
			tags = make(map[string]bool)
			tagSets[rec.ID] = tags
		}
		for _, tag := range rec.Tags {
			tags[tag] = true
		}

		agg, ok := out[rec.ID]
		if !ok {
			out[rec.ID] = &Latest{
				Status: normalize(rec.Status),
				Notes:  rec.Notes,
				TS:     rec.TS,
				By:     rec.By,
				Meta:   rec.Meta,
			}
			continue
		}

		if compareRecency(rec.TS, agg.TS) >= 0 {
			agg.Status = normalize(rec.Status)
			agg.Notes = rec.Notes
			agg.TS = rec.TS
			agg.By = rec.By
			agg.Meta = rec.Meta
		}
	}

	for id, agg := range out {
		set := tagSets[id]
		if len(set) == 0 {
			continue
		}
		tags := make([]string, 0, len(set))
		for tag := range set {
			tags = append(tags, tag)
		}
		sort.Strings(tags)
		agg.Tags = tags
	}

	return out
}
