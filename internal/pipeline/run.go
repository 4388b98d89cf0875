package pipeline

import (
	"fmt"
	"os"
	"sort"

	"github.com/rs/zerolog"

	"github.com/spoolhq/spool/internal/decision"
	"github.com/spoolhq/spool/internal/grouping"
	"github.com/spoolhq/spool/internal/item"
	"github.com/spoolhq/spool/internal/store"
)

// Runner executes pipeline runs against one workspace. Both collaborators
// are explicit handles - no globals.
type Runner struct {
	Store *store.Store
	Log   zerolog.Logger
}

// NewRunner creates a Runner writing to st and logging to logger.
func NewRunner(st *store.Store, logger zerolog.Logger) *Runner {
	return &Runner{Store: st, Log: logger}
}

// RunResult reports what one run produced and where it was persisted.
type RunResult struct {
	CheckpointID      string                      `json:"checkpointId"`
	ItemsRef          store.Ref                   `json:"itemsRef"`
	FilteredRef       store.Ref                   `json:"filteredRef"`
	ThreadsRef        store.Ref                   `json:"threadsRef"`
	ConversationsRef  store.Ref                   `json:"conversationsRef"`
	DecisionsRef      store.Ref                   `json:"decisionsRef,omitempty"`
	ItemCount         int                         `json:"itemCount"`
	FilteredCount     int                         `json:"filteredCount"`
	ThreadCount       int                         `json:"threadCount"`
	ConversationCount int                         `json:"conversationCount"`
	Grouped           grouping.Result             `json:"-"`
	Decisions         map[string]*decision.Latest `json:"-"`
}

// Run executes the full pipeline over already-normalized items:
// persist raw items, filter, group, persist the grouped outputs, optionally
// fold a decision log, and save a checkpoint manifest whose parent is the
// previously latest checkpoint. Transform entries are appended in
// application order so the provenance chain replays in order.
func (r *Runner) Run(items []item.ContentItem, cfg Config) (*RunResult, error) {
	result := &RunResult{ItemCount: len(items)}

	itemsRef, _, err := r.Store.PutJSONL(itemSeq(items))
	if err != nil {
		return nil, fmt.Errorf("persist items: %w", err)
	}
	result.ItemsRef = itemsRef
	r.Log.Debug().Str("ref", string(itemsRef)).Int("items", len(items)).Msg("persisted raw items")

	idx, dups := item.BuildIndex(items)
	if dups > 0 {
		r.Log.Warn().Int("duplicates", dups).Msg("duplicate item ids overwritten in index")
	}

	filtered := applyFilter(idx, cfg.Filter, cfg.Sources.Context)
	result.FilteredCount = len(filtered)

	filteredRef, _, err := r.Store.PutJSONL(indexSeq(filtered))
	if err != nil {
		return nil, fmt.Errorf("persist filtered items: %w", err)
	}
	result.FilteredRef = filteredRef
	r.Log.Debug().
		Int("before", len(idx)).
		Int("after", len(filtered)).
		Msg("filter applied")

	grouped := grouping.Group(filtered, grouping.Options{
		SelfSources:    cfg.Sources.Self,
		ContextSources: cfg.Sources.Context,
	})
	result.Grouped = grouped
	result.ThreadCount = len(grouped.Threads)
	result.ConversationCount = len(grouped.Conversations)

	threadsRef, err := r.Store.PutObject(grouped.Threads)
	if err != nil {
		return nil, fmt.Errorf("persist threads: %w", err)
	}
	result.ThreadsRef = threadsRef

	conversationsRef, err := r.Store.PutObject(grouped.Conversations)
	if err != nil {
		return nil, fmt.Errorf("persist conversations: %w", err)
	}
	result.ConversationsRef = conversationsRef
	r.Log.Info().
		Int("threads", result.ThreadCount).
		Int("conversations", result.ConversationCount).
		Msg("grouping complete")

	if cfg.Decisions.Path != "" {
		if err := r.foldDecisions(cfg, result); err != nil {
			return nil, err
		}
	}

	parent, err := r.Store.ResolveLatestCheckpoint()
	if err != nil {
		return nil, fmt.Errorf("resolve parent checkpoint: %w", err)
	}

	manifest := &store.Manifest{
		SourceRefs: cfg.SourceRefs,
		Inputs:     store.ManifestInputs{ItemsRef: itemsRef},
		Transforms: []store.TransformRecord{
			{
				Name: "filter",
				Config: map[string]any{
					"since":        cfg.Filter.Since,
					"until":        cfg.Filter.Until,
					"minLength":    cfg.Filter.MinLength,
					"requireMedia": cfg.Filter.RequireMedia,
				},
				InputRef:  itemsRef,
				OutputRef: filteredRef,
				Stats:     map[string]int{"before": len(idx), "after": len(filtered)},
			},
			{
				Name:      "threads",
				Config:    sourcesConfigMap(cfg.Sources),
				InputRef:  filteredRef,
				OutputRef: threadsRef,
				Stats:     map[string]int{"threads": result.ThreadCount},
			},
			{
				Name:      "conversations",
				Config:    sourcesConfigMap(cfg.Sources),
				InputRef:  filteredRef,
				OutputRef: conversationsRef,
				Stats:     map[string]int{"conversations": result.ConversationCount},
			},
		},
		DecisionsRef: result.DecisionsRef,
		Notes:        cfg.Notes,
	}
	if parent != nil {
		manifest.ParentID = parent.ID
	}

	id, err := r.Store.SaveCheckpoint(manifest)
	if err != nil {
		return nil, fmt.Errorf("save checkpoint: %w", err)
	}
	result.CheckpointID = id
	r.Log.Info().Str("checkpoint", id).Str("parent", manifest.ParentID).Msg("checkpoint saved")

	return result, nil
}

// foldDecisions reads the configured decision log, persists it as a JSONL
// blob, and attaches the folded latest-state view to the result.
func (r *Runner) foldDecisions(cfg Config, result *RunResult) error {
	f, err := os.Open(cfg.Decisions.Path)
	if err != nil {
		return fmt.Errorf("open decision log: %w", err)
	}
	defer f.Close()

	records, skipped, err := decision.ReadRecords(f)
	if err != nil {
		return fmt.Errorf("read decision log: %w", err)
	}
	if skipped > 0 {
		r.Log.Warn().Int("skipped", skipped).Msg("malformed decision records skipped")
	}

	ref, _, err := r.Store.PutJSONL(recordSeq(records))
	if err != nil {
		return fmt.Errorf("persist decision log: %w", err)
	}
	result.DecisionsRef = ref

	result.Decisions = decision.Fold(records, decision.FoldOptions{
		AllowedStatuses: cfg.Decisions.AllowedStatuses,
	})
	r.Log.Debug().Int("records", len(records)).Int("ids", len(result.Decisions)).Msg("decisions folded")

	return nil
}

func itemSeq(items []item.ContentItem) func(yield func(any) bool) {
	return func(yield func(any) bool) {
		for _, it := range items {
			if !yield(it) {
				return
			}
		}
	}
}

// indexSeq emits the index in ascending id order. JSONL content hashing is
// order-sensitive, so a stable emission order is what makes repeated runs
// over the same data dedup to one blob.
func indexSeq(idx item.Index) func(yield func(any) bool) {
	ids := make([]string, 0, len(idx))
	for id := range idx {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return func(yield func(any) bool) {
		for _, id := range ids {
			if !yield(idx[id]) {
				return
			}
		}
	}
}

func recordSeq(records []decision.Record) func(yield func(any) bool) {
	return func(yield func(any) bool) {
		for _, rec := range records {
			if !yield(rec) {
				return
			}
		}
	}
}

func sourcesConfigMap(s SourcesConfig) map[string]any {
	return map[string]any{
		"self":    s.Self,
		"context": s.Context,
	}
}
