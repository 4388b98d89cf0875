package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spoolhq/spool/internal/item"
)

func fixtureIndex() item.Index {
	idx, _ := item.BuildIndex([]item.ContentItem{
		{ID: "early", Text: "old post", CreatedAt: "2020-01-01T00:00:00Z", Source: item.SourcePost},
		{ID: "mid", Text: "hello world", CreatedAt: "2023-06-01T00:00:00Z", Source: item.SourcePost},
		{ID: "late", Text: "hi", CreatedAt: "2025-01-01T00:00:00Z", Source: item.SourcePost},
		{ID: "pics", Text: "look", CreatedAt: "2023-06-02T00:00:00Z", Source: item.SourcePost,
			Media: []item.Media{{ID: "m", Kind: "photo"}}},
		{ID: "ctx", Text: "", CreatedAt: "2019-01-01T00:00:00Z", Source: item.SourceContext},
	})
	return idx
}

func TestApplyFilter_NoRulesKeepsEverything(t *testing.T) {
	idx := fixtureIndex()
	out := applyFilter(idx, FilterConfig{}, []string{item.SourceContext})
	assert.Len(t, out, len(idx))
}

func TestApplyFilter_SinceUntil(t *testing.T) {
	out := applyFilter(fixtureIndex(), FilterConfig{
		Since: "2023-01-01",
		Until: "2024-01-01",
	}, []string{item.SourceContext})

	assert.Contains(t, out, "mid")
	assert.Contains(t, out, "pics")
	assert.NotContains(t, out, "early")
	assert.NotContains(t, out, "late")
	// Context items always pass: dropping ancestors would break chains.
	assert.Contains(t, out, "ctx")
}

func TestApplyFilter_MinLength(t *testing.T) {
	out := applyFilter(fixtureIndex(), FilterConfig{MinLength: 5}, []string{item.SourceContext})

	assert.Contains(t, out, "mid")
	assert.NotContains(t, out, "late") // "hi" is too short
	assert.Contains(t, out, "ctx")    // empty text but context
}

func TestApplyFilter_RequireMedia(t *testing.T) {
	out := applyFilter(fixtureIndex(), FilterConfig{RequireMedia: true}, []string{item.SourceContext})

	assert.Contains(t, out, "pics")
	assert.NotContains(t, out, "mid")
	assert.Contains(t, out, "ctx")
}

func TestApplyFilter_UnparseableTimestampPasses(t *testing.T) {
	idx, _ := item.BuildIndex([]item.ContentItem{
		{ID: "odd", Text: "undated", CreatedAt: "sometime", Source: item.SourcePost},
	})
	out := applyFilter(idx, FilterConfig{Since: "2024-01-01"}, nil)
	assert.Contains(t, out, "odd")
}
