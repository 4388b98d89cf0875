package item

import (
	"encoding/json"
	"testing"
)

func TestBuildIndex(t *testing.T) {
	items := []ContentItem{
		{ID: "a", Text: "first"},
		{ID: "b", Text: "second"},
		{ID: "a", Text: "replacement"},
	}

	idx, dups := BuildIndex(items)

	if len(idx) != 2 {
		t.Errorf("expected 2 entries, got %d", len(idx))
	}
	if dups != 1 {
		t.Errorf("expected 1 duplicate, got %d", dups)
	}
	if idx["a"].Text != "replacement" {
		t.Errorf("duplicate id should resolve last-write-wins, got %q", idx["a"].Text)
	}
}

func TestContentItem_JSONShape(t *testing.T) {
	data := []byte(`{
		"id": "123",
		"text": "hello",
		"createdAt": "2025-01-01T00:00:00Z",
		"parentId": "122",
		"inReplyToUserId": "u1",
		"accountId": "u1",
		"source": "post",
		"media": [{"id": "m1", "kind": "photo", "path": "media/m1.jpg"}],
		"raw": {"anything": ["goes", 1]}
	}`)

	var it ContentItem
	if err := json.Unmarshal(data, &it); err != nil {
		t.Fatalf("Unmarshal() failed: %v", err)
	}

	if it.ID != "123" || it.ParentID != "122" || it.Source != SourcePost {
		t.Errorf("fields not mapped: %+v", it)
	}
	if len(it.Media) != 1 || it.Media[0].Kind != "photo" {
		t.Errorf("media not mapped: %+v", it.Media)
	}
	if len(it.Raw) == 0 {
		t.Error("raw payload should pass through opaquely")
	}
}

func TestContentItem_RawRoundTrip(t *testing.T) {
	it := ContentItem{ID: "1", Source: SourcePost, Raw: json.RawMessage(`{"k":"v"}`)}

	data, err := json.Marshal(it)
	if err != nil {
		t.Fatalf("Marshal() failed: %v", err)
	}

	var back ContentItem
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() failed: %v", err)
	}
	if string(back.Raw) != `{"k":"v"}` {
		t.Errorf("raw payload mangled: %s", back.Raw)
	}
}
