// Package item defines the normalized archive record shapes shared by the
// grouping engine, the object store, and the pipeline.
//
// Items arrive already normalized by per-source ingestion adapters (outside
// this module). The core never mutates them.
package item

import "encoding/json"

// Source tags identifying where an item came from and what kind it is.
// Classification in the grouping engine depends only on whether a tag is in
// the self-authored set or the fetched-context set.
const (
	// SourcePost marks a self-authored post from the archive owner.
	SourcePost = "post"

	// SourceContext marks a post fetched purely as conversational context
	// (another author's message pulled in to complete a reply chain).
	// Context items never start chains of their own.
	SourceContext = "context"

	// SourceLike marks a liked/favorited item.
	SourceLike = "like"
)

// Media is a single attachment referenced by a ContentItem.
type Media struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
	Path string `json:"path,omitempty"`
	URL  string `json:"url,omitempty"`
}

// ContentItem is one normalized post/message/like from a personal archive.
//
// ParentID, if set, should resolve to another item in the same index; an
// unresolved parent simply terminates chain walks and is never an error.
type ContentItem struct {
	ID              string          `json:"id"`
	Text            string          `json:"text"`
	CreatedAt       string          `json:"createdAt"`
	ParentID        string          `json:"parentId,omitempty"`
	InReplyToUserID string          `json:"inReplyToUserId,omitempty"`
	AccountID       string          `json:"accountId,omitempty"`
	Source          string          `json:"source"`
	Media           []Media         `json:"media,omitempty"`
	Raw             json.RawMessage `json:"raw,omitempty"`
}

// Index maps item id to item for one ingestion run. IDs are unique within a
// run; building an index from a slice resolves duplicates last-write-wins.
type Index map[string]ContentItem

// BuildIndex constructs an Index from a slice of items. Returns the index and
// the number of duplicate ids that were overwritten.
func BuildIndex(items []ContentItem) (Index, int) {
	idx := make(Index, len(items))
	dups := 0
	for _, it := range items {
		if _, ok := idx[it.ID]; ok {
			dups++
		}
		idx[it.ID] = it
	}
	return idx, dups
}

// Thread is a self-authored reply chain, oldest first. ID equals the oldest
// item's id (the chain root).
type Thread struct {
	ID    string        `json:"id"`
	Items []ContentItem `json:"items"`
}

// Conversation is a mixed-author reply chain, oldest first. Root is the
// oldest item's id. After dedup at most one conversation exists per root and
// it is the longest chain observed for that root.
type Conversation struct {
	Root  string        `json:"root"`
	Items []ContentItem `json:"items"`
}
