package grouping

import (
	"sort"

	"github.com/spoolhq/spool/internal/item"
)

// Options configures classification. The zero value uses the default source
// sets: {post} self-authored, {context} fetched-context-only.
type Options struct {
	// SelfSources are the source tags of self-authored posts. A chain is
	// only Thread-eligible when every item's source is in this set.
	SelfSources []string

	// ContextSources are the source tags of items fetched purely as
	// conversational context. Context items may appear as ancestors inside
	// chains but never start a chain of their own.
	ContextSources []string
}

// Result is the engine's output: self-authored reply threads and
// deduplicated mixed conversations, both ordered oldest first internally
// and sorted by root id for deterministic output.
type Result struct {
	Threads       []item.Thread       `json:"threads"`
	Conversations []item.Conversation `json:"conversations"`
}

type sourceSets struct {
	self    map[string]bool
	context map[string]bool
}

func (o Options) sets() sourceSets {
	s := sourceSets{self: map[string]bool{}, context: map[string]bool{}}
	if len(o.SelfSources) == 0 {
		s.self[item.SourcePost] = true
	}
	for _, src := range o.SelfSources {
		s.self[src] = true
	}
	if len(o.ContextSources) == 0 {
		s.context[item.SourceContext] = true
	}
	for _, src := range o.ContextSources {
		s.context[src] = true
	}
	return s
}

// Group partitions the index into threads and conversations.
//
// Items are visited newest first (createdAt descending, id descending
// tie-break) so that leaves start chains before their ancestors do. An item
// already absorbed into an emitted thread never starts its own shorter
// chain; conversation chains do not consume their members, so overlapping
// branch fragments are expected and collapsed by the keep-longest-per-root
// dedup afterwards.
func Group(idx item.Index, opts Options) Result {
	sets := opts.sets()

	order := make([]string, 0, len(idx))
	for id := range idx {
		order = append(order, id)
	}
	sort.Slice(order, func(i, j int) bool {
		a, b := idx[order[i]], idx[order[j]]
		if a.CreatedAt != b.CreatedAt {
			return a.CreatedAt > b.CreatedAt
		}
		return a.ID > b.ID
	})

	var result Result
	processed := make(map[string]bool, len(idx))
	var rawConversations []item.Conversation

	for _, id := range order {
		it := idx[id]
		if sets.context[it.Source] {
			continue // context items never start chains
		}
		if processed[id] {
			continue
		}

		chain := buildChain(idx, it)

		if isThread(chain, sets) {
			result.Threads = append(result.Threads, item.Thread{
				ID:    chain[0].ID,
				Items: chain,
			})
			for _, member := range chain {
				processed[member.ID] = true
			}
			continue
		}

		rawConversations = append(rawConversations, item.Conversation{
			Root:  chain[0].ID,
			Items: chain,
		})
	}

	result.Conversations = dedupeConversations(rawConversations)

	sort.Slice(result.Threads, func(i, j int) bool {
		return result.Threads[i].ID < result.Threads[j].ID
	})
	sort.Slice(result.Conversations, func(i, j int) bool {
		return result.Conversations[i].Root < result.Conversations[j].Root
	})

	return result
}

// buildChain walks parent pointers from leaf up through every resolvable
// ancestor, then reverses to oldest-first order. The walk deliberately does
// NOT stop at ancestors already claimed by other chains - full context is
// preserved across overlapping branches. A parent link that revisits an id
// already in the current chain terminates the walk, as does an unresolved
// parentId.
func buildChain(idx item.Index, leaf item.ContentItem) []item.ContentItem {
	chain := []item.ContentItem{leaf}
	inChain := map[string]bool{leaf.ID: true}

	current := leaf
	for current.ParentID != "" {
		parent, ok := idx[current.ParentID]
		if !ok {
			break
		}
		if inChain[parent.ID] {
			break // cycle guard
		}
		chain = append(chain, parent)
		inChain[parent.ID] = true
		current = parent
	}

	// Reverse to oldest -> newest; the root becomes chain[0].
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// isThread reports whether an oldest-first chain is a self-authored reply
// thread: every item's source is self-authored AND every non-root item is a
// self-reply.
func isThread(chain []item.ContentItem, sets sourceSets) bool {
	for _, it := range chain {
		if !sets.self[it.Source] {
			return false
		}
	}
	for _, it := range chain[1:] {
		if !isSelfReply(it) {
			return false
		}
	}
	return true
}

// isSelfReply reports whether an item replies to its own author. Items with
// no parent are trivially self-replies. When either the reply target or the
// item's own account is unknown, ownership is ambiguous and the item
// defaults to self-reply (conservatively thread-eligible).
func isSelfReply(it item.ContentItem) bool {
	if it.ParentID == "" {
		return true
	}
	if it.InReplyToUserID == "" || it.AccountID == "" {
		return true
	}
	return it.InReplyToUserID == it.AccountID
}

// dedupeConversations keeps the longest conversation per distinct root id.
// On equal length the first one built wins; with newest-first iteration that
// is the fragment discovered from the newest leaf.
func dedupeConversations(convs []item.Conversation) []item.Conversation {
	byRoot := make(map[string]item.Conversation, len(convs))
	for _, c := range convs {
		best, ok := byRoot[c.Root]
		if !ok || len(c.Items) > len(best.Items) {
			byRoot[c.Root] = c
		}
	}

	out := make([]item.Conversation, 0, len(byRoot))
	for _, c := range byRoot {
		out = append(out, c)
	}
	return out
}
