// Package grouping reconstructs conversational structure from a flat,
// parent-pointer-linked item index.
//
// Each index item can start a chain: the item plus every ancestor reachable
// through parentId. Chains whose items are all self-authored posts and whose
// replies all target their own author become Threads; everything else
// becomes a Conversation. Conversations are deduplicated afterwards, keeping
// the longest chain observed per root.
//
// The engine is pure in-memory computation with no fatal error path:
// unresolved parents and cyclic parent pointers just stop the chain walk.
package grouping
