// Package pcache implements the packrat parser cache of spec.md §4.2:
// keyed by (Position, BlockList-identity, ParserContext), supporting a
// stack of layers where layer_revert(to) drops every key inserted after
// `to`. Each entry carries a "seen" flag the seed-grower inspects.
//
// Grounded on ast/parser.go's `memo map[int]map[interface{}]resultTuple`
// generalized with a bounded LRU backing store
// (github.com/hashicorp/golang-lru/v2) in the shape of topdown/cache's
// bounded evaluation cache, because an adaptive grammar can in principle
// grow rule instances without bound across a long parse.
package pcache

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/prism-lang/prismc/pkg/source"
)

// Key identifies one memo slot: a position, the identity of the block list
// being parsed there (spec.md's "rule-instance", which for a parametric or
// adapted rule is not just a rule name but the specific block-list value),
// and the parser context (layout-enabled/disabled, recovery state, etc).
type Key struct {
	Pos       source.Position
	BlockList uint64
	Ctx       uint64
}

// Entry is one cached outcome. Value/Ok/End describe the memoized
// ParseResult in an engine-agnostic way (the engine package stores its own
// presult.Result[any] as Value). Seen is read by the seed-growing
// left-recursion algorithm (spec.md §4.3.1): it is false when a sentinel is
// installed and flips to true the moment something reads that sentinel back
// out of the cache. Nothing clears it; a later Set replaces the entry.
type Entry struct {
	Value any
	Ok    bool
	End   source.Position
	Seen  bool
}

// layerMark records, for one layer checkpoint, which keys existed in the
// cache already so a revert only needs to remove what was added since.
type layerMark struct {
	inserted []Key
}

// Cache is the layered packrat memo table.
type Cache struct {
	lru    *lru.Cache[Key, *Entry]
	layers []layerMark
}

// New returns a cache bounded to at most capacity entries. A capacity of 0
// (or less) means effectively unbounded: an LRU of capacity 1<<30, since
// golang-lru/v2 requires capacity > 0.
func New(capacity int) *Cache {
	c := &Cache{}
	if capacity > 0 {
		l, err := lru.New[Key, *Entry](capacity)
		if err != nil {
			// Only returned for capacity <= 0, which we've excluded.
			panic(err)
		}
		c.lru = l
	} else {
		l, _ := lru.New[Key, *Entry](1 << 30)
		c.lru = l
	}
	return c
}

// Get looks up a memo entry. A miss (including an evicted entry) is always
// safe: the caller re-parses, per spec.md §4.2/testable property 3 — the
// cache is pure memoization and its absence never changes a result.
func (c *Cache) Get(k Key) (*Entry, bool) {
	e, ok := c.lru.Get(k)
	return e, ok
}

// Set inserts or overwrites a memo entry and records it against the
// topmost layer (if any) for later revert.
func (c *Cache) Set(k Key, e *Entry) {
	c.lru.Add(k, e)
	if n := len(c.layers); n > 0 {
		c.layers[n-1].inserted = append(c.layers[n-1].inserted, k)
	}
}

// MarkSeen flips the Seen flag on an existing entry, used by the
// seed-growing sentinel-read detection of spec.md §4.3.1 step 3.
func (c *Cache) MarkSeen(k Key) {
	if e, ok := c.lru.Get(k); ok {
		e.Seen = true
	}
}

// LayerPush starts a new revertible layer. Returns a token to pass to
// LayerRevert or LayerCommit.
func (c *Cache) LayerPush() int {
	c.layers = append(c.layers, layerMark{})
	return len(c.layers) - 1
}

// LayerRevert drops every key inserted in layers at or after `to`. A key
// that already existed before LayerPush(to) and was overwritten inside the
// layer is removed as well, not restored to its earlier entry. This
// is always called before any observer outside the growing loop can see
// the reverted layer's entries (spec.md §5's ordering guarantee).
func (c *Cache) LayerRevert(to int) {
	if to < 0 || to >= len(c.layers) {
		return
	}
	for i := len(c.layers) - 1; i >= to; i-- {
		for _, k := range c.layers[i].inserted {
			c.lru.Remove(k)
		}
	}
	c.layers = c.layers[:to]
}

// LayerCommit discards the journal for layers at or after `to` without
// removing their entries: they become permanent (folded into whatever
// layer is now on top).
func (c *Cache) LayerCommit(to int) {
	if to < 0 || to >= len(c.layers) {
		return
	}
	if to == 0 {
		c.layers = c.layers[:0]
		return
	}
	kept := c.layers[:to]
	for i := to; i < len(c.layers); i++ {
		kept[to-1].inserted = append(kept[to-1].inserted, c.layers[i].inserted...)
	}
	c.layers = kept
}

// Len reports the number of live entries, for tests exercising the
// boundedness property (SPEC_FULL.md §8 testable property 9).
func (c *Cache) Len() int {
	return c.lru.Len()
}

// Clear empties the cache and drops all layer bookkeeping, used by
// pkg/recovery between retries (spec.md §4.7: "clear cache; retry" — a
// recovery point changes the engine's effective behavior at a position, so
// every memoized outcome downstream of it is no longer trustworthy).
func (c *Cache) Clear() {
	c.lru.Purge()
	c.layers = nil
}
