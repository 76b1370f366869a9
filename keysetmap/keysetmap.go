// Package keysetmap implements KeySetMap: a map from a *set* of keys
// (order and duplication don't matter) to a payload, with weakly-held
// reference-like keys so an entry is reclaimed once any of its keys is.
package keysetmap

import (
	"fmt"
	"sort"

	"github.com/benjamn/wryware/trie"
)

// Entry is the payload stored for one canonical key set.
type Entry[V any] struct {
	// Keys is the deduplicated, canonically ordered key set that produced
	// this entry's data - the same contents regardless of how many times, or
	// in what order, the caller's original key list named them.
	Keys []any
	Data V
}

// MakeData lazily produces the payload for a newly seen canonical key set.
type MakeData[V any] func(keys []any) V

// KeySetMap maps sets of keys to a payload, interned through a [trie.Trie]
// keyed by each set's canonical (sorted, deduplicated) form. The zero
// value is not usable; construct one with [New].
type KeySetMap[V any] struct {
	trie *trie.Trie[*Entry[V]]
}

// New constructs an empty KeySetMap whose payloads are produced by makeData.
func New[V any](makeData MakeData[V]) *KeySetMap[V] {
	m := &KeySetMap[V]{}
	m.trie = trie.New(func(path []any) *Entry[V] {
		keys := append([]any(nil), path...)
		return &Entry[V]{Keys: keys, Data: makeData(keys)}
	})
	return m
}

// Lookup returns the entry for keys, creating it on first access. The
// result is the same entry regardless of the order or duplication of keys
// across calls.
func (m *KeySetMap[V]) Lookup(keys ...trie.Elem) *Entry[V] {
	return m.LookupSet(keys)
}

// LookupSet is the slice-argument form of [KeySetMap.Lookup].
func (m *KeySetMap[V]) LookupSet(keys []trie.Elem) *Entry[V] {
	return *m.trie.LookupSlice(canonicalize(keys))
}

// Peek returns the entry for keys without creating one.
func (m *KeySetMap[V]) Peek(keys ...trie.Elem) (*Entry[V], bool) {
	return m.PeekSet(keys)
}

// PeekSet is the slice-argument form of [KeySetMap.Peek].
func (m *KeySetMap[V]) PeekSet(keys []trie.Elem) (*Entry[V], bool) {
	v, ok := m.trie.PeekSlice(canonicalize(keys))
	if !ok {
		return nil, false
	}
	return *v, true
}

// Remove deletes the entry for keys, if any, and reports whether one was
// removed.
func (m *KeySetMap[V]) Remove(keys ...trie.Elem) bool {
	return m.RemoveSet(keys)
}

// RemoveSet is the slice-argument form of [KeySetMap.Remove].
func (m *KeySetMap[V]) RemoveSet(keys []trie.Elem) bool {
	return m.trie.RemoveSlice(canonicalize(keys))
}

// Bounded is a capacity-bounded, strongly-held sibling of [KeySetMap]: it
// never reclaims an entry on key garbage collection, only on LRU eviction
// once the map holds more than capacity distinct key sets. Use it when
// the key sets themselves might not be long-lived references (so weak
// collection wouldn't help) but unbounded growth still needs a backstop.
type Bounded[V any] struct {
	trie *trie.Bounded[*Entry[V]]
}

// NewBounded constructs a Bounded KeySetMap with room for at most capacity
// distinct canonical key sets.
func NewBounded[V any](capacity int, makeData MakeData[V]) (*Bounded[V], error) {
	b := &Bounded[V]{}
	tr, err := trie.NewBounded(capacity, func(path []any) *Entry[V] {
		keys := append([]any(nil), path...)
		return &Entry[V]{Keys: keys, Data: makeData(keys)}
	})
	if err != nil {
		return nil, err
	}
	b.trie = tr
	return b, nil
}

// Lookup returns the entry for keys, creating (or recomputing, if
// evicted) it on access.
func (b *Bounded[V]) Lookup(keys ...trie.Elem) *Entry[V] {
	return b.LookupSet(keys)
}

// LookupSet is the slice-argument form of [Bounded.Lookup].
func (b *Bounded[V]) LookupSet(keys []trie.Elem) *Entry[V] {
	return *b.trie.LookupSlice(canonicalize(keys))
}

// Len reports the number of distinct key sets currently cached.
func (b *Bounded[V]) Len() int { return b.trie.Len() }

// canonicalize deduplicates keys (keeping the first occurrence of each
// distinct key) and sorts the result by a stable, derived sort key, so any
// permutation or repetition of the same logical set produces the exact
// same path into the trie.
//
// Reference-like elements are sorted by their identity (the address
// [trie.Elem.StrongKey] holds), not their content: two distinct pointers
// whose pointees format identically (e.g. two separate *Foo{X: 1} values,
// both rendering "&{1}") are still distinct keys, and a content-derived
// sort key would let {p1, p2} and {p2, p1} tie-break into different
// orders. Primitive Val elements have no identity beyond their content, so
// those are sorted by value as before.
func canonicalize(keys []trie.Elem) []trie.Elem {
	type tagged struct {
		elem    trie.Elem
		sortKey string
	}
	seen := make(map[any]bool, len(keys))
	uniq := make([]tagged, 0, len(keys))
	for _, k := range keys {
		id := k.StrongKey()
		if seen[id] {
			continue
		}
		seen[id] = true
		uniq = append(uniq, tagged{elem: k, sortKey: sortKey(k)})
	}
	sort.Slice(uniq, func(i, j int) bool { return uniq[i].sortKey < uniq[j].sortKey })

	out := make([]trie.Elem, len(uniq))
	for i, u := range uniq {
		out[i] = u.elem
	}
	return out
}

// sortKey derives a stable total-order key for k: identity-based (the
// StrongKey address) for reference-like elements, content-based otherwise.
func sortKey(k trie.Elem) string {
	if k.Reference() {
		return fmt.Sprintf("ref|%p", k.StrongKey())
	}
	return fmt.Sprintf("val|%T|%v", k.Value(), k.Value())
}
