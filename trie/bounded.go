package trie

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Bounded is a capacity-bounded, strongly-held alternative to [Trie],
// intended for call sites that want WeakTrie-style memoization but can
// tolerate entries being evicted under memory pressure rather than only on
// garbage collection. It never holds keys weakly.
//
// Unlike [Trie], Bounded does not guarantee that a payload pointer returned
// for a path remains the one returned on a later lookup of the same path:
// once evicted, a path is recomputed from scratch via makeData.
type Bounded[V any] struct {
	cache    *lru.Cache[string, *V]
	makeData MakeData[V]
}

// NewBounded constructs a Bounded trie with room for at most capacity
// distinct paths, backed by an LRU eviction policy.
func NewBounded[V any](capacity int, makeData MakeData[V]) (*Bounded[V], error) {
	c, err := lru.New[string, *V](capacity)
	if err != nil {
		return nil, err
	}
	return &Bounded[V]{cache: c, makeData: makeData}, nil
}

// Lookup returns the payload for path, computing and caching it on first
// access. The key is derived from the formatted form of each path element.
// A reference-like element's formatted form includes its address, so
// distinct pointers never share a key; primitive-like elements are told
// apart only by their formatted value, so Val(1) and Val("1") share one.
func (b *Bounded[V]) Lookup(path ...Elem) *V {
	return b.LookupSlice(path)
}

// LookupSlice is the slice-argument form of [Bounded.Lookup].
func (b *Bounded[V]) LookupSlice(path []Elem) *V {
	key := boundedKey(path)
	if v, ok := b.cache.Get(key); ok {
		return v
	}
	data := b.makeData(valuesOf(path))
	b.cache.Add(key, &data)
	return &data
}

// Len reports the number of distinct paths currently cached.
func (b *Bounded[V]) Len() int { return b.cache.Len() }

func boundedKey(path []Elem) string {
	key := make([]byte, 0, 16*len(path))
	for _, e := range path {
		key = fmt.Appendf(key, "%p:%v|", e, e.Value())
	}
	return string(key)
}
