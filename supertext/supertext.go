package supertext

import (
	"github.com/benjamn/wryware/equality"
	"github.com/benjamn/wryware/trie"
)

// Supertext is an immutable node in the ambient context DAG: a frozen list
// of parent Supertexts plus a local map of Subtext slots to values. EMPTY
// is the root every chain eventually reaches.
type Supertext struct {
	parents []*Supertext
	local   map[any]any
	cache   map[any]cacheEntry
}

type cacheEntry struct {
	value   any
	missing bool
}

// EMPTY is the Supertext with no parents and no local writes - the root of
// every branch and merge.
var EMPTY = &Supertext{}

type merger interface {
	mergeAny(older, newer any) any
}

// read implements the lazy, cached, parent-folding lookup described in the
// component's design: a local hit returns immediately; otherwise every
// parent is read, non-missing results are deduplicated keeping the
// rightmost, and the remainder is folded through the slot's merge (or
// rightmost-wins, by default). The result - including a genuine miss - is
// cached, since a Supertext's logical contents never change.
func (s *Supertext) read(sub merger) (value any, missing bool) {
	if s.cache == nil {
		s.cache = make(map[any]cacheEntry)
	}
	if ce, ok := s.cache[sub]; ok {
		return ce.value, ce.missing
	}

	if v, ok := s.local[sub]; ok {
		s.cache[sub] = cacheEntry{value: v}
		return v, false
	}

	var collected []any
	for _, p := range s.parents {
		v, miss := p.read(sub)
		if !miss {
			collected = append(collected, v)
		}
	}
	deduped := dedupRightmost(collected)

	var entry cacheEntry
	if len(deduped) == 0 {
		entry = cacheEntry{missing: true}
	} else {
		result := deduped[0]
		for _, v := range deduped[1:] {
			result = sub.mergeAny(result, v)
		}
		entry = cacheEntry{value: result}
	}
	s.cache[sub] = entry
	return entry.value, entry.missing
}

func dedupRightmost(vals []any) []any {
	keep := make([]bool, len(vals))
	for i := range vals {
		keep[i] = true
	}
	for i := 0; i < len(vals); i++ {
		for j := i + 1; j < len(vals); j++ {
			if equality.Equal(vals[i], vals[j]) {
				keep[i] = false
				break
			}
		}
	}
	out := make([]any, 0, len(vals))
	for i, v := range vals {
		if keep[i] {
			out = append(out, v)
		}
	}
	return out
}

// Branch creates a new child of s - a single-parent Supertext, never
// interned - with each write applied to its local map.
func (s *Supertext) Branch(writes ...Write) *Supertext {
	child := &Supertext{parents: []*Supertext{s}, local: make(map[any]any, len(writes))}
	for _, w := range writes {
		w.apply(child)
	}
	return child
}

var mergeTrie = trie.New(func(path []any) *Supertext {
	parents := make([]*Supertext, len(path))
	for i, p := range path {
		parents[i] = p.(*Supertext)
	}
	return &Supertext{parents: parents}
})

// Merge returns the interned Supertext whose parent list is parents,
// deduplicated preferring the rightmost occurrence of each. The same
// deduplicated parent sequence always yields the same Merge result.
func Merge(parents ...*Supertext) *Supertext {
	deduped := dedupParentsRightmost(parents)
	if len(deduped) == 1 {
		return deduped[0]
	}
	if len(deduped) == 0 {
		return EMPTY
	}
	path := make([]trie.Elem, len(deduped))
	for i, p := range deduped {
		path[i] = trie.Ref(p)
	}
	return *mergeTrie.LookupSlice(path)
}

func dedupParentsRightmost(parents []*Supertext) []*Supertext {
	lastIdx := make(map[*Supertext]int, len(parents))
	for i, p := range parents {
		lastIdx[p] = i
	}
	out := make([]*Supertext, 0, len(parents))
	for i, p := range parents {
		if lastIdx[p] == i {
			out = append(out, p)
		}
	}
	return out
}
