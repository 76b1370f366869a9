// Copyright 2022 Sylvain Müller. All rights reserved.
// Mount of this source code is governed by a Apache-2.0 license that can be found
// at https://github.com/tigerwill90/fox/blob/master/LICENSE.txt.

// Package trie implements WeakTrie, a prefix lookup structure keyed by
// arbitrary sequences of values, including non-hashable object references.
// Reference-like keys are held weakly by default, so the subtrie reachable
// only through them is reclaimed once the key itself becomes unreachable.
package trie

import (
	"sync"

	"github.com/benjamn/wryware/internal/weakref"
)

// Elem is a single path component. Build one with [Ref] for a weakly-held
// reference-like key, or [Val] for a strongly-held primitive-like key.
type Elem = weakref.Elem

// Ref marks p as a reference-like path element.
func Ref[T any](p *T) Elem { return weakref.Ref(p) }

// Val marks v as a primitive-like path element. v must be comparable.
func Val(v any) Elem { return weakref.Val(v) }

// MakeData lazily produces the payload for a path the first time it is
// reached. It receives the original values the path was built from (see
// [Elem.Value]), in order.
type MakeData[V any] func(path []any) V

// Trie is a WeakTrie. The zero value is not usable; construct one with
// [New]. A Trie is not safe for concurrent use by multiple goroutines
// except insofar as cleanup callbacks triggered by garbage collection may
// run concurrently with callers; Trie serializes those internally.
type Trie[V any] struct {
	mu       sync.Mutex
	root     *node[V]
	makeData MakeData[V]
	strong   bool
}

// Option configures a Trie at construction.
type Option func(*config)

type config struct {
	strong bool
}

// WithWeakness controls whether reference-like keys are held weakly
// (weak=true, the default) or strongly (weak=false). Disabling weakness
// does not change lookup semantics, only memory behavior: subtries
// reachable only through reference-like keys are never reclaimed.
func WithWeakness(weak bool) Option {
	return func(c *config) { c.strong = !weak }
}

// New constructs an empty Trie whose payloads are produced by makeData.
func New[V any](makeData MakeData[V], opts ...Option) *Trie[V] {
	var c config
	for _, opt := range opts {
		opt(&c)
	}
	return &Trie[V]{
		root:     newNode[V](),
		makeData: makeData,
		strong:   c.strong,
	}
}

type node[V any] struct {
	refChildren map[any]*child[V]
	valChildren map[any]*child[V]
	data        *V
	hasData     bool
}

func newNode[V any]() *node[V] {
	return &node[V]{}
}

// child is either a fully expanded node or a flattened, unshared tail.
type child[V any] struct {
	node *node[V]
	tail *tailRecord[V]
}

type tailRecord[V any] struct {
	keys []Elem
	data *V
}

func (n *node[V]) childMap(ref bool, create bool) map[any]*child[V] {
	if ref {
		if n.refChildren == nil && create {
			n.refChildren = make(map[any]*child[V])
		}
		return n.refChildren
	}
	if n.valChildren == nil && create {
		n.valChildren = make(map[any]*child[V])
	}
	return n.valChildren
}

func keyFor(e Elem, strong bool) any {
	if strong {
		return e.StrongKey()
	}
	return e.MapKey()
}

func elemsEqual(a, b Elem, strong bool) (equal bool) {
	defer func() {
		// Val() elements may hold non-comparable dynamic values; treat
		// that as "not equal" rather than propagating a panic from ==.
		if recover() != nil {
			equal = false
		}
	}()
	return keyFor(a, strong) == keyFor(b, strong)
}

func valuesOf(path []Elem) []any {
	out := make([]any, len(path))
	for i, e := range path {
		out[i] = e.Value()
	}
	return out
}

// Lookup walks path, creating nodes and tails as needed, and returns a
// pointer to the payload at that path. The same path (by the WeakTrie
// identity rules) always yields a pointer to the same payload.
func (t *Trie[V]) Lookup(path ...Elem) *V {
	return t.LookupSlice(path)
}

// LookupSlice is the slice-argument form of [Trie.Lookup].
func (t *Trie[V]) LookupSlice(path []Elem) *V {
	t.mu.Lock()
	defer t.mu.Unlock()

	cur := t.root
	i := 0
	for i < len(path) {
		elem := path[i]
		ref := elem.Reference() && !t.strong
		children := cur.childMap(ref, true)
		key := keyFor(elem, t.strong)

		c, ok := children[key]
		if !ok {
			rest := append([]Elem(nil), path[i:]...)
			c = &child[V]{tail: &tailRecord[V]{keys: rest}}
			children[key] = c
			if ref {
				t.attachCleanup(elem, children, key)
			}
			data := t.makeData(valuesOf(path))
			c.tail.data = &data
			return c.tail.data
		}

		if c.tail != nil {
			tk := c.tail.keys
			newSuffix := path[i:]
			j := 0
			for j < len(tk) && j < len(newSuffix) && elemsEqual(tk[j], newSuffix[j], t.strong) {
				j++
			}
			if j == len(tk) && j == len(newSuffix) {
				return c.tail.data
			}

			n := newNode[V]()
			children[key] = &child[V]{node: n}

			// n stands for tk[0]; add one node per further shared key so
			// that n ends up at the point where the two paths diverge.
			for k := 1; k < j; k++ {
				e := tk[k]
				eref := e.Reference() && !t.strong
				echildren := n.childMap(eref, true)
				ekey := keyFor(e, t.strong)
				next := newNode[V]()
				echildren[ekey] = &child[V]{node: next}
				if eref {
					t.attachCleanup(e, echildren, ekey)
				}
				n = next
			}

			if j < len(tk) {
				// Old tail survives as n's own child.
				tailKeyElem := tk[j]
				tref := tailKeyElem.Reference() && !t.strong
				tchildren := n.childMap(tref, true)
				tkey := keyFor(tailKeyElem, t.strong)
				remaining := append([]Elem(nil), tk[j:]...)
				tchildren[tkey] = &child[V]{tail: &tailRecord[V]{keys: remaining, data: c.tail.data}}
				if tref {
					t.attachCleanup(tailKeyElem, tchildren, tkey)
				}
			} else {
				// j == len(tk): the old path ends exactly here.
				n.hasData = true
				n.data = c.tail.data
			}

			cur = n
			i += j
			continue
		}

		cur = c.node
		i++
	}

	if !cur.hasData {
		data := t.makeData(valuesOf(path))
		cur.data = &data
		cur.hasData = true
	}
	return cur.data
}

// Peek reports whether path already has a payload, without creating one.
func (t *Trie[V]) Peek(path ...Elem) (*V, bool) {
	return t.PeekSlice(path)
}

// PeekSlice is the slice-argument form of [Trie.Peek].
func (t *Trie[V]) PeekSlice(path []Elem) (*V, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cur := t.root
	i := 0
	for i < len(path) {
		elem := path[i]
		ref := elem.Reference() && !t.strong
		children := cur.childMap(ref, false)
		if children == nil {
			return nil, false
		}
		key := keyFor(elem, t.strong)
		c, ok := children[key]
		if !ok {
			return nil, false
		}
		if c.tail != nil {
			tk := c.tail.keys
			rest := path[i:]
			if len(tk) != len(rest) {
				return nil, false
			}
			for j := range tk {
				if !elemsEqual(tk[j], rest[j], t.strong) {
					return nil, false
				}
			}
			return c.tail.data, true
		}
		cur = c.node
		i++
	}
	if !cur.hasData {
		return nil, false
	}
	return cur.data, true
}

// Remove deletes path's payload, if any, and reports whether one was
// removed. It does not prune now-empty interior nodes left behind; they
// carry no payload and are harmless, cheap placeholders.
func (t *Trie[V]) Remove(path ...Elem) bool {
	return t.RemoveSlice(path)
}

// RemoveSlice is the slice-argument form of [Trie.Remove].
func (t *Trie[V]) RemoveSlice(path []Elem) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	cur := t.root
	i := 0
	for i < len(path) {
		elem := path[i]
		ref := elem.Reference() && !t.strong
		children := cur.childMap(ref, false)
		if children == nil {
			return false
		}
		key := keyFor(elem, t.strong)
		c, ok := children[key]
		if !ok {
			return false
		}
		if c.tail != nil {
			tk := c.tail.keys
			rest := path[i:]
			if len(tk) != len(rest) {
				return false
			}
			for j := range tk {
				if !elemsEqual(tk[j], rest[j], t.strong) {
					return false
				}
			}
			delete(children, key)
			return true
		}
		cur = c.node
		i++
	}
	if !cur.hasData {
		return false
	}
	cur.data = nil
	cur.hasData = false
	return true
}

func (t *Trie[V]) attachCleanup(elem Elem, children map[any]*child[V], key any) {
	elem.AttachCleanup(func() {
		t.mu.Lock()
		delete(children, key)
		t.mu.Unlock()
	})
}
