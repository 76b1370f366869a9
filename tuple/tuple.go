// Package tuple builds immutable fixed-length sequences that are guaranteed
// identical by reference when their elements are element-wise identical.
package tuple

import "github.com/benjamn/wryware/trie"

// Tuple is an immutable, length-indexed sequence obtained only through an
// [Interner]. Two tuples produced by the same interner are identical
// pointers iff their elements are element-wise identical: reference
// equality for elements built with [trie.Ref], value equality for elements
// built with [trie.Val].
type Tuple struct {
	elems []any
}

// Len returns the number of elements in the tuple.
func (t *Tuple) Len() int { return len(t.elems) }

// At returns the element at index i, as originally supplied to
// [Interner.Tuple] (the pointer itself for reference-like elements, the raw
// value for primitive-like ones).
func (t *Tuple) At(i int) any { return t.elems[i] }

// All is a range-over-func iterator over the tuple's index/element pairs,
// in order: for i, v := range t.All { ... }.
func (t *Tuple) All(yield func(int, any) bool) {
	for i, v := range t.elems {
		if !yield(i, v) {
			return
		}
	}
}

// Slice returns a defensive copy of the tuple's elements.
func (t *Tuple) Slice() []any {
	out := make([]any, len(t.elems))
	copy(out, t.elems)
	return out
}

// Interner builds Tuples, deduplicated by element-wise identity via a
// [trie.Trie]. Construct one with [New]. The zero value is not usable.
type Interner struct {
	trie *trie.Trie[*Tuple]
}

// New constructs an Interner.
func New() *Interner {
	in := &Interner{}
	in.trie = trie.New(func(path []any) *Tuple {
		elems := append([]any(nil), path...)
		return &Tuple{elems: elems}
	})
	return in
}

// Tuple returns the canonical Tuple for elems: the same sequence of
// elements (by the identity rules above) always yields the same *Tuple.
func (in *Interner) Tuple(elems ...trie.Elem) *Tuple {
	return *in.trie.LookupSlice(elems)
}
