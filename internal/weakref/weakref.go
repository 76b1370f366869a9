// Package weakref provides a small, type-erased weak-identity primitive used
// by [trie] and [keysetmap] to hold reference-like keys without retaining
// them, while still exposing a comparable value suitable for use as a map
// key.
//
// Go's standard [weak.Pointer] is generic over a statically known pointee
// type, so a structure that must mix keys of many different concrete
// pointer types in the same map (as WeakTrie and KeySetMap both do) cannot
// build a single weak.Pointer[T] for all of them. Elem sidesteps this by
// asking the caller to supply the concrete type at construction time (via
// [Ref]), exactly the "discriminator passed at construction" pattern the
// specification sanctions for prototype/class identity.
package weakref

import (
	"runtime"
	"weak"
)

// Elem is one component of a path: either a weakly held reference-like key
// (built with [Ref]) or a strongly held, compared-by-value primitive-like
// key (built with [Val]).
type Elem interface {
	// MapKey returns the comparable value used to index this element among
	// a node's children when the owning trie holds reference-like keys
	// weakly. For reference-like elements this is a boxed weak.Pointer[T];
	// for primitive-like elements it is the raw value.
	MapKey() any
	// StrongKey returns a comparable value that strongly retains the
	// element's referent, used when the owning trie was constructed with
	// weakness disabled.
	StrongKey() any
	// Value returns the original value the element was built from (the
	// pointer itself for reference-like elements, the raw value for
	// primitive-like ones), for use in make-data callbacks.
	Value() any
	// Reference reports whether this element is reference-like.
	Reference() bool
	// AttachCleanup registers onCollect to run once this element's
	// referent becomes unreachable by anything but other cleanups. It is a
	// no-op for primitive-like elements. onCollect is invoked without any
	// strong reference back to the original pointer.
	AttachCleanup(onCollect func())
}

type refElem[T any] struct {
	p *T
}

// Ref marks p as a reference-like path element: it is held weakly, and the
// subtrie rooted at it is eligible for pruning once p is otherwise
// unreachable.
func Ref[T any](p *T) Elem {
	return refElem[T]{p: p}
}

func (e refElem[T]) MapKey() any    { return weak.Make(e.p) }
func (e refElem[T]) StrongKey() any { return e.p }
func (e refElem[T]) Value() any     { return e.p }
func (e refElem[T]) Reference() bool { return true }

func (e refElem[T]) AttachCleanup(onCollect func()) {
	if onCollect == nil {
		return
	}
	runtime.AddCleanup(e.p, func(f func()) { f() }, onCollect)
}

type valElem struct {
	v any
}

// Val marks v as a primitive-like path element: it is held strongly and
// compared by value. v must be comparable; non-comparable values (slices,
// maps, funcs) will panic the first time they are used as a map key, which
// is the same failure mode Go gives for any map keyed on `any`.
func Val(v any) Elem {
	return valElem{v: v}
}

func (e valElem) MapKey() any        { return e.v }
func (e valElem) StrongKey() any     { return e.v }
func (e valElem) Value() any         { return e.v }
func (e valElem) Reference() bool    { return false }
func (e valElem) AttachCleanup(func()) {}
