// Package supertext implements Supertext/Subtext: an immutable, DAG-shaped
// ambient context. A Supertext is a node with a frozen parent list and a
// local map of typed slots (Subtext) to values; reading a slot walks up
// through parents, merging concurrent writes where more than one parent
// supplies a value.
package supertext

// Subtext is a typed context slot: a default value plus optional merge and
// guard behavior. Two branches writing the same Subtext are reconciled by
// merge when their Supertexts are later merged together; guard normalizes
// every value written to the slot, including the default.
type Subtext[T any] struct {
	def   T
	merge func(older, newer T) T
	guard func(value T) T
}

// SubtextOption configures a Subtext at construction.
type SubtextOption[T any] func(*Subtext[T])

// WithMerge supplies the function used to reconcile two values for this
// slot when a Supertext inherits both through separate parents. Without
// one, the rightmost value (from the parent latest in the parent list) wins.
func WithMerge[T any](merge func(older, newer T) T) SubtextOption[T] {
	return func(s *Subtext[T]) { s.merge = merge }
}

// WithGuard supplies a normalization function applied to every value
// written to this slot, including the default.
func WithGuard[T any](guard func(value T) T) SubtextOption[T] {
	return func(s *Subtext[T]) { s.guard = guard }
}

// NewSubtext constructs a Subtext with the given default value.
func NewSubtext[T any](def T, opts ...SubtextOption[T]) *Subtext[T] {
	s := &Subtext[T]{def: def}
	for _, opt := range opts {
		opt(s)
	}
	if s.guard != nil {
		s.def = s.guard(s.def)
	}
	return s
}

// Default returns the slot's guarded default value.
func (s *Subtext[T]) Default() T { return s.def }

func (s *Subtext[T]) mergeAny(older, newer any) any {
	if s.merge == nil {
		return newer
	}
	return s.merge(older.(T), newer.(T))
}

func (s *Subtext[T]) guardAny(v any) any {
	if s.guard == nil {
		return v
	}
	return s.guard(v.(T))
}

// Write pairs a Subtext with a value to apply to a Supertext branch.
type Write interface{ apply(s *Supertext) }

type write[T any] struct {
	sub   *Subtext[T]
	value T
}

func (w write[T]) apply(s *Supertext) {
	v := any(w.value)
	s.local[w.sub] = w.sub.guardAny(v)
}

// WriteTo builds a [Write] assigning value to sub, for use with [Supertext.Branch].
func WriteTo[T any](sub *Subtext[T], value T) Write {
	return write[T]{sub: sub, value: value}
}

// Read looks up sub on s, walking parents and merging as needed. ok is
// false if neither s nor any ancestor has ever written to sub; sub's
// default is not consulted - callers that always want a value should use
// [ReadOr].
func Read[T any](s *Supertext, sub *Subtext[T]) (value T, ok bool) {
	v, missing := s.read(sub)
	if missing {
		var zero T
		return zero, false
	}
	return v.(T), true
}

// ReadOr is [Read] with sub's default substituted for a missing value.
func ReadOr[T any](s *Supertext, sub *Subtext[T]) T {
	if v, ok := Read(s, sub); ok {
		return v
	}
	return sub.def
}
