// Package equality implements a deep-equality comparator with cycle
// tolerance and type-specific comparison rules, mirroring the dispatch
// table used by [github.com/benjamn/wryware/canon] to decide when two
// input graphs should collapse to the same canonical representative.
package equality

import (
	"bytes"
	"math"
	"reflect"
	"regexp"
	"sync"
	"time"
	"unsafe"

	"github.com/benjamn/wryware/internal/refid"
)

// DeepEqualer lets a type define its own notion of deep equality; it is
// consulted for any non-nil object whose type isn't covered by a built-in
// rule. Implementations must be pure and must not mutate either receiver.
type DeepEqualer interface {
	DeepEqual(that any, eq *Equality) bool
}

// Set is the minimal structural contract [Equality] needs to compare two
// unordered collections. Two Sets are equal when they have the same size
// and, if the first one also implements [RangeSet], every member of it is
// present in the other. A Set without Range is compared by size only.
type Set interface {
	Len() int
	Has(member any) bool
}

// OrderedMap is the minimal structural contract [Equality] needs to compare
// two key/value collections whose keys aren't necessarily string-shaped.
type OrderedMap interface {
	Len() int
	Get(key any) (value any, ok bool)
	Keys() []any
}

// Equality compares values for deep structural equality. The zero value is
// ready to use. A single Equality is not safe for concurrent calls to
// [Equality.Equal]; construct one per goroutine, or guard with a mutex -
// the pool from [NewPool] exists precisely so callers don't have to.
type Equality struct {
	visited map[pair]bool
}

// NewPool constructs a reusable pool of Equality comparators, avoiding
// allocation churn across repeated top-level comparisons - the "pool of
// checkers" the specification calls for.
func NewPool() *Pool {
	return &Pool{
		p: sync.Pool{New: func() any { return &Equality{visited: make(map[pair]bool)} }},
	}
}

// Pool hands out reusable [Equality] comparators.
type Pool struct {
	p sync.Pool
}

// Equal compares a and b for deep equality using a pooled comparator.
func (pl *Pool) Equal(a, b any) bool {
	eq := pl.p.Get().(*Equality)
	defer func() {
		clear(eq.visited)
		pl.p.Put(eq)
	}()
	return eq.Equal(a, b)
}

var defaultPool = NewPool()

// Equal compares a and b for deep equality using a package-level pool. This
// is the entry point most callers want; construct a [Pool] directly only if
// you need isolated pools for separate concurrent callers.
func Equal(a, b any) bool {
	return defaultPool.Equal(a, b)
}

type pair struct {
	a, b refid.ID
}

// Equal is the recursive comparison entry point. It may be called directly
// by a [DeepEqualer] implementation (via the eq argument it receives) to
// recurse into child values.
func (eq *Equality) Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}

	ida, aOk := refid.Of(a)
	idb, bOk := refid.Of(b)
	if aOk && bOk && ida == idb {
		return true
	}

	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)

	if aOk && bOk {
		if eq.visited == nil {
			eq.visited = make(map[pair]bool)
		}
		p := pair{a: ida, b: idb}
		if result, seen := eq.visited[p]; seen {
			return result
		}
		eq.visited[p] = true // optimistic: assume equal while recursing
		result := eq.dispatch(a, b, va, vb, ta)
		eq.visited[p] = result
		return result
	}

	return eq.dispatch(a, b, va, vb, ta)
}

func (eq *Equality) dispatch(a, b any, va, vb reflect.Value, typ reflect.Type) bool {
	switch v := a.(type) {
	case error:
		other, ok := b.(error)
		return ok && v.Error() == other.Error() && reflect.TypeOf(a) == reflect.TypeOf(b)
	case time.Time:
		other := b.(time.Time)
		return v.Equal(other)
	case *regexp.Regexp:
		other := b.(*regexp.Regexp)
		return v.String() == other.String()
	case []byte:
		return bytes.Equal(v, b.([]byte))
	case Set:
		other, ok := b.(Set)
		return ok && equalSets(v, other)
	case OrderedMap:
		other, ok := b.(OrderedMap)
		return ok && eq.equalOrderedMaps(v, other)
	case DeepEqualer:
		if !v.DeepEqual(b, eq) {
			return false
		}
		if other, ok := b.(DeepEqualer); ok {
			return other.DeepEqual(a, eq)
		}
		return true
	}

	switch typ.Kind() {
	case reflect.Bool:
		return va.Bool() == vb.Bool()
	case reflect.String:
		return va.String() == vb.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return va.Int() == vb.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return va.Uint() == vb.Uint()
	case reflect.Float32, reflect.Float64:
		fa, fb := va.Float(), vb.Float()
		if math.IsNaN(fa) && math.IsNaN(fb) {
			return true
		}
		return fa == fb
	case reflect.Complex64, reflect.Complex128:
		return va.Complex() == vb.Complex()
	case reflect.Array, reflect.Slice:
		if va.Len() != vb.Len() {
			return false
		}
		for i := 0; i < va.Len(); i++ {
			if !eq.Equal(va.Index(i).Interface(), vb.Index(i).Interface()) {
				return false
			}
		}
		return true
	case reflect.Map:
		return eq.equalPlainMaps(va, vb)
	case reflect.Func:
		return va.Pointer() == vb.Pointer()
	case reflect.Ptr:
		if va.IsNil() || vb.IsNil() {
			return va.IsNil() == vb.IsNil()
		}
		return eq.Equal(va.Elem().Interface(), vb.Elem().Interface())
	case reflect.Struct:
		return eq.equalStructs(va, vb)
	case reflect.Interface:
		if va.IsNil() || vb.IsNil() {
			return va.IsNil() == vb.IsNil()
		}
		return eq.Equal(va.Elem().Interface(), vb.Elem().Interface())
	}

	return false
}

// equalPlainMaps treats a missing key as distinct from a key mapped to nil
// or to the zero value: both maps must agree on their key set.
func (eq *Equality) equalPlainMaps(va, vb reflect.Value) bool {
	if va.Len() != vb.Len() {
		return false
	}
	iter := va.MapRange()
	for iter.Next() {
		k := iter.Key()
		bv := vb.MapIndex(k)
		if !bv.IsValid() {
			return false
		}
		if !eq.Equal(iter.Value().Interface(), bv.Interface()) {
			return false
		}
	}
	return true
}

func (eq *Equality) equalStructs(va, vb reflect.Value) bool {
	// Copy both sides into addressable values so unexported fields can be
	// read and compared along with exported ones.
	ca, cb := reflect.New(va.Type()).Elem(), reflect.New(vb.Type()).Elem()
	ca.Set(va)
	cb.Set(vb)
	for i := 0; i < ca.NumField(); i++ {
		fa, fb := ca.Field(i), cb.Field(i)
		if !fa.CanInterface() {
			fa = reflect.NewAt(fa.Type(), unsafe.Pointer(fa.UnsafeAddr())).Elem()
			fb = reflect.NewAt(fb.Type(), unsafe.Pointer(fb.UnsafeAddr())).Elem()
		}
		if !eq.Equal(fa.Interface(), fb.Interface()) {
			return false
		}
	}
	return true
}

func equalSets(a, b Set) bool {
	if a.Len() != b.Len() {
		return false
	}
	// Set only exposes membership, not iteration, so the caller-side
	// adapter is expected to also implement a way to range its own
	// members; we fall back to requiring callers to implement Range too
	// via the richer RangeSet interface when available.
	if ra, ok := a.(RangeSet); ok {
		ok := true
		ra.Range(func(m any) bool {
			if !b.Has(m) {
				ok = false
				return false
			}
			return true
		})
		return ok
	}
	return true
}

// RangeSet is an optional refinement of [Set] that lets [Equality] actually
// walk the members of one side when checking containment in the other.
type RangeSet interface {
	Set
	Range(func(member any) bool)
}

func (eq *Equality) equalOrderedMaps(a, b OrderedMap) bool {
	if a.Len() != b.Len() {
		return false
	}
	for _, k := range a.Keys() {
		av, _ := a.Get(k)
		bv, ok := b.Get(k)
		if !ok {
			return false
		}
		if !eq.Equal(av, bv) {
			return false
		}
	}
	return true
}
