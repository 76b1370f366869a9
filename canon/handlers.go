package canon

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/benjamn/wryware/trie"
)

// ErrHandlerLookedUp is returned by [Handlers.Enable] when the target type
// has already been consulted by a prior [Handlers.lookup] call: admitting a
// new handler after that point could disagree with objects the Canon has
// already processed, so registration is refused rather than silently
// changing behavior underfoot.
var ErrHandlerLookedUp = errors.New("canon: handler type already looked up")

// Handler describes how Canon decomposes and rebuilds one prototype (Go
// type). It comes in two shapes, selected by which fields are set:
//
//   - Two-step (Reconstruct set, Allocate nil): for values that are
//     immutable once built, such as byte buffers or regular expressions.
//     Deconstruct -> Reconstruct(children) must be usable in a single pass,
//     so a two-step handler can never appear in a reference cycle.
//   - Three-step (Allocate and Repair set, Reconstruct nil): for values
//     that may participate in cycles. Allocate produces an empty shell
//     eagerly, so other members of the same strongly connected component
//     can refer to it before Repair fills it in.
type Handler struct {
	// Deconstruct returns obj's children, in a stable order. Reference-like
	// children are tracked for cycle/SCC purposes; anything else is treated
	// as an opaque leaf value.
	Deconstruct func(obj any) []any

	// Reconstruct builds a brand new canonical object from already-canonical
	// children. Two-step handlers only.
	Reconstruct func(children []any) any

	// Allocate returns an empty instance of obj's shape, before any child is
	// known to be canonical. Three-step handlers only.
	Allocate func(obj any) any

	// Repair fills in the shell known (as returned by Allocate) using the
	// now-canonical children. Three-step handlers only.
	Repair func(known any, children []any)
}

func (h *Handler) threeStep() bool { return h.Allocate != nil }

// Handlers is Canon's registry of per-type decomposition rules. The zero
// value is not usable; construct one with [NewHandlers]. A fresh [Canon]
// comes with built-in handlers for slices, string-keyed maps, and
// [time.Time], matching the teacher's practice of shipping sane defaults
// that callers can still override before first use.
type Handlers struct {
	mu       sync.Mutex
	byType   map[reflect.Type]*Handler
	lookedUp map[reflect.Type]bool

	sortCache *trie.Trie[[]string]
}

// NewHandlers constructs an empty registry with the built-in sequence,
// plain-mapping, and date handlers available as type-kind fallbacks.
func NewHandlers() *Handlers {
	h := &Handlers{
		byType:   make(map[reflect.Type]*Handler),
		lookedUp: make(map[reflect.Type]bool),
	}
	h.sortCache = trie.New(func(path []any) []string {
		keys := make([]string, len(path))
		for i, v := range path {
			keys[i] = v.(string)
		}
		sort.Strings(keys)
		return keys
	})
	return h
}

// Enable registers handler for typ. It fails with [ErrHandlerLookedUp] if
// typ has already been consulted by a lookup - the one-way rule from the
// registry's contract.
func (h *Handlers) Enable(typ reflect.Type, handler *Handler) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.lookedUp[typ] {
		return fmt.Errorf("canon: enabling handler for %s: %w", typ, ErrHandlerLookedUp)
	}
	h.byType[typ] = handler
	return nil
}

var timeType = reflect.TypeOf(time.Time{})

// lookup returns the handler for v's type, consulting built-in fallbacks
// (by reflect.Kind) when no handler was explicitly enabled. It marks v's
// type as looked-up, which freezes that type against future [Enable] calls.
func (h *Handlers) lookup(v any) (*Handler, bool) {
	typ := reflect.TypeOf(v)
	if typ == nil {
		return nil, false
	}

	h.mu.Lock()
	h.lookedUp[typ] = true
	hd, ok := h.byType[typ]
	h.mu.Unlock()
	if ok {
		return hd, true
	}

	switch {
	case typ == timeType || (typ.Kind() == reflect.Ptr && typ.Elem() == timeType):
		return h.dateHandler(), true
	case typ.Kind() == reflect.Slice && typ.Elem().Kind() != reflect.Uint8:
		return h.sequenceHandler(), true
	case typ.Kind() == reflect.Map && typ.Key().Kind() == reflect.String:
		return h.plainMapHandler(), true
	}
	return nil, false
}

// sortedKeys returns the sorted form of keys, reusing a previously sorted
// array for an equal key list via the handlers' WeakTrie-backed cache.
func (h *Handlers) sortedKeys(keys []string) []string {
	path := make([]trie.Elem, len(keys))
	for i, k := range keys {
		path[i] = trie.Val(k)
	}
	return *h.sortCache.LookupSlice(path)
}

// sequenceHandler is the built-in three-step handler for slices other than
// []byte (which callers typically register their own opaque handler for,
// as in the canonical buffer example). Three-step, not two-step, because a
// plain []any slice is a valid, cycle-capable Go rendering of an object
// graph (s[0] = s is well-formed) and §9 requires allocate+repair for any
// cycle-capable type: Allocate reserves a same-length []any shell obj's
// eventual canonical children can refer into before Repair fills it in. It
// is intentionally lossy: any concrete slice type reconstructs as []any,
// since Go's reflection has no way to recover the original element type
// from a flat child list alone.
func (h *Handlers) sequenceHandler() *Handler {
	return &Handler{
		Deconstruct: func(obj any) []any {
			rv := reflect.ValueOf(obj)
			out := make([]any, rv.Len())
			for i := range out {
				out[i] = rv.Index(i).Interface()
			}
			return out
		},
		Allocate: func(obj any) any {
			return make([]any, reflect.ValueOf(obj).Len())
		},
		Repair: func(known any, children []any) {
			out := known.([]any)
			copy(out, children)
		},
	}
}

// plainMapHandler is the built-in three-step handler for string-keyed
// maps - three-step for the same cycle-capability reason as
// [Handlers.sequenceHandler] (m["self"] = m is well-formed). Keys are
// sorted (via [Handlers.sortedKeys]) before deconstruction so two maps
// with the same entries in different insertion order produce the same
// trace. Like the sequence handler, reconstruction is lossy: it always
// yields map[string]any.
func (h *Handlers) plainMapHandler() *Handler {
	return &Handler{
		Deconstruct: func(obj any) []any {
			rv := reflect.ValueOf(obj)
			keys := make([]string, 0, rv.Len())
			iter := rv.MapRange()
			for iter.Next() {
				keys = append(keys, iter.Key().String())
			}
			sorted := h.sortedKeys(keys)
			children := make([]any, 0, len(sorted)*2)
			for _, k := range sorted {
				children = append(children, k)
			}
			for _, k := range sorted {
				children = append(children, rv.MapIndex(reflect.ValueOf(k)).Interface())
			}
			return children
		},
		Allocate: func(obj any) any {
			return make(map[string]any, reflect.ValueOf(obj).Len())
		},
		Repair: func(known any, children []any) {
			out := known.(map[string]any)
			n := len(children) / 2
			for i := 0; i < n; i++ {
				out[children[i].(string)] = children[n+i]
			}
		},
	}
}

// dateHandler is the built-in two-step handler for time.Time and *time.Time,
// collapsing any two timestamps with the same instant to one canonical
// *time.Time regardless of monotonic reading or location.
func (h *Handlers) dateHandler() *Handler {
	return &Handler{
		Deconstruct: func(obj any) []any {
			t := asTime(obj)
			return []any{t.UnixNano()}
		},
		Reconstruct: func(children []any) any {
			t := time.Unix(0, children[0].(int64)).UTC()
			return &t
		},
	}
}

func asTime(obj any) time.Time {
	switch v := obj.(type) {
	case time.Time:
		return v
	case *time.Time:
		return *v
	default:
		panic(fmt.Sprintf("canon: asTime: unexpected type %T", obj))
	}
}
