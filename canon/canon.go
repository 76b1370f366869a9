// Package canon deep-structurally canonicalizes arbitrary object graphs:
// admitting a value returns a frozen reference that is reference-identical
// to the admit result of any input with the same structure, even across
// reference cycles.
package canon

import (
	"log/slog"
	"reflect"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/benjamn/wryware/internal/refid"
	"github.com/benjamn/wryware/trie"
)

// InternalError marks a fatal invariant violation: a bug in Canon itself or
// in a misbehaving [Handler], never an expected outcome of well-formed
// input. It carries a stack trace captured at the point of failure.
type InternalError struct {
	Reason string
}

func (e *InternalError) Error() string {
	return "canon: internal invariant violation: " + e.Reason
}

func internalErrorf(reason string) error {
	return pkgerrors.WithStack(&InternalError{Reason: reason})
}

// traceToken is a back-reference within a single component's scan trace,
// pointing at the position where a member was first visited. It is a
// dedicated type - never a plain int - specifically so it can never
// collide with an ordinary int appearing as real child data: the
// number-as-token trick.
type traceToken struct {
	pos int
}

// poolEntry is the Pool's payload: Canon's cached answer for one scan
// trace. value starts nil; the first caller to see a nil value is
// responsible for materializing it (allocate or reconstruct), which every
// later caller for an identical trace then reuses.
type poolEntry struct {
	value    any
	repaired bool
}

// repairTask defers a three-step handler's Repair call until every member
// of every component in the current admit() call has a canonical value,
// matching the algorithm's separate Materialize/Repair passes.
type repairTask struct {
	entry  *poolEntry
	id     refid.ID
	handler *Handler
}

// Canon canonicalizes object graphs against a shared pool of previously
// admitted structures. The zero value is not usable; construct one with
// [New]. A Canon is not safe for concurrent use - it assumes a single
// cooperative mutator, same as the rest of this module.
type Canon struct {
	handlers *Handlers
	pool     *trie.Trie[*poolEntry]

	known    map[refid.ID]bool // canonical outputs: the "known set"
	resolved map[refid.ID]any  // input id -> its already-computed canonical value
	inputs   map[refid.ID]any  // admitted inputs, held so their ids stay unique

	partitioning bool
	log          *slog.Logger
}

// Option configures a Canon at construction.
type Option func(*Canon)

// WithHandlers supplies a pre-populated [Handlers] registry instead of a
// fresh [NewHandlers] one.
func WithHandlers(h *Handlers) Option {
	return func(c *Canon) { c.handlers = h }
}

// EnableTrace wires handler into the Canon for diagnostic tracing of
// admission: one debug record per component materialized, logging its
// member count and how long materialization took. It is never enabled by
// default; supply [tracelog.DefaultHandler], or any other [slog.Handler],
// explicitly to turn it on.
func EnableTrace(handler slog.Handler) Option {
	return func(c *Canon) { c.log = slog.New(handler) }
}

// New constructs a Canon with its own pool and known set.
func New(opts ...Option) *Canon {
	c := &Canon{
		known:    make(map[refid.ID]bool),
		resolved: make(map[refid.ID]any),
		inputs:   make(map[refid.ID]any),
	}
	c.pool = trie.New(func(path []any) *poolEntry { return &poolEntry{} })
	for _, opt := range opts {
		opt(c)
	}
	if c.handlers == nil {
		c.handlers = NewHandlers()
	}
	return c
}

// Handlers returns the mutable handler registry backing c.
func (c *Canon) Handlers() *Handlers { return c.handlers }

// Stats reports the size of c's known set and input-to-canonical cache,
// for diagnostic use (see wrydebug).
type Stats struct {
	// Known is the number of distinct canonical outputs c has produced.
	Known int
	// Resolved is the number of distinct inputs c has admitted.
	Resolved int
}

// Stats returns a snapshot of c's internal bookkeeping sizes.
func (c *Canon) Stats() Stats {
	return Stats{Known: len(c.known), Resolved: len(c.resolved)}
}

// IsCanonical reports whether v is itself already one of c's frozen, known
// outputs.
func (c *Canon) IsCanonical(v any) bool {
	id, ok := refid.Of(v)
	return ok && c.known[id]
}

// expand is the [expandFunc] used to build components: a value is mappable
// iff it is reference-like, not a nil pointer, not already canonical, and
// has a handler.
func (c *Canon) expand(ctx *admitCtx, v any) ([]any, bool) {
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Ptr && rv.IsNil() {
		return nil, false
	}
	if c.IsCanonical(v) {
		return nil, false
	}
	h, ok := c.handlers.lookup(v)
	if !ok {
		return nil, false
	}
	if id, idOk := refid.Of(v); idOk {
		ctx.handlerOf[id] = h
	}
	return h.Deconstruct(v), true
}

// admitCtx carries the per-call state for a single top-level [Canon.Admit]
// invocation: the component graph just built, the handler chosen for each
// mapped node, each node's freshly computed canonical value, and the
// deferred repair list.
type admitCtx struct {
	br              *buildResult
	handlerOf       map[refid.ID]*Handler
	canonicalOf     map[refid.ID]any
	pendingRepairs  []repairTask
}

// Admit returns the canonical form of v. Primitives, opaque values (no
// registered handler), and values already in the known set pass through
// unchanged. Callers must not mutate or reuse v afterward: the canonical
// form may share structure with it, or even be it, along opaque branches.
func (c *Canon) Admit(v any) any {
	if v == nil {
		return nil
	}
	if c.IsCanonical(v) {
		return v
	}

	id, ok := refid.Of(v)
	if !ok {
		return v // primitive: passes through unchanged
	}
	if known, seen := c.resolved[id]; seen {
		return known
	}
	if _, ok := c.handlers.lookup(v); !ok {
		return v // opaque: passes through unchanged
	}

	if c.partitioning {
		panic(internalErrorf("already partitioning"))
	}
	c.partitioning = true
	defer func() { c.partitioning = false }()

	ctx := &admitCtx{
		handlerOf:   make(map[refid.ID]*Handler),
		canonicalOf: make(map[refid.ID]any),
	}
	ctx.br = buildComponents(v, func(child any) ([]any, bool) { return c.expand(ctx, child) })
	if ctx.br == nil || len(ctx.br.Order) == 0 {
		return v
	}

	for _, comp := range ctx.br.Components {
		c.materializeComponent(ctx, comp)
	}
	c.runRepairs(ctx)

	for _, memberID := range ctx.br.Order {
		known := ctx.canonicalOf[memberID]
		c.resolved[memberID] = known
		c.inputs[memberID] = ctx.br.ValueOf[memberID]
		if kid, kok := refid.Of(known); kok {
			c.known[kid] = true
		}
	}

	return c.resolved[id]
}

// materializeComponent scans every member of comp - per §4.6, symmetry is
// always assumed possible, so every member is scanned rather than only
// detecting symmetry after the fact - and either reconstructs it (two-step,
// requires every child already canonical) or eagerly allocates it
// (three-step, deferring filling it in to the repair pass).
func (c *Canon) materializeComponent(ctx *admitCtx, comp *Component) {
	start := time.Now()
	defer func() {
		if c.log != nil {
			c.log.Debug("admitted component",
				slog.Int("members", len(comp.Members)),
				slog.Duration("duration", time.Since(start)))
		}
	}()

	for _, val := range comp.Members {
		id, ok := refid.Of(val)
		if !ok {
			continue
		}
		h := ctx.handlerOf[id]
		trace := ctx.buildTrace(comp, id)
		entry := *c.pool.LookupSlice(trace)

		if entry.value == nil {
			if h.threeStep() {
				entry.value = h.Allocate(val)
				ctx.pendingRepairs = append(ctx.pendingRepairs, repairTask{entry: entry, id: id, handler: h})
			} else {
				children, ok := ctx.resolvedChildren(id)
				if !ok {
					panic(internalErrorf("could not resolve known value"))
				}
				entry.value = h.Reconstruct(children)
				entry.repaired = true
			}
		}
		ctx.canonicalOf[id] = entry.value
	}
}

func (c *Canon) runRepairs(ctx *admitCtx) {
	for _, t := range ctx.pendingRepairs {
		if t.entry.repaired {
			continue
		}
		children, ok := ctx.resolvedChildren(t.id)
		if !ok {
			panic(internalErrorf("could not resolve known value"))
		}
		t.handler.Repair(t.entry.value, children)
		t.entry.repaired = true
	}
}

// resolvedChildren returns id's raw children, each replaced by its
// canonical form where one is known (from this call or a prior Admit
// call). ok is false if some reference-like child inside id's own
// component has not yet been resolved - e.g. a two-step handler genuinely
// involved in a cycle, which is unsupported.
func (ctx *admitCtx) resolvedChildren(id refid.ID) ([]any, bool) {
	raw := ctx.br.Children[id]
	out := make([]any, len(raw))
	for i, child := range raw {
		out[i] = child
		cid, ok := refid.Of(child)
		if !ok {
			continue
		}
		if v, have := ctx.canonicalOf[cid]; have {
			out[i] = v
			continue
		}
		if _, isMember := ctx.br.CompOf[cid]; isMember {
			return nil, false
		}
	}
	return out, true
}

// buildTrace flattens comp into a single canonical path starting at
// startID: a type tag for each member followed by each of its children,
// recursing in place for children that are themselves unvisited members of
// comp, and emitting a [traceToken] back-reference for ones already seen
// in this walk. Children outside comp (or primitive leaves) contribute
// their own already-canonical form.
func (ctx *admitCtx) buildTrace(comp *Component, startID refid.ID) []trie.Elem {
	posOf := make(map[refid.ID]int)
	var out []trie.Elem

	var walk func(id refid.ID)
	walk = func(id refid.ID) {
		posOf[id] = len(out)
		val := ctx.br.ValueOf[id]
		out = append(out, trie.Val(reflect.TypeOf(val)))

		for _, child := range ctx.br.Children[id] {
			cid, ok := refid.Of(child)
			if ok {
				if cComp, inComp := ctx.br.CompOf[cid]; inComp && cComp == comp {
					if p, seen := posOf[cid]; seen {
						out = append(out, trie.Val(traceToken{pos: p}))
					} else {
						walk(cid)
					}
					continue
				}
			}
			out = append(out, traceLeaf(ctx.canonicalFor(child)))
		}
	}
	walk(startID)
	return out
}

// canonicalFor returns v's already-known canonical form (from this call or
// a previous one), or v itself if it has none (primitive, opaque, or not
// yet processed).
func (ctx *admitCtx) canonicalFor(v any) any {
	id, ok := refid.Of(v)
	if !ok {
		return v
	}
	if cv, have := ctx.canonicalOf[id]; have {
		return cv
	}
	return v
}

func traceLeaf(v any) trie.Elem {
	if v == nil {
		return trie.Val(nil)
	}
	if id, ok := refid.Of(v); ok {
		return trie.Val(id)
	}
	return trie.Val(v)
}
