package canon_test

import (
	"bytes"
	"log/slog"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benjamn/wryware/canon"
	"github.com/benjamn/wryware/equality"
	"github.com/benjamn/wryware/internal/tracelog"
)

type ringNode struct {
	Value int
	Tail  *ringNode
}

func ringHandler() *canon.Handler {
	return &canon.Handler{
		Deconstruct: func(obj any) []any {
			n := obj.(*ringNode)
			return []any{n.Value, n.Tail}
		},
		Allocate: func(obj any) any { return &ringNode{} },
		Repair: func(known any, children []any) {
			kn := known.(*ringNode)
			kn.Value = children[0].(int)
			if tail, ok := children[1].(*ringNode); ok {
				kn.Tail = tail
			}
		},
	}
}

// TestCanonRing is scenario S1: five entry points into a five-node ring
// canonicalize to five distinct frozen nodes forming the same ring, and
// admitting the same entry point twice is idempotent.
func TestCanonRing(t *testing.T) {
	c := canon.New()
	require.NoError(t, c.Handlers().Enable(reflect.TypeOf(&ringNode{}), ringHandler()))

	last := &ringNode{Value: 5}
	n4 := &ringNode{Value: 4, Tail: last}
	n3 := &ringNode{Value: 3, Tail: n4}
	n2 := &ringNode{Value: 2, Tail: n3}
	list := &ringNode{Value: 1, Tail: n2}
	last.Tail = list

	entries := []*ringNode{list, n2, n3, n4, last}
	canonical := make([]*ringNode, len(entries))
	for i, e := range entries {
		canonical[i] = c.Admit(e).(*ringNode)
	}

	for i := range canonical {
		for j := range canonical {
			if i != j {
				assert.NotSame(t, canonical[i], canonical[j])
			}
		}
	}

	cur := canonical[0]
	for i := 0; i < 5; i++ {
		cur = cur.Tail
	}
	assert.Same(t, canonical[0], cur, "the ring must close after five hops")

	assert.Same(t, c.Admit(list), c.Admit(list), "admit must be idempotent")
}

type pairNode struct {
	Other *pairNode
	Self  *pairNode
	Extra *pairNode
}

func pairHandler() *canon.Handler {
	return &canon.Handler{
		Deconstruct: func(obj any) []any {
			n := obj.(*pairNode)
			return []any{n.Other, n.Self, n.Extra}
		},
		Allocate: func(obj any) any { return &pairNode{} },
		Repair: func(known any, children []any) {
			kn := known.(*pairNode)
			if v, ok := children[0].(*pairNode); ok {
				kn.Other = v
			}
			if v, ok := children[1].(*pairNode); ok {
				kn.Self = v
			}
			if v, ok := children[2].(*pairNode); ok {
				kn.Extra = v
			}
		},
	}
}

// TestCanonSymmetricCrossReference is scenario S2: two mutually
// cross-referencing nodes canonicalize to the same node when symmetric,
// and to different nodes once an asymmetric edge is added.
func TestCanonSymmetricCrossReference(t *testing.T) {
	c := canon.New()
	require.NoError(t, c.Handlers().Enable(reflect.TypeOf(&pairNode{}), pairHandler()))

	a := &pairNode{}
	b := &pairNode{}
	a.Other, a.Self = b, a
	b.Other, b.Self = a, b

	assert.Same(t, c.Admit(a), c.Admit(b))

	c2 := canon.New()
	require.NoError(t, c2.Handlers().Enable(reflect.TypeOf(&pairNode{}), pairHandler()))

	x := &pairNode{}
	y := &pairNode{}
	x.Other, x.Self = y, x
	y.Other, y.Self = x, y
	x.Extra = y // asymmetric: y has no matching Extra

	assert.NotSame(t, c2.Admit(x), c2.Admit(y))
}

type buffer struct {
	Data []byte
}

func bufferHandler() *canon.Handler {
	return &canon.Handler{
		Deconstruct: func(obj any) []any {
			b := obj.(*buffer)
			children := make([]any, len(b.Data))
			for i, by := range b.Data {
				children[i] = by
			}
			return children
		},
		Reconstruct: func(children []any) any {
			data := make([]byte, len(children))
			for i, c := range children {
				data[i] = c.(byte)
			}
			return &buffer{Data: data}
		},
	}
}

// TestCanonOpaqueBufferHandler is scenario S3: two separately allocated
// buffers with identical bytes collapse to the same canonical buffer
// through a registered two-step handler.
func TestCanonOpaqueBufferHandler(t *testing.T) {
	c := canon.New()
	require.NoError(t, c.Handlers().Enable(reflect.TypeOf(&buffer{}), bufferHandler()))

	buf1 := &buffer{Data: []byte("hello")}
	buf2 := &buffer{Data: append([]byte(nil), []byte("hello")...)}

	out1 := c.Admit(buf1)
	out2 := c.Admit(buf2)
	assert.Same(t, out1, out2)
	assert.True(t, equality.Equal(out1, &buffer{Data: []byte("hello")}))
}

// TestCanonIdempotentAdmit covers invariant 1:
// canon.admit(canon.admit(x)) === canon.admit(x).
func TestCanonIdempotentAdmit(t *testing.T) {
	c := canon.New()
	require.NoError(t, c.Handlers().Enable(reflect.TypeOf(&ringNode{}), ringHandler()))

	n := &ringNode{Value: 1}
	n.Tail = n

	once := c.Admit(n)
	twice := c.Admit(once)
	assert.Same(t, once, twice)
}

// TestCanonDeeplyEqualToInput covers invariant 3: canon.admit(x) is deeply
// equal to x.
func TestCanonDeeplyEqualToInput(t *testing.T) {
	c := canon.New()
	require.NoError(t, c.Handlers().Enable(reflect.TypeOf(&buffer{}), bufferHandler()))

	in := &buffer{Data: []byte("abcdef")}
	out := c.Admit(in)
	assert.True(t, equality.Equal(in, out))
}

// TestHandlersEnableAfterLookupFails covers the "handler-after-use" error
// kind: once a type has been consulted, it can no longer be registered.
func TestHandlersEnableAfterLookupFails(t *testing.T) {
	c := canon.New()
	typ := reflect.TypeOf(&buffer{})
	require.NoError(t, c.Handlers().Enable(typ, bufferHandler()))

	buf := &buffer{Data: []byte("x")}
	c.Admit(buf) // consults (looks up) the type

	err := c.Handlers().Enable(typ, bufferHandler())
	assert.ErrorIs(t, err, canon.ErrHandlerLookedUp)
}

// TestCanonBuiltinSequenceAndMap exercises the built-in, Kind-based
// fallback handlers for slices and string-keyed maps.
func TestCanonBuiltinSequenceAndMap(t *testing.T) {
	c := canon.New()

	s1 := []int{1, 2, 3}
	s2 := []int{1, 2, 3}
	out1 := c.Admit(s1)
	out2 := c.Admit(s2)
	assert.Equal(t, out1, out2)

	m1 := map[string]any{"a": 1, "b": 2}
	m2 := map[string]any{"b": 2, "a": 1}
	mout1 := c.Admit(m1)
	mout2 := c.Admit(m2)
	assert.Equal(t, mout1, mout2)
}

// TestCanonCyclicSliceAndMap exercises the built-in sequence and plain-map
// handlers on self-referential input: a []any containing itself, and a
// map[string]any containing itself under its own key. Both are valid,
// well-formed Go values, and must canonicalize via the three-step
// allocate/repair path rather than panicking.
func TestCanonCyclicSliceAndMap(t *testing.T) {
	c := canon.New()

	s := make([]any, 2)
	s[0] = 1
	s[1] = s

	out := c.Admit(s).([]any)
	assert.Equal(t, 1, out[0])
	tail, ok := out[1].([]any)
	require.True(t, ok, "cyclic slice must reconstruct its self-reference")
	assert.Equal(t, reflect.ValueOf(out).Pointer(), reflect.ValueOf(tail).Pointer(),
		"the self-reference must point back to the same canonical slice")

	m := map[string]any{"x": 1}
	m["self"] = m

	mout := c.Admit(m).(map[string]any)
	assert.Equal(t, 1, mout["x"])
	self, ok := mout["self"].(map[string]any)
	require.True(t, ok, "cyclic map must reconstruct its self-reference")
	assert.Equal(t, mout["x"], self["x"])
}

// TestCanonEnableTrace exercises EnableTrace end to end: admitting a
// cyclic structure with tracing on must emit at least one debug record
// through the supplied handler.
func TestCanonEnableTrace(t *testing.T) {
	var buf bytes.Buffer
	handler := &tracelog.Handler{
		We:  &buf,
		Wo:  &buf,
		Lvl: slog.LevelDebug,
		Tag: "WRY",
	}

	c := canon.New(canon.EnableTrace(handler))
	require.NoError(t, c.Handlers().Enable(reflect.TypeOf(&ringNode{}), ringHandler()))

	n := &ringNode{Value: 1}
	n.Tail = n
	c.Admit(n)

	assert.Contains(t, buf.String(), "admitted component")
}
