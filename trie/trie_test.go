package trie

import (
	"fmt"
	"runtime"
	"testing"

	fuzz "github.com/google/gofuzz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type obj struct{ id int }

func TestLookupSamePathSamePayload(t *testing.T) {
	calls := 0
	tr := New(func(path []any) int {
		calls++
		return calls
	})

	a, b := &obj{1}, &obj{2}

	p1 := tr.Lookup(Ref(a), Val("x"), Ref(b))
	p2 := tr.Lookup(Ref(a), Val("x"), Ref(b))
	assert.Same(t, p1, p2)
	assert.Equal(t, 1, calls)
}

func TestLookupDistinctPathsDiverge(t *testing.T) {
	tr := New(func(path []any) int { return len(path) })

	a, b := &obj{1}, &obj{2}
	p1 := tr.Lookup(Ref(a), Val(1))
	p2 := tr.Lookup(Ref(a), Val(2))
	p3 := tr.Lookup(Ref(b), Val(1))
	assert.NotSame(t, p1, p2)
	assert.NotSame(t, p1, p3)
}

func TestLookupEmptyPath(t *testing.T) {
	tr := New(func(path []any) int { return 42 })
	p1 := tr.Lookup()
	p2 := tr.Lookup()
	require.Same(t, p1, p2)
	assert.Equal(t, 42, *p1)
}

// TestTailPromotion exercises two tail-divergence shapes: a genuinely new
// branch point, and the new path ending exactly at the divergence.
func TestTailPromotion(t *testing.T) {
	tr := New(func(path []any) []any { return append([]any(nil), path...) })

	p1 := tr.Lookup(Val("a"), Val("b"), Val("c"))
	require.Equal(t, []any{"a", "b", "c"}, *p1)

	// Diverges at index 1 ("b" vs "z").
	p2 := tr.Lookup(Val("a"), Val("z"))
	require.Equal(t, []any{"a", "z"}, *p2)

	// This path ("a","b") is a prefix of the original one - should not disturb p1/p2.
	p3 := tr.Lookup(Val("a"), Val("b"))
	require.Equal(t, []any{"a", "b"}, *p3)

	// Revisit the original longer path; still resolves correctly.
	p1b := tr.Lookup(Val("a"), Val("b"), Val("c"))
	assert.Same(t, p1, p1b)

	p3b := tr.Lookup(Val("a"), Val("b"))
	assert.Same(t, p3, p3b)
}

// TestWeakKeyReclaimsSubtrie is best-effort: AddCleanup callbacks run
// asynchronously once the GC has proven an object unreachable, so this only
// checks that the entry count trends to zero rather than asserting a single
// GC cycle is sufficient.
func TestWeakKeyReclaimsSubtrie(t *testing.T) {
	tr := New(func(path []any) int { return 1 })

	func() {
		k := &obj{99}
		tr.Lookup(Ref(k), Val("leaf"))
		runtime.KeepAlive(k)
	}()

	var remaining int
	for i := 0; i < 5; i++ {
		runtime.GC()
		tr.mu.Lock()
		remaining = len(tr.root.refChildren)
		tr.mu.Unlock()
		if remaining == 0 {
			break
		}
	}
	assert.Equal(t, 0, remaining)
}

func TestWithWeaknessDisabled(t *testing.T) {
	tr := New(func(path []any) int { return 1 }, WithWeakness(false))
	k := &obj{1}
	p1 := tr.Lookup(Ref(k))
	p2 := tr.Lookup(Ref(k))
	assert.Same(t, p1, p2)
}

func TestFuzzPathIdentity(t *testing.T) {
	f := fuzz.New().NilChance(0).NumElements(1, 5)
	tr := New(func(path []any) string { return fmt.Sprint(path) })

	var strs []string
	f.Fuzz(&strs)
	if len(strs) == 0 {
		strs = []string{"a"}
	}

	path1 := make([]Elem, len(strs))
	path2 := make([]Elem, len(strs))
	for i, s := range strs {
		path1[i] = Val(s)
		path2[i] = Val(s)
	}

	p1 := tr.LookupSlice(path1)
	p2 := tr.LookupSlice(path2)
	assert.Same(t, p1, p2)
}

func TestPeekAndRemove(t *testing.T) {
	tr := New(func(path []any) int { return len(path) })

	_, ok := tr.Peek(Val("a"), Val("b"))
	assert.False(t, ok, "peek must not create a payload")

	tr.Lookup(Val("a"), Val("b"))
	v, ok := tr.Peek(Val("a"), Val("b"))
	require.True(t, ok)
	assert.Equal(t, 2, *v)

	assert.True(t, tr.Remove(Val("a"), Val("b")))
	_, ok = tr.Peek(Val("a"), Val("b"))
	assert.False(t, ok)
	assert.False(t, tr.Remove(Val("a"), Val("b")), "removing twice reports no-op")
}

func TestBoundedTrie(t *testing.T) {
	calls := 0
	b, err := NewBounded(2, func(path []any) int {
		calls++
		return calls
	})
	require.NoError(t, err)

	p1 := b.Lookup(Val("a"))
	p2 := b.Lookup(Val("a"))
	assert.Same(t, p1, p2)
	assert.Equal(t, 1, calls)

	b.Lookup(Val("b"))
	b.Lookup(Val("c")) // evicts "a"

	p1b := b.Lookup(Val("a"))
	assert.NotSame(t, p1, p1b)
	assert.Equal(t, 2, b.Len())
}
