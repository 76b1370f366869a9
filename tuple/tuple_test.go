package tuple

import (
	"testing"

	"github.com/benjamn/wryware/trie"
	"github.com/stretchr/testify/assert"
)

type node struct{ v int }

func TestTupleIdentity(t *testing.T) {
	in := New()
	a, b := &node{1}, &node{2}

	t1 := in.Tuple(trie.Ref(a), trie.Val("x"), trie.Ref(b))
	t2 := in.Tuple(trie.Ref(a), trie.Val("x"), trie.Ref(b))
	assert.Same(t, t1, t2)

	t3 := in.Tuple(trie.Ref(a), trie.Val("y"), trie.Ref(b))
	assert.NotSame(t, t1, t3)
}

func TestTupleContents(t *testing.T) {
	in := New()
	a := &node{7}
	tup := in.Tuple(trie.Ref(a), trie.Val(3))
	assert.Equal(t, 2, tup.Len())
	assert.Same(t, a, tup.At(0))
	assert.Equal(t, 3, tup.At(1))
	assert.Equal(t, []any{a, 3}, tup.Slice())
}

func TestTupleEmpty(t *testing.T) {
	in := New()
	e1 := in.Tuple()
	e2 := in.Tuple()
	assert.Same(t, e1, e2)
	assert.Equal(t, 0, e1.Len())
}
