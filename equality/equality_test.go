package equality

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

type ring struct {
	value int
	next  *ring
}

func TestEqualCyclic(t *testing.T) {
	a := &ring{value: 1}
	a.next = a

	b := &ring{value: 1}
	b.next = b

	assert.True(t, Equal(a, b))

	c := &ring{value: 2}
	c.next = c
	assert.False(t, Equal(a, c))
}

func TestEqualMutualCycle(t *testing.T) {
	a := &ring{value: 1}
	b := &ring{value: 1}
	a.next = b
	b.next = a
	assert.True(t, Equal(a, b))
}

func TestEqualMapMissingIsNotSameAsNil(t *testing.T) {
	m1 := map[string]any{"x": 1}
	m2 := map[string]any{"x": 1, "y": nil}
	assert.False(t, Equal(m1, m2))
}

func TestEqualNaN(t *testing.T) {
	assert.True(t, Equal(math.NaN(), math.NaN()))
}

func TestEqualDifferentTags(t *testing.T) {
	assert.False(t, Equal(1, "1"))
}

func TestEqualErrorLike(t *testing.T) {
	assert.True(t, Equal(errors.New("boom"), errors.New("boom")))
	assert.False(t, Equal(errors.New("boom"), errors.New("bang")))
}

func TestEqualByteSlices(t *testing.T) {
	assert.True(t, Equal([]byte("hi"), []byte("hi")))
	assert.False(t, Equal([]byte("hi"), []byte("ho")))
}

type customPoint struct{ x, y int }

func (p *customPoint) DeepEqual(that any, eq *Equality) bool {
	other, ok := that.(*customPoint)
	return ok && p.x == other.x && p.y == other.y
}

func TestEqualCustomDeepEqualer(t *testing.T) {
	assert.True(t, Equal(&customPoint{1, 2}, &customPoint{1, 2}))
	assert.False(t, Equal(&customPoint{1, 2}, &customPoint{1, 3}))
}

func TestEqualReflexiveSymmetric(t *testing.T) {
	vals := []any{1, "a", []int{1, 2, 3}, map[string]int{"a": 1}, nil}
	for _, v := range vals {
		assert.True(t, Equal(v, v))
	}
	a, b := []int{1, 2}, []int{1, 2}
	assert.Equal(t, Equal(a, b), Equal(b, a))
}
