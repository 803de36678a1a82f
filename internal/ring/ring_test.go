package ring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRing_PushPopFIFO(t *testing.T) {
	r := New[int](2)
	assert.Equal(t, 0, r.Len())
	for i := 1; i <= 5; i++ {
		r.Push(i)
	}
	assert.Equal(t, 5, r.Len())
	for i := 1; i <= 5; i++ {
		assert.Equal(t, i, r.Pop())
	}
	assert.Equal(t, 0, r.Len())
}

func TestRing_PopEmptyPanics(t *testing.T) {
	r := New[int](1)
	assert.Panics(t, func() { r.Pop() })
}

func TestRing_PeekFront(t *testing.T) {
	r := New[string](1)
	_, ok := r.PeekFront()
	assert.False(t, ok)

	r.Push("a")
	r.Push("b")
	v, ok := r.PeekFront()
	assert.True(t, ok)
	assert.Equal(t, "a", v)
	assert.Equal(t, 2, r.Len()) // PeekFront does not remove
}

func TestRing_GrowPreservesOrder(t *testing.T) {
	r := New[int](2)
	const n = 50
	for i := 0; i < n; i++ {
		r.Push(i)
	}
	assert.Equal(t, n, r.Len())
	for i := 0; i < n; i++ {
		assert.Equal(t, i, r.Pop())
	}
}

func TestRing_GrowAfterWraparound(t *testing.T) {
	r := New[int](2)
	r.Push(1)
	r.Push(2)
	r.Pop()
	r.Push(3) // wraps internally, then push(4) forces a grow while wrapped
	r.Push(4)
	r.Push(5)
	assert.Equal(t, []int{2, 3, 4, 5}, r.Slice())
}

func TestRing_Slice(t *testing.T) {
	r := New[int](4)
	assert.Nil(t, r.Slice())
	r.Push(1)
	r.Push(2)
	r.Push(3)
	assert.Equal(t, []int{1, 2, 3}, r.Slice())
}

func TestRing_Remove(t *testing.T) {
	r := New[int](4)
	for _, v := range []int{1, 2, 3, 4} {
		r.Push(v)
	}
	removed := r.Remove(func(v int) bool { return v == 3 })
	assert.True(t, removed)
	assert.Equal(t, []int{1, 2, 4}, r.Slice())

	removed = r.Remove(func(v int) bool { return v == 99 })
	assert.False(t, removed)
	assert.Equal(t, []int{1, 2, 4}, r.Slice())
}

func TestRing_RemoveOnlyFirstMatch(t *testing.T) {
	r := New[int](4)
	for _, v := range []int{1, 2, 2, 3} {
		r.Push(v)
	}
	r.Remove(func(v int) bool { return v == 2 })
	assert.Equal(t, []int{1, 2, 3}, r.Slice())
}

func TestRing_Clone(t *testing.T) {
	r := New[int](2)
	r.Push(1)
	r.Push(2)
	r.Push(3)

	clone := r.Clone()
	assert.Equal(t, r.Slice(), clone.Slice())

	clone.Push(4)
	assert.Equal(t, []int{1, 2, 3}, r.Slice(), "mutating the clone must not affect the original")
	assert.Equal(t, []int{1, 2, 3, 4}, clone.Slice())

	r.Pop()
	assert.Equal(t, []int{2, 3}, r.Slice())
	assert.Equal(t, []int{1, 2, 3, 4}, clone.Slice(), "mutating the original must not affect the clone")
}

func TestRing_CloneEmpty(t *testing.T) {
	r := New[int](4)
	clone := r.Clone()
	assert.Equal(t, 0, clone.Len())
	clone.Push(1)
	assert.Equal(t, 0, r.Len())
}
