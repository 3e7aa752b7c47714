package circular

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuffer_PushGet(t *testing.T) {
	b := NewBuffer[int](3)

	assert.Equal(t, uint(3), b.Capacity())
	assert.Equal(t, uint(0), b.Size())

	b.Push(1)
	b.Push(2)
	assert.Equal(t, uint(2), b.Size())
	assert.Equal(t, 2, b.Get(0))
	assert.Equal(t, 1, b.Get(1))
	assert.False(t, b.IsFull())

	b.Push(3)
	b.Push(4) // evicts 1
	assert.True(t, b.IsFull())
	assert.Equal(t, 4, b.Get(0))
	assert.Equal(t, 2, b.Get(2))
}

func TestBuffer_Ordered(t *testing.T) {
	b := NewBuffer[int](4)
	assert.Nil(t, b.Ordered())

	for i := 1; i <= 6; i++ {
		b.Push(i)
	}
	assert.Equal(t, []int{3, 4, 5, 6}, b.Ordered())
}

func TestBuffer_Panics(t *testing.T) {
	assert.Panics(t, func() { NewBuffer[int](0) })

	b := NewBuffer[int](2)
	assert.Panics(t, func() { b.Get(0) })
}
