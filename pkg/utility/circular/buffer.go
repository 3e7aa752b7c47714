package circular

type Buffer[T any] struct {
	capacity uint

	head uint
	size uint
	data []T
}

func NewBuffer[T any](capacity uint) *Buffer[T] {
	if capacity == 0 {
		panic("capacity must > 0")
	}
	return &Buffer[T]{
		capacity: capacity,
		data:     make([]T, capacity),
	}
}

func (b *Buffer[T]) Capacity() uint {
	return b.capacity
}

func (b *Buffer[T]) Size() uint {
	return b.size
}

func (b *Buffer[T]) IsFull() bool {
	return b.size == b.capacity
}

func (b *Buffer[T]) Push(value T) {
	b.data[b.head] = value
	b.head = (b.head + 1) % b.capacity
	if b.size < b.capacity {
		b.size++
	}
}

// Get returns the idx-th most recent value, Get(0) being the latest.
func (b *Buffer[T]) Get(idx uint) T {
	if idx >= b.size {
		panic("index out of range")
	}
	if b.size == b.capacity {
		return b.data[(b.head-1-idx+b.size)%b.capacity]
	}
	return b.data[b.head-1-idx]
}

// Ordered returns the retained values oldest first.
func (b *Buffer[T]) Ordered() []T {
	if b.size == 0 {
		return nil
	}
	out := make([]T, b.size)
	for i := uint(0); i < b.size; i++ {
		out[i] = b.Get(b.size - 1 - i)
	}
	return out
}
