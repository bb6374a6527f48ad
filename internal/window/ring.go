package window

// ring is a bounded FIFO. Pushing into a full ring overwrites the oldest
// element.
type ring[T any] struct {
	buf  []T
	head int
	size int
}

func newRing[T any](capacity int) *ring[T] {
	if capacity < 1 {
		capacity = 1
	}

	return &ring[T]{buf: make([]T, capacity)}
}

// push appends v and reports whether an element was evicted.
func (r *ring[T]) push(v T) bool {
	idx := (r.head + r.size) % len(r.buf)
	r.buf[idx] = v

	if r.size < len(r.buf) {
		r.size++
		return false
	}

	r.head = (r.head + 1) % len(r.buf)

	return true
}

// items returns the elements oldest first in a new slice.
func (r *ring[T]) items() []T {
	out := make([]T, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.buf[(r.head+i)%len(r.buf)]
	}

	return out
}

func (r *ring[T]) len() int {
	return r.size
}

func (r *ring[T]) capacity() int {
	return len(r.buf)
}

func (r *ring[T]) reset() {
	var zero T
	for i := range r.buf {
		r.buf[i] = zero
	}
	r.head = 0
	r.size = 0
}
