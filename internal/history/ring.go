// Package history keeps the most recent values in a fixed-size ring.
package history

// Ring is a fixed-capacity buffer that overwrites its oldest entry once full.
// It is not safe for concurrent use.
type Ring[T any] struct {
	buf  []T
	head int // index of the newest value
	n    int
}

// New returns an empty ring holding at most capacity values. Capacities
// below one are raised to one.
func New[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{buf: make([]T, capacity), head: -1}
}

// Push stores v as the newest value.
func (r *Ring[T]) Push(v T) {
	r.head = (r.head + 1) % len(r.buf)
	r.buf[r.head] = v
	if r.n < len(r.buf) {
		r.n++
	}
}

// RecentFirst returns the stored values, newest first, in a fresh slice.
func (r *Ring[T]) RecentFirst() []T {
	out := make([]T, r.n)
	for i := 0; i < r.n; i++ {
		out[i] = r.buf[(r.head-i+len(r.buf))%len(r.buf)]
	}
	return out
}

// Newest returns the most recently pushed value.
func (r *Ring[T]) Newest() (T, bool) {
	if r.n == 0 {
		var zero T
		return zero, false
	}
	return r.buf[r.head], true
}

// Len returns the number of stored values.
func (r *Ring[T]) Len() int { return r.n }

// Cap returns the ring's capacity.
func (r *Ring[T]) Cap() int { return len(r.buf) }

// Reset discards all values.
func (r *Ring[T]) Reset() {
	clear(r.buf)
	r.head = -1
	r.n = 0
}
