package stream

import "sync"

// Ring is a fixed-capacity circular buffer that keeps the most recent values.
// A Ring with capacity zero or less keeps nothing.
type Ring[T any] struct {
	mu   sync.RWMutex
	buf  []T
	pos  int // next write position
	full bool
}

// NewRing creates a ring with the given capacity.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// Write adds v, overwriting the oldest value when full.
func (r *Ring[T]) Write(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.buf) == 0 {
		return
	}
	r.buf[r.pos] = v
	r.pos = (r.pos + 1) % len(r.buf)
	if r.pos == 0 {
		r.full = true
	}
}

// ReadAll returns the retained values oldest first.
func (r *Ring[T]) ReadAll() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.full {
		out := make([]T, r.pos)
		copy(out, r.buf[:r.pos])
		return out
	}

	out := make([]T, len(r.buf))
	n := copy(out, r.buf[r.pos:])
	copy(out[n:], r.buf[:r.pos])
	return out
}

// Len returns the number of retained values.
func (r *Ring[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.full {
		return len(r.buf)
	}
	return r.pos
}
