package dispatch

import "sync"

// Task is an opaque unit of work. It is owned by the RingBuffer until
// dequeued, then by the executing goroutine until it returns.
type Task func()

// RingBuffer is a fixed-capacity circular task buffer. Push and Pop never
// block; capacity pressure is reported through their return values.
//
// Invariant: full implies head == tail; !full && head == tail means empty.
type RingBuffer struct {
	mu   sync.Mutex
	buf  []Task
	head int
	tail int
	full bool
}

// NewRingBuffer creates a buffer with the given number of slots. Capacities
// below one are clamped to one.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &RingBuffer{buf: make([]Task, capacity)}
}

// Push offers a task. It reports false when the buffer is full.
func (r *RingBuffer) Push(t Task) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.full {
		return false
	}
	r.buf[r.head] = t
	r.head = (r.head + 1) % len(r.buf)
	r.full = r.head == r.tail
	return true
}

// Pop removes the oldest task. It reports false when the buffer is empty.
func (r *RingBuffer) Pop() (Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tail == r.head && !r.full {
		return nil, false
	}
	t := r.buf[r.tail]
	r.buf[r.tail] = nil
	r.tail = (r.tail + 1) % len(r.buf)
	r.full = false
	return t, true
}

// Empty reports whether the buffer holds no tasks.
func (r *RingBuffer) Empty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tail == r.head && !r.full
}

// Len returns the number of buffered tasks.
func (r *RingBuffer) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.full {
		return len(r.buf)
	}
	if r.head >= r.tail {
		return r.head - r.tail
	}
	return len(r.buf) - r.tail + r.head
}

// Cap returns the configured slot count.
func (r *RingBuffer) Cap() int { return len(r.buf) }
