// Package bus provides the bounded FIFO queues connecting the pipeline
// workers. Producers never block: enqueue is try-only with a drop-on-full
// policy. Consumers wait with a bounded timeout so cooperative stop stays
// responsive.
package bus

import (
	"sync/atomic"
	"time"
)

// Queue is a bounded FIFO channel of T. The zero value is not usable; use
// New.
type Queue[T any] struct {
	name    string
	ch      chan T
	dropped atomic.Uint64
}

// New creates a queue with the given capacity. The name shows up in logs
// and depth reporting.
func New[T any](name string, capacity int) *Queue[T] {
	return &Queue[T]{
		name: name,
		ch:   make(chan T, capacity),
	}
}

// Name returns the queue's diagnostic name.
func (q *Queue[T]) Name() string { return q.name }

// TryPut enqueues without blocking. Returns false when the queue is full;
// the item is counted as dropped and the caller decides how loudly to log.
func (q *Queue[T]) TryPut(v T) bool {
	select {
	case q.ch <- v:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// Get waits up to timeout for an item. The second return is false on
// timeout.
func (q *Queue[T]) Get(timeout time.Duration) (T, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case v := <-q.ch:
		return v, true
	case <-timer.C:
		var zero T
		return zero, false
	}
}

// TryGet dequeues without waiting.
func (q *Queue[T]) TryGet() (T, bool) {
	select {
	case v := <-q.ch:
		return v, true
	default:
		var zero T
		return zero, false
	}
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int { return len(q.ch) }

// Cap returns the queue capacity.
func (q *Queue[T]) Cap() int { return cap(q.ch) }

// Dropped returns how many enqueues were refused because the queue was
// full.
func (q *Queue[T]) Dropped() uint64 { return q.dropped.Load() }
