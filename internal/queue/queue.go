// Package queue provides the bounded hand-off between event producers and persistence
// workers. A full queue blocks producers; consumers wait a bounded time so they can
// observe shutdown and startup signals while idle.
package queue

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrClosed  = errors.New("queue: closed")
	ErrTimeout = errors.New("queue: dequeue timed out")
)

// Queue is a bounded multi-producer, multi-consumer FIFO.
type Queue[T any] struct {
	items     chan T
	done      chan struct{}
	closeOnce sync.Once
}

// New returns a queue holding at most capacity items. Capacities below one are raised to one.
func New[T any](capacity int) *Queue[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue[T]{
		items: make(chan T, capacity),
		done:  make(chan struct{}),
	}
}

// Enqueue adds item, blocking while the queue is full. It fails with ErrClosed once the
// queue is closed and with ctx.Err() when ctx ends first.
func (q *Queue[T]) Enqueue(ctx context.Context, item T) error {
	select {
	case <-q.done:
		return ErrClosed
	default:
	}
	select {
	case q.items <- item:
		return nil
	case <-q.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dequeue waits up to timeout for an item. Items buffered before Close are still
// returned; ErrClosed is reported only once the queue is closed and empty.
func (q *Queue[T]) Dequeue(timeout time.Duration) (T, error) {
	if item, ok := q.TryDequeue(); ok {
		return item, nil
	}
	var zero T
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case item := <-q.items:
		return item, nil
	case <-q.done:
		if item, ok := q.TryDequeue(); ok {
			return item, nil
		}
		return zero, ErrClosed
	case <-timer.C:
		return zero, ErrTimeout
	}
}

// TryDequeue returns a buffered item without waiting.
func (q *Queue[T]) TryDequeue() (T, bool) {
	select {
	case item := <-q.items:
		return item, true
	default:
		var zero T
		return zero, false
	}
}

// Close stops further enqueues. It is safe to call more than once.
func (q *Queue[T]) Close() {
	q.closeOnce.Do(func() { close(q.done) })
}

func (q *Queue[T]) Closed() bool {
	select {
	case <-q.done:
		return true
	default:
		return false
	}
}

// Len is the number of buffered items.
func (q *Queue[T]) Len() int { return len(q.items) }

func (q *Queue[T]) Cap() int { return cap(q.items) }
