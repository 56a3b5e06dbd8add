// Package queue provides the FIFO that connects pipeline stages.
//
// A Queue accepts values from any number of producers and hands them to a
// single consumer. Push never blocks: an unbounded queue always accepts, a
// bounded queue drops and counts what does not fit.
package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

var (
	// ErrClosed is returned by Push after Close, and by Pop once a closed
	// queue has been drained.
	ErrClosed = errors.New("queue closed")
	// ErrFull is returned by Push when a bounded queue is at capacity.
	ErrFull = errors.New("queue full")
)

// Queue is a multi-producer, single-consumer FIFO.
type Queue[T any] struct {
	mu       sync.Mutex
	items    []T
	head     int
	capacity int
	closed   bool
	notify   chan struct{}
	dropped  atomic.Int64
}

// New creates a queue. A capacity of 0 or less means unbounded.
func New[T any](capacity int) *Queue[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &Queue[T]{
		capacity: capacity,
		notify:   make(chan struct{}, 1),
	}
}

// Push appends v without blocking. Safe for concurrent use.
func (q *Queue[T]) Push(v T) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	if q.capacity > 0 && q.lenLocked() >= q.capacity {
		q.mu.Unlock()
		q.dropped.Add(1)
		return ErrFull
	}
	q.items = append(q.items, v)
	q.mu.Unlock()

	q.signal()
	return nil
}

// Pop removes the oldest value, waiting until one is available.
// It returns ErrClosed when the queue is closed and empty, or ctx.Err()
// if ctx is cancelled first. Only one goroutine may call Pop.
func (q *Queue[T]) Pop(ctx context.Context) (T, error) {
	var zero T
	for {
		q.mu.Lock()
		if q.lenLocked() > 0 {
			v := q.items[q.head]
			q.items[q.head] = zero
			q.head++
			q.compactLocked()
			q.mu.Unlock()
			return v, nil
		}
		if q.closed {
			q.mu.Unlock()
			return zero, ErrClosed
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-q.notify:
		}
	}
}

// Close stops the queue from accepting values. Values already queued can
// still be popped. Close is idempotent.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.signal()
}

// Len returns the number of queued values.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lenLocked()
}

// Dropped returns how many values a bounded queue rejected as full.
func (q *Queue[T]) Dropped() int64 {
	return q.dropped.Load()
}

func (q *Queue[T]) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *Queue[T]) lenLocked() int {
	return len(q.items) - q.head
}

// compactLocked releases the consumed prefix once it dominates the slice.
func (q *Queue[T]) compactLocked() {
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
		return
	}
	if q.head > 64 && q.head*2 >= len(q.items) {
		n := copy(q.items, q.items[q.head:])
		var zero T
		for i := n; i < len(q.items); i++ {
			q.items[i] = zero
		}
		q.items = q.items[:n]
		q.head = 0
	}
}
