// Package handoff implements an unbounded first-in, first-out queue for
// passing values between goroutines.
package handoff

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/creachadair/mds/queue"
)

// ErrClosed is the sentinel error reported by a queue that is closed.
var ErrClosed = errors.New("queue is closed")

// A Queue is an unbounded FIFO hand-off shared by one or more producers and
// one or more consumers. A producer calls [Queue.Send] to add a value, and a
// consumer calls [Queue.Recv] to wait for and remove one.
//
// Sending to a queue never blocks. Each value sent is delivered to exactly one
// receiver, and values are received in the order they were sent.
//
// A zero Queue is ready for use, but must not be copied after first use.
type Queue[T any] struct {
	// μ protects the fields below.
	// At most one of items and waits is non-empty at a time, since Send hands
	// a value directly to the oldest waiter when there is one.
	μ      sync.Mutex
	items  queue.Queue[T]
	waits  []chan T
	closed bool
}

// New constructs a new empty queue.
func New[T any]() *Queue[T] { return new(Queue[T]) }

// Send adds v to the end of the queue and wakes one receiver, if any are
// waiting. Send does not block. If q is closed, Send discards v and reports
// ErrClosed.
func (q *Queue[T]) Send(v T) error {
	q.μ.Lock()
	defer q.μ.Unlock()
	if q.closed {
		return ErrClosed
	}
	if len(q.waits) != 0 {
		w := q.waits[0]
		q.waits = slices.Delete(q.waits, 0, 1)
		w <- v // N.B. buffered, does not block
		return nil
	}
	q.items.Add(v)
	return nil
}

// Recv blocks until a value is available in q, then removes and returns it.
//
// If ctx ends before a value is available, Recv returns a zero value and the
// error that ended the context. If q is closed and no values remain, Recv
// returns a zero value and ErrClosed. Values sent before a call to Close may
// still be received after it.
//
// If a value is delivered concurrently with the end of ctx, Recv returns the
// value rather than dropping it.
func (q *Queue[T]) Recv(ctx context.Context) (T, error) {
	var zero T

	q.μ.Lock()
	if v, ok := q.items.Pop(); ok {
		q.μ.Unlock()
		return v, nil
	} else if q.closed {
		q.μ.Unlock()
		return zero, ErrClosed
	} else if err := ctx.Err(); err != nil {
		q.μ.Unlock()
		return zero, err
	}

	// Park until a sender hands off a value, or the queue closes.
	ready := make(chan T, 1)
	q.waits = append(q.waits, ready)
	q.μ.Unlock()

	select {
	case v, ok := <-ready:
		if !ok {
			return zero, ErrClosed
		}
		return v, nil
	case <-ctx.Done():
	}

	q.μ.Lock()
	defer q.μ.Unlock()
	if i := slices.Index(q.waits, ready); i >= 0 {
		q.waits = slices.Delete(q.waits, i, i+1)
		return zero, ctx.Err()
	}

	// A sender or Close got to us first; ready is already settled.
	if v, ok := <-ready; ok {
		return v, nil
	}
	return zero, ErrClosed
}

// TryRecv removes and returns the value at the front of q without blocking.
// It reports false if no value is available.
func (q *Queue[T]) TryRecv() (T, bool) {
	q.μ.Lock()
	defer q.μ.Unlock()
	return q.items.Pop()
}

// Len reports the number of values buffered in q.
func (q *Queue[T]) Len() int {
	q.μ.Lock()
	defer q.μ.Unlock()
	return q.items.Len()
}

// Close closes q, waking any blocked receivers with ErrClosed. Values already
// buffered remain available to Recv and TryRecv. If q is already closed,
// Close returns ErrClosed.
func (q *Queue[T]) Close() error {
	q.μ.Lock()
	defer q.μ.Unlock()
	if q.closed {
		return ErrClosed
	}
	q.closed = true
	for _, w := range q.waits {
		close(w)
	}
	q.waits = nil
	return nil
}
