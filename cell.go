package stoplight

import (
	"context"
	"sync"
)

// A cell is a mutable container for a single value that can be concurrently
// accessed by multiple goroutines. A zero cell is ready for use, but must not
// be copied after its first use.
type cell[T comparable] struct {
	μ     sync.Mutex
	x     T
	ready chan struct{} // signal channel for Wait, created lazily
}

// Load returns the current value stored in c.
func (c *cell[T]) Load() T {
	c.μ.Lock()
	defer c.μ.Unlock()
	return c.x
}

// Store replaces the value in c with v and wakes any goroutines blocked in
// Wait, even if v equals the previous value.
func (c *cell[T]) Store(v T) {
	c.μ.Lock()
	defer c.μ.Unlock()
	c.storeLocked(v)
}

func (c *cell[T]) storeLocked(v T) {
	c.x = v
	if c.ready != nil {
		close(c.ready)
		c.ready = nil
	}
}

// CompareAndSwap stores v into c if c currently holds old, and reports
// whether it did so.
func (c *cell[T]) CompareAndSwap(old, v T) bool {
	c.μ.Lock()
	defer c.μ.Unlock()
	if c.x != old {
		return false
	}
	c.storeLocked(v)
	return true
}

// Wait blocks until c is next stored to, or until ctx ends, and returns the
// value c holds at that point. The flag reports whether a store occurred
// (true) or ctx ended (false). If ctx ends first, Wait returns the value c
// held when Wait was called.
func (c *cell[T]) Wait(ctx context.Context) (T, bool) {
	c.μ.Lock()
	if c.ready == nil {
		c.ready = make(chan struct{})
	}
	old, ready := c.x, c.ready
	c.μ.Unlock()

	select {
	case <-ctx.Done():
		return old, false
	case <-ready:
		return c.Load(), true
	}
}
