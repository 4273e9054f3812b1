package stoplight

import "sync"

// latch is a one-shot condition shared by multiple goroutines. The Ready
// method returns a channel that is closed once the latch is set. Once set, a
// latch stays set.
//
// A zero latch is ready for use, and is not set, but must not be copied after
// any of its methods have been called.
type latch struct {
	μ   sync.Mutex
	ch  chan struct{} // created lazily by the first caller
	set bool
}

// Set sets the latch, waking any pending waiters. If l is already set, Set
// has no effect.
func (l *latch) Set() {
	l.μ.Lock()
	defer l.μ.Unlock()

	if l.set {
		return
	}
	if l.ch == nil {
		l.ch = make(chan struct{})
	}
	close(l.ch)
	l.set = true
}

// Ready returns a channel that is closed when l is set. If l is already set,
// the channel is already closed.
func (l *latch) Ready() <-chan struct{} {
	l.μ.Lock()
	defer l.μ.Unlock()

	if l.ch == nil {
		l.ch = make(chan struct{})
	}
	return l.ch
}
