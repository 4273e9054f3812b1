package stoplight

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/creachadair/stoplight/handoff"
)

var (
	// ErrStarted is reported by Start on a controller that is already running.
	ErrStarted = errors.New("controller already started")

	// ErrStopped is reported by operations on a controller that has stopped.
	ErrStopped = errors.New("controller stopped")

	// ErrNotStarted is reported by Stop on a controller that was never started.
	ErrNotStarted = errors.New("controller not started")
)

// minCycle is the shortest hold the toggle loop will honor, so that a source
// reporting zero or negative durations cannot make the loop spin.
const minCycle = time.Millisecond

type runState int

const (
	idle runState = iota
	running
	stopped
)

// Options are settings for a [Controller]. A nil *Options is ready for use
// and provides default values as described.
type Options struct {
	// The phase the signal holds before its first transition (default Red).
	Initial Phase

	// The source of cycle durations. If nil, use [DefaultCycle].
	Cycle DurationSource

	// If set, the controller logs its activity here.
	Logf func(format string, args ...any)

	// If set, called from the toggle loop after each transition has been
	// published. It must not block. It may call Stop on the controller, in
	// which case no further transitions occur.
	OnChange func(old, cur Phase)
}

func (o *Options) cycle() DurationSource {
	if o == nil || o.Cycle == nil {
		return DefaultCycle()
	}
	return o.Cycle
}

func (o *Options) initial() Phase {
	if o == nil {
		return Red
	}
	return o.Initial
}

func (o *Options) logf() func(string, ...any) {
	if o == nil || o.Logf == nil {
		return func(string, ...any) {}
	}
	return o.Logf
}

func (o *Options) onChange() func(old, cur Phase) {
	if o == nil {
		return nil
	}
	return o.OnChange
}

// A Controller drives a single signal. Once started, a background goroutine
// holds each phase for a duration drawn from its [DurationSource], then
// toggles to the other phase and publishes the new phase to a queue.
//
// The queue is the authoritative, ordered record of transitions. Each
// published phase is consumed by exactly one call to [Controller.WaitFor], so
// concurrent waiters share the stream of transitions rather than each seeing
// all of them. [Controller.Phase] reports a snapshot of the current phase
// without consuming anything.
//
// Transitions published while nobody is waiting remain buffered, one per
// cycle, until a call to WaitFor consumes them or the controller stops.
// WaitFor skips over such a backlog and does not return for a stale phase.
type Controller struct {
	cycle    DurationSource // read-only after initialization
	logf     func(string, ...any)
	onChange func(old, cur Phase)

	phase cell[Phase]    // written only by the toggle loop
	queue handoff.Queue[Phase]
	state cell[runState] // idle → running → stopped
	stop  latch          // set by Stop
	done  latch          // set when the toggle loop exits
	hook  atomic.Bool    // true while the loop is running onChange
}

// New constructs a new idle [Controller] with the given options.
// Call [Controller.Start] to begin toggling.
func New(opts *Options) *Controller {
	c := &Controller{
		cycle:    opts.cycle(),
		logf:     opts.logf(),
		onChange: opts.onChange(),
	}
	c.phase.Store(opts.initial())
	return c
}

// Start launches the toggle loop in a new goroutine and returns immediately.
// The loop runs until ctx ends or [Controller.Stop] is called.
//
// Only the first call to Start has any effect. Subsequent calls report
// ErrStarted while c is running, or ErrStopped once it has stopped.
func (c *Controller) Start(ctx context.Context) error {
	if !c.state.CompareAndSwap(idle, running) {
		if c.state.Load() == stopped {
			return ErrStopped
		}
		return ErrStarted
	}
	go c.run(ctx)
	return nil
}

// Stop stops the toggle loop and waits for it to exit. Any goroutines blocked
// in [Controller.WaitFor] are woken and report ErrStopped. Stop is safe to
// call more than once; if c was never started, Stop reports ErrNotStarted.
//
// While an OnChange hook is running, Stop requests the loop to exit but does
// not wait for it, so that the hook itself may call Stop. Use
// [Controller.Done] to wait for the exit in that case.
func (c *Controller) Stop() error {
	if c.state.Load() == idle {
		return ErrNotStarted
	}
	c.stop.Set()
	if c.hook.Load() {
		return nil // the loop may be our caller
	}
	<-c.done.Ready()
	return nil
}

// Done returns a channel that is closed once the toggle loop has exited,
// either because [Controller.Stop] was called or its context ended.
func (c *Controller) Done() <-chan struct{} { return c.done.Ready() }

// Phase returns the most recently committed phase of c without blocking.
//
// The snapshot is updated before the corresponding transition is published,
// so after [Controller.WaitFor] returns for some phase, Phase reports that
// phase or a later one. Phase gives no other ordering guarantee relative to
// the published stream; callers that need one must use WaitFor.
func (c *Controller) Phase() Phase { return c.phase.Load() }

// WaitFor blocks until target is published, discarding any other phases
// received while waiting. If target is received but a later transition is
// already buffered, WaitFor keeps going, so that it does not return on a
// stale phase.
//
// If ctx ends first, WaitFor reports the error that ended the context.
// If c stops, WaitFor reports ErrStopped. If c was never started, WaitFor
// blocks until ctx ends.
func (c *Controller) WaitFor(ctx context.Context, target Phase) error {
	for {
		p, err := c.queue.Recv(ctx)
		if errors.Is(err, handoff.ErrClosed) {
			return ErrStopped
		} else if err != nil {
			return err
		}
		if p == target && c.queue.Len() == 0 {
			return nil
		}
		c.logf("stoplight: discarding %v while waiting for %v", p, target)
	}
}

// WaitForGreen is shorthand for c.WaitFor(ctx, Green).
func (c *Controller) WaitForGreen(ctx context.Context) error { return c.WaitFor(ctx, Green) }

// Changed blocks until the phase of c next changes, and returns the new phase.
// Unlike [Controller.WaitFor], Changed does not consume any published
// transitions, and every concurrent caller observes the change.
//
// If ctx ends first, Changed returns the current phase and the error that
// ended the context. If c has stopped, Changed reports ErrStopped.
func (c *Controller) Changed(ctx context.Context) (Phase, error) {
	select {
	case <-c.done.Ready():
		return c.phase.Load(), ErrStopped
	default:
	}

	// Wake the wait if c stops before the phase changes.
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-c.done.Ready():
			cancel()
		case <-wctx.Done():
		}
	}()

	p, ok := c.phase.Wait(wctx)
	if ok {
		return p, nil
	} else if err := ctx.Err(); err != nil {
		return p, err
	}
	return p, ErrStopped
}

// run is the toggle loop. It is the only writer of c.phase and the only
// sender on c.queue.
func (c *Controller) run(ctx context.Context) {
	defer func() {
		c.logf("stoplight: stopped in phase %v", c.phase.Load())
		c.state.Store(stopped)
		c.queue.Close()
		c.done.Set()
	}()

	hold := c.nextCycle()
	t := time.NewTimer(hold)
	defer t.Stop()

	for {
		c.logf("stoplight: holding %v for %v", c.phase.Load(), hold)
		select {
		case <-ctx.Done():
			return
		case <-c.stop.Ready():
			return
		case <-t.C:
		}

		old := c.phase.Load()
		cur := old.Next()
		c.phase.Store(cur)
		// N.B. publish after the store, see Phase. Send cannot fail here,
		// since only run closes the queue.
		_ = c.queue.Send(cur)
		if c.onChange != nil {
			c.hook.Store(true)
			c.onChange(old, cur)
			c.hook.Store(false)
		}
		select {
		case <-c.stop.Ready():
			return // stopped by the hook, or concurrently
		default:
		}

		hold = c.nextCycle()
		t.Reset(hold)
	}
}

func (c *Controller) nextCycle() time.Duration { return max(c.cycle.Next(), minCycle) }
