package stoplight

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// A DurationSource supplies the length of each cycle, that is, how long a
// phase is held before the signal toggles. Sources used by a [Controller] are
// called only from its background goroutine.
type DurationSource interface {
	Next() time.Duration
}

// Fixed is a [DurationSource] that always reports the same duration.
type Fixed time.Duration

// Next implements [DurationSource].
func (f Fixed) Next() time.Duration { return time.Duration(f) }

// DurationFunc adapts a function to a [DurationSource].
type DurationFunc func() time.Duration

// Next implements [DurationSource].
func (f DurationFunc) Next() time.Duration { return f() }

// Uniform is a [DurationSource] that samples durations uniformly from the
// half-open interval [Min, Max). A Uniform constructed without [NewUniform]
// uses the top-level random source. If Max <= Min, Next always reports Min.
type Uniform struct {
	Min, Max time.Duration

	rng *rand.Rand // if nil, use the top-level functions
}

// Default cycle bounds.
const (
	DefaultMinCycle = 4 * time.Second
	DefaultMaxCycle = 6 * time.Second
)

// DefaultCycle returns a source of durations in [4s, 6s).
func DefaultCycle() *Uniform { return NewUniform(DefaultMinCycle, DefaultMaxCycle, 0) }

// NewUniform constructs a [Uniform] source on [lo, hi). If seed != 0, the
// source is deterministic for that seed; otherwise it uses the top-level
// random source. NewUniform panics unless 0 < lo < hi.
func NewUniform(lo, hi time.Duration, seed uint64) *Uniform {
	if lo <= 0 || hi <= lo {
		panic(fmt.Sprintf("invalid cycle bounds [%v, %v)", lo, hi))
	}
	u := &Uniform{Min: lo, Max: hi}
	if seed != 0 {
		u.rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	return u
}

// Next implements [DurationSource]. It is not safe for concurrent use by
// multiple goroutines when u has a seeded source.
func (u *Uniform) Next() time.Duration {
	span := u.Max - u.Min
	if span <= 0 {
		return u.Min
	} else if u.rng == nil {
		return u.Min + rand.N(span)
	}
	return u.Min + time.Duration(u.rng.Int64N(int64(span)))
}
