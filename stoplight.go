// Package stoplight implements a periodic two-phase traffic signal.
//
// A [Controller] toggles its [Phase] between Red and Green on a randomized
// interval, and publishes each transition through a FIFO hand-off queue. Callers
// can read the current phase without blocking, or block until a particular
// phase is observed.
package stoplight

import (
	"context"
	"fmt"
	"strings"
)

// Phase is the state of a signal.
type Phase int8

const (
	Red   Phase = iota // stop; the initial phase of a new controller
	Green              // go
)

var phaseName = [...]string{Red: "red", Green: "green"}

// String returns the lowercase name of p.
func (p Phase) String() string {
	if p == Red || p == Green {
		return phaseName[p]
	}
	return fmt.Sprintf("Phase(%d)", int8(p))
}

// Next returns the phase that follows p.
func (p Phase) Next() Phase {
	if p == Green {
		return Red
	}
	return Green
}

// ParsePhase returns the phase whose name matches s, ignoring case.
func ParsePhase(s string) (Phase, error) {
	for p, name := range phaseName {
		if strings.EqualFold(s, name) {
			return Phase(p), nil
		}
	}
	return Red, fmt.Errorf("unknown phase %q", s)
}

// MarshalText implements [encoding.TextMarshaler].
func (p Phase) MarshalText() ([]byte, error) {
	if p != Red && p != Green {
		return nil, fmt.Errorf("invalid phase %d", int8(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (p *Phase) UnmarshalText(text []byte) error {
	v, err := ParsePhase(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// A Starter is anything that can be started in the background, such as a
// [Controller]. An orchestrator managing several signals needs only this.
type Starter interface {
	Start(context.Context) error
}

var _ Starter = (*Controller)(nil)
