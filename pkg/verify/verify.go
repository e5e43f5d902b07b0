// Package verify implements the render-wait and visibility assertion engine:
// poll the page for a target element until it becomes visible or a bounded
// timeout elapses.
package verify

import (
	"context"
	"fmt"
	"time"
)

// State is the observed rendering state of the target element.
type State int

const (
	// StateAbsent means no element matched the selector.
	StateAbsent State = iota
	// StateHidden means the element exists in the tree but is not rendered
	// visibly (zero box, display:none, visibility:hidden, or a hidden
	// ancestor).
	StateHidden
	// StateVisible means the element occupies non-zero screen space and is
	// not suppressed by styling.
	StateVisible
)

func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateHidden:
		return "present-hidden"
	case StateVisible:
		return "visible"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Prober reports the current rendering state of the element matching a
// selector. Implementations must not wait; the poll loop owns all timing.
// pkg/browser provides the CDP-backed implementation.
type Prober interface {
	Probe(selector string) (State, error)
}

// ProberFunc adapts a function to the Prober interface.
type ProberFunc func(selector string) (State, error)

func (f ProberFunc) Probe(selector string) (State, error) { return f(selector) }

// TimeoutError reports that the element never became visible within the
// bound. LastState distinguishes "never rendered" (absent) from "rendered but
// invisible" (present-hidden).
type TimeoutError struct {
	Selector  string
	LastState State
	Timeout   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("element %q did not become visible within %v (last state: %s)",
		e.Selector, e.Timeout, e.LastState)
}

// WaitVisible polls p at a fixed interval until the element matching selector
// is visible, returning nil on the first visible observation. If timeout
// elapses first it returns a *TimeoutError carrying the last observed state.
// Cancelling ctx aborts the wait with ctx's error. One timeout is terminal;
// there are no retries beyond the poll loop itself.
func WaitVisible(ctx context.Context, p Prober, selector string, timeout, interval time.Duration) error {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(interval)
	defer tick.Stop()

	last := StateAbsent
	for {
		state, err := p.Probe(selector)
		if err != nil {
			return fmt.Errorf("probing %q: %w", selector, err)
		}
		if state == StateVisible {
			return nil
		}
		last = state

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return &TimeoutError{Selector: selector, LastState: last, Timeout: timeout}
		case <-tick.C:
		}
	}
}
