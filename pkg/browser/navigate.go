package browser

import (
	"fmt"
	"time"
)

// NavigationError means the navigation target could not be loaded: bad path,
// missing file, or an unreachable remote URL.
type NavigationError struct {
	Target string
	Err    error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("failed to navigate to %s: %v", e.Target, e.Err)
}
func (e *NavigationError) Unwrap() error { return e.Err }

// stableWindow is how long the DOM must hold still for the page to count as
// settled.
const stableWindow = 300 * time.Millisecond

// Navigate loads target in the session's page.
func (s *Session) Navigate(target string) error {
	if err := s.page.Navigate(target); err != nil {
		return &NavigationError{Target: target, Err: err}
	}
	return nil
}

// Settle waits for the page's own startup scripts to finish mutating the DOM:
// the load event first, then a quiet window with no DOM changes, both bounded
// by timeout. Callers may treat a settle timeout as advisory; the visibility
// assertion is the real readiness gate.
func (s *Session) Settle(timeout time.Duration) error {
	page := s.page.Timeout(timeout)
	defer page.CancelTimeout()

	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("waiting for load event: %w", err)
	}
	if err := page.WaitStable(stableWindow); err != nil {
		return fmt.Errorf("waiting for DOM to stabilize: %w", err)
	}
	return nil
}
