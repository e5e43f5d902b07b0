package browser

import (
	"fmt"

	"dev/matchbox/smokecheck/pkg/verify"
)

// Probe reports the rendering state of the first element matching selector.
// It never waits; the poll loop in pkg/verify owns all timing.
func (s *Session) Probe(selector string) (verify.State, error) {
	has, el, err := s.page.Has(selector)
	if err != nil {
		return verify.StateAbsent, fmt.Errorf("querying %q: %w", selector, err)
	}
	if !has {
		return verify.StateAbsent, nil
	}

	// Visible means a non-zero box and no display:none/visibility:hidden on
	// the element or its ancestors.
	visible, err := el.Visible()
	if err != nil {
		return verify.StateAbsent, fmt.Errorf("checking visibility of %q: %w", selector, err)
	}
	if !visible {
		return verify.StateHidden, nil
	}
	return verify.StateVisible, nil
}
