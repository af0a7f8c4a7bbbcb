package portal

import "fmt"

// NavigationError reports that a page failed to load or an expected element
// never appeared before the step deadline.
type NavigationError struct {
	Portal string
	Step   string
	Err    error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigation failed during %s: %v", e.Step, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

// AuthenticationError reports missing login secrets or a login the heuristics
// could not confirm.
type AuthenticationError struct {
	Portal string
	Reason string
	Err    error
}

func (e *AuthenticationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed: %s: %v", e.Reason, e.Err)
	}
	return "authentication failed: " + e.Reason
}

func (e *AuthenticationError) Unwrap() error { return e.Err }
