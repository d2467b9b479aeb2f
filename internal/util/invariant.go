package util

import "fmt"

// InvariantError reports a programming defect in tree construction or
// walker driving code. It is raised with panic, never returned.
type InvariantError struct {
	Msg string
}

func (e *InvariantError) Error() string {
	return "invariant violation: " + e.Msg
}

// Invariantf panics with an *InvariantError.
func Invariantf(format string, args ...any) {
	panic(&InvariantError{Msg: fmt.Sprintf(format, args...)})
}
