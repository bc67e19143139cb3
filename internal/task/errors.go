package task

import "fmt"

// ValidationError reports a malformed field. It is returned before any
// mutation is applied, so a failed call never leaves a task half-updated.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func validationErr(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
