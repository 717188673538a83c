package health

import (
	"errors"
	"fmt"
)

var (
	// ErrCheckFailed indicates a health check failed.
	ErrCheckFailed = errors.New("health: check failed")

	// ErrCheckTimeout indicates a health check exceeded its timeout.
	ErrCheckTimeout = errors.New("health: check timed out")

	// ErrCheckRejected indicates a health check never ran because the
	// concurrency limit stayed saturated for the full admission wait.
	ErrCheckRejected = errors.New("health: check rejected, concurrency limit saturated")

	// ErrNilIndicator indicates a nil indicator was passed to Register.
	ErrNilIndicator = errors.New("health: nil indicator")

	// ErrInvalidName indicates an empty or blank indicator name.
	ErrInvalidName = errors.New("health: invalid indicator name")

	// ErrIndicatorNotFound indicates the named indicator is not registered.
	ErrIndicatorNotFound = errors.New("health: indicator not found")
)

// DuplicateNameError is returned by Registry.Register when the name is
// already taken. The existing registration is left untouched.
type DuplicateNameError struct {
	// Name is the indicator name that was already registered.
	Name string
}

// Error returns the error message.
func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("health: indicator %q already registered", e.Name)
}
