// ABOUTME: Error types returned by the todo service
// ABOUTME: Validation failures are recoverable; NotFound hides other owners' items

package todo

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an item does not exist or belongs to
	// another owner. The two cases are deliberately indistinguishable.
	ErrNotFound = errors.New("item not found")

	// ErrInvalid is wrapped by every ValidationError.
	ErrInvalid = errors.New("invalid item")
)

// ValidationError reports a field that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is(err, ErrInvalid) match.
func (e *ValidationError) Unwrap() error {
	return ErrInvalid
}
