// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
)

// ErrFlushFailed is returned when a staged buffer could not be written even row by row.
var ErrFlushFailed = errors.New("flush failed")

// ErrInvalidRepoFormat is returned when a repository string is not in 'owner/name' format.
type ErrInvalidRepoFormat struct {
	Repo string
}

func (e *ErrInvalidRepoFormat) Error() string {
	return fmt.Sprintf("invalid repository format: %q, expected 'owner/name'", e.Repo)
}

// MissingFieldError is returned by strict normalization when a required key is absent.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field %q", e.Field)
}

// InvalidFieldError is returned when a field is present but cannot be coerced to its column type.
type InvalidFieldError struct {
	Field string
	Value any
	Err   error
}

func (e *InvalidFieldError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid value %v for field %q: %v", e.Value, e.Field, e.Err)
	}
	return fmt.Sprintf("invalid value %v for field %q", e.Value, e.Field)
}

func (e *InvalidFieldError) Unwrap() error {
	return e.Err
}
