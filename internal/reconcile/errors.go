package reconcile

import (
	"errors"
	"fmt"
)

var (
	// ErrDataNotArray is returned by RunBatch when no row sequence is given.
	ErrDataNotArray = errors.New("Data must be an Array")

	// ErrMissingTenant is returned when no tenant (Client id) is given.
	ErrMissingTenant = errors.New("A Client ID must be passed")

	// ErrUnsupportedKind is returned for kinds that have no import row layout.
	ErrUnsupportedKind = errors.New("kind cannot be imported")

	// ErrNotEntitySequence is returned by Flatten when an element is nil or
	// not of the requested kind.
	ErrNotEntitySequence = errors.New("not a sequence of entities")
)

// MissingFieldError reports a row that carries neither an id nor the kind's
// business key.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return e.Field + " must be passed"
}

// InvalidFieldError reports a cell that could not be converted.
type InvalidFieldError struct {
	Field string
	Value string
	Want  string
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("%s must be a %s, got %q", e.Field, e.Want, e.Value)
}

// RowError ties a reconciliation failure to its input row.
type RowError struct {
	Index int
	Err   error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Index, e.Err)
}

func (e RowError) Unwrap() error {
	return e.Err
}
