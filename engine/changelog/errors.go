package changelog

import (
	"errors"
	"fmt"
)

// Sentinel errors for changelog conversion failures.
var (
	ErrMissingParent     = errors.New("entity missing parent handle")
	ErrUnknownEntityType = errors.New("unknown entity type")
	ErrUnknownAttribute  = errors.New("unknown changed attribute")
	ErrMalformedKey      = errors.New("malformed entity key")
	ErrConfigMissing     = errors.New("changelog config missing changeset_id")
	ErrDuplicateEmission = errors.New("entity already emitted")
)

// ConversionError wraps a sentinel with the entity key and operation that
// surfaced it.
type ConversionError struct {
	Op      string
	Key     string
	Wrapped error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("changelog: %s: %s (key=%q)", e.Wrapped, e.Op, e.Key)
}

func (e *ConversionError) Unwrap() error { return e.Wrapped }

// NewConversionError creates a ConversionError.
func NewConversionError(op, key string, wrapped error) *ConversionError {
	return &ConversionError{Op: op, Key: key, Wrapped: wrapped}
}
