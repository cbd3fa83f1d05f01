package types

import (
	"errors"
	"fmt"
)

// Table operation errors.
var (
	ErrNotFound     = errors.New("entity not found")
	ErrDuplicateKey = errors.New("duplicate key")
)

// Validation errors. Each wraps ErrInvalidData so callers can match the
// whole family with errors.Is(err, ErrInvalidData).
var (
	ErrInvalidData        = errors.New("invalid entity data")
	ErrInvalidID          = fmt.Errorf("%w: invalid entity ID", ErrInvalidData)
	ErrInvalidName        = fmt.Errorf("%w: name must not be empty", ErrInvalidData)
	ErrInvalidState       = fmt.Errorf("%w: invalid state value", ErrInvalidData)
	ErrInvalidKind        = fmt.Errorf("%w: invalid kind value", ErrInvalidData)
	ErrInvalidValue       = fmt.Errorf("%w: value must not be empty", ErrInvalidData)
	ErrInvalidProbability = fmt.Errorf("%w: close probability must be between 0 and 100", ErrInvalidData)
	ErrInvalidAmount      = fmt.Errorf("%w: amount must not be negative", ErrInvalidData)
	ErrInvalidDate        = fmt.Errorf("%w: date is required", ErrInvalidData)
	ErrInvalidPage        = fmt.Errorf("%w: skip must be >= 0 and limit between 1 and 100", ErrInvalidData)
	ErrInvalidMetrics     = fmt.Errorf("%w: invalid client metrics", ErrInvalidData)
)

// IsValidation reports whether err belongs to the validation family.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidData)
}
