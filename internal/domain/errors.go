package domain

import (
	"errors"
	"fmt"
)

// ErrRateUnavailable is returned when the price quote is missing,
// zero, or NaN. Conversions return 0 alongside it instead of
// dividing by zero or propagating NaN.
var ErrRateUnavailable = errors.New("exchange rate unavailable")

// ErrCircleNotFound is surfaced when an identity-defining field
// (admin, circle id) cannot be resolved from any source.
var ErrCircleNotFound = errors.New("circle not found")

// MissingFieldError reports a required configuration field that no
// source layer could provide.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field %q in all sources", e.Field)
}

// InvariantError reports a cycle-day out of range for its cycle type.
// Callers must validate or clamp before invoking the schedule
// calculator.
type InvariantError struct {
	CycleType CycleType
	CycleDay  int
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("cycle day %d out of range for cycle type %s", e.CycleDay, e.CycleType)
}
