package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound         = errors.New("resource not found")
	ErrAnalysisNotFound = fmt.Errorf("%w: analysis", ErrNotFound)

	// Input errors - fatal before any computation starts
	ErrInvalidInput     = errors.New("invalid input")
	ErrLengthMismatch   = fmt.Errorf("%w: numerator, denominator and group must have equal length", ErrInvalidInput)
	ErrIdenticalSeries  = fmt.Errorf("%w: numerator and denominator are the same series", ErrInvalidInput)
	ErrUnknownHighlight = fmt.Errorf("%w: highlight value not present in group set", ErrInvalidInput)
	ErrInvalidEnum      = fmt.Errorf("%w: unrecognized option value", ErrInvalidInput)
	ErrPaletteTooSmall  = fmt.Errorf("%w: at least 4 colours required", ErrInvalidInput)

	// Computation errors - limits cannot be well-defined
	ErrComputation       = errors.New("computation failed")
	ErrZeroDenominator   = fmt.Errorf("%w: group denominator sums to zero", ErrComputation)
	ErrTooFewGroups      = fmt.Errorf("%w: too few groups to trim", ErrComputation)
	ErrDegenerateDataset = fmt.Errorf("%w: degenerate dataset", ErrComputation)
)

// Error constructors with context
func NewInputError(field string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidInput, field, reason)
}

func NewZeroDenominatorError(group GroupKey) error {
	return fmt.Errorf("%w (group %q)", ErrZeroDenominator, group)
}

func NewEnumError(field string, value string) error {
	return fmt.Errorf("%w: %s=%q", ErrInvalidEnum, field, value)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

func IsComputationError(err error) bool {
	return errors.Is(err, ErrComputation)
}
