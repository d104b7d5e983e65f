package core

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is wrapped by every input validation failure.
	ErrValidation = errors.New("validation failed")

	ErrEmptyDescription       = fmt.Errorf("%w: empty description", ErrValidation)
	ErrDescriptionTooLong     = fmt.Errorf("%w: description too long (max %d characters)", ErrValidation, MaxDescriptionLength)
	ErrInvalidAmount          = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrInvalidKind            = fmt.Errorf("%w: invalid transaction type", ErrValidation)
	ErrEmptyCategory          = fmt.Errorf("%w: empty category", ErrValidation)
	ErrUnknownCategory        = fmt.Errorf("%w: category not in budget plan", ErrValidation)
	ErrInvalidPeriod          = fmt.Errorf("%w: invalid period", ErrValidation)
	ErrInvalidLimit           = fmt.Errorf("%w: invalid limit", ErrValidation)
	ErrNoCategories           = fmt.Errorf("%w: budget plan needs at least one category", ErrValidation)
	ErrDuplicateCategory      = fmt.Errorf("%w: duplicate category", ErrValidation)
	ErrAllocationExceedsLimit = fmt.Errorf("%w: category allocation exceeds total limit", ErrValidation)

	// ErrNotFound is returned when a transaction id does not exist.
	ErrNotFound = errors.New("transaction not found")

	// ErrNoPlan is returned by budget operations when no plan is active.
	ErrNoPlan = errors.New("no active budget plan")

	// ErrInconsistentState marks budget caches that disagree with the ledger.
	ErrInconsistentState = errors.New("inconsistent budget state")
)

// InconsistentStateError describes a budget side effect that had to be skipped
// or clamped. The ledger stays authoritative.
type InconsistentStateError struct {
	Category string
	Amount   Money
	Reason   string
}

func (e *InconsistentStateError) Error() string {
	return fmt.Sprintf("%s: category %q (amount %s): %s", ErrInconsistentState, e.Category, e.Amount, e.Reason)
}

func (e *InconsistentStateError) Unwrap() error {
	return ErrInconsistentState
}

// IsValidation reports whether err is a user input problem.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
