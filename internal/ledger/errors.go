package ledger

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound             = errors.New("Resource not found")
	ErrForbidden            = errors.New("User is Forbidden from performing this action")
	ErrInvalidTransition    = errors.New("Invalid status transition")
	ErrAlreadyTerminal      = errors.New("Transaction is already in a terminal state")
	ErrNotActive            = errors.New("Assignment is not active")
	ErrInsufficientQuantity = errors.New("Insufficient available quantity")
	ErrInvalidQuantity      = errors.New("Invalid quantity")
	ErrBaseMismatch         = errors.New("Asset does not belong to the requested base")
	ErrInvalidStatus        = errors.New("Invalid status")
	ErrInvalidInput         = errors.New("Invalid input")
	ErrDuplicate            = errors.New("Resource already exists")
)

// InsufficientQuantityError carries the amounts a client needs to explain the rejection.
type InsufficientQuantityError struct {
	Available int64
	Requested int64
}

func (e *InsufficientQuantityError) Error() string {
	return fmt.Sprintf("Insufficient available quantity: available %d, requested %d", e.Available, e.Requested)
}

func (e *InsufficientQuantityError) Is(target error) bool {
	return target == ErrInsufficientQuantity
}

// Invalid wraps ErrInvalidInput with a human readable reason.
func Invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
}
