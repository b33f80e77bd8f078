package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation failed")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrConcurrencyTimeout = errors.New("concurrency timeout")
	ErrDuplicateRequest   = errors.New("duplicate request")

	// ErrConflict is a storage-level write conflict (deadlock, busy database).
	// The sale engine retries it and reports ErrConcurrencyTimeout when it gives up.
	ErrConflict = errors.New("write conflict")
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

type NotFoundError struct {
	Kind string // "customer", "item", "transaction", ...
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found with id: %s", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// InsufficientStockError reports the quantity that was on hand when the sale was refused.
type InsufficientStockError struct {
	ItemID    string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for item %s: available %d, requested %d",
		e.ItemID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

type ConcurrencyTimeoutError struct {
	ItemID   string
	Attempts int
}

func (e *ConcurrencyTimeoutError) Error() string {
	return fmt.Sprintf("item %s busy after %d attempt(s), retry later", e.ItemID, e.Attempts)
}

func (e *ConcurrencyTimeoutError) Unwrap() error {
	return ErrConcurrencyTimeout
}

// IsRetryable reports whether the same request may succeed later without changes.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrencyTimeout) || errors.Is(err, ErrConflict)
}

// IsClientError reports errors caused by the request itself.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrDuplicateRequest)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
