/*
errors.go - Centralized error types for the inventory core

PURPOSE:
  All error types in one place. The API layer maps them to HTTP statuses
  with errors.Is / errors.As; nothing outside this package inspects error
  strings.

ERROR CATEGORIES:
  1. Not-found errors - missing product or record
  2. Business-rule errors - insufficient stock
  3. Validation errors - malformed input, with per-field detail
  4. Storage errors - wrapped database failures

SEE ALSO:
  - engine.go: produces these during create/update/delete
  - api/handlers.go: maps them to HTTP responses
*/
package ledger

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrProductNotFound is returned when a line references a product id
	// that does not exist.
	ErrProductNotFound = errors.New("product not found")

	// ErrRecordNotFound is returned when the referenced sale or service
	// record does not exist.
	ErrRecordNotFound = errors.New("record not found")

	// ErrExpenseNotFound is returned when the referenced expense does not exist.
	ErrExpenseNotFound = errors.New("expense not found")

	// ErrInsufficientStock is returned when a debit would drive a product's
	// stock negative. Always causes full rollback of the atomic unit.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrValidation is the sentinel wrapped by ValidationError.
	ErrValidation = errors.New("validation failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientStockError names the offending product and the quantities
// involved. ProductName may be empty if the product row vanished between
// check and report.
type InsufficientStockError struct {
	ProductID   string
	ProductName string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	name := e.ProductName
	if name == "" {
		name = e.ProductID
	}
	return fmt.Sprintf("insufficient stock for %s. Available: %d", name, e.Available)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// ProductNotFoundError identifies which product id could not be resolved.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product not found: %s", e.ProductID)
}

func (e *ProductNotFoundError) Unwrap() error {
	return ErrProductNotFound
}

// FieldError is one failed validation check.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates everything wrong with one request so the
// caller can fix the whole payload in a single pass.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// add appends a field error and returns the receiver for chaining.
func (e *ValidationError) add(field, message string) *ValidationError {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
	return e
}

// or returns nil when no checks failed.
func (e *ValidationError) or() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError reports whether the error is the caller's fault: the
// request can be fixed and retried, nothing was committed.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrProductNotFound)
}

// IsNotFound reports whether the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRecordNotFound) ||
		errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrExpenseNotFound)
}
