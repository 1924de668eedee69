// Package services provides standardized error types for service layer
// operations.
package services

import (
	"errors"
	"fmt"
)

var (
	// Not-found errors (404).
	ErrActionNotFound = errors.New("action not found")
	ErrTypeNotFound   = errors.New("document type not found")

	// Modeling validation errors (400).
	ErrInvalidParent     = errors.New("invalid parent id")
	ErrParentRequired    = errors.New("only type Case is allowed to have no parent")
	ErrPropertyRequired  = errors.New("only type Case is allowed to have no property")
	ErrInvalidDefinition = errors.New("invalid action definition")

	// Modeling conflicts (409).
	ErrDuplicateCase = errors.New("only one document of type Case is allowed")
	ErrEditCase      = errors.New("cannot edit an existing Case")
)

// ServiceError wraps service-level errors with operation context.
type ServiceError struct {
	Op      string // Operation name
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsNotFound checks if an error should surface with 404 semantics.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrActionNotFound) || errors.Is(err, ErrTypeNotFound)
}

// IsModelValidation checks if an error is a modeling validation error that
// should return HTTP 400.
func IsModelValidation(err error) bool {
	return errors.Is(err, ErrInvalidParent) ||
		errors.Is(err, ErrParentRequired) ||
		errors.Is(err, ErrPropertyRequired) ||
		errors.Is(err, ErrInvalidDefinition)
}

// IsModelConflict checks if an error is a modeling conflict that should
// return HTTP 409.
func IsModelConflict(err error) bool {
	return errors.Is(err, ErrDuplicateCase) || errors.Is(err, ErrEditCase)
}
