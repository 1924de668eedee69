// Package store provides standardized error types for datastore operations.
package store

import (
	"errors"
	"fmt"
)

// Standard store error types that all implementations should use.
var (
	// ErrDocumentNotFound indicates a document was not found by the given identifier.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrEdgeNotFound indicates an edge was not found by the given identifier.
	ErrEdgeNotFound = errors.New("edge not found")

	// ErrInvalidID indicates a vertex id was not in the composite "Collection/key" form.
	ErrInvalidID = errors.New("invalid document id")
)

// StoreError wraps datastore errors with operation context.
type StoreError struct {
	Op         string // Operation being performed (e.g. "SaveDocument", "GraphEdges")
	Collection string // Collection or graph if applicable
	ID         string // Document/edge identifier if applicable
	Err        error  // Underlying error
}

func (e *StoreError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s failed for %s %s: %v", e.Op, e.Collection, e.ID, e.Err)
	}

	return fmt.Sprintf("%s failed for %s: %v", e.Op, e.Collection, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewStoreError creates a new store error with context.
func NewStoreError(op, collection, id string, err error) *StoreError {
	return &StoreError{
		Op:         op,
		Collection: collection,
		ID:         id,
		Err:        err,
	}
}

// IsDocumentNotFound checks if an error indicates a document was not found.
func IsDocumentNotFound(err error) bool {
	return errors.Is(err, ErrDocumentNotFound)
}

// IsEdgeNotFound checks if an error indicates an edge was not found.
func IsEdgeNotFound(err error) bool {
	return errors.Is(err, ErrEdgeNotFound)
}
