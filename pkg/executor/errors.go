// Package executor provides standardized error types for action execution.
package executor

import (
	"errors"
	"fmt"
	"strings"
)

// Machine-readable execution error codes (part of the API surface).
const (
	CodeMissingCase       = "missing_case"
	CodeInvalidCase       = "invalid_case"
	CodeMissingDocument   = "missing_doc"
	CodeMissingIdentifier = "missing_identifier"
	CodeWrongState        = "wrong_state"
	CodeInvalidPath       = "invalid_path"
	CodeInvalidType       = "invalid_type"
	CodeInvalidChild      = "invalid_child"
	CodeMissingEndState   = "missing_state"
	CodeAlreadyExecuted   = "already_executed"
)

var (
	// ErrAlreadyExecuted indicates a second Execute call on a single-use
	// executor instance. Caller misuse, never retried.
	ErrAlreadyExecuted = errors.New("action executor already executed")

	// ErrNotPermitted indicates the acting user matches none of the action's
	// resolved roles.
	ErrNotPermitted = errors.New("not permitted to execute this action")
)

// ExecutionError is a terminal configuration or resolution failure of one
// execution, carrying a machine-readable code and human message.
type ExecutionError struct {
	Code    string
	Message string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newExecutionError(code, message string) *ExecutionError {
	return &ExecutionError{Code: code, Message: message}
}

// ValidationError carries the complete list of schema violations for one
// document slot, never just the first.
type ValidationError struct {
	Document string
	Causes   []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation errors in document %s: %s", e.Document, strings.Join(e.Causes, "; "))
}

// CodeOf extracts the machine-readable code from an execution error.
func CodeOf(err error) (string, bool) {
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Code, true
	}

	if errors.Is(err, ErrAlreadyExecuted) {
		return CodeAlreadyExecuted, true
	}

	return "", false
}

// IsAuthorizationError checks if an error should surface with 403 semantics.
func IsAuthorizationError(err error) bool {
	return errors.Is(err, ErrNotPermitted)
}

// IsValidationError checks if an error carries schema violations.
func IsValidationError(err error) bool {
	var validationErr *ValidationError

	return errors.As(err, &validationErr)
}

// IsConflictError checks if an error is a state or cardinality conflict.
func IsConflictError(err error) bool {
	code, ok := CodeOf(err)

	return ok && (code == CodeWrongState || code == CodeInvalidChild)
}

// IsNotFoundError checks if an error indicates an unresolvable case or
// document reference.
func IsNotFoundError(err error) bool {
	code, ok := CodeOf(err)

	return ok && (code == CodeInvalidCase || code == CodeMissingDocument)
}
