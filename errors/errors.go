// Package errors provides custom error types for the migration toolkit
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents the type of error that occurred
type ErrorCode string

const (
	ErrCodeStorageFailure    ErrorCode = "STORAGE_FAILURE"
	ErrCodeConflictFailure   ErrorCode = "CONFLICT_FAILURE"
	ErrCodeResolutionFailure ErrorCode = "RESOLUTION_FAILURE"
	ErrCodeValidationFailure ErrorCode = "VALIDATION_FAILURE"
	ErrCodeConfigFailure     ErrorCode = "CONFIG_FAILURE"
)

// Operation represents the type of migration operation
type Operation string

const (
	OpDetect          Operation = "detect"
	OpBacklog         Operation = "backlog"
	OpConflictResolve Operation = "conflict_resolve"
	OpRuleLookup      Operation = "rule_lookup"
	OpRuleSave        Operation = "rule_save"
	OpChainUnblock    Operation = "chain_unblock"
	OpStore           Operation = "store"
	OpLoad            Operation = "load"
	OpConfigLoad      Operation = "config_load"
	OpClose           Operation = "close"
)

// MigrationError represents an error that occurred during a migration run
type MigrationError struct {
	// Operation during which the error occurred
	Op Operation

	// Component that generated the error (e.g., "backlog", "manager")
	Component string

	// Underlying error
	Err error

	// Whether the operation can be retried
	Retryable bool

	// Error code for the error type
	Code ErrorCode

	// Metadata for additional context
	Metadata map[string]interface{}
}

func (e *MigrationError) Error() string {
	var msg string
	if e.Component != "" {
		msg = fmt.Sprintf("%s operation failed in %s component", e.Op, e.Component)
	} else {
		msg = fmt.Sprintf("%s operation failed", e.Op)
	}

	if e.Code != "" {
		msg += fmt.Sprintf(" [%s]", e.Code)
	}

	return msg + fmt.Sprintf(": %v", e.Err)
}

func (e *MigrationError) Unwrap() error {
	return e.Err
}

// NewStorageError creates a new storage-related MigrationError
func NewStorageError(op Operation, cause error) *MigrationError {
	return &MigrationError{
		Code:      ErrCodeStorageFailure,
		Op:        op,
		Component: "backlog",
		Err:       cause,
		Retryable: true,
	}
}

// NewConflictError creates a new conflict-related MigrationError
func NewConflictError(op Operation, cause error) *MigrationError {
	return &MigrationError{
		Code:      ErrCodeConflictFailure,
		Op:        op,
		Component: "conflict",
		Err:       cause,
		Retryable: false,
	}
}

// NewResolutionError creates a new resolution-related MigrationError
func NewResolutionError(op Operation, cause error) *MigrationError {
	return &MigrationError{
		Code:      ErrCodeResolutionFailure,
		Op:        op,
		Component: "manager",
		Err:       cause,
		Retryable: false,
	}
}

// NewValidationError creates a new validation-related MigrationError
func NewValidationError(op Operation, cause error) *MigrationError {
	return &MigrationError{
		Code:      ErrCodeValidationFailure,
		Op:        op,
		Err:       cause,
		Retryable: false,
	}
}

// NewConfigError creates a new configuration-related MigrationError
func NewConfigError(op Operation, cause error) *MigrationError {
	return &MigrationError{
		Code:      ErrCodeConfigFailure,
		Op:        op,
		Component: "config",
		Err:       cause,
		Retryable: false,
	}
}

// New creates a new MigrationError
func New(op Operation, err error) *MigrationError {
	return &MigrationError{
		Op:  op,
		Err: err,
	}
}

// NewWithComponent creates a new MigrationError with component information
func NewWithComponent(op Operation, component string, err error) *MigrationError {
	return &MigrationError{
		Op:        op,
		Component: component,
		Err:       err,
	}
}

// NewRetryable creates a new retryable MigrationError
func NewRetryable(op Operation, err error) *MigrationError {
	return &MigrationError{
		Op:        op,
		Err:       err,
		Retryable: true,
	}
}

// IsRetryable checks if an error is a retryable MigrationError
func IsRetryable(err error) bool {
	var migErr *MigrationError
	if errors.As(err, &migErr) {
		return migErr.Retryable
	}
	return false
}
