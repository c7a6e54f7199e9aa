package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestMigrationError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *MigrationError
		want string
	}{
		{
			name: "with component and code",
			err: &MigrationError{
				Op:        OpConflictResolve,
				Component: "manager",
				Code:      ErrCodeResolutionFailure,
				Err:       errors.New("boom"),
			},
			want: "conflict_resolve operation failed in manager component [RESOLUTION_FAILURE]: boom",
		},
		{
			name: "without component",
			err: &MigrationError{
				Op:  OpLoad,
				Err: errors.New("not found"),
			},
			want: "load operation failed: not found",
		},
		{
			name: "with component only",
			err: &MigrationError{
				Op:        OpStore,
				Component: "backlog",
				Err:       errors.New("disk full"),
			},
			want: "store operation failed in backlog component: disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMigrationError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := NewStorageError(OpStore, cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
	if err.Unwrap() != cause {
		t.Error("Unwrap should return the cause")
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(NewStorageError(OpStore, errors.New("timeout"))) {
		t.Error("storage errors should be retryable")
	}
	if IsRetryable(NewConflictError(OpDetect, errors.New("bad state"))) {
		t.Error("conflict errors should not be retryable")
	}
	if IsRetryable(errors.New("plain error")) {
		t.Error("plain errors should not be retryable")
	}

	// A wrapped MigrationError is still recognized.
	wrapped := fmt.Errorf("context: %w", NewRetryable(OpLoad, errors.New("transient")))
	if !IsRetryable(wrapped) {
		t.Error("wrapped retryable error should be recognized")
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name      string
		err       *MigrationError
		code      ErrorCode
		component string
		retryable bool
	}{
		{"storage", NewStorageError(OpStore, errors.New("x")), ErrCodeStorageFailure, "backlog", true},
		{"conflict", NewConflictError(OpDetect, errors.New("x")), ErrCodeConflictFailure, "conflict", false},
		{"resolution", NewResolutionError(OpConflictResolve, errors.New("x")), ErrCodeResolutionFailure, "manager", false},
		{"validation", NewValidationError(OpRuleSave, errors.New("x")), ErrCodeValidationFailure, "", false},
		{"config", NewConfigError(OpConfigLoad, errors.New("x")), ErrCodeConfigFailure, "config", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Code = %s, want %s", tt.err.Code, tt.code)
			}
			if tt.err.Component != tt.component {
				t.Errorf("Component = %s, want %s", tt.err.Component, tt.component)
			}
			if tt.err.Retryable != tt.retryable {
				t.Errorf("Retryable = %v, want %v", tt.err.Retryable, tt.retryable)
			}
		})
	}
}
