package conflict

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/c0deZ3R0/go-migrate-kit/conflict/scope"
	"github.com/c0deZ3R0/go-migrate-kit/migration"
)

// RuntimeErrorTypeID identifies the generic runtime-error conflict type.
var RuntimeErrorTypeID = uuid.MustParse("f6b2e9d4-3a51-4c88-9e07-2d8b1c4f5a6e")

// NewRuntimeErrorConflictType builds the conflict type that wraps arbitrary
// runtime errors raised during analysis or migration. The scope hint encodes
// the error's type/message chain as a path, so rules can match recurring
// known error signatures by prefix.
func NewRuntimeErrorConflictType() *Type {
	return &Type{
		ReferenceName: RuntimeErrorTypeID,
		FriendlyName:  "Runtime error conflict type",
		Handler:       runtimeErrorHandler{},
		Interpreter:   scope.BasicPath{},
		SupportedActions: []ResolutionAction{
			ActionManual,
			ActionSkip,
			ActionMultipleRetry,
		},
		IsCountable: true,
	}
}

// NewRuntimeErrorConflict wraps err into a conflict of the runtime-error
// type.
func NewRuntimeErrorConflict(t *Type, err error) *MigrationConflict {
	return t.NewConflict(err.Error(), RuntimeErrorScopeHint(err))
}

// RuntimeErrorScopeHint builds the slash-delimited hint
// "/ErrorType/message" with "/InnerType/innerMessage" appended when err
// wraps a cause.
func RuntimeErrorScopeHint(err error) string {
	parts := []string{errorTypeName(err), err.Error()}
	if inner := errors.Unwrap(err); inner != nil {
		parts = append(parts, errorTypeName(inner), inner.Error())
	}
	return "/" + strings.Join(parts, "/")
}

func errorTypeName(err error) string {
	return strings.TrimPrefix(fmt.Sprintf("%T", err), "*")
}

type runtimeErrorHandler struct {
	baseHandler
}

func (runtimeErrorHandler) Resolve(ctx context.Context, svc Services, c *MigrationConflict, rule ResolutionRule) (ResolutionResult, []*migration.Action, error) {
	switch rule.ActionReferenceName {
	case ActionManual.ReferenceName:
		// The operator resolved the underlying condition; the caller re-runs
		// the conflicted work.
		return NewResult(true, OutcomeOther), nil, nil

	case ActionSkip.ReferenceName:
		skipConflictedAction(c)
		return NewResult(true, OutcomeSkipConflictedChangeAction), nil, nil

	case ActionMultipleRetry.ReferenceName:
		return resolveMultipleRetry(c, rule), nil, nil

	default:
		return NewResult(false, OutcomeUnknownResolutionAction), nil, nil
	}
}

// resolveMultipleRetry evaluates the retry bound for a multiple-retry rule.
// While attempts remain, the result carries OutcomeScheduledForRetry and the
// Manager persists the schedule; once exhausted the conflict stays
// unresolved for the operator.
func resolveMultipleRetry(c *MigrationConflict, rule ResolutionRule) ResolutionResult {
	raw, ok := rule.DataField(DataKeyNumberOfRetries)
	if !ok {
		return NewResult(false, OutcomeOther).
			WithComment(fmt.Sprintf("rule %s is missing the %s data field", rule.RuleReferenceName, DataKeyNumberOfRetries))
	}

	if strings.EqualFold(raw, RetryInfinite) {
		return NewResult(false, OutcomeScheduledForRetry)
	}

	bound, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || bound < 0 {
		return NewResult(false, OutcomeOther).
			WithComment(fmt.Sprintf("invalid %s value %q: an integer or %q is expected", DataKeyNumberOfRetries, raw, RetryInfinite))
	}

	if c.RetryCount >= bound {
		return NewResult(false, OutcomeOther).
			WithComment(fmt.Sprintf("retry attempts exhausted after %d of %d", c.RetryCount, bound))
	}
	return NewResult(false, OutcomeScheduledForRetry)
}
