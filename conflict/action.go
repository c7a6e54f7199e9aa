package conflict

import "github.com/google/uuid"

// Data field keys used by the built-in resolution actions.
const (
	DataKeyNumberOfRetries = "NumberOfRetries"
	DataKeyUpdatedConfigID = "UpdatedConfigurationId"
	DataKeyMapFrom         = "MapFrom"
	DataKeyMapTo           = "MapTo"

	// RetryInfinite is the literal accepted by the multiple-retry action to
	// opt out of the retry bound.
	RetryInfinite = "Infinite"
)

// ResolutionAction is an immutable catalog entry describing a named
// resolution action and the ordered data-field keys a caller must supply.
// The actual effect lives in the conflict type's handler.
type ResolutionAction struct {
	ReferenceName uuid.UUID
	FriendlyName  string
	DataKeys      []string
}

// Built-in resolution actions shared across conflict types. Reference names
// are stable identities persisted in rule records; never reuse or change
// them.
var (
	// ActionManual resolves a conflict by leaving it for the operator: the
	// caller is expected to re-run the conflicted work.
	ActionManual = ResolutionAction{
		ReferenceName: uuid.MustParse("8a1604bc-9836-4f27-a0c7-6f1efb58dae5"),
		FriendlyName:  "Resolve the conflict manually and retry",
	}

	// ActionAutomatic accepts the platform's automatic resolution.
	ActionAutomatic = ResolutionAction{
		ReferenceName: uuid.MustParse("3e2d1b7e-8b41-4d58-9e42-9ad0d2e3f1b6"),
		FriendlyName:  "Resolve the conflict automatically",
	}

	// ActionSkip skips the conflicted change action, marking the action and
	// its change group as skipped.
	ActionSkip = ResolutionAction{
		ReferenceName: uuid.MustParse("c5d1c342-4a5a-4b0f-9b1f-1c2b8a36f60a"),
		FriendlyName:  "Skip the conflicted change action",
	}

	// ActionMultipleRetry schedules the conflicted work for repeated retry,
	// bounded by NumberOfRetries or the literal "Infinite".
	ActionMultipleRetry = ResolutionAction{
		ReferenceName: uuid.MustParse("e3b3c61a-94b1-4d79-96b6-0c4f2e1a7f90"),
		FriendlyName:  "Retry the conflicted change action multiple times",
		DataKeys:      []string{DataKeyNumberOfRetries},
	}

	// ActionUpdatedConfiguration records that the session configuration was
	// updated to resolve the conflict. Rules carrying it are single-shot.
	ActionUpdatedConfiguration = ResolutionAction{
		ReferenceName: uuid.MustParse("f2c3a4b5-1d2e-4f60-8a7b-3c4d5e6f7a80"),
		FriendlyName:  "Resolve the conflict by updating the configuration",
		DataKeys:      []string{DataKeyUpdatedConfigID},
	}

	// ActionDropLink drops the offending link from the source side of a
	// cyclic link reference.
	ActionDropLink = ResolutionAction{
		ReferenceName: uuid.MustParse("6d0d2b5a-7c3e-4f81-b520-1a9e8c7d6f42"),
		FriendlyName:  "Resolve the conflict by dropping the link from the source",
	}

	// ActionMapChangeAction remaps an unhandled change-action bitmask onto
	// one the target endpoint understands.
	ActionMapChangeAction = ResolutionAction{
		ReferenceName: uuid.MustParse("9b8f3e2d-5c6a-4d71-8e90-2f1a3b4c5d6e"),
		FriendlyName:  "Resolve the conflict by mapping the change action",
		DataKeys:      []string{DataKeyMapFrom, DataKeyMapTo},
	}

	// ActionMapFieldValue remaps an invalid field value onto a value the
	// target endpoint accepts.
	ActionMapFieldValue = ResolutionAction{
		ReferenceName: uuid.MustParse("1a2b3c4d-5e6f-4a70-b881-9c0d1e2f3a4b"),
		FriendlyName:  "Resolve the conflict by mapping the field value",
		DataKeys:      []string{DataKeyMapFrom, DataKeyMapTo},
	}
)

// singleShotActions are actions whose rules must not be re-applied: their
// persisted rules are deprecated immediately after first use so the pipeline
// can never loop on them.
func isSingleShotAction(actionRef uuid.UUID) bool {
	return actionRef == ActionManual.ReferenceName ||
		actionRef == ActionUpdatedConfiguration.ReferenceName
}
