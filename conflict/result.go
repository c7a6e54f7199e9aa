package conflict

// ResolutionOutcome classifies what a resolution attempt did.
type ResolutionOutcome int

const (
	// OutcomeOther covers resolutions with no more specific classification,
	// e.g. manual resolution where the caller re-runs the work.
	OutcomeOther ResolutionOutcome = iota

	// OutcomeUpdatedConflictedChangeAction indicates the conflicted change
	// action was mutated in place.
	OutcomeUpdatedConflictedChangeAction

	// OutcomeSkipConflictedChangeAction indicates the conflicted change
	// action (and its group) was marked skipped.
	OutcomeSkipConflictedChangeAction

	// OutcomeUnknownResolutionAction indicates the matched rule referenced an
	// action the handler does not implement.
	OutcomeUnknownResolutionAction

	// OutcomeUpdatedConflictedLinkChangeAction indicates the conflicted link
	// change action was mutated in place.
	OutcomeUpdatedConflictedLinkChangeAction

	// OutcomeUpdatedConfiguration indicates the session configuration was
	// changed; the work is re-evaluated under the new configuration.
	OutcomeUpdatedConfiguration

	// OutcomeScheduledForRetry indicates the conflicted work was scheduled
	// for re-evaluation on a later session trip.
	OutcomeScheduledForRetry

	// OutcomeAutoResolve indicates the platform resolved the conflict
	// automatically.
	OutcomeAutoResolve

	// OutcomeChangeMappingInConfiguration indicates a value mapping was
	// recorded for subsequent migrations.
	OutcomeChangeMappingInConfiguration

	// OutcomeChainUnblocked indicates a chain-on-conflict conflict was
	// resolved because its parent conflict resolved.
	OutcomeChainUnblocked
)

func (o ResolutionOutcome) String() string {
	switch o {
	case OutcomeOther:
		return "Other"
	case OutcomeUpdatedConflictedChangeAction:
		return "UpdatedConflictedChangeAction"
	case OutcomeSkipConflictedChangeAction:
		return "SkipConflictedChangeAction"
	case OutcomeUnknownResolutionAction:
		return "UnknownResolutionAction"
	case OutcomeUpdatedConflictedLinkChangeAction:
		return "UpdatedConflictedLinkChangeAction"
	case OutcomeUpdatedConfiguration:
		return "UpdatedConfiguration"
	case OutcomeScheduledForRetry:
		return "ScheduledForRetry"
	case OutcomeAutoResolve:
		return "AutoResolve"
	case OutcomeChangeMappingInConfiguration:
		return "ChangeMappingInConfiguration"
	case OutcomeChainUnblocked:
		return "ChainUnblocked"
	default:
		return "Unknown"
	}
}

// ResolutionResult is the outcome value of one resolution attempt. It is not
// persisted as its own entity; its effects land on the conflict's status.
type ResolutionResult struct {
	Resolved bool
	Outcome  ResolutionOutcome
	Comment  string

	// ConflictInternalID carries the backlog id of the conflict the attempt
	// operated on, for callers that need to follow up.
	ConflictInternalID int64
}

// NewResult creates a result with the given resolved flag and outcome.
func NewResult(resolved bool, outcome ResolutionOutcome) ResolutionResult {
	return ResolutionResult{Resolved: resolved, Outcome: outcome}
}

// WithComment returns a copy of the result carrying a comment.
func (r ResolutionResult) WithComment(comment string) ResolutionResult {
	r.Comment = comment
	return r
}
