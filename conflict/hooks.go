package conflict

// Hooks provides optional callbacks for observability around the conflict
// lifecycle. All hooks are optional; nil functions are safe no-ops.
type Hooks struct {
	// OnConflictRaised fires when a new conflict enters the engine.
	OnConflictRaised func(conflict *MigrationConflict)

	// OnRuleMatched fires when a rule's scope contains the conflict and the
	// handler is about to run.
	OnRuleMatched func(conflict *MigrationConflict, rule ResolutionRule)

	// OnResolved fires after a successful resolution.
	OnResolved func(conflict *MigrationConflict, result ResolutionResult)

	// OnUnresolved fires when a conflict is backlogged without resolution.
	OnUnresolved func(conflict *MigrationConflict, reason string)
}

func (h Hooks) raised(c *MigrationConflict) {
	if h.OnConflictRaised != nil {
		h.OnConflictRaised(c)
	}
}

func (h Hooks) matched(c *MigrationConflict, r ResolutionRule) {
	if h.OnRuleMatched != nil {
		h.OnRuleMatched(c, r)
	}
}

func (h Hooks) resolved(c *MigrationConflict, res ResolutionResult) {
	if h.OnResolved != nil {
		h.OnResolved(c, res)
	}
}

func (h Hooks) unresolved(c *MigrationConflict, reason string) {
	if h.OnUnresolved != nil {
		h.OnUnresolved(c, reason)
	}
}
