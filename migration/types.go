// Package migration contains the shared migration work model used across the
// conflict engine: change groups, per-item migration actions, link change
// actions, and the change-action bitmask.
package migration

import (
	"fmt"
	"strconv"
	"strings"
)

// ChangeAction is a bitmask of version-control change kinds. A single
// migration action usually carries a combination, e.g. Edit|Rename.
type ChangeAction uint32

// None is the zero ChangeAction: no change kinds set.
const None ChangeAction = 0

const (
	Add ChangeAction = 1 << iota
	Edit
	Rename
	Delete
	Undelete
	Branch
	Merge
	Label
	Encoding
)

var changeActionNames = []struct {
	bit  ChangeAction
	name string
}{
	{Add, "Add"},
	{Edit, "Edit"},
	{Rename, "Rename"},
	{Delete, "Delete"},
	{Undelete, "Undelete"},
	{Branch, "Branch"},
	{Merge, "Merge"},
	{Label, "Label"},
	{Encoding, "Encoding"},
}

// String renders the bitmask as a comma-delimited list of symbolic names.
func (c ChangeAction) String() string {
	if c == None {
		return "None"
	}
	var parts []string
	for _, entry := range changeActionNames {
		if c&entry.bit != 0 {
			parts = append(parts, entry.name)
		}
	}
	if len(parts) == 0 {
		return fmt.Sprintf("ChangeAction(%d)", uint32(c))
	}
	return strings.Join(parts, ",")
}

// Has reports whether all bits in mask are present.
func (c ChangeAction) Has(mask ChangeAction) bool {
	return c&mask == mask
}

// ParseChangeAction parses a comma-delimited list of symbolic change-action
// names into a bitmask. Only symbolic names are accepted: a token that parses
// as an integer is rejected so raw bit patterns cannot sneak past the
// symmetry checks that operate on named actions.
func ParseChangeAction(s string) (ChangeAction, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return None, fmt.Errorf("empty change action string")
	}
	if strings.EqualFold(s, "None") {
		return None, nil
	}

	var result ChangeAction
	for _, token := range strings.Split(s, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			return None, fmt.Errorf("empty token in change action string %q", s)
		}
		if _, err := strconv.Atoi(token); err == nil {
			return None, fmt.Errorf("numeric change action token %q is not allowed, use symbolic names", token)
		}
		bit, ok := lookupChangeAction(token)
		if !ok {
			return None, fmt.Errorf("unknown change action %q", token)
		}
		result |= bit
	}
	return result, nil
}

func lookupChangeAction(name string) (ChangeAction, bool) {
	for _, entry := range changeActionNames {
		if strings.EqualFold(entry.name, name) {
			return entry.bit, true
		}
	}
	return None, false
}

// ActionState describes the lifecycle of a single migration action.
type ActionState int

const (
	ActionPending ActionState = iota
	ActionComplete
	ActionSkipped
	ActionFailed
)

func (s ActionState) String() string {
	switch s {
	case ActionPending:
		return "Pending"
	case ActionComplete:
		return "Complete"
	case ActionSkipped:
		return "Skipped"
	case ActionFailed:
		return "Failed"
	default:
		return fmt.Sprintf("ActionState(%d)", int(s))
	}
}

// GroupStatus describes the lifecycle of a change group.
type GroupStatus int

const (
	GroupPending GroupStatus = iota
	GroupInProgress
	GroupComplete
	GroupSkipped
	GroupBlocked
)

func (s GroupStatus) String() string {
	switch s {
	case GroupPending:
		return "Pending"
	case GroupInProgress:
		return "InProgress"
	case GroupComplete:
		return "Complete"
	case GroupSkipped:
		return "Skipped"
	case GroupBlocked:
		return "Blocked"
	default:
		return fmt.Sprintf("GroupStatus(%d)", int(s))
	}
}

// LinkStatus describes the lifecycle of a link change action.
type LinkStatus int

const (
	LinkPending LinkStatus = iota
	LinkComplete
	LinkSkipped
	LinkBlocked
)

func (s LinkStatus) String() string {
	switch s {
	case LinkPending:
		return "Pending"
	case LinkComplete:
		return "Complete"
	case LinkSkipped:
		return "Skipped"
	case LinkBlocked:
		return "Blocked"
	default:
		return fmt.Sprintf("LinkStatus(%d)", int(s))
	}
}

// Action is one per-item unit of migration work inside a change group. The
// conflict engine only reads and mutates State; scheduling belongs to the
// migration pipeline.
type Action struct {
	ID          int64
	GroupID     int64
	Path        string
	FromPath    string
	Change      ChangeAction
	ItemVersion string
	State       ActionState
}

// ChangeGroup is the atomic unit of migrated work: a set of actions that is
// migrated (or skipped, or blocked) together.
type ChangeGroup struct {
	ID           int64
	SessionID    string
	SourceID     string
	Name         string
	Status       GroupStatus
	Actions      []*Action
	ExecutionOrd int64
}

// Skip marks the group and all of its pending actions as skipped.
func (g *ChangeGroup) Skip() {
	g.Status = GroupSkipped
	for _, a := range g.Actions {
		if a.State == ActionPending {
			a.State = ActionSkipped
		}
	}
}

// LinkChangeAction is one work-item link operation (add or delete of a typed
// link between two items).
type LinkChangeAction struct {
	ID         int64
	SessionID  string
	SourceItem string
	TargetItem string
	LinkType   string
	IsAdd      bool
	Status     LinkStatus
}
