package conflict

import (
	"fmt"

	"github.com/google/uuid"
)

// Registry is the explicit catalog of conflict types for one migration
// source. It is populated at process start with direct RegisterType calls and
// treated as immutable afterwards; there is no runtime type scanning.
type Registry struct {
	types []*Type
	byRef map[uuid.UUID]*Type
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byRef: make(map[uuid.UUID]*Type)}
}

// NewDefaultRegistry creates a registry pre-populated with the toolkit's
// built-in conflict types. Adapters register their own types on top.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	// Registration of a built-in type cannot fail on a fresh registry.
	for _, t := range []*Type{
		NewRuntimeErrorConflictType(),
		NewChainOnConflictType(),
		NewCyclicLinkConflictType(),
		NewUnhandledChangeActionConflictType(),
		NewInvalidFieldValueConflictType(),
	} {
		if err := r.RegisterType(t); err != nil {
			panic(err)
		}
	}
	return r
}

// RegisterType adds a conflict type to the registry. Registering a nil or
// incomplete type, or the same reference name twice, is an error.
func (r *Registry) RegisterType(t *Type) error {
	if t == nil {
		return fmt.Errorf("conflict type is nil")
	}
	if t.ReferenceName == uuid.Nil {
		return fmt.Errorf("conflict type %q has no reference name", t.FriendlyName)
	}
	if t.Handler == nil {
		return fmt.Errorf("conflict type %q has no handler", t.FriendlyName)
	}
	if t.Interpreter == nil {
		return fmt.Errorf("conflict type %q has no scope interpreter", t.FriendlyName)
	}
	if _, exists := r.byRef[t.ReferenceName]; exists {
		return fmt.Errorf("conflict type %s is already registered", t.ReferenceName)
	}
	r.types = append(r.types, t)
	r.byRef[t.ReferenceName] = t
	return nil
}

// Lookup returns the type registered under ref.
func (r *Registry) Lookup(ref uuid.UUID) (*Type, bool) {
	t, ok := r.byRef[ref]
	return t, ok
}

// Types returns the registered types in registration order.
func (r *Registry) Types() []*Type {
	out := make([]*Type, len(r.types))
	copy(out, r.types)
	return out
}
