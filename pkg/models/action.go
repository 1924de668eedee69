package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Action is a named, data-declared transition over one or more document
// slots. Actions are operator-defined records, not compiled types; the
// executor interprets them at runtime.
type Action struct {
	ID             string                        `json:"_id,omitempty"`
	Key            string                        `json:"_key,omitempty"`
	Name           string                        `json:"name"           validate:"required"`
	Roles          []string                      `json:"roles"          validate:"required"`
	CreatesNewCase bool                          `json:"createsNewCase,omitempty"`
	Documents      map[string]ActionDocumentSpec `json:"documents"      validate:"required"`
}

// ActionDocumentSpec describes one document slot of an action. Exactly one of
// Path (create a new child at that model path) or State (require an existing
// document in one of these states) must be set.
type ActionDocumentSpec struct {
	Type     string         `json:"type" validate:"required"`
	Path     string         `json:"path,omitempty"`
	State    StateSet       `json:"state,omitempty"`
	EndState StateSet       `json:"endState,omitempty"`
	Schema   map[string]any `json:"schema,omitempty"`
}

// StateSet is a list of state labels that accepts both a bare string and an
// array of strings on the wire.
type StateSet []string

func (s *StateSet) UnmarshalJSON(b []byte) error {
	var single string
	if err := json.Unmarshal(b, &single); err == nil {
		*s = StateSet{single}

		return nil
	}

	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return err
	}

	*s = StateSet(many)

	return nil
}

// Contains reports whether state is a member of the set.
func (s StateSet) Contains(state string) bool {
	for _, candidate := range s {
		if candidate == state {
			return true
		}
	}

	return false
}

// First returns the first state of the set, or "" when empty.
func (s StateSet) First() string {
	if len(s) == 0 {
		return ""
	}

	return s[0]
}

var (
	ErrActionNameRequired     = errors.New("action name is required")
	ErrActionRolesRequired    = errors.New("action roles are required")
	ErrNoDocumentSlots        = errors.New("action must declare at least one document slot")
	ErrSlotTypeRequired       = errors.New("document slot type is required")
	ErrSlotPathStateExclusive = errors.New("document slot must set exactly one of path or state")
	ErrSlotEndStateRequired   = errors.New("document slot requires an end state")
)

// Validate checks the structural invariants of an action definition. It is
// called when a definition is stored and again before every execution, so a
// malformed definition never reaches the persistence steps.
func (a *Action) Validate() error {
	if a.Name == "" {
		return ErrActionNameRequired
	}

	if len(a.Roles) == 0 {
		return ErrActionRolesRequired
	}

	if len(a.Documents) == 0 {
		return ErrNoDocumentSlots
	}

	for name, spec := range a.Documents {
		if err := spec.validate(); err != nil {
			return fmt.Errorf("document slot %q: %w", name, err)
		}
	}

	return nil
}

func (s ActionDocumentSpec) validate() error {
	if s.Type == "" {
		return ErrSlotTypeRequired
	}

	hasPath := s.Path != ""
	hasState := len(s.State) > 0

	if hasPath == hasState {
		return ErrSlotPathStateExclusive
	}

	// endState may fall back to the first entry of state.
	if s.EndState.First() == "" && s.State.First() == "" {
		return ErrSlotEndStateRequired
	}

	return nil
}

// RequiresExisting reports whether the slot references an existing document
// (state-gated) rather than creating a new one at a model path.
func (s ActionDocumentSpec) RequiresExisting() bool {
	return len(s.State) > 0
}

// ResolvedEndState returns the state a slot document transitions into:
// endState, or the first entry of state as fallback.
func (s ActionDocumentSpec) ResolvedEndState() string {
	if end := s.EndState.First(); end != "" {
		return end
	}

	return s.State.First()
}
