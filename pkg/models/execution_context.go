package models

// ExecutionContext is the caller's payload for one action invocation: which
// action to run, against which case, and per-slot document data. Together
// with Action it forms the engine's wire protocol.
type ExecutionContext struct {
	ActionID  string                     `json:"actionId" validate:"required"`
	CaseID    string                     `json:"caseId,omitempty"`
	Documents map[string]ContextDocument `json:"documents"`
}

// ContextDocument carries the caller-submitted payload for one document slot.
// ID is required when the action expects an existing document for the slot.
type ContextDocument struct {
	ID   string         `json:"id,omitempty"`
	Data map[string]any `json:"data,omitempty"`
}
