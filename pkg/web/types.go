// Package web provides HTTP request and response types for the case API.
package web

import "obpm/pkg/models"

// ExecuteRequest represents the request body for executing an action.
type ExecuteRequest struct {
	ActionID  string                    `json:"action"              validate:"required"`
	CaseID    string                    `json:"case,omitempty"`
	Documents map[string]DocumentInput  `json:"documents,omitempty"`
}

// DocumentInput carries one document slot of an execution request: the key of
// an existing document and/or the data to merge into it.
type DocumentInput struct {
	ID   string         `json:"id,omitempty"`
	Data map[string]any `json:"data,omitempty"`
}

// ExecutionContext converts the request into the executor's input form.
func (r *ExecuteRequest) ExecutionContext() *models.ExecutionContext {
	execCtx := &models.ExecutionContext{
		ActionID:  r.ActionID,
		CaseID:    r.CaseID,
		Documents: make(map[string]models.ContextDocument, len(r.Documents)),
	}

	for name, doc := range r.Documents {
		execCtx.Documents[name] = models.ContextDocument{ID: doc.ID, Data: doc.Data}
	}

	return execCtx
}

// CreateActionRequest represents the request body for creating a new action
// definition.
type CreateActionRequest struct {
	Name           string                               `json:"name"           validate:"required,min=1"`
	Roles          []string                             `json:"roles"          validate:"required,min=1"`
	CreatesNewCase bool                                 `json:"createsNewCase"`
	Documents      map[string]models.ActionDocumentSpec `json:"documents"`
}

// Action converts the request into an action definition.
func (r *CreateActionRequest) Action() *models.Action {
	return &models.Action{
		Name:           r.Name,
		Roles:          r.Roles,
		CreatesNewCase: r.CreatesNewCase,
		Documents:      r.Documents,
	}
}

// ModelTypeRequest represents the request body for creating or editing a
// document type in the data model.
type ModelTypeRequest struct {
	Type     string `json:"type"               validate:"required,min=1"`
	Parent   string `json:"parent,omitempty"`
	Property string `json:"property,omitempty"`
	Max      int    `json:"max,omitempty"      validate:"omitempty,min=0"`
	Min      int    `json:"min,omitempty"      validate:"omitempty,min=0"`
}

// ModelDocument converts the request into a model definition.
func (r *ModelTypeRequest) ModelDocument() *models.ModelDocument {
	return &models.ModelDocument{
		Type:     r.Type,
		Parent:   r.Parent,
		Property: r.Property,
		Max:      r.Max,
		Min:      r.Min,
	}
}

// ExecutionResponse wraps the stripped projections of every document the
// execution mutated.
type ExecutionResponse struct {
	Documents []*models.Document `json:"documents"`
}
