// Package models defines the core domain models of the case-management engine.
package models

// Collection names in the backing graph store.
const (
	CollectionDocument     = "Document"
	CollectionDocumentType = "DocumentType"
	CollectionAction       = "Action"
	CollectionRecord       = "Record"
	CollectionUser         = "User"
)

// TypeCase is the distinguished document type marking the root of a case graph.
const TypeCase = "Case"

// StateCreated is the initial state of a freshly created Case document.
const StateCreated = "created"

// Document is one persisted record inside a case graph. State is a free-form
// label; each document type defines its state vocabulary implicitly through
// the actions that reference it.
type Document struct {
	ID    string         `json:"_id,omitempty"`
	Key   string         `json:"_key,omitempty"`
	Rev   string         `json:"_rev,omitempty"`
	Type  string         `json:"type"`
	State string         `json:"state"`
	Data  map[string]any `json:"data"`
}

// ModelDocument is the payload for data-model (DocumentType) modeling
// operations. Only the Case type may omit parent and property.
type ModelDocument struct {
	Type     string `json:"type"     validate:"required"`
	Parent   string `json:"parent,omitempty"`
	Property string `json:"property,omitempty"`
	Max      int    `json:"max,omitempty"`
	Min      int    `json:"min,omitempty"`
}
