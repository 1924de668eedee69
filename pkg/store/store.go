// Package store defines the narrow graph-document datastore surface the
// engine consumes: document save/replace, edge save, and one-shot outbound
// subgraph traversal. Implementations live in subpackages.
package store

import "context"

// Named relation graphs and their backing edge collections.
const (
	GraphDocuments     = "documents"
	GraphDocumentTypes = "documentTypes"

	EdgeHasDocument = "hasDocument"
	EdgeHasModel    = "hasModel"
)

// EdgeCollectionFor maps a graph name to its edge collection.
func EdgeCollectionFor(graph string) string {
	if graph == GraphDocumentTypes {
		return EdgeHasModel
	}

	return EdgeHasDocument
}

// Meta identifies a stored document or edge. ID is the composite
// "Collection/key" form used for vertex references.
type Meta struct {
	ID  string `json:"_id"`
	Key string `json:"_key"`
	Rev string `json:"_rev"`
}

// Edge is a directed structural relation between two vertices. Data carries
// the attachment metadata (property, max, min).
type Edge struct {
	Key  string         `json:"_key"`
	From string         `json:"_from"`
	To   string         `json:"_to"`
	Data map[string]any `json:"data"`
}

// Store is the minimal required datastore surface. Vertices are schemaless
// maps; the engine stamps its own bookkeeping fields (_id, _key, _rev) onto
// them from the returned Meta.
type Store interface {
	SaveDocument(ctx context.Context, collection string, doc map[string]any) (Meta, error)
	ReplaceDocument(ctx context.Context, collection, key string, doc map[string]any) (Meta, error)
	RemoveDocument(ctx context.Context, collection, key string) error

	// DocumentByID fetches a single vertex by its composite "Collection/key" id.
	DocumentByID(ctx context.Context, id string) (map[string]any, error)

	// Documents scans a whole collection. Used by queries, not by the executor.
	Documents(ctx context.Context, collection string) ([]map[string]any, error)

	SaveEdge(ctx context.Context, edgeCollection string, data map[string]any, fromID, toID string) (Meta, error)
	RemoveEdge(ctx context.Context, edgeCollection, key string) error
	InEdges(ctx context.Context, edgeCollection, vertexID string) ([]Edge, error)
	OutEdges(ctx context.Context, edgeCollection, vertexID string) ([]Edge, error)

	// GraphEdges returns every edge reachable outbound from rootID over the
	// named graph, in one call. Multi-level graphs are assembled from this
	// single edge list, not by recursive hop-by-hop walking.
	GraphEdges(ctx context.Context, graph, rootID string) ([]Edge, error)

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
