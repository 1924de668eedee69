package tree

import (
	"context"
	"errors"
	"log/slog"

	"obpm/pkg/models"
	"obpm/pkg/store"
)

var (
	// ErrCaseNotFound indicates the given id did not resolve to an existing Case vertex.
	ErrCaseNotFound = errors.New("case not found")

	// ErrModelNotFound indicates no Case root exists in the data-model graph.
	ErrModelNotFound = errors.New("data model not found")
)

// IsCaseNotFound checks if an error indicates an unresolvable case id.
func IsCaseNotFound(err error) bool {
	return errors.Is(err, ErrCaseNotFound)
}

// GraphReader materializes document graphs from the store into ObjectTrees.
// It is request-scoped plumbing: construct one per store connection and pass
// it explicitly, there is no cached global instance.
type GraphReader struct {
	store  store.Store
	logger *slog.Logger
}

func NewGraphReader(s store.Store, logger *slog.Logger) *GraphReader {
	return &GraphReader{
		store:  s,
		logger: logger.With("module", "tree"),
	}
}

// CaseTree loads the document graph of the case with the given key.
func (r *GraphReader) CaseTree(ctx context.Context, caseKey string) (*ObjectTree, error) {
	rootID := store.CompositeID(models.CollectionDocument, caseKey)

	tree, err := r.buildTree(ctx, store.GraphDocuments, rootID)
	if err != nil {
		if store.IsDocumentNotFound(err) {
			return nil, ErrCaseNotFound
		}

		return nil, err
	}

	return tree, nil
}

// ModelTree loads the global data-model (DocumentType) graph.
func (r *GraphReader) ModelTree(ctx context.Context) (*ObjectTree, error) {
	types, err := r.store.Documents(ctx, models.CollectionDocumentType)
	if err != nil {
		return nil, err
	}

	for _, vertex := range types {
		if typeOf(vertex) != models.TypeCase {
			continue
		}

		rootID, _ := vertex["_id"].(string)

		return r.buildTree(ctx, store.GraphDocumentTypes, rootID)
	}

	return nil, ErrModelNotFound
}

// buildTree issues one outbound traversal from rootID, resolves every edge
// endpoint exactly once, and attaches each child under its edge property:
// scalar when the edge caps the property at one, array-valued otherwise.
func (r *GraphReader) buildTree(ctx context.Context, graph, rootID string) (*ObjectTree, error) {
	edges, err := r.store.GraphEdges(ctx, graph, rootID)
	if err != nil {
		return nil, err
	}

	vertices := make(map[string]map[string]any)

	resolve := func(id string) (map[string]any, error) {
		if vertex, ok := vertices[id]; ok {
			return vertex, nil
		}

		vertex, err := r.store.DocumentByID(ctx, id)
		if err != nil {
			return nil, err
		}

		vertices[id] = vertex

		return vertex, nil
	}

	if _, err := resolve(rootID); err != nil {
		return nil, err
	}

	for _, edge := range edges {
		parent, err := resolve(edge.From)
		if err != nil {
			return nil, err
		}

		child, err := resolve(edge.To)
		if err != nil {
			return nil, err
		}

		attach(parent, child, edge)
	}

	var root map[string]any

	for _, vertex := range vertices {
		if typeOf(vertex) == models.TypeCase {
			root = vertex

			break
		}
	}

	if root == nil {
		r.logger.Warn("no Case vertex in traversal result", "graph", graph, "root", rootID)

		return nil, ErrCaseNotFound
	}

	return NewObjectTree(root, vertices), nil
}

// attach wires child under parent[property]. A max of one yields a scalar
// property; absent or greater caps collect children into an array.
func attach(parent, child map[string]any, edge store.Edge) {
	property, _ := edge.Data["property"].(string)
	if property == "" {
		return
	}

	if min, ok := intValue(edge.Data["min"]); ok {
		child[MetaMin] = min
	}

	max, hasMax := intValue(edge.Data["max"])
	if hasMax {
		child[MetaMax] = max
	}

	if hasMax && max == 1 {
		parent[property] = child

		return
	}

	children, _ := parent[property].([]any)
	parent[property] = append(children, child)
}

func typeOf(vertex map[string]any) string {
	t, _ := vertex["type"].(string)

	return t
}

// intValue normalizes the numeric forms cardinality values take after JSON
// round-trips.
func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
