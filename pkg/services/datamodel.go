package services

import (
	"context"
	"fmt"
	"log/slog"

	"obpm/pkg/models"
	"obpm/pkg/store"
	"obpm/pkg/tree"
)

// DataModelService maintains the type-level graph: DocumentType vertices
// connected by hasModel edges carrying the attachment property and
// cardinality. The execution engine reads this graph to resolve create-slots.
type DataModelService struct {
	store  store.Store
	reader *tree.GraphReader
	logger *slog.Logger
}

func NewDataModelService(s store.Store, reader *tree.GraphReader, logger *slog.Logger) *DataModelService {
	return &DataModelService{
		store:  s,
		reader: reader,
		logger: logger.With("module", "datamodel_service"),
	}
}

// ModelTree materializes the full data-model graph.
func (s *DataModelService) ModelTree(ctx context.Context) (*tree.ObjectTree, error) {
	return s.reader.ModelTree(ctx)
}

// CreateType adds a DocumentType vertex. Non-Case types are wired to their
// parent with a hasModel edge carrying property and cardinality; only one
// Case type may exist.
func (s *DataModelService) CreateType(ctx context.Context, model *models.ModelDocument) (map[string]any, error) {
	if err := s.validateModel(model); err != nil {
		return nil, err
	}

	if model.Type == models.TypeCase {
		exists, err := s.caseTypeExists(ctx)
		if err != nil {
			return nil, err
		}

		if exists {
			return nil, &ServiceError{Op: "CreateType", Err: ErrDuplicateCase}
		}
	}

	var parent map[string]any

	if model.Type != models.TypeCase {
		var err error

		parent, err = s.typeByKey(ctx, model.Parent)
		if err != nil {
			return nil, &ServiceError{Op: "CreateType", Message: "invalid parent id", Err: ErrInvalidParent}
		}
	}

	vertex := map[string]any{"type": model.Type}

	meta, err := s.store.SaveDocument(ctx, models.CollectionDocumentType, vertex)
	if err != nil {
		return nil, err
	}

	vertex["_id"] = meta.ID
	vertex["_key"] = meta.Key

	if model.Type == models.TypeCase {
		return vertex, nil
	}

	parentID, _ := parent["_id"].(string)
	if err := s.connectTypes(ctx, parentID, meta.ID, model); err != nil {
		return nil, err
	}

	return vertex, nil
}

// EditType updates a non-Case DocumentType and rewires its hasModel in-edge
// to the (possibly new) parent with the new property and cardinality.
func (s *DataModelService) EditType(ctx context.Context, key string, model *models.ModelDocument) (map[string]any, error) {
	if err := s.validateModel(model); err != nil {
		return nil, err
	}

	if model.Type == models.TypeCase {
		return nil, &ServiceError{Op: "EditType", Err: ErrEditCase}
	}

	vertex, err := s.typeByKey(ctx, key)
	if err != nil {
		return nil, err
	}

	if typeName, _ := vertex["type"].(string); typeName == models.TypeCase {
		return nil, &ServiceError{Op: "EditType", Err: ErrEditCase}
	}

	parent, err := s.typeByKey(ctx, model.Parent)
	if err != nil {
		return nil, &ServiceError{Op: "EditType", Message: "invalid parent id", Err: ErrInvalidParent}
	}

	vertex["type"] = model.Type

	vertexID, _ := vertex["_id"].(string)
	if _, err := s.store.ReplaceDocument(ctx, models.CollectionDocumentType, key, vertex); err != nil {
		return nil, err
	}

	inEdges, err := s.store.InEdges(ctx, store.EdgeHasModel, vertexID)
	if err != nil {
		return nil, err
	}

	for _, edge := range inEdges {
		if err := s.store.RemoveEdge(ctx, store.EdgeHasModel, edge.Key); err != nil {
			return nil, err
		}
	}

	parentID, _ := parent["_id"].(string)
	if err := s.connectTypes(ctx, parentID, vertexID, model); err != nil {
		return nil, err
	}

	return vertex, nil
}

// DeleteType removes a DocumentType together with its whole subtree and the
// edge connecting it to its parent.
func (s *DataModelService) DeleteType(ctx context.Context, key string) error {
	vertex, err := s.typeByKey(ctx, key)
	if err != nil {
		return err
	}

	vertexID, _ := vertex["_id"].(string)

	outEdges, err := s.store.OutEdges(ctx, store.EdgeHasModel, vertexID)
	if err != nil {
		return err
	}

	for _, edge := range outEdges {
		if err := s.DeleteType(ctx, store.KeyFromID(edge.To)); err != nil {
			return err
		}
	}

	inEdges, err := s.store.InEdges(ctx, store.EdgeHasModel, vertexID)
	if err != nil {
		return err
	}

	for _, edge := range inEdges {
		if err := s.store.RemoveEdge(ctx, store.EdgeHasModel, edge.Key); err != nil {
			return err
		}
	}

	return s.store.RemoveDocument(ctx, models.CollectionDocumentType, key)
}

func (s *DataModelService) validateModel(model *models.ModelDocument) error {
	if model.Type == models.TypeCase {
		return nil
	}

	if model.Parent == "" {
		return &ServiceError{Op: "validateModel", Err: ErrParentRequired}
	}

	if model.Property == "" {
		return &ServiceError{Op: "validateModel", Err: ErrPropertyRequired}
	}

	return nil
}

func (s *DataModelService) connectTypes(ctx context.Context, parentID, childID string, model *models.ModelDocument) error {
	data := map[string]any{"property": model.Property}
	if model.Max > 0 {
		data["max"] = model.Max
	}

	if model.Min > 0 {
		data["min"] = model.Min
	}

	_, err := s.store.SaveEdge(ctx, store.EdgeHasModel, data, parentID, childID)

	return err
}

func (s *DataModelService) caseTypeExists(ctx context.Context) (bool, error) {
	types, err := s.store.Documents(ctx, models.CollectionDocumentType)
	if err != nil {
		return false, err
	}

	for _, vertex := range types {
		if typeName, _ := vertex["type"].(string); typeName == models.TypeCase {
			return true, nil
		}
	}

	return false, nil
}

func (s *DataModelService) typeByKey(ctx context.Context, key string) (map[string]any, error) {
	vertex, err := s.store.DocumentByID(ctx, store.CompositeID(models.CollectionDocumentType, key))
	if err != nil {
		if store.IsDocumentNotFound(err) {
			return nil, &ServiceError{Op: "typeByKey", Message: fmt.Sprintf("type %s not found", key), Err: ErrTypeNotFound}
		}

		return nil, err
	}

	return vertex, nil
}
