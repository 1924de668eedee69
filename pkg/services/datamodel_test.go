package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"obpm/pkg/models"
	"obpm/pkg/services"
	"obpm/pkg/store"
	"obpm/pkg/store/memory"
	"obpm/pkg/tree"
)

func newDataModelService(s store.Store) *services.DataModelService {
	logger := testLogger()

	return services.NewDataModelService(s, tree.NewGraphReader(s, logger), logger)
}

func TestDataModelService_BuildModel(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := memory.NewStore()
	svc := newDataModelService(s)

	caseVertex, err := svc.CreateType(ctx, &models.ModelDocument{Type: models.TypeCase})
	require.NoError(t, err)
	require.NotEmpty(t, caseVertex["_key"])

	caseKey, _ := caseVertex["_key"].(string)

	thesisVertex, err := svc.CreateType(ctx, &models.ModelDocument{
		Type: "Thesis", Parent: caseKey, Property: "thesis", Max: 2, Min: 1,
	})
	require.NoError(t, err)
	require.NotEmpty(t, thesisVertex["_key"])

	modelTree, err := svc.ModelTree(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.TypeCase, modelTree.Root()["type"])

	attached, ok := modelTree.GetValue("thesis").([]any)
	require.True(t, ok)
	require.Len(t, attached, 1)

	vertex, ok := attached[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Thesis", vertex["type"])
	assert.Equal(t, 2, vertex[tree.MetaMax])
	assert.Equal(t, 1, vertex[tree.MetaMin])
}

func TestDataModelService_CreateType_Validation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc := newDataModelService(memory.NewStore())

	_, err := svc.CreateType(ctx, &models.ModelDocument{Type: "Thesis", Property: "thesis"})
	assert.ErrorIs(t, err, services.ErrParentRequired)

	_, err = svc.CreateType(ctx, &models.ModelDocument{Type: "Thesis", Parent: "p1"})
	assert.ErrorIs(t, err, services.ErrPropertyRequired)

	_, err = svc.CreateType(ctx, &models.ModelDocument{Type: "Thesis", Parent: "missing", Property: "thesis"})
	assert.ErrorIs(t, err, services.ErrInvalidParent)
	assert.True(t, services.IsModelValidation(err))
}

func TestDataModelService_CreateType_SingleCase(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc := newDataModelService(memory.NewStore())

	_, err := svc.CreateType(ctx, &models.ModelDocument{Type: models.TypeCase})
	require.NoError(t, err)

	_, err = svc.CreateType(ctx, &models.ModelDocument{Type: models.TypeCase})
	assert.ErrorIs(t, err, services.ErrDuplicateCase)
	assert.True(t, services.IsModelConflict(err))
}

func TestDataModelService_EditType(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := memory.NewStore()
	svc := newDataModelService(s)

	caseVertex, err := svc.CreateType(ctx, &models.ModelDocument{Type: models.TypeCase})
	require.NoError(t, err)

	caseKey, _ := caseVertex["_key"].(string)

	thesisVertex, err := svc.CreateType(ctx, &models.ModelDocument{
		Type: "Thesis", Parent: caseKey, Property: "thesis", Max: 1,
	})
	require.NoError(t, err)

	thesisKey, _ := thesisVertex["_key"].(string)

	// The Case root cannot be edited, neither directly nor by retyping.
	_, err = svc.EditType(ctx, caseKey, &models.ModelDocument{Type: models.TypeCase})
	assert.ErrorIs(t, err, services.ErrEditCase)

	_, err = svc.EditType(ctx, caseKey, &models.ModelDocument{
		Type: "Other", Parent: caseKey, Property: "other",
	})
	assert.ErrorIs(t, err, services.ErrEditCase)

	// Rewiring the property and cardinality replaces the structural edge.
	_, err = svc.EditType(ctx, thesisKey, &models.ModelDocument{
		Type: "Thesis", Parent: caseKey, Property: "theses", Max: 3,
	})
	require.NoError(t, err)

	modelTree, err := svc.ModelTree(ctx)
	require.NoError(t, err)
	assert.Nil(t, modelTree.GetValue("thesis"))

	attached, ok := modelTree.GetValue("theses").([]any)
	require.True(t, ok)
	require.Len(t, attached, 1)
}

func TestDataModelService_DeleteType_RemovesSubtree(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := memory.NewStore()
	svc := newDataModelService(s)

	caseVertex, err := svc.CreateType(ctx, &models.ModelDocument{Type: models.TypeCase})
	require.NoError(t, err)

	caseKey, _ := caseVertex["_key"].(string)

	thesisVertex, err := svc.CreateType(ctx, &models.ModelDocument{
		Type: "Thesis", Parent: caseKey, Property: "thesis", Max: 1,
	})
	require.NoError(t, err)

	thesisKey, _ := thesisVertex["_key"].(string)

	_, err = svc.CreateType(ctx, &models.ModelDocument{
		Type: "Review", Parent: thesisKey, Property: "reviews", Max: 3,
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteType(ctx, thesisKey))

	types, err := s.Documents(ctx, models.CollectionDocumentType)
	require.NoError(t, err)
	require.Len(t, types, 1)
	assert.Equal(t, models.TypeCase, types[0]["type"])

	modelTree, err := svc.ModelTree(ctx)
	require.NoError(t, err)
	assert.Nil(t, modelTree.GetValue("thesis"))
}

func TestDataModelService_DeleteType_NotFound(t *testing.T) {
	t.Parallel()

	svc := newDataModelService(memory.NewStore())

	err := svc.DeleteType(context.Background(), "missing")
	assert.ErrorIs(t, err, services.ErrTypeNotFound)
}
