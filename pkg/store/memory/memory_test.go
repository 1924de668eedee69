package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"obpm/pkg/store"
)

func TestStore_SaveAndFetchDocument(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := NewStore()

	meta, err := s.SaveDocument(ctx, "Document", map[string]any{"type": "Thesis", "data": map[string]any{"title": "T"}})
	require.NoError(t, err)
	assert.Equal(t, "Document/"+meta.Key, meta.ID)
	assert.NotEmpty(t, meta.Rev)

	body, err := s.DocumentByID(ctx, meta.ID)
	require.NoError(t, err)
	assert.Equal(t, "Thesis", body["type"])
	assert.Equal(t, meta.ID, body["_id"])
	assert.Equal(t, meta.Key, body["_key"])
}

func TestStore_ReturnedBodiesAreIsolated(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := NewStore()

	meta, err := s.SaveDocument(ctx, "Document", map[string]any{"data": map[string]any{"title": "T"}})
	require.NoError(t, err)

	body, err := s.DocumentByID(ctx, meta.ID)
	require.NoError(t, err)

	data, ok := body["data"].(map[string]any)
	require.True(t, ok)
	data["title"] = "mutated"

	fresh, err := s.DocumentByID(ctx, meta.ID)
	require.NoError(t, err)

	freshData, ok := fresh["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "T", freshData["title"])
}

func TestStore_ReplaceDocument(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := NewStore()

	meta, err := s.SaveDocument(ctx, "Document", map[string]any{"state": "created"})
	require.NoError(t, err)

	replaced, err := s.ReplaceDocument(ctx, "Document", meta.Key, map[string]any{"state": "assigned"})
	require.NoError(t, err)
	assert.Equal(t, meta.ID, replaced.ID)
	assert.NotEqual(t, meta.Rev, replaced.Rev)

	body, err := s.DocumentByID(ctx, meta.ID)
	require.NoError(t, err)
	assert.Equal(t, "assigned", body["state"])
}

func TestStore_ReplaceDocument_NotFound(t *testing.T) {
	t.Parallel()

	s := NewStore()

	_, err := s.ReplaceDocument(context.Background(), "Document", "missing", map[string]any{})
	assert.True(t, store.IsDocumentNotFound(err))
}

func TestStore_RemoveDocument(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := NewStore()

	meta, err := s.SaveDocument(ctx, "Document", map[string]any{})
	require.NoError(t, err)

	require.NoError(t, s.RemoveDocument(ctx, "Document", meta.Key))

	_, err = s.DocumentByID(ctx, meta.ID)
	assert.True(t, store.IsDocumentNotFound(err))

	assert.True(t, store.IsDocumentNotFound(s.RemoveDocument(ctx, "Document", meta.Key)))
}

func TestStore_DocumentByID_InvalidID(t *testing.T) {
	t.Parallel()

	s := NewStore()

	_, err := s.DocumentByID(context.Background(), "not-a-composite-id")
	require.ErrorIs(t, err, store.ErrInvalidID)
}

func TestStore_Edges(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := NewStore()

	edgeMeta, err := s.SaveEdge(ctx, store.EdgeHasDocument,
		map[string]any{"property": "thesis", "max": 1}, "Document/a", "Document/b")
	require.NoError(t, err)

	out, err := s.OutEdges(ctx, store.EdgeHasDocument, "Document/a")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Document/b", out[0].To)
	assert.Equal(t, "thesis", out[0].Data["property"])

	in, err := s.InEdges(ctx, store.EdgeHasDocument, "Document/b")
	require.NoError(t, err)
	require.Len(t, in, 1)
	assert.Equal(t, "Document/a", in[0].From)

	require.NoError(t, s.RemoveEdge(ctx, store.EdgeHasDocument, edgeMeta.Key))
	assert.True(t, store.IsEdgeNotFound(s.RemoveEdge(ctx, store.EdgeHasDocument, edgeMeta.Key)))
}

func TestStore_GraphEdges(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := NewStore()

	// a -> b -> c plus an unreachable d -> e.
	_, err := s.SaveEdge(ctx, store.EdgeHasDocument, map[string]any{"property": "x"}, "Document/a", "Document/b")
	require.NoError(t, err)
	_, err = s.SaveEdge(ctx, store.EdgeHasDocument, map[string]any{"property": "y"}, "Document/b", "Document/c")
	require.NoError(t, err)
	_, err = s.SaveEdge(ctx, store.EdgeHasDocument, map[string]any{"property": "z"}, "Document/d", "Document/e")
	require.NoError(t, err)

	edges, err := s.GraphEdges(ctx, store.GraphDocuments, "Document/a")
	require.NoError(t, err)
	require.Len(t, edges, 2)

	targets := []string{edges[0].To, edges[1].To}
	assert.Contains(t, targets, "Document/b")
	assert.Contains(t, targets, "Document/c")
}

func TestStore_GraphEdges_Cycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := NewStore()

	_, err := s.SaveEdge(ctx, store.EdgeHasDocument, map[string]any{"property": "x"}, "Document/a", "Document/b")
	require.NoError(t, err)
	_, err = s.SaveEdge(ctx, store.EdgeHasDocument, map[string]any{"property": "y"}, "Document/b", "Document/a")
	require.NoError(t, err)

	edges, err := s.GraphEdges(ctx, store.GraphDocuments, "Document/a")
	require.NoError(t, err)
	assert.Len(t, edges, 2)
}
