package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"obpm/pkg/models"
	"obpm/pkg/store"
	"obpm/pkg/store/postgresql"
)

var postgresContainer *postgres.PostgresContainer

func dropDb(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	for _, table := range []string{"edges", "documents", "schema_migrations"} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	require.NoError(t, db.Close())
}

func setupTestStore(t *testing.T) (*postgresql.Store, context.Context) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping container-backed store test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("obpm_test"),
			postgres.WithUsername("obpm"),
			postgres.WithPassword("obpm"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDb(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	s, err := postgresql.NewStore(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDb(ctx, t, databaseURL)
		require.NoError(t, s.Close(ctx))
		cancel()
	})

	return s, ctx
}

func TestStore_DocumentLifecycle(t *testing.T) {
	s, ctx := setupTestStore(t)

	meta, err := s.SaveDocument(ctx, models.CollectionDocument, map[string]any{
		"type": "Thesis", "state": "created", "data": map[string]any{"title": "T"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Document/"+meta.Key, meta.ID)
	assert.Equal(t, "rev-1", meta.Rev)

	body, err := s.DocumentByID(ctx, meta.ID)
	require.NoError(t, err)
	assert.Equal(t, "Thesis", body["type"])
	assert.Equal(t, meta.ID, body["_id"])

	replaced, err := s.ReplaceDocument(ctx, models.CollectionDocument, meta.Key, map[string]any{
		"type": "Thesis", "state": "assigned", "data": map[string]any{"title": "T"},
	})
	require.NoError(t, err)
	assert.Equal(t, "rev-2", replaced.Rev)

	body, err = s.DocumentByID(ctx, meta.ID)
	require.NoError(t, err)
	assert.Equal(t, "assigned", body["state"])

	documents, err := s.Documents(ctx, models.CollectionDocument)
	require.NoError(t, err)
	assert.Len(t, documents, 1)

	require.NoError(t, s.RemoveDocument(ctx, models.CollectionDocument, meta.Key))

	_, err = s.DocumentByID(ctx, meta.ID)
	assert.True(t, store.IsDocumentNotFound(err))
}

func TestStore_ReplaceMissingDocument(t *testing.T) {
	s, ctx := setupTestStore(t)

	_, err := s.ReplaceDocument(ctx, models.CollectionDocument, "missing", map[string]any{})
	assert.True(t, store.IsDocumentNotFound(err))
}

func TestStore_EdgeTraversal(t *testing.T) {
	s, ctx := setupTestStore(t)

	caseMeta, err := s.SaveDocument(ctx, models.CollectionDocument, map[string]any{"type": models.TypeCase})
	require.NoError(t, err)

	thesisMeta, err := s.SaveDocument(ctx, models.CollectionDocument, map[string]any{"type": "Thesis"})
	require.NoError(t, err)

	reviewMeta, err := s.SaveDocument(ctx, models.CollectionDocument, map[string]any{"type": "Review"})
	require.NoError(t, err)

	_, err = s.SaveEdge(ctx, store.EdgeHasDocument,
		map[string]any{"property": "thesis", "max": 1}, caseMeta.ID, thesisMeta.ID)
	require.NoError(t, err)

	edgeMeta, err := s.SaveEdge(ctx, store.EdgeHasDocument,
		map[string]any{"property": "reviews", "max": 3}, thesisMeta.ID, reviewMeta.ID)
	require.NoError(t, err)

	out, err := s.OutEdges(ctx, store.EdgeHasDocument, caseMeta.ID)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, thesisMeta.ID, out[0].To)
	assert.Equal(t, "thesis", out[0].Data["property"])

	in, err := s.InEdges(ctx, store.EdgeHasDocument, reviewMeta.ID)
	require.NoError(t, err)
	require.Len(t, in, 1)
	assert.Equal(t, thesisMeta.ID, in[0].From)

	// The recursive traversal reaches the review two hops away.
	edges, err := s.GraphEdges(ctx, store.GraphDocuments, caseMeta.ID)
	require.NoError(t, err)
	assert.Len(t, edges, 2)

	require.NoError(t, s.RemoveEdge(ctx, store.EdgeHasDocument, edgeMeta.Key))

	edges, err = s.GraphEdges(ctx, store.GraphDocuments, caseMeta.ID)
	require.NoError(t, err)
	assert.Len(t, edges, 1)
}

func TestStore_HealthCheck(t *testing.T) {
	s, ctx := setupTestStore(t)

	require.NoError(t, s.HealthCheck(ctx))
}
