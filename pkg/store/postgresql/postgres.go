// Package postgresql provides the PostgreSQL graph-document store. Vertices
// and edges live in two JSONB-backed tables; subgraph traversal runs as a
// single recursive query.
package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"obpm/pkg/store"
	"obpm/pkg/store/sqlbase"
)

// Store implements the graph-document store on PostgreSQL.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStore connects to PostgreSQL and runs pending schema migrations.
func NewStore(ctx context.Context, logger *slog.Logger, databaseURL string) (*Store, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: database, logger: logger}, nil
}

func (s *Store) SaveDocument(ctx context.Context, collection string, doc map[string]any) (store.Meta, error) {
	key := uuid.New().String()
	meta := store.Meta{
		ID:  store.CompositeID(collection, key),
		Key: key,
		Rev: "rev-1",
	}

	raw, err := encodeBody(doc, meta)
	if err != nil {
		return store.Meta{}, err
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO documents (collection, key, rev, body) VALUES ($1, $2, 1, $3)",
		collection, key, raw)
	if err != nil {
		return store.Meta{}, store.NewStoreError("SaveDocument", collection, key, err)
	}

	return meta, nil
}

func (s *Store) ReplaceDocument(ctx context.Context, collection, key string, doc map[string]any) (store.Meta, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return store.Meta{}, store.NewStoreError("ReplaceDocument", collection, key, err)
	}
	defer func() { _ = tx.Rollback() }()

	var rev int

	err = tx.QueryRowContext(ctx,
		"SELECT rev FROM documents WHERE collection = $1 AND key = $2 FOR UPDATE",
		collection, key).Scan(&rev)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Meta{}, store.NewStoreError("ReplaceDocument", collection, key, store.ErrDocumentNotFound)
		}

		return store.Meta{}, store.NewStoreError("ReplaceDocument", collection, key, err)
	}

	meta := store.Meta{
		ID:  store.CompositeID(collection, key),
		Key: key,
		Rev: "rev-" + strconv.Itoa(rev+1),
	}

	raw, err := encodeBody(doc, meta)
	if err != nil {
		return store.Meta{}, err
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE documents SET rev = $3, body = $4, updated_at = NOW() WHERE collection = $1 AND key = $2",
		collection, key, rev+1, raw)
	if err != nil {
		return store.Meta{}, store.NewStoreError("ReplaceDocument", collection, key, err)
	}

	if err := tx.Commit(); err != nil {
		return store.Meta{}, store.NewStoreError("ReplaceDocument", collection, key, err)
	}

	return meta, nil
}

func (s *Store) RemoveDocument(ctx context.Context, collection, key string) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM documents WHERE collection = $1 AND key = $2",
		collection, key)
	if err != nil {
		return store.NewStoreError("RemoveDocument", collection, key, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return store.NewStoreError("RemoveDocument", collection, key, err)
	}

	if affected == 0 {
		return store.NewStoreError("RemoveDocument", collection, key, store.ErrDocumentNotFound)
	}

	return nil
}

func (s *Store) DocumentByID(ctx context.Context, id string) (map[string]any, error) {
	collection, key, err := store.SplitID(id)
	if err != nil {
		return nil, err
	}

	var raw []byte

	err = s.db.QueryRowContext(ctx,
		"SELECT body FROM documents WHERE collection = $1 AND key = $2",
		collection, key).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.NewStoreError("DocumentByID", collection, key, store.ErrDocumentNotFound)
		}

		return nil, store.NewStoreError("DocumentByID", collection, key, err)
	}

	return decodeBody(raw)
}

func (s *Store) Documents(ctx context.Context, collection string) ([]map[string]any, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT body FROM documents WHERE collection = $1 ORDER BY created_at",
		collection)
	if err != nil {
		return nil, store.NewStoreError("Documents", collection, "", err)
	}
	defer rows.Close()

	var documents []map[string]any

	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, store.NewStoreError("Documents", collection, "", err)
		}

		body, err := decodeBody(raw)
		if err != nil {
			return nil, err
		}

		documents = append(documents, body)
	}

	return documents, rows.Err()
}

func (s *Store) SaveEdge(ctx context.Context, edgeCollection string, data map[string]any, fromID, toID string) (store.Meta, error) {
	key := uuid.New().String()
	meta := store.Meta{
		ID:  store.CompositeID(edgeCollection, key),
		Key: key,
		Rev: "rev-1",
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return store.Meta{}, fmt.Errorf("failed to encode edge data: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO edges (edge_collection, key, from_id, to_id, data) VALUES ($1, $2, $3, $4, $5)",
		edgeCollection, key, fromID, toID, raw)
	if err != nil {
		return store.Meta{}, store.NewStoreError("SaveEdge", edgeCollection, key, err)
	}

	return meta, nil
}

func (s *Store) RemoveEdge(ctx context.Context, edgeCollection, key string) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM edges WHERE edge_collection = $1 AND key = $2",
		edgeCollection, key)
	if err != nil {
		return store.NewStoreError("RemoveEdge", edgeCollection, key, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return store.NewStoreError("RemoveEdge", edgeCollection, key, err)
	}

	if affected == 0 {
		return store.NewStoreError("RemoveEdge", edgeCollection, key, store.ErrEdgeNotFound)
	}

	return nil
}

func (s *Store) InEdges(ctx context.Context, edgeCollection, vertexID string) ([]store.Edge, error) {
	return s.edges(ctx, edgeCollection,
		"SELECT key, from_id, to_id, data FROM edges WHERE edge_collection = $1 AND to_id = $2",
		vertexID)
}

func (s *Store) OutEdges(ctx context.Context, edgeCollection, vertexID string) ([]store.Edge, error) {
	return s.edges(ctx, edgeCollection,
		"SELECT key, from_id, to_id, data FROM edges WHERE edge_collection = $1 AND from_id = $2",
		vertexID)
}

// GraphEdges walks the whole outbound subgraph in one recursive query. UNION
// deduplicates revisited rows, which terminates the recursion on cycles.
func (s *Store) GraphEdges(ctx context.Context, graph, rootID string) ([]store.Edge, error) {
	edgeCollection := store.EdgeCollectionFor(graph)

	const query = `
		WITH RECURSIVE walk AS (
			SELECT e.key, e.from_id, e.to_id, e.data
			FROM edges e
			WHERE e.edge_collection = $1 AND e.from_id = $2
			UNION
			SELECT e.key, e.from_id, e.to_id, e.data
			FROM edges e
			JOIN walk w ON e.from_id = w.to_id
			WHERE e.edge_collection = $1
		)
		SELECT key, from_id, to_id, data FROM walk
	`

	return s.edges(ctx, edgeCollection, query, rootID)
}

func (s *Store) edges(ctx context.Context, edgeCollection, query, vertexID string) ([]store.Edge, error) {
	rows, err := s.db.QueryContext(ctx, query, edgeCollection, vertexID)
	if err != nil {
		return nil, store.NewStoreError("edges", edgeCollection, vertexID, err)
	}
	defer rows.Close()

	var edges []store.Edge

	for rows.Next() {
		var (
			edge store.Edge
			raw  []byte
		)

		if err := rows.Scan(&edge.Key, &edge.From, &edge.To, &raw); err != nil {
			return nil, store.NewStoreError("edges", edgeCollection, vertexID, err)
		}

		if err := json.Unmarshal(raw, &edge.Data); err != nil {
			return nil, fmt.Errorf("failed to decode edge data: %w", err)
		}

		edges = append(edges, edge)
	}

	return edges, rows.Err()
}

// HealthCheck verifies the database connection is healthy.
func (s *Store) HealthCheck(ctx context.Context) error {
	err := s.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *Store) Close(_ context.Context) error {
	if s.db != nil {
		err := s.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

func encodeBody(doc map[string]any, meta store.Meta) ([]byte, error) {
	body := make(map[string]any, len(doc)+3)
	for k, v := range doc {
		body[k] = v
	}

	body["_id"] = meta.ID
	body["_key"] = meta.Key
	body["_rev"] = meta.Rev

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document body: %w", err)
	}

	return raw, nil
}

func decodeBody(raw []byte) (map[string]any, error) {
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("failed to decode document body: %w", err)
	}

	return body, nil
}
