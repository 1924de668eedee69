// Package memory provides an in-memory graph store for tests and local
// development. It implements the same surface as the SQL-backed store.
package memory

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"obpm/pkg/store"
)

type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]any // collection -> key -> body
	edges       map[string][]store.Edge              // edge collection -> edges
	revCounter  int
}

func NewStore() *Store {
	return &Store{
		collections: make(map[string]map[string]map[string]any),
		edges:       make(map[string][]store.Edge),
	}
}

func (s *Store) collection(name string) map[string]map[string]any {
	col, ok := s.collections[name]
	if !ok {
		col = make(map[string]map[string]any)
		s.collections[name] = col
	}

	return col
}

func (s *Store) nextRev() string {
	s.revCounter++

	return "rev-" + strconv.Itoa(s.revCounter)
}

// deepCopy isolates stored bodies from caller-held maps.
func deepCopy(doc map[string]any) map[string]any {
	raw, err := json.Marshal(doc)
	if err != nil {
		return map[string]any{}
	}

	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]any{}
	}

	return out
}

func (s *Store) SaveDocument(_ context.Context, collection string, doc map[string]any) (store.Meta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := uuid.New().String()
	meta := store.Meta{
		ID:  store.CompositeID(collection, key),
		Key: key,
		Rev: s.nextRev(),
	}

	body := deepCopy(doc)
	body["_id"] = meta.ID
	body["_key"] = meta.Key
	body["_rev"] = meta.Rev
	s.collection(collection)[key] = body

	return meta, nil
}

func (s *Store) ReplaceDocument(_ context.Context, collection, key string, doc map[string]any) (store.Meta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collection(collection)[key]; !ok {
		return store.Meta{}, store.NewStoreError("ReplaceDocument", collection, key, store.ErrDocumentNotFound)
	}

	meta := store.Meta{
		ID:  store.CompositeID(collection, key),
		Key: key,
		Rev: s.nextRev(),
	}

	body := deepCopy(doc)
	body["_id"] = meta.ID
	body["_key"] = meta.Key
	body["_rev"] = meta.Rev
	s.collection(collection)[key] = body

	return meta, nil
}

func (s *Store) RemoveDocument(_ context.Context, collection, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collection(collection)[key]; !ok {
		return store.NewStoreError("RemoveDocument", collection, key, store.ErrDocumentNotFound)
	}

	delete(s.collection(collection), key)

	return nil
}

func (s *Store) DocumentByID(_ context.Context, id string) (map[string]any, error) {
	collection, key, err := store.SplitID(id)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	body, ok := s.collection(collection)[key]
	if !ok {
		return nil, store.NewStoreError("DocumentByID", collection, id, store.ErrDocumentNotFound)
	}

	return deepCopy(body), nil
}

func (s *Store) Documents(_ context.Context, collection string) ([]map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	col := s.collection(collection)
	out := make([]map[string]any, 0, len(col))

	for _, body := range col {
		out = append(out, deepCopy(body))
	}

	return out, nil
}

func (s *Store) SaveEdge(_ context.Context, edgeCollection string, data map[string]any, fromID, toID string) (store.Meta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := uuid.New().String()
	edge := store.Edge{
		Key:  key,
		From: fromID,
		To:   toID,
		Data: deepCopy(data),
	}
	s.edges[edgeCollection] = append(s.edges[edgeCollection], edge)

	return store.Meta{
		ID:  store.CompositeID(edgeCollection, key),
		Key: key,
		Rev: s.nextRev(),
	}, nil
}

func (s *Store) RemoveEdge(_ context.Context, edgeCollection, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	edges := s.edges[edgeCollection]
	for i, edge := range edges {
		if edge.Key == key {
			s.edges[edgeCollection] = append(edges[:i], edges[i+1:]...)

			return nil
		}
	}

	return store.NewStoreError("RemoveEdge", edgeCollection, key, store.ErrEdgeNotFound)
}

func (s *Store) InEdges(_ context.Context, edgeCollection, vertexID string) ([]store.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []store.Edge

	for _, edge := range s.edges[edgeCollection] {
		if edge.To == vertexID {
			out = append(out, edge)
		}
	}

	return out, nil
}

func (s *Store) OutEdges(_ context.Context, edgeCollection, vertexID string) ([]store.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []store.Edge

	for _, edge := range s.edges[edgeCollection] {
		if edge.From == vertexID {
			out = append(out, edge)
		}
	}

	return out, nil
}

// GraphEdges walks the edge collection of the named graph breadth-first from
// rootID and returns every reachable outbound edge in one result set.
func (s *Store) GraphEdges(_ context.Context, graph, rootID string) ([]store.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	edgeCollection := store.EdgeCollectionFor(graph)

	var out []store.Edge

	visited := map[string]bool{rootID: true}
	frontier := []string{rootID}

	for len(frontier) > 0 {
		var next []string

		for _, vertexID := range frontier {
			for _, edge := range s.edges[edgeCollection] {
				if edge.From != vertexID {
					continue
				}

				out = append(out, edge)

				if !visited[edge.To] {
					visited[edge.To] = true
					next = append(next, edge.To)
				}
			}
		}

		frontier = next
	}

	return out, nil
}

func (s *Store) HealthCheck(_ context.Context) error {
	return nil
}

func (s *Store) Close(_ context.Context) error {
	return nil
}
