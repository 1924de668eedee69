package postgresql

// migrations returns the versioned schema for the graph-document store.
// Vertices keep their full body as JSONB; edges carry the attachment metadata
// the same way.
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS documents (
				collection TEXT NOT NULL,
				key TEXT NOT NULL,
				rev INTEGER NOT NULL DEFAULT 1,
				body JSONB NOT NULL DEFAULT '{}'::jsonb,
				created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
				PRIMARY KEY (collection, key)
			);

			CREATE TABLE IF NOT EXISTS edges (
				edge_collection TEXT NOT NULL,
				key TEXT NOT NULL,
				from_id TEXT NOT NULL,
				to_id TEXT NOT NULL,
				data JSONB NOT NULL DEFAULT '{}'::jsonb,
				created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
				PRIMARY KEY (edge_collection, key)
			);

			CREATE INDEX IF NOT EXISTS idx_edges_from ON edges (edge_collection, from_id);
			CREATE INDEX IF NOT EXISTS idx_edges_to ON edges (edge_collection, to_id);
			CREATE INDEX IF NOT EXISTS idx_documents_type ON documents (collection, (body->>'type'));
		`,
	}
}
