// Package vector provides the optional similarity-search backend behind the
// engine's semantic search mode.
package vector

import "context"

// Document is an embedded node description stored in the vector index.
type Document struct {
	ID       string
	Content  string
	Vector   []float32
	Metadata map[string]string
}

// SearchResult is a single match from a similarity search.
type SearchResult struct {
	ID       string
	Score    float32
	Content  string
	Metadata map[string]string
}

// Repository provides vector storage and similarity search.
type Repository interface {
	// Upsert inserts or updates documents.
	Upsert(ctx context.Context, docs []Document) error
	// Search finds the top-k most similar documents, restricted to
	// documents whose metadata matches every filter entry.
	Search(ctx context.Context, vector []float32, topK int, filter map[string]string) ([]SearchResult, error)
	// Close releases resources.
	Close() error
}

// Embedder turns texts into embedding vectors. Implementations live outside
// the engine; semantic search degrades to fuzzy matching when none is wired.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
