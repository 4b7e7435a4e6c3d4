package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks comet-support/internal/vectorstore VectorStore

import "context"

// Point represents a vector point with metadata.
type Point struct {
	ID   string
	Vec  []float32
	Meta map[string]any
}

// SearchResult represents a search result from vector search.
type SearchResult struct {
	PointID string
	Score   float32
	Meta    map[string]any
}

// VectorStore defines the interface for vector index operations. The index
// is append-only during construction and read-only afterwards; Search is
// safe for concurrent use once building has finished.
type VectorStore interface {
	// EnsureCollection ensures a collection exists with the given vector size.
	EnsureCollection(ctx context.Context, collection string, vectorSize int) error

	// CollectionExists checks if a collection exists.
	CollectionExists(ctx context.Context, collection string) (bool, error)

	// Count returns the number of points stored in the collection.
	Count(ctx context.Context, collection string) (int, error)

	// Upsert inserts or updates points in the collection.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Search returns the k nearest points to the query vector, ranked by
	// similarity.
	Search(ctx context.Context, collection string, query []float32, k int) ([]SearchResult, error)
}
