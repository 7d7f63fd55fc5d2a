package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks raggy/internal/vectorstore VectorStore

import "context"

// Point represents a vector point with payload.
type Point struct {
	ID      string
	Vec     []float32
	Payload map[string]any
}

// VectorStore is the subset of vector database operations used to mirror
// the chunk ledger.
type VectorStore interface {
	// EnsureCollection creates the collection with cosine distance if it is
	// missing and validates its vector size otherwise.
	EnsureCollection(ctx context.Context, collection string, vectorSize int) error

	// Upsert inserts or updates points in the collection.
	Upsert(ctx context.Context, collection string, points []Point) error

	// DropCollection deletes the collection. A missing collection is not an error.
	DropCollection(ctx context.Context, collection string) error

	// CollectionExists checks if a collection exists.
	CollectionExists(ctx context.Context, collection string) (bool, error)
}
