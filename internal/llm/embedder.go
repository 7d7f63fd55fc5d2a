package llm

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_embedder.go -package=mocks raggy/internal/llm Embedder

import "context"

// Embedder turns texts into vectors. The result always has one slot per
// input, in input order; a slot is empty when that text could not be
// embedded.
type Embedder interface {
	Embed(ctx context.Context, texts []string) [][]float32
}
