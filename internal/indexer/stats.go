package indexer

import (
	"context"
	"fmt"
	"math"
	"sort"
	"unicode/utf8"

	"raggy/internal/storage"
)

// TokensPerRune is an approximation for token counting (4 chars per token).
const TokensPerRune = 4.0

// StoreStats summarizes the persisted store.
type StoreStats struct {
	// Documents is the number of registry entries.
	Documents int `json:"documents"`
	// Chunks is the number of well-formed ledger records.
	Chunks int `json:"chunks"`
	// EmbeddingDim is the stored dimension, nil before the first chunk.
	EmbeddingDim *int `json:"embeddingDim"`
	// ChunkTokens contains statistics about estimated token counts per chunk.
	ChunkTokens ChunkTokenStats `json:"chunkTokens"`
}

// ChunkTokenStats contains statistics about token counts in chunks.
type ChunkTokenStats struct {
	Min  int     `json:"min"`
	Max  int     `json:"max"`
	Mean float64 `json:"mean"`
	P95  int     `json:"p95"`
}

// ComputeStats reads the registry and streams the ledger once.
func ComputeStats(ctx context.Context, store *storage.FileStore) (StoreStats, error) {
	docs, err := store.LoadRegistry()
	if err != nil {
		return StoreStats{}, fmt.Errorf("failed to load registry: %w", err)
	}
	meta, err := store.ReadMeta()
	if err != nil {
		return StoreStats{}, fmt.Errorf("failed to read meta: %w", err)
	}

	var tokenCounts []int
	err = store.ScanChunks(ctx, func(rec storage.ChunkRecord) error {
		tokenCounts = append(tokenCounts, estimateTokens(rec.Text))
		return nil
	})
	if err != nil {
		return StoreStats{}, fmt.Errorf("failed to scan chunks: %w", err)
	}

	return StoreStats{
		Documents:    len(docs),
		Chunks:       len(tokenCounts),
		EmbeddingDim: meta.Dim,
		ChunkTokens:  computeTokenStats(tokenCounts),
	}, nil
}

// estimateTokens approximates the token count from the rune count, at least 1.
func estimateTokens(text string) int {
	n := int(math.Round(float64(utf8.RuneCountInString(text)) / TokensPerRune))
	return max(1, n)
}

// computeTokenStats computes min, max, mean, and p95 from token counts.
func computeTokenStats(tokenCounts []int) ChunkTokenStats {
	if len(tokenCounts) == 0 {
		return ChunkTokenStats{}
	}

	sorted := make([]int, len(tokenCounts))
	copy(sorted, tokenCounts)
	sort.Ints(sorted)

	sum := 0
	for _, count := range tokenCounts {
		sum += count
	}
	mean := float64(sum) / float64(len(tokenCounts))

	p95Index := int(math.Ceil(float64(len(sorted)) * 0.95))
	if p95Index >= len(sorted) {
		p95Index = len(sorted) - 1
	}

	return ChunkTokenStats{
		Min:  sorted[0],
		Max:  sorted[len(sorted)-1],
		Mean: math.Round(mean*100) / 100, // Round to 2 decimal places
		P95:  sorted[p95Index],
	}
}
