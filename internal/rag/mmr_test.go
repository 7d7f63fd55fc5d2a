package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func res(path string, idx int, score float64) Result {
	return Result{Path: path, ChunkIndex: idx, Score: score}
}

func TestSelectDiverse(t *testing.T) {
	tests := []struct {
		name       string
		candidates []Result
		k          int
		minScore   float64
		want       []Result
	}{
		{
			name: "neighbouring chunks share a bucket",
			candidates: []Result{
				res("/a", 0, 0.9), res("/a", 1, 0.8), res("/b", 0, 0.7),
			},
			k:    3,
			want: []Result{res("/a", 0, 0.9), res("/b", 0, 0.7)},
		},
		{
			name: "chunks two apart are distinct buckets",
			candidates: []Result{
				res("/a", 1, 0.9), res("/a", 2, 0.8), res("/a", 3, 0.7), res("/b", 0, 0.6),
			},
			k:    2,
			want: []Result{res("/a", 1, 0.9), res("/a", 2, 0.8)},
		},
		{
			name: "min score filter",
			candidates: []Result{
				res("/a", 0, 0.9), res("/b", 0, 0.4), res("/c", 0, 0.3),
			},
			k:        5,
			minScore: 0.5,
			want:     []Result{res("/a", 0, 0.9)},
		},
		{
			name: "best candidate always first",
			candidates: []Result{
				res("/a", 0, 0.9), res("/a", 1, 0.85), res("/b", 4, 0.8), res("/b", 5, 0.75), res("/c", 0, 0.1),
			},
			k:    2,
			want: []Result{res("/a", 0, 0.9), res("/b", 4, 0.8)},
		},
		{
			name:       "non-positive k",
			candidates: []Result{res("/a", 0, 0.9)},
			k:          0,
			want:       []Result{},
		},
		{
			name: "empty",
			k:    3,
			want: []Result{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectDiverse(tt.candidates, tt.k, tt.minScore)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelectDiverse_NeverExceedsK(t *testing.T) {
	var cands []Result
	for i := 0; i < 40; i++ {
		cands = append(cands, res("/doc", i, 1-float64(i)/100))
	}
	got := SelectDiverse(cands, 7, 0)
	assert.Len(t, got, 7)

	seen := map[string]bool{}
	for _, r := range got {
		assert.False(t, seen[bucketOf(r)])
		seen[bucketOf(r)] = true
	}
}
