package rag

// SearchOptions controls one query.
type SearchOptions struct {
	// K is the maximum number of results.
	K int
	// MinScore drops candidates scoring below it.
	MinScore float64
	// MMRLambda is the relevance/diversity weight, clamped to 0..1. Selection
	// uses bucket diversity and does not read it.
	MMRLambda float64
	// MMRPool hints the candidate pool size. Zero selects the configured default.
	MMRPool int
}

// Result is one ranked chunk.
type Result struct {
	Score      float64 `json:"score"`
	Path       string  `json:"path"`
	DocID      string  `json:"docId"`
	ChunkIndex int     `json:"chunkIndex"`
	Text       string  `json:"text"`
	Heading    string  `json:"heading,omitempty"`
	Page       int     `json:"page,omitempty"`
}
