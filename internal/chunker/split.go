package chunker

import "strings"

const (
	// DefaultChunkChars is the window size of the character splitter.
	DefaultChunkChars = 800
	// DefaultChunkOverlap is the number of characters shared by consecutive windows.
	DefaultChunkOverlap = 120
)

// SplitText cuts text into fixed windows of chunkChars characters that
// advance by chunkChars-overlap (at least one character). It is independent
// of the sentence chunkers and is not used by ingestion.
func SplitText(text string, chunkChars, overlap int) []string {
	if chunkChars <= 0 {
		chunkChars = DefaultChunkChars
	}
	if overlap < 0 {
		overlap = 0
	}
	step := max(1, chunkChars-overlap)

	runes := []rune(strings.ReplaceAll(text, "\r\n", "\n"))
	var out []string
	for i := 0; i < len(runes); i += step {
		end := min(len(runes), i+chunkChars)
		if end > i {
			out = append(out, string(runes[i:end]))
		}
	}
	return out
}
