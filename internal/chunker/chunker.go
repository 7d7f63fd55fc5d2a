// Package chunker turns document text into overlapping sentence windows.
package chunker

import "strings"

const (
	// DefaultMaxSentences is the number of sentences in a window.
	DefaultMaxSentences = 6
	// DefaultOverlapSentences is the number of sentences shared by consecutive windows.
	DefaultOverlapSentences = 2
)

// Options configures sentence windowing.
type Options struct {
	MaxSentences     int
	OverlapSentences int
	Tokenizer        Tokenizer
}

// DefaultOptions returns the 6-sentence, 2-overlap regex configuration.
func DefaultOptions() Options {
	return Options{
		MaxSentences:     DefaultMaxSentences,
		OverlapSentences: DefaultOverlapSentences,
		Tokenizer:        TokenizerRegex,
	}
}

// Chunk is one sentence window with optional source metadata.
type Chunk struct {
	Text        string   `json:"text"`
	Heading     string   `json:"heading,omitempty"`     // deepest Markdown heading
	SectionPath []string `json:"sectionPath,omitempty"` // full Markdown heading path
	Page        int      `json:"page,omitempty"`        // 1-based PDF page, 0 when unknown
}

func (o Options) normalized() Options {
	if o.MaxSentences <= 0 {
		o.MaxSentences = DefaultMaxSentences
	}
	if o.OverlapSentences < 0 {
		o.OverlapSentences = 0
	}
	if o.Tokenizer == "" {
		o.Tokenizer = TokenizerRegex
	}
	return o
}

// Step returns how many sentences consecutive windows advance by. It is
// always at least 1.
func (o Options) Step() int {
	o = o.normalized()
	return max(1, o.MaxSentences-o.OverlapSentences)
}

// Windows groups sentences into windows of MaxSentences joined by a single
// space, starting every Step() sentences. Blank windows are dropped.
func Windows(sentences []string, opts Options) []string {
	opts = opts.normalized()
	step := opts.Step()

	var out []string
	for i := 0; i < len(sentences); i += step {
		end := min(len(sentences), i+opts.MaxSentences)
		win := strings.Join(sentences[i:end], " ")
		if strings.TrimSpace(win) != "" {
			out = append(out, win)
		}
	}
	return out
}

// ChunkPlain tokenizes the whole text and windows over it.
func ChunkPlain(text string, opts Options) []Chunk {
	opts = opts.normalized()
	var out []Chunk
	for _, w := range Windows(SplitSentences(text, opts.Tokenizer), opts) {
		out = append(out, Chunk{Text: w})
	}
	return out
}

// ChunkPDF treats form feeds as page breaks and windows each page
// independently, tagging chunks with their 1-based page number.
func ChunkPDF(text string, opts Options) []Chunk {
	opts = opts.normalized()
	var out []Chunk
	for p, page := range strings.Split(text, "\f") {
		for _, w := range Windows(SplitSentences(page, opts.Tokenizer), opts) {
			out = append(out, Chunk{Text: w, Page: p + 1})
		}
	}
	return out
}
