package chunker

import (
	"regexp"
	"strings"
	"unicode"
)

// Tokenizer selects the sentence splitting strategy.
type Tokenizer string

const (
	// TokenizerRegex splits on . ! ? followed by whitespace.
	TokenizerRegex Tokenizer = "regex"
	// TokenizerSmart is TokenizerRegex with abbreviation suppression.
	TokenizerSmart Tokenizer = "smart"
)

// ParseTokenizer maps a configuration value to a Tokenizer. Anything other
// than "smart" selects the regex tokenizer.
func ParseTokenizer(s string) Tokenizer {
	if Tokenizer(s) == TokenizerSmart {
		return TokenizerSmart
	}
	return TokenizerRegex
}

const abbrevTail = 6

var abbreviations = []string{
	"e.g.", "i.e.", "etc.", "Mr.", "Mrs.", "Dr.", "Prof.", "Inc.", "Ltd.", "vs.", "No.", "Fig.", "Eq.",
	"Jan.", "Feb.", "Mar.", "Apr.", "Jun.", "Jul.", "Aug.", "Sep.", "Sept.", "Oct.", "Nov.", "Dec.",
}

var (
	controlSpaceRe = regexp.MustCompile(`[\t\v\f]+`)
	newlineRunRe   = regexp.MustCompile(`\n+`)
)

// SplitSentences splits text into trimmed sentences. When fewer than two
// sentences are found it falls back to splitting on runs of newlines.
func SplitSentences(text string, tok Tokenizer) []string {
	clean := cleanText(text)
	runes := []rune(clean)

	var parts []string
	var cur []rune
	for i, ch := range runes {
		cur = append(cur, ch)
		if ch != '.' && ch != '!' && ch != '?' {
			continue
		}
		if i+1 >= len(runes) || !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if tok == TokenizerSmart && endsWithAbbreviation(cur) {
			continue
		}
		parts = append(parts, strings.TrimSpace(string(cur)))
		cur = cur[:0]
	}
	if rest := strings.TrimSpace(string(cur)); rest != "" {
		parts = append(parts, rest)
	}

	if len(parts) <= 1 {
		return splitLines(clean)
	}
	return parts
}

func cleanText(text string) string {
	s := strings.ReplaceAll(text, "\r\n", "\n")
	return controlSpaceRe.ReplaceAllString(s, " ")
}

func splitLines(s string) []string {
	var out []string
	for _, line := range newlineRunRe.Split(s, -1) {
		if t := strings.TrimSpace(line); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// endsWithAbbreviation reports whether the last six characters of span end
// with the tail of a known abbreviation.
func endsWithAbbreviation(span []rune) bool {
	tail := span
	if len(tail) > abbrevTail {
		tail = tail[len(tail)-abbrevTail:]
	}
	t := string(tail)
	for _, a := range abbreviations {
		ar := []rune(a)
		if len(ar) > abbrevTail {
			ar = ar[len(ar)-abbrevTail:]
		}
		if strings.HasSuffix(t, string(ar)) {
			return true
		}
	}
	return false
}
