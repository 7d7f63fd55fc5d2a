package chunker

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var atxHeadingRe = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)

var headingParser = goldmark.New()

// mdBlock is one non-blank, non-heading line with the heading context it
// appeared under.
type mdBlock struct {
	text        string
	sectionPath []string
}

// ChunkMarkdown windows each non-blank line of a Markdown document
// independently. ATX headings set the section path: a heading of depth d
// keeps the first d-1 entries of the current path and appends its title.
func ChunkMarkdown(md string, opts Options) []Chunk {
	opts = opts.normalized()
	lines := strings.Split(strings.ReplaceAll(md, "\r\n", "\n"), "\n")

	var blocks []mdBlock
	var path []string
	for _, raw := range lines {
		line := strings.TrimRightFunc(raw, unicode.IsSpace)
		if m := atxHeadingRe.FindStringSubmatch(line); m != nil {
			depth := len(m[1])
			keep := min(depth-1, len(path))
			path = append(path[:keep:keep], headingTitle(line, m[2]))
			continue
		}
		if line == "" {
			continue
		}
		blocks = append(blocks, mdBlock{text: line, sectionPath: append([]string(nil), path...)})
	}

	var out []Chunk
	for _, b := range blocks {
		var heading string
		if len(b.sectionPath) > 0 {
			heading = b.sectionPath[len(b.sectionPath)-1]
		}
		for _, w := range Windows(SplitSentences(b.text, opts.Tokenizer), opts) {
			out = append(out, Chunk{Text: w, Heading: heading, SectionPath: b.sectionPath})
		}
	}
	return out
}

// headingTitle renders a heading line to plain text so inline markup and a
// closing run of #s do not leak into chunk metadata. It falls back to the raw
// title when goldmark does not see a heading.
func headingTitle(line, raw string) string {
	fallback := strings.TrimSpace(raw)
	src := []byte(line)
	doc := headingParser.Parser().Parse(text.NewReader(src))

	var title string
	found := false
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if h, ok := n.(*ast.Heading); ok {
			title = nodeText(h, src)
			found = true
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	if !found || title == "" {
		return fallback
	}
	return title
}

func nodeText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := node.(type) {
		case *ast.Text:
			b.Write(v.Segment.Value(src))
			if v.SoftLineBreak() || v.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(v.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}
