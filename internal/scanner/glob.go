package scanner

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/afero"
)

// HasGlob reports whether p contains a * or ? wildcard.
func HasGlob(p string) bool {
	return strings.ContainsAny(p, "*?")
}

// GlobToRegexp translates a slash-separated glob into an anchored regular
// expression. "**" matches across separators ("**/" also matches no
// directory at all), "*" matches within one segment and "?" matches one
// non-separator character. Everything else is literal.
func GlobToRegexp(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteByte('^')
	for i := 0; i < len(pattern); {
		switch {
		case strings.HasPrefix(pattern[i:], "**/"):
			b.WriteString("(?:.*/)?")
			i += 3
		case strings.HasPrefix(pattern[i:], "**"):
			b.WriteString(".*")
			i += 2
		case pattern[i] == '*':
			b.WriteString("[^/]*")
			i++
		case pattern[i] == '?':
			b.WriteString("[^/]")
			i++
		default:
			j := i
			for j < len(pattern) && pattern[j] != '*' && pattern[j] != '?' {
				j++
			}
			b.WriteString(regexp.QuoteMeta(pattern[i:j]))
			i = j
		}
	}
	b.WriteByte('$')
	return regexp.Compile(b.String())
}

// ExpandGlobs replaces glob patterns with the paths they match. Plain paths
// pass through untouched. A pattern whose wildcards are confined to its last
// segment matches entry names in the parent directory; any other pattern is
// matched against the full path of every file below its longest literal
// directory prefix. Patterns that match nothing are returned as unmatched.
func (s *Scanner) ExpandGlobs(ctx context.Context, patterns []string) (expanded, unmatched []string, err error) {
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		expanded = append(expanded, p)
	}

	for _, raw := range patterns {
		if !HasGlob(raw) {
			add(raw)
			continue
		}
		pattern := filepath.ToSlash(filepath.Clean(raw))

		var matches []string
		dir, base := splitLast(pattern)
		if !strings.Contains(pattern, "**") && !HasGlob(dir) {
			matches, err = s.matchDir(dir, base)
		} else {
			matches, err = s.matchTree(ctx, pattern)
		}
		if err != nil {
			return nil, nil, err
		}
		if len(matches) == 0 {
			unmatched = append(unmatched, raw)
			continue
		}
		for _, m := range matches {
			add(m)
		}
	}
	return expanded, unmatched, nil
}

func (s *Scanner) matchDir(dir, base string) ([]string, error) {
	re, err := GlobToRegexp(base)
	if err != nil {
		return nil, fmt.Errorf("failed to compile glob %q: %w", base, err)
	}
	entries, err := afero.ReadDir(s.fs, filepath.FromSlash(dir))
	if err != nil {
		// a missing parent is simply no match
		return nil, nil
	}
	var out []string
	for _, e := range entries {
		if re.MatchString(e.Name()) {
			out = append(out, filepath.Join(filepath.FromSlash(dir), e.Name()))
		}
	}
	return out, nil
}

func (s *Scanner) matchTree(ctx context.Context, pattern string) ([]string, error) {
	re, err := GlobToRegexp(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to compile glob %q: %w", pattern, err)
	}
	root := literalPrefix(pattern)
	if _, err := s.fs.Stat(filepath.FromSlash(root)); err != nil {
		return nil, nil
	}
	files, err := s.ListFiles(ctx, filepath.FromSlash(root))
	if err != nil {
		return nil, err
	}
	var out []string
	for _, f := range files {
		if re.MatchString(filepath.ToSlash(f)) {
			out = append(out, f)
		}
	}
	return out, nil
}

// splitLast splits a slash path into its parent directory and last segment.
// The parent of a bare name is ".".
func splitLast(p string) (dir, base string) {
	i := strings.LastIndex(p, "/")
	switch {
	case i < 0:
		return ".", p
	case i == 0:
		return "/", p[1:]
	default:
		return p[:i], p[i+1:]
	}
}

// literalPrefix returns the directory made of the segments before the first
// segment containing a wildcard.
func literalPrefix(pattern string) string {
	segs := strings.Split(pattern, "/")
	var keep []string
	for _, seg := range segs[:len(segs)-1] {
		if HasGlob(seg) {
			break
		}
		keep = append(keep, seg)
	}
	switch {
	case len(keep) == 0:
		return "."
	case len(keep) == 1 && keep[0] == "":
		return "/"
	default:
		return strings.Join(keep, "/")
	}
}
