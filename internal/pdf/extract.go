// Package pdf pulls best-effort plain text out of PDF files by scanning the
// raw byte stream for content streams and text-drawing operators. It does not
// parse the object graph.
package pdf

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/klauspost/compress/zlib"
	"github.com/spf13/afero"
	"golang.org/x/text/encoding/charmap"
)

// MaxStreamSize caps the inflated size of a single stream.
const MaxStreamSize = 10 << 20

// ErrStreamTooLarge is returned by inflate when a stream exceeds MaxStreamSize.
var ErrStreamTooLarge = errors.New("pdf stream exceeds size limit")

var (
	kwStream    = []byte("stream")
	kwEndstream = []byte("endstream")
	dictOpen    = []byte("<<")
	dictClose   = []byte(">>")

	flateRe   = regexp.MustCompile(`/Filter\s*/FlateDecode`)
	textRe    = regexp.MustCompile(`(?s)BT(.*?)ET`)
	literalRe = regexp.MustCompile(`(?s)\((?:\\.|[^\\])*?\)`)
	hexRe     = regexp.MustCompile(`<([0-9A-Fa-f\s]+)>`)
	escapeRe  = regexp.MustCompile(`\\([nrtbf\\()])`)
	nonHexRe  = regexp.MustCompile(`[^0-9a-fA-F]`)
)

// ExtractFile reads path from fsys and extracts its text.
func ExtractFile(fsys afero.Fs, path string) (string, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return "", fmt.Errorf("failed to read pdf: %w", err)
	}
	return Extract(data), nil
}

// Extract returns the text found in BT..ET blocks of every content stream,
// one line per block. Streams that fail to inflate contribute nothing.
func Extract(data []byte) string {
	var lines []string
	pos := 0
	for pos < len(data) {
		rel := bytes.Index(data[pos:], kwStream)
		if rel < 0 {
			break
		}
		sIdx := pos + rel
		relEnd := bytes.Index(data[sIdx:], kwEndstream)
		if relEnd < 0 {
			break
		}
		eIdx := sIdx + relEnd
		next := eIdx + len(kwEndstream)

		compressed := hasFlateFilter(data, sIdx)

		start := sIdx + len(kwStream)
		if start+1 < len(data) && data[start] == '\r' && data[start+1] == '\n' {
			start += 2
		} else if start < len(data) && data[start] == '\n' {
			start++
		}

		var payload []byte
		if start < eIdx {
			payload = data[start:eIdx]
		}
		if compressed && len(payload) > 0 {
			inflated, err := inflate(payload, MaxStreamSize)
			if err != nil {
				payload = nil
			} else {
				payload = inflated
			}
		}
		if len(payload) > 0 {
			lines = append(lines, textBlocks(decodeLatin1(payload))...)
		}
		pos = next
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// hasFlateFilter inspects the dictionary between the last "<<" before the
// stream keyword and the ">>" that follows it.
func hasFlateFilter(data []byte, streamIdx int) bool {
	dictStart := bytes.LastIndex(data[:streamIdx], dictOpen)
	if dictStart < 0 {
		return false
	}
	rel := bytes.Index(data[dictStart:], dictClose)
	if rel <= 0 {
		return false
	}
	dict := data[dictStart : dictStart+rel+len(dictClose)]
	return flateRe.Match(dict)
}

func inflate(data []byte, limit int64) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = r.Close()
	}()

	out, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(out)) > limit {
		return nil, ErrStreamTooLarge
	}
	return out, nil
}

func decodeLatin1(b []byte) string {
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}

// textBlocks returns one space-joined line per BT..ET block that contains at
// least one string operand. Literal strings come before hex strings.
func textBlocks(content string) []string {
	var out []string
	for _, m := range textRe.FindAllStringSubmatch(content, -1) {
		block := m[1]
		var parts []string
		for _, lit := range literalRe.FindAllString(block, -1) {
			parts = append(parts, decodeLiteral(lit))
		}
		for _, hm := range hexRe.FindAllStringSubmatch(block, -1) {
			parts = append(parts, decodeHex(hm[1]))
		}
		if len(parts) > 0 {
			out = append(out, strings.Join(parts, " "))
		}
	}
	return out
}

func decodeLiteral(lit string) string {
	s := lit
	if len(s) >= 2 && s[0] == '(' && s[len(s)-1] == ')' {
		s = s[1 : len(s)-1]
	}
	return escapeRe.ReplaceAllStringFunc(s, func(m string) string {
		switch m[1] {
		case 'n':
			return "\n"
		case 'r':
			return "\r"
		case 't':
			return "\t"
		case 'b':
			return "\b"
		case 'f':
			return "\f"
		default:
			return m[1:]
		}
	})
}

func decodeHex(h string) string {
	clean := nonHexRe.ReplaceAllString(h, "")
	if len(clean)%2 == 1 {
		clean += "0"
	}
	b, err := hex.DecodeString(clean)
	if err != nil {
		return ""
	}
	return strings.ToValidUTF8(string(b), "\uFFFD")
}
