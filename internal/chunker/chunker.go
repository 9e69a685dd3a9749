// Package chunker splits extracted document text into overlapping
// windows sized for embedding.
package chunker

import "strings"

// Chunker produces overlapping text chunks. Overlap must be smaller
// than Size.
type Chunker struct {
	Size    int
	Overlap int
}

// New returns a Chunker with the given window size and overlap.
// Non-positive or inconsistent values fall back to defaults.
func New(size, overlap int) *Chunker {
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 5
	}
	return &Chunker{Size: size, Overlap: overlap}
}

// Split cuts text into chunks of at most Size runes, each overlapping
// the previous by Overlap runes. Cuts prefer paragraph breaks, then
// line breaks, then spaces, so chunks keep whole sentences where
// possible. Whitespace-only input yields no chunks.
func (c *Chunker) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	runes := []rune(text)
	if len(runes) <= c.Size {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + c.Size
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = start + breakPoint(runes[start:end])
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}
		next := end - c.Overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return chunks
}

// breakPoint finds the best cut position within a full-size window,
// searching the trailing half for a paragraph break, then a line
// break, then a space. With no separator it cuts at the window edge.
func breakPoint(window []rune) int {
	s := string(window)
	half := len(s) / 2
	for _, sep := range []string{"\n\n", "\n", " "} {
		if idx := strings.LastIndex(s, sep); idx > half {
			return len([]rune(s[:idx+len(sep)]))
		}
	}
	return len(window)
}
