// Package splitter cuts document text into overlapping chunks sized for
// embedding. Chunks are exact contiguous substrings of the source text:
// the splitter prefers to cut at paragraph breaks, then line breaks, then
// sentence ends, then word boundaries, and only hard-cuts mid-word when
// no boundary exists in the window.
package splitter

import (
	"strings"

	"github.com/ronak8180/DocuMind/internal/rag"
)

const (
	// DefaultChunkSize is the maximum chunk length in runes.
	DefaultChunkSize = 1000
	// DefaultOverlap is how many trailing runes of one chunk reappear at
	// the start of the next.
	DefaultOverlap = 100
)

// separators lists cut points in preference order. A separator stays with
// the chunk to its left.
var separators = [][]rune{
	[]rune("\n\n"),
	[]rune("\n"),
	[]rune(". "),
	[]rune(" "),
}

// Splitter holds the chunking parameters.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

// New returns a Splitter with the default chunk size and overlap.
func New() *Splitter {
	return &Splitter{ChunkSize: DefaultChunkSize, Overlap: DefaultOverlap}
}

// Split chunks every document and tags each chunk with its source and its
// sequence number within that document. Documents that are empty after
// trimming produce no chunks.
func (s *Splitter) Split(docs []rag.Document) []rag.Chunk {
	var chunks []rag.Chunk
	for _, doc := range docs {
		if strings.TrimSpace(doc.Text) == "" {
			continue
		}
		for seq, text := range s.splitText(doc.Text) {
			chunks = append(chunks, rag.Chunk{
				Text:   text,
				Source: doc.Source,
				Seq:    seq,
			})
		}
	}
	return chunks
}

// splitText windows over the text in rune space. Each window is at most
// ChunkSize runes; the next window starts Overlap runes before the
// previous cut so neighbouring chunks share context.
func (s *Splitter) splitText(text string) []string {
	runes := []rune(text)
	n := len(runes)
	if n <= s.ChunkSize {
		return []string{text}
	}

	var out []string
	start := 0
	for start < n {
		end := start + s.ChunkSize
		if end >= n {
			out = append(out, string(runes[start:n]))
			break
		}

		cut := s.cutPoint(runes, start, end)
		out = append(out, string(runes[start:cut]))

		next := cut - s.Overlap
		if next <= start {
			// Overlap would stall progress on a tiny chunk.
			next = cut
		}
		start = next
	}
	return out
}

// cutPoint finds where to end the chunk starting at start, given the hard
// limit end. It takes the last occurrence of the highest-preference
// separator in the window, provided the resulting chunk keeps at least
// half the window; otherwise it falls through to the next separator and
// finally to a hard cut at end.
func (s *Splitter) cutPoint(runes []rune, start, end int) int {
	minCut := start + s.ChunkSize/2
	for _, sep := range separators {
		if idx := lastIndexRunes(runes[start:end], sep); idx >= 0 {
			cut := start + idx + len(sep)
			if cut > minCut {
				return cut
			}
		}
	}
	return end
}

// lastIndexRunes is strings.LastIndex over rune slices.
func lastIndexRunes(haystack, needle []rune) int {
	for i := len(haystack) - len(needle); i >= 0; i-- {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
