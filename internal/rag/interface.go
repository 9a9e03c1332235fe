// Package rag defines the shared types and interfaces for the DocuMind
// retrieval pipeline: extracted documents, text chunks, embedding, and
// per-session retrieval. Concrete implementations (filesystem index, Qdrant,
// HTTP embedders) satisfy these interfaces so the answer layer never depends
// on a specific backend.
package rag

import (
	"context"
)

// Document is one extracted text segment from an uploaded file. A single
// file may yield several documents (e.g. one per PDF page or spreadsheet
// sheet). The loader guarantees Text is never blank.
type Document struct {
	// Text is the extracted plain-text content of the segment.
	Text string

	// Source is the base name of the file the segment came from (e.g. "notes.txt").
	Source string
}

// Chunk is a bounded-size slice of a Document's text, the unit of retrieval.
type Chunk struct {
	// Text is the chunk content — an exact contiguous substring of the
	// originating document's text.
	Text string

	// Source is the base name of the originating file, inherited from the Document.
	Source string

	// Seq is the zero-based position of this chunk within its document.
	Seq int
}

// ScoredChunk is a Chunk plus the similarity score assigned during retrieval.
type ScoredChunk struct {
	Chunk

	// Score is the cosine similarity to the query (higher is more relevant).
	Score float32
}

// Embedder is the interface for converting text into dense vector embeddings.
// The same instance must be used for both indexing and querying so the two
// share one embedding space. Implementations must be safe to call from
// multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Retriever is the high-level interface used by the answer layer to fetch
// relevant chunks for a query within one session's document set.
// Implementations must be safe to call from multiple goroutines.
type Retriever interface {
	// Retrieve returns the top-k most relevant chunks for the query, ordered
	// by descending similarity. A session with no index yields an empty
	// result, not an error.
	Retrieve(ctx context.Context, sessionID, query string, topK int) ([]ScoredChunk, error)
}
