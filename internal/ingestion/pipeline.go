// Package ingestion implements the document ingestion pipeline: load the
// session's files, chunk their text, embed the chunks, and rebuild the
// session's vector index. Invoked on every upload and file removal so the
// index always reflects the session's current file set.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ronak8180/DocuMind/internal/index"
	"github.com/ronak8180/DocuMind/internal/loader"
	"github.com/ronak8180/DocuMind/internal/logging"
	"github.com/ronak8180/DocuMind/internal/splitter"
)

// ErrNoValidText is returned when none of the given files yields any
// extractable text (unsupported formats, unreadable files, or blank
// content).
var ErrNoValidText = errors.New("ingestion: no valid text extracted from any file")

// ErrChunkingFailed is returned when extracted text produced no chunks.
var ErrChunkingFailed = errors.New("ingestion: chunking produced no chunks")

// Config holds the configuration for the ingestion pipeline.
type Config struct {
	// ChunkSize is the maximum number of runes per chunk.
	// Defaults to splitter.DefaultChunkSize if zero.
	ChunkSize int

	// ChunkOverlap is the number of runes shared between consecutive
	// chunks. Defaults to splitter.DefaultOverlap if zero.
	ChunkOverlap int
}

// Pipeline orchestrates the load → chunk → embed → index flow for one
// session's file set.
type Pipeline struct {
	manager  *index.Manager
	splitter *splitter.Splitter
}

// NewPipeline constructs a Pipeline from the provided index manager and
// config.
func NewPipeline(manager *index.Manager, cfg *Config) (*Pipeline, error) {
	if manager == nil {
		return nil, fmt.Errorf("ingestion: index manager must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = splitter.DefaultChunkSize
	}
	if cfg.ChunkOverlap <= 0 {
		cfg.ChunkOverlap = splitter.DefaultOverlap
	}
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = cfg.ChunkSize / 10
	}

	return &Pipeline{
		manager:  manager,
		splitter: &splitter.Splitter{ChunkSize: cfg.ChunkSize, Overlap: cfg.ChunkOverlap},
	}, nil
}

// Ingest rebuilds the session's index from the given file paths. The file
// list is the session's complete current set — the rebuild replaces the
// previous index wholesale, which is what makes file removal work: removing
// a file is re-ingesting the remainder.
//
// On failure the session's previous index is left untouched.
func (p *Pipeline) Ingest(ctx context.Context, sessionID string, paths []string) error {
	log := logging.FromContext(ctx)

	if len(paths) == 0 {
		return ErrNoValidText
	}

	docs := loader.Load(ctx, paths)
	if len(docs) == 0 {
		return ErrNoValidText
	}

	chunks := p.splitter.Split(docs)
	if len(chunks) == 0 {
		return ErrChunkingFailed
	}
	log.Debug("ingestion: chunked session files",
		slog.String("session_id", sessionID),
		slog.Int("files", len(paths)),
		slog.Int("documents", len(docs)),
		slog.Int("chunks", len(chunks)),
	)

	if err := p.manager.Build(ctx, sessionID, chunks); err != nil {
		return fmt.Errorf("ingestion: build index for session %q: %w", sessionID, err)
	}

	log.Info("ingestion: session index rebuilt",
		slog.String("session_id", sessionID),
		slog.Int("chunks", len(chunks)),
	)
	return nil
}
