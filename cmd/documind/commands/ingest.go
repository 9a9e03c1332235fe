package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ronak8180/DocuMind/internal/embedder"
	"github.com/ronak8180/DocuMind/internal/history"
	"github.com/ronak8180/DocuMind/internal/ingestion"
	"github.com/ronak8180/DocuMind/internal/loader"
	"github.com/ronak8180/DocuMind/internal/logging"
)

// NewIngestCmd constructs the `documind ingest` command, which indexes local
// document files into a session without going through the HTTP API.
func NewIngestCmd() *cobra.Command {
	var sessionID string
	var chunkSize int
	var chunkOverlap int

	cmd := &cobra.Command{
		Use:   "ingest [files...]",
		Short: "Index local documents into a chat session",
		Long: `Extract, chunk, and embed local document files into a session index.

Supported formats: .pdf, .docx, .txt, .xlsx. The session index is rebuilt
from the given files; previously indexed content for the session is replaced.

Required environment variables:
  MODEL_PROVIDER       Embedding backend: ollama, openai, azure, gemini (default: ollama)
  EMBEDDING_*          Provider-specific overrides (see README)
  INDEX_BACKEND        Index storage: filesystem (default) or qdrant
  QDRANT_*             Qdrant connection settings (qdrant backend only)

Examples:
  documind ingest --session quarterly-review report.pdf notes.docx
  documind ingest numbers.xlsx
  INDEX_BACKEND=qdrant documind ingest --session s1 report.pdf`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.New()
			ctx := logging.WithLogger(cmd.Context(), log)

			for _, path := range args {
				if !loader.Supported(path) {
					return fmt.Errorf("ingest: unsupported file type: %s", path)
				}
			}

			if err := embedder.ValidateForIngestion(log); err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			manager, _, err := buildIndexManager(log)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer func() { _ = manager.Close() }()

			pipeline, err := ingestion.NewPipeline(manager, &ingestion.Config{
				ChunkSize:    chunkSize,
				ChunkOverlap: chunkOverlap,
			})
			if err != nil {
				return fmt.Errorf("ingest: failed to create pipeline: %w", err)
			}

			log.Info("starting ingestion",
				slog.String("session_id", sessionID),
				slog.Int("files", len(args)),
			)

			if err := pipeline.Ingest(ctx, sessionID, args); err != nil {
				if errors.Is(err, ingestion.ErrNoValidText) {
					return fmt.Errorf("ingest: no readable text found in the given files")
				}
				return fmt.Errorf("ingest: %w", err)
			}

			// Record the files against the session so the server's file
			// listing stays consistent with the index.
			if err := recordIngestedFiles(cmd, log, sessionID, args); err != nil {
				log.Warn("could not record files in history", slog.Any("error", err))
			}

			log.Info("ingestion complete",
				slog.String("session_id", sessionID),
				slog.Int("files", len(args)),
			)
			return nil
		},
	}

	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "Session to index into (default: the shared global session)")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "Maximum chunk size in characters (default 1000)")
	cmd.Flags().IntVar(&chunkOverlap, "chunk-overlap", 0, "Overlap between consecutive chunks in characters (default 100)")

	return cmd
}

// recordIngestedFiles upserts the session and its file records so `documind
// serve` lists CLI-ingested files alongside uploads.
func recordIngestedFiles(cmd *cobra.Command, log *slog.Logger, sessionID string, paths []string) error {
	hs, err := openHistory(log)
	if err != nil {
		return err
	}
	defer func() { _ = hs.Close() }()

	ctx := cmd.Context()
	id := sessionID
	if id == "" {
		id = "global"
	}
	if _, err := hs.GetSession(ctx, id); err != nil {
		if !errors.Is(err, history.ErrSessionNotFound) {
			return err
		}
		if err := hs.CreateSession(ctx, id, defaultIngestTitle(paths)); err != nil {
			return err
		}
	}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}
		if err := hs.AddFile(ctx, id, filepath.Base(p), abs); err != nil {
			return err
		}
	}
	return nil
}

// defaultIngestTitle names a CLI-created session after its first file.
func defaultIngestTitle(paths []string) string {
	if len(paths) == 0 {
		return "New Chat"
	}
	return filepath.Base(paths[0])
}
