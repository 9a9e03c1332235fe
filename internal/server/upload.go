package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/ronak8180/DocuMind/internal/history"
	"github.com/ronak8180/DocuMind/internal/index"
	"github.com/ronak8180/DocuMind/internal/ingestion"
	"github.com/ronak8180/DocuMind/internal/loader"
	"github.com/ronak8180/DocuMind/internal/logging"
)

// handleUpload handles POST /api/upload (multipart form). It stores the
// uploaded files under the session's upload directory, records them against
// the session, and rebuilds the session index over the complete file set.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	sessionID := r.FormValue("session_id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	if _, err := s.deps.History.GetSession(ctx, sessionID); err != nil {
		if errors.Is(err, history.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		log.Error("session lookup failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	parts := r.MultipartForm.File["files"]
	if len(parts) == 0 {
		writeError(w, http.StatusBadRequest, "no files provided")
		return
	}

	dir := filepath.Join(s.cfg.UploadDir, index.Normalize(sessionID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Error("upload dir create failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	var saved []string
	for _, part := range parts {
		name := filepath.Base(part.Filename)
		if name == "." || name == ".." || name == "" {
			writeError(w, http.StatusBadRequest, "invalid file name")
			return
		}
		if !loader.Supported(name) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported file type: %s", name))
			return
		}
		dst := filepath.Join(dir, name)
		if err := saveUpload(part, dst); err != nil {
			log.Error("file save failed", slog.String("file", name), slog.Any("error", err))
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if err := s.deps.History.AddFile(ctx, sessionID, name, dst); err != nil {
			log.Error("file record failed", slog.String("file", name), slog.Any("error", err))
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		saved = append(saved, name)
	}
	s.metrics.uploadedFilesTotal.Add(float64(len(saved)))

	// Rebuild over the full session file set so previously uploaded files
	// stay searchable alongside the new ones.
	files, err := s.deps.History.Files(ctx, sessionID)
	if err != nil {
		log.Error("file list failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	paths := make([]string, 0, len(files))
	names := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, f.Path)
		names = append(names, f.Name)
	}

	start := time.Now()
	err = s.deps.Ingester.Ingest(ctx, sessionID, paths)
	s.metrics.ingestDurationSeconds.WithLabelValues("upload").Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.ingestsTotal.WithLabelValues("upload", "error").Inc()
		if errors.Is(err, ingestion.ErrNoValidText) || errors.Is(err, ingestion.ErrChunkingFailed) {
			writeError(w, http.StatusBadRequest, "no readable text found in uploaded files")
			return
		}
		log.Error("ingest failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to index uploaded files")
		return
	}
	s.metrics.ingestsTotal.WithLabelValues("upload", "ok").Inc()

	log.Info("files ingested",
		slog.String("session_id", sessionID),
		slog.Int("uploaded", len(saved)),
		slog.Int("total", len(files)),
		slog.Duration("duration", time.Since(start)),
	)

	writeJSON(w, http.StatusOK, uploadResponse{
		Message: fmt.Sprintf("Uploaded %d file(s)", len(saved)),
		Files:   names,
	})
}

// saveUpload copies one multipart file part to dst.
func saveUpload(part *multipart.FileHeader, dst string) error {
	src, err := part.Open()
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return fmt.Errorf("write %s: %w", dst, err)
	}
	return out.Close()
}
