package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/ronak8180/DocuMind/internal/history"
	"github.com/ronak8180/DocuMind/internal/ingestion"
	"github.com/ronak8180/DocuMind/internal/logging"
)

// handleFilesList handles GET /api/files?session_id=... and returns the names
// of files uploaded to the session, in upload order.
func (s *Server) handleFilesList(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())
	ctx := r.Context()

	sessionID := r.URL.Query().Get("session_id")
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

	files, err := s.deps.History.Files(ctx, sessionID)
	if err != nil {
		log.Error("file list failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name)
	}
	writeJSON(w, http.StatusOK, filesResponse{Files: names})
}

// handleFileDelete handles POST /api/files/delete. It removes one file from
// the session and rebuilds the session index over the remaining files, or
// drops the index entirely when no files remain.
func (s *Server) handleFileDelete(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())
	ctx := r.Context()

	var req deleteFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.SessionID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "session_id and name are required")
		return
	}
	if _, err := s.deps.History.GetSession(ctx, req.SessionID); err != nil {
		if errors.Is(err, history.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		log.Error("session lookup failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	name := filepath.Base(req.Name)
	files, err := s.deps.History.Files(ctx, req.SessionID)
	if err != nil {
		log.Error("file list failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	var removedPath string
	remaining := make([]string, 0, len(files))
	remainingNames := make([]string, 0, len(files))
	for _, f := range files {
		if f.Name == name {
			removedPath = f.Path
			continue
		}
		remaining = append(remaining, f.Path)
		remainingNames = append(remainingNames, f.Name)
	}
	if removedPath == "" {
		writeError(w, http.StatusNotFound, "file not found in session")
		return
	}

	if err := s.deps.History.RemoveFile(ctx, req.SessionID, name); err != nil {
		log.Error("file record removal failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if err := os.Remove(removedPath); err != nil && !os.IsNotExist(err) {
		log.Warn("stored file removal failed",
			slog.String("path", removedPath), slog.Any("error", err))
	}

	if len(remaining) == 0 {
		if err := s.deps.Indexes.Delete(ctx, req.SessionID); err != nil {
			log.Error("index delete failed", slog.Any("error", err))
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, filesResponse{Files: []string{}})
		return
	}

	// Rebuild from what is left so the removed file's chunks disappear.
	start := time.Now()
	err = s.deps.Ingester.Ingest(ctx, req.SessionID, remaining)
	s.metrics.ingestDurationSeconds.WithLabelValues("remove").Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.ingestsTotal.WithLabelValues("remove", "error").Inc()
		if errors.Is(err, ingestion.ErrNoValidText) || errors.Is(err, ingestion.ErrChunkingFailed) {
			// Remaining files hold no extractable text; the old index is
			// stale now that the file is gone, so drop it.
			if derr := s.deps.Indexes.Delete(ctx, req.SessionID); derr != nil {
				log.Error("index delete failed", slog.Any("error", derr))
			}
			writeJSON(w, http.StatusOK, filesResponse{Files: remainingNames})
			return
		}
		log.Error("reindex failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to rebuild index")
		return
	}
	s.metrics.ingestsTotal.WithLabelValues("remove", "ok").Inc()

	log.Info("file removed",
		slog.String("session_id", req.SessionID),
		slog.String("file", name),
		slog.Int("remaining", len(remaining)),
	)

	writeJSON(w, http.StatusOK, filesResponse{Files: remainingNames})
}
