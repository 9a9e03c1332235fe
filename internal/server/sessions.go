package server

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/ronak8180/DocuMind/internal/history"
	"github.com/ronak8180/DocuMind/internal/index"
	"github.com/ronak8180/DocuMind/internal/logging"
)

// defaultSessionTitle is the title of a session before its first message.
const defaultSessionTitle = "New Chat"

// handleSessionCreate handles POST /api/sessions and creates a new chat
// session with a generated id.
func (s *Server) handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	id := uuid.NewString()
	if err := s.deps.History.CreateSession(r.Context(), id, defaultSessionTitle); err != nil {
		log.Error("session create failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	sess, err := s.deps.History.GetSession(r.Context(), id)
	if err != nil {
		log.Error("session lookup failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	log.Info("session created", slog.String("session_id", id))
	writeJSON(w, http.StatusCreated, sessionResponse{
		ID:        sess.ID,
		Title:     sess.Title,
		CreatedAt: sess.CreatedAt.Unix(),
	})
}

// handleSessionList handles GET /api/sessions and returns all sessions,
// newest first.
func (s *Server) handleSessionList(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	sessions, err := s.deps.History.ListSessions(r.Context())
	if err != nil {
		log.Error("session list failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := make([]sessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		resp = append(resp, sessionResponse{
			ID:        sess.ID,
			Title:     sess.Title,
			CreatedAt: sess.CreatedAt.Unix(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleSessionGet handles GET /api/sessions/{id} and returns the session
// with its full transcript, oldest message first.
func (s *Server) handleSessionGet(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())
	ctx := r.Context()
	id := r.PathValue("id")

	sess, err := s.deps.History.GetSession(ctx, id)
	if err != nil {
		if errors.Is(err, history.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		log.Error("session lookup failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	msgs, err := s.deps.History.Messages(ctx, id)
	if err != nil {
		log.Error("transcript load failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	transcript := make([]transcriptMessage, 0, len(msgs))
	for _, m := range msgs {
		transcript = append(transcript, transcriptMessage{
			Role:      string(m.Role),
			Content:   m.Content,
			Sources:   m.Sources,
			CreatedAt: m.CreatedAt.Unix(),
		})
	}

	writeJSON(w, http.StatusOK, sessionDetailResponse{
		sessionResponse: sessionResponse{
			ID:        sess.ID,
			Title:     sess.Title,
			CreatedAt: sess.CreatedAt.Unix(),
		},
		Messages: transcript,
	})
}

// handleSessionDelete handles DELETE /api/sessions/{id}. It removes the
// transcript, the session's index, and any stored uploads. Deleting an
// unknown session succeeds.
func (s *Server) handleSessionDelete(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())
	ctx := r.Context()
	id := r.PathValue("id")

	if id == "" {
		writeError(w, http.StatusBadRequest, "session id is required")
		return
	}

	if err := s.deps.History.DeleteSession(ctx, id); err != nil {
		log.Error("session delete failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if err := s.deps.Indexes.Delete(ctx, id); err != nil {
		log.Error("index delete failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	dir := filepath.Join(s.cfg.UploadDir, index.Normalize(id))
	if err := os.RemoveAll(dir); err != nil {
		log.Warn("upload dir removal failed", slog.String("dir", dir), slog.Any("error", err))
	}

	log.Info("session deleted", slog.String("session_id", id))
	w.WriteHeader(http.StatusNoContent)
}
