package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/ronak8180/DocuMind/internal/history"
	"github.com/ronak8180/DocuMind/internal/logging"
)

// titleRunes is the number of leading query runes used when deriving a
// session title from the first message.
const titleRunes = 30

// handleChat handles POST /api/chat. It validates the session, replays recent
// transcript history into the model context, generates a grounded answer, and
// persists both turns of the exchange.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.SessionID == "" || req.Message == "" {
		writeError(w, http.StatusBadRequest, "session_id and message are required")
		return
	}

	ctx := r.Context()

	if _, err := s.deps.History.GetSession(ctx, req.SessionID); err != nil {
		if errors.Is(err, history.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		log.Error("session lookup failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	prior, err := s.deps.History.Recent(ctx, req.SessionID, s.cfg.HistoryDepth)
	if err != nil {
		log.Error("history load failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	// First message in a session becomes its title.
	if len(prior) == 0 {
		if err := s.deps.History.SetTitle(ctx, req.SessionID, deriveTitle(req.Message)); err != nil {
			log.Warn("session title update failed", slog.Any("error", err))
		}
	}

	msgs := make([]*schema.Message, 0, len(prior))
	for _, m := range prior {
		switch m.Role {
		case history.RoleUser:
			msgs = append(msgs, schema.UserMessage(m.Content))
		case history.RoleAssistant:
			msgs = append(msgs, schema.AssistantMessage(m.Content, nil))
		}
	}

	start := time.Now()
	result := s.deps.Answerer.Answer(ctx, req.SessionID, req.Message, msgs)
	outcome := "ok"
	if strings.HasPrefix(result.Answer, "Error generating answer:") {
		outcome = "error"
	}
	s.metrics.chatRequestsTotal.WithLabelValues(outcome).Inc()
	s.metrics.chatDurationSeconds.WithLabelValues(outcome).Observe(time.Since(start).Seconds())

	if err := s.deps.History.AppendMessage(ctx, req.SessionID, history.RoleUser, req.Message, nil); err != nil {
		log.Error("user turn persist failed", slog.Any("error", err))
	}
	var sources json.RawMessage
	if len(result.Sources) > 0 {
		if b, err := json.Marshal(result.Sources); err == nil {
			sources = b
		}
	}
	if err := s.deps.History.AppendMessage(ctx, req.SessionID, history.RoleAssistant, result.Answer, sources); err != nil {
		log.Error("assistant turn persist failed", slog.Any("error", err))
	}

	log.Info("chat answered",
		slog.String("session_id", req.SessionID),
		slog.Int("sources", len(result.Sources)),
		slog.Duration("duration", time.Since(start)),
	)

	writeJSON(w, http.StatusOK, chatResponse{Answer: result.Answer, Sources: result.Sources})
}

// deriveTitle builds a session title from the first user message, truncating
// long messages at a rune boundary.
func deriveTitle(query string) string {
	runes := []rune(query)
	if len(runes) <= titleRunes {
		return query
	}
	return string(runes[:titleRunes]) + "..."
}
