package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"

	"github.com/ronak8180/DocuMind/internal/answer"
	"github.com/ronak8180/DocuMind/internal/history"
)

// ---------------------------------------------------------------------------
// POST /api/chat — validation error paths
// ---------------------------------------------------------------------------

func TestHandleChat_InvalidJSON(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`not-json`))
	w := httptest.NewRecorder()

	s.handleChat(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestHandleChat_MissingMessage(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/chat",
		strings.NewReader(`{"session_id":"s1"}`))
	w := httptest.NewRecorder()

	s.handleChat(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestHandleChat_UnknownSession(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/chat",
		strings.NewReader(`{"session_id":"nope","message":"hi"}`))
	w := httptest.NewRecorder()

	s.handleChat(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// POST /api/chat — happy path
// ---------------------------------------------------------------------------

// TestHandleChat_Success verifies the full exchange: the answer and sources
// come back as JSON, both turns land in the transcript, and the first
// question becomes the session title.
func TestHandleChat_Success(t *testing.T) {
	t.Parallel()

	s, f := newTestServer(t)
	mustCreateSession(t, f.history, "s1")
	f.answerer.result = answer.Result{
		Answer:  "The report covers Q3 revenue.",
		Sources: []answer.Source{{Name: "report.pdf", Content: "Q3 revenue grew..."}},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/chat",
		strings.NewReader(`{"session_id":"s1","message":"what does the report cover?"}`))
	w := httptest.NewRecorder()

	s.handleChat(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d — body: %s", w.Code, w.Body.String())
	}

	var resp chatResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Answer != "The report covers Q3 revenue." {
		t.Errorf("answer: got %q", resp.Answer)
	}
	if len(resp.Sources) != 1 || resp.Sources[0].Name != "report.pdf" {
		t.Errorf("sources: got %+v", resp.Sources)
	}

	if f.answerer.lastSession != "s1" {
		t.Errorf("answerer session: got %q", f.answerer.lastSession)
	}
	if f.answerer.lastQuery != "what does the report cover?" {
		t.Errorf("answerer query: got %q", f.answerer.lastQuery)
	}

	msgs, err := f.history.Messages(context.Background(), "s1")
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 persisted turns, got %d", len(msgs))
	}
	if msgs[0].Role != history.RoleUser || msgs[1].Role != history.RoleAssistant {
		t.Errorf("turn roles: got %q, %q", msgs[0].Role, msgs[1].Role)
	}
	if len(msgs[0].Sources) != 0 {
		t.Errorf("user turn should have no sources, got %s", msgs[0].Sources)
	}
	if !strings.Contains(string(msgs[1].Sources), "report.pdf") {
		t.Errorf("assistant turn sources: got %s", msgs[1].Sources)
	}

	sess, err := f.history.GetSession(context.Background(), "s1")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if sess.Title != "what does the report cover?" {
		t.Errorf("title: got %q", sess.Title)
	}
}

// TestHandleChat_TitleTruncation verifies that a long first question is cut
// to 30 runes with an ellipsis.
func TestHandleChat_TitleTruncation(t *testing.T) {
	t.Parallel()

	s, f := newTestServer(t)
	mustCreateSession(t, f.history, "s1")

	long := strings.Repeat("a", 50)
	req := httptest.NewRequest(http.MethodPost, "/api/chat",
		strings.NewReader(`{"session_id":"s1","message":"`+long+`"}`))
	w := httptest.NewRecorder()

	s.handleChat(w, req)

	sess, err := f.history.GetSession(context.Background(), "s1")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	want := strings.Repeat("a", 30) + "..."
	if sess.Title != want {
		t.Errorf("title: expected %q, got %q", want, sess.Title)
	}
}

// TestHandleChat_TitleSetOnce verifies that only the first question names the
// session.
func TestHandleChat_TitleSetOnce(t *testing.T) {
	t.Parallel()

	s, f := newTestServer(t)
	mustCreateSession(t, f.history, "s1")

	for _, msg := range []string{"first question", "second question"} {
		req := httptest.NewRequest(http.MethodPost, "/api/chat",
			strings.NewReader(`{"session_id":"s1","message":"`+msg+`"}`))
		s.handleChat(httptest.NewRecorder(), req)
	}

	sess, err := f.history.GetSession(context.Background(), "s1")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if sess.Title != "first question" {
		t.Errorf("title: expected %q, got %q", "first question", sess.Title)
	}
}

// TestHandleChat_HistoryReplay verifies that prior turns are passed to the
// answerer in transcript order.
func TestHandleChat_HistoryReplay(t *testing.T) {
	t.Parallel()

	s, f := newTestServer(t)
	mustCreateSession(t, f.history, "s1")

	ctx := context.Background()
	if err := f.history.AppendMessage(ctx, "s1", history.RoleUser, "earlier question", nil); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := f.history.AppendMessage(ctx, "s1", history.RoleAssistant, "earlier answer", nil); err != nil {
		t.Fatalf("append: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/chat",
		strings.NewReader(`{"session_id":"s1","message":"follow-up"}`))
	s.handleChat(httptest.NewRecorder(), req)

	got := f.answerer.lastHistory
	if len(got) != 2 {
		t.Fatalf("expected 2 history messages, got %d", len(got))
	}
	if got[0].Role != schema.User || got[0].Content != "earlier question" {
		t.Errorf("history[0]: got role=%s content=%q", got[0].Role, got[0].Content)
	}
	if got[1].Role != schema.Assistant || got[1].Content != "earlier answer" {
		t.Errorf("history[1]: got role=%s content=%q", got[1].Role, got[1].Content)
	}
}

// TestHandleChat_ErrorAnswerStillPersisted verifies that an in-band error
// answer is returned with 200 and both turns are still recorded.
func TestHandleChat_ErrorAnswerStillPersisted(t *testing.T) {
	t.Parallel()

	s, f := newTestServer(t)
	mustCreateSession(t, f.history, "s1")
	f.answerer.result = answer.Result{Answer: "Error generating answer: model unavailable"}

	req := httptest.NewRequest(http.MethodPost, "/api/chat",
		strings.NewReader(`{"session_id":"s1","message":"hi"}`))
	w := httptest.NewRecorder()

	s.handleChat(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	msgs, err := f.history.Messages(context.Background(), "s1")
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Errorf("expected 2 persisted turns, got %d", len(msgs))
	}
}
