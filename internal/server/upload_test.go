package server

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/ronak8180/DocuMind/internal/ingestion"
)

// multipartUpload builds a multipart/form-data request for POST /api/upload.
func multipartUpload(t *testing.T, sessionID string, files map[string]string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if sessionID != "" {
		if err := mw.WriteField("session_id", sessionID); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	for name, content := range files {
		fw, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHandleUpload_MissingSessionID(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	req := multipartUpload(t, "", map[string]string{"a.txt": "hello"})
	w := httptest.NewRecorder()

	s.handleUpload(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestHandleUpload_UnknownSession(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	req := multipartUpload(t, "nope", map[string]string{"a.txt": "hello"})
	w := httptest.NewRecorder()

	s.handleUpload(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestHandleUpload_NoFiles(t *testing.T) {
	t.Parallel()

	s, f := newTestServer(t)
	mustCreateSession(t, f.history, "s1")
	req := multipartUpload(t, "s1", nil)
	w := httptest.NewRecorder()

	s.handleUpload(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestHandleUpload_UnsupportedType(t *testing.T) {
	t.Parallel()

	s, f := newTestServer(t)
	mustCreateSession(t, f.history, "s1")
	req := multipartUpload(t, "s1", map[string]string{"image.png": "not text"})
	w := httptest.NewRecorder()

	s.handleUpload(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if len(f.ingester.calls) != 0 {
		t.Errorf("ingester should not be called for rejected uploads")
	}
}

// TestHandleUpload_Success verifies the upload is stored on disk, recorded
// against the session, and the index rebuild runs over the stored path.
func TestHandleUpload_Success(t *testing.T) {
	t.Parallel()

	s, f := newTestServer(t)
	mustCreateSession(t, f.history, "s1")

	req := multipartUpload(t, "s1", map[string]string{"notes.txt": "meeting notes"})
	w := httptest.NewRecorder()

	s.handleUpload(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d — body: %s", w.Code, w.Body.String())
	}

	stored := filepath.Join(s.cfg.UploadDir, "s1", "notes.txt")
	data, err := os.ReadFile(stored)
	if err != nil {
		t.Fatalf("stored file missing: %v", err)
	}
	if string(data) != "meeting notes" {
		t.Errorf("stored content: got %q", data)
	}

	if len(f.ingester.calls) != 1 {
		t.Fatalf("expected 1 ingest call, got %d", len(f.ingester.calls))
	}
	if len(f.ingester.calls[0]) != 1 || f.ingester.calls[0][0] != stored {
		t.Errorf("ingest paths: got %v", f.ingester.calls[0])
	}

	files, err := f.history.Files(context.Background(), "s1")
	if err != nil {
		t.Fatalf("files: %v", err)
	}
	if len(files) != 1 || files[0].Name != "notes.txt" {
		t.Errorf("recorded files: got %+v", files)
	}
}

// TestHandleUpload_ReingestsFullFileSet verifies that a second upload
// rebuilds the index over all session files, not just the new one.
func TestHandleUpload_ReingestsFullFileSet(t *testing.T) {
	t.Parallel()

	s, f := newTestServer(t)
	mustCreateSession(t, f.history, "s1")

	s.handleUpload(httptest.NewRecorder(), multipartUpload(t, "s1", map[string]string{"a.txt": "alpha"}))
	s.handleUpload(httptest.NewRecorder(), multipartUpload(t, "s1", map[string]string{"b.txt": "beta"}))

	if len(f.ingester.calls) != 2 {
		t.Fatalf("expected 2 ingest calls, got %d", len(f.ingester.calls))
	}
	if len(f.ingester.calls[1]) != 2 {
		t.Errorf("second rebuild should cover both files, got %v", f.ingester.calls[1])
	}
}

// TestHandleUpload_NoValidText verifies that files with no extractable text
// are reported as a client error.
func TestHandleUpload_NoValidText(t *testing.T) {
	t.Parallel()

	s, f := newTestServer(t)
	mustCreateSession(t, f.history, "s1")
	f.ingester.err = ingestion.ErrNoValidText

	req := multipartUpload(t, "s1", map[string]string{"blank.txt": "   "})
	w := httptest.NewRecorder()

	s.handleUpload(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

// TestHandleUpload_PathTraversalName verifies that directory components in
// the client-supplied file name are stripped before saving.
func TestHandleUpload_PathTraversalName(t *testing.T) {
	t.Parallel()

	s, f := newTestServer(t)
	mustCreateSession(t, f.history, "s1")

	req := multipartUpload(t, "s1", map[string]string{"../../evil.txt": "payload"})
	w := httptest.NewRecorder()

	s.handleUpload(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d — body: %s", w.Code, w.Body.String())
	}
	stored := filepath.Join(s.cfg.UploadDir, "s1", "evil.txt")
	if _, err := os.Stat(stored); err != nil {
		t.Errorf("expected sanitized file at %s: %v", stored, err)
	}
	outside := filepath.Join(s.cfg.UploadDir, "..", "..", "evil.txt")
	if _, err := os.Stat(outside); err == nil {
		t.Errorf("file escaped the upload dir: %s", outside)
	}
}
