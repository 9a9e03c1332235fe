package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/ronak8180/DocuMind/internal/answer"
	"github.com/ronak8180/DocuMind/internal/history"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// UploadDir is the directory where per-session uploads are stored.
	// Defaults to "uploads" if empty.
	UploadDir string
	// HistoryDepth is the number of recent transcript messages injected into
	// the model context per question. Defaults to 10 if zero.
	HistoryDepth int
	// MaxUploadBytes caps the size of one upload request body.
	// Defaults to 32 MiB if zero.
	MaxUploadBytes int64
}

// Answerer is the interface handleChat calls to produce an answer.
// *answer.Answerer satisfies it; tests inject a fake.
type Answerer interface {
	Answer(ctx context.Context, sessionID, query string, history []*schema.Message) answer.Result
}

// Ingester is the interface the upload and file-delete handlers call to
// rebuild a session's index. *ingestion.Pipeline satisfies it.
type Ingester interface {
	Ingest(ctx context.Context, sessionID string, paths []string) error
}

// IndexAdmin is the slice of the index manager the handlers need for
// session teardown. *index.Manager satisfies it.
type IndexAdmin interface {
	Delete(ctx context.Context, sessionID string) error
}

// Deps bundles the collaborators the server dispatches to.
type Deps struct {
	// Answerer produces grounded answers for POST /api/chat.
	Answerer Answerer
	// Ingester rebuilds session indexes on upload and file removal.
	Ingester Ingester
	// Indexes tears down session indexes on session delete.
	Indexes IndexAdmin
	// History is the session/transcript/file store.
	History *history.Store
}

// Server is the HTTP server that exposes the document chat API.
type Server struct {
	// deps holds the answerer, ingester, index admin, and history store.
	deps *Deps
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the Prometheus metrics for this server instance.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// chatRequest is the JSON body for POST /api/chat.
type chatRequest struct {
	// SessionID identifies which session's documents to answer from.
	SessionID string `json:"session_id"`
	// Message is the user's question.
	Message string `json:"message"`
}

// chatResponse is the JSON response for POST /api/chat.
type chatResponse struct {
	Answer  string          `json:"answer"`
	Sources []answer.Source `json:"sources"`
}

// sessionResponse is the JSON shape of one session in list and create
// responses.
type sessionResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt int64  `json:"created_at"`
}

// sessionDetailResponse is the JSON response for GET /api/sessions/{id}.
type sessionDetailResponse struct {
	sessionResponse
	Messages []transcriptMessage `json:"messages"`
}

// transcriptMessage is one transcript turn in a session detail response.
type transcriptMessage struct {
	Role      string          `json:"role"`
	Content   string          `json:"content"`
	Sources   json.RawMessage `json:"sources,omitempty"`
	CreatedAt int64           `json:"created_at"`
}

// uploadResponse is the JSON response for POST /api/upload.
type uploadResponse struct {
	// Message is a human-readable summary of the upload outcome.
	Message string `json:"message"`
	// Files is the session's complete file list after the upload.
	Files []string `json:"files"`
}

// filesResponse is the JSON response for GET /api/files.
type filesResponse struct {
	Files []string `json:"files"`
}

// deleteFileRequest is the JSON body for POST /api/files/delete.
type deleteFileRequest struct {
	SessionID string `json:"session_id"`
	// Name is the file name to remove from the session.
	Name string `json:"name"`
}
