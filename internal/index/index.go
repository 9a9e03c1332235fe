// Package index manages per-session vector indexes. Each session owns an
// isolated index identified by its session ID; the Manager embeds chunks,
// rebuilds indexes atomically, and serialises all writes to the same session
// behind a per-session lock so a rebuild never races a query or a delete.
package index

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ronak8180/DocuMind/internal/rag"
)

// ErrNotFound is returned when no index exists for the requested session.
// Callers treat this as "nothing ingested yet", not as a failure.
var ErrNotFound = errors.New("index: not found")

// ErrCorrupt is returned when an index exists on disk but cannot be read
// back. Unlike ErrNotFound this is a real failure and must surface to the
// operator rather than silently behaving like an empty session.
var ErrCorrupt = errors.New("index: corrupt")

// globalID is the index identity used when the session ID is empty.
const globalID = "global"

// Backend stores and searches the vectors for one index identity.
// Implementations must make Replace all-or-nothing: a failed Replace leaves
// the previous index contents intact.
type Backend interface {
	// Replace atomically swaps the full contents of the identity's index.
	Replace(ctx context.Context, id string, chunks []rag.Chunk, vectors [][]float32) error

	// Search returns the top-k chunks by cosine similarity.
	// Returns ErrNotFound when the identity has no index.
	Search(ctx context.Context, id string, vector []float32, topK int) ([]rag.ScoredChunk, error)

	// Exists reports whether the identity has an index.
	Exists(ctx context.Context, id string) (bool, error)

	// Delete removes the identity's index. Deleting a missing index is not
	// an error.
	Delete(ctx context.Context, id string) error

	// Close releases any held resources.
	Close() error
}

// Manager coordinates embedding and per-session index access on top of a
// Backend. It is safe for concurrent use.
type Manager struct {
	embedder rag.Embedder
	backend  Backend

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewManager returns a Manager using the given embedder and backend.
func NewManager(embedder rag.Embedder, backend Backend) *Manager {
	return &Manager{
		embedder: embedder,
		backend:  backend,
		locks:    map[string]*sync.Mutex{},
	}
}

// lock returns the mutex guarding the given index identity, creating it on
// first use. Lock objects are never removed: a session's lock must outlive
// its index so a delete cannot race a concurrent rebuild.
func (m *Manager) lock(id string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[id]
	if !ok {
		l = &sync.Mutex{}
		m.locks[id] = l
	}
	return l
}

// Build embeds the chunks and replaces the session's index with them. The
// previous index contents survive if embedding or the backend swap fails.
func (m *Manager) Build(ctx context.Context, sessionID string, chunks []rag.Chunk) error {
	if len(chunks) == 0 {
		return fmt.Errorf("index: no chunks to build from")
	}
	id := Normalize(sessionID)

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := m.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("index: embed %d chunks: %w", len(chunks), err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("index: embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	l := m.lock(id)
	l.Lock()
	defer l.Unlock()
	return m.backend.Replace(ctx, id, chunks, vectors)
}

// Retrieve embeds the query and returns the session's top-k most similar
// chunks in descending score order. Returns ErrNotFound when the session has
// no index. Retrieve satisfies rag.Retriever.
func (m *Manager) Retrieve(ctx context.Context, sessionID, query string, topK int) ([]rag.ScoredChunk, error) {
	id := Normalize(sessionID)

	vectors, err := m.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("index: embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("index: embedder returned %d vectors for the query", len(vectors))
	}

	l := m.lock(id)
	l.Lock()
	defer l.Unlock()
	return m.backend.Search(ctx, id, vectors[0], topK)
}

// Exists reports whether the session has a built index.
func (m *Manager) Exists(ctx context.Context, sessionID string) (bool, error) {
	id := Normalize(sessionID)
	l := m.lock(id)
	l.Lock()
	defer l.Unlock()
	return m.backend.Exists(ctx, id)
}

// Delete removes the session's index. Deleting a session that was never
// built is a no-op.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	id := Normalize(sessionID)
	l := m.lock(id)
	l.Lock()
	defer l.Unlock()
	return m.backend.Delete(ctx, id)
}

// Close releases the backend's resources.
func (m *Manager) Close() error {
	return m.backend.Close()
}

// Normalize maps a session ID onto a safe index identity: lowercase, with
// anything outside [a-z0-9_-] replaced by '_'. The empty session ID maps to
// the shared "global" identity.
func Normalize(sessionID string) string {
	if sessionID == "" {
		return globalID
	}
	var b strings.Builder
	for _, r := range strings.ToLower(sessionID) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
