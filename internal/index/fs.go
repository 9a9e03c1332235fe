package index

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ronak8180/DocuMind/internal/rag"
)

// indexFileName is the single persisted artefact inside each index directory.
const indexFileName = "index.json"

// FSBackend persists one index directory per identity under a root
// directory. Writes go to a temp file in the same directory followed by a
// rename, so readers only ever see the old or the new index, never a partial
// one. Loaded indexes are cached in memory and invalidated on Replace and
// Delete.
type FSBackend struct {
	root string

	// model and dimension are recorded in every persisted index so a later
	// process can detect that the embedding configuration changed.
	model     string
	dimension int

	mu    sync.RWMutex
	cache map[string]*flatIndex
}

// FSConfig holds the settings for constructing an FSBackend.
type FSConfig struct {
	// Root is the directory that holds one subdirectory per index identity.
	Root string
	// Model is the embedding model name recorded in persisted indexes.
	Model string
	// Dimension is the embedding vector length recorded in persisted indexes.
	Dimension int
}

// NewFSBackend creates the root directory if needed and returns the backend.
func NewFSBackend(cfg *FSConfig) (*FSBackend, error) {
	if cfg.Root == "" {
		return nil, fmt.Errorf("index: fs backend requires a root directory")
	}
	if err := os.MkdirAll(cfg.Root, 0o755); err != nil {
		return nil, fmt.Errorf("index: create root %s: %w", cfg.Root, err)
	}
	return &FSBackend{
		root:      cfg.Root,
		model:     cfg.Model,
		dimension: cfg.Dimension,
		cache:     map[string]*flatIndex{},
	}, nil
}

// indexFile is the on-disk JSON layout.
type indexFile struct {
	Model     string        `json:"model"`
	Dimension int           `json:"dimension"`
	CreatedAt time.Time     `json:"created_at"`
	Chunks    []storedChunk `json:"chunks"`
}

type storedChunk struct {
	Text   string    `json:"text"`
	Source string    `json:"source"`
	Seq    int       `json:"seq"`
	Vector []float32 `json:"vector"`
}

func (b *FSBackend) dir(id string) string {
	return filepath.Join(b.root, id)
}

// Replace writes the new index to a temp file and renames it over the old
// one. The in-memory cache is updated only after the rename succeeds.
func (b *FSBackend) Replace(ctx context.Context, id string, chunks []rag.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("index: %d chunks but %d vectors", len(chunks), len(vectors))
	}

	file := indexFile{
		Model:     b.model,
		Dimension: b.dimension,
		CreatedAt: time.Now().UTC(),
		Chunks:    make([]storedChunk, len(chunks)),
	}
	for i, c := range chunks {
		file.Chunks[i] = storedChunk{
			Text:   c.Text,
			Source: c.Source,
			Seq:    c.Seq,
			Vector: vectors[i],
		}
	}

	payload, err := json.Marshal(&file)
	if err != nil {
		return fmt.Errorf("index: marshal %s: %w", id, err)
	}

	dir := b.dir(id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("index: create dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, indexFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("index: create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("index: write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("index: close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, filepath.Join(dir, indexFileName)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("index: commit %s: %w", id, err)
	}

	b.mu.Lock()
	b.cache[id] = &flatIndex{chunks: chunks, vectors: vectors}
	b.mu.Unlock()
	return nil
}

// Search loads the identity's index (from cache or disk) and scans it.
func (b *FSBackend) Search(ctx context.Context, id string, vector []float32, topK int) ([]rag.ScoredChunk, error) {
	idx, err := b.load(id)
	if err != nil {
		return nil, err
	}
	return idx.search(vector, topK), nil
}

// Exists reports whether a persisted index file is present for the identity.
func (b *FSBackend) Exists(ctx context.Context, id string) (bool, error) {
	b.mu.RLock()
	_, cached := b.cache[id]
	b.mu.RUnlock()
	if cached {
		return true, nil
	}

	_, err := os.Stat(filepath.Join(b.dir(id), indexFileName))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("index: stat %s: %w", id, err)
}

// Delete drops the identity's cache entry and removes its directory.
func (b *FSBackend) Delete(ctx context.Context, id string) error {
	b.mu.Lock()
	delete(b.cache, id)
	b.mu.Unlock()

	if err := os.RemoveAll(b.dir(id)); err != nil {
		return fmt.Errorf("index: delete %s: %w", id, err)
	}
	return nil
}

// Close is a no-op for the filesystem backend.
func (b *FSBackend) Close() error { return nil }

// load returns the cached index, reading it from disk on a cache miss.
// A missing index file maps to ErrNotFound; an unreadable one to ErrCorrupt.
func (b *FSBackend) load(id string) (*flatIndex, error) {
	b.mu.RLock()
	idx, ok := b.cache[id]
	b.mu.RUnlock()
	if ok {
		return idx, nil
	}

	path := filepath.Join(b.dir(id), indexFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("index: read %s: %w", path, err)
	}

	var file indexFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}

	idx = &flatIndex{
		chunks:  make([]rag.Chunk, len(file.Chunks)),
		vectors: make([][]float32, len(file.Chunks)),
	}
	for i, c := range file.Chunks {
		idx.chunks[i] = rag.Chunk{Text: c.Text, Source: c.Source, Seq: c.Seq}
		idx.vectors[i] = c.Vector
	}

	b.mu.Lock()
	b.cache[id] = idx
	b.mu.Unlock()
	return idx, nil
}
