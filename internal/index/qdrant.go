package index

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	"github.com/ronak8180/DocuMind/internal/rag"
)

// QdrantBackend maps each index identity onto its own Qdrant collection,
// named by prefixing the identity with a configured collection prefix.
// Collection-per-session keeps the isolation property trivially true and
// makes Delete a single collection drop.
type QdrantBackend struct {
	client *qdrant.Client
	cfg    *QdrantConfig
}

// QdrantConfig holds connection parameters for a Qdrant instance.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// CollectionPrefix is prepended to every index identity to form the
	// collection name (e.g. "documind_" + "abc123").
	CollectionPrefix string

	// VectorSize is the dimensionality of the stored embeddings.
	VectorSize uint64

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
}

// NewQdrantBackend connects to Qdrant and returns a ready-to-use backend.
// Collections are created lazily per identity on the first Replace.
func NewQdrantBackend(cfg *QdrantConfig) (*QdrantBackend, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.CollectionPrefix == "" {
		cfg.CollectionPrefix = "documind_"
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create client: %w", err)
	}

	return &QdrantBackend{client: client, cfg: cfg}, nil
}

func (b *QdrantBackend) collection(id string) string {
	return b.cfg.CollectionPrefix + id
}

// Client exposes the underlying Qdrant client for health probes.
func (b *QdrantBackend) Client() *qdrant.Client {
	return b.client
}

// Replace recreates the identity's collection and upserts the full chunk
// set. The drop-and-recreate is serialised by the Manager's per-identity
// lock, so no reader observes the window between drop and upsert.
func (b *QdrantBackend) Replace(ctx context.Context, id string, chunks []rag.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("qdrant: %d chunks but %d vectors", len(chunks), len(vectors))
	}
	name := b.collection(id)

	exists, err := b.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("qdrant: check collection %q: %w", name, err)
	}
	if exists {
		if err := b.client.DeleteCollection(ctx, name); err != nil {
			return fmt.Errorf("qdrant: drop collection %q: %w", name, err)
		}
	}

	size := b.cfg.VectorSize
	if size == 0 && len(vectors) > 0 {
		size = uint64(len(vectors[0]))
	}
	err = b.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     size,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant: create collection %q: %w", name, err)
	}

	points := make([]*qdrant.PointStruct, 0, len(chunks))
	for i, c := range chunks {
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(uint64(i)),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(map[string]any{
				"text":   c.Text,
				"source": c.Source,
				"seq":    int64(c.Seq),
			}),
		})
	}

	if _, err := b.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: name,
		Points:         points,
	}); err != nil {
		return fmt.Errorf("qdrant: upsert into %q: %w", name, err)
	}

	return nil
}

// Search performs a cosine similarity query against the identity's
// collection, returning ErrNotFound when the collection does not exist.
func (b *QdrantBackend) Search(ctx context.Context, id string, vector []float32, topK int) ([]rag.ScoredChunk, error) {
	name := b.collection(id)

	exists, err := b.client.CollectionExists(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("qdrant: check collection %q: %w", name, err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	limit := uint64(topK)
	results, err := b.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: name,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: search %q: %w", name, err)
	}

	scored := make([]rag.ScoredChunk, 0, len(results))
	for _, r := range results {
		sc := rag.ScoredChunk{Score: r.Score}
		if p := r.Payload; p != nil {
			if v, ok := p["text"]; ok {
				sc.Text = v.GetStringValue()
			}
			if v, ok := p["source"]; ok {
				sc.Source = v.GetStringValue()
			}
			if v, ok := p["seq"]; ok {
				sc.Seq = int(v.GetIntegerValue())
			}
		}
		scored = append(scored, sc)
	}

	return scored, nil
}

// Exists reports whether the identity's collection exists.
func (b *QdrantBackend) Exists(ctx context.Context, id string) (bool, error) {
	exists, err := b.client.CollectionExists(ctx, b.collection(id))
	if err != nil {
		return false, fmt.Errorf("qdrant: check collection %q: %w", b.collection(id), err)
	}
	return exists, nil
}

// Delete drops the identity's collection. A missing collection is not an
// error.
func (b *QdrantBackend) Delete(ctx context.Context, id string) error {
	name := b.collection(id)
	exists, err := b.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("qdrant: check collection %q: %w", name, err)
	}
	if !exists {
		return nil
	}
	if err := b.client.DeleteCollection(ctx, name); err != nil {
		return fmt.Errorf("qdrant: drop collection %q: %w", name, err)
	}
	return nil
}

// Close closes the underlying Qdrant gRPC connection.
func (b *QdrantBackend) Close() error {
	return b.client.Close()
}
