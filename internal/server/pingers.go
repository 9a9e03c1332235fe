package server

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/schema"
	"github.com/qdrant/go-client/qdrant"

	"github.com/ronak8180/DocuMind/internal/answer"
)

// LLMPinger probes the configured chat model by issuing a minimal generation
// request. A successful round trip confirms both connectivity and that the
// configured model is loadable by the backend.
type LLMPinger struct {
	generator answer.Generator
	name      string
}

// NewLLMPinger constructs an LLMPinger around the given generator. The name
// should identify the backend in readiness responses (e.g. "ollama", "openai").
func NewLLMPinger(generator answer.Generator, name string) *LLMPinger {
	return &LLMPinger{generator: generator, name: name}
}

// Ping sends a single-token prompt to the model and reports any failure.
func (p *LLMPinger) Ping(ctx context.Context) error {
	_, err := p.generator.Generate(ctx, []*schema.Message{schema.UserMessage("ping")})
	if err != nil {
		return fmt.Errorf("model probe: %w", err)
	}
	return nil
}

// Name returns the backend label.
func (p *LLMPinger) Name() string { return p.name }

// QdrantPinger probes a Qdrant instance using its health check RPC.
type QdrantPinger struct {
	client *qdrant.Client
}

// NewQdrantPinger constructs a QdrantPinger around an existing client.
func NewQdrantPinger(client *qdrant.Client) *QdrantPinger {
	return &QdrantPinger{client: client}
}

// Ping issues the Qdrant health check RPC.
func (p *QdrantPinger) Ping(ctx context.Context) error {
	if _, err := p.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant health check: %w", err)
	}
	return nil
}

// Name returns "qdrant".
func (p *QdrantPinger) Name() string { return "qdrant" }
