// Package answer implements retrieval-augmented answering over a session's
// uploaded documents. The Answerer retrieves the best-matching chunks from
// the session's index, composes a grounded prompt, and asks the chat model
// for a markdown answer. It never returns an error to the caller: every
// failure mode becomes a readable in-band answer, because the chat surface
// has no other channel to the user.
package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/ronak8180/DocuMind/internal/budget"
	"github.com/ronak8180/DocuMind/internal/index"
	"github.com/ronak8180/DocuMind/internal/logging"
	"github.com/ronak8180/DocuMind/internal/rag"
)

// Canned responses for the degenerate retrieval states.
const (
	// MsgNoDocuments is returned when the session has no index yet.
	MsgNoDocuments = "No documents uploaded for this chat yet. Please upload files to start chatting."

	// MsgNoRelevantInfo is returned when retrieval finds nothing.
	MsgNoRelevantInfo = "I'm sorry, but I couldn't find relevant information in the uploaded documents for this chat."
)

// promptTemplate grounds the model in the retrieved context and pins the
// answer format. The two %s verbs are the joined context and the question.
const promptTemplate = `You are a professional Document Assistant. Use the following context to answer the user's question accurately.

CRITICAL INSTRUCTIONS FOR READABILITY:
1. Use CLEAR MARKDOWN FORMATTING.
2. Use BULLET POINTS or NUMBERED LISTS for any series of items or steps.
3. Use **BOLD TEXT** for key terms, names, or important values.
4. Provide a SHORT summary at the start if the answer is long.
5. Use PARAGRAPH BREAKS to separate distinct ideas.
6. If the answer is not in the context, say "I'm sorry, but I couldn't find that information in the uploaded documents."

Context:
%s

Question: %s

Structured Answer:`

// previewRunes is how much of a chunk each source citation carries.
const previewRunes = 200

// Source cites one file that contributed to an answer.
type Source struct {
	// Name is the base file name.
	Name string `json:"name"`
	// Content is a preview of the first chunk retrieved from the file.
	Content string `json:"content"`
}

// Result is a complete answer with its source citations.
type Result struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// Generator is the slice of the chat model the Answerer needs.
// model.ToolCallingChatModel satisfies it.
type Generator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// Config holds the settings for constructing an Answerer.
type Config struct {
	// TopK is how many chunks to retrieve per question. Defaults to 3.
	TopK int
	// MaxContextTokens is the estimated token budget for the full prompt.
	// Defaults to budget.DefaultMaxContextTokens.
	MaxContextTokens int
}

// Answerer answers questions against one session's indexed documents.
type Answerer struct {
	model            Generator
	retriever        rag.Retriever
	topK             int
	maxContextTokens int
}

// New constructs an Answerer from the chat model and retriever.
func New(generator Generator, retriever rag.Retriever, cfg *Config) (*Answerer, error) {
	if generator == nil {
		return nil, fmt.Errorf("answer: generator must not be nil")
	}
	if retriever == nil {
		return nil, fmt.Errorf("answer: retriever must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = 3
	}
	maxCtx := cfg.MaxContextTokens
	if maxCtx <= 0 {
		maxCtx = budget.DefaultMaxContextTokens
	}
	return &Answerer{
		model:            generator,
		retriever:        retriever,
		topK:             topK,
		maxContextTokens: maxCtx,
	}, nil
}

// Answer retrieves context for the query from the session's index and
// generates a grounded answer. history carries prior conversation turns and
// may be trimmed oldest-first to fit the token budget.
//
// Answer never fails: a missing index, empty retrieval, or generation error
// all produce a Result whose Answer explains what happened.
func (a *Answerer) Answer(ctx context.Context, sessionID, query string, history []*schema.Message) Result {
	log := logging.FromContext(ctx)

	retrieved, err := a.retriever.Retrieve(ctx, sessionID, query, a.topK)
	if err != nil {
		if errors.Is(err, index.ErrNotFound) {
			return Result{Answer: MsgNoDocuments, Sources: []Source{}}
		}
		log.Error("answer: retrieval failed",
			slog.String("session_id", sessionID),
			slog.Any("error", err),
		)
		return Result{Answer: fmt.Sprintf("Error generating answer: %v", err), Sources: []Source{}}
	}
	if len(retrieved) == 0 {
		return Result{Answer: MsgNoRelevantInfo, Sources: []Source{}}
	}

	retrieved = budget.TrimContext(retrieved, a.maxContextTokens)

	parts := make([]string, len(retrieved))
	for i, sc := range retrieved {
		parts[i] = sc.Text
	}
	prompt := fmt.Sprintf(promptTemplate, strings.Join(parts, "\n\n"), query)

	fixed := []*schema.Message{schema.UserMessage(prompt)}
	history = budget.TrimHistory(fixed, history, a.maxContextTokens)

	messages := make([]*schema.Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, fixed...)

	msg, err := a.model.Generate(ctx, messages)
	if err != nil {
		log.Error("answer: generation failed",
			slog.String("session_id", sessionID),
			slog.Any("error", err),
		)
		return Result{Answer: fmt.Sprintf("Error generating answer: %v", err), Sources: []Source{}}
	}

	return Result{
		Answer:  msg.Content,
		Sources: collectSources(retrieved),
	}
}

// collectSources deduplicates the retrieved chunks by file name, first hit
// wins, preserving retrieval order. Each citation carries a preview of the
// file's best-matching chunk.
func collectSources(retrieved []rag.ScoredChunk) []Source {
	sources := make([]Source, 0, len(retrieved))
	seen := map[string]bool{}
	for _, sc := range retrieved {
		name := sc.Source
		if name == "" {
			name = "Unknown"
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		sources = append(sources, Source{
			Name:    name,
			Content: preview(sc.Text),
		})
	}
	return sources
}

// preview returns the first previewRunes runes of text followed by "...".
func preview(text string) string {
	runes := []rune(text)
	if len(runes) > previewRunes {
		runes = runes[:previewRunes]
	}
	return string(runes) + "..."
}
