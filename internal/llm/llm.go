package llm

import (
	"context"
	"errors"
)

// EmbedBatchSize bounds how many chunks are sent per embeddings call.
const EmbedBatchSize = 10

// ChatMessage is one turn in a chat completion request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Embedder converts text into embedding vectors. EmbedBatch returns
// one vector per input, in input order.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator produces a chat completion for the given messages.
type Generator interface {
	Complete(ctx context.Context, messages []ChatMessage) (string, error)
}

// ErrUpstream marks provider-side failures (transport errors, non-2xx
// responses, malformed payloads) so handlers can map them to 502.
var ErrUpstream = errors.New("llm provider failure")

// ErrNotConfigured is returned by the placeholder client.
var ErrNotConfigured = errors.New("llm provider not configured")

// Placeholder satisfies Embedder and Generator when no provider is
// configured; every call fails with ErrNotConfigured.
type Placeholder struct{}

func (Placeholder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, ErrNotConfigured
}

func (Placeholder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, ErrNotConfigured
}

func (Placeholder) Complete(ctx context.Context, messages []ChatMessage) (string, error) {
	return "", ErrNotConfigured
}

var (
	_ Embedder  = Placeholder{}
	_ Generator = Placeholder{}
)
