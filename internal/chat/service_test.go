package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"safetyagent-backend/internal/llm"
	"safetyagent-backend/internal/vectorstore"
)

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return f.vec, f.err
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vec
	}
	return out, nil
}

type fakeGenerator struct {
	reply string
	err   error
	calls int
	got   []llm.ChatMessage
}

func (f *fakeGenerator) Complete(ctx context.Context, messages []llm.ChatMessage) (string, error) {
	f.calls++
	f.got = messages
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func seededService(t *testing.T, gen *fakeGenerator, emb *fakeEmbedder) *Service {
	t.Helper()
	store, err := vectorstore.NewInMemory()
	if err != nil {
		t.Fatalf("NewInMemory: %v", err)
	}
	err = store.Add(context.Background(), []vectorstore.Chunk{
		{
			ID:         "doc-1:0",
			DocumentID: "doc-1",
			FileName:   "fire-safety.pdf",
			Content:    "Fire extinguishers must be inspected every month by a trained officer.",
			Embedding:  []float32{1, 0, 0},
		},
		{
			ID:         "doc-2:0",
			DocumentID: "doc-2",
			FileName:   "ppe.docx",
			Content:    "Hard hats are mandatory in all marked zones.",
			Embedding:  []float32{0, 1, 0},
		},
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	return &Service{
		Embedder:      emb,
		Generator:     gen,
		Vectors:       store,
		TopK:          5,
		MinSimilarity: 0.70,
	}
}

func TestAskRejectsEmptyMessage(t *testing.T) {
	svc := seededService(t, &fakeGenerator{}, &fakeEmbedder{vec: []float32{1, 0, 0}})
	_, err := svc.Ask(context.Background(), "   ", "s-1")
	if !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
}

func TestAskAnswersFromMatchingChunks(t *testing.T) {
	gen := &fakeGenerator{reply: "Extinguishers are inspected monthly."}
	svc := seededService(t, gen, &fakeEmbedder{vec: []float32{1, 0, 0}})

	answer, err := svc.Ask(context.Background(), "How often are extinguishers inspected?", "s-1")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if answer.Answer != "Extinguishers are inspected monthly." {
		t.Fatalf("answer = %q", answer.Answer)
	}
	if answer.SessionID != "s-1" {
		t.Fatalf("session = %q", answer.SessionID)
	}
	if len(answer.Sources) != 1 {
		t.Fatalf("expected 1 source above threshold, got %d", len(answer.Sources))
	}
	src := answer.Sources[0]
	if src.FileName != "fire-safety.pdf" || src.DocumentID != "doc-1" {
		t.Fatalf("unexpected source %+v", src)
	}
	if answer.Confidence != 0.2 {
		t.Fatalf("confidence = %v", answer.Confidence)
	}
	if answer.Timestamp.IsZero() {
		t.Fatal("timestamp not set")
	}
	// The generator receives the retrieved chunk as context.
	if gen.calls != 1 {
		t.Fatalf("generator calls = %d", gen.calls)
	}
	if !strings.Contains(gen.got[1].Content, "inspected every month") {
		t.Fatalf("prompt missing context:\n%s", gen.got[1].Content)
	}
}

func TestAskNoMatchSkipsGeneration(t *testing.T) {
	gen := &fakeGenerator{reply: "should not be used"}
	// Orthogonal to both stored chunks, so nothing clears the threshold.
	svc := seededService(t, gen, &fakeEmbedder{vec: []float32{0, 0, 1}})

	answer, err := svc.Ask(context.Background(), "What is the visitor parking policy?", "s-2")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if answer.Answer != NoMatchAnswer {
		t.Fatalf("answer = %q", answer.Answer)
	}
	if answer.Confidence != 0 {
		t.Fatalf("confidence = %v", answer.Confidence)
	}
	if len(answer.Sources) != 0 {
		t.Fatalf("expected no sources, got %v", answer.Sources)
	}
	if gen.calls != 0 {
		t.Fatal("generator should not be called without qualifying matches")
	}
}

func TestAskEmptyStoreNoMatch(t *testing.T) {
	store, err := vectorstore.NewInMemory()
	if err != nil {
		t.Fatalf("NewInMemory: %v", err)
	}
	gen := &fakeGenerator{}
	svc := &Service{
		Embedder:      &fakeEmbedder{vec: []float32{1, 0, 0}},
		Generator:     gen,
		Vectors:       store,
		TopK:          5,
		MinSimilarity: 0.70,
	}
	answer, err := svc.Ask(context.Background(), "anything?", "s-3")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if answer.Answer != NoMatchAnswer || gen.calls != 0 {
		t.Fatalf("expected no-match answer, got %q (calls %d)", answer.Answer, gen.calls)
	}
}

func TestAskPropagatesEmbedderFailure(t *testing.T) {
	upstream := fmt.Errorf("%w: status 503", llm.ErrUpstream)
	svc := seededService(t, &fakeGenerator{}, &fakeEmbedder{err: upstream})

	_, err := svc.Ask(context.Background(), "question", "s-4")
	if !errors.Is(err, llm.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}

func TestAskPropagatesGeneratorFailure(t *testing.T) {
	upstream := fmt.Errorf("%w: overloaded", llm.ErrUpstream)
	svc := seededService(t, &fakeGenerator{err: upstream}, &fakeEmbedder{vec: []float32{1, 0, 0}})

	_, err := svc.Ask(context.Background(), "question", "s-5")
	if !errors.Is(err, llm.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Fatalf("Truncate = %q", got)
	}
	got := Truncate(strings.Repeat("a", 20), 10)
	if got != strings.Repeat("a", 10)+"..." {
		t.Fatalf("Truncate = %q", got)
	}
}
