// Package chat implements document-grounded question answering over
// the vector index.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"safetyagent-backend/internal/llm"
	"safetyagent-backend/internal/shared/metrics"
	"safetyagent-backend/internal/shared/telemetry"
	"safetyagent-backend/internal/vectorstore"
)

// ErrEmptyMessage is returned when the question is blank.
var ErrEmptyMessage = errors.New("message is required")

// NoMatchAnswer is returned when no stored chunk clears the similarity
// threshold. The model is never called in that case.
const NoMatchAnswer = "I could not find information about that in the knowledge base. Try uploading the relevant safety documents first."

const maxSourceExcerpt = 200

// Source attributes part of an answer to a stored document chunk.
type Source struct {
	DocumentID string  `json:"document_id"`
	FileName   string  `json:"file_name"`
	Excerpt    string  `json:"excerpt"`
	Similarity float32 `json:"similarity"`
}

// Answer is the outcome of one question.
type Answer struct {
	Answer     string    `json:"answer"`
	Sources    []Source  `json:"sources"`
	Confidence float64   `json:"confidence"`
	SessionID  string    `json:"session_id"`
	Timestamp  time.Time `json:"timestamp"`
}

// Service answers questions from the knowledge base.
type Service struct {
	Embedder  llm.Embedder
	Generator llm.Generator
	Vectors   *vectorstore.Store

	TopK          int
	MinSimilarity float64
}

// Ask embeds the question, retrieves the nearest chunks, and generates
// a grounded answer. Questions with no qualifying match get the
// explicit no-match answer with confidence 0.
func (s *Service) Ask(ctx context.Context, message, sessionID string) (Answer, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Answer{}, ErrEmptyMessage
	}

	started := time.Now()
	metrics.IncChatQuery()

	answer, err := s.ask(ctx, message, sessionID)
	if err != nil {
		if errors.Is(err, llm.ErrUpstream) {
			metrics.IncChatUpstreamError()
		}
		return Answer{}, err
	}
	metrics.ObserveChatDurationMs(float64(time.Since(started).Milliseconds()))
	return answer, nil
}

func (s *Service) ask(ctx context.Context, message, sessionID string) (Answer, error) {
	embedding, err := s.Embedder.Embed(ctx, message)
	if err != nil {
		return Answer{}, fmt.Errorf("embed question: %w", err)
	}

	matches, err := s.Vectors.Query(ctx, embedding, s.TopK)
	if err != nil {
		return Answer{}, err
	}

	qualified := matches[:0:0]
	for _, m := range matches {
		if float64(m.Similarity) >= s.MinSimilarity {
			qualified = append(qualified, m)
		}
	}

	now := time.Now().UTC()
	if len(qualified) == 0 {
		metrics.IncChatNoMatch()
		telemetry.Info("chat no match", map[string]any{
			"session_id": sessionID,
			"candidates": len(matches),
		})
		return Answer{
			Answer:     NoMatchAnswer,
			Sources:    []Source{},
			Confidence: 0,
			SessionID:  sessionID,
			Timestamp:  now,
		}, nil
	}

	contexts := make([]llm.ContextChunk, 0, len(qualified))
	for _, m := range qualified {
		contexts = append(contexts, llm.ContextChunk{FileName: m.FileName, Content: m.Content})
	}
	text, err := s.Generator.Complete(ctx, llm.BuildChatMessages(message, contexts))
	if err != nil {
		return Answer{}, fmt.Errorf("generate answer: %w", err)
	}

	sources := make([]Source, 0, len(qualified))
	for _, m := range qualified {
		sources = append(sources, Source{
			DocumentID: m.DocumentID,
			FileName:   m.FileName,
			Excerpt:    Truncate(m.Content, maxSourceExcerpt),
			Similarity: m.Similarity,
		})
	}

	confidence := float64(len(sources)) / 5.0
	if confidence > 1.0 {
		confidence = 1.0
	}

	return Answer{
		Answer:     text,
		Sources:    sources,
		Confidence: confidence,
		SessionID:  sessionID,
		Timestamp:  now,
	}, nil
}

// Truncate shortens s to at most n runes, appending an ellipsis when
// text was cut.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimSpace(string(runes[:n])) + "..."
}
