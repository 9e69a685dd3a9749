package documents

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"safetyagent-backend/internal/chunker"
	"safetyagent-backend/internal/extract"
	"safetyagent-backend/internal/llm"
	"safetyagent-backend/internal/shared/metrics"
	"safetyagent-backend/internal/shared/storage/object"
	"safetyagent-backend/internal/shared/telemetry"
	"safetyagent-backend/internal/vectorstore"
)

// Service implements document ingestion and knowledge-base management.
type Service struct {
	Store    object.ObjectStore
	Repo     DocumentsRepo
	Vectors  *vectorstore.Store
	Embedder llm.Embedder
	Chunker  *chunker.Chunker

	// VectorStorePath is reported by Stats; empty for in-memory stores.
	VectorStorePath string
}

// Upload ingests a file: it persists the original bytes, extracts and
// chunks the text, embeds the chunks, and records the document. The
// document list is left unchanged when any step fails.
func (s *Service) Upload(ctx context.Context, fileName, category string, r io.Reader) (Document, error) {
	started := time.Now()
	metrics.IncIngestStarted()

	doc, err := s.upload(ctx, fileName, category, r)
	if err != nil {
		metrics.IncIngestFailed()
		return Document{}, err
	}
	metrics.IncIngestCompleted()
	metrics.ObserveIngestDurationMs(float64(time.Since(started).Milliseconds()))
	return doc, nil
}

func (s *Service) upload(ctx context.Context, fileName, category string, r io.Reader) (Document, error) {
	fileName = strings.TrimSpace(fileName)
	if fileName == "" {
		return Document{}, fmt.Errorf("%w: file name is required", ErrInvalidInput)
	}
	if !extract.IsSupported(fileName) {
		return Document{}, fmt.Errorf("%w: %s", extract.ErrUnsupportedType, fileName)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return Document{}, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return Document{}, fmt.Errorf("%w: file is empty", ErrInvalidInput)
	}

	storageKey, size, mimeType, err := s.Store.Save(ctx, fileName, bytes.NewReader(data))
	if err != nil {
		return Document{}, fmt.Errorf("store original: %w", err)
	}

	text, err := extract.Text(ctx, data, fileName)
	if err != nil {
		s.discardObject(ctx, storageKey)
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	doc := Document{
		ID:         uuid.NewString(),
		FileName:   fileName,
		Category:   strings.TrimSpace(category),
		MimeType:   mimeType,
		SizeBytes:  size,
		StorageKey: storageKey,
		UploadedAt: time.Now().UTC(),
	}

	chunkCount, err := s.index(ctx, doc, text)
	if err != nil {
		s.discardObject(ctx, storageKey)
		return Document{}, err
	}
	doc.ChunkCount = chunkCount

	if err := s.Repo.Create(ctx, doc); err != nil {
		s.discardObject(ctx, storageKey)
		if verr := s.Vectors.DeleteDocument(ctx, doc.ID); verr != nil {
			telemetry.Warn("orphaned chunks after failed create", map[string]any{
				"document_id": doc.ID,
				"err":         verr.Error(),
			})
		}
		return Document{}, fmt.Errorf("record document: %w", err)
	}

	telemetry.Info("document ingested", map[string]any{
		"document_id": doc.ID,
		"file_name":   doc.FileName,
		"category":    doc.Category,
		"chunk_count": doc.ChunkCount,
	})
	return doc, nil
}

// index chunks and embeds text, storing the result under the document.
// Returns the number of chunks created.
func (s *Service) index(ctx context.Context, doc Document, text string) (int, error) {
	parts := s.Chunker.Split(text)
	if len(parts) == 0 {
		return 0, ErrEmptyDocument
	}

	chunks := make([]vectorstore.Chunk, 0, len(parts))
	for start := 0; start < len(parts); start += llm.EmbedBatchSize {
		end := start + llm.EmbedBatchSize
		if end > len(parts) {
			end = len(parts)
		}
		batch := parts[start:end]
		vectors, err := s.Embedder.EmbedBatch(ctx, batch)
		if err != nil {
			return 0, fmt.Errorf("embed chunks: %w", err)
		}
		for i, vec := range vectors {
			ordinal := start + i
			chunks = append(chunks, vectorstore.Chunk{
				ID:         fmt.Sprintf("%s:%d", doc.ID, ordinal),
				DocumentID: doc.ID,
				FileName:   doc.FileName,
				Category:   doc.Category,
				Index:      ordinal,
				Content:    batch[i],
				Embedding:  vec,
			})
		}
	}

	if err := s.Vectors.Add(ctx, chunks); err != nil {
		return 0, err
	}
	return len(chunks), nil
}

func (s *Service) discardObject(ctx context.Context, storageKey string) {
	if err := s.Store.Delete(ctx, storageKey); err != nil {
		telemetry.Warn("discard stored object failed", map[string]any{
			"storage_key": storageKey,
			"err":         err.Error(),
		})
	}
}

// List returns all document records, newest first.
func (s *Service) List(ctx context.Context) ([]Document, error) {
	return s.Repo.List(ctx)
}

// Delete removes a document, its chunks, and its stored original.
func (s *Service) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: document id is required", ErrInvalidInput)
	}
	doc, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Vectors.DeleteDocument(ctx, id); err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}
	if doc.StorageKey != "" {
		s.discardObject(ctx, doc.StorageKey)
	}
	telemetry.Info("document deleted", map[string]any{
		"document_id": id,
		"file_name":   doc.FileName,
	})
	return nil
}

// Search runs a raw similarity query against the vector index.
func (s *Service) Search(ctx context.Context, query string, topK int) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalidInput)
	}
	embedding, err := s.Embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	matches, err := s.Vectors.Query(ctx, embedding, topK)
	if err != nil {
		return nil, err
	}
	results := make([]SearchResult, 0, len(matches))
	for _, m := range matches {
		results = append(results, SearchResult{
			DocumentID: m.DocumentID,
			FileName:   m.FileName,
			Category:   m.Category,
			Content:    m.Content,
			Similarity: m.Similarity,
		})
	}
	return results, nil
}

// Stats summarizes the knowledge base.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	docs, err := s.Repo.List(ctx)
	if err != nil {
		return Stats{}, err
	}
	byType := make(map[string]int)
	for _, doc := range docs {
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(doc.FileName), "."))
		if ext == "" {
			ext = "unknown"
		}
		byType[ext]++
	}
	return Stats{
		TotalDocuments: len(docs),
		TotalChunks:    s.Vectors.Count(),
		ByType:         byType,
		VectorStore:    s.VectorStorePath,
		ChunkSize:      s.Chunker.Size,
		ChunkOverlap:   s.Chunker.Overlap,
	}, nil
}

// Reindex rebuilds the vector index from the stored originals.
// Documents whose original can no longer be read or extracted are
// skipped with a warning.
func (s *Service) Reindex(ctx context.Context) (ReindexResult, error) {
	docs, err := s.Repo.List(ctx)
	if err != nil {
		return ReindexResult{}, err
	}
	if err := s.Vectors.Reset(); err != nil {
		return ReindexResult{}, err
	}

	var result ReindexResult
	for _, doc := range docs {
		count, err := s.reindexOne(ctx, doc)
		if err != nil {
			telemetry.Warn("reindex skipped document", map[string]any{
				"document_id": doc.ID,
				"file_name":   doc.FileName,
				"err":         err.Error(),
			})
			continue
		}
		result.DocumentsReindexed++
		result.ChunksCreated += count
	}
	telemetry.Info("reindex complete", map[string]any{
		"documents": result.DocumentsReindexed,
		"chunks":    result.ChunksCreated,
	})
	return result, nil
}

func (s *Service) reindexOne(ctx context.Context, doc Document) (int, error) {
	rc, err := s.Store.Open(ctx, doc.StorageKey)
	if err != nil {
		return 0, fmt.Errorf("open original: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return 0, fmt.Errorf("read original: %w", err)
	}
	text, err := extract.Text(ctx, data, doc.FileName)
	if err != nil {
		return 0, err
	}
	count, err := s.index(ctx, doc, text)
	if err != nil {
		return 0, err
	}
	if count != doc.ChunkCount {
		if err := s.Repo.SetChunkCount(ctx, doc.ID, count); err != nil {
			return 0, err
		}
	}
	return count, nil
}
