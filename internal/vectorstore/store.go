// Package vectorstore wraps the embedded chromem-go database behind
// the operations the ingestion and chat services need.
package vectorstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/philippgille/chromem-go"
)

const collectionName = "safety_documents"

// Chunk is one embedded slice of a source document.
type Chunk struct {
	ID         string
	DocumentID string
	FileName   string
	Category   string
	Index      int
	Content    string
	Embedding  []float32
}

// Match is a retrieved chunk with its cosine similarity to the query.
type Match struct {
	ID         string
	DocumentID string
	FileName   string
	Category   string
	Content    string
	Similarity float32
}

// Store holds document chunk embeddings and serves similarity queries.
// The collection pointer is swapped by Reset, so every access goes
// through col under the read lock.
type Store struct {
	db *chromem.DB

	mu         sync.RWMutex
	collection *chromem.Collection
}

func (s *Store) col() *chromem.Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collection
}

// New opens a persistent store rooted at path. Existing data is
// reloaded on open.
func New(path string) (*Store, error) {
	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("open vector store: %w", err)
	}
	return newStore(db)
}

// NewInMemory returns a store without persistence, used in dev mode
// and tests.
func NewInMemory() (*Store, error) {
	return newStore(chromem.NewDB())
}

func newStore(db *chromem.DB) (*Store, error) {
	// Embeddings always arrive precomputed, so no embedding func is
	// registered on the collection.
	col, err := db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("open collection: %w", err)
	}
	return &Store{db: db, collection: col}, nil
}

// Add stores a batch of chunks. Every chunk must carry an embedding.
func (s *Store) Add(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	ids := make([]string, len(chunks))
	embeddings := make([][]float32, len(chunks))
	metadatas := make([]map[string]string, len(chunks))
	contents := make([]string, len(chunks))
	for i, ch := range chunks {
		if len(ch.Embedding) == 0 {
			return fmt.Errorf("chunk %s has no embedding", ch.ID)
		}
		ids[i] = ch.ID
		embeddings[i] = ch.Embedding
		metadatas[i] = map[string]string{
			"document_id": ch.DocumentID,
			"file_name":   ch.FileName,
			"category":    ch.Category,
			"chunk_index": fmt.Sprintf("%d", ch.Index),
		}
		contents[i] = ch.Content
	}
	if err := s.col().Add(ctx, ids, embeddings, metadatas, contents); err != nil {
		return fmt.Errorf("add chunks: %w", err)
	}
	return nil
}

// Query returns up to topK chunks ranked by similarity to the query
// embedding. An empty store yields no matches.
func (s *Store) Query(ctx context.Context, embedding []float32, topK int) ([]Match, error) {
	col := s.col()
	count := col.Count()
	if count == 0 || topK <= 0 {
		return nil, nil
	}
	if topK > count {
		topK = count
	}
	results, err := col.QueryEmbedding(ctx, embedding, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query vector store: %w", err)
	}
	matches := make([]Match, 0, len(results))
	for _, r := range results {
		matches = append(matches, Match{
			ID:         r.ID,
			DocumentID: r.Metadata["document_id"],
			FileName:   r.Metadata["file_name"],
			Category:   r.Metadata["category"],
			Content:    r.Content,
			Similarity: r.Similarity,
		})
	}
	return matches, nil
}

// DeleteDocument removes every chunk belonging to the document.
func (s *Store) DeleteDocument(ctx context.Context, documentID string) error {
	col := s.col()
	if col.Count() == 0 {
		return nil
	}
	where := map[string]string{"document_id": documentID}
	if err := col.Delete(ctx, where, nil); err != nil {
		return fmt.Errorf("delete document chunks: %w", err)
	}
	return nil
}

// Count reports the number of stored chunks.
func (s *Store) Count() int {
	return s.col().Count()
}

// Reset drops all stored chunks, used before a full reindex.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.DeleteCollection(collectionName); err != nil {
		return fmt.Errorf("reset vector store: %w", err)
	}
	col, err := s.db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return fmt.Errorf("recreate collection: %w", err)
	}
	s.collection = col
	return nil
}
