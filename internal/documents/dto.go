package documents

import "time"

// DocumentResponse is the outward-facing representation of a document.
type DocumentResponse struct {
	DocumentID string    `json:"document_id"`
	FileName   string    `json:"file_name"`
	Category   string    `json:"category"`
	MimeType   string    `json:"mime_type"`
	SizeBytes  int64     `json:"size_bytes"`
	ChunkCount int       `json:"chunk_count"`
	UploadedAt time.Time `json:"uploaded_at"`
}

func toResponse(doc Document) DocumentResponse {
	return DocumentResponse{
		DocumentID: doc.ID,
		FileName:   doc.FileName,
		Category:   doc.Category,
		MimeType:   doc.MimeType,
		SizeBytes:  doc.SizeBytes,
		ChunkCount: doc.ChunkCount,
		UploadedAt: doc.UploadedAt,
	}
}

// SearchResult is one scored chunk returned by the raw search endpoint.
type SearchResult struct {
	DocumentID string  `json:"document_id"`
	FileName   string  `json:"file_name"`
	Category   string  `json:"category"`
	Content    string  `json:"content"`
	Similarity float32 `json:"similarity"`
}

// Stats summarizes the state of the knowledge base.
type Stats struct {
	TotalDocuments int            `json:"total_documents"`
	TotalChunks    int            `json:"total_chunks"`
	ByType         map[string]int `json:"by_type"`
	VectorStore    string         `json:"vector_store"`
	ChunkSize      int            `json:"chunk_size"`
	ChunkOverlap   int            `json:"chunk_overlap"`
}

// ReindexResult reports the outcome of a full index rebuild.
type ReindexResult struct {
	DocumentsReindexed int `json:"documents_reindexed"`
	ChunksCreated      int `json:"chunks_created"`
}
