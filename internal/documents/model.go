package documents

import "time"

// Document is the metadata record for an ingested file.
type Document struct {
	ID         string
	FileName   string
	Category   string
	MimeType   string
	SizeBytes  int64
	StorageKey string
	ChunkCount int
	UploadedAt time.Time
}
