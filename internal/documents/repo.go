package documents

import "context"

// DocumentsRepo defines persistence operations for document metadata.
type DocumentsRepo interface {
	Create(ctx context.Context, doc Document) error
	GetByID(ctx context.Context, id string) (Document, error)
	List(ctx context.Context) ([]Document, error)
	Delete(ctx context.Context, id string) error
	SetChunkCount(ctx context.Context, id string, count int) error
}
