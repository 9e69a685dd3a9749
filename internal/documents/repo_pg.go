package documents

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PGRepo implements DocumentsRepo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new document record.
func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO documents (
    id,
    file_name,
    category,
    mime_type,
    size_bytes,
    storage_key,
    chunk_count,
    uploaded_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	var storageKey sql.NullString
	if doc.StorageKey != "" {
		storageKey = sql.NullString{String: doc.StorageKey, Valid: true}
	}

	_, err := r.DB.ExecContext(
		ctx,
		query,
		doc.ID,
		doc.FileName,
		doc.Category,
		doc.MimeType,
		doc.SizeBytes,
		storageKey,
		doc.ChunkCount,
		doc.UploadedAt,
	)
	return err
}

// GetByID fetches a live document by id.
func (r *PGRepo) GetByID(ctx context.Context, id string) (Document, error) {
	const query = `
SELECT id, file_name, category, mime_type, size_bytes, storage_key, chunk_count, uploaded_at
FROM documents
WHERE id = $1 AND deleted_at IS NULL
LIMIT 1`
	doc, err := scanDocument(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	return doc, nil
}

// List returns all live documents, newest first.
func (r *PGRepo) List(ctx context.Context) ([]Document, error) {
	const query = `
SELECT id, file_name, category, mime_type, size_bytes, storage_key, chunk_count, uploaded_at
FROM documents
WHERE deleted_at IS NULL
ORDER BY uploaded_at DESC, id`

	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// Delete soft-deletes a document record.
func (r *PGRepo) Delete(ctx context.Context, id string) error {
	const query = `
UPDATE documents
SET deleted_at = $1
WHERE id = $2 AND deleted_at IS NULL`
	res, err := r.DB.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetChunkCount updates the recorded chunk count for a document.
func (r *PGRepo) SetChunkCount(ctx context.Context, id string, count int) error {
	const query = `
UPDATE documents
SET chunk_count = $1
WHERE id = $2 AND deleted_at IS NULL`
	res, err := r.DB.ExecContext(ctx, query, count, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var doc Document
	var category sql.NullString
	var mimeType sql.NullString
	var storageKey sql.NullString
	if err := row.Scan(
		&doc.ID,
		&doc.FileName,
		&category,
		&mimeType,
		&doc.SizeBytes,
		&storageKey,
		&doc.ChunkCount,
		&doc.UploadedAt,
	); err != nil {
		return Document{}, err
	}
	if category.Valid {
		doc.Category = category.String
	}
	if mimeType.Valid {
		doc.MimeType = mimeType.String
	}
	if storageKey.Valid {
		doc.StorageKey = storageKey.String
	}
	return doc, nil
}

var _ DocumentsRepo = (*PGRepo)(nil)
