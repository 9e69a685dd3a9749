package documents

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockRepo(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &PGRepo{DB: db}, mock
}

func TestPGRepoCreate(t *testing.T) {
	repo, mock := newMockRepo(t)
	doc := Document{
		ID:         "doc-1",
		FileName:   "fire-safety.pdf",
		Category:   "fire",
		MimeType:   "application/pdf",
		SizeBytes:  2048,
		StorageKey: "abc123_fire-safety.pdf",
		ChunkCount: 4,
		UploadedAt: time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO documents").
		WithArgs(
			doc.ID,
			doc.FileName,
			doc.Category,
			doc.MimeType,
			doc.SizeBytes,
			doc.StorageKey,
			doc.ChunkCount,
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), doc); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByID(t *testing.T) {
	repo, mock := newMockRepo(t)
	uploaded := time.Now().UTC()

	rows := sqlmock.NewRows([]string{
		"id", "file_name", "category", "mime_type", "size_bytes", "storage_key", "chunk_count", "uploaded_at",
	}).AddRow("doc-1", "fire-safety.pdf", "fire", "application/pdf", int64(2048), "key-1", 4, uploaded)

	mock.ExpectQuery("SELECT id, file_name, category").
		WithArgs("doc-1").
		WillReturnRows(rows)

	doc, err := repo.GetByID(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if doc.FileName != "fire-safety.pdf" || doc.ChunkCount != 4 {
		t.Fatalf("unexpected document %+v", doc)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT id, file_name, category").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "file_name", "category", "mime_type", "size_bytes", "storage_key", "chunk_count", "uploaded_at",
		}))

	_, err := repo.GetByID(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoList(t *testing.T) {
	repo, mock := newMockRepo(t)
	uploaded := time.Now().UTC()

	rows := sqlmock.NewRows([]string{
		"id", "file_name", "category", "mime_type", "size_bytes", "storage_key", "chunk_count", "uploaded_at",
	}).
		AddRow("doc-2", "ppe.docx", "equipment", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", int64(512), "key-2", 2, uploaded).
		AddRow("doc-1", "fire-safety.pdf", nil, nil, int64(2048), nil, 4, uploaded.Add(-time.Hour))

	mock.ExpectQuery("SELECT id, file_name, category").
		WillReturnRows(rows)

	docs, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if docs[0].ID != "doc-2" {
		t.Fatalf("expected newest first, got %s", docs[0].ID)
	}
	// NULL category, mime_type and storage_key scan as empty strings.
	if docs[1].Category != "" || docs[1].MimeType != "" || docs[1].StorageKey != "" {
		t.Fatalf("unexpected null handling %+v", docs[1])
	}
}

func TestPGRepoDelete(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE documents").
		WithArgs(sqlmock.AnyArg(), "doc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Delete(context.Background(), "doc-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoDeleteNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE documents").
		WithArgs(sqlmock.AnyArg(), "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoSetChunkCount(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE documents").
		WithArgs(7, "doc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SetChunkCount(context.Background(), "doc-1", 7); err != nil {
		t.Fatalf("SetChunkCount: %v", err)
	}
}
