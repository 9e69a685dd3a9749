package documents_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"safetyagent-backend/internal/bootstrap"
	"safetyagent-backend/internal/shared/config"
)

type stubEmbedder struct{}

func (stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func (stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func buildTestApp(t *testing.T) *bootstrap.App {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{
		Port:            "0",
		Env:             "dev",
		CORSAllowOrigin: []string{"http://localhost:5173"},
		ObjectStoreType: "local",
		LocalStoreDir:   t.TempDir(),
		ChunkSize:       200,
		ChunkOverlap:    40,
		RetrievalTopK:   5,
		MinSimilarity:   0.70,
	}

	app, err := bootstrap.Build(cfg)
	if err != nil {
		t.Fatalf("bootstrap build: %v", err)
	}
	// Swap the placeholder provider for a deterministic stub.
	app.DocumentsService.Embedder = stubEmbedder{}
	app.ChatService.Embedder = stubEmbedder{}
	return app
}

func uploadFile(t *testing.T, router *gin.Engine, fileName, category, content string) *httptest.ResponseRecorder {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	fileWriter, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fileWriter.Write([]byte(content)); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if category != "" {
		if err := writer.WriteField("category", category); err != nil {
			t.Fatalf("write category: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func listDocuments(t *testing.T, router *gin.Engine) []map[string]any {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("list status = %d", resp.Code)
	}
	var out struct {
		Documents []map[string]any `json:"documents"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	return out.Documents
}

func TestUploadAndList(t *testing.T) {
	app := buildTestApp(t)
	router := app.Router

	resp := uploadFile(t, router, "ladders.txt", "equipment", strings.Repeat("Inspect all ladders before use. ", 20))
	if resp.Code != http.StatusCreated {
		t.Fatalf("upload status = %d, body %s", resp.Code, resp.Body.String())
	}

	var created struct {
		DocumentID string `json:"document_id"`
		FileName   string `json:"file_name"`
		Category   string `json:"category"`
		ChunkCount int    `json:"chunk_count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode upload: %v", err)
	}
	if created.DocumentID == "" || created.ChunkCount == 0 {
		t.Fatalf("unexpected upload response %+v", created)
	}
	if created.Category != "equipment" {
		t.Fatalf("category = %q", created.Category)
	}

	docs := listDocuments(t, router)
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}
	if docs[0]["file_name"] != "ladders.txt" {
		t.Fatalf("unexpected document %+v", docs[0])
	}
}

func TestUploadUnsupportedTypeLeavesListUnchanged(t *testing.T) {
	app := buildTestApp(t)
	router := app.Router

	resp := uploadFile(t, router, "virus.exe", "", "binary junk")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "validation_error") {
		t.Fatalf("body = %s", resp.Body.String())
	}
	if docs := listDocuments(t, router); len(docs) != 0 {
		t.Fatalf("document list changed: %+v", docs)
	}
}

func TestDeleteUnknownDocument(t *testing.T) {
	app := buildTestApp(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/documents/unknown-id", nil)
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("status = %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "not_found") {
		t.Fatalf("body = %s", resp.Body.String())
	}
}

func TestDeleteRemovesDocumentFromSearch(t *testing.T) {
	app := buildTestApp(t)
	router := app.Router

	resp := uploadFile(t, router, "manual.txt", "general", "Report all incidents to the supervisor immediately.")
	if resp.Code != http.StatusCreated {
		t.Fatalf("upload status = %d", resp.Code)
	}
	var created struct {
		DocumentID string `json:"document_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode upload: %v", err)
	}

	searchReq := httptest.NewRequest(http.MethodGet, "/api/search?query=incidents", nil)
	searchResp := httptest.NewRecorder()
	router.ServeHTTP(searchResp, searchReq)
	if searchResp.Code != http.StatusOK {
		t.Fatalf("search status = %d", searchResp.Code)
	}
	var search struct {
		Results []map[string]any `json:"results"`
	}
	if err := json.NewDecoder(searchResp.Body).Decode(&search); err != nil {
		t.Fatalf("decode search: %v", err)
	}
	if len(search.Results) == 0 {
		t.Fatal("expected search results before delete")
	}

	delReq := httptest.NewRequest(http.MethodDelete, "/api/documents/"+created.DocumentID, nil)
	delResp := httptest.NewRecorder()
	router.ServeHTTP(delResp, delReq)
	if delResp.Code != http.StatusOK {
		t.Fatalf("delete status = %d", delResp.Code)
	}

	searchResp2 := httptest.NewRecorder()
	router.ServeHTTP(searchResp2, httptest.NewRequest(http.MethodGet, "/api/search?query=incidents", nil))
	var search2 struct {
		Results []map[string]any `json:"results"`
	}
	if err := json.NewDecoder(searchResp2.Body).Decode(&search2); err != nil {
		t.Fatalf("decode search: %v", err)
	}
	if len(search2.Results) != 0 {
		t.Fatalf("expected no results after delete, got %+v", search2.Results)
	}
}

func TestStatsAndHealth(t *testing.T) {
	app := buildTestApp(t)
	router := app.Router

	healthResp := httptest.NewRecorder()
	router.ServeHTTP(healthResp, httptest.NewRequest(http.MethodGet, "/health", nil))
	if healthResp.Code != http.StatusOK {
		t.Fatalf("health status = %d", healthResp.Code)
	}
	var healthBefore struct {
		OK              bool `json:"ok"`
		DocumentsLoaded bool `json:"documents_loaded"`
	}
	if err := json.NewDecoder(healthResp.Body).Decode(&healthBefore); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if !healthBefore.OK || healthBefore.DocumentsLoaded {
		t.Fatalf("unexpected health %+v", healthBefore)
	}

	if resp := uploadFile(t, router, "a.txt", "", "alpha safety rules"); resp.Code != http.StatusCreated {
		t.Fatalf("upload status = %d", resp.Code)
	}

	statsResp := httptest.NewRecorder()
	router.ServeHTTP(statsResp, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	if statsResp.Code != http.StatusOK {
		t.Fatalf("stats status = %d", statsResp.Code)
	}
	var stats struct {
		TotalDocuments int            `json:"total_documents"`
		TotalChunks    int            `json:"total_chunks"`
		ByType         map[string]int `json:"by_type"`
		ChunkSize      int            `json:"chunk_size"`
	}
	if err := json.NewDecoder(statsResp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.TotalDocuments != 1 || stats.TotalChunks == 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if stats.ByType["txt"] != 1 {
		t.Fatalf("ByType = %v", stats.ByType)
	}
	if stats.ChunkSize != 200 {
		t.Fatalf("ChunkSize = %d", stats.ChunkSize)
	}

	healthResp2 := httptest.NewRecorder()
	router.ServeHTTP(healthResp2, httptest.NewRequest(http.MethodGet, "/health", nil))
	var healthAfter struct {
		DocumentsLoaded bool `json:"documents_loaded"`
	}
	if err := json.NewDecoder(healthResp2.Body).Decode(&healthAfter); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if !healthAfter.DocumentsLoaded {
		t.Fatal("documents_loaded should be true after upload")
	}
}

func TestReindexEndpoint(t *testing.T) {
	app := buildTestApp(t)
	router := app.Router

	if resp := uploadFile(t, router, "manual.md", "", "# Rules\nKeep walkways clear."); resp.Code != http.StatusCreated {
		t.Fatalf("upload status = %d", resp.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/reindex", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("reindex status = %d, body %s", resp.Code, resp.Body.String())
	}
	var result struct {
		DocumentsReindexed int `json:"documents_reindexed"`
		ChunksCreated      int `json:"chunks_created"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode reindex: %v", err)
	}
	if result.DocumentsReindexed != 1 || result.ChunksCreated == 0 {
		t.Fatalf("unexpected result %+v", result)
	}
}
