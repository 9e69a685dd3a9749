package documents

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"safetyagent-backend/internal/extract"
	"safetyagent-backend/internal/llm"
	"safetyagent-backend/internal/shared/server/respond"
)

const maxUploadSize = 20 << 20 // 20MB

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches knowledge-base routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/upload", h.upload)
	rg.GET("/documents", h.list)
	rg.DELETE("/documents/:id", h.delete)
	rg.GET("/search", h.search)
	rg.POST("/reindex", h.reindex)
	rg.GET("/stats", h.stats)
}

func (h *Handler) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}
	category := c.PostForm("category")

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	doc, err := h.Svc.Upload(c.Request.Context(), fileHeader.Filename, category, file)
	if err != nil {
		switch {
		case errors.Is(err, extract.ErrUnsupportedType):
			respond.Error(c, http.StatusBadRequest, "validation_error", "unsupported file type; allowed: .docx, .pdf, .txt, .md", nil)
		case errors.Is(err, ErrEmptyDocument):
			respond.Error(c, http.StatusBadRequest, "validation_error", "document contains no extractable text", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		case errors.Is(err, llm.ErrUpstream):
			respond.Error(c, http.StatusBadGateway, "upstream_error", "embedding provider failed", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to ingest document", nil)
		}
		return
	}

	c.Set("documentId", doc.ID)
	respond.JSON(c, http.StatusCreated, toResponse(doc))
}

func (h *Handler) list(c *gin.Context) {
	docs, err := h.Svc.List(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list documents", nil)
		return
	}
	resp := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		resp = append(resp, toResponse(doc))
	}
	respond.OK(c, gin.H{"documents": resp})
}

func (h *Handler) delete(c *gin.Context) {
	id := c.Param("id")
	c.Set("documentId", id)

	if err := h.Svc.Delete(c.Request.Context(), id); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to delete document", nil)
		}
		return
	}
	respond.OK(c, gin.H{"document_id": id, "deleted": true})
}

func (h *Handler) search(c *gin.Context) {
	query := c.Query("query")
	topK := 5
	if v := c.Query("k"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			respond.Error(c, http.StatusBadRequest, "validation_error", "k must be a positive integer", nil)
			return
		}
		if parsed > 20 {
			parsed = 20
		}
		topK = parsed
	}

	results, err := h.Svc.Search(c.Request.Context(), query, topK)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		case errors.Is(err, llm.ErrUpstream):
			respond.Error(c, http.StatusBadGateway, "upstream_error", "embedding provider failed", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "search failed", nil)
		}
		return
	}
	if results == nil {
		results = []SearchResult{}
	}
	respond.OK(c, gin.H{"query": query, "results": results})
}

func (h *Handler) reindex(c *gin.Context) {
	result, err := h.Svc.Reindex(c.Request.Context())
	if err != nil {
		switch {
		case errors.Is(err, llm.ErrUpstream):
			respond.Error(c, http.StatusBadGateway, "upstream_error", "embedding provider failed", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "reindex failed", nil)
		}
		return
	}
	respond.OK(c, result)
}

func (h *Handler) stats(c *gin.Context) {
	stats, err := h.Svc.Stats(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to compute stats", nil)
		return
	}
	respond.OK(c, stats)
}
