package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"notaflow/internal/service"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// DocumentHandler handles document ingestion and read endpoints.
type DocumentHandler struct {
	ingest service.IngestService
	docs   service.DocumentService
}

// NewDocumentHandler creates a new DocumentHandler.
func NewDocumentHandler(ingest service.IngestService, docs service.DocumentService) *DocumentHandler {
	return &DocumentHandler{ingest: ingest, docs: docs}
}

// Ingest handles POST /api/v1/documents. The payload arrives as a
// multipart "file" part; source_name defaults to the uploaded filename.
func (h *DocumentHandler) Ingest(c *gin.Context) {
	tenantID, ok := tenantFromContext(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_INPUT", "missing file upload")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_INPUT", "unreadable file upload")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_INPUT", "unreadable file upload")
		return
	}

	sourceName := c.PostForm("source_name")
	if sourceName == "" {
		sourceName = fileHeader.Filename
	}

	result, err := h.ingest.Ingest(c.Request.Context(), tenantID, service.IngestInput{
		SourceName: sourceName,
		IssuerHint: c.PostForm("issuer_hint"),
		Content:    content,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	if result.Duplicate {
		RespondOK(c, result)
		return
	}
	RespondCreated(c, result)
}

// List handles GET /api/v1/documents.
func (h *DocumentHandler) List(c *gin.Context) {
	tenantID, ok := tenantFromContext(c)
	if !ok {
		return
	}
	offset, limit := pagination(c)

	projs, total, err := h.docs.ListProjections(c.Request.Context(), tenantID, offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondPaginated(c, projs, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// Get handles GET /api/v1/documents/:id.
func (h *DocumentHandler) Get(c *gin.Context) {
	tenantID, ok := tenantFromContext(c)
	if !ok {
		return
	}
	documentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_INPUT", "invalid document id")
		return
	}

	proj, err := h.docs.GetProjection(c.Request.Context(), tenantID, documentID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, proj)
}

// Events handles GET /api/v1/documents/:id/events.
func (h *DocumentHandler) Events(c *gin.Context) {
	tenantID, ok := tenantFromContext(c)
	if !ok {
		return
	}
	documentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_INPUT", "invalid document id")
		return
	}

	events, err := h.docs.GetEvents(c.Request.Context(), tenantID, documentID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, events)
}

func pagination(c *gin.Context) (offset, limit int) {
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > maxLimit {
		limit = defaultLimit
	}
	return offset, limit
}
