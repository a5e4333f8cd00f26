package handler

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"notaflow/internal/export"
	"notaflow/internal/middleware"
	"notaflow/internal/service"
)

// ExportHandler streams tenant document exports.
type ExportHandler struct {
	exports service.ExportService
}

// NewExportHandler creates a new ExportHandler.
func NewExportHandler(exports service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// CSV handles GET /api/v1/documents/export/csv.
func (h *ExportHandler) CSV(c *gin.Context) {
	tenantID, ok := tenantFromContext(c)
	if !ok {
		return
	}

	filename := export.BuildFilename(middleware.GetTenantSlug(c), "csv")
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := h.exports.WriteCSV(c.Request.Context(), tenantID, c.Writer); err != nil {
		// Headers are already on the wire; all we can do is log via the
		// gin error sink and cut the stream.
		_ = c.Error(err)
		c.Abort()
	}
}

// Excel handles GET /api/v1/documents/export/xlsx.
func (h *ExportHandler) Excel(c *gin.Context) {
	tenantID, ok := tenantFromContext(c)
	if !ok {
		return
	}

	filename := export.BuildFilename(middleware.GetTenantSlug(c), "xlsx")
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := h.exports.WriteExcel(c.Request.Context(), tenantID, c.Writer); err != nil {
		_ = c.Error(err)
		c.Abort()
	}
}
