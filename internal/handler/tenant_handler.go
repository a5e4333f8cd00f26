package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"notaflow/internal/service"
)

// TenantHandler handles operator tenant management endpoints.
type TenantHandler struct {
	tenants service.TenantService
}

// NewTenantHandler creates a new TenantHandler.
func NewTenantHandler(tenants service.TenantService) *TenantHandler {
	return &TenantHandler{tenants: tenants}
}

// Create handles POST /api/v1/admin/tenants.
func (h *TenantHandler) Create(c *gin.Context) {
	var input service.CreateTenantInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_INPUT", err.Error())
		return
	}

	created, err := h.tenants.Create(c.Request.Context(), input)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, created)
}

// List handles GET /api/v1/admin/tenants.
func (h *TenantHandler) List(c *gin.Context) {
	offset, limit := pagination(c)
	tenants, total, err := h.tenants.List(c.Request.Context(), offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondPaginated(c, tenants, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// Get handles GET /api/v1/admin/tenants/:id.
func (h *TenantHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_INPUT", "invalid tenant id")
		return
	}
	tenant, err := h.tenants.GetByID(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, tenant)
}

// Update handles PATCH /api/v1/admin/tenants/:id.
func (h *TenantHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_INPUT", "invalid tenant id")
		return
	}
	var input service.UpdateTenantInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_INPUT", err.Error())
		return
	}

	tenant, err := h.tenants.Update(c.Request.Context(), id, input)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, tenant)
}
