package handler

import (
	"net/http"

	"procurement/internal/middleware"
	"procurement/internal/model"
	"procurement/internal/service"
	"procurement/pkg/pagination"
	"procurement/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService    service.AuditService
	revisionService service.RevisionService
}

func NewAuditHandler(auditService service.AuditService, revisionService service.RevisionService) *AuditHandler {
	return &AuditHandler{auditService: auditService, revisionService: revisionService}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api")
	{
		api.GET("/audit-logs", middleware.RequireRole(model.RoleAdmin), h.ListLogs)
		api.GET("/revisions/:entityType/:entityId", middleware.RequireRole(model.RoleAdmin, model.RoleProcurement), h.ListRevisions)
	}
}

// ListLogs retrieves the paginated audit trail
// @Summary      List audit logs
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Items per page (default 20)"
// @Success      200    {object}  response.Response{data=object}
// @Router       /api/audit-logs [get]
func (h *AuditHandler) ListLogs(c *gin.Context) {
	params := pagination.Parse(c)
	logs, total, err := h.auditService.ListLogs(c.Request.Context(), params.Page, params.Limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"logs":  logs,
		"total": total,
		"page":  params.Page,
		"limit": params.Limit,
	}))
}

// ListRevisions retrieves an entity's revision history, newest first
// @Summary      List revisions
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        entityType  path      string  true  "Entity type (REQUISITION_ITEM or PURCHASE_ORDER)"
// @Param        entityId    path      string  true  "Entity ID"
// @Success      200         {object}  response.Response{data=[]service.RevisionEntryResponse}
// @Failure      400         {object}  response.Response
// @Router       /api/revisions/{entityType}/{entityId} [get]
func (h *AuditHandler) ListRevisions(c *gin.Context) {
	entries, err := h.revisionService.ListByEntity(c.Request.Context(), c.Param("entityType"), c.Param("entityId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, entries))
}
