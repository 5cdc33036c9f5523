package handler

import (
	"net/http"

	"procurement/internal/middleware"
	"procurement/internal/model"
	"procurement/internal/service"
	"procurement/pkg/response"

	"github.com/gin-gonic/gin"
)

type RequisitionHandler struct {
	requisitionService  service.RequisitionService
	verificationService service.VerificationService
}

func NewRequisitionHandler(requisitionService service.RequisitionService, verificationService service.VerificationService) *RequisitionHandler {
	return &RequisitionHandler{
		requisitionService:  requisitionService,
		verificationService: verificationService,
	}
}

func (h *RequisitionHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api")
	{
		api.POST("/requisitions", middleware.RequireRole(model.RoleAdmin, model.RoleProcurement, model.RoleStore), h.CreateBatch)
		api.GET("/requisitions/:batchId", middleware.RequireRole(model.RoleAdmin, model.RoleProcurement, model.RoleStore), h.GetBatch)
		api.POST("/requisitions/:batchId/approve", middleware.RequireRole(model.RoleAdmin, model.RoleProcurement), h.ApproveItems)
		api.POST("/requisitions/:batchId/reject", middleware.RequireRole(model.RoleAdmin, model.RoleProcurement), h.RejectBatch)
		api.POST("/requisitions/:batchId/resubmit", middleware.RequireRole(model.RoleAdmin, model.RoleProcurement, model.RoleStore), h.Resubmit)
		api.POST("/requisitions/:batchId/verify", middleware.RequireRole(model.RoleAdmin, model.RoleProcurement), h.VerifyBatch)
		api.GET("/master-entries", middleware.RequireRole(model.RoleAdmin, model.RoleProcurement), h.ListMasterEntries)
	}
}

// CreateBatch submits a new requisition batch
// @Summary      Create requisition batch
// @Description  Creates a batch of requisition items for a project
// @Tags         requisitions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateBatchRequest  true  "Create Batch Payload"
// @Success      201      {object}  response.Response{data=[]service.RequisitionItemResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/requisitions [post]
func (h *RequisitionHandler) CreateBatch(c *gin.Context) {
	var req service.CreateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	items, err := h.requisitionService.CreateBatch(c.Request.Context(), c.GetString("userID"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, items))
}

// GetBatch retrieves all items of a requisition batch
// @Summary      Get requisition batch
// @Tags         requisitions
// @Security     BearerAuth
// @Produce      json
// @Param        batchId  path      string  true  "Batch ID"
// @Success      200      {object}  response.Response{data=[]service.RequisitionItemResponse}
// @Failure      404      {object}  response.Response
// @Router       /api/requisitions/{batchId} [get]
func (h *RequisitionHandler) GetBatch(c *gin.Context) {
	items, err := h.requisitionService.GetBatch(c.Request.Context(), c.Param("batchId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, items))
}

// ApproveItems approves a subset of a batch's items
// @Summary      Approve requisition items
// @Description  Approves selected items; unselected items stay pending
// @Tags         requisitions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        batchId  path      string                       true  "Batch ID"
// @Param        payload  body      service.ApproveItemsRequest  true  "Item selection"
// @Success      200      {object}  response.Response{data=[]service.RequisitionItemResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/requisitions/{batchId}/approve [post]
func (h *RequisitionHandler) ApproveItems(c *gin.Context) {
	var req service.ApproveItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	items, err := h.requisitionService.ApproveItems(c.Request.Context(), c.GetString("userID"), c.Param("batchId"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, items))
}

// RejectBatch rejects a whole batch with mandatory remarks
// @Summary      Reject requisition batch
// @Tags         requisitions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        batchId  path      string                      true  "Batch ID"
// @Param        payload  body      service.RejectBatchRequest  true  "Rejection remarks"
// @Success      200      {object}  response.Response{data=[]service.RequisitionItemResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/requisitions/{batchId}/reject [post]
func (h *RequisitionHandler) RejectBatch(c *gin.Context) {
	var req service.RejectBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	items, err := h.requisitionService.RejectBatch(c.Request.Context(), c.GetString("userID"), c.Param("batchId"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, items))
}

// Resubmit edits and resubmits a rejected batch
// @Summary      Resubmit requisition batch
// @Description  Applies item edits, records revision history and resets the batch to pending
// @Tags         requisitions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        batchId  path      string                        true  "Batch ID"
// @Param        payload  body      service.ResubmitBatchRequest  true  "Edited items"
// @Success      200      {object}  response.Response{data=[]service.RequisitionItemResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/requisitions/{batchId}/resubmit [post]
func (h *RequisitionHandler) Resubmit(c *gin.Context) {
	var req service.ResubmitBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	items, err := h.requisitionService.Resubmit(c.Request.Context(), c.GetString("userID"), c.Param("batchId"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, items))
}

// VerifyBatch verifies approved items against the stock ledger
// @Summary      Verify requisition batch
// @Description  Checks approved items against stock on hand and promotes them into master entries
// @Tags         requisitions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        batchId  path      string                      true  "Batch ID"
// @Param        payload  body      service.VerifyBatchRequest  true  "Verification selections"
// @Success      201      {object}  response.Response{data=[]service.MasterEntryResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/requisitions/{batchId}/verify [post]
func (h *RequisitionHandler) VerifyBatch(c *gin.Context) {
	var req service.VerifyBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	entries, err := h.verificationService.VerifyBatch(c.Request.Context(), c.GetString("userID"), c.Param("batchId"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, entries))
}

// ListMasterEntries lists master entries not yet placed on a purchase order
// @Summary      List unconsumed master entries
// @Tags         requisitions
// @Security     BearerAuth
// @Produce      json
// @Param        project_code  query     string  true  "Project code"
// @Success      200           {object}  response.Response{data=[]service.MasterEntryResponse}
// @Router       /api/master-entries [get]
func (h *RequisitionHandler) ListMasterEntries(c *gin.Context) {
	projectCode := c.Query("project_code")
	if projectCode == "" {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "project_code query parameter is required"))
		return
	}

	entries, err := h.verificationService.ListUnconsumed(c.Request.Context(), projectCode)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, entries))
}
