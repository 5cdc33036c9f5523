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

type PurchaseOrderHandler struct {
	poService     service.PurchaseOrderService
	inwardService service.InwardService
}

func NewPurchaseOrderHandler(poService service.PurchaseOrderService, inwardService service.InwardService) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{poService: poService, inwardService: inwardService}
}

func (h *PurchaseOrderHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api")
	{
		read := middleware.RequireRole(model.RoleAdmin, model.RoleProcurement, model.RoleStore)
		procure := middleware.RequireRole(model.RoleAdmin, model.RoleProcurement)
		store := middleware.RequireRole(model.RoleAdmin, model.RoleStore)

		api.POST("/purchase-orders", procure, h.Create)
		api.GET("/purchase-orders", read, h.List)
		api.GET("/purchase-orders/:poNumber", read, h.Get)
		api.POST("/purchase-orders/:poNumber/approve", procure, h.Approve)
		api.POST("/purchase-orders/:poNumber/reject", procure, h.Reject)
		api.PUT("/purchase-orders/:poNumber", procure, h.Edit)
		api.POST("/purchase-orders/:poNumber/ordered", procure, h.MarkOrdered)
		api.POST("/purchase-orders/:poNumber/delivered", procure, h.MarkDelivered)
		api.POST("/purchase-orders/:poNumber/cancel", procure, h.Cancel)
		api.GET("/purchase-orders/:poNumber/inward-status", read, h.InwardStatus)
		api.POST("/purchase-orders/:poNumber/inward", store, h.RecordInward)
		api.GET("/purchase-orders/:poNumber/inward", read, h.InwardHistory)
	}
}

// Create raises a purchase order from unconsumed master entries
// @Summary      Create purchase order
// @Tags         purchase-orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreatePORequest  true  "Create PO Payload"
// @Success      201      {object}  response.Response{data=service.PurchaseOrderResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/purchase-orders [post]
func (h *PurchaseOrderHandler) Create(c *gin.Context) {
	var req service.CreatePORequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	po, err := h.poService.Create(c.Request.Context(), c.GetString("userID"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, po))
}

// List retrieves paginated purchase orders
// @Summary      List purchase orders
// @Tags         purchase-orders
// @Security     BearerAuth
// @Produce      json
// @Param        status  query     string  false  "Filter by status"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 20)"
// @Success      200     {object}  response.Response{data=object}
// @Router       /api/purchase-orders [get]
func (h *PurchaseOrderHandler) List(c *gin.Context) {
	params := pagination.Parse(c)
	pos, total, err := h.poService.List(c.Request.Context(), c.Query("status"), params.Page, params.Limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"purchase_orders": pos,
		"total":           total,
		"page":            params.Page,
		"limit":           params.Limit,
	}))
}

// Get retrieves one purchase order with its lines
// @Summary      Get purchase order
// @Tags         purchase-orders
// @Security     BearerAuth
// @Produce      json
// @Param        poNumber  path      string  true  "PO number"
// @Success      200       {object}  response.Response{data=service.PurchaseOrderResponse}
// @Failure      404       {object}  response.Response
// @Router       /api/purchase-orders/{poNumber} [get]
func (h *PurchaseOrderHandler) Get(c *gin.Context) {
	po, err := h.poService.Get(c.Request.Context(), c.Param("poNumber"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, po))
}

// Approve moves a pending purchase order to approved
// @Summary      Approve purchase order
// @Tags         purchase-orders
// @Security     BearerAuth
// @Produce      json
// @Param        poNumber  path      string  true  "PO number"
// @Success      200       {object}  response.Response{data=service.PurchaseOrderResponse}
// @Failure      409       {object}  response.Response
// @Router       /api/purchase-orders/{poNumber}/approve [post]
func (h *PurchaseOrderHandler) Approve(c *gin.Context) {
	po, err := h.poService.Approve(c.Request.Context(), c.GetString("userID"), c.Param("poNumber"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, po))
}

// Reject rejects a pending purchase order with mandatory remarks
// @Summary      Reject purchase order
// @Tags         purchase-orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        poNumber  path      string                   true  "PO number"
// @Param        payload   body      service.RejectPORequest  true  "Rejection remarks"
// @Success      200       {object}  response.Response{data=service.PurchaseOrderResponse}
// @Failure      400       {object}  response.Response
// @Router       /api/purchase-orders/{poNumber}/reject [post]
func (h *PurchaseOrderHandler) Reject(c *gin.Context) {
	var req service.RejectPORequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	po, err := h.poService.Reject(c.Request.Context(), c.GetString("userID"), c.Param("poNumber"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, po))
}

// Edit revises an approved PO (version bump) or resubmits a rejected one
// @Summary      Edit purchase order
// @Description  Revising an approved order bumps the version by 1.0 and requires re-approval; a rejected order resubmits at the same version
// @Tags         purchase-orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        poNumber  path      string                 true  "PO number"
// @Param        payload   body      service.EditPORequest  true  "Edit payload"
// @Success      200       {object}  response.Response{data=service.PurchaseOrderResponse}
// @Failure      409       {object}  response.Response
// @Router       /api/purchase-orders/{poNumber} [put]
func (h *PurchaseOrderHandler) Edit(c *gin.Context) {
	var req service.EditPORequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	po, err := h.poService.Edit(c.Request.Context(), c.GetString("userID"), c.Param("poNumber"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, po))
}

// MarkOrdered marks an approved purchase order as placed with the vendor
// @Summary      Mark purchase order ordered
// @Tags         purchase-orders
// @Security     BearerAuth
// @Produce      json
// @Param        poNumber  path      string  true  "PO number"
// @Success      200       {object}  response.Response{data=service.PurchaseOrderResponse}
// @Failure      409       {object}  response.Response
// @Router       /api/purchase-orders/{poNumber}/ordered [post]
func (h *PurchaseOrderHandler) MarkOrdered(c *gin.Context) {
	po, err := h.poService.MarkOrdered(c.Request.Context(), c.GetString("userID"), c.Param("poNumber"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, po))
}

// MarkDelivered marks an ordered purchase order as delivered
// @Summary      Mark purchase order delivered
// @Tags         purchase-orders
// @Security     BearerAuth
// @Produce      json
// @Param        poNumber  path      string  true  "PO number"
// @Success      200       {object}  response.Response{data=service.PurchaseOrderResponse}
// @Failure      409       {object}  response.Response
// @Router       /api/purchase-orders/{poNumber}/delivered [post]
func (h *PurchaseOrderHandler) MarkDelivered(c *gin.Context) {
	po, err := h.poService.MarkDelivered(c.Request.Context(), c.GetString("userID"), c.Param("poNumber"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, po))
}

// Cancel cancels a purchase order that has not been delivered
// @Summary      Cancel purchase order
// @Tags         purchase-orders
// @Security     BearerAuth
// @Produce      json
// @Param        poNumber  path      string  true  "PO number"
// @Success      200       {object}  response.Response{data=service.PurchaseOrderResponse}
// @Failure      409       {object}  response.Response
// @Router       /api/purchase-orders/{poNumber}/cancel [post]
func (h *PurchaseOrderHandler) Cancel(c *gin.Context) {
	po, err := h.poService.Cancel(c.Request.Context(), c.GetString("userID"), c.Param("poNumber"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, po))
}

// InwardStatus returns the receipt state derived from the line items
// @Summary      Get inward status
// @Tags         purchase-orders
// @Security     BearerAuth
// @Produce      json
// @Param        poNumber  path      string  true  "PO number"
// @Success      200       {object}  response.Response{data=object}
// @Failure      404       {object}  response.Response
// @Router       /api/purchase-orders/{poNumber}/inward-status [get]
func (h *PurchaseOrderHandler) InwardStatus(c *gin.Context) {
	status, err := h.poService.InwardStatus(c.Request.Context(), c.Param("poNumber"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]string{
		"po_number":     c.Param("poNumber"),
		"inward_status": status,
	}))
}

// RecordInward records a batch of receipt lines against the purchase order
// @Summary      Record inward
// @Description  Validates the whole receipt batch before committing; any bad line rejects the batch
// @Tags         purchase-orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        poNumber  path      string                       true  "PO number"
// @Param        payload   body      service.RecordInwardRequest  true  "Receipt lines"
// @Success      201       {object}  response.Response{data=service.RecordInwardResponse}
// @Failure      400       {object}  response.Response
// @Router       /api/purchase-orders/{poNumber}/inward [post]
func (h *PurchaseOrderHandler) RecordInward(c *gin.Context) {
	var req service.RecordInwardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.inwardService.RecordInward(c.Request.Context(), c.GetString("userID"), c.Param("poNumber"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// InwardHistory lists receipt records for the purchase order, newest first
// @Summary      List inward records
// @Tags         purchase-orders
// @Security     BearerAuth
// @Produce      json
// @Param        poNumber  path      string  true  "PO number"
// @Success      200       {object}  response.Response{data=[]service.InwardRecordResponse}
// @Router       /api/purchase-orders/{poNumber}/inward [get]
func (h *PurchaseOrderHandler) InwardHistory(c *gin.Context) {
	recs, err := h.inwardService.History(c.Request.Context(), c.Param("poNumber"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, recs))
}
