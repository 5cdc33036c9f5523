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

type InventoryHandler struct {
	inventoryService  service.InventoryService
	allocationService service.AllocationService
}

func NewInventoryHandler(inventoryService service.InventoryService, allocationService service.AllocationService) *InventoryHandler {
	return &InventoryHandler{
		inventoryService:  inventoryService,
		allocationService: allocationService,
	}
}

func (h *InventoryHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api")
	{
		read := middleware.RequireRole(model.RoleAdmin, model.RoleProcurement, model.RoleStore)
		store := middleware.RequireRole(model.RoleAdmin, model.RoleStore)

		api.POST("/inventory", store, h.CreateItem)
		api.GET("/inventory", read, h.ListItems)
		api.GET("/inventory/:itemNo", read, h.GetItem)
		api.POST("/inventory/:itemNo/adjust", store, h.AdjustStock)

		api.POST("/allocations", store, h.Allocate)
		api.GET("/allocations/item/:itemId", read, h.AllocationHistory)
		api.POST("/allocations/:id/outward", store, h.RecordOutward)
	}
}

// CreateItem registers a new stock-keeping item
// @Summary      Create inventory item
// @Tags         inventory
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateInventoryItemRequest  true  "Create Item Payload"
// @Success      201      {object}  response.Response{data=service.InventoryItemResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/inventory [post]
func (h *InventoryHandler) CreateItem(c *gin.Context) {
	var req service.CreateInventoryItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	item, err := h.inventoryService.CreateItem(c.Request.Context(), c.GetString("userID"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, item))
}

// ListItems retrieves the paginated stock ledger
// @Summary      List inventory items
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Items per page (default 20)"
// @Success      200    {object}  response.Response{data=object}
// @Router       /api/inventory [get]
func (h *InventoryHandler) ListItems(c *gin.Context) {
	params := pagination.Parse(c)
	items, total, err := h.inventoryService.ListItems(c.Request.Context(), params.Page, params.Limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"items": items,
		"total": total,
		"page":  params.Page,
		"limit": params.Limit,
	}))
}

// GetItem retrieves one item with its per-location stock
// @Summary      Get inventory item
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Param        itemNo  path      string  true  "Item number"
// @Success      200     {object}  response.Response{data=service.InventoryItemResponse}
// @Failure      404     {object}  response.Response
// @Router       /api/inventory/{itemNo} [get]
func (h *InventoryHandler) GetItem(c *gin.Context) {
	item, err := h.inventoryService.GetItem(c.Request.Context(), c.Param("itemNo"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}

// AdjustStock applies a manual stock correction at one location
// @Summary      Adjust location stock
// @Tags         inventory
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        itemNo   path      string                      true  "Item number"
// @Param        payload  body      service.AdjustStockRequest  true  "Adjustment"
// @Success      200      {object}  response.Response{data=service.InventoryItemResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/inventory/{itemNo}/adjust [post]
func (h *InventoryHandler) AdjustStock(c *gin.Context) {
	var req service.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	item, err := h.inventoryService.AdjustStock(c.Request.Context(), c.GetString("userID"), c.Param("itemNo"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}

// Allocate reserves location stock for a project
// @Summary      Allocate stock
// @Description  Atomically checks availability and reserves the quantity; supports idempotency keys for safe retries
// @Tags         allocations
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.AllocateRequest  true  "Allocation request"
// @Success      201      {object}  response.Response{data=service.AllocationResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/allocations [post]
func (h *InventoryHandler) Allocate(c *gin.Context) {
	var req service.AllocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	rec, err := h.allocationService.Allocate(c.Request.Context(), c.GetString("userID"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, rec))
}

// AllocationHistory lists an item's allocations, newest first
// @Summary      Get allocation history
// @Tags         allocations
// @Security     BearerAuth
// @Produce      json
// @Param        itemId  path      string  true  "Inventory item ID"
// @Success      200     {object}  response.Response{data=[]service.AllocationResponse}
// @Router       /api/allocations/item/{itemId} [get]
func (h *InventoryHandler) AllocationHistory(c *gin.Context) {
	recs, err := h.allocationService.History(c.Request.Context(), c.Param("itemId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, recs))
}

// RecordOutward issues physical stock against an allocation
// @Summary      Record outward
// @Tags         allocations
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                  true  "Allocation ID"
// @Param        payload  body      service.OutwardRequest  true  "Outward quantity"
// @Success      200      {object}  response.Response{data=service.AllocationResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/allocations/{id}/outward [post]
func (h *InventoryHandler) RecordOutward(c *gin.Context) {
	var req service.OutwardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	rec, err := h.allocationService.RecordOutward(c.Request.Context(), c.GetString("userID"), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rec))
}
