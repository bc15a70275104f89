package handler

import (
	"net/http"

	"textile-erp/internal/middleware"
	"textile-erp/internal/service"
	"textile-erp/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type InventoryHandler struct {
	inventoryService service.InventoryService
	exportService    service.ExportService
	log              logrus.FieldLogger
}

func NewInventoryHandler(inventoryService service.InventoryService, exportService service.ExportService, log logrus.FieldLogger) *InventoryHandler {
	return &InventoryHandler{inventoryService: inventoryService, exportService: exportService, log: log}
}

// Inventory items are only created by converting a stitching challan, so there is no POST
// or DELETE here.
func (h *InventoryHandler) RegisterRoutes(router *gin.RouterGroup) {
	inventory := router.Group("/api/inventory-items")
	{
		inventory.GET("", middleware.RequirePermission(middleware.PermInventoryRead), h.ListInventoryItems)
		inventory.GET("/export", middleware.RequirePermission(middleware.PermInventoryRead), h.ExportInventoryItems)
		inventory.GET("/:id", middleware.RequirePermission(middleware.PermInventoryRead), h.GetInventoryItem)
		inventory.PUT("/:id", middleware.RequirePermission(middleware.PermInventoryWrite), h.UpdateInventoryItem)
	}
}

// ListInventoryItems
// @Summary      List inventory items
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Param        page            query     int     false  "Page number (default 1)"
// @Param        limit           query     int     false  "Items per page (default 20)"
// @Param        search          query     string  false  "Inventory number, product name or SKU"
// @Param        classification  query     string  false  "good, bad, wastage or unclassified"
// @Param        date_from       query     string  false  "YYYY-MM-DD"
// @Param        date_to         query     string  false  "YYYY-MM-DD"
// @Success      200  {object}  response.Response{data=[]model.InventoryItem}
// @Failure      400  {object}  response.Response
// @Router       /api/inventory-items [get]
func (h *InventoryHandler) ListInventoryItems(c *gin.Context) {
	q := listQuery(c)
	items, total, err := h.inventoryService.ListInventoryItems(c.Request.Context(), q)
	if err != nil {
		respondError(c, h.log, "ListInventoryItems", err)
		return
	}
	respondList(c, items, q, total)
}

// ExportInventoryItems
// @Summary      Export inventory items
// @Tags         inventory
// @Security     BearerAuth
// @Produce      text/csv
// @Param        format  query  string  false  "csv (default) or xlsx"
// @Success      200
// @Router       /api/inventory-items/export [get]
func (h *InventoryHandler) ExportInventoryItems(c *gin.Context) {
	table, err := h.inventoryService.ExportInventoryItems(c.Request.Context(), exportQuery(c))
	if err != nil {
		respondError(c, h.log, "ExportInventoryItems", err)
		return
	}
	sendExport(c, h.log, h.exportService, table)
}

// GetInventoryItem
// @Summary      Get inventory item
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Inventory item ID"
// @Success      200  {object}  response.Response{data=model.InventoryItem}
// @Failure      404  {object}  response.Response
// @Router       /api/inventory-items/{id} [get]
func (h *InventoryHandler) GetInventoryItem(c *gin.Context) {
	item, err := h.inventoryService.GetInventoryItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, "GetInventoryItem", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}

// UpdateInventoryItem
// @Summary      Update inventory item
// @Description  Reclassifies pieces or reprices the item. Quantity and source challan are fixed.
// @Tags         inventory
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                              true  "Inventory item ID"
// @Param        payload  body      service.UpdateInventoryItemRequest  true  "Changed fields"
// @Success      200      {object}  response.Response{data=model.InventoryItem}
// @Failure      400      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/inventory-items/{id} [put]
func (h *InventoryHandler) UpdateInventoryItem(c *gin.Context) {
	var req service.UpdateInventoryItemRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.inventoryService.UpdateInventoryItem(c.Request.Context(), userID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, h.log, "UpdateInventoryItem", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}
