package handler

import (
	"net/http"

	"textile-erp/internal/middleware"
	"textile-erp/internal/service"
	"textile-erp/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type PurchaseHandler struct {
	purchaseService service.PurchaseService
	exportService   service.ExportService
	log             logrus.FieldLogger
}

func NewPurchaseHandler(purchaseService service.PurchaseService, exportService service.ExportService, log logrus.FieldLogger) *PurchaseHandler {
	return &PurchaseHandler{purchaseService: purchaseService, exportService: exportService, log: log}
}

func (h *PurchaseHandler) RegisterRoutes(router *gin.RouterGroup) {
	purchases := router.Group("/api/purchases")
	{
		purchases.GET("", middleware.RequirePermission(middleware.PermProductionRead), h.ListPurchases)
		purchases.GET("/export", middleware.RequirePermission(middleware.PermProductionRead), h.ExportPurchases)
		purchases.GET("/:id", middleware.RequirePermission(middleware.PermProductionRead), h.GetPurchase)
		purchases.POST("", middleware.RequirePermission(middleware.PermProductionWrite), h.CreatePurchase)
		purchases.PUT("/:id", middleware.RequirePermission(middleware.PermProductionWrite), h.UpdatePurchase)
		purchases.DELETE("/:id", middleware.RequirePermission(middleware.PermProductionWrite), h.DeletePurchase)
	}
}

// ListPurchases
// @Summary      List purchases
// @Tags         purchases
// @Security     BearerAuth
// @Produce      json
// @Param        page           query     int     false  "Page number (default 1)"
// @Param        limit          query     int     false  "Items per page (default 20)"
// @Param        search         query     string  false  "Purchase number or invoice number"
// @Param        date_from      query     string  false  "YYYY-MM-DD"
// @Param        date_to        query     string  false  "YYYY-MM-DD"
// @Param        material_type  query     string  false  "Cotton, Silk, Wool, Polyester or Linen"
// @Param        ledger_id      query     string  false  "Vendor ledger"
// @Success      200  {object}  response.Response{data=[]model.Purchase}
// @Failure      400  {object}  response.Response
// @Router       /api/purchases [get]
func (h *PurchaseHandler) ListPurchases(c *gin.Context) {
	q := listQuery(c)
	purchases, total, err := h.purchaseService.ListPurchases(c.Request.Context(), q)
	if err != nil {
		respondError(c, h.log, "ListPurchases", err)
		return
	}
	respondList(c, purchases, q, total)
}

// ExportPurchases
// @Summary      Export purchases
// @Tags         purchases
// @Security     BearerAuth
// @Produce      text/csv
// @Param        format  query  string  false  "csv (default) or xlsx"
// @Success      200
// @Router       /api/purchases/export [get]
func (h *PurchaseHandler) ExportPurchases(c *gin.Context) {
	table, err := h.purchaseService.ExportPurchases(c.Request.Context(), exportQuery(c))
	if err != nil {
		respondError(c, h.log, "ExportPurchases", err)
		return
	}
	sendExport(c, h.log, h.exportService, table)
}

// GetPurchase
// @Summary      Get purchase
// @Tags         purchases
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Purchase ID"
// @Success      200  {object}  response.Response{data=model.Purchase}
// @Failure      404  {object}  response.Response
// @Router       /api/purchases/{id} [get]
func (h *PurchaseHandler) GetPurchase(c *gin.Context) {
	purchase, err := h.purchaseService.GetPurchase(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, "GetPurchase", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, purchase))
}

// CreatePurchase
// @Summary      Create purchase
// @Description  Total amount is meters x rate plus GST. The number is generated when omitted.
// @Tags         purchases
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreatePurchaseRequest  true  "Purchase"
// @Success      201      {object}  response.Response{data=model.Purchase}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/purchases [post]
func (h *PurchaseHandler) CreatePurchase(c *gin.Context) {
	var req service.CreatePurchaseRequest
	if !bindJSON(c, &req) {
		return
	}
	purchase, err := h.purchaseService.CreatePurchase(c.Request.Context(), userID(c), req)
	if err != nil {
		respondError(c, h.log, "CreatePurchase", err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, purchase))
}

// UpdatePurchase
// @Summary      Update purchase
// @Description  Quantities, rates and vendor are locked once a weaver challan or shorting entry references the purchase
// @Tags         purchases
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                         true  "Purchase ID"
// @Param        payload  body      service.UpdatePurchaseRequest  true  "Changed fields"
// @Success      200      {object}  response.Response{data=model.Purchase}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/purchases/{id} [put]
func (h *PurchaseHandler) UpdatePurchase(c *gin.Context) {
	var req service.UpdatePurchaseRequest
	if !bindJSON(c, &req) {
		return
	}
	purchase, err := h.purchaseService.UpdatePurchase(c.Request.Context(), userID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, h.log, "UpdatePurchase", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, purchase))
}

// DeletePurchase
// @Summary      Delete purchase
// @Tags         purchases
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Purchase ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/purchases/{id} [delete]
func (h *PurchaseHandler) DeletePurchase(c *gin.Context) {
	if err := h.purchaseService.DeletePurchase(c.Request.Context(), userID(c), c.Param("id")); err != nil {
		respondError(c, h.log, "DeletePurchase", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Purchase deleted successfully"}))
}
