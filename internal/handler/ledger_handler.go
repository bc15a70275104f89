package handler

import (
	"net/http"

	"textile-erp/internal/middleware"
	"textile-erp/internal/service"
	"textile-erp/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type LedgerHandler struct {
	ledgerService service.LedgerService
	exportService service.ExportService
	log           logrus.FieldLogger
}

func NewLedgerHandler(ledgerService service.LedgerService, exportService service.ExportService, log logrus.FieldLogger) *LedgerHandler {
	return &LedgerHandler{ledgerService: ledgerService, exportService: exportService, log: log}
}

func (h *LedgerHandler) RegisterRoutes(router *gin.RouterGroup) {
	ledgers := router.Group("/api/ledgers")
	{
		ledgers.GET("", middleware.RequirePermission(middleware.PermLedgersRead), h.ListLedgers)
		ledgers.GET("/export", middleware.RequirePermission(middleware.PermLedgersRead), h.ExportLedgers)
		ledgers.GET("/:id", middleware.RequirePermission(middleware.PermLedgersRead), h.GetLedger)
		ledgers.POST("", middleware.RequirePermission(middleware.PermLedgersWrite), h.CreateLedger)
		ledgers.PUT("/:id", middleware.RequirePermission(middleware.PermLedgersWrite), h.UpdateLedger)
		ledgers.DELETE("/:id", middleware.RequirePermission(middleware.PermLedgersWrite), h.DeleteLedger)
	}
}

// ListLedgers
// @Summary      List ledgers
// @Description  Lists vendors, weavers, stitchers and customers
// @Tags         ledgers
// @Security     BearerAuth
// @Produce      json
// @Param        page       query     int     false  "Page number (default 1)"
// @Param        limit      query     int     false  "Items per page (default 20)"
// @Param        search     query     string  false  "Search by name, GST number, phone or city"
// @Param        type       query     string  false  "VENDOR, WEAVER, STITCHER or CUSTOMER"
// @Param        sortBy     query     string  false  "Sort field"
// @Param        sortOrder  query     string  false  "asc or desc"
// @Success      200  {object}  response.Response{data=[]model.Ledger}
// @Failure      400  {object}  response.Response
// @Failure      500  {object}  response.Response
// @Router       /api/ledgers [get]
func (h *LedgerHandler) ListLedgers(c *gin.Context) {
	q := listQuery(c)
	ledgers, total, err := h.ledgerService.ListLedgers(c.Request.Context(), q)
	if err != nil {
		respondError(c, h.log, "ListLedgers", err)
		return
	}
	respondList(c, ledgers, q, total)
}

// ExportLedgers
// @Summary      Export ledgers
// @Tags         ledgers
// @Security     BearerAuth
// @Produce      text/csv
// @Param        format  query  string  false  "csv (default) or xlsx"
// @Success      200
// @Failure      400  {object}  response.Response
// @Router       /api/ledgers/export [get]
func (h *LedgerHandler) ExportLedgers(c *gin.Context) {
	table, err := h.ledgerService.ExportLedgers(c.Request.Context(), exportQuery(c))
	if err != nil {
		respondError(c, h.log, "ExportLedgers", err)
		return
	}
	sendExport(c, h.log, h.exportService, table)
}

// GetLedger
// @Summary      Get ledger
// @Tags         ledgers
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Ledger ID"
// @Success      200  {object}  response.Response{data=model.Ledger}
// @Failure      404  {object}  response.Response
// @Router       /api/ledgers/{id} [get]
func (h *LedgerHandler) GetLedger(c *gin.Context) {
	ledger, err := h.ledgerService.GetLedger(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, "GetLedger", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, ledger))
}

// CreateLedger
// @Summary      Create ledger
// @Description  Phone numbers are stored in E.164, GSTIN and PAN are checked against each other
// @Tags         ledgers
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateLedgerRequest  true  "Ledger"
// @Success      201      {object}  response.Response{data=model.Ledger}
// @Failure      400      {object}  response.Response
// @Router       /api/ledgers [post]
func (h *LedgerHandler) CreateLedger(c *gin.Context) {
	var req service.CreateLedgerRequest
	if !bindJSON(c, &req) {
		return
	}
	ledger, err := h.ledgerService.CreateLedger(c.Request.Context(), userID(c), req)
	if err != nil {
		respondError(c, h.log, "CreateLedger", err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, ledger))
}

// UpdateLedger
// @Summary      Update ledger
// @Description  The ledger type can only change while nothing references the ledger
// @Tags         ledgers
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                       true  "Ledger ID"
// @Param        payload  body      service.UpdateLedgerRequest  true  "Changed fields"
// @Success      200      {object}  response.Response{data=model.Ledger}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/ledgers/{id} [put]
func (h *LedgerHandler) UpdateLedger(c *gin.Context) {
	var req service.UpdateLedgerRequest
	if !bindJSON(c, &req) {
		return
	}
	ledger, err := h.ledgerService.UpdateLedger(c.Request.Context(), userID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, h.log, "UpdateLedger", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, ledger))
}

// DeleteLedger
// @Summary      Delete ledger
// @Tags         ledgers
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Ledger ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/ledgers/{id} [delete]
func (h *LedgerHandler) DeleteLedger(c *gin.Context) {
	if err := h.ledgerService.DeleteLedger(c.Request.Context(), userID(c), c.Param("id")); err != nil {
		respondError(c, h.log, "DeleteLedger", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Ledger deleted successfully"}))
}
