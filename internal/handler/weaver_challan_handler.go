package handler

import (
	"net/http"

	"textile-erp/internal/middleware"
	"textile-erp/internal/service"
	"textile-erp/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type WeaverChallanHandler struct {
	challanService service.WeaverChallanService
	exportService  service.ExportService
	log            logrus.FieldLogger
}

func NewWeaverChallanHandler(challanService service.WeaverChallanService, exportService service.ExportService, log logrus.FieldLogger) *WeaverChallanHandler {
	return &WeaverChallanHandler{challanService: challanService, exportService: exportService, log: log}
}

func (h *WeaverChallanHandler) RegisterRoutes(router *gin.RouterGroup) {
	challans := router.Group("/api/weaver-challans")
	{
		challans.GET("", middleware.RequirePermission(middleware.PermProductionRead), h.ListWeaverChallans)
		challans.GET("/export", middleware.RequirePermission(middleware.PermProductionRead), h.ExportWeaverChallans)
		challans.GET("/:id", middleware.RequirePermission(middleware.PermProductionRead), h.GetWeaverChallan)
		challans.POST("", middleware.RequirePermission(middleware.PermProductionWrite), h.CreateWeaverChallan)
		challans.PUT("/:id", middleware.RequirePermission(middleware.PermProductionWrite), h.UpdateWeaverChallan)
		challans.DELETE("/:id", middleware.RequirePermission(middleware.PermProductionWrite), h.DeleteWeaverChallan)
		challans.POST("/:id/receive", middleware.RequirePermission(middleware.PermProductionWrite), h.ReceiveWeaverChallan)
		challans.POST("/:id/complete", middleware.RequirePermission(middleware.PermProductionWrite), h.CompleteWeaverChallan)
	}
}

// ListWeaverChallans
// @Summary      List weaver challans
// @Tags         weaver-challans
// @Security     BearerAuth
// @Produce      json
// @Param        page           query     int     false  "Page number (default 1)"
// @Param        limit          query     int     false  "Items per page (default 20)"
// @Param        search         query     string  false  "Challan number, batch or party name"
// @Param        status         query     string  false  "SENT, RECEIVED or COMPLETED"
// @Param        date_from      query     string  false  "YYYY-MM-DD"
// @Param        date_to        query     string  false  "YYYY-MM-DD"
// @Param        material_type  query     string  false  "Material"
// @Param        ledger_id      query     string  false  "Weaver ledger"
// @Success      200  {object}  response.Response{data=[]model.WeaverChallan}
// @Failure      400  {object}  response.Response
// @Router       /api/weaver-challans [get]
func (h *WeaverChallanHandler) ListWeaverChallans(c *gin.Context) {
	q := listQuery(c)
	challans, total, err := h.challanService.ListWeaverChallans(c.Request.Context(), q)
	if err != nil {
		respondError(c, h.log, "ListWeaverChallans", err)
		return
	}
	respondList(c, challans, q, total)
}

// ExportWeaverChallans
// @Summary      Export weaver challans
// @Tags         weaver-challans
// @Security     BearerAuth
// @Produce      text/csv
// @Param        format  query  string  false  "csv (default) or xlsx"
// @Success      200
// @Router       /api/weaver-challans/export [get]
func (h *WeaverChallanHandler) ExportWeaverChallans(c *gin.Context) {
	table, err := h.challanService.ExportWeaverChallans(c.Request.Context(), exportQuery(c))
	if err != nil {
		respondError(c, h.log, "ExportWeaverChallans", err)
		return
	}
	sendExport(c, h.log, h.exportService, table)
}

// GetWeaverChallan
// @Summary      Get weaver challan
// @Tags         weaver-challans
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Weaver challan ID"
// @Success      200  {object}  response.Response{data=model.WeaverChallan}
// @Failure      404  {object}  response.Response
// @Router       /api/weaver-challans/{id} [get]
func (h *WeaverChallanHandler) GetWeaverChallan(c *gin.Context) {
	challan, err := h.challanService.GetWeaverChallan(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, "GetWeaverChallan", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, challan))
}

// CreateWeaverChallan
// @Summary      Create weaver challan
// @Description  Loss and vendor amount are derived; received meters may not exceed sent meters
// @Tags         weaver-challans
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateWeaverChallanRequest  true  "Weaver challan"
// @Success      201      {object}  response.Response{data=model.WeaverChallan}
// @Failure      400      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/weaver-challans [post]
func (h *WeaverChallanHandler) CreateWeaverChallan(c *gin.Context) {
	var req service.CreateWeaverChallanRequest
	if !bindJSON(c, &req) {
		return
	}
	challan, err := h.challanService.CreateWeaverChallan(c.Request.Context(), userID(c), req)
	if err != nil {
		respondError(c, h.log, "CreateWeaverChallan", err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, challan))
}

// UpdateWeaverChallan
// @Summary      Update weaver challan
// @Tags         weaver-challans
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                              true  "Weaver challan ID"
// @Param        payload  body      service.UpdateWeaverChallanRequest  true  "Changed fields"
// @Success      200      {object}  response.Response{data=model.WeaverChallan}
// @Failure      409      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/weaver-challans/{id} [put]
func (h *WeaverChallanHandler) UpdateWeaverChallan(c *gin.Context) {
	var req service.UpdateWeaverChallanRequest
	if !bindJSON(c, &req) {
		return
	}
	challan, err := h.challanService.UpdateWeaverChallan(c.Request.Context(), userID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, h.log, "UpdateWeaverChallan", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, challan))
}

// DeleteWeaverChallan
// @Summary      Delete weaver challan
// @Tags         weaver-challans
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Weaver challan ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/weaver-challans/{id} [delete]
func (h *WeaverChallanHandler) DeleteWeaverChallan(c *gin.Context) {
	if err := h.challanService.DeleteWeaverChallan(c.Request.Context(), userID(c), c.Param("id")); err != nil {
		respondError(c, h.log, "DeleteWeaverChallan", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Weaver challan deleted successfully"}))
}

// ReceiveWeaverChallan
// @Summary      Receive woven cloth
// @Tags         weaver-challans
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                               true  "Weaver challan ID"
// @Param        payload  body      service.ReceiveWeaverChallanRequest  true  "Received meters"
// @Success      200      {object}  response.Response{data=model.WeaverChallan}
// @Failure      409      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/weaver-challans/{id}/receive [post]
func (h *WeaverChallanHandler) ReceiveWeaverChallan(c *gin.Context) {
	var req service.ReceiveWeaverChallanRequest
	if !bindJSON(c, &req) {
		return
	}
	challan, err := h.challanService.ReceiveWeaverChallan(c.Request.Context(), userID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, h.log, "ReceiveWeaverChallan", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, challan))
}

// CompleteWeaverChallan
// @Summary      Complete weaver challan
// @Tags         weaver-challans
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Weaver challan ID"
// @Success      200  {object}  response.Response{data=model.WeaverChallan}
// @Failure      409  {object}  response.Response
// @Router       /api/weaver-challans/{id}/complete [post]
func (h *WeaverChallanHandler) CompleteWeaverChallan(c *gin.Context) {
	challan, err := h.challanService.CompleteWeaverChallan(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		respondError(c, h.log, "CompleteWeaverChallan", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, challan))
}
