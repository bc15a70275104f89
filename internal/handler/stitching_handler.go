package handler

import (
	"errors"
	"net/http"

	"textile-erp/internal/apperror"
	"textile-erp/internal/middleware"
	"textile-erp/internal/service"
	"textile-erp/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type StitchingHandler struct {
	challanService    service.StitchingChallanService
	conversionService service.ConversionService
	exportService     service.ExportService
	log               logrus.FieldLogger
}

func NewStitchingHandler(
	challanService service.StitchingChallanService,
	conversionService service.ConversionService,
	exportService service.ExportService,
	log logrus.FieldLogger,
) *StitchingHandler {
	return &StitchingHandler{
		challanService:    challanService,
		conversionService: conversionService,
		exportService:     exportService,
		log:               log,
	}
}

func (h *StitchingHandler) RegisterRoutes(router *gin.RouterGroup) {
	challans := router.Group("/api/stitching-challans")
	{
		challans.GET("", middleware.RequirePermission(middleware.PermProductionRead), h.ListStitchingChallans)
		challans.GET("/export", middleware.RequirePermission(middleware.PermProductionRead), h.ExportStitchingChallans)
		challans.GET("/:id", middleware.RequirePermission(middleware.PermProductionRead), h.GetStitchingChallan)
		challans.POST("", middleware.RequirePermission(middleware.PermProductionWrite), h.CreateStitchingChallan)
		challans.PUT("/:id", middleware.RequirePermission(middleware.PermProductionWrite), h.UpdateStitchingChallan)
		challans.DELETE("/:id", middleware.RequirePermission(middleware.PermProductionWrite), h.DeleteStitchingChallan)
		challans.PATCH("/:id/status", middleware.RequirePermission(middleware.PermProductionWrite), h.ChangeStatus)
		challans.POST("/:id/qc", middleware.RequirePermission(middleware.PermProductionWrite), h.RecordQC)
		challans.POST("/:id/approve-qc", middleware.RequirePermission(middleware.PermProductionWrite), h.ApproveQC)
		challans.POST("/:id/cancel", middleware.RequirePermission(middleware.PermProductionWrite), h.CancelStitchingChallan)
		challans.POST("/:id/convert", middleware.RequirePermission(middleware.PermConvert), h.ConvertToInventory)
	}
}

// ListStitchingChallans
// @Summary      List stitching challans
// @Tags         stitching-challans
// @Security     BearerAuth
// @Produce      json
// @Param        page       query     int     false  "Page number (default 1)"
// @Param        limit      query     int     false  "Items per page (default 20)"
// @Param        search     query     string  false  "Challan number, product name or SKU"
// @Param        status     query     string  false  "PENDING, QC_PENDING, QC_DONE, CONVERTED or CANCELLED"
// @Param        date_from  query     string  false  "YYYY-MM-DD"
// @Param        date_to    query     string  false  "YYYY-MM-DD"
// @Param        ledger_id  query     string  false  "Stitcher ledger"
// @Success      200  {object}  response.Response{data=[]model.StitchingChallan}
// @Failure      400  {object}  response.Response
// @Router       /api/stitching-challans [get]
func (h *StitchingHandler) ListStitchingChallans(c *gin.Context) {
	q := listQuery(c)
	challans, total, err := h.challanService.ListStitchingChallans(c.Request.Context(), q)
	if err != nil {
		respondError(c, h.log, "ListStitchingChallans", err)
		return
	}
	respondList(c, challans, q, total)
}

// ExportStitchingChallans
// @Summary      Export stitching challans
// @Tags         stitching-challans
// @Security     BearerAuth
// @Produce      text/csv
// @Param        format  query  string  false  "csv (default) or xlsx"
// @Success      200
// @Router       /api/stitching-challans/export [get]
func (h *StitchingHandler) ExportStitchingChallans(c *gin.Context) {
	table, err := h.challanService.ExportStitchingChallans(c.Request.Context(), exportQuery(c))
	if err != nil {
		respondError(c, h.log, "ExportStitchingChallans", err)
		return
	}
	sendExport(c, h.log, h.exportService, table)
}

// GetStitchingChallan
// @Summary      Get stitching challan
// @Tags         stitching-challans
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Stitching challan ID"
// @Success      200  {object}  response.Response{data=model.StitchingChallan}
// @Failure      404  {object}  response.Response
// @Router       /api/stitching-challans/{id} [get]
func (h *StitchingHandler) GetStitchingChallan(c *gin.Context) {
	challan, err := h.challanService.GetStitchingChallan(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, "GetStitchingChallan", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, challan))
}

// CreateStitchingChallan
// @Summary      Create stitching challan
// @Tags         stitching-challans
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateStitchingChallanRequest  true  "Stitching challan"
// @Success      201      {object}  response.Response{data=model.StitchingChallan}
// @Failure      400      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/stitching-challans [post]
func (h *StitchingHandler) CreateStitchingChallan(c *gin.Context) {
	var req service.CreateStitchingChallanRequest
	if !bindJSON(c, &req) {
		return
	}
	challan, err := h.challanService.CreateStitchingChallan(c.Request.Context(), userID(c), req)
	if err != nil {
		respondError(c, h.log, "CreateStitchingChallan", err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, challan))
}

// UpdateStitchingChallan
// @Summary      Update stitching challan
// @Description  Counts are frozen once QC is approved
// @Tags         stitching-challans
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                                 true  "Stitching challan ID"
// @Param        payload  body      service.UpdateStitchingChallanRequest  true  "Changed fields"
// @Success      200      {object}  response.Response{data=model.StitchingChallan}
// @Failure      409      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/stitching-challans/{id} [put]
func (h *StitchingHandler) UpdateStitchingChallan(c *gin.Context) {
	var req service.UpdateStitchingChallanRequest
	if !bindJSON(c, &req) {
		return
	}
	challan, err := h.challanService.UpdateStitchingChallan(c.Request.Context(), userID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, h.log, "UpdateStitchingChallan", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, challan))
}

// DeleteStitchingChallan
// @Summary      Delete stitching challan
// @Tags         stitching-challans
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Stitching challan ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/stitching-challans/{id} [delete]
func (h *StitchingHandler) DeleteStitchingChallan(c *gin.Context) {
	if err := h.challanService.DeleteStitchingChallan(c.Request.Context(), userID(c), c.Param("id")); err != nil {
		respondError(c, h.log, "DeleteStitchingChallan", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Stitching challan deleted successfully"}))
}

// ChangeStatus
// @Summary      Change stitching challan status
// @Description  CONVERTED can only be reached through the convert endpoint
// @Tags         stitching-challans
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                       true  "Stitching challan ID"
// @Param        payload  body      service.ChangeStatusRequest  true  "Target status"
// @Success      200      {object}  response.Response{data=model.StitchingChallan}
// @Failure      409      {object}  response.Response
// @Router       /api/stitching-challans/{id}/status [patch]
func (h *StitchingHandler) ChangeStatus(c *gin.Context) {
	var req service.ChangeStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	challan, err := h.challanService.ChangeStatus(c.Request.Context(), userID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, h.log, "ChangeStatus", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, challan))
}

// RecordQC
// @Summary      Record quality check
// @Tags         stitching-challans
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                   true  "Stitching challan ID"
// @Param        payload  body      service.RecordQCRequest  true  "Received and classified pieces"
// @Success      200      {object}  response.Response{data=model.StitchingChallan}
// @Failure      409      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/stitching-challans/{id}/qc [post]
func (h *StitchingHandler) RecordQC(c *gin.Context) {
	var req service.RecordQCRequest
	if !bindJSON(c, &req) {
		return
	}
	challan, err := h.challanService.RecordQC(c.Request.Context(), userID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, h.log, "RecordQC", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, challan))
}

// ApproveQC
// @Summary      Approve quality check
// @Description  Requires good + bad + wastage to equal the received pieces
// @Tags         stitching-challans
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Stitching challan ID"
// @Success      200  {object}  response.Response{data=model.StitchingChallan}
// @Failure      409  {object}  response.Response
// @Failure      422  {object}  response.Response
// @Router       /api/stitching-challans/{id}/approve-qc [post]
func (h *StitchingHandler) ApproveQC(c *gin.Context) {
	challan, err := h.challanService.ApproveQC(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		respondError(c, h.log, "ApproveQC", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, challan))
}

// CancelStitchingChallan
// @Summary      Cancel stitching challan
// @Tags         stitching-challans
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Stitching challan ID"
// @Success      200  {object}  response.Response{data=model.StitchingChallan}
// @Failure      409  {object}  response.Response
// @Router       /api/stitching-challans/{id}/cancel [post]
func (h *StitchingHandler) CancelStitchingChallan(c *gin.Context) {
	challan, err := h.challanService.CancelStitchingChallan(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		respondError(c, h.log, "CancelStitchingChallan", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, challan))
}

// ConvertToInventory
// @Summary      Convert to inventory
// @Description  Creates the inventory item for a QC_DONE challan. A repeated call answers 409 with the existing item.
// @Tags         stitching-challans
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Stitching challan ID"
// @Success      201  {object}  response.Response{data=model.InventoryItem}
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response{data=model.InventoryItem}
// @Router       /api/stitching-challans/{id}/convert [post]
func (h *StitchingHandler) ConvertToInventory(c *gin.Context) {
	item, err := h.conversionService.ConvertToInventory(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, apperror.ErrAlreadyConverted) && item != nil {
			c.JSON(http.StatusConflict, response.ErrorWithData(http.StatusConflict, apperror.Message(err), item))
			return
		}
		respondError(c, h.log, "ConvertToInventory", err)
		return
	}
	h.log.WithFields(logrus.Fields{
		"challan_id":   c.Param("id"),
		"item_id":      item.ID,
		"inventory_no": item.InventoryNo,
	}).Info("stitching challan converted to inventory")
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, item))
}
