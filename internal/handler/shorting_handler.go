package handler

import (
	"net/http"

	"textile-erp/internal/middleware"
	"textile-erp/internal/service"
	"textile-erp/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type ShortingHandler struct {
	shortingService service.ShortingEntryService
	exportService   service.ExportService
	log             logrus.FieldLogger
}

func NewShortingHandler(shortingService service.ShortingEntryService, exportService service.ExportService, log logrus.FieldLogger) *ShortingHandler {
	return &ShortingHandler{shortingService: shortingService, exportService: exportService, log: log}
}

func (h *ShortingHandler) RegisterRoutes(router *gin.RouterGroup) {
	entries := router.Group("/api/shorting-entries")
	{
		entries.GET("", middleware.RequirePermission(middleware.PermProductionRead), h.ListShortingEntries)
		entries.GET("/export", middleware.RequirePermission(middleware.PermProductionRead), h.ExportShortingEntries)
		entries.GET("/:id", middleware.RequirePermission(middleware.PermProductionRead), h.GetShortingEntry)
		entries.POST("", middleware.RequirePermission(middleware.PermProductionWrite), h.CreateShortingEntry)
		entries.PUT("/:id", middleware.RequirePermission(middleware.PermProductionWrite), h.UpdateShortingEntry)
		entries.DELETE("/:id", middleware.RequirePermission(middleware.PermProductionWrite), h.DeleteShortingEntry)
	}
}

// ListShortingEntries
// @Summary      List shorting entries
// @Description  Each entry carries its quality rate and band
// @Tags         shorting-entries
// @Security     BearerAuth
// @Produce      json
// @Param        page           query     int     false  "Page number (default 1)"
// @Param        limit          query     int     false  "Items per page (default 20)"
// @Param        search         query     string  false  "Entry number or batch"
// @Param        date_from      query     string  false  "YYYY-MM-DD"
// @Param        date_to        query     string  false  "YYYY-MM-DD"
// @Param        material_type  query     string  false  "Material"
// @Success      200  {object}  response.Response{data=[]service.ShortingEntryView}
// @Failure      400  {object}  response.Response
// @Router       /api/shorting-entries [get]
func (h *ShortingHandler) ListShortingEntries(c *gin.Context) {
	q := listQuery(c)
	entries, total, err := h.shortingService.ListShortingEntries(c.Request.Context(), q)
	if err != nil {
		respondError(c, h.log, "ListShortingEntries", err)
		return
	}
	views := make([]service.ShortingEntryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, service.NewShortingEntryView(e))
	}
	respondList(c, views, q, total)
}

// ExportShortingEntries
// @Summary      Export shorting entries
// @Tags         shorting-entries
// @Security     BearerAuth
// @Produce      text/csv
// @Param        format  query  string  false  "csv (default) or xlsx"
// @Success      200
// @Router       /api/shorting-entries/export [get]
func (h *ShortingHandler) ExportShortingEntries(c *gin.Context) {
	table, err := h.shortingService.ExportShortingEntries(c.Request.Context(), exportQuery(c))
	if err != nil {
		respondError(c, h.log, "ExportShortingEntries", err)
		return
	}
	sendExport(c, h.log, h.exportService, table)
}

// GetShortingEntry
// @Summary      Get shorting entry
// @Tags         shorting-entries
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Shorting entry ID"
// @Success      200  {object}  response.Response{data=service.ShortingEntryView}
// @Failure      404  {object}  response.Response
// @Router       /api/shorting-entries/{id} [get]
func (h *ShortingHandler) GetShortingEntry(c *gin.Context) {
	entry, err := h.shortingService.GetShortingEntry(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, "GetShortingEntry", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, service.NewShortingEntryView(*entry)))
}

// CreateShortingEntry
// @Summary      Create shorting entry
// @Description  good + damaged + rejected must equal total_pieces
// @Tags         shorting-entries
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateShortingEntryRequest  true  "Shorting entry"
// @Success      201      {object}  response.Response{data=service.ShortingEntryView}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/shorting-entries [post]
func (h *ShortingHandler) CreateShortingEntry(c *gin.Context) {
	var req service.CreateShortingEntryRequest
	if !bindJSON(c, &req) {
		return
	}
	entry, err := h.shortingService.CreateShortingEntry(c.Request.Context(), userID(c), req)
	if err != nil {
		respondError(c, h.log, "CreateShortingEntry", err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, service.NewShortingEntryView(*entry)))
}

// UpdateShortingEntry
// @Summary      Update shorting entry
// @Tags         shorting-entries
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                              true  "Shorting entry ID"
// @Param        payload  body      service.UpdateShortingEntryRequest  true  "Changed fields"
// @Success      200      {object}  response.Response{data=service.ShortingEntryView}
// @Failure      422      {object}  response.Response
// @Router       /api/shorting-entries/{id} [put]
func (h *ShortingHandler) UpdateShortingEntry(c *gin.Context) {
	var req service.UpdateShortingEntryRequest
	if !bindJSON(c, &req) {
		return
	}
	entry, err := h.shortingService.UpdateShortingEntry(c.Request.Context(), userID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, h.log, "UpdateShortingEntry", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, service.NewShortingEntryView(*entry)))
}

// DeleteShortingEntry
// @Summary      Delete shorting entry
// @Tags         shorting-entries
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Shorting entry ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/shorting-entries/{id} [delete]
func (h *ShortingHandler) DeleteShortingEntry(c *gin.Context) {
	if err := h.shortingService.DeleteShortingEntry(c.Request.Context(), userID(c), c.Param("id")); err != nil {
		respondError(c, h.log, "DeleteShortingEntry", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Shorting entry deleted successfully"}))
}
