package handler

import (
	"textile-erp/internal/middleware"
	"textile-erp/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type AuditHandler struct {
	auditService service.AuditService
	log          logrus.FieldLogger
}

func NewAuditHandler(auditService service.AuditService, log logrus.FieldLogger) *AuditHandler {
	return &AuditHandler{auditService: auditService, log: log}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api")
	group.Use(middleware.RequirePermission(middleware.PermAuditRead))
	{
		group.GET("/audit-logs", h.GetAuditLogs)
		group.GET("/conversion-logs", h.GetConversionLogs)
	}
}

// GetAuditLogs
// @Summary      Get audit logs
// @Description  Newest first. type filters by action, e.g. CREATE_PURCHASE or CONVERT_TO_INVENTORY.
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        page       query     int     false  "Page number (default 1)"
// @Param        limit      query     int     false  "Items per page (default 20)"
// @Param        type       query     string  false  "Action"
// @Param        search     query     string  false  "Entity ID, entity name or details"
// @Param        date_from  query     string  false  "YYYY-MM-DD"
// @Param        date_to    query     string  false  "YYYY-MM-DD"
// @Success      200  {object}  response.Response{data=[]model.AuditLog}
// @Router       /api/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	q := listQuery(c)
	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), q)
	if err != nil {
		respondError(c, h.log, "GetAuditLogs", err)
		return
	}
	respondList(c, logs, q, total)
}

// GetConversionLogs
// @Summary      Get conversion logs
// @Description  One row per stitching challan converted to inventory
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        page       query     int     false  "Page number (default 1)"
// @Param        limit      query     int     false  "Items per page (default 20)"
// @Param        date_from  query     string  false  "YYYY-MM-DD"
// @Param        date_to    query     string  false  "YYYY-MM-DD"
// @Success      200  {object}  response.Response{data=[]model.ConversionLog}
// @Router       /api/conversion-logs [get]
func (h *AuditHandler) GetConversionLogs(c *gin.Context) {
	q := listQuery(c)
	logs, total, err := h.auditService.GetConversionLogs(c.Request.Context(), q)
	if err != nil {
		respondError(c, h.log, "GetConversionLogs", err)
		return
	}
	respondList(c, logs, q, total)
}
