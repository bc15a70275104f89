package handler

import (
	"net/http"

	"textile-erp/internal/middleware"
	"textile-erp/internal/service"
	"textile-erp/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type AnalyticsHandler struct {
	analyticsService service.AnalyticsService
	trendService     service.CostTrendService
	log              logrus.FieldLogger
}

func NewAnalyticsHandler(analyticsService service.AnalyticsService, trendService service.CostTrendService, log logrus.FieldLogger) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService, trendService: trendService, log: log}
}

func (h *AnalyticsHandler) RegisterRoutes(router *gin.RouterGroup) {
	analytics := router.Group("/api/analytics")
	analytics.Use(middleware.RequirePermission(middleware.PermAnalyticsRead))
	{
		analytics.GET("/rollup", h.GetRollup)
		analytics.GET("/dashboard", h.GetDashboard)
		analytics.GET("/cost-trend", h.GetCostTrend)
	}
}

// GetRollup
// @Summary      Quantity rollup
// @Description  Totals good, damaged and wastage pieces with their percentages and loss cost
// @Tags         analytics
// @Security     BearerAuth
// @Produce      json
// @Param        source     query     string  false  "inventory (default), stitching or shorting"
// @Param        date_from  query     string  false  "YYYY-MM-DD"
// @Param        date_to    query     string  false  "YYYY-MM-DD"
// @Success      200  {object}  response.Response{data=rollup.Summary}
// @Failure      400  {object}  response.Response
// @Router       /api/analytics/rollup [get]
func (h *AnalyticsHandler) GetRollup(c *gin.Context) {
	summary, err := h.analyticsService.Rollup(c.Request.Context(), c.DefaultQuery("source", service.RollupSourceInventory), exportQuery(c))
	if err != nil {
		respondError(c, h.log, "GetRollup", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}

// GetDashboard
// @Summary      Production dashboard
// @Description  Purchase, weaving, shorting, stitching and inventory figures with the cost summary
// @Tags         analytics
// @Security     BearerAuth
// @Produce      json
// @Param        date_from  query     string  false  "YYYY-MM-DD"
// @Param        date_to    query     string  false  "YYYY-MM-DD"
// @Success      200  {object}  response.Response{data=service.Dashboard}
// @Failure      400  {object}  response.Response
// @Router       /api/analytics/dashboard [get]
func (h *AnalyticsHandler) GetDashboard(c *gin.Context) {
	dashboard, err := h.analyticsService.Dashboard(c.Request.Context(), exportQuery(c))
	if err != nil {
		respondError(c, h.log, "GetDashboard", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, dashboard))
}

// GetCostTrend
// @Summary      Cost trend
// @Description  Purchase, weaving, stitching, transport, expense and voucher spend grouped by period. Defaults to the last twelve months.
// @Tags         analytics
// @Security     BearerAuth
// @Produce      json
// @Param        group_by   query     string  false  "week, month (default), quarter or year"
// @Param        date_from  query     string  false  "YYYY-MM-DD"
// @Param        date_to    query     string  false  "YYYY-MM-DD"
// @Success      200  {object}  response.Response{data=[]service.CostTrendPoint}
// @Failure      400  {object}  response.Response
// @Router       /api/analytics/cost-trend [get]
func (h *AnalyticsHandler) GetCostTrend(c *gin.Context) {
	points, err := h.trendService.CostTrend(c.Request.Context(), c.Query("group_by"), exportQuery(c))
	if err != nil {
		respondError(c, h.log, "GetCostTrend", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, points))
}
