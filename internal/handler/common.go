package handler

import (
	"net/http"

	"textile-erp/internal/apperror"
	"textile-erp/internal/export"
	"textile-erp/internal/logger"
	"textile-erp/internal/service"
	"textile-erp/pkg/pagination"
	"textile-erp/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// respondError maps err onto the response envelope. Storage failures are logged and
// answered with a generic message.
func respondError(c *gin.Context, log logrus.FieldLogger, funcName string, err error) {
	status := apperror.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		logger.LogError(log, "handler", funcName, c.Request.Method+" "+c.FullPath(), c.Param("id"), err)
	}
	c.JSON(status, response.Error(status, apperror.Message(err)))
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return false
	}
	return true
}

// listQuery reads the shared list filters, page and sort parameters
func listQuery(c *gin.Context) service.ListQuery {
	page := pagination.Parse(c)
	sort := pagination.ParseSort(c)
	return service.ListQuery{
		Search:         c.Query("search"),
		DateFrom:       c.Query("date_from"),
		DateTo:         c.Query("date_to"),
		MaterialType:   c.Query("material_type"),
		Status:         c.Query("status"),
		LedgerID:       c.Query("ledger_id"),
		Type:           c.Query("type"),
		Classification: c.Query("classification"),
		SortBy:         sort.By,
		SortOrder:      sort.Order,
		Page:           page.Page,
		Limit:          page.Limit,
	}
}

// exportQuery is listQuery without pagination
func exportQuery(c *gin.Context) service.ListQuery {
	q := listQuery(c)
	q.Page, q.Limit = 0, 0
	return q
}

func respondList(c *gin.Context, data interface{}, q service.ListQuery, total int64) {
	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, data, q.Page, q.Limit, total))
}

// sendExport renders table in the requested format and streams it as an attachment
func sendExport(c *gin.Context, log logrus.FieldLogger, exports service.ExportService, table export.Table) {
	file, err := exports.Render(c.Request.Context(), table, c.Query("format"))
	if err != nil {
		respondError(c, log, "sendExport", err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+file.Name+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

func userID(c *gin.Context) string {
	return c.GetString("userID")
}
