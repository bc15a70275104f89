package handler

import (
	"net/http"

	"textile-erp/internal/middleware"
	"textile-erp/internal/service"
	"textile-erp/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ExpenseHandler serves both expenses and payment vouchers
type ExpenseHandler struct {
	expenseService service.ExpenseService
	voucherService service.PaymentVoucherService
	exportService  service.ExportService
	log            logrus.FieldLogger
}

func NewExpenseHandler(
	expenseService service.ExpenseService,
	voucherService service.PaymentVoucherService,
	exportService service.ExportService,
	log logrus.FieldLogger,
) *ExpenseHandler {
	return &ExpenseHandler{
		expenseService: expenseService,
		voucherService: voucherService,
		exportService:  exportService,
		log:            log,
	}
}

func (h *ExpenseHandler) RegisterRoutes(router *gin.RouterGroup) {
	read := middleware.RequirePermission(middleware.PermAccountsRead)
	write := middleware.RequirePermission(middleware.PermAccountsWrite)

	expenses := router.Group("/api/expenses")
	{
		expenses.GET("", read, h.ListExpenses)
		expenses.GET("/export", read, h.ExportExpenses)
		expenses.GET("/:id", read, h.GetExpense)
		expenses.POST("", write, h.CreateExpense)
		expenses.PUT("/:id", write, h.UpdateExpense)
		expenses.DELETE("/:id", write, h.DeleteExpense)
	}

	vouchers := router.Group("/api/payment-vouchers")
	{
		vouchers.GET("", read, h.ListPaymentVouchers)
		vouchers.GET("/export", read, h.ExportPaymentVouchers)
		vouchers.GET("/:id", read, h.GetPaymentVoucher)
		vouchers.POST("", write, h.CreatePaymentVoucher)
		vouchers.PUT("/:id", write, h.UpdatePaymentVoucher)
		vouchers.DELETE("/:id", write, h.DeletePaymentVoucher)
	}
}

// ListExpenses
// @Summary      List expenses
// @Tags         expenses
// @Security     BearerAuth
// @Produce      json
// @Param        page       query     int     false  "Page number (default 1)"
// @Param        limit      query     int     false  "Items per page (default 20)"
// @Param        search     query     string  false  "Expense number, category or purpose"
// @Param        ledger_id  query     string  false  "Ledger"
// @Param        date_from  query     string  false  "YYYY-MM-DD"
// @Param        date_to    query     string  false  "YYYY-MM-DD"
// @Success      200  {object}  response.Response{data=[]model.Expense}
// @Router       /api/expenses [get]
func (h *ExpenseHandler) ListExpenses(c *gin.Context) {
	q := listQuery(c)
	expenses, total, err := h.expenseService.ListExpenses(c.Request.Context(), q)
	if err != nil {
		respondError(c, h.log, "ListExpenses", err)
		return
	}
	respondList(c, expenses, q, total)
}

// ExportExpenses
// @Summary      Export expenses
// @Tags         expenses
// @Security     BearerAuth
// @Produce      text/csv
// @Param        format  query  string  false  "csv (default) or xlsx"
// @Success      200
// @Router       /api/expenses/export [get]
func (h *ExpenseHandler) ExportExpenses(c *gin.Context) {
	table, err := h.expenseService.ExportExpenses(c.Request.Context(), exportQuery(c))
	if err != nil {
		respondError(c, h.log, "ExportExpenses", err)
		return
	}
	sendExport(c, h.log, h.exportService, table)
}

// GetExpense
// @Summary      Get expense
// @Tags         expenses
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Expense ID"
// @Success      200  {object}  response.Response{data=model.Expense}
// @Failure      404  {object}  response.Response
// @Router       /api/expenses/{id} [get]
func (h *ExpenseHandler) GetExpense(c *gin.Context) {
	expense, err := h.expenseService.GetExpense(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, "GetExpense", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, expense))
}

// CreateExpense
// @Summary      Create expense
// @Tags         expenses
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateExpenseRequest  true  "Expense"
// @Success      201      {object}  response.Response{data=model.Expense}
// @Failure      400      {object}  response.Response
// @Router       /api/expenses [post]
func (h *ExpenseHandler) CreateExpense(c *gin.Context) {
	var req service.CreateExpenseRequest
	if !bindJSON(c, &req) {
		return
	}
	expense, err := h.expenseService.CreateExpense(c.Request.Context(), userID(c), req)
	if err != nil {
		respondError(c, h.log, "CreateExpense", err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, expense))
}

// UpdateExpense
// @Summary      Update expense
// @Tags         expenses
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Expense ID"
// @Param        payload  body      service.UpdateExpenseRequest  true  "Changed fields"
// @Success      200      {object}  response.Response{data=model.Expense}
// @Failure      400      {object}  response.Response
// @Router       /api/expenses/{id} [put]
func (h *ExpenseHandler) UpdateExpense(c *gin.Context) {
	var req service.UpdateExpenseRequest
	if !bindJSON(c, &req) {
		return
	}
	expense, err := h.expenseService.UpdateExpense(c.Request.Context(), userID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, h.log, "UpdateExpense", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, expense))
}

// DeleteExpense
// @Summary      Delete expense
// @Tags         expenses
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Expense ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/expenses/{id} [delete]
func (h *ExpenseHandler) DeleteExpense(c *gin.Context) {
	if err := h.expenseService.DeleteExpense(c.Request.Context(), userID(c), c.Param("id")); err != nil {
		respondError(c, h.log, "DeleteExpense", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Expense deleted successfully"}))
}

// ListPaymentVouchers
// @Summary      List payment vouchers
// @Tags         payment-vouchers
// @Security     BearerAuth
// @Produce      json
// @Param        page       query     int     false  "Page number (default 1)"
// @Param        limit      query     int     false  "Items per page (default 20)"
// @Param        search     query     string  false  "Voucher number, reference or purpose"
// @Param        ledger_id  query     string  false  "Ledger"
// @Param        date_from  query     string  false  "YYYY-MM-DD"
// @Param        date_to    query     string  false  "YYYY-MM-DD"
// @Success      200  {object}  response.Response{data=[]model.PaymentVoucher}
// @Router       /api/payment-vouchers [get]
func (h *ExpenseHandler) ListPaymentVouchers(c *gin.Context) {
	q := listQuery(c)
	vouchers, total, err := h.voucherService.ListPaymentVouchers(c.Request.Context(), q)
	if err != nil {
		respondError(c, h.log, "ListPaymentVouchers", err)
		return
	}
	respondList(c, vouchers, q, total)
}

// ExportPaymentVouchers
// @Summary      Export payment vouchers
// @Tags         payment-vouchers
// @Security     BearerAuth
// @Produce      text/csv
// @Param        format  query  string  false  "csv (default) or xlsx"
// @Success      200
// @Router       /api/payment-vouchers/export [get]
func (h *ExpenseHandler) ExportPaymentVouchers(c *gin.Context) {
	table, err := h.voucherService.ExportPaymentVouchers(c.Request.Context(), exportQuery(c))
	if err != nil {
		respondError(c, h.log, "ExportPaymentVouchers", err)
		return
	}
	sendExport(c, h.log, h.exportService, table)
}

// GetPaymentVoucher
// @Summary      Get payment voucher
// @Tags         payment-vouchers
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Payment voucher ID"
// @Success      200  {object}  response.Response{data=model.PaymentVoucher}
// @Failure      404  {object}  response.Response
// @Router       /api/payment-vouchers/{id} [get]
func (h *ExpenseHandler) GetPaymentVoucher(c *gin.Context) {
	voucher, err := h.voucherService.GetPaymentVoucher(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, "GetPaymentVoucher", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, voucher))
}

// CreatePaymentVoucher
// @Summary      Create payment voucher
// @Description  BANK, UPI and CHEQUE payments need a reference number
// @Tags         payment-vouchers
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreatePaymentVoucherRequest  true  "Payment voucher"
// @Success      201      {object}  response.Response{data=model.PaymentVoucher}
// @Failure      400      {object}  response.Response
// @Router       /api/payment-vouchers [post]
func (h *ExpenseHandler) CreatePaymentVoucher(c *gin.Context) {
	var req service.CreatePaymentVoucherRequest
	if !bindJSON(c, &req) {
		return
	}
	voucher, err := h.voucherService.CreatePaymentVoucher(c.Request.Context(), userID(c), req)
	if err != nil {
		respondError(c, h.log, "CreatePaymentVoucher", err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, voucher))
}

// UpdatePaymentVoucher
// @Summary      Update payment voucher
// @Tags         payment-vouchers
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                               true  "Payment voucher ID"
// @Param        payload  body      service.UpdatePaymentVoucherRequest  true  "Changed fields"
// @Success      200      {object}  response.Response{data=model.PaymentVoucher}
// @Failure      400      {object}  response.Response
// @Router       /api/payment-vouchers/{id} [put]
func (h *ExpenseHandler) UpdatePaymentVoucher(c *gin.Context) {
	var req service.UpdatePaymentVoucherRequest
	if !bindJSON(c, &req) {
		return
	}
	voucher, err := h.voucherService.UpdatePaymentVoucher(c.Request.Context(), userID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, h.log, "UpdatePaymentVoucher", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, voucher))
}

// DeletePaymentVoucher
// @Summary      Delete payment voucher
// @Tags         payment-vouchers
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Payment voucher ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/payment-vouchers/{id} [delete]
func (h *ExpenseHandler) DeletePaymentVoucher(c *gin.Context) {
	if err := h.voucherService.DeletePaymentVoucher(c.Request.Context(), userID(c), c.Param("id")); err != nil {
		respondError(c, h.log, "DeletePaymentVoucher", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Payment voucher deleted successfully"}))
}
