package service

import (
	"context"
	"fmt"
	"strings"

	"textile-erp/internal/apperror"
	"textile-erp/internal/export"
	"textile-erp/internal/model"
	"textile-erp/internal/repository"

	"github.com/google/uuid"
)

// --- DTOs ---

type CreateExpenseRequest struct {
	ExpenseNo   string `json:"expense_no"`
	ExpenseDate string `json:"expense_date" binding:"required"`
	LedgerID    string `json:"ledger_id" binding:"required"`
	ChallanType string `json:"challan_type" binding:"omitempty,oneof=WEAVER STITCHING"`
	ChallanID   string `json:"challan_id"`
	Category    string `json:"category" binding:"required,max=100"`
	Amount      string `json:"amount" binding:"required"`
	PaymentMode string `json:"payment_mode" binding:"required,oneof=CASH BANK UPI CHEQUE"`
	Purpose     string `json:"purpose"`
}

type UpdateExpenseRequest struct {
	ExpenseDate *string `json:"expense_date"`
	LedgerID    *string `json:"ledger_id"`
	ChallanType *string `json:"challan_type"`
	ChallanID   *string `json:"challan_id"`
	Category    *string `json:"category"`
	Amount      *string `json:"amount"`
	PaymentMode *string `json:"payment_mode"`
	Purpose     *string `json:"purpose"`
}

type CreatePaymentVoucherRequest struct {
	VoucherNo       string `json:"voucher_no"`
	VoucherDate     string `json:"voucher_date" binding:"required"`
	LedgerID        string `json:"ledger_id" binding:"required"`
	ChallanType     string `json:"challan_type" binding:"omitempty,oneof=WEAVER STITCHING"`
	ChallanID       string `json:"challan_id"`
	Amount          string `json:"amount" binding:"required"`
	PaymentMode     string `json:"payment_mode" binding:"required,oneof=CASH BANK UPI CHEQUE"`
	ReferenceNumber string `json:"reference_number"`
	Purpose         string `json:"purpose"`
}

type UpdatePaymentVoucherRequest struct {
	VoucherDate     *string `json:"voucher_date"`
	LedgerID        *string `json:"ledger_id"`
	ChallanType     *string `json:"challan_type"`
	ChallanID       *string `json:"challan_id"`
	Amount          *string `json:"amount"`
	PaymentMode     *string `json:"payment_mode"`
	ReferenceNumber *string `json:"reference_number"`
	Purpose         *string `json:"purpose"`
}

// --- Interfaces ---

type ExpenseService interface {
	CreateExpense(ctx context.Context, userID string, req CreateExpenseRequest) (*model.Expense, error)
	UpdateExpense(ctx context.Context, userID, id string, req UpdateExpenseRequest) (*model.Expense, error)
	DeleteExpense(ctx context.Context, userID, id string) error
	GetExpense(ctx context.Context, id string) (*model.Expense, error)
	ListExpenses(ctx context.Context, q ListQuery) ([]model.Expense, int64, error)
	ExportExpenses(ctx context.Context, q ListQuery) (export.Table, error)
}

type PaymentVoucherService interface {
	CreatePaymentVoucher(ctx context.Context, userID string, req CreatePaymentVoucherRequest) (*model.PaymentVoucher, error)
	UpdatePaymentVoucher(ctx context.Context, userID, id string, req UpdatePaymentVoucherRequest) (*model.PaymentVoucher, error)
	DeletePaymentVoucher(ctx context.Context, userID, id string) error
	GetPaymentVoucher(ctx context.Context, id string) (*model.PaymentVoucher, error)
	ListPaymentVouchers(ctx context.Context, q ListQuery) ([]model.PaymentVoucher, int64, error)
	ExportPaymentVouchers(ctx context.Context, q ListQuery) (export.Table, error)
}

// challanRefs resolves the optional challan an expense or voucher is booked against
type challanRefs struct {
	ledgerRepo    repository.LedgerRepository
	weaverRepo    repository.WeaverChallanRepository
	stitchingRepo repository.StitchingChallanRepository
}

// check validates the ledger and, when set, that the challan exists and belongs to it
func (r challanRefs) check(ctx context.Context, ledgerID uuid.UUID, challanType string, challanID *uuid.UUID) error {
	if _, err := requireLedger(ctx, r.ledgerRepo, ledgerID, "", "ledger"); err != nil {
		return err
	}
	if challanType == "" && challanID == nil {
		return nil
	}
	if challanType == "" || challanID == nil {
		return apperror.Validation("challan_type and challan_id must be given together")
	}

	var owner uuid.UUID
	switch challanType {
	case model.ChallanTypeWeaver:
		challan, err := r.weaverRepo.FindByID(ctx, *challanID)
		if err != nil {
			return apperror.FromDB(err, "weaver challan")
		}
		owner = challan.WeaverLedgerID
	case model.ChallanTypeStitching:
		challan, err := r.stitchingRepo.FindByID(ctx, *challanID)
		if err != nil {
			return apperror.FromDB(err, "stitching challan")
		}
		owner = challan.LedgerID
	default:
		return apperror.Validation("challan_type must be one of: WEAVER, STITCHING")
	}
	if owner != ledgerID {
		return apperror.Validation("challan %s belongs to a different ledger", challanID)
	}
	return nil
}

func validPaymentMode(mode string) bool {
	switch mode {
	case model.PaymentModeCash, model.PaymentModeBank, model.PaymentModeUPI, model.PaymentModeCheque:
		return true
	}
	return false
}

// --- Expense ---

type expenseService struct {
	expenseRepo repository.ExpenseRepository
	refs        challanRefs
	txManager   repository.TransactionManager
	audit       auditor
}

func NewExpenseService(
	expenseRepo repository.ExpenseRepository,
	ledgerRepo repository.LedgerRepository,
	weaverRepo repository.WeaverChallanRepository,
	stitchingRepo repository.StitchingChallanRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) ExpenseService {
	return &expenseService{
		expenseRepo: expenseRepo,
		refs:        challanRefs{ledgerRepo: ledgerRepo, weaverRepo: weaverRepo, stitchingRepo: stitchingRepo},
		txManager:   txManager,
		audit:       auditor{repo: auditRepo},
	}
}

func (s *expenseService) CreateExpense(ctx context.Context, userID string, req CreateExpenseRequest) (*model.Expense, error) {
	req.Category = strings.TrimSpace(req.Category)
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	expenseDate, err := parseDate(req.ExpenseDate, "expense_date")
	if err != nil {
		return nil, err
	}
	ledgerID, err := parseID(req.LedgerID, "ledger_id")
	if err != nil {
		return nil, err
	}
	challanID, err := parseOptionalID(req.ChallanID, "challan_id")
	if err != nil {
		return nil, err
	}
	amount, err := parsePositive(req.Amount, "amount")
	if err != nil {
		return nil, err
	}

	expense := &model.Expense{
		ExpenseNo:   strings.TrimSpace(req.ExpenseNo),
		ExpenseDate: expenseDate,
		LedgerID:    ledgerID,
		ChallanType: req.ChallanType,
		ChallanID:   challanID,
		Category:    req.Category,
		Amount:      amount.Round(2),
		PaymentMode: req.PaymentMode,
		Purpose:     req.Purpose,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.refs.check(txCtx, ledgerID, expense.ChallanType, expense.ChallanID); err != nil {
			return err
		}
		if expense.ExpenseNo == "" {
			no, err := s.expenseRepo.NextNumber(txCtx, "EXP-"+expenseDate.Format("20060102")+"-")
			if err != nil {
				return fmt.Errorf("failed to generate expense number: %w", err)
			}
			expense.ExpenseNo = no
		} else if exists, err := s.expenseRepo.ExistsByNumber(txCtx, expense.ExpenseNo, uuid.Nil); err != nil {
			return fmt.Errorf("failed to check expense number: %w", err)
		} else if exists {
			return apperror.Conflict("expense number %s already exists", expense.ExpenseNo)
		}

		if err := s.expenseRepo.Create(txCtx, expense); err != nil {
			return apperror.FromDB(err, "expense")
		}
		return s.audit.record(txCtx, parseUserID(userID), model.ActionCreateExpense, expense.ID.String(), expense.ExpenseNo, map[string]interface{}{
			"amount":   expense.Amount,
			"category": expense.Category,
		})
	})
	if err != nil {
		return nil, err
	}
	return expense, nil
}

func (s *expenseService) UpdateExpense(ctx context.Context, userID, id string, req UpdateExpenseRequest) (*model.Expense, error) {
	uid, err := parseID(id, "expense ID")
	if err != nil {
		return nil, err
	}

	var expense *model.Expense
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		expense, err = s.expenseRepo.FindByIDForUpdate(txCtx, uid)
		if err != nil {
			return apperror.FromDB(err, "expense")
		}

		if req.ExpenseDate != nil {
			if expense.ExpenseDate, err = parseDate(*req.ExpenseDate, "expense_date"); err != nil {
				return err
			}
		}
		if req.LedgerID != nil {
			if expense.LedgerID, err = parseID(*req.LedgerID, "ledger_id"); err != nil {
				return err
			}
			expense.Ledger = nil
		}
		if req.ChallanType != nil {
			expense.ChallanType = *req.ChallanType
		}
		if req.ChallanID != nil {
			if expense.ChallanID, err = parseOptionalID(*req.ChallanID, "challan_id"); err != nil {
				return err
			}
		}
		if req.Category != nil {
			category := strings.TrimSpace(*req.Category)
			if category == "" {
				return apperror.Validation("category cannot be empty")
			}
			expense.Category = category
		}
		if req.Amount != nil {
			amount, err := parsePositive(*req.Amount, "amount")
			if err != nil {
				return err
			}
			expense.Amount = amount.Round(2)
		}
		if req.PaymentMode != nil {
			if !validPaymentMode(*req.PaymentMode) {
				return apperror.Validation("payment_mode must be one of: CASH, BANK, UPI, CHEQUE")
			}
			expense.PaymentMode = *req.PaymentMode
		}
		if req.Purpose != nil {
			expense.Purpose = *req.Purpose
		}
		if err := s.refs.check(txCtx, expense.LedgerID, expense.ChallanType, expense.ChallanID); err != nil {
			return err
		}

		if err := s.expenseRepo.Update(txCtx, expense); err != nil {
			return apperror.FromDB(err, "expense")
		}
		return s.audit.record(txCtx, parseUserID(userID), model.ActionUpdateExpense, expense.ID.String(), expense.ExpenseNo, req)
	})
	if err != nil {
		return nil, err
	}
	return expense, nil
}

func (s *expenseService) DeleteExpense(ctx context.Context, userID, id string) error {
	uid, err := parseID(id, "expense ID")
	if err != nil {
		return err
	}
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		expense, err := s.expenseRepo.FindByIDForUpdate(txCtx, uid)
		if err != nil {
			return apperror.FromDB(err, "expense")
		}
		if err := s.expenseRepo.Delete(txCtx, uid); err != nil {
			return apperror.FromDB(err, "expense")
		}
		return s.audit.record(txCtx, parseUserID(userID), model.ActionDeleteExpense, expense.ID.String(), expense.ExpenseNo, map[string]interface{}{
			"amount": expense.Amount,
		})
	})
}

func (s *expenseService) GetExpense(ctx context.Context, id string) (*model.Expense, error) {
	uid, err := parseID(id, "expense ID")
	if err != nil {
		return nil, err
	}
	expense, err := s.expenseRepo.FindByID(ctx, uid)
	if err != nil {
		return nil, apperror.FromDB(err, "expense")
	}
	return expense, nil
}

func (s *expenseService) ListExpenses(ctx context.Context, q ListQuery) ([]model.Expense, int64, error) {
	f, err := q.Filter()
	if err != nil {
		return nil, 0, err
	}
	expenses, total, err := s.expenseRepo.List(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch expenses: %w", err)
	}
	return expenses, total, nil
}

func (s *expenseService) ExportExpenses(ctx context.Context, q ListQuery) (export.Table, error) {
	q.Page, q.Limit = 0, 0
	expenses, _, err := s.ListExpenses(ctx, q)
	if err != nil {
		return export.Table{}, err
	}
	return export.Expenses(expenses), nil
}

// --- Payment voucher ---

type paymentVoucherService struct {
	voucherRepo repository.PaymentVoucherRepository
	refs        challanRefs
	txManager   repository.TransactionManager
	audit       auditor
}

func NewPaymentVoucherService(
	voucherRepo repository.PaymentVoucherRepository,
	ledgerRepo repository.LedgerRepository,
	weaverRepo repository.WeaverChallanRepository,
	stitchingRepo repository.StitchingChallanRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) PaymentVoucherService {
	return &paymentVoucherService{
		voucherRepo: voucherRepo,
		refs:        challanRefs{ledgerRepo: ledgerRepo, weaverRepo: weaverRepo, stitchingRepo: stitchingRepo},
		txManager:   txManager,
		audit:       auditor{repo: auditRepo},
	}
}

// cheque payments are traced by their cheque number
func checkVoucherReference(v *model.PaymentVoucher) error {
	if v.PaymentMode == model.PaymentModeCheque && strings.TrimSpace(v.ReferenceNumber) == "" {
		return apperror.Validation("reference_number is required for cheque payments")
	}
	return nil
}

func (s *paymentVoucherService) CreatePaymentVoucher(ctx context.Context, userID string, req CreatePaymentVoucherRequest) (*model.PaymentVoucher, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	voucherDate, err := parseDate(req.VoucherDate, "voucher_date")
	if err != nil {
		return nil, err
	}
	ledgerID, err := parseID(req.LedgerID, "ledger_id")
	if err != nil {
		return nil, err
	}
	challanID, err := parseOptionalID(req.ChallanID, "challan_id")
	if err != nil {
		return nil, err
	}
	amount, err := parsePositive(req.Amount, "amount")
	if err != nil {
		return nil, err
	}

	voucher := &model.PaymentVoucher{
		VoucherNo:       strings.TrimSpace(req.VoucherNo),
		VoucherDate:     voucherDate,
		LedgerID:        ledgerID,
		ChallanType:     req.ChallanType,
		ChallanID:       challanID,
		Amount:          amount.Round(2),
		PaymentMode:     req.PaymentMode,
		ReferenceNumber: strings.TrimSpace(req.ReferenceNumber),
		Purpose:         req.Purpose,
	}
	if err := checkVoucherReference(voucher); err != nil {
		return nil, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.refs.check(txCtx, ledgerID, voucher.ChallanType, voucher.ChallanID); err != nil {
			return err
		}
		if voucher.VoucherNo == "" {
			no, err := s.voucherRepo.NextNumber(txCtx, "PV-"+voucherDate.Format("20060102")+"-")
			if err != nil {
				return fmt.Errorf("failed to generate voucher number: %w", err)
			}
			voucher.VoucherNo = no
		} else if exists, err := s.voucherRepo.ExistsByNumber(txCtx, voucher.VoucherNo, uuid.Nil); err != nil {
			return fmt.Errorf("failed to check voucher number: %w", err)
		} else if exists {
			return apperror.Conflict("payment voucher number %s already exists", voucher.VoucherNo)
		}

		if err := s.voucherRepo.Create(txCtx, voucher); err != nil {
			return apperror.FromDB(err, "payment voucher")
		}
		return s.audit.record(txCtx, parseUserID(userID), model.ActionCreatePaymentVoucher, voucher.ID.String(), voucher.VoucherNo, map[string]interface{}{
			"amount":       voucher.Amount,
			"payment_mode": voucher.PaymentMode,
		})
	})
	if err != nil {
		return nil, err
	}
	return voucher, nil
}

func (s *paymentVoucherService) UpdatePaymentVoucher(ctx context.Context, userID, id string, req UpdatePaymentVoucherRequest) (*model.PaymentVoucher, error) {
	uid, err := parseID(id, "payment voucher ID")
	if err != nil {
		return nil, err
	}

	var voucher *model.PaymentVoucher
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		voucher, err = s.voucherRepo.FindByIDForUpdate(txCtx, uid)
		if err != nil {
			return apperror.FromDB(err, "payment voucher")
		}

		if req.VoucherDate != nil {
			if voucher.VoucherDate, err = parseDate(*req.VoucherDate, "voucher_date"); err != nil {
				return err
			}
		}
		if req.LedgerID != nil {
			if voucher.LedgerID, err = parseID(*req.LedgerID, "ledger_id"); err != nil {
				return err
			}
			voucher.Ledger = nil
		}
		if req.ChallanType != nil {
			voucher.ChallanType = *req.ChallanType
		}
		if req.ChallanID != nil {
			if voucher.ChallanID, err = parseOptionalID(*req.ChallanID, "challan_id"); err != nil {
				return err
			}
		}
		if req.Amount != nil {
			amount, err := parsePositive(*req.Amount, "amount")
			if err != nil {
				return err
			}
			voucher.Amount = amount.Round(2)
		}
		if req.PaymentMode != nil {
			if !validPaymentMode(*req.PaymentMode) {
				return apperror.Validation("payment_mode must be one of: CASH, BANK, UPI, CHEQUE")
			}
			voucher.PaymentMode = *req.PaymentMode
		}
		if req.ReferenceNumber != nil {
			voucher.ReferenceNumber = strings.TrimSpace(*req.ReferenceNumber)
		}
		if req.Purpose != nil {
			voucher.Purpose = *req.Purpose
		}
		if err := checkVoucherReference(voucher); err != nil {
			return err
		}
		if err := s.refs.check(txCtx, voucher.LedgerID, voucher.ChallanType, voucher.ChallanID); err != nil {
			return err
		}

		if err := s.voucherRepo.Update(txCtx, voucher); err != nil {
			return apperror.FromDB(err, "payment voucher")
		}
		return s.audit.record(txCtx, parseUserID(userID), model.ActionUpdatePaymentVoucher, voucher.ID.String(), voucher.VoucherNo, req)
	})
	if err != nil {
		return nil, err
	}
	return voucher, nil
}

func (s *paymentVoucherService) DeletePaymentVoucher(ctx context.Context, userID, id string) error {
	uid, err := parseID(id, "payment voucher ID")
	if err != nil {
		return err
	}
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		voucher, err := s.voucherRepo.FindByIDForUpdate(txCtx, uid)
		if err != nil {
			return apperror.FromDB(err, "payment voucher")
		}
		if err := s.voucherRepo.Delete(txCtx, uid); err != nil {
			return apperror.FromDB(err, "payment voucher")
		}
		return s.audit.record(txCtx, parseUserID(userID), model.ActionDeletePaymentVoucher, voucher.ID.String(), voucher.VoucherNo, map[string]interface{}{
			"amount": voucher.Amount,
		})
	})
}

func (s *paymentVoucherService) GetPaymentVoucher(ctx context.Context, id string) (*model.PaymentVoucher, error) {
	uid, err := parseID(id, "payment voucher ID")
	if err != nil {
		return nil, err
	}
	voucher, err := s.voucherRepo.FindByID(ctx, uid)
	if err != nil {
		return nil, apperror.FromDB(err, "payment voucher")
	}
	return voucher, nil
}

func (s *paymentVoucherService) ListPaymentVouchers(ctx context.Context, q ListQuery) ([]model.PaymentVoucher, int64, error) {
	f, err := q.Filter()
	if err != nil {
		return nil, 0, err
	}
	vouchers, total, err := s.voucherRepo.List(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch payment vouchers: %w", err)
	}
	return vouchers, total, nil
}

func (s *paymentVoucherService) ExportPaymentVouchers(ctx context.Context, q ListQuery) (export.Table, error) {
	q.Page, q.Limit = 0, 0
	vouchers, _, err := s.ListPaymentVouchers(ctx, q)
	if err != nil {
		return export.Table{}, err
	}
	return export.PaymentVouchers(vouchers), nil
}
