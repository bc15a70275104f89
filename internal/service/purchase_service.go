package service

import (
	"context"
	"fmt"
	"strings"

	"textile-erp/internal/apperror"
	"textile-erp/internal/calc"
	"textile-erp/internal/export"
	"textile-erp/internal/model"
	"textile-erp/internal/repository"

	"github.com/shopspring/decimal"
)

// --- DTOs ---

type CreatePurchaseRequest struct {
	PurchaseNo     string `json:"purchase_no"` // generated when empty
	PurchaseDate   string `json:"purchase_date" binding:"required"`
	VendorLedgerID string `json:"vendor_ledger_id" binding:"required"`
	MaterialType   string `json:"material_type" binding:"required,oneof=Cotton Silk Wool Polyester Linen"`
	TotalMeters    string `json:"total_meters" binding:"required"`
	RatePerMeter   string `json:"rate_per_meter"`
	GSTPercent     string `json:"gst_percent"`
	InvoiceNumber  string `json:"invoice_number"`
	Remarks        string `json:"remarks"`
}

type UpdatePurchaseRequest struct {
	PurchaseDate   *string `json:"purchase_date"`
	VendorLedgerID *string `json:"vendor_ledger_id"`
	MaterialType   *string `json:"material_type"`
	TotalMeters    *string `json:"total_meters"`
	RatePerMeter   *string `json:"rate_per_meter"`
	GSTPercent     *string `json:"gst_percent"`
	InvoiceNumber  *string `json:"invoice_number"`
	Remarks        *string `json:"remarks"`
}

// quantityFields reports whether req touches anything a downstream challan depends on
func (r UpdatePurchaseRequest) quantityFields() bool {
	return r.PurchaseDate != nil || r.VendorLedgerID != nil || r.MaterialType != nil ||
		r.TotalMeters != nil || r.RatePerMeter != nil || r.GSTPercent != nil
}

// --- Interface ---

type PurchaseService interface {
	CreatePurchase(ctx context.Context, userID string, req CreatePurchaseRequest) (*model.Purchase, error)
	UpdatePurchase(ctx context.Context, userID, id string, req UpdatePurchaseRequest) (*model.Purchase, error)
	DeletePurchase(ctx context.Context, userID, id string) error
	GetPurchase(ctx context.Context, id string) (*model.Purchase, error)
	ListPurchases(ctx context.Context, q ListQuery) ([]model.Purchase, int64, error)
	ExportPurchases(ctx context.Context, q ListQuery) (export.Table, error)
}

type purchaseService struct {
	purchaseRepo repository.PurchaseRepository
	ledgerRepo   repository.LedgerRepository
	txManager    repository.TransactionManager
	audit        auditor
}

func NewPurchaseService(
	purchaseRepo repository.PurchaseRepository,
	ledgerRepo repository.LedgerRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) PurchaseService {
	return &purchaseService{
		purchaseRepo: purchaseRepo,
		ledgerRepo:   ledgerRepo,
		txManager:    txManager,
		audit:        auditor{repo: auditRepo},
	}
}

var maxGSTPercent = decimal.NewFromInt(100)

func (s *purchaseService) CreatePurchase(ctx context.Context, userID string, req CreatePurchaseRequest) (*model.Purchase, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	purchaseDate, err := parseDate(req.PurchaseDate, "purchase_date")
	if err != nil {
		return nil, err
	}
	vendorID, err := parseID(req.VendorLedgerID, "vendor_ledger_id")
	if err != nil {
		return nil, err
	}
	meters, err := parsePositive(req.TotalMeters, "total_meters")
	if err != nil {
		return nil, err
	}
	rate, err := parseNonNegative(req.RatePerMeter, "rate_per_meter")
	if err != nil {
		return nil, err
	}
	gst, err := parseNonNegative(req.GSTPercent, "gst_percent")
	if err != nil {
		return nil, err
	}
	if gst.GreaterThan(maxGSTPercent) {
		return nil, apperror.Validation("gst_percent cannot exceed 100")
	}

	purchase := &model.Purchase{
		PurchaseNo:     strings.TrimSpace(req.PurchaseNo),
		PurchaseDate:   purchaseDate,
		VendorLedgerID: vendorID,
		MaterialType:   req.MaterialType,
		TotalMeters:    meters,
		RatePerMeter:   rate,
		GSTPercent:     gst,
		TotalAmount:    calc.PurchaseTotal(meters, rate, gst),
		InvoiceNumber:  strings.TrimSpace(req.InvoiceNumber),
		Remarks:        req.Remarks,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := requireLedger(txCtx, s.ledgerRepo, vendorID, model.LedgerTypeVendor, "vendor ledger"); err != nil {
			return err
		}
		if purchase.PurchaseNo == "" {
			no, err := s.purchaseRepo.NextNumber(txCtx, "PUR-"+purchaseDate.Format("20060102")+"-")
			if err != nil {
				return fmt.Errorf("failed to generate purchase number: %w", err)
			}
			purchase.PurchaseNo = no
		} else if exists, err := s.purchaseRepo.ExistsByNumber(txCtx, purchase.PurchaseNo, purchase.ID); err != nil {
			return fmt.Errorf("failed to check purchase number: %w", err)
		} else if exists {
			return apperror.Conflict("purchase number %s already exists", purchase.PurchaseNo)
		}

		if err := s.purchaseRepo.Create(txCtx, purchase); err != nil {
			return apperror.FromDB(err, "purchase")
		}
		return s.audit.record(txCtx, parseUserID(userID), model.ActionCreatePurchase, purchase.ID.String(), purchase.PurchaseNo, map[string]interface{}{
			"total_meters": purchase.TotalMeters,
			"total_amount": purchase.TotalAmount,
		})
	})
	if err != nil {
		return nil, err
	}
	return purchase, nil
}

// UpdatePurchase only lets remarks and the invoice number change once a challan or shorting
// entry points at the purchase.
func (s *purchaseService) UpdatePurchase(ctx context.Context, userID, id string, req UpdatePurchaseRequest) (*model.Purchase, error) {
	uid, err := parseID(id, "purchase ID")
	if err != nil {
		return nil, err
	}

	var purchase *model.Purchase
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		purchase, err = s.purchaseRepo.FindByIDForUpdate(txCtx, uid)
		if err != nil {
			return apperror.FromDB(err, "purchase")
		}

		if req.quantityFields() {
			refs, err := s.purchaseRepo.CountReferences(txCtx, uid)
			if err != nil {
				return fmt.Errorf("failed to check purchase references: %w", err)
			}
			if refs.Any() {
				return blockedBy("purchase "+purchase.PurchaseNo, "changed", refs)
			}
		}

		if req.PurchaseDate != nil {
			if purchase.PurchaseDate, err = parseDate(*req.PurchaseDate, "purchase_date"); err != nil {
				return err
			}
		}
		if req.VendorLedgerID != nil {
			vendorID, err := parseID(*req.VendorLedgerID, "vendor_ledger_id")
			if err != nil {
				return err
			}
			if _, err := requireLedger(txCtx, s.ledgerRepo, vendorID, model.LedgerTypeVendor, "vendor ledger"); err != nil {
				return err
			}
			purchase.VendorLedgerID = vendorID
			purchase.VendorLedger = nil
		}
		if req.MaterialType != nil {
			if !model.IsMaterialType(*req.MaterialType) {
				return apperror.Validation("material_type must be one of: Cotton, Silk, Wool, Polyester, Linen")
			}
			purchase.MaterialType = *req.MaterialType
		}
		if req.TotalMeters != nil {
			if purchase.TotalMeters, err = parsePositive(*req.TotalMeters, "total_meters"); err != nil {
				return err
			}
		}
		if req.RatePerMeter != nil {
			if purchase.RatePerMeter, err = parseNonNegative(*req.RatePerMeter, "rate_per_meter"); err != nil {
				return err
			}
		}
		if req.GSTPercent != nil {
			if purchase.GSTPercent, err = parseNonNegative(*req.GSTPercent, "gst_percent"); err != nil {
				return err
			}
			if purchase.GSTPercent.GreaterThan(maxGSTPercent) {
				return apperror.Validation("gst_percent cannot exceed 100")
			}
		}
		if req.InvoiceNumber != nil {
			purchase.InvoiceNumber = strings.TrimSpace(*req.InvoiceNumber)
		}
		if req.Remarks != nil {
			purchase.Remarks = *req.Remarks
		}
		purchase.TotalAmount = calc.PurchaseTotal(purchase.TotalMeters, purchase.RatePerMeter, purchase.GSTPercent)

		if err := s.purchaseRepo.Update(txCtx, purchase); err != nil {
			return apperror.FromDB(err, "purchase")
		}
		return s.audit.record(txCtx, parseUserID(userID), model.ActionUpdatePurchase, purchase.ID.String(), purchase.PurchaseNo, req)
	})
	if err != nil {
		return nil, err
	}
	return purchase, nil
}

func (s *purchaseService) DeletePurchase(ctx context.Context, userID, id string) error {
	uid, err := parseID(id, "purchase ID")
	if err != nil {
		return err
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		purchase, err := s.purchaseRepo.FindByIDForUpdate(txCtx, uid)
		if err != nil {
			return apperror.FromDB(err, "purchase")
		}
		refs, err := s.purchaseRepo.CountReferences(txCtx, uid)
		if err != nil {
			return fmt.Errorf("failed to check purchase references: %w", err)
		}
		if refs.Any() {
			return blockedBy("purchase "+purchase.PurchaseNo, "deleted", refs)
		}
		if err := s.purchaseRepo.Delete(txCtx, uid); err != nil {
			return apperror.FromDB(err, "purchase")
		}
		return s.audit.record(txCtx, parseUserID(userID), model.ActionDeletePurchase, purchase.ID.String(), purchase.PurchaseNo, nil)
	})
}

func (s *purchaseService) GetPurchase(ctx context.Context, id string) (*model.Purchase, error) {
	uid, err := parseID(id, "purchase ID")
	if err != nil {
		return nil, err
	}
	purchase, err := s.purchaseRepo.FindByID(ctx, uid)
	if err != nil {
		return nil, apperror.FromDB(err, "purchase")
	}
	return purchase, nil
}

func (s *purchaseService) ListPurchases(ctx context.Context, q ListQuery) ([]model.Purchase, int64, error) {
	f, err := q.Filter()
	if err != nil {
		return nil, 0, err
	}
	purchases, total, err := s.purchaseRepo.List(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch purchases: %w", err)
	}
	return purchases, total, nil
}

func (s *purchaseService) ExportPurchases(ctx context.Context, q ListQuery) (export.Table, error) {
	q.Page, q.Limit = 0, 0
	purchases, _, err := s.ListPurchases(ctx, q)
	if err != nil {
		return export.Table{}, err
	}
	return export.Purchases(purchases), nil
}
