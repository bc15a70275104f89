package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"textile-erp/internal/apperror"
	"textile-erp/internal/calc"
	"textile-erp/internal/events"
	"textile-erp/internal/export"
	"textile-erp/internal/model"
	"textile-erp/internal/pipeline"
	"textile-erp/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type CreateWeaverChallanRequest struct {
	ChallanNo              string `json:"challan_no"`
	ChallanDate            string `json:"challan_date" binding:"required"`
	PurchaseID             string `json:"purchase_id"`
	WeaverLedgerID         string `json:"weaver_ledger_id" binding:"required"`
	MaterialType           string `json:"material_type" binding:"omitempty,oneof=Cotton Silk Wool Polyester Linen"`
	BatchNumber            string `json:"batch_number"`
	MSPartyName            string `json:"ms_party_name"`
	TotalGreyMeters        string `json:"total_grey_meters"`
	TakaCount              int    `json:"taka_count" binding:"gte=0"`
	QuantitySentMeters     string `json:"quantity_sent_meters" binding:"required"`
	QuantityReceivedMeters string `json:"quantity_received_meters"`
	RatePerMeter           string `json:"rate_per_meter"`
	VendorAmountOverride   string `json:"vendor_amount_override"`
	TransportName          string `json:"transport_name"`
	LRNumber               string `json:"lr_number"`
	TransportCharge        string `json:"transport_charge"`
	Remarks                string `json:"remarks"`
}

type UpdateWeaverChallanRequest struct {
	ChallanDate            *string `json:"challan_date"`
	WeaverLedgerID         *string `json:"weaver_ledger_id"`
	BatchNumber            *string `json:"batch_number"`
	MSPartyName            *string `json:"ms_party_name"`
	TotalGreyMeters        *string `json:"total_grey_meters"`
	TakaCount              *int    `json:"taka_count"`
	QuantitySentMeters     *string `json:"quantity_sent_meters"`
	QuantityReceivedMeters *string `json:"quantity_received_meters"`
	RatePerMeter           *string `json:"rate_per_meter"`
	VendorAmountOverride   *string `json:"vendor_amount_override"` // "" clears the override
	TransportName          *string `json:"transport_name"`
	LRNumber               *string `json:"lr_number"`
	TransportCharge        *string `json:"transport_charge"`
	Remarks                *string `json:"remarks"`
}

type ReceiveWeaverChallanRequest struct {
	QuantityReceivedMeters string `json:"quantity_received_meters" binding:"required"`
	ReceivedDate           string `json:"received_date"`
	Remarks                string `json:"remarks"`
}

// --- Interface ---

type WeaverChallanService interface {
	CreateWeaverChallan(ctx context.Context, userID string, req CreateWeaverChallanRequest) (*model.WeaverChallan, error)
	UpdateWeaverChallan(ctx context.Context, userID, id string, req UpdateWeaverChallanRequest) (*model.WeaverChallan, error)
	DeleteWeaverChallan(ctx context.Context, userID, id string) error
	GetWeaverChallan(ctx context.Context, id string) (*model.WeaverChallan, error)
	ListWeaverChallans(ctx context.Context, q ListQuery) ([]model.WeaverChallan, int64, error)
	ExportWeaverChallans(ctx context.Context, q ListQuery) (export.Table, error)
	ReceiveWeaverChallan(ctx context.Context, userID, id string, req ReceiveWeaverChallanRequest) (*model.WeaverChallan, error)
	CompleteWeaverChallan(ctx context.Context, userID, id string) (*model.WeaverChallan, error)
}

type weaverChallanService struct {
	challanRepo  repository.WeaverChallanRepository
	purchaseRepo repository.PurchaseRepository
	ledgerRepo   repository.LedgerRepository
	txManager    repository.TransactionManager
	audit        auditor
	publisher    events.Publisher
}

func NewWeaverChallanService(
	challanRepo repository.WeaverChallanRepository,
	purchaseRepo repository.PurchaseRepository,
	ledgerRepo repository.LedgerRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	publisher events.Publisher,
) WeaverChallanService {
	return &weaverChallanService{
		challanRepo:  challanRepo,
		purchaseRepo: purchaseRepo,
		ledgerRepo:   ledgerRepo,
		txManager:    txManager,
		audit:        auditor{repo: auditRepo},
		publisher:    publisherOrNop(publisher),
	}
}

// deriveWeaverChallan recomputes loss and vendor amount. Nothing is counted as lost while the
// cloth is still at the weaver.
func deriveWeaverChallan(w *model.WeaverChallan) error {
	if w.QuantityReceivedMeters.GreaterThan(w.QuantitySentMeters) {
		return apperror.InvalidQuantity("quantity_received_meters %s exceeds quantity_sent_meters %s",
			w.QuantityReceivedMeters, w.QuantitySentMeters)
	}
	if w.Status == pipeline.WeaverSent && w.QuantityReceivedMeters.IsZero() {
		w.WeavingLossMeters = decimal.Zero
		w.LossPercentage = decimal.Zero
	} else {
		loss, err := calc.Loss(w.QuantitySentMeters, w.QuantityReceivedMeters)
		if err != nil {
			return err
		}
		pct, err := calc.LossPercentage(w.QuantitySentMeters, w.QuantityReceivedMeters)
		if err != nil {
			return err
		}
		w.WeavingLossMeters = loss
		w.LossPercentage = pct
	}
	w.VendorAmount = calc.VendorAmount(w.QuantityReceivedMeters, w.RatePerMeter, w.Override())
	w.MetersPerTaka = calc.MetersPerTaka(w.TotalGreyMeters, w.TakaCount)
	return nil
}

func parseOverride(raw string) (decimal.NullDecimal, error) {
	if strings.TrimSpace(raw) == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := parseNonNegative(raw, "vendor_amount_override")
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

func (s *weaverChallanService) CreateWeaverChallan(ctx context.Context, userID string, req CreateWeaverChallanRequest) (*model.WeaverChallan, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	challanDate, err := parseDate(req.ChallanDate, "challan_date")
	if err != nil {
		return nil, err
	}
	weaverID, err := parseID(req.WeaverLedgerID, "weaver_ledger_id")
	if err != nil {
		return nil, err
	}
	purchaseID, err := parseOptionalID(req.PurchaseID, "purchase_id")
	if err != nil {
		return nil, err
	}

	challan := &model.WeaverChallan{
		ChallanNo:      strings.TrimSpace(req.ChallanNo),
		ChallanDate:    challanDate,
		PurchaseID:     purchaseID,
		WeaverLedgerID: weaverID,
		MaterialType:   req.MaterialType,
		BatchNumber:    strings.TrimSpace(req.BatchNumber),
		MSPartyName:    req.MSPartyName,
		TakaCount:      req.TakaCount,
		TransportName:  req.TransportName,
		LRNumber:       req.LRNumber,
		Status:         pipeline.WeaverSent,
		Remarks:        req.Remarks,
	}
	if challan.TotalGreyMeters, err = parseNonNegative(req.TotalGreyMeters, "total_grey_meters"); err != nil {
		return nil, err
	}
	if challan.QuantitySentMeters, err = parsePositive(req.QuantitySentMeters, "quantity_sent_meters"); err != nil {
		return nil, err
	}
	if challan.QuantityReceivedMeters, err = parseNonNegative(req.QuantityReceivedMeters, "quantity_received_meters"); err != nil {
		return nil, err
	}
	if challan.RatePerMeter, err = parseNonNegative(req.RatePerMeter, "rate_per_meter"); err != nil {
		return nil, err
	}
	if challan.VendorAmountOverride, err = parseOverride(req.VendorAmountOverride); err != nil {
		return nil, err
	}
	if challan.TransportCharge, err = parseNonNegative(req.TransportCharge, "transport_charge"); err != nil {
		return nil, err
	}
	if err := deriveWeaverChallan(challan); err != nil {
		return nil, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := requireLedger(txCtx, s.ledgerRepo, weaverID, model.LedgerTypeWeaver, "weaver ledger"); err != nil {
			return err
		}
		if purchaseID != nil {
			purchase, err := s.purchaseRepo.FindByID(txCtx, *purchaseID)
			if err != nil {
				return apperror.FromDB(err, "purchase")
			}
			if challan.MaterialType == "" {
				challan.MaterialType = purchase.MaterialType
			} else if challan.MaterialType != purchase.MaterialType {
				return apperror.Validation("material_type %s does not match purchase %s (%s)",
					challan.MaterialType, purchase.PurchaseNo, purchase.MaterialType)
			}
		}
		if challan.MaterialType == "" {
			return apperror.Validation("material_type is required")
		}

		if challan.ChallanNo == "" {
			no, err := s.challanRepo.NextNumber(txCtx, "WC-"+challanDate.Format("20060102")+"-")
			if err != nil {
				return fmt.Errorf("failed to generate challan number: %w", err)
			}
			challan.ChallanNo = no
		} else if exists, err := s.challanRepo.ExistsByNumber(txCtx, challan.ChallanNo, uuid.Nil); err != nil {
			return fmt.Errorf("failed to check challan number: %w", err)
		} else if exists {
			return apperror.Conflict("weaver challan number %s already exists", challan.ChallanNo)
		}

		if err := s.challanRepo.Create(txCtx, challan); err != nil {
			return apperror.FromDB(err, "weaver challan")
		}
		return s.audit.record(txCtx, parseUserID(userID), model.ActionCreateWeaverChallan, challan.ID.String(), challan.ChallanNo, map[string]interface{}{
			"quantity_sent_meters":     challan.QuantitySentMeters,
			"quantity_received_meters": challan.QuantityReceivedMeters,
		})
	})
	if err != nil {
		return nil, err
	}
	return challan, nil
}

// UpdateWeaverChallan rejects any change leaving received above sent. A completed challan
// only takes remarks and transport details.
func (s *weaverChallanService) UpdateWeaverChallan(ctx context.Context, userID, id string, req UpdateWeaverChallanRequest) (*model.WeaverChallan, error) {
	uid, err := parseID(id, "weaver challan ID")
	if err != nil {
		return nil, err
	}

	var challan *model.WeaverChallan
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		challan, err = s.challanRepo.FindByIDForUpdate(txCtx, uid)
		if err != nil {
			return apperror.FromDB(err, "weaver challan")
		}

		quantityChange := req.QuantitySentMeters != nil || req.QuantityReceivedMeters != nil ||
			req.RatePerMeter != nil || req.VendorAmountOverride != nil || req.WeaverLedgerID != nil
		if quantityChange && challan.Status.IsTerminal() {
			return apperror.Conflict("weaver challan %s is %s, quantities can no longer change", challan.ChallanNo, challan.Status)
		}

		if req.ChallanDate != nil {
			if challan.ChallanDate, err = parseDate(*req.ChallanDate, "challan_date"); err != nil {
				return err
			}
		}
		if req.WeaverLedgerID != nil {
			weaverID, err := parseID(*req.WeaverLedgerID, "weaver_ledger_id")
			if err != nil {
				return err
			}
			if _, err := requireLedger(txCtx, s.ledgerRepo, weaverID, model.LedgerTypeWeaver, "weaver ledger"); err != nil {
				return err
			}
			challan.WeaverLedgerID = weaverID
			challan.WeaverLedger = nil
		}
		if req.BatchNumber != nil {
			challan.BatchNumber = strings.TrimSpace(*req.BatchNumber)
		}
		if req.MSPartyName != nil {
			challan.MSPartyName = *req.MSPartyName
		}
		if req.TotalGreyMeters != nil {
			if challan.TotalGreyMeters, err = parseNonNegative(*req.TotalGreyMeters, "total_grey_meters"); err != nil {
				return err
			}
		}
		if req.TakaCount != nil {
			if *req.TakaCount < 0 {
				return apperror.Validation("taka_count cannot be negative")
			}
			challan.TakaCount = *req.TakaCount
		}
		if req.QuantitySentMeters != nil {
			if challan.QuantitySentMeters, err = parsePositive(*req.QuantitySentMeters, "quantity_sent_meters"); err != nil {
				return err
			}
		}
		if req.QuantityReceivedMeters != nil {
			if challan.QuantityReceivedMeters, err = parseNonNegative(*req.QuantityReceivedMeters, "quantity_received_meters"); err != nil {
				return err
			}
		}
		if req.RatePerMeter != nil {
			if challan.RatePerMeter, err = parseNonNegative(*req.RatePerMeter, "rate_per_meter"); err != nil {
				return err
			}
		}
		if req.VendorAmountOverride != nil {
			if challan.VendorAmountOverride, err = parseOverride(*req.VendorAmountOverride); err != nil {
				return err
			}
		}
		if req.TransportName != nil {
			challan.TransportName = *req.TransportName
		}
		if req.LRNumber != nil {
			challan.LRNumber = *req.LRNumber
		}
		if req.TransportCharge != nil {
			if challan.TransportCharge, err = parseNonNegative(*req.TransportCharge, "transport_charge"); err != nil {
				return err
			}
		}
		if req.Remarks != nil {
			challan.Remarks = *req.Remarks
		}
		if err := deriveWeaverChallan(challan); err != nil {
			return err
		}

		if err := s.challanRepo.Update(txCtx, challan); err != nil {
			return apperror.FromDB(err, "weaver challan")
		}
		return s.audit.record(txCtx, parseUserID(userID), model.ActionUpdateWeaverChallan, challan.ID.String(), challan.ChallanNo, req)
	})
	if err != nil {
		return nil, err
	}
	return challan, nil
}

// DeleteWeaverChallan only removes challans still at the weaver with no shorting entry
func (s *weaverChallanService) DeleteWeaverChallan(ctx context.Context, userID, id string) error {
	uid, err := parseID(id, "weaver challan ID")
	if err != nil {
		return err
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		challan, err := s.challanRepo.FindByIDForUpdate(txCtx, uid)
		if err != nil {
			return apperror.FromDB(err, "weaver challan")
		}
		if !challan.Status.IsInitial() {
			return apperror.Conflict("weaver challan %s is %s and cannot be deleted", challan.ChallanNo, challan.Status)
		}
		refs, err := s.challanRepo.CountReferences(txCtx, uid)
		if err != nil {
			return fmt.Errorf("failed to check weaver challan references: %w", err)
		}
		if refs.Any() {
			return blockedBy("weaver challan "+challan.ChallanNo, "deleted", refs)
		}
		if err := s.challanRepo.Delete(txCtx, uid); err != nil {
			return apperror.FromDB(err, "weaver challan")
		}
		return s.audit.record(txCtx, parseUserID(userID), model.ActionDeleteWeaverChallan, challan.ID.String(), challan.ChallanNo, nil)
	})
}

func (s *weaverChallanService) GetWeaverChallan(ctx context.Context, id string) (*model.WeaverChallan, error) {
	uid, err := parseID(id, "weaver challan ID")
	if err != nil {
		return nil, err
	}
	challan, err := s.challanRepo.FindByID(ctx, uid)
	if err != nil {
		return nil, apperror.FromDB(err, "weaver challan")
	}
	return challan, nil
}

func (s *weaverChallanService) ListWeaverChallans(ctx context.Context, q ListQuery) ([]model.WeaverChallan, int64, error) {
	if q.Status != "" {
		if _, err := pipeline.ParseWeaverStatus(q.Status); err != nil {
			return nil, 0, err
		}
	}
	f, err := q.Filter()
	if err != nil {
		return nil, 0, err
	}
	challans, total, err := s.challanRepo.List(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch weaver challans: %w", err)
	}
	return challans, total, nil
}

func (s *weaverChallanService) ExportWeaverChallans(ctx context.Context, q ListQuery) (export.Table, error) {
	q.Page, q.Limit = 0, 0
	challans, _, err := s.ListWeaverChallans(ctx, q)
	if err != nil {
		return export.Table{}, err
	}
	return export.WeaverChallans(challans), nil
}

// --- Status ---

func (s *weaverChallanService) ReceiveWeaverChallan(ctx context.Context, userID, id string, req ReceiveWeaverChallanRequest) (*model.WeaverChallan, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	received, err := parseNonNegative(req.QuantityReceivedMeters, "quantity_received_meters")
	if err != nil {
		return nil, err
	}
	receivedAt := time.Now().UTC()
	if req.ReceivedDate != "" {
		if receivedAt, err = parseDate(req.ReceivedDate, "received_date"); err != nil {
			return nil, err
		}
	}

	return s.changeStatus(ctx, userID, id, pipeline.WeaverReceived, func(challan *model.WeaverChallan) error {
		challan.QuantityReceivedMeters = received
		challan.ReceivedAt = &receivedAt
		if req.Remarks != "" {
			challan.Remarks = req.Remarks
		}
		return nil
	})
}

func (s *weaverChallanService) CompleteWeaverChallan(ctx context.Context, userID, id string) (*model.WeaverChallan, error) {
	return s.changeStatus(ctx, userID, id, pipeline.WeaverCompleted, func(challan *model.WeaverChallan) error {
		now := time.Now().UTC()
		challan.CompletedAt = &now
		return nil
	})
}

func (s *weaverChallanService) changeStatus(ctx context.Context, userID, id string, to pipeline.WeaverStatus, mutate func(*model.WeaverChallan) error) (*model.WeaverChallan, error) {
	uid, err := parseID(id, "weaver challan ID")
	if err != nil {
		return nil, err
	}

	var challan *model.WeaverChallan
	var from pipeline.WeaverStatus
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		challan, err = s.challanRepo.FindByIDForUpdate(txCtx, uid)
		if err != nil {
			return apperror.FromDB(err, "weaver challan")
		}
		from = challan.Status
		if err := from.Transition(to); err != nil {
			return err
		}
		challan.Status = to
		if err := mutate(challan); err != nil {
			return err
		}
		if err := deriveWeaverChallan(challan); err != nil {
			return err
		}
		if err := s.challanRepo.Update(txCtx, challan); err != nil {
			return apperror.FromDB(err, "weaver challan")
		}
		return s.audit.record(txCtx, parseUserID(userID), model.ActionWeaverStatus, challan.ID.String(), challan.ChallanNo, map[string]interface{}{
			"from":                     from,
			"to":                       to,
			"quantity_received_meters": challan.QuantityReceivedMeters,
		})
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, statusEvent("weaver_challan", challan.ID.String(), challan.ChallanNo, from, to))
	return challan, nil
}
