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

type CreateStitchingChallanRequest struct {
	ChallanNo              string   `json:"challan_no"`
	ChallanDate            string   `json:"challan_date" binding:"required"`
	LedgerID               string   `json:"ledger_id" binding:"required"`
	ShortingEntryID        string   `json:"shorting_entry_id"`
	ProductName            string   `json:"product_name" binding:"required,max=255"`
	SKU                    string   `json:"sku"`
	BatchNumbers           []string `json:"batch_numbers"`
	QuantitySentPieces     int      `json:"quantity_sent_pieces" binding:"required,gte=1"`
	QuantityReceivedPieces int      `json:"quantity_received_pieces" binding:"gte=0"`
	RatePerPiece           string   `json:"rate_per_piece"`
	GoodPieces             int      `json:"good_pieces" binding:"gte=0"`
	BadPieces              int      `json:"bad_pieces" binding:"gte=0"`
	WastagePieces          int      `json:"wastage_pieces" binding:"gte=0"`
	TransportName          string   `json:"transport_name"`
	LRNumber               string   `json:"lr_number"`
	TransportCharge        string   `json:"transport_charge"`
	Remarks                string   `json:"remarks"`
}

type UpdateStitchingChallanRequest struct {
	ChallanDate            *string   `json:"challan_date"`
	LedgerID               *string   `json:"ledger_id"`
	ProductName            *string   `json:"product_name"`
	SKU                    *string   `json:"sku"`
	BatchNumbers           *[]string `json:"batch_numbers"`
	QuantitySentPieces     *int      `json:"quantity_sent_pieces"`
	QuantityReceivedPieces *int      `json:"quantity_received_pieces"`
	RatePerPiece           *string   `json:"rate_per_piece"`
	GoodPieces             *int      `json:"good_pieces"`
	BadPieces              *int      `json:"bad_pieces"`
	WastagePieces          *int      `json:"wastage_pieces"`
	TransportName          *string   `json:"transport_name"`
	LRNumber               *string   `json:"lr_number"`
	TransportCharge        *string   `json:"transport_charge"`
	Remarks                *string   `json:"remarks"`
}

// quantityFields reports whether req changes counts, rate or ledger
func (r UpdateStitchingChallanRequest) quantityFields() bool {
	return r.LedgerID != nil || r.QuantitySentPieces != nil || r.QuantityReceivedPieces != nil ||
		r.RatePerPiece != nil || r.GoodPieces != nil || r.BadPieces != nil || r.WastagePieces != nil
}

type RecordQCRequest struct {
	QuantityReceivedPieces int    `json:"quantity_received_pieces" binding:"gte=0"`
	GoodPieces             int    `json:"good_pieces" binding:"gte=0"`
	BadPieces              int    `json:"bad_pieces" binding:"gte=0"`
	WastagePieces          int    `json:"wastage_pieces" binding:"gte=0"`
	Remarks                string `json:"remarks"`
}

type ChangeStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// --- Interface ---

type StitchingChallanService interface {
	CreateStitchingChallan(ctx context.Context, userID string, req CreateStitchingChallanRequest) (*model.StitchingChallan, error)
	UpdateStitchingChallan(ctx context.Context, userID, id string, req UpdateStitchingChallanRequest) (*model.StitchingChallan, error)
	DeleteStitchingChallan(ctx context.Context, userID, id string) error
	GetStitchingChallan(ctx context.Context, id string) (*model.StitchingChallan, error)
	ListStitchingChallans(ctx context.Context, q ListQuery) ([]model.StitchingChallan, int64, error)
	ExportStitchingChallans(ctx context.Context, q ListQuery) (export.Table, error)
	RecordQC(ctx context.Context, userID, id string, req RecordQCRequest) (*model.StitchingChallan, error)
	ApproveQC(ctx context.Context, userID, id string) (*model.StitchingChallan, error)
	CancelStitchingChallan(ctx context.Context, userID, id string) (*model.StitchingChallan, error)
	ChangeStatus(ctx context.Context, userID, id string, req ChangeStatusRequest) (*model.StitchingChallan, error)
}

type stitchingChallanService struct {
	challanRepo  repository.StitchingChallanRepository
	shortingRepo repository.ShortingEntryRepository
	ledgerRepo   repository.LedgerRepository
	txManager    repository.TransactionManager
	audit        auditor
	publisher    events.Publisher
}

func NewStitchingChallanService(
	challanRepo repository.StitchingChallanRepository,
	shortingRepo repository.ShortingEntryRepository,
	ledgerRepo repository.LedgerRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	publisher events.Publisher,
) StitchingChallanService {
	return &stitchingChallanService{
		challanRepo:  challanRepo,
		shortingRepo: shortingRepo,
		ledgerRepo:   ledgerRepo,
		txManager:    txManager,
		audit:        auditor{repo: auditRepo},
		publisher:    publisherOrNop(publisher),
	}
}

// deriveStitchingChallan checks the piece counts and recomputes loss and amount payable
func deriveStitchingChallan(c *model.StitchingChallan) error {
	if c.QuantitySentPieces <= 0 {
		return apperror.InvalidQuantity("quantity_sent_pieces must be greater than 0")
	}
	if c.GoodPieces < 0 || c.BadPieces < 0 || c.WastagePieces < 0 || c.QuantityReceivedPieces < 0 {
		return apperror.InvalidQuantity("piece counts cannot be negative")
	}
	if c.QuantityReceivedPieces > c.QuantitySentPieces {
		return apperror.InvalidQuantity("quantity_received_pieces %d exceeds quantity_sent_pieces %d",
			c.QuantityReceivedPieces, c.QuantitySentPieces)
	}
	if classified := c.ClassifiedPieces(); classified > c.QuantityReceivedPieces {
		return apperror.InvalidQuantity("good + bad + wastage = %d exceeds quantity_received_pieces %d",
			classified, c.QuantityReceivedPieces)
	}

	if c.QuantityReceivedPieces == 0 && (c.Status.IsInitial() || c.Status == pipeline.StitchingCancelled) {
		c.StitchingLossPieces = 0
		c.LossPercentage = decimal.Zero
	} else {
		loss, err := calc.LossPieces(c.QuantitySentPieces, c.QuantityReceivedPieces)
		if err != nil {
			return err
		}
		pct, err := calc.LossPercentagePieces(c.QuantitySentPieces, c.QuantityReceivedPieces)
		if err != nil {
			return err
		}
		c.StitchingLossPieces = loss
		c.LossPercentage = pct
	}
	c.AmountPayable = calc.DeriveAmountPieces(c.QuantityReceivedPieces, c.RatePerPiece).Round(2)
	return nil
}

func cleanBatches(batches []string) []string {
	out := make([]string, 0, len(batches))
	seen := make(map[string]bool, len(batches))
	for _, b := range batches {
		b = strings.TrimSpace(b)
		if b == "" || seen[b] {
			continue
		}
		seen[b] = true
		out = append(out, b)
	}
	return out
}

func (s *stitchingChallanService) CreateStitchingChallan(ctx context.Context, userID string, req CreateStitchingChallanRequest) (*model.StitchingChallan, error) {
	req.ProductName = strings.TrimSpace(req.ProductName)
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	challanDate, err := parseDate(req.ChallanDate, "challan_date")
	if err != nil {
		return nil, err
	}
	ledgerID, err := parseID(req.LedgerID, "ledger_id")
	if err != nil {
		return nil, err
	}
	shortingID, err := parseOptionalID(req.ShortingEntryID, "shorting_entry_id")
	if err != nil {
		return nil, err
	}

	challan := &model.StitchingChallan{
		ChallanNo:              strings.TrimSpace(req.ChallanNo),
		ChallanDate:            challanDate,
		LedgerID:               ledgerID,
		ShortingEntryID:        shortingID,
		ProductName:            req.ProductName,
		SKU:                    strings.TrimSpace(req.SKU),
		QuantitySentPieces:     req.QuantitySentPieces,
		QuantityReceivedPieces: req.QuantityReceivedPieces,
		GoodPieces:             req.GoodPieces,
		BadPieces:              req.BadPieces,
		WastagePieces:          req.WastagePieces,
		Status:                 pipeline.StitchingPending,
		TransportName:          req.TransportName,
		LRNumber:               req.LRNumber,
		Remarks:                req.Remarks,
	}
	if challan.RatePerPiece, err = parseNonNegative(req.RatePerPiece, "rate_per_piece"); err != nil {
		return nil, err
	}
	if challan.TransportCharge, err = parseNonNegative(req.TransportCharge, "transport_charge"); err != nil {
		return nil, err
	}
	batches := cleanBatches(req.BatchNumbers)

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := requireLedger(txCtx, s.ledgerRepo, ledgerID, model.LedgerTypeStitcher, "stitching ledger"); err != nil {
			return err
		}
		if shortingID != nil {
			entry, err := s.shortingRepo.FindByID(txCtx, *shortingID)
			if err != nil {
				return apperror.FromDB(err, "shorting entry")
			}
			if len(batches) == 0 && entry.BatchNumber != "" {
				batches = []string{entry.BatchNumber}
			}
		}
		if err := challan.SetBatches(batches); err != nil {
			return fmt.Errorf("failed to encode batch numbers: %w", err)
		}
		if err := deriveStitchingChallan(challan); err != nil {
			return err
		}

		if challan.ChallanNo == "" {
			no, err := s.challanRepo.NextNumber(txCtx, "SC-"+challanDate.Format("20060102")+"-")
			if err != nil {
				return fmt.Errorf("failed to generate challan number: %w", err)
			}
			challan.ChallanNo = no
		} else if exists, err := s.challanRepo.ExistsByNumber(txCtx, challan.ChallanNo, uuid.Nil); err != nil {
			return fmt.Errorf("failed to check challan number: %w", err)
		} else if exists {
			return apperror.Conflict("stitching challan number %s already exists", challan.ChallanNo)
		}

		if err := s.challanRepo.Create(txCtx, challan); err != nil {
			return apperror.FromDB(err, "stitching challan")
		}
		return s.audit.record(txCtx, parseUserID(userID), model.ActionCreateStitchingChallan, challan.ID.String(), challan.ChallanNo, map[string]interface{}{
			"quantity_sent_pieces": challan.QuantitySentPieces,
			"product_name":         challan.ProductName,
		})
	})
	if err != nil {
		return nil, err
	}
	return challan, nil
}

// UpdateStitchingChallan refuses terminal challans. After QC approval the counts are frozen
// so that conversion sees the approved figures.
func (s *stitchingChallanService) UpdateStitchingChallan(ctx context.Context, userID, id string, req UpdateStitchingChallanRequest) (*model.StitchingChallan, error) {
	uid, err := parseID(id, "stitching challan ID")
	if err != nil {
		return nil, err
	}

	var challan *model.StitchingChallan
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		challan, err = s.challanRepo.FindByIDForUpdate(txCtx, uid)
		if err != nil {
			return apperror.FromDB(err, "stitching challan")
		}
		if challan.Status.IsTerminal() {
			return apperror.Conflict("stitching challan %s is %s and can no longer be edited", challan.ChallanNo, challan.Status)
		}
		if challan.Status == pipeline.StitchingQCDone && req.quantityFields() {
			return apperror.Conflict("stitching challan %s has passed QC, quantities can no longer change", challan.ChallanNo)
		}

		if req.ChallanDate != nil {
			if challan.ChallanDate, err = parseDate(*req.ChallanDate, "challan_date"); err != nil {
				return err
			}
		}
		if req.LedgerID != nil {
			ledgerID, err := parseID(*req.LedgerID, "ledger_id")
			if err != nil {
				return err
			}
			if _, err := requireLedger(txCtx, s.ledgerRepo, ledgerID, model.LedgerTypeStitcher, "stitching ledger"); err != nil {
				return err
			}
			challan.LedgerID = ledgerID
			challan.Ledger = nil
		}
		if req.ProductName != nil {
			name := strings.TrimSpace(*req.ProductName)
			if name == "" {
				return apperror.Validation("product_name cannot be empty")
			}
			challan.ProductName = name
		}
		if req.SKU != nil {
			challan.SKU = strings.TrimSpace(*req.SKU)
		}
		if req.BatchNumbers != nil {
			if err := challan.SetBatches(cleanBatches(*req.BatchNumbers)); err != nil {
				return fmt.Errorf("failed to encode batch numbers: %w", err)
			}
		}
		if req.QuantitySentPieces != nil {
			challan.QuantitySentPieces = *req.QuantitySentPieces
		}
		if req.QuantityReceivedPieces != nil {
			challan.QuantityReceivedPieces = *req.QuantityReceivedPieces
		}
		if req.GoodPieces != nil {
			challan.GoodPieces = *req.GoodPieces
		}
		if req.BadPieces != nil {
			challan.BadPieces = *req.BadPieces
		}
		if req.WastagePieces != nil {
			challan.WastagePieces = *req.WastagePieces
		}
		if req.RatePerPiece != nil {
			if challan.RatePerPiece, err = parseNonNegative(*req.RatePerPiece, "rate_per_piece"); err != nil {
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
		if err := deriveStitchingChallan(challan); err != nil {
			return err
		}

		if err := s.challanRepo.Update(txCtx, challan); err != nil {
			return apperror.FromDB(err, "stitching challan")
		}
		return s.audit.record(txCtx, parseUserID(userID), model.ActionUpdateStitchingChallan, challan.ID.String(), challan.ChallanNo, req)
	})
	if err != nil {
		return nil, err
	}
	return challan, nil
}

func (s *stitchingChallanService) DeleteStitchingChallan(ctx context.Context, userID, id string) error {
	uid, err := parseID(id, "stitching challan ID")
	if err != nil {
		return err
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		challan, err := s.challanRepo.FindByIDForUpdate(txCtx, uid)
		if err != nil {
			return apperror.FromDB(err, "stitching challan")
		}
		if !challan.Status.IsInitial() {
			return apperror.Conflict("stitching challan %s is %s and cannot be deleted", challan.ChallanNo, challan.Status)
		}
		if err := s.challanRepo.Delete(txCtx, uid); err != nil {
			return apperror.FromDB(err, "stitching challan")
		}
		return s.audit.record(txCtx, parseUserID(userID), model.ActionDeleteStitchingChallan, challan.ID.String(), challan.ChallanNo, nil)
	})
}

func (s *stitchingChallanService) GetStitchingChallan(ctx context.Context, id string) (*model.StitchingChallan, error) {
	uid, err := parseID(id, "stitching challan ID")
	if err != nil {
		return nil, err
	}
	challan, err := s.challanRepo.FindByID(ctx, uid)
	if err != nil {
		return nil, apperror.FromDB(err, "stitching challan")
	}
	return challan, nil
}

func (s *stitchingChallanService) ListStitchingChallans(ctx context.Context, q ListQuery) ([]model.StitchingChallan, int64, error) {
	if q.Status != "" {
		if _, err := pipeline.ParseStitchingStatus(q.Status); err != nil {
			return nil, 0, err
		}
	}
	f, err := q.Filter()
	if err != nil {
		return nil, 0, err
	}
	challans, total, err := s.challanRepo.List(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch stitching challans: %w", err)
	}
	return challans, total, nil
}

func (s *stitchingChallanService) ExportStitchingChallans(ctx context.Context, q ListQuery) (export.Table, error) {
	q.Page, q.Limit = 0, 0
	challans, _, err := s.ListStitchingChallans(ctx, q)
	if err != nil {
		return export.Table{}, err
	}
	return export.StitchingChallans(challans), nil
}

// --- Status ---

func (s *stitchingChallanService) RecordQC(ctx context.Context, userID, id string, req RecordQCRequest) (*model.StitchingChallan, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	return s.apply(ctx, userID, id, pipeline.EventRecordQC, func(c *model.StitchingChallan) error {
		c.QuantityReceivedPieces = req.QuantityReceivedPieces
		c.GoodPieces = req.GoodPieces
		c.BadPieces = req.BadPieces
		c.WastagePieces = req.WastagePieces
		if req.Remarks != "" {
			c.Remarks = req.Remarks
		}
		now := time.Now().UTC()
		c.QCRecordedAt = &now
		return nil
	})
}

// ApproveQC requires every received piece to be classified
func (s *stitchingChallanService) ApproveQC(ctx context.Context, userID, id string) (*model.StitchingChallan, error) {
	return s.apply(ctx, userID, id, pipeline.EventApproveQC, func(c *model.StitchingChallan) error {
		if c.QuantityReceivedPieces <= 0 {
			return apperror.InvalidQuantity("stitching challan %s has no received pieces to approve", c.ChallanNo)
		}
		if classified := c.ClassifiedPieces(); classified != c.QuantityReceivedPieces {
			return apperror.InvalidQuantity("good + bad + wastage = %d, must equal quantity_received_pieces %d",
				classified, c.QuantityReceivedPieces)
		}
		now := time.Now().UTC()
		c.QCApprovedAt = &now
		return nil
	})
}

func (s *stitchingChallanService) CancelStitchingChallan(ctx context.Context, userID, id string) (*model.StitchingChallan, error) {
	return s.apply(ctx, userID, id, pipeline.EventCancel, func(c *model.StitchingChallan) error {
		now := time.Now().UTC()
		c.CancelledAt = &now
		return nil
	})
}

// ChangeStatus is the generic status endpoint. CONVERTED is only reachable through the
// inventory conversion.
func (s *stitchingChallanService) ChangeStatus(ctx context.Context, userID, id string, req ChangeStatusRequest) (*model.StitchingChallan, error) {
	to, err := pipeline.ParseStitchingStatus(req.Status)
	if err != nil {
		return nil, err
	}
	switch to {
	case pipeline.StitchingConverted:
		return nil, apperror.InvalidTransition("use the convert action to move a stitching challan to %s", to)
	case pipeline.StitchingQCPending:
		return s.apply(ctx, userID, id, pipeline.EventRecordQC, func(c *model.StitchingChallan) error {
			now := time.Now().UTC()
			c.QCRecordedAt = &now
			return nil
		})
	case pipeline.StitchingQCDone:
		return s.ApproveQC(ctx, userID, id)
	case pipeline.StitchingCancelled:
		return s.CancelStitchingChallan(ctx, userID, id)
	default:
		return nil, apperror.InvalidTransition("stitching challan cannot move back to %s", to)
	}
}

// apply runs event against the locked challan, lets mutate adjust it and re-derives the
// dependent fields before saving.
func (s *stitchingChallanService) apply(ctx context.Context, userID, id string, event pipeline.StitchingEvent, mutate func(*model.StitchingChallan) error) (*model.StitchingChallan, error) {
	uid, err := parseID(id, "stitching challan ID")
	if err != nil {
		return nil, err
	}

	var challan *model.StitchingChallan
	var from, to pipeline.StitchingStatus
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		challan, err = s.challanRepo.FindByIDForUpdate(txCtx, uid)
		if err != nil {
			return apperror.FromDB(err, "stitching challan")
		}
		from = challan.Status
		if to, err = from.Apply(event); err != nil {
			return err
		}
		challan.Status = to
		if err := mutate(challan); err != nil {
			return err
		}
		if err := deriveStitchingChallan(challan); err != nil {
			return err
		}
		if err := s.challanRepo.Update(txCtx, challan); err != nil {
			return apperror.FromDB(err, "stitching challan")
		}
		return s.audit.record(txCtx, parseUserID(userID), model.ActionStitchingStatus, challan.ID.String(), challan.ChallanNo, map[string]interface{}{
			"from":  from,
			"to":    to,
			"event": event,
		})
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, statusEvent("stitching_challan", challan.ID.String(), challan.ChallanNo, from, to))
	return challan, nil
}
