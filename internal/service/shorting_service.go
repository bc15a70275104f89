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

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type CreateShortingEntryRequest struct {
	EntryNo         string         `json:"entry_no"`
	EntryDate       string         `json:"entry_date" binding:"required"`
	WeaverChallanID string         `json:"weaver_challan_id"`
	PurchaseID      string         `json:"purchase_id"`
	MaterialType    string         `json:"material_type" binding:"omitempty,oneof=Cotton Silk Wool Polyester Linen"`
	BatchNumber     string         `json:"batch_number"`
	TotalPieces     int            `json:"total_pieces" binding:"gte=0"`
	GoodPieces      int            `json:"good_pieces" binding:"gte=0"`
	DamagedPieces   int            `json:"damaged_pieces" binding:"gte=0"`
	RejectedPieces  int            `json:"rejected_pieces" binding:"gte=0"`
	MetersPerPiece  string         `json:"meters_per_piece"`
	SizeBreakdown   map[string]int `json:"size_breakdown"`
	Remarks         string         `json:"remarks"`
}

type UpdateShortingEntryRequest struct {
	EntryDate      *string         `json:"entry_date"`
	BatchNumber    *string         `json:"batch_number"`
	TotalPieces    *int            `json:"total_pieces"`
	GoodPieces     *int            `json:"good_pieces"`
	DamagedPieces  *int            `json:"damaged_pieces"`
	RejectedPieces *int            `json:"rejected_pieces"`
	MetersPerPiece *string         `json:"meters_per_piece"`
	SizeBreakdown  *map[string]int `json:"size_breakdown"`
	Remarks        *string         `json:"remarks"`
}

// ShortingEntryView is a shorting entry with its display quality figures and the cloth its
// pieces account for at the recorded cut length
type ShortingEntryView struct {
	model.ShortingEntry
	QualityRate  string          `json:"quality_rate"`
	QualityBand  calc.Band       `json:"quality_band"`
	QualityLabel string          `json:"quality_label"`
	ClothMeters  decimal.Decimal `json:"cloth_meters"`
}

func NewShortingEntryView(e model.ShortingEntry) ShortingEntryView {
	band := calc.QualityBand(e.TotalPieces, e.GoodPieces)
	return ShortingEntryView{
		ShortingEntry: e,
		QualityRate:   calc.QualityRate(e.TotalPieces, e.GoodPieces),
		QualityBand:   band,
		QualityLabel:  band.Label(),
		ClothMeters:   calc.PiecesToMeters(e.TotalPieces, e.MetersPerPiece),
	}
}

// --- Interface ---

type ShortingEntryService interface {
	CreateShortingEntry(ctx context.Context, userID string, req CreateShortingEntryRequest) (*model.ShortingEntry, error)
	UpdateShortingEntry(ctx context.Context, userID, id string, req UpdateShortingEntryRequest) (*model.ShortingEntry, error)
	DeleteShortingEntry(ctx context.Context, userID, id string) error
	GetShortingEntry(ctx context.Context, id string) (*model.ShortingEntry, error)
	ListShortingEntries(ctx context.Context, q ListQuery) ([]model.ShortingEntry, int64, error)
	ExportShortingEntries(ctx context.Context, q ListQuery) (export.Table, error)
}

type shortingEntryService struct {
	entryRepo    repository.ShortingEntryRepository
	weaverRepo   repository.WeaverChallanRepository
	purchaseRepo repository.PurchaseRepository
	txManager    repository.TransactionManager
	audit        auditor
}

func NewShortingEntryService(
	entryRepo repository.ShortingEntryRepository,
	weaverRepo repository.WeaverChallanRepository,
	purchaseRepo repository.PurchaseRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) ShortingEntryService {
	return &shortingEntryService{
		entryRepo:    entryRepo,
		weaverRepo:   weaverRepo,
		purchaseRepo: purchaseRepo,
		txManager:    txManager,
		audit:        auditor{repo: auditRepo},
	}
}

// checkShorting enforces good + damaged + rejected == total and a size breakdown that fits
// inside the total.
func checkShorting(e *model.ShortingEntry, sizes map[string]int) error {
	if e.TotalPieces < 0 || e.GoodPieces < 0 || e.DamagedPieces < 0 || e.RejectedPieces < 0 {
		return apperror.InvalidQuantity("piece counts cannot be negative")
	}
	if !e.Balanced() {
		return apperror.InvalidQuantity("good (%d) + damaged (%d) + rejected (%d) = %d, must equal total_pieces %d",
			e.GoodPieces, e.DamagedPieces, e.RejectedPieces,
			e.GoodPieces+e.DamagedPieces+e.RejectedPieces, e.TotalPieces)
	}
	sum := 0
	for size, n := range sizes {
		if strings.TrimSpace(size) == "" {
			return apperror.Validation("size_breakdown has an empty size label")
		}
		if n < 0 {
			return apperror.InvalidQuantity("size %s has a negative piece count", size)
		}
		sum += n
	}
	if sum > e.TotalPieces {
		return apperror.InvalidQuantity("size_breakdown adds up to %d pieces, more than total_pieces %d", sum, e.TotalPieces)
	}
	return nil
}

func (s *shortingEntryService) CreateShortingEntry(ctx context.Context, userID string, req CreateShortingEntryRequest) (*model.ShortingEntry, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	entryDate, err := parseDate(req.EntryDate, "entry_date")
	if err != nil {
		return nil, err
	}
	weaverID, err := parseOptionalID(req.WeaverChallanID, "weaver_challan_id")
	if err != nil {
		return nil, err
	}
	purchaseID, err := parseOptionalID(req.PurchaseID, "purchase_id")
	if err != nil {
		return nil, err
	}

	entry := &model.ShortingEntry{
		EntryNo:         strings.TrimSpace(req.EntryNo),
		EntryDate:       entryDate,
		WeaverChallanID: weaverID,
		PurchaseID:      purchaseID,
		MaterialType:    req.MaterialType,
		BatchNumber:     strings.TrimSpace(req.BatchNumber),
		TotalPieces:     req.TotalPieces,
		GoodPieces:      req.GoodPieces,
		DamagedPieces:   req.DamagedPieces,
		RejectedPieces:  req.RejectedPieces,
		Remarks:         req.Remarks,
	}
	if entry.MetersPerPiece, err = parseNonNegative(req.MetersPerPiece, "meters_per_piece"); err != nil {
		return nil, err
	}
	if err := checkShorting(entry, req.SizeBreakdown); err != nil {
		return nil, err
	}
	if err := entry.SetSizes(req.SizeBreakdown); err != nil {
		return nil, fmt.Errorf("failed to encode size breakdown: %w", err)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.resolveSources(txCtx, entry); err != nil {
			return err
		}

		if entry.EntryNo == "" {
			no, err := s.entryRepo.NextNumber(txCtx, "SE-"+entryDate.Format("20060102")+"-")
			if err != nil {
				return fmt.Errorf("failed to generate entry number: %w", err)
			}
			entry.EntryNo = no
		} else if exists, err := s.entryRepo.ExistsByNumber(txCtx, entry.EntryNo, uuid.Nil); err != nil {
			return fmt.Errorf("failed to check entry number: %w", err)
		} else if exists {
			return apperror.Conflict("shorting entry number %s already exists", entry.EntryNo)
		}

		if err := s.entryRepo.Create(txCtx, entry); err != nil {
			return apperror.FromDB(err, "shorting entry")
		}
		return s.audit.record(txCtx, parseUserID(userID), model.ActionCreateShortingEntry, entry.ID.String(), entry.EntryNo, map[string]interface{}{
			"total_pieces":    entry.TotalPieces,
			"good_pieces":     entry.GoodPieces,
			"damaged_pieces":  entry.DamagedPieces,
			"rejected_pieces": entry.RejectedPieces,
		})
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// resolveSources checks that the weaver challan and purchase references exist and fills
// material type, batch and purchase from the challan when they were left empty. The links are
// lineage only, so the challan may still be at the weaver.
func (s *shortingEntryService) resolveSources(ctx context.Context, entry *model.ShortingEntry) error {
	if entry.WeaverChallanID != nil {
		challan, err := s.weaverRepo.FindByID(ctx, *entry.WeaverChallanID)
		if err != nil {
			return apperror.FromDB(err, "weaver challan")
		}
		if entry.PurchaseID == nil {
			entry.PurchaseID = challan.PurchaseID
		}
		if entry.BatchNumber == "" {
			entry.BatchNumber = challan.BatchNumber
		}
		if entry.MaterialType == "" {
			entry.MaterialType = challan.MaterialType
		} else if entry.MaterialType != challan.MaterialType {
			return apperror.Validation("material_type %s does not match weaver challan %s (%s)",
				entry.MaterialType, challan.ChallanNo, challan.MaterialType)
		}
		if err := setExpectedPieces(entry, challan); err != nil {
			return err
		}
	}
	if entry.PurchaseID != nil {
		purchase, err := s.purchaseRepo.FindByID(ctx, *entry.PurchaseID)
		if err != nil {
			return apperror.FromDB(err, "purchase")
		}
		if entry.MaterialType == "" {
			entry.MaterialType = purchase.MaterialType
		}
	}
	if entry.MaterialType == "" {
		return apperror.Validation("material_type is required")
	}
	return nil
}

// setExpectedPieces estimates how many pieces the challan's received cloth cuts into. It stays 0
// without a cut length or before the cloth is back.
func setExpectedPieces(entry *model.ShortingEntry, challan *model.WeaverChallan) error {
	entry.ExpectedPieces = 0
	if !entry.MetersPerPiece.IsPositive() || !challan.QuantityReceivedMeters.IsPositive() {
		return nil
	}
	n, err := calc.MetersToPieces(challan.QuantityReceivedMeters, entry.MetersPerPiece)
	if err != nil {
		return err
	}
	entry.ExpectedPieces = n
	return nil
}

func (s *shortingEntryService) UpdateShortingEntry(ctx context.Context, userID, id string, req UpdateShortingEntryRequest) (*model.ShortingEntry, error) {
	uid, err := parseID(id, "shorting entry ID")
	if err != nil {
		return nil, err
	}

	var entry *model.ShortingEntry
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		entry, err = s.entryRepo.FindByIDForUpdate(txCtx, uid)
		if err != nil {
			return apperror.FromDB(err, "shorting entry")
		}

		if req.EntryDate != nil {
			if entry.EntryDate, err = parseDate(*req.EntryDate, "entry_date"); err != nil {
				return err
			}
		}
		if req.BatchNumber != nil {
			entry.BatchNumber = strings.TrimSpace(*req.BatchNumber)
		}
		if req.TotalPieces != nil {
			entry.TotalPieces = *req.TotalPieces
		}
		if req.GoodPieces != nil {
			entry.GoodPieces = *req.GoodPieces
		}
		if req.DamagedPieces != nil {
			entry.DamagedPieces = *req.DamagedPieces
		}
		if req.RejectedPieces != nil {
			entry.RejectedPieces = *req.RejectedPieces
		}
		if req.Remarks != nil {
			entry.Remarks = *req.Remarks
		}
		if req.MetersPerPiece != nil {
			if entry.MetersPerPiece, err = parseNonNegative(*req.MetersPerPiece, "meters_per_piece"); err != nil {
				return err
			}
		}
		entry.ExpectedPieces = 0
		if entry.WeaverChallanID != nil && entry.MetersPerPiece.IsPositive() {
			challan, err := s.weaverRepo.FindByID(txCtx, *entry.WeaverChallanID)
			if err != nil {
				return apperror.FromDB(err, "weaver challan")
			}
			if err := setExpectedPieces(entry, challan); err != nil {
				return err
			}
		}

		sizes, err := entry.Sizes()
		if err != nil {
			return fmt.Errorf("failed to decode size breakdown: %w", err)
		}
		if req.SizeBreakdown != nil {
			sizes = *req.SizeBreakdown
		}
		if err := checkShorting(entry, sizes); err != nil {
			return err
		}
		if err := entry.SetSizes(sizes); err != nil {
			return fmt.Errorf("failed to encode size breakdown: %w", err)
		}

		if err := s.entryRepo.Update(txCtx, entry); err != nil {
			return apperror.FromDB(err, "shorting entry")
		}
		return s.audit.record(txCtx, parseUserID(userID), model.ActionUpdateShortingEntry, entry.ID.String(), entry.EntryNo, req)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *shortingEntryService) DeleteShortingEntry(ctx context.Context, userID, id string) error {
	uid, err := parseID(id, "shorting entry ID")
	if err != nil {
		return err
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		entry, err := s.entryRepo.FindByIDForUpdate(txCtx, uid)
		if err != nil {
			return apperror.FromDB(err, "shorting entry")
		}
		refs, err := s.entryRepo.CountReferences(txCtx, uid)
		if err != nil {
			return fmt.Errorf("failed to check shorting entry references: %w", err)
		}
		if refs.Any() {
			return blockedBy("shorting entry "+entry.EntryNo, "deleted", refs)
		}
		if err := s.entryRepo.Delete(txCtx, uid); err != nil {
			return apperror.FromDB(err, "shorting entry")
		}
		return s.audit.record(txCtx, parseUserID(userID), model.ActionDeleteShortingEntry, entry.ID.String(), entry.EntryNo, nil)
	})
}

func (s *shortingEntryService) GetShortingEntry(ctx context.Context, id string) (*model.ShortingEntry, error) {
	uid, err := parseID(id, "shorting entry ID")
	if err != nil {
		return nil, err
	}
	entry, err := s.entryRepo.FindByID(ctx, uid)
	if err != nil {
		return nil, apperror.FromDB(err, "shorting entry")
	}
	return entry, nil
}

func (s *shortingEntryService) ListShortingEntries(ctx context.Context, q ListQuery) ([]model.ShortingEntry, int64, error) {
	f, err := q.Filter()
	if err != nil {
		return nil, 0, err
	}
	entries, total, err := s.entryRepo.List(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch shorting entries: %w", err)
	}
	return entries, total, nil
}

func (s *shortingEntryService) ExportShortingEntries(ctx context.Context, q ListQuery) (export.Table, error) {
	q.Page, q.Limit = 0, 0
	entries, _, err := s.ListShortingEntries(ctx, q)
	if err != nil {
		return export.Table{}, err
	}
	return export.ShortingEntries(entries), nil
}
