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
)

type UpdateInventoryItemRequest struct {
	GoodQuantity    *int    `json:"good_quantity"`
	BadQuantity     *int    `json:"bad_quantity"`
	WastageQuantity *int    `json:"wastage_quantity"`
	Classification  *string `json:"classification"`
	QualityGrade    *string `json:"quality_grade"`
	PricePerPiece   *string `json:"price_per_piece"`
	Remarks         *string `json:"remarks"`
}

// InventoryService exposes the finished goods produced by conversions. Items are only ever
// created by ConversionService; quantity and source challan are fixed.
type InventoryService interface {
	GetInventoryItem(ctx context.Context, id string) (*model.InventoryItem, error)
	ListInventoryItems(ctx context.Context, q ListQuery) ([]model.InventoryItem, int64, error)
	UpdateInventoryItem(ctx context.Context, userID, id string, req UpdateInventoryItemRequest) (*model.InventoryItem, error)
	ExportInventoryItems(ctx context.Context, q ListQuery) (export.Table, error)
}

type inventoryService struct {
	inventoryRepo repository.InventoryItemRepository
	txManager     repository.TransactionManager
	audit         auditor
}

func NewInventoryService(inventoryRepo repository.InventoryItemRepository, auditRepo repository.AuditRepository, txManager repository.TransactionManager) InventoryService {
	return &inventoryService{inventoryRepo: inventoryRepo, txManager: txManager, audit: auditor{repo: auditRepo}}
}

var qualityGrades = map[string]bool{"A": true, "B": true, "C": true}

func (s *inventoryService) GetInventoryItem(ctx context.Context, id string) (*model.InventoryItem, error) {
	uid, err := parseID(id, "inventory item ID")
	if err != nil {
		return nil, err
	}
	item, err := s.inventoryRepo.FindByID(ctx, uid)
	if err != nil {
		return nil, apperror.FromDB(err, "inventory item")
	}
	return item, nil
}

func (s *inventoryService) ListInventoryItems(ctx context.Context, q ListQuery) ([]model.InventoryItem, int64, error) {
	if q.Classification != "" && !model.IsClassification(q.Classification) {
		return nil, 0, apperror.Validation("classification must be one of: good, bad, wastage, unclassified")
	}
	f, err := q.Filter()
	if err != nil {
		return nil, 0, err
	}
	items, total, err := s.inventoryRepo.List(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch inventory items: %w", err)
	}
	return items, total, nil
}

func (s *inventoryService) UpdateInventoryItem(ctx context.Context, userID, id string, req UpdateInventoryItemRequest) (*model.InventoryItem, error) {
	uid, err := parseID(id, "inventory item ID")
	if err != nil {
		return nil, err
	}

	var item *model.InventoryItem
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		item, err = s.inventoryRepo.FindByIDForUpdate(txCtx, uid)
		if err != nil {
			return apperror.FromDB(err, "inventory item")
		}

		if req.GoodQuantity != nil {
			item.GoodQuantity = *req.GoodQuantity
		}
		if req.BadQuantity != nil {
			item.BadQuantity = *req.BadQuantity
		}
		if req.WastageQuantity != nil {
			item.WastageQuantity = *req.WastageQuantity
		}
		if item.GoodQuantity < 0 || item.BadQuantity < 0 || item.WastageQuantity < 0 {
			return apperror.InvalidQuantity("quantities cannot be negative")
		}
		if split := item.GoodQuantity + item.BadQuantity + item.WastageQuantity; split > item.Quantity {
			return apperror.InvalidQuantity("good + bad + wastage = %d exceeds quantity %d", split, item.Quantity)
		}
		if req.Classification != nil {
			if !model.IsClassification(*req.Classification) {
				return apperror.Validation("classification must be one of: good, bad, wastage, unclassified")
			}
			item.Classification = *req.Classification
		}
		if req.QualityGrade != nil {
			grade := strings.ToUpper(strings.TrimSpace(*req.QualityGrade))
			if grade != "" && !qualityGrades[grade] {
				return apperror.Validation("quality_grade must be one of: A, B, C")
			}
			item.QualityGrade = grade
		}
		if req.PricePerPiece != nil {
			if item.PricePerPiece, err = parseNonNegative(*req.PricePerPiece, "price_per_piece"); err != nil {
				return err
			}
		}
		if req.Remarks != nil {
			item.Remarks = *req.Remarks
		}
		item.TotalCost = calc.DeriveAmountPieces(item.Quantity, item.PricePerPiece).Round(2)

		if err := s.inventoryRepo.Update(txCtx, item); err != nil {
			return apperror.FromDB(err, "inventory item")
		}
		return s.audit.record(txCtx, parseUserID(userID), model.ActionUpdateInventoryItem, item.ID.String(), item.InventoryNo, req)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *inventoryService) ExportInventoryItems(ctx context.Context, q ListQuery) (export.Table, error) {
	q.Page, q.Limit = 0, 0
	items, _, err := s.ListInventoryItems(ctx, q)
	if err != nil {
		return export.Table{}, err
	}
	return export.InventoryItems(items), nil
}
