package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"textile-erp/internal/apperror"
	"textile-erp/internal/calc"
	"textile-erp/internal/events"
	"textile-erp/internal/lock"
	"textile-erp/internal/model"
	"textile-erp/internal/pipeline"
	"textile-erp/internal/repository"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

// ConversionService turns a QC approved stitching challan into exactly one inventory item
type ConversionService interface {
	// ConvertToInventory returns the new item. When the challan was already converted it
	// returns the existing item together with an AlreadyConverted error.
	ConvertToInventory(ctx context.Context, userID, challanID string) (*model.InventoryItem, error)
}

type conversionService struct {
	challanRepo   repository.StitchingChallanRepository
	inventoryRepo repository.InventoryItemRepository
	logRepo       repository.ConversionLogRepository
	txManager     repository.TransactionManager
	locker        lock.Locker
	audit         auditor
	publisher     events.Publisher
	tracer        trace.Tracer
	now           func() time.Time
}

func NewConversionService(
	challanRepo repository.StitchingChallanRepository,
	inventoryRepo repository.InventoryItemRepository,
	logRepo repository.ConversionLogRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	locker lock.Locker,
	publisher events.Publisher,
) ConversionService {
	return &conversionService{
		challanRepo:   challanRepo,
		inventoryRepo: inventoryRepo,
		logRepo:       logRepo,
		txManager:     txManager,
		locker:        locker,
		audit:         auditor{repo: auditRepo},
		publisher:     publisherOrNop(publisher),
		tracer:        otel.Tracer("textile-erp/conversion"),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// errDuplicateItem marks a unique index hit on inventory_items.source_challan_id
var errDuplicateItem = errors.New("inventory item already exists for challan")

func (s *conversionService) ConvertToInventory(ctx context.Context, userID, challanID string) (*model.InventoryItem, error) {
	id, err := parseID(challanID, "stitching challan ID")
	if err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "ConvertToInventory", trace.WithAttributes(
		attribute.String("challan.id", id.String()),
	))
	defer span.End()

	release, err := s.locker.Acquire(ctx, "convert:"+id.String())
	if err != nil {
		if errors.Is(err, lock.ErrBusy) {
			err = apperror.Conflict("stitching challan is being converted by another request, please retry")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "lock")
		return nil, err
	}
	defer release()

	var item *model.InventoryItem
	var challan *model.StitchingChallan
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		challan, err = s.challanRepo.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return apperror.FromDB(err, "stitching challan")
		}

		existing, err := s.inventoryRepo.FindBySourceChallanID(txCtx, id)
		switch {
		case err == nil:
			item = existing
			return apperror.AlreadyConverted("stitching challan %s was already converted to %s", challan.ChallanNo, existing.InventoryNo)
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("failed to check existing inventory item: %w", err)
		}
		if challan.Status == pipeline.StitchingConverted {
			return apperror.AlreadyConverted("stitching challan %s is already converted", challan.ChallanNo)
		}
		if err := challan.Status.Transition(pipeline.StitchingConverted); err != nil {
			return err
		}
		if challan.QuantityReceivedPieces <= 0 {
			return apperror.InvalidQuantity("stitching challan %s has no received pieces to convert", challan.ChallanNo)
		}

		now := s.now()
		no, err := s.inventoryRepo.NextNumber(txCtx, "INVT-"+now.Format("20060102")+"-")
		if err != nil {
			return fmt.Errorf("failed to generate inventory number: %w", err)
		}
		item = newInventoryItem(challan, no, now)
		if err := s.inventoryRepo.Create(txCtx, item); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errDuplicateItem
			}
			return fmt.Errorf("failed to create inventory item: %w", err)
		}

		ok, err := s.challanRepo.UpdateStatus(txCtx, id, pipeline.StitchingQCDone, pipeline.StitchingConverted, map[string]interface{}{
			"converted_at": now,
		})
		if err != nil {
			return fmt.Errorf("failed to update challan status: %w", err)
		}
		if !ok {
			return apperror.InvalidTransition("stitching challan %s changed status during conversion", challan.ChallanNo)
		}
		challan.Status = pipeline.StitchingConverted
		challan.ConvertedAt = &now

		if err := s.logRepo.Create(txCtx, &model.ConversionLog{
			ChallanID:       id,
			ChallanNo:       challan.ChallanNo,
			InventoryItemID: item.ID,
			InventoryNo:     item.InventoryNo,
			Quantity:        item.Quantity,
			ConvertedBy:     parseUserID(userID),
			ConvertedAt:     now,
		}); err != nil {
			return fmt.Errorf("failed to write conversion log: %w", err)
		}
		return s.audit.record(txCtx, parseUserID(userID), model.ActionConvertToInventory, challan.ID.String(), challan.ChallanNo, map[string]interface{}{
			"inventory_item_id": item.ID,
			"inventory_no":      item.InventoryNo,
			"quantity":          item.Quantity,
		})
	})

	if errors.Is(err, errDuplicateItem) {
		// another instance committed first; hand back its item
		if existing, findErr := s.inventoryRepo.FindBySourceChallanID(ctx, id); findErr == nil {
			item = existing
			err = apperror.AlreadyConverted("stitching challan %s was already converted to %s", challan.ChallanNo, existing.InventoryNo)
		} else {
			item = nil
			err = apperror.Conflict("stitching challan is being converted by another request, please retry")
		}
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, apperror.ErrAlreadyConverted) {
			return item, err
		}
		return nil, err
	}

	span.SetAttributes(attribute.String("inventory.no", item.InventoryNo))
	s.publisher.Publish(ctx, events.Event{
		Type:       events.TypeChallanConverted,
		Entity:     "stitching_challan",
		EntityID:   challan.ID.String(),
		EntityName: challan.ChallanNo,
		Data: map[string]interface{}{
			"inventory_item_id": item.ID,
			"inventory_no":      item.InventoryNo,
			"quantity":          item.Quantity,
		},
	})
	return item, nil
}

// newInventoryItem materialises the approved challan figures
func newInventoryItem(c *model.StitchingChallan, inventoryNo string, now time.Time) *model.InventoryItem {
	return &model.InventoryItem{
		Base:            model.Base{ID: uuid.New()},
		InventoryNo:     inventoryNo,
		SourceChallanID: c.ID,
		ProductName:     c.ProductName,
		SKU:             c.SKU,
		Quantity:        c.QuantityReceivedPieces,
		GoodQuantity:    c.GoodPieces,
		BadQuantity:     c.BadPieces,
		WastageQuantity: c.WastagePieces,
		Classification:  dominantClass(c.GoodPieces, c.BadPieces, c.WastagePieces),
		QualityGrade:    calc.QualityGrade(c.QuantityReceivedPieces, c.GoodPieces),
		PricePerPiece:   c.RatePerPiece,
		TotalCost:       calc.DeriveAmountPieces(c.QuantityReceivedPieces, c.RatePerPiece).Round(2),
		InventoryDate:   now.Truncate(24 * time.Hour),
		Remarks:         "Converted from stitching challan " + c.ChallanNo,
	}
}

// dominantClass is the single class holding every piece, unclassified for a mixed lot
func dominantClass(good, bad, wastage int) string {
	switch {
	case bad == 0 && wastage == 0 && good > 0:
		return model.ClassGood
	case good == 0 && wastage == 0 && bad > 0:
		return model.ClassBad
	case good == 0 && bad == 0 && wastage > 0:
		return model.ClassWastage
	default:
		return model.ClassUnclassified
	}
}
