package repository

import (
	"context"

	"textile-erp/internal/model"
	"textile-erp/internal/pipeline"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CRUDRepository is implemented by every stage table
type CRUDRepository[T any] interface {
	Create(ctx context.Context, entity *T) error
	Update(ctx context.Context, entity *T) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*T, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*T, error)
	List(ctx context.Context, f ListFilter) ([]T, int64, error)
	ExistsByNumber(ctx context.Context, number string, excludeID uuid.UUID) (bool, error)
	NextNumber(ctx context.Context, prefix string) (string, error)
	Sum(ctx context.Context, f ListFilter, column string) (decimal.Decimal, error)
	CountByStatus(ctx context.Context, f ListFilter) (map[string]int64, error)
}

// --- Ledger ---

type LedgerRepository interface {
	CRUDRepository[model.Ledger]
	CountReferences(ctx context.Context, id uuid.UUID) (References, error)
}

type ledgerRepository struct {
	baseRepository[model.Ledger]
}

func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{newBaseRepository[model.Ledger](db, listSpec{
		numberColumn:  "name",
		searchColumns: []string{"name", "contact_person", "phone", "email", "city", "gst_number"},
		typeColumn:    "ledger_type",
		sortable:      sortColumns("name", "ledger_type", "city", "state"),
	})}
}

func (r *ledgerRepository) CountReferences(ctx context.Context, id uuid.UUID) (References, error) {
	return countReferences(ctx, r.db, id,
		referenceCheck{"purchases", &model.Purchase{}, "vendor_ledger_id"},
		referenceCheck{"weaver challans", &model.WeaverChallan{}, "weaver_ledger_id"},
		referenceCheck{"stitching challans", &model.StitchingChallan{}, "ledger_id"},
		referenceCheck{"expenses", &model.Expense{}, "ledger_id"},
		referenceCheck{"payment vouchers", &model.PaymentVoucher{}, "ledger_id"},
	)
}

// --- Purchase ---

type PurchaseRepository interface {
	CRUDRepository[model.Purchase]
	CountReferences(ctx context.Context, id uuid.UUID) (References, error)
}

type purchaseRepository struct {
	baseRepository[model.Purchase]
}

func NewPurchaseRepository(db *gorm.DB) PurchaseRepository {
	return &purchaseRepository{newBaseRepository[model.Purchase](db, listSpec{
		numberColumn:   "purchase_no",
		dateColumn:     "purchase_date",
		searchColumns:  []string{"purchase_no", "invoice_number", "remarks"},
		materialColumn: "material_type",
		ledgerColumns:  []string{"vendor_ledger_id"},
		sortable:       sortColumns("purchase_no", "purchase_date", "material_type", "total_meters", "total_amount"),
		preloads:       []string{"VendorLedger"},
	})}
}

func (r *purchaseRepository) CountReferences(ctx context.Context, id uuid.UUID) (References, error) {
	return countReferences(ctx, r.db, id,
		referenceCheck{"weaver challans", &model.WeaverChallan{}, "purchase_id"},
		referenceCheck{"shorting entries", &model.ShortingEntry{}, "purchase_id"},
	)
}

// --- Weaver challan ---

type WeaverChallanRepository interface {
	CRUDRepository[model.WeaverChallan]
	CountReferences(ctx context.Context, id uuid.UUID) (References, error)
}

type weaverChallanRepository struct {
	baseRepository[model.WeaverChallan]
}

func NewWeaverChallanRepository(db *gorm.DB) WeaverChallanRepository {
	return &weaverChallanRepository{newBaseRepository[model.WeaverChallan](db, listSpec{
		numberColumn:   "challan_no",
		dateColumn:     "challan_date",
		searchColumns:  []string{"challan_no", "batch_number", "ms_party_name", "lr_number"},
		materialColumn: "material_type",
		statusColumn:   "status",
		ledgerColumns:  []string{"weaver_ledger_id"},
		sortable: sortColumns("challan_no", "challan_date", "material_type", "quantity_sent_meters",
			"quantity_received_meters", "loss_percentage", "vendor_amount", "status"),
		preloads: []string{"WeaverLedger"},
	})}
}

func (r *weaverChallanRepository) CountReferences(ctx context.Context, id uuid.UUID) (References, error) {
	return countReferences(ctx, r.db, id,
		referenceCheck{"shorting entries", &model.ShortingEntry{}, "weaver_challan_id"},
	)
}

// --- Shorting entry ---

type ShortingEntryRepository interface {
	CRUDRepository[model.ShortingEntry]
	CountReferences(ctx context.Context, id uuid.UUID) (References, error)
}

type shortingEntryRepository struct {
	baseRepository[model.ShortingEntry]
}

func NewShortingEntryRepository(db *gorm.DB) ShortingEntryRepository {
	return &shortingEntryRepository{newBaseRepository[model.ShortingEntry](db, listSpec{
		numberColumn:   "entry_no",
		dateColumn:     "entry_date",
		searchColumns:  []string{"entry_no", "batch_number", "remarks"},
		materialColumn: "material_type",
		sortable:       sortColumns("entry_no", "entry_date", "material_type", "total_pieces", "good_pieces"),
	})}
}

func (r *shortingEntryRepository) CountReferences(ctx context.Context, id uuid.UUID) (References, error) {
	return countReferences(ctx, r.db, id,
		referenceCheck{"stitching challans", &model.StitchingChallan{}, "shorting_entry_id"},
	)
}

// --- Stitching challan ---

type StitchingChallanRepository interface {
	CRUDRepository[model.StitchingChallan]
	// UpdateStatus moves the challan from -> to only if it is still in from, writing fields
	// alongside. It reports whether the row was updated.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to pipeline.StitchingStatus, fields map[string]interface{}) (bool, error)
}

type stitchingChallanRepository struct {
	baseRepository[model.StitchingChallan]
}

func NewStitchingChallanRepository(db *gorm.DB) StitchingChallanRepository {
	return &stitchingChallanRepository{newBaseRepository[model.StitchingChallan](db, listSpec{
		numberColumn:  "challan_no",
		dateColumn:    "challan_date",
		searchColumns: []string{"challan_no", "product_name", "sku", "lr_number"},
		statusColumn:  "status",
		ledgerColumns: []string{"ledger_id"},
		sortable: sortColumns("challan_no", "challan_date", "product_name", "quantity_sent_pieces",
			"quantity_received_pieces", "loss_percentage", "amount_payable", "status"),
		preloads: []string{"Ledger"},
	})}
}

func (r *stitchingChallanRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to pipeline.StitchingStatus, fields map[string]interface{}) (bool, error) {
	updates := map[string]interface{}{"status": to}
	for k, v := range fields {
		updates[k] = v
	}
	res := GetDB(ctx, r.db).Model(&model.StitchingChallan{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// --- Inventory item ---

type InventoryItemRepository interface {
	CRUDRepository[model.InventoryItem]
	FindBySourceChallanID(ctx context.Context, challanID uuid.UUID) (*model.InventoryItem, error)
}

type inventoryItemRepository struct {
	baseRepository[model.InventoryItem]
}

func NewInventoryItemRepository(db *gorm.DB) InventoryItemRepository {
	return &inventoryItemRepository{newBaseRepository[model.InventoryItem](db, listSpec{
		numberColumn:         "inventory_no",
		dateColumn:           "inventory_date",
		searchColumns:        []string{"inventory_no", "product_name", "sku"},
		classificationColumn: "classification",
		sortable: sortColumns("inventory_no", "inventory_date", "product_name", "quantity",
			"classification", "quality_grade", "price_per_piece", "total_cost"),
	})}
}

func (r *inventoryItemRepository) FindBySourceChallanID(ctx context.Context, challanID uuid.UUID) (*model.InventoryItem, error) {
	var item model.InventoryItem
	if err := GetDB(ctx, r.db).Where("source_challan_id = ?", challanID).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// --- Expense & payment voucher ---

type ExpenseRepository interface {
	CRUDRepository[model.Expense]
}

type expenseRepository struct {
	baseRepository[model.Expense]
}

func NewExpenseRepository(db *gorm.DB) ExpenseRepository {
	return &expenseRepository{newBaseRepository[model.Expense](db, listSpec{
		numberColumn:  "expense_no",
		dateColumn:    "expense_date",
		searchColumns: []string{"expense_no", "category", "purpose"},
		ledgerColumns: []string{"ledger_id"},
		typeColumn:    "payment_mode",
		sortable:      sortColumns("expense_no", "expense_date", "category", "amount", "payment_mode"),
		preloads:      []string{"Ledger"},
	})}
}

type PaymentVoucherRepository interface {
	CRUDRepository[model.PaymentVoucher]
}

type paymentVoucherRepository struct {
	baseRepository[model.PaymentVoucher]
}

func NewPaymentVoucherRepository(db *gorm.DB) PaymentVoucherRepository {
	return &paymentVoucherRepository{newBaseRepository[model.PaymentVoucher](db, listSpec{
		numberColumn:  "voucher_no",
		dateColumn:    "voucher_date",
		searchColumns: []string{"voucher_no", "reference_number", "purpose"},
		ledgerColumns: []string{"ledger_id"},
		typeColumn:    "payment_mode",
		sortable:      sortColumns("voucher_no", "voucher_date", "amount", "payment_mode"),
		preloads:      []string{"Ledger"},
	})}
}
