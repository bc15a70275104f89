package repository

import (
	"context"

	"textile-erp/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuditRepository interface {
	Log(ctx context.Context, entry *model.AuditLog) error
	List(ctx context.Context, f ListFilter) ([]model.AuditLog, int64, error)
}

type auditRepository struct {
	db   *gorm.DB
	spec listSpec
}

func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db, spec: listSpec{
		dateColumn:    "created_at",
		searchColumns: []string{"entity_id", "entity_name", "details"},
		typeColumn:    "action",
		sortable:      sortColumns("action", "entity_name"),
	}}
}

func (r *auditRepository) Log(ctx context.Context, entry *model.AuditLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *auditRepository) List(ctx context.Context, f ListFilter) ([]model.AuditLog, int64, error) {
	var logs []model.AuditLog
	var total int64

	if err := r.spec.apply(GetDB(ctx, r.db).Model(&model.AuditLog{}), f).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := r.spec.apply(GetDB(ctx, r.db).Model(&model.AuditLog{}), f).Order(r.spec.order(f))
	if f.Limit > 0 {
		query = query.Offset(f.Offset()).Limit(f.Limit)
	}
	if err := query.Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}

// ConversionLogRepository stores the challan -> inventory item links written by conversions
type ConversionLogRepository interface {
	Create(ctx context.Context, entry *model.ConversionLog) error
	FindByChallanID(ctx context.Context, challanID uuid.UUID) (*model.ConversionLog, error)
	List(ctx context.Context, f ListFilter) ([]model.ConversionLog, int64, error)
}

type conversionLogRepository struct {
	db   *gorm.DB
	spec listSpec
}

func NewConversionLogRepository(db *gorm.DB) ConversionLogRepository {
	return &conversionLogRepository{db: db, spec: listSpec{
		dateColumn:    "converted_at",
		searchColumns: []string{"challan_no", "inventory_no"},
		sortable:      sortColumns("converted_at", "challan_no", "inventory_no", "quantity"),
	}}
}

func (r *conversionLogRepository) Create(ctx context.Context, entry *model.ConversionLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *conversionLogRepository) FindByChallanID(ctx context.Context, challanID uuid.UUID) (*model.ConversionLog, error) {
	var entry model.ConversionLog
	if err := GetDB(ctx, r.db).Where("challan_id = ?", challanID).First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *conversionLogRepository) List(ctx context.Context, f ListFilter) ([]model.ConversionLog, int64, error) {
	var logs []model.ConversionLog
	var total int64

	if err := r.spec.apply(GetDB(ctx, r.db).Model(&model.ConversionLog{}), f).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	f.SortBy = defaultString(f.SortBy, "converted_at")
	query := r.spec.apply(GetDB(ctx, r.db).Model(&model.ConversionLog{}), f).Order(r.spec.order(f))
	if f.Limit > 0 {
		query = query.Offset(f.Offset()).Limit(f.Limit)
	}
	if err := query.Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}

func defaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
