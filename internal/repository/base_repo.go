package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Reference is a downstream table still pointing at a record
type Reference struct {
	Entity string `json:"entity"`
	Count  int64  `json:"count"`
}

// References lists the downstream tables referencing a record. Only non-zero counts are kept.
type References []Reference

// Any reports whether anything references the record
func (r References) Any() bool {
	return len(r) > 0
}

func (r References) String() string {
	s := ""
	for i, ref := range r {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%d %s", ref.Count, ref.Entity)
	}
	return s
}

// baseRepository is the CRUD shared by every stage table
type baseRepository[T any] struct {
	db   *gorm.DB
	spec listSpec
}

func newBaseRepository[T any](db *gorm.DB, spec listSpec) baseRepository[T] {
	return baseRepository[T]{db: db, spec: spec}
}

func (r *baseRepository[T]) Create(ctx context.Context, entity *T) error {
	return GetDB(ctx, r.db).Create(entity).Error
}

func (r *baseRepository[T]) Update(ctx context.Context, entity *T) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Save(entity).Error
}

func (r *baseRepository[T]) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(new(T)).Error
}

func (r *baseRepository[T]) FindByID(ctx context.Context, id uuid.UUID) (*T, error) {
	var entity T
	db := GetDB(ctx, r.db)
	for _, p := range r.spec.preloads {
		db = db.Preload(p)
	}
	if err := db.First(&entity, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &entity, nil
}

// FindByIDForUpdate locks the row until the surrounding transaction ends
func (r *baseRepository[T]) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*T, error) {
	var entity T
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&entity).Error; err != nil {
		return nil, err
	}
	return &entity, nil
}

func (r *baseRepository[T]) List(ctx context.Context, f ListFilter) ([]T, int64, error) {
	var rows []T
	var total int64

	if err := r.spec.apply(GetDB(ctx, r.db).Model(new(T)), f).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := r.spec.apply(GetDB(ctx, r.db).Model(new(T)), f).Order(r.spec.order(f))
	for _, p := range r.spec.preloads {
		query = query.Preload(p)
	}
	if f.Limit > 0 {
		query = query.Offset(f.Offset()).Limit(f.Limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	return rows, total, nil
}

// ExistsByNumber checks the human readable number for duplicates, ignoring excludeID
func (r *baseRepository[T]) ExistsByNumber(ctx context.Context, number string, excludeID uuid.UUID) (bool, error) {
	var count int64
	db := GetDB(ctx, r.db).Model(new(T)).Where(r.spec.numberColumn+" = ?", number)
	if excludeID != uuid.Nil {
		db = db.Where("id <> ?", excludeID)
	}
	if err := db.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// NextNumber returns prefix followed by a five digit sequence. On postgres the sequence is
// serialised with a transaction scoped advisory lock; elsewhere the unique index on the
// number column rejects a concurrent duplicate.
func (r *baseRepository[T]) NextNumber(ctx context.Context, prefix string) (string, error) {
	db := GetDB(ctx, r.db)
	if Dialect(db) == DialectPostgres && InTx(ctx) {
		if err := db.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", prefix).Error; err != nil {
			return "", err
		}
	}

	var count int64
	if err := db.Model(new(T)).Unscoped().
		Where(r.spec.numberColumn+" LIKE ?", prefix+"%").
		Count(&count).Error; err != nil {
		return "", err
	}

	return fmt.Sprintf("%s%05d", prefix, count+1), nil
}

// Sum adds up column over the rows matching f
func (r *baseRepository[T]) Sum(ctx context.Context, f ListFilter, column string) (decimal.Decimal, error) {
	var total decimal.Decimal
	row := r.spec.apply(GetDB(ctx, r.db).Model(new(T)), f.Unpaged()).
		Select(fmt.Sprintf("COALESCE(SUM(%s), 0)", column)).
		Row()
	if err := row.Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// CountByStatus groups the rows matching f by status
func (r *baseRepository[T]) CountByStatus(ctx context.Context, f ListFilter) (map[string]int64, error) {
	if r.spec.statusColumn == "" {
		return map[string]int64{}, nil
	}
	var rows []struct {
		Status string
		Total  int64
	}
	f = f.Unpaged()
	f.Status = ""
	if err := r.spec.apply(GetDB(ctx, r.db).Model(new(T)), f).
		Select(r.spec.statusColumn + " AS status, COUNT(*) AS total").
		Group(r.spec.statusColumn).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

// countReferences counts rows of each table whose column equals id
func countReferences(ctx context.Context, db *gorm.DB, id uuid.UUID, checks ...referenceCheck) (References, error) {
	refs := References{}
	for _, c := range checks {
		var count int64
		if err := GetDB(ctx, db).Model(c.model).Where(c.column+" = ?", id).Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			refs = append(refs, Reference{Entity: c.entity, Count: count})
		}
	}
	return refs, nil
}

type referenceCheck struct {
	entity string
	model  interface{}
	column string
}
