package repository

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ListFilter is the filter, sort and page request shared by every list endpoint.
// All provided criteria are AND-ed. Limit 0 returns every matching row (exports).
type ListFilter struct {
	Search         string
	DateFrom       *time.Time
	DateTo         *time.Time
	MaterialType   string
	Status         string
	LedgerID       *uuid.UUID
	Type           string
	Classification string
	SortBy         string
	SortOrder      string
	Page           int
	Limit          int
}

// Offset of the requested page
func (f ListFilter) Offset() int {
	if f.Page < 1 || f.Limit <= 0 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}

// Unpaged returns a copy of f without pagination
func (f ListFilter) Unpaged() ListFilter {
	f.Page = 0
	f.Limit = 0
	return f
}

// listSpec maps the generic filter onto the columns of one table.
// Empty columns mean the filter does not apply to the entity.
type listSpec struct {
	numberColumn         string
	dateColumn           string
	searchColumns        []string
	materialColumn       string
	statusColumn         string
	ledgerColumns        []string
	typeColumn           string
	classificationColumn string
	sortable             map[string]string
	preloads             []string
}

func (s listSpec) apply(db *gorm.DB, f ListFilter) *gorm.DB {
	if s.dateColumn != "" {
		if f.DateFrom != nil {
			db = db.Where(s.dateColumn+" >= ?", *f.DateFrom)
		}
		if f.DateTo != nil {
			db = db.Where(s.dateColumn+" <= ?", *f.DateTo)
		}
	}
	if f.MaterialType != "" && s.materialColumn != "" {
		db = db.Where(s.materialColumn+" = ?", f.MaterialType)
	}
	if f.Status != "" && s.statusColumn != "" {
		db = db.Where(s.statusColumn+" = ?", f.Status)
	}
	if f.Type != "" && s.typeColumn != "" {
		db = db.Where(s.typeColumn+" = ?", f.Type)
	}
	if f.Classification != "" && s.classificationColumn != "" {
		db = db.Where(s.classificationColumn+" = ?", f.Classification)
	}
	if f.LedgerID != nil && len(s.ledgerColumns) > 0 {
		conds := make([]string, 0, len(s.ledgerColumns))
		args := make([]interface{}, 0, len(s.ledgerColumns))
		for _, col := range s.ledgerColumns {
			conds = append(conds, col+" = ?")
			args = append(args, *f.LedgerID)
		}
		db = db.Where("("+strings.Join(conds, " OR ")+")", args...)
	}
	if search := strings.TrimSpace(f.Search); search != "" && len(s.searchColumns) > 0 {
		like := likeOperator(db)
		pattern := "%" + search + "%"
		conds := make([]string, 0, len(s.searchColumns))
		args := make([]interface{}, 0, len(s.searchColumns))
		for _, col := range s.searchColumns {
			conds = append(conds, fmt.Sprintf("%s %s ?", col, like))
			args = append(args, pattern)
		}
		db = db.Where("("+strings.Join(conds, " OR ")+")", args...)
	}
	return db
}

// order resolves the requested sort against the whitelist, defaulting to newest first
func (s listSpec) order(f ListFilter) clause.OrderByColumn {
	column := "created_at"
	if col, ok := s.sortable[f.SortBy]; ok {
		column = col
	}
	return clause.OrderByColumn{
		Column: clause.Column{Name: column},
		Desc:   !strings.EqualFold(f.SortOrder, "asc"),
	}
}

func likeOperator(db *gorm.DB) string {
	if Dialect(db) == DialectPostgres {
		return "ILIKE"
	}
	return "LIKE"
}

// sortColumns builds a whitelist accepting both the json name and its camelCase form
func sortColumns(columns ...string) map[string]string {
	m := make(map[string]string, len(columns)*2+2)
	for _, col := range append(columns, "created_at", "updated_at") {
		m[col] = col
		m[camel(col)] = col
	}
	return m
}

func camel(snake string) string {
	parts := strings.Split(snake, "_")
	for i := 1; i < len(parts); i++ {
		if parts[i] != "" {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, "")
}
