package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Trend buckets accepted by CostTrend
const (
	GroupByWeek    = "week"
	GroupByMonth   = "month"
	GroupByQuarter = "quarter"
	GroupByYear    = "year"
)

// CostTrendRow is the spend of one period, keyed by the first day of the period
type CostTrendRow struct {
	Period    string          `gorm:"column:period"`
	Purchase  decimal.Decimal `gorm:"column:purchase"`
	Weaving   decimal.Decimal `gorm:"column:weaving"`
	Stitching decimal.Decimal `gorm:"column:stitching"`
	Transport decimal.Decimal `gorm:"column:transport"`
	Expenses  decimal.Decimal `gorm:"column:expenses"`
	Vouchers  decimal.Decimal `gorm:"column:vouchers"`
}

type CostTrendRepository interface {
	CostTrend(ctx context.Context, groupBy string, from, to time.Time) ([]CostTrendRow, error)
}

type costTrendRepository struct {
	db *gorm.DB
}

func NewCostTrendRepository(db *gorm.DB) CostTrendRepository {
	return &costTrendRepository{db: db}
}

// periodExpr truncates column to the start of its groupBy period, formatted YYYY-MM-DD.
// Weeks start on Monday on both dialects.
func periodExpr(dialect, groupBy, column string) (string, error) {
	switch groupBy {
	case GroupByWeek, GroupByMonth, GroupByQuarter, GroupByYear:
	default:
		return "", fmt.Errorf("unsupported period %q", groupBy)
	}

	if dialect != DialectMySQL {
		return fmt.Sprintf("TO_CHAR(DATE_TRUNC('%s', %s), 'YYYY-MM-DD')", groupBy, column), nil
	}
	switch groupBy {
	case GroupByWeek:
		return fmt.Sprintf("DATE_FORMAT(DATE_SUB(%[1]s, INTERVAL WEEKDAY(%[1]s) DAY), '%%Y-%%m-%%d')", column), nil
	case GroupByMonth:
		return fmt.Sprintf("DATE_FORMAT(%s, '%%Y-%%m-01')", column), nil
	case GroupByQuarter:
		return fmt.Sprintf("DATE_FORMAT(MAKEDATE(YEAR(%[1]s), 1) + INTERVAL (QUARTER(%[1]s) - 1) QUARTER, '%%Y-%%m-%%d')", column), nil
	default:
		return fmt.Sprintf("DATE_FORMAT(%s, '%%Y-01-01')", column), nil
	}
}

// trendSources lists, per table, which cost column each output bucket reads
var trendSources = []struct {
	table, dateColumn string
	purchase, weaving, stitching, transport, expenses, vouchers string
}{
	{"purchases", "purchase_date", "total_amount", "0", "0", "0", "0", "0"},
	{"weaver_challans", "challan_date", "0", "vendor_amount", "0", "transport_charge", "0", "0"},
	{"stitching_challans", "challan_date", "0", "0", "amount_payable", "transport_charge", "0", "0"},
	{"expenses", "expense_date", "0", "0", "0", "0", "amount", "0"},
	{"payment_vouchers", "voucher_date", "0", "0", "0", "0", "0", "amount"},
}

func (r *costTrendRepository) CostTrend(ctx context.Context, groupBy string, from, to time.Time) ([]CostTrendRow, error) {
	db := GetDB(ctx, r.db)
	dialect := Dialect(db)

	parts := make([]string, 0, len(trendSources))
	args := make([]interface{}, 0, len(trendSources)*2)
	for _, s := range trendSources {
		period, err := periodExpr(dialect, groupBy, s.dateColumn)
		if err != nil {
			return nil, err
		}
		parts = append(parts, fmt.Sprintf(
			"SELECT %s AS period, %s AS purchase, %s AS weaving, %s AS stitching, %s AS transport, %s AS expenses, %s AS vouchers FROM %s WHERE %s BETWEEN ? AND ?",
			period, s.purchase, s.weaving, s.stitching, s.transport, s.expenses, s.vouchers, s.table, s.dateColumn,
		))
		args = append(args, from, to)
	}

	query := `
		SELECT
			t.period,
			COALESCE(SUM(t.purchase), 0) AS purchase,
			COALESCE(SUM(t.weaving), 0) AS weaving,
			COALESCE(SUM(t.stitching), 0) AS stitching,
			COALESCE(SUM(t.transport), 0) AS transport,
			COALESCE(SUM(t.expenses), 0) AS expenses,
			COALESCE(SUM(t.vouchers), 0) AS vouchers
		FROM (` + strings.Join(parts, " UNION ALL ") + `) t
		GROUP BY t.period
		ORDER BY t.period
	`

	var rows []CostTrendRow
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query cost trend: %w", err)
	}
	return rows, nil
}
