package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"textile-erp/internal/apperror"
	"textile-erp/internal/repository"

	"github.com/shopspring/decimal"
)

// --- DTOs ---

type CostTrendPoint struct {
	Period    string          `json:"period"`
	Purchase  decimal.Decimal `json:"purchase"`
	Weaving   decimal.Decimal `json:"weaving"`
	Stitching decimal.Decimal `json:"stitching"`
	Transport decimal.Decimal `json:"transport"`
	Expenses  decimal.Decimal `json:"expenses"`
	Vouchers  decimal.Decimal `json:"vouchers"`
	Total     decimal.Decimal `json:"total"` // same basis as the dashboard cost total
}

// --- Interface ---

type CostTrendService interface {
	// CostTrend groups production spend by week, month, quarter or year. Without a date
	// range it covers the last twelve months.
	CostTrend(ctx context.Context, groupBy string, q ListQuery) ([]CostTrendPoint, error)
}

type costTrendService struct {
	repo repository.CostTrendRepository
	now  func() time.Time
}

func NewCostTrendService(repo repository.CostTrendRepository) CostTrendService {
	return &costTrendService{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// --- Implementation ---

func (s *costTrendService) CostTrend(ctx context.Context, groupBy string, q ListQuery) ([]CostTrendPoint, error) {
	groupBy = strings.ToLower(strings.TrimSpace(groupBy))
	switch groupBy {
	case "":
		groupBy = repository.GroupByMonth
	case repository.GroupByWeek, repository.GroupByMonth, repository.GroupByQuarter, repository.GroupByYear:
	default:
		return nil, apperror.Validation("group_by must be one of: week, month, quarter, year")
	}

	f, err := q.Filter()
	if err != nil {
		return nil, err
	}
	now := s.now()
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if f.DateTo != nil {
		to = *f.DateTo
	}
	from := time.Date(to.Year(), to.Month()-11, 1, 0, 0, 0, 0, time.UTC)
	if f.DateFrom != nil {
		from = *f.DateFrom
	}

	rows, err := s.repo.CostTrend(ctx, groupBy, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch cost trend: %w", err)
	}

	result := make([]CostTrendPoint, 0, len(rows))
	for _, r := range rows {
		result = append(result, CostTrendPoint{
			Period:    r.Period,
			Purchase:  r.Purchase,
			Weaving:   r.Weaving,
			Stitching: r.Stitching,
			Transport: r.Transport,
			Expenses:  r.Expenses,
			Vouchers:  r.Vouchers,
			Total:     r.Purchase.Add(r.Weaving).Add(r.Stitching).Add(r.Transport).Add(r.Expenses),
		})
	}
	return result, nil
}
