package service

import (
	"context"
	"fmt"

	"textile-erp/internal/apperror"
	"textile-erp/internal/calc"
	"textile-erp/internal/repository"
	"textile-erp/internal/rollup"

	"github.com/shopspring/decimal"
)

const (
	RollupSourceInventory = "inventory"
	RollupSourceStitching = "stitching"
	RollupSourceShorting  = "shorting"
)

type PurchaseStats struct {
	Count       int64           `json:"count"`
	TotalMeters decimal.Decimal `json:"total_meters"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

type WeavingStats struct {
	ByStatus       map[string]int64 `json:"by_status"`
	SentMeters     decimal.Decimal  `json:"sent_meters"`
	ReceivedMeters decimal.Decimal  `json:"received_meters"`
	LossMeters     decimal.Decimal  `json:"loss_meters"`
	LossPercentage decimal.Decimal  `json:"loss_percentage"`
	VendorAmount   decimal.Decimal  `json:"vendor_amount"`
}

type StitchingStats struct {
	ByStatus       map[string]int64 `json:"by_status"`
	SentPieces     int64            `json:"sent_pieces"`
	ReceivedPieces int64            `json:"received_pieces"`
	LossPieces     int64            `json:"loss_pieces"`
	LossPercentage decimal.Decimal  `json:"loss_percentage"`
	AmountPayable  decimal.Decimal  `json:"amount_payable"`
}

type CostSummary struct {
	Purchase  decimal.Decimal `json:"purchase"`
	Weaving   decimal.Decimal `json:"weaving"`
	Stitching decimal.Decimal `json:"stitching"`
	Transport decimal.Decimal `json:"transport"`
	Expenses  decimal.Decimal `json:"expenses"`
	Vouchers  decimal.Decimal `json:"vouchers"`
	LossCost  decimal.Decimal `json:"loss_cost"`
	Total     decimal.Decimal `json:"total"` // purchase + weaving + stitching + transport + expenses
}

type Dashboard struct {
	Purchases PurchaseStats  `json:"purchases"`
	Weaving   WeavingStats   `json:"weaving"`
	Shorting  rollup.Summary `json:"shorting"`
	Stitching StitchingStats `json:"stitching"`
	Inventory rollup.Summary `json:"inventory"`
	Costs     CostSummary    `json:"costs"`
}

type AnalyticsService interface {
	Rollup(ctx context.Context, source string, q ListQuery) (rollup.Summary, error)
	Dashboard(ctx context.Context, q ListQuery) (Dashboard, error)
}

type analyticsService struct {
	purchaseRepo  repository.PurchaseRepository
	weaverRepo    repository.WeaverChallanRepository
	shortingRepo  repository.ShortingEntryRepository
	stitchingRepo repository.StitchingChallanRepository
	inventoryRepo repository.InventoryItemRepository
	expenseRepo   repository.ExpenseRepository
	voucherRepo   repository.PaymentVoucherRepository
}

func NewAnalyticsService(
	purchaseRepo repository.PurchaseRepository,
	weaverRepo repository.WeaverChallanRepository,
	shortingRepo repository.ShortingEntryRepository,
	stitchingRepo repository.StitchingChallanRepository,
	inventoryRepo repository.InventoryItemRepository,
	expenseRepo repository.ExpenseRepository,
	voucherRepo repository.PaymentVoucherRepository,
) AnalyticsService {
	return &analyticsService{
		purchaseRepo:  purchaseRepo,
		weaverRepo:    weaverRepo,
		shortingRepo:  shortingRepo,
		stitchingRepo: stitchingRepo,
		inventoryRepo: inventoryRepo,
		expenseRepo:   expenseRepo,
		voucherRepo:   voucherRepo,
	}
}

// Rollup recomputes the classification summary of source over the filtered rows
func (s *analyticsService) Rollup(ctx context.Context, source string, q ListQuery) (rollup.Summary, error) {
	f, err := q.Filter()
	if err != nil {
		return rollup.Summary{}, err
	}
	f = f.Unpaged()

	switch source {
	case "", RollupSourceInventory:
		return s.inventoryRollup(ctx, f)
	case RollupSourceStitching:
		challans, _, err := s.stitchingRepo.List(ctx, f)
		if err != nil {
			return rollup.Summary{}, fmt.Errorf("failed to fetch stitching challans: %w", err)
		}
		return rollup.Compute(rollup.FromStitchingChallans(challans)), nil
	case RollupSourceShorting:
		return s.shortingRollup(ctx, f)
	default:
		return rollup.Summary{}, apperror.Validation("source must be one of: inventory, stitching, shorting")
	}
}

func (s *analyticsService) inventoryRollup(ctx context.Context, f repository.ListFilter) (rollup.Summary, error) {
	items, _, err := s.inventoryRepo.List(ctx, f)
	if err != nil {
		return rollup.Summary{}, fmt.Errorf("failed to fetch inventory items: %w", err)
	}
	return rollup.Compute(rollup.FromInventoryItems(items)), nil
}

func (s *analyticsService) shortingRollup(ctx context.Context, f repository.ListFilter) (rollup.Summary, error) {
	entries, _, err := s.shortingRepo.List(ctx, f)
	if err != nil {
		return rollup.Summary{}, fmt.Errorf("failed to fetch shorting entries: %w", err)
	}
	return rollup.Compute(rollup.FromShortingEntries(entries)), nil
}

// Dashboard gathers stage counts, losses and costs for the date range in q
func (s *analyticsService) Dashboard(ctx context.Context, q ListQuery) (Dashboard, error) {
	f, err := q.Filter()
	if err != nil {
		return Dashboard{}, err
	}
	// stage filters that do not apply across tables are dropped
	f = repository.ListFilter{DateFrom: f.DateFrom, DateTo: f.DateTo, MaterialType: f.MaterialType}

	var d Dashboard
	if d.Purchases, err = s.purchaseStats(ctx, f); err != nil {
		return Dashboard{}, err
	}
	if d.Weaving, err = s.weavingStats(ctx, f); err != nil {
		return Dashboard{}, err
	}
	if d.Shorting, err = s.shortingRollup(ctx, f); err != nil {
		return Dashboard{}, err
	}
	noMaterial := f
	noMaterial.MaterialType = ""
	if d.Stitching, err = s.stitchingStats(ctx, noMaterial); err != nil {
		return Dashboard{}, err
	}
	if d.Inventory, err = s.inventoryRollup(ctx, noMaterial); err != nil {
		return Dashboard{}, err
	}

	costs := CostSummary{
		Purchase:  d.Purchases.TotalAmount,
		Weaving:   d.Weaving.VendorAmount,
		Stitching: d.Stitching.AmountPayable,
		LossCost:  d.Inventory.LossCost,
	}
	weaverTransport, err := s.weaverRepo.Sum(ctx, f, "transport_charge")
	if err != nil {
		return Dashboard{}, fmt.Errorf("failed to sum weaver transport: %w", err)
	}
	stitchingTransport, err := s.stitchingRepo.Sum(ctx, noMaterial, "transport_charge")
	if err != nil {
		return Dashboard{}, fmt.Errorf("failed to sum stitching transport: %w", err)
	}
	costs.Transport = weaverTransport.Add(stitchingTransport)
	if costs.Expenses, err = s.expenseRepo.Sum(ctx, noMaterial, "amount"); err != nil {
		return Dashboard{}, fmt.Errorf("failed to sum expenses: %w", err)
	}
	if costs.Vouchers, err = s.voucherRepo.Sum(ctx, noMaterial, "amount"); err != nil {
		return Dashboard{}, fmt.Errorf("failed to sum payment vouchers: %w", err)
	}
	costs.Total = costs.Purchase.Add(costs.Weaving).Add(costs.Stitching).Add(costs.Transport).Add(costs.Expenses)
	d.Costs = costs

	return d, nil
}

func (s *analyticsService) purchaseStats(ctx context.Context, f repository.ListFilter) (PurchaseStats, error) {
	var stats PurchaseStats
	page := f
	page.Page, page.Limit = 1, 1
	_, total, err := s.purchaseRepo.List(ctx, page)
	if err != nil {
		return stats, fmt.Errorf("failed to count purchases: %w", err)
	}
	stats.Count = total
	if stats.TotalMeters, err = s.purchaseRepo.Sum(ctx, f, "total_meters"); err != nil {
		return stats, fmt.Errorf("failed to sum purchase meters: %w", err)
	}
	if stats.TotalAmount, err = s.purchaseRepo.Sum(ctx, f, "total_amount"); err != nil {
		return stats, fmt.Errorf("failed to sum purchase amount: %w", err)
	}
	return stats, nil
}

func (s *analyticsService) weavingStats(ctx context.Context, f repository.ListFilter) (WeavingStats, error) {
	var stats WeavingStats
	var err error
	if stats.ByStatus, err = s.weaverRepo.CountByStatus(ctx, f); err != nil {
		return stats, fmt.Errorf("failed to count weaver challans: %w", err)
	}
	sums := []struct {
		column string
		dst    *decimal.Decimal
	}{
		{"quantity_sent_meters", &stats.SentMeters},
		{"quantity_received_meters", &stats.ReceivedMeters},
		{"weaving_loss_meters", &stats.LossMeters},
		{"vendor_amount", &stats.VendorAmount},
	}
	for _, sum := range sums {
		if *sum.dst, err = s.weaverRepo.Sum(ctx, f, sum.column); err != nil {
			return stats, fmt.Errorf("failed to sum %s: %w", sum.column, err)
		}
	}
	stats.LossPercentage = aggregateLoss(stats.LossMeters, stats.LossMeters.Add(stats.ReceivedMeters))
	return stats, nil
}

func (s *analyticsService) stitchingStats(ctx context.Context, f repository.ListFilter) (StitchingStats, error) {
	var stats StitchingStats
	var err error
	if stats.ByStatus, err = s.stitchingRepo.CountByStatus(ctx, f); err != nil {
		return stats, fmt.Errorf("failed to count stitching challans: %w", err)
	}
	var sent, received, loss decimal.Decimal
	sums := []struct {
		column string
		dst    *decimal.Decimal
	}{
		{"quantity_sent_pieces", &sent},
		{"quantity_received_pieces", &received},
		{"stitching_loss_pieces", &loss},
		{"amount_payable", &stats.AmountPayable},
	}
	for _, sum := range sums {
		if *sum.dst, err = s.stitchingRepo.Sum(ctx, f, sum.column); err != nil {
			return stats, fmt.Errorf("failed to sum %s: %w", sum.column, err)
		}
	}
	stats.SentPieces = sent.IntPart()
	stats.ReceivedPieces = received.IntPart()
	stats.LossPieces = loss.IntPart()
	stats.LossPercentage = aggregateLoss(loss, loss.Add(received))
	return stats, nil
}

// aggregateLoss is the loss share of the quantity that has come back or been written off.
// Challans still out with nothing received contribute to neither side.
func aggregateLoss(loss, settled decimal.Decimal) decimal.Decimal {
	pct, err := calc.LossPercentage(settled, settled.Sub(loss))
	if err != nil {
		return decimal.Zero
	}
	return pct
}
