package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"textile-erp/internal/apperror"
	"textile-erp/internal/model"
	"textile-erp/internal/pipeline"

	"github.com/shopspring/decimal"
)

// receivedWeaverChallan creates a weaver challan and marks it received
func receivedWeaverChallan(t *testing.T, env *testEnv) *model.WeaverChallan {
	t.Helper()
	ctx := context.Background()
	weaver := env.seedLedger(t, model.LedgerTypeWeaver)
	req := newWeaverRequest(weaver.ID.String())
	req.BatchNumber = "B-12"
	challan, err := env.weaverService().CreateWeaverChallan(ctx, testUser, req)
	if err != nil {
		t.Fatalf("CreateWeaverChallan: %v", err)
	}
	challan, err = env.weaverService().ReceiveWeaverChallan(ctx, testUser, challan.ID.String(), ReceiveWeaverChallanRequest{QuantityReceivedMeters: "95"})
	if err != nil {
		t.Fatalf("ReceiveWeaverChallan: %v", err)
	}
	return challan
}

func TestCreateShortingEntryBalance(t *testing.T) {
	tests := []struct {
		name                    string
		total, good, dmg, rejct int
		want                    error
	}{
		{"balanced", 200, 180, 15, 5, nil},
		{"over by five", 200, 180, 15, 10, apperror.ErrInvalidQuantity},
		{"short by one", 200, 180, 14, 5, apperror.ErrInvalidQuantity},
		{"all rejected", 10, 0, 0, 10, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			entry, err := env.shortingService().CreateShortingEntry(context.Background(), testUser, CreateShortingEntryRequest{
				EntryDate:      "2024-06-12",
				MaterialType:   model.MaterialCotton,
				TotalPieces:    tt.total,
				GoodPieces:     tt.good,
				DamagedPieces:  tt.dmg,
				RejectedPieces: tt.rejct,
			})
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if tt.want != nil {
				if env.shortings.len() != 0 {
					t.Fatal("unbalanced entry was stored")
				}
				return
			}
			if entry.EntryNo != "SE-20240612-00001" {
				t.Errorf("entry_no = %s", entry.EntryNo)
			}
		})
	}
}

func TestCreateShortingEntryReportsTheSum(t *testing.T) {
	env := newTestEnv()
	_, err := env.shortingService().CreateShortingEntry(context.Background(), testUser, CreateShortingEntryRequest{
		EntryDate:      "2024-06-12",
		MaterialType:   model.MaterialCotton,
		TotalPieces:    200,
		GoodPieces:     180,
		DamagedPieces:  15,
		RejectedPieces: 10,
	})
	if err == nil || !strings.Contains(err.Error(), "= 205") {
		t.Fatalf("err = %v, want the computed sum in the message", err)
	}
}

func TestShortingEntryView(t *testing.T) {
	env := newTestEnv()
	entry, err := env.shortingService().CreateShortingEntry(context.Background(), testUser, CreateShortingEntryRequest{
		EntryDate:      "2024-06-12",
		MaterialType:   model.MaterialCotton,
		TotalPieces:    200,
		GoodPieces:     180,
		DamagedPieces:  15,
		RejectedPieces: 5,
		SizeBreakdown:  map[string]int{"M": 80, "L": 100},
	})
	if err != nil {
		t.Fatalf("CreateShortingEntry: %v", err)
	}

	view := NewShortingEntryView(*entry)
	if view.QualityRate != "90.0" {
		t.Errorf("quality rate = %s, want 90.0", view.QualityRate)
	}
	sizes, err := entry.Sizes()
	if err != nil || sizes["L"] != 100 {
		t.Errorf("sizes = %v, err = %v", sizes, err)
	}
}

func TestCreateShortingEntrySizeBreakdown(t *testing.T) {
	tests := []struct {
		name  string
		sizes map[string]int
		want  error
	}{
		{"within total", map[string]int{"S": 10, "M": 10}, nil},
		{"above total", map[string]int{"S": 15, "M": 10}, apperror.ErrInvalidQuantity},
		{"negative size", map[string]int{"S": -1}, apperror.ErrInvalidQuantity},
		{"blank label", map[string]int{" ": 1}, apperror.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			_, err := env.shortingService().CreateShortingEntry(context.Background(), testUser, CreateShortingEntryRequest{
				EntryDate:     "2024-06-12",
				MaterialType:  model.MaterialWool,
				TotalPieces:   20,
				GoodPieces:    20,
				SizeBreakdown: tt.sizes,
			})
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCreateShortingEntryFromWeaverChallan(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	challan := receivedWeaverChallan(t, env)

	entry, err := env.shortingService().CreateShortingEntry(ctx, testUser, CreateShortingEntryRequest{
		EntryDate:       "2024-06-12",
		WeaverChallanID: challan.ID.String(),
		TotalPieces:     50,
		GoodPieces:      50,
	})
	if err != nil {
		t.Fatalf("CreateShortingEntry: %v", err)
	}
	if entry.MaterialType != challan.MaterialType || entry.BatchNumber != "B-12" {
		t.Errorf("material = %s, batch = %s; want values from the weaver challan", entry.MaterialType, entry.BatchNumber)
	}

	if err := env.weaverService().DeleteWeaverChallan(ctx, testUser, challan.ID.String()); !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("delete referenced weaver challan: err = %v, want conflict", err)
	}
}

func TestShortingEntryCutYield(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	challan := receivedWeaverChallan(t, env)
	svc := env.shortingService()

	entry, err := svc.CreateShortingEntry(ctx, testUser, CreateShortingEntryRequest{
		EntryDate:       "2024-06-12",
		WeaverChallanID: challan.ID.String(),
		MetersPerPiece:  "2.5",
		TotalPieces:     36,
		GoodPieces:      34,
		DamagedPieces:   2,
	})
	if err != nil {
		t.Fatalf("CreateShortingEntry: %v", err)
	}
	// 95 received meters at 2.5 m a piece
	if entry.ExpectedPieces != 38 {
		t.Errorf("expected pieces = %d, want 38", entry.ExpectedPieces)
	}
	if view := NewShortingEntryView(*entry); !view.ClothMeters.Equal(decimal.NewFromInt(90)) {
		t.Errorf("cloth meters = %s, want 90", view.ClothMeters)
	}

	updated, err := svc.UpdateShortingEntry(ctx, testUser, entry.ID.String(), UpdateShortingEntryRequest{MetersPerPiece: ptr("3")})
	if err != nil {
		t.Fatalf("UpdateShortingEntry: %v", err)
	}
	if updated.ExpectedPieces != 31 {
		t.Errorf("expected pieces after recut = %d, want 31", updated.ExpectedPieces)
	}

	if _, err := svc.UpdateShortingEntry(ctx, testUser, entry.ID.String(), UpdateShortingEntryRequest{MetersPerPiece: ptr("-1")}); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("negative cut length: err = %v, want validation", err)
	}
}

func TestCreateShortingEntryLinksChallanStillAtWeaver(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	weaver := env.seedLedger(t, model.LedgerTypeWeaver)
	challan, err := env.weaverService().CreateWeaverChallan(ctx, testUser, newWeaverRequest(weaver.ID.String()))
	if err != nil {
		t.Fatalf("CreateWeaverChallan: %v", err)
	}
	if challan.Status != pipeline.WeaverSent {
		t.Fatalf("status = %s", challan.Status)
	}

	entry, err := env.shortingService().CreateShortingEntry(ctx, testUser, CreateShortingEntryRequest{
		EntryDate:       "2024-06-12",
		WeaverChallanID: challan.ID.String(),
		TotalPieces:     10,
		GoodPieces:      10,
	})
	if err != nil {
		t.Fatalf("CreateShortingEntry: %v", err)
	}
	if entry.WeaverChallanID == nil || *entry.WeaverChallanID != challan.ID {
		t.Errorf("weaver_challan_id = %v, want %s", entry.WeaverChallanID, challan.ID)
	}

	_, err = env.shortingService().CreateShortingEntry(ctx, testUser, CreateShortingEntryRequest{
		EntryDate:       "2024-06-12",
		WeaverChallanID: "5f0c3a52-8d3e-4b55-9d0e-6f1d2c7a9b11",
		MaterialType:    model.MaterialCotton,
		TotalPieces:     10,
		GoodPieces:      10,
	})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("unknown weaver challan: err = %v, want not found", err)
	}
}

func TestUpdateShortingEntryRebalances(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	svc := env.shortingService()
	entry, err := svc.CreateShortingEntry(ctx, testUser, CreateShortingEntryRequest{
		EntryDate:      "2024-06-12",
		MaterialType:   model.MaterialCotton,
		TotalPieces:    200,
		GoodPieces:     180,
		DamagedPieces:  15,
		RejectedPieces: 5,
	})
	if err != nil {
		t.Fatalf("CreateShortingEntry: %v", err)
	}

	if _, err := svc.UpdateShortingEntry(ctx, testUser, entry.ID.String(), UpdateShortingEntryRequest{GoodPieces: ptr(170)}); !errors.Is(err, apperror.ErrInvalidQuantity) {
		t.Fatalf("unbalanced update: err = %v, want invalid quantity", err)
	}
	updated, err := svc.UpdateShortingEntry(ctx, testUser, entry.ID.String(), UpdateShortingEntryRequest{
		GoodPieces:    ptr(170),
		DamagedPieces: ptr(25),
	})
	if err != nil {
		t.Fatalf("UpdateShortingEntry: %v", err)
	}
	if !updated.Balanced() {
		t.Errorf("entry not balanced after update: %+v", updated)
	}
}
