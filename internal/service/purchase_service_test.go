package service

import (
	"context"
	"errors"
	"testing"

	"textile-erp/internal/apperror"
	"textile-erp/internal/model"

	"github.com/shopspring/decimal"
)

func TestCreatePurchase(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	vendor := env.seedLedger(t, model.LedgerTypeVendor)
	svc := env.purchaseService()

	purchase, err := svc.CreatePurchase(ctx, testUser, CreatePurchaseRequest{
		PurchaseDate:   "2024-06-01",
		VendorLedgerID: vendor.ID.String(),
		MaterialType:   model.MaterialCotton,
		TotalMeters:    "100",
		RatePerMeter:   "50",
		GSTPercent:     "5",
	})
	if err != nil {
		t.Fatalf("CreatePurchase: %v", err)
	}
	if purchase.PurchaseNo != "PUR-20240601-00001" {
		t.Errorf("purchase_no = %s", purchase.PurchaseNo)
	}
	if !purchase.TotalAmount.Equal(decimal.NewFromInt(5250)) {
		t.Errorf("total amount = %s, want 5250", purchase.TotalAmount)
	}

	_, err = svc.CreatePurchase(ctx, testUser, CreatePurchaseRequest{
		PurchaseNo:     purchase.PurchaseNo,
		PurchaseDate:   "2024-06-02",
		VendorLedgerID: vendor.ID.String(),
		MaterialType:   model.MaterialCotton,
		TotalMeters:    "10",
	})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("duplicate purchase number: err = %v, want conflict", err)
	}
}

func TestCreatePurchaseRejects(t *testing.T) {
	env := newTestEnv()
	vendor := env.seedLedger(t, model.LedgerTypeVendor)
	weaver := env.seedLedger(t, model.LedgerTypeWeaver)

	tests := []struct {
		name   string
		mutate func(*CreatePurchaseRequest)
	}{
		{"weaver as vendor", func(r *CreatePurchaseRequest) { r.VendorLedgerID = weaver.ID.String() }},
		{"unknown material", func(r *CreatePurchaseRequest) { r.MaterialType = "Jute" }},
		{"zero meters", func(r *CreatePurchaseRequest) { r.TotalMeters = "0" }},
		{"negative rate", func(r *CreatePurchaseRequest) { r.RatePerMeter = "-1" }},
		{"gst above 100", func(r *CreatePurchaseRequest) { r.GSTPercent = "101" }},
		{"text meters", func(r *CreatePurchaseRequest) { r.TotalMeters = "lots" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := CreatePurchaseRequest{
				PurchaseDate:   "2024-06-01",
				VendorLedgerID: vendor.ID.String(),
				MaterialType:   model.MaterialCotton,
				TotalMeters:    "100",
			}
			tt.mutate(&req)
			_, err := env.purchaseService().CreatePurchase(context.Background(), testUser, req)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Fatalf("err = %v, want validation", err)
			}
		})
	}
}

func TestReferencedPurchaseIsLocked(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	vendor := env.seedLedger(t, model.LedgerTypeVendor)
	weaver := env.seedLedger(t, model.LedgerTypeWeaver)
	svc := env.purchaseService()

	purchase, err := svc.CreatePurchase(ctx, testUser, CreatePurchaseRequest{
		PurchaseDate:   "2024-06-01",
		VendorLedgerID: vendor.ID.String(),
		MaterialType:   model.MaterialCotton,
		TotalMeters:    "100",
	})
	if err != nil {
		t.Fatalf("CreatePurchase: %v", err)
	}
	req := newWeaverRequest(weaver.ID.String())
	req.PurchaseID = purchase.ID.String()
	if _, err := env.weaverService().CreateWeaverChallan(ctx, testUser, req); err != nil {
		t.Fatalf("CreateWeaverChallan: %v", err)
	}

	if err := svc.DeletePurchase(ctx, testUser, purchase.ID.String()); !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("delete referenced purchase: err = %v, want conflict", err)
	}
	if _, err := svc.UpdatePurchase(ctx, testUser, purchase.ID.String(), UpdatePurchaseRequest{TotalMeters: ptr("200")}); !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("change meters of referenced purchase: err = %v, want conflict", err)
	}
	updated, err := svc.UpdatePurchase(ctx, testUser, purchase.ID.String(), UpdatePurchaseRequest{
		InvoiceNumber: ptr("INV-778"),
		Remarks:       ptr("bill received"),
	})
	if err != nil {
		t.Fatalf("UpdatePurchase: %v", err)
	}
	if updated.InvoiceNumber != "INV-778" {
		t.Errorf("invoice number = %s", updated.InvoiceNumber)
	}
}

func TestUpdatePurchaseRecomputesTotal(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	vendor := env.seedLedger(t, model.LedgerTypeVendor)
	svc := env.purchaseService()

	purchase, err := svc.CreatePurchase(ctx, testUser, CreatePurchaseRequest{
		PurchaseDate:   "2024-06-01",
		VendorLedgerID: vendor.ID.String(),
		MaterialType:   model.MaterialCotton,
		TotalMeters:    "100",
		RatePerMeter:   "50",
	})
	if err != nil {
		t.Fatalf("CreatePurchase: %v", err)
	}
	updated, err := svc.UpdatePurchase(ctx, testUser, purchase.ID.String(), UpdatePurchaseRequest{GSTPercent: ptr("12")})
	if err != nil {
		t.Fatalf("UpdatePurchase: %v", err)
	}
	if !updated.TotalAmount.Equal(decimal.NewFromInt(5600)) {
		t.Errorf("total amount = %s, want 5600", updated.TotalAmount)
	}

	if err := svc.DeletePurchase(ctx, testUser, purchase.ID.String()); err != nil {
		t.Fatalf("DeletePurchase: %v", err)
	}
	if _, err := svc.GetPurchase(ctx, purchase.ID.String()); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("get deleted purchase: err = %v, want not found", err)
	}
}
