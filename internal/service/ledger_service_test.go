package service

import (
	"context"
	"errors"
	"testing"

	"textile-erp/internal/apperror"
	"textile-erp/internal/model"
)

func TestCreateLedgerNormalizesContactDetails(t *testing.T) {
	env := newTestEnv()
	ledger, err := env.ledgerService().CreateLedger(context.Background(), testUser, CreateLedgerRequest{
		Name:       "Shree Ganesh Weaving",
		LedgerType: model.LedgerTypeWeaver,
		Phone:      "98765 43210",
		Pincode:    "395003",
		GSTNumber:  "27aapfu0939f1zv",
		PANNumber:  "AAPFU0939F",
	})
	if err != nil {
		t.Fatalf("CreateLedger: %v", err)
	}
	if ledger.Phone != "+919876543210" {
		t.Errorf("phone = %s, want +919876543210", ledger.Phone)
	}
	if ledger.GSTNumber != "27AAPFU0939F1ZV" {
		t.Errorf("gst = %s", ledger.GSTNumber)
	}
	if !ledger.IsActive {
		t.Error("new ledger is inactive")
	}
	if got := env.audit.countAction(model.ActionCreateLedger); got != 1 {
		t.Errorf("audit entries = %d, want 1", got)
	}
}

func TestCreateLedgerValidation(t *testing.T) {
	tests := []struct {
		name string
		req  CreateLedgerRequest
	}{
		{"missing name", CreateLedgerRequest{LedgerType: model.LedgerTypeVendor}},
		{"unknown type", CreateLedgerRequest{Name: "A", LedgerType: "SUPPLIER"}},
		{"bad email", CreateLedgerRequest{Name: "A", LedgerType: model.LedgerTypeVendor, Email: "not-an-email"}},
		{"bad phone", CreateLedgerRequest{Name: "A", LedgerType: model.LedgerTypeVendor, Phone: "12345"}},
		{"bad pincode", CreateLedgerRequest{Name: "A", LedgerType: model.LedgerTypeVendor, Pincode: "012345"}},
		{"bad gst", CreateLedgerRequest{Name: "A", LedgerType: model.LedgerTypeVendor, GSTNumber: "27AAPFU0939F1Z"}},
		{"bad pan", CreateLedgerRequest{Name: "A", LedgerType: model.LedgerTypeVendor, PANNumber: "AAPF0939F"}},
		{"pan differs from gst", CreateLedgerRequest{Name: "A", LedgerType: model.LedgerTypeVendor, GSTNumber: "27AAPFU0939F1ZV", PANNumber: "BBPFU0939F"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			_, err := env.ledgerService().CreateLedger(context.Background(), testUser, tt.req)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Fatalf("err = %v, want validation", err)
			}
			if env.ledgers.len() != 0 {
				t.Fatal("invalid ledger was stored")
			}
		})
	}
}

func TestLedgerReferencesBlockChanges(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	vendor := env.seedLedger(t, model.LedgerTypeVendor)
	svc := env.ledgerService()

	if _, err := env.purchaseService().CreatePurchase(ctx, testUser, CreatePurchaseRequest{
		PurchaseDate:   "2024-06-01",
		VendorLedgerID: vendor.ID.String(),
		MaterialType:   model.MaterialCotton,
		TotalMeters:    "100",
	}); err != nil {
		t.Fatalf("CreatePurchase: %v", err)
	}

	if err := svc.DeleteLedger(ctx, testUser, vendor.ID.String()); !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("delete referenced ledger: err = %v, want conflict", err)
	}
	if _, err := svc.UpdateLedger(ctx, testUser, vendor.ID.String(), UpdateLedgerRequest{LedgerType: ptr(model.LedgerTypeCustomer)}); !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("retype referenced ledger: err = %v, want conflict", err)
	}
	updated, err := svc.UpdateLedger(ctx, testUser, vendor.ID.String(), UpdateLedgerRequest{City: ptr("Surat")})
	if err != nil {
		t.Fatalf("UpdateLedger: %v", err)
	}
	if updated.City != "Surat" {
		t.Errorf("city = %s", updated.City)
	}
}

func TestInactiveLedgerCannotBeUsed(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	vendor := env.seedLedger(t, model.LedgerTypeVendor)

	if _, err := env.ledgerService().UpdateLedger(ctx, testUser, vendor.ID.String(), UpdateLedgerRequest{IsActive: ptr(false)}); err != nil {
		t.Fatalf("UpdateLedger: %v", err)
	}
	_, err := env.purchaseService().CreatePurchase(ctx, testUser, CreatePurchaseRequest{
		PurchaseDate:   "2024-06-01",
		VendorLedgerID: vendor.ID.String(),
		MaterialType:   model.MaterialCotton,
		TotalMeters:    "100",
	})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("purchase from inactive vendor: err = %v, want validation", err)
	}
}

func TestDeleteUnusedLedger(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	customer := env.seedLedger(t, model.LedgerTypeCustomer)

	if err := env.ledgerService().DeleteLedger(ctx, testUser, customer.ID.String()); err != nil {
		t.Fatalf("DeleteLedger: %v", err)
	}
	if got := env.audit.countAction(model.ActionDeleteLedger); got != 1 {
		t.Errorf("delete audit entries = %d, want 1", got)
	}
}
