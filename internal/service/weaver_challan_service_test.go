package service

import (
	"context"
	"errors"
	"testing"

	"textile-erp/internal/apperror"
	"textile-erp/internal/events"
	"textile-erp/internal/model"
	"textile-erp/internal/pipeline"

	"github.com/shopspring/decimal"
)

func newWeaverRequest(weaverID string) CreateWeaverChallanRequest {
	return CreateWeaverChallanRequest{
		ChallanDate:        "2024-06-01",
		WeaverLedgerID:     weaverID,
		MaterialType:       model.MaterialCotton,
		QuantitySentMeters: "100",
		RatePerMeter:       "50",
	}
}

func TestCreateWeaverChallanDerivesLossAndAmount(t *testing.T) {
	env := newTestEnv()
	weaver := env.seedLedger(t, model.LedgerTypeWeaver)

	req := newWeaverRequest(weaver.ID.String())
	req.QuantityReceivedMeters = "95"
	req.TotalGreyMeters = "1210"
	req.TakaCount = 11
	challan, err := env.weaverService().CreateWeaverChallan(context.Background(), testUser, req)
	if err != nil {
		t.Fatalf("CreateWeaverChallan: %v", err)
	}

	if !challan.MetersPerTaka.Equal(decimal.NewFromInt(110)) {
		t.Errorf("meters per taka = %s, want 110", challan.MetersPerTaka)
	}
	if challan.Status != pipeline.WeaverSent {
		t.Errorf("status = %s, want %s", challan.Status, pipeline.WeaverSent)
	}
	if challan.ChallanNo != "WC-20240601-00001" {
		t.Errorf("challan_no = %s", challan.ChallanNo)
	}
	if !challan.WeavingLossMeters.Equal(decimal.NewFromInt(5)) {
		t.Errorf("loss = %s, want 5", challan.WeavingLossMeters)
	}
	if !challan.LossPercentage.Equal(decimal.NewFromInt(5)) {
		t.Errorf("loss percentage = %s, want 5.00", challan.LossPercentage)
	}
	if !challan.VendorAmount.Equal(decimal.NewFromInt(4750)) {
		t.Errorf("vendor amount = %s, want 4750", challan.VendorAmount)
	}
	if got := env.audit.countAction(model.ActionCreateWeaverChallan); got != 1 {
		t.Errorf("audit entries = %d, want 1", got)
	}
}

func TestCreateWeaverChallanOverrideWins(t *testing.T) {
	env := newTestEnv()
	weaver := env.seedLedger(t, model.LedgerTypeWeaver)

	req := newWeaverRequest(weaver.ID.String())
	req.QuantityReceivedMeters = "95"
	req.VendorAmountOverride = "4500"
	challan, err := env.weaverService().CreateWeaverChallan(context.Background(), testUser, req)
	if err != nil {
		t.Fatalf("CreateWeaverChallan: %v", err)
	}
	if !challan.VendorAmount.Equal(decimal.NewFromInt(4500)) {
		t.Errorf("vendor amount = %s, want the override 4500", challan.VendorAmount)
	}
}

func TestCreateWeaverChallanRejects(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	weaver := env.seedLedger(t, model.LedgerTypeWeaver)
	vendor := env.seedLedger(t, model.LedgerTypeVendor)

	purchase, err := env.purchaseService().CreatePurchase(ctx, testUser, CreatePurchaseRequest{
		PurchaseDate:   "2024-06-01",
		VendorLedgerID: vendor.ID.String(),
		MaterialType:   model.MaterialSilk,
		TotalMeters:    "500",
		RatePerMeter:   "120",
	})
	if err != nil {
		t.Fatalf("CreatePurchase: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*CreateWeaverChallanRequest)
		want   error
	}{
		{"received above sent", func(r *CreateWeaverChallanRequest) { r.QuantityReceivedMeters = "101" }, apperror.ErrInvalidQuantity},
		{"zero sent", func(r *CreateWeaverChallanRequest) { r.QuantitySentMeters = "0" }, apperror.ErrValidation},
		{"vendor ledger", func(r *CreateWeaverChallanRequest) { r.WeaverLedgerID = vendor.ID.String() }, apperror.ErrValidation},
		{"unknown ledger", func(r *CreateWeaverChallanRequest) { r.WeaverLedgerID = "6f1c2a9e-0000-4a51-9d1e-0c3f5b7a9e21" }, apperror.ErrNotFound},
		{"material differs from purchase", func(r *CreateWeaverChallanRequest) { r.PurchaseID = purchase.ID.String() }, apperror.ErrValidation},
		{"bad date", func(r *CreateWeaverChallanRequest) { r.ChallanDate = "01/06/2024" }, apperror.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newWeaverRequest(weaver.ID.String())
			tt.mutate(&req)
			_, err := env.weaverService().CreateWeaverChallan(ctx, testUser, req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if n := env.weavers.len(); n != 0 {
				t.Fatalf("stored challans = %d, want 0", n)
			}
		})
	}
}

func TestCreateWeaverChallanInheritsPurchaseMaterial(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	weaver := env.seedLedger(t, model.LedgerTypeWeaver)
	vendor := env.seedLedger(t, model.LedgerTypeVendor)

	purchase, err := env.purchaseService().CreatePurchase(ctx, testUser, CreatePurchaseRequest{
		PurchaseDate:   "2024-06-01",
		VendorLedgerID: vendor.ID.String(),
		MaterialType:   model.MaterialLinen,
		TotalMeters:    "500",
	})
	if err != nil {
		t.Fatalf("CreatePurchase: %v", err)
	}

	req := newWeaverRequest(weaver.ID.String())
	req.MaterialType = ""
	req.PurchaseID = purchase.ID.String()
	challan, err := env.weaverService().CreateWeaverChallan(ctx, testUser, req)
	if err != nil {
		t.Fatalf("CreateWeaverChallan: %v", err)
	}
	if challan.MaterialType != model.MaterialLinen {
		t.Errorf("material = %s, want %s", challan.MaterialType, model.MaterialLinen)
	}
}

func TestUpdateWeaverChallanKeepsQuantitiesConsistent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	weaver := env.seedLedger(t, model.LedgerTypeWeaver)
	svc := env.weaverService()

	req := newWeaverRequest(weaver.ID.String())
	req.QuantityReceivedMeters = "95"
	challan, err := svc.CreateWeaverChallan(ctx, testUser, req)
	if err != nil {
		t.Fatalf("CreateWeaverChallan: %v", err)
	}

	_, err = svc.UpdateWeaverChallan(ctx, testUser, challan.ID.String(), UpdateWeaverChallanRequest{QuantitySentMeters: ptr("90")})
	if !errors.Is(err, apperror.ErrInvalidQuantity) {
		t.Fatalf("err = %v, want invalid quantity", err)
	}
	stored, _ := env.weavers.FindByID(ctx, challan.ID)
	if !stored.QuantitySentMeters.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("sent meters changed to %s after a rejected update", stored.QuantitySentMeters)
	}

	updated, err := svc.UpdateWeaverChallan(ctx, testUser, challan.ID.String(), UpdateWeaverChallanRequest{
		QuantityReceivedMeters: ptr("90"),
		RatePerMeter:           ptr("40"),
	})
	if err != nil {
		t.Fatalf("UpdateWeaverChallan: %v", err)
	}
	if !updated.WeavingLossMeters.Equal(decimal.NewFromInt(10)) || !updated.VendorAmount.Equal(decimal.NewFromInt(3600)) {
		t.Errorf("loss = %s, vendor amount = %s, want 10 and 3600", updated.WeavingLossMeters, updated.VendorAmount)
	}
}

func TestWeaverChallanLifecycle(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	weaver := env.seedLedger(t, model.LedgerTypeWeaver)
	svc := env.weaverService()

	challan, err := svc.CreateWeaverChallan(ctx, testUser, newWeaverRequest(weaver.ID.String()))
	if err != nil {
		t.Fatalf("CreateWeaverChallan: %v", err)
	}
	if !challan.LossPercentage.IsZero() {
		t.Errorf("loss percentage while cloth is out = %s, want 0", challan.LossPercentage)
	}

	if _, err := svc.CompleteWeaverChallan(ctx, testUser, challan.ID.String()); !errors.Is(err, apperror.ErrInvalidTransition) {
		t.Fatalf("complete from SENT: err = %v, want invalid transition", err)
	}

	received, err := svc.ReceiveWeaverChallan(ctx, testUser, challan.ID.String(), ReceiveWeaverChallanRequest{
		QuantityReceivedMeters: "95",
		ReceivedDate:           "2024-06-10",
	})
	if err != nil {
		t.Fatalf("ReceiveWeaverChallan: %v", err)
	}
	if received.Status != pipeline.WeaverReceived || received.ReceivedAt == nil {
		t.Fatalf("status = %s, received_at = %v", received.Status, received.ReceivedAt)
	}
	if !received.WeavingLossMeters.Equal(decimal.NewFromInt(5)) {
		t.Errorf("loss = %s, want 5", received.WeavingLossMeters)
	}

	completed, err := svc.CompleteWeaverChallan(ctx, testUser, challan.ID.String())
	if err != nil {
		t.Fatalf("CompleteWeaverChallan: %v", err)
	}
	if completed.Status != pipeline.WeaverCompleted {
		t.Fatalf("status = %s, want %s", completed.Status, pipeline.WeaverCompleted)
	}

	_, err = svc.UpdateWeaverChallan(ctx, testUser, challan.ID.String(), UpdateWeaverChallanRequest{QuantityReceivedMeters: ptr("96")})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("quantity update on completed challan: err = %v, want conflict", err)
	}
	if _, err := svc.UpdateWeaverChallan(ctx, testUser, challan.ID.String(), UpdateWeaverChallanRequest{Remarks: ptr("settled")}); err != nil {
		t.Errorf("remarks update on completed challan: %v", err)
	}
	if err := svc.DeleteWeaverChallan(ctx, testUser, challan.ID.String()); !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("delete completed challan: err = %v, want conflict", err)
	}

	if got := len(env.events.ofType(events.TypeStatusChanged)); got != 2 {
		t.Errorf("status events = %d, want 2", got)
	}
	if got := env.audit.countAction(model.ActionWeaverStatus); got != 2 {
		t.Errorf("status audit entries = %d, want 2", got)
	}
}

func TestListWeaverChallansRejectsUnknownStatus(t *testing.T) {
	env := newTestEnv()
	_, _, err := env.weaverService().ListWeaverChallans(context.Background(), ListQuery{Status: "LOST"})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
}
