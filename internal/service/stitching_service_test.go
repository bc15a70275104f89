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

func newStitchingRequest(ledgerID string) CreateStitchingChallanRequest {
	return CreateStitchingChallanRequest{
		ChallanDate:        "2024-06-15",
		LedgerID:           ledgerID,
		ProductName:        "Kurta",
		SKU:                "KRT-M",
		QuantitySentPieces: 100,
		RatePerPiece:       "12.5",
	}
}

func createStitchingChallan(t *testing.T, env *testEnv) *model.StitchingChallan {
	t.Helper()
	stitcher := env.seedLedger(t, model.LedgerTypeStitcher)
	challan, err := env.stitchingService().CreateStitchingChallan(context.Background(), testUser, newStitchingRequest(stitcher.ID.String()))
	if err != nil {
		t.Fatalf("CreateStitchingChallan: %v", err)
	}
	return challan
}

func TestCreateStitchingChallan(t *testing.T) {
	env := newTestEnv()
	challan := createStitchingChallan(t, env)

	if challan.Status != pipeline.StitchingPending {
		t.Errorf("status = %s, want %s", challan.Status, pipeline.StitchingPending)
	}
	if challan.ChallanNo != "SC-20240615-00001" {
		t.Errorf("challan_no = %s", challan.ChallanNo)
	}
	if challan.StitchingLossPieces != 0 || !challan.LossPercentage.IsZero() {
		t.Errorf("loss before anything came back = %d / %s, want 0", challan.StitchingLossPieces, challan.LossPercentage)
	}
}

func TestCreateStitchingChallanRejects(t *testing.T) {
	env := newTestEnv()
	stitcher := env.seedLedger(t, model.LedgerTypeStitcher)
	weaver := env.seedLedger(t, model.LedgerTypeWeaver)

	tests := []struct {
		name   string
		mutate func(*CreateStitchingChallanRequest)
		want   error
	}{
		{"nothing sent", func(r *CreateStitchingChallanRequest) { r.QuantitySentPieces = 0 }, apperror.ErrValidation},
		{"received above sent", func(r *CreateStitchingChallanRequest) { r.QuantityReceivedPieces = 101 }, apperror.ErrInvalidQuantity},
		{"classified above received", func(r *CreateStitchingChallanRequest) {
			r.QuantityReceivedPieces = 10
			r.GoodPieces = 11
		}, apperror.ErrInvalidQuantity},
		{"weaver ledger", func(r *CreateStitchingChallanRequest) { r.LedgerID = weaver.ID.String() }, apperror.ErrValidation},
		{"missing product", func(r *CreateStitchingChallanRequest) { r.ProductName = "" }, apperror.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newStitchingRequest(stitcher.ID.String())
			tt.mutate(&req)
			_, err := env.stitchingService().CreateStitchingChallan(context.Background(), testUser, req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCreateStitchingChallanFromShortingEntry(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	stitcher := env.seedLedger(t, model.LedgerTypeStitcher)
	entry, err := env.shortingService().CreateShortingEntry(ctx, testUser, CreateShortingEntryRequest{
		EntryDate:      "2024-06-12",
		MaterialType:   model.MaterialCotton,
		BatchNumber:    "B-7",
		TotalPieces:    100,
		GoodPieces:     90,
		DamagedPieces:  10,
		RejectedPieces: 0,
	})
	if err != nil {
		t.Fatalf("CreateShortingEntry: %v", err)
	}

	req := newStitchingRequest(stitcher.ID.String())
	req.ShortingEntryID = entry.ID.String()
	req.QuantitySentPieces = 90
	challan, err := env.stitchingService().CreateStitchingChallan(ctx, testUser, req)
	if err != nil {
		t.Fatalf("CreateStitchingChallan: %v", err)
	}
	batches, err := challan.Batches()
	if err != nil || len(batches) != 1 || batches[0] != "B-7" {
		t.Errorf("batches = %v, err = %v; want the shorting batch", batches, err)
	}

	if err := env.shortingService().DeleteShortingEntry(ctx, testUser, entry.ID.String()); !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("delete referenced shorting entry: err = %v, want conflict", err)
	}
}

func TestShortingLinkDoesNotCapQuantities(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	stitcher := env.seedLedger(t, model.LedgerTypeStitcher)
	entry, err := env.shortingService().CreateShortingEntry(ctx, testUser, CreateShortingEntryRequest{
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

	req := newStitchingRequest(stitcher.ID.String())
	req.ShortingEntryID = entry.ID.String()
	req.QuantitySentPieces = 150
	challan, err := env.stitchingService().CreateStitchingChallan(ctx, testUser, req)
	if err != nil {
		t.Fatalf("CreateStitchingChallan: %v", err)
	}

	// the shorting link is lineage only
	if _, err := env.shortingService().UpdateShortingEntry(ctx, testUser, entry.ID.String(), UpdateShortingEntryRequest{
		GoodPieces:    ptr(100),
		DamagedPieces: ptr(95),
	}); err != nil {
		t.Fatalf("UpdateShortingEntry below the pieces sent: %v", err)
	}
	updated, err := env.stitchingService().UpdateStitchingChallan(ctx, testUser, challan.ID.String(), UpdateStitchingChallanRequest{
		QuantitySentPieces: ptr(220),
	})
	if err != nil {
		t.Fatalf("UpdateStitchingChallan above the good pieces: %v", err)
	}
	if updated.QuantitySentPieces != 220 || updated.ShortingEntryID == nil || *updated.ShortingEntryID != entry.ID {
		t.Errorf("sent = %d, shorting link = %v", updated.QuantitySentPieces, updated.ShortingEntryID)
	}
}

func TestStitchingChallanQCFlow(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	svc := env.stitchingService()
	challan := createStitchingChallan(t, env)
	id := challan.ID.String()

	if _, err := svc.ApproveQC(ctx, testUser, id); !errors.Is(err, apperror.ErrInvalidTransition) {
		t.Fatalf("approve from PENDING: err = %v, want invalid transition", err)
	}

	recorded, err := svc.RecordQC(ctx, testUser, id, RecordQCRequest{
		QuantityReceivedPieces: 95,
		GoodPieces:             80,
		BadPieces:              3,
		WastagePieces:          2,
	})
	if err != nil {
		t.Fatalf("RecordQC: %v", err)
	}
	if recorded.Status != pipeline.StitchingQCPending || recorded.QCRecordedAt == nil {
		t.Fatalf("status = %s, qc_recorded_at = %v", recorded.Status, recorded.QCRecordedAt)
	}
	if recorded.StitchingLossPieces != 5 || !recorded.LossPercentage.Equal(decimal.NewFromInt(5)) {
		t.Errorf("loss = %d / %s, want 5 / 5.00", recorded.StitchingLossPieces, recorded.LossPercentage)
	}
	if !recorded.AmountPayable.Equal(decimal.RequireFromString("1187.5")) {
		t.Errorf("amount payable = %s, want 1187.50", recorded.AmountPayable)
	}

	// 85 of 95 pieces classified
	if _, err := svc.ApproveQC(ctx, testUser, id); !errors.Is(err, apperror.ErrInvalidQuantity) {
		t.Fatalf("approve with unclassified pieces: err = %v, want invalid quantity", err)
	}
	stored, _ := env.stitching.FindByID(ctx, challan.ID)
	if stored.Status != pipeline.StitchingQCPending {
		t.Fatalf("status after rejected approval = %s", stored.Status)
	}

	if _, err := svc.UpdateStitchingChallan(ctx, testUser, id, UpdateStitchingChallanRequest{GoodPieces: ptr(90)}); err != nil {
		t.Fatalf("UpdateStitchingChallan: %v", err)
	}
	approved, err := svc.ApproveQC(ctx, testUser, id)
	if err != nil {
		t.Fatalf("ApproveQC: %v", err)
	}
	if approved.Status != pipeline.StitchingQCDone || approved.QCApprovedAt == nil {
		t.Fatalf("status = %s, qc_approved_at = %v", approved.Status, approved.QCApprovedAt)
	}

	if _, err := svc.UpdateStitchingChallan(ctx, testUser, id, UpdateStitchingChallanRequest{GoodPieces: ptr(89), BadPieces: ptr(4)}); !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("quantity update after QC approval: err = %v, want conflict", err)
	}
	if err := svc.DeleteStitchingChallan(ctx, testUser, id); !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("delete after QC: err = %v, want conflict", err)
	}

	if got := len(env.events.ofType(events.TypeStatusChanged)); got != 2 {
		t.Errorf("status events = %d, want 2", got)
	}
}

func TestStitchingChallanChangeStatus(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		status  string
		want    error
		wantNow pipeline.StitchingStatus
	}{
		{"convert goes through its own action", "CONVERTED", apperror.ErrInvalidTransition, pipeline.StitchingPending},
		{"no way back", "PENDING", apperror.ErrInvalidTransition, pipeline.StitchingPending},
		{"skip QC", "QC_DONE", apperror.ErrInvalidTransition, pipeline.StitchingPending},
		{"unknown", "SHIPPED", apperror.ErrValidation, pipeline.StitchingPending},
		{"start QC", "QC_PENDING", nil, pipeline.StitchingQCPending},
		{"cancel", "CANCELLED", nil, pipeline.StitchingCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			challan := createStitchingChallan(t, env)
			_, err := env.stitchingService().ChangeStatus(ctx, testUser, challan.ID.String(), ChangeStatusRequest{Status: tt.status})
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			stored, _ := env.stitching.FindByID(ctx, challan.ID)
			if stored.Status != tt.wantNow {
				t.Errorf("status = %s, want %s", stored.Status, tt.wantNow)
			}
		})
	}
}

func TestCancelledStitchingChallanIsFinal(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	svc := env.stitchingService()
	challan := createStitchingChallan(t, env)
	id := challan.ID.String()

	cancelled, err := svc.CancelStitchingChallan(ctx, testUser, id)
	if err != nil {
		t.Fatalf("CancelStitchingChallan: %v", err)
	}
	if cancelled.CancelledAt == nil || !cancelled.LossPercentage.IsZero() {
		t.Errorf("cancelled_at = %v, loss = %s", cancelled.CancelledAt, cancelled.LossPercentage)
	}

	if _, err := svc.CancelStitchingChallan(ctx, testUser, id); !errors.Is(err, apperror.ErrInvalidTransition) {
		t.Errorf("second cancel: err = %v, want invalid transition", err)
	}
	if _, err := svc.RecordQC(ctx, testUser, id, RecordQCRequest{QuantityReceivedPieces: 10, GoodPieces: 10}); !errors.Is(err, apperror.ErrInvalidTransition) {
		t.Errorf("record QC on cancelled challan: err = %v, want invalid transition", err)
	}
	if _, err := svc.UpdateStitchingChallan(ctx, testUser, id, UpdateStitchingChallanRequest{QuantitySentPieces: ptr(120)}); !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("quantity update on cancelled challan: err = %v, want conflict", err)
	}
}

func TestDeletePendingStitchingChallan(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	challan := createStitchingChallan(t, env)

	if err := env.stitchingService().DeleteStitchingChallan(ctx, testUser, challan.ID.String()); err != nil {
		t.Fatalf("DeleteStitchingChallan: %v", err)
	}
	if _, err := env.stitchingService().GetStitchingChallan(ctx, challan.ID.String()); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("get after delete: err = %v, want not found", err)
	}
	if got := env.audit.countAction(model.ActionDeleteStitchingChallan); got != 1 {
		t.Errorf("delete audit entries = %d, want 1", got)
	}
}
