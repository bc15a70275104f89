package calc

import (
	"errors"
	"testing"

	"textile-erp/internal/apperror"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestLossPercentage(t *testing.T) {
	tests := []struct {
		name     string
		sent     string
		received string
		want     string
		wantErr  error
	}{
		{"weaver example", "100", "95", "5", nil},
		{"nothing received", "100", "0", "100", nil},
		{"nothing lost", "40", "40", "0", nil},
		{"zero sent", "0", "0", "0", nil},
		{"fractional", "3", "2", "33.33", nil},
		{"received exceeds sent", "100", "101", "0", apperror.ErrInvalidQuantity},
		{"received with zero sent", "0", "1", "0", apperror.ErrInvalidQuantity},
		{"negative", "-5", "0", "0", apperror.ErrInvalidQuantity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LossPercentage(d(tt.sent), d(tt.received))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("LossPercentage() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !got.Equal(d(tt.want)) {
				t.Errorf("LossPercentage(%s, %s) = %s, want %s", tt.sent, tt.received, got, tt.want)
			}
		})
	}
}

func TestLossPercentageAlwaysInRange(t *testing.T) {
	for sent := 0; sent <= 60; sent++ {
		for received := 0; received <= sent; received++ {
			got, err := LossPercentagePieces(sent, received)
			if err != nil {
				t.Fatalf("LossPercentagePieces(%d, %d) unexpected error: %v", sent, received, err)
			}
			if got.IsNegative() || got.GreaterThan(hundred) {
				t.Fatalf("LossPercentagePieces(%d, %d) = %s, outside [0,100]", sent, received, got)
			}
			if sent == 0 {
				if !got.IsZero() {
					t.Fatalf("LossPercentagePieces(0, 0) = %s, want 0", got)
				}
				continue
			}
			want := decimal.NewFromInt(int64(sent - received)).
				Div(decimal.NewFromInt(int64(sent))).Mul(hundred).Round(2)
			if !got.Equal(want) {
				t.Fatalf("LossPercentagePieces(%d, %d) = %s, want %s", sent, received, got, want)
			}
		}
	}
}

func TestQualityRateAndBand(t *testing.T) {
	tests := []struct {
		total, good int
		rate        string
		band        Band
		grade       string
	}{
		{200, 180, "90.0", BandGood, "A"},
		{200, 179, "89.5", BandAcceptable, "B"},
		{10, 7, "70.0", BandAcceptable, "B"},
		{3, 2, "66.7", BandPoor, "C"},
		{0, 0, "0", BandPoor, "C"},
	}

	for _, tt := range tests {
		if got := QualityRate(tt.total, tt.good); got != tt.rate {
			t.Errorf("QualityRate(%d, %d) = %q, want %q", tt.total, tt.good, got, tt.rate)
		}
		if got := QualityBand(tt.total, tt.good); got != tt.band {
			t.Errorf("QualityBand(%d, %d) = %s, want %s", tt.total, tt.good, got, tt.band)
		}
		if got := QualityGrade(tt.total, tt.good); got != tt.grade {
			t.Errorf("QualityGrade(%d, %d) = %s, want %s", tt.total, tt.good, got, tt.grade)
		}
	}

	if BandGood.Label() != "≥90% good" {
		t.Errorf("unexpected label %q", BandGood.Label())
	}
}

func TestAmounts(t *testing.T) {
	if got := VendorAmount(d("95"), d("50"), nil); !got.Equal(d("4750")) {
		t.Errorf("VendorAmount = %s, want 4750", got)
	}
	override := d("4500")
	if got := VendorAmount(d("95"), d("50"), &override); !got.Equal(override) {
		t.Errorf("VendorAmount with override = %s, want 4500", got)
	}
	if got := DeriveAmount(d("0"), d("50")); !got.IsZero() {
		t.Errorf("DeriveAmount with zero quantity = %s", got)
	}
	if got := DeriveAmount(d("-1"), d("50")); !got.IsZero() {
		t.Errorf("DeriveAmount with negative quantity = %s, want 0", got)
	}
	if got := PurchaseTotal(d("1000"), d("12.5"), d("5")); !got.Equal(d("13125")) {
		t.Errorf("PurchaseTotal = %s, want 13125", got)
	}
}

func TestUnitConversions(t *testing.T) {
	pieces, err := MetersToPieces(d("100"), d("2.5"))
	if err != nil || pieces != 40 {
		t.Errorf("MetersToPieces(100, 2.5) = %d, %v; want 40", pieces, err)
	}
	pieces, err = MetersToPieces(d("10"), d("3"))
	if err != nil || pieces != 3 {
		t.Errorf("MetersToPieces(10, 3) = %d, %v; want 3", pieces, err)
	}
	if _, err := MetersToPieces(d("10"), d("0")); !errors.Is(err, apperror.ErrInvalidQuantity) {
		t.Errorf("MetersToPieces with zero piece length should fail, got %v", err)
	}
	if got := PiecesToMeters(40, d("2.5")); !got.Equal(d("100")) {
		t.Errorf("PiecesToMeters = %s, want 100", got)
	}
	if got := MetersPerTaka(d("1200"), 12); !got.Equal(d("100")) {
		t.Errorf("MetersPerTaka = %s, want 100", got)
	}
	if got := MetersPerTaka(d("1200"), 0); !got.IsZero() {
		t.Errorf("MetersPerTaka with no takas = %s, want 0", got)
	}
}
