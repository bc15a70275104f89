package rollup

import (
	"math/rand"
	"testing"

	"textile-erp/internal/model"

	"github.com/shopspring/decimal"
)

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func TestComputeExample(t *testing.T) {
	got := Compute([]Entry{
		{Class: model.ClassGood, Quantity: 80, Cost: dec(800)},
		{Class: model.ClassBad, Quantity: 10, Cost: dec(100)},
		{Class: model.ClassWastage, Quantity: 10, Cost: dec(100)},
	})

	if got.Total.Quantity != 100 {
		t.Errorf("Total.Quantity = %d, want 100", got.Total.Quantity)
	}
	if got.Total.Count != 3 {
		t.Errorf("Total.Count = %d, want 3", got.Total.Count)
	}
	checks := []struct {
		name string
		got  decimal.Decimal
		want int64
	}{
		{"GoodPerc", got.GoodPerc, 80},
		{"WastagePerc", got.WastagePerc, 10},
		{"DefectPerc", got.DefectPerc, 20},
		{"LossCost", got.LossCost, 200},
		{"Total.Cost", got.Total.Cost, 1000},
	}
	for _, c := range checks {
		if !c.got.Equal(dec(c.want)) {
			t.Errorf("%s = %s, want %d", c.name, c.got, c.want)
		}
	}
}

func TestComputeEmpty(t *testing.T) {
	got := Compute(nil)
	if !got.GoodPerc.IsZero() || !got.WastagePerc.IsZero() || !got.DefectPerc.IsZero() {
		t.Fatalf("percentages of an empty rollup should be 0, got %+v", got)
	}
	if !got.LossCost.IsZero() {
		t.Fatalf("LossCost = %s, want 0", got.LossCost)
	}
}

func TestComputeUnclassifiedCountsOnlyInTotal(t *testing.T) {
	got := Compute([]Entry{
		{Class: model.ClassGood, Quantity: 50, Cost: dec(500)},
		{Class: model.ClassUnclassified, Quantity: 50, Cost: dec(500)},
	})
	if got.Total.Quantity != 100 {
		t.Fatalf("Total.Quantity = %d, want 100", got.Total.Quantity)
	}
	if !got.GoodPerc.Equal(dec(50)) {
		t.Errorf("GoodPerc = %s, want 50", got.GoodPerc)
	}
	if !got.DefectPerc.IsZero() {
		t.Errorf("DefectPerc = %s, want 0", got.DefectPerc)
	}
}

func TestComputeOrderIndependent(t *testing.T) {
	classes := []string{model.ClassGood, model.ClassBad, model.ClassWastage, model.ClassUnclassified}
	rng := rand.New(rand.NewSource(7))

	entries := make([]Entry, 0, 40)
	for i := 0; i < 40; i++ {
		entries = append(entries, Entry{
			Class:    classes[rng.Intn(len(classes))],
			Quantity: rng.Intn(500),
			Cost:     decimal.New(int64(rng.Intn(100000)), -2),
		})
	}
	want := Compute(entries)

	for round := 0; round < 25; round++ {
		shuffled := append([]Entry(nil), entries...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		got := Compute(shuffled)
		if !got.GoodPerc.Equal(want.GoodPerc) || !got.WastagePerc.Equal(want.WastagePerc) || !got.DefectPerc.Equal(want.DefectPerc) {
			t.Fatalf("round %d: percentages changed with order: got %s/%s/%s want %s/%s/%s", round,
				got.GoodPerc, got.WastagePerc, got.DefectPerc, want.GoodPerc, want.WastagePerc, want.DefectPerc)
		}
		if !got.LossCost.Equal(want.LossCost) || got.Total.Quantity != want.Total.Quantity || !got.Total.Cost.Equal(want.Total.Cost) {
			t.Fatalf("round %d: totals changed with order", round)
		}
	}
}

func TestFromInventoryItems(t *testing.T) {
	items := []model.InventoryItem{
		{Quantity: 100, GoodQuantity: 80, BadQuantity: 10, WastageQuantity: 10, Classification: model.ClassUnclassified, PricePerPiece: dec(10)},
		{Quantity: 20, Classification: model.ClassGood, PricePerPiece: dec(5)},
		{Quantity: 10, GoodQuantity: 4, Classification: model.ClassUnclassified, PricePerPiece: dec(1)},
	}

	got := Compute(FromInventoryItems(items))
	if got.Good.Quantity != 104 {
		t.Errorf("Good.Quantity = %d, want 104", got.Good.Quantity)
	}
	if got.Total.Quantity != 130 {
		t.Errorf("Total.Quantity = %d, want 130", got.Total.Quantity)
	}
	if !got.LossCost.Equal(dec(200)) {
		t.Errorf("LossCost = %s, want 200", got.LossCost)
	}
}

func TestFromStitchingChallans(t *testing.T) {
	challans := []model.StitchingChallan{
		{QuantityReceivedPieces: 95, GoodPieces: 90, BadPieces: 3, WastagePieces: 2, RatePerPiece: dec(12)},
	}
	got := Compute(FromStitchingChallans(challans))
	if got.Total.Quantity != 95 {
		t.Fatalf("Total.Quantity = %d, want 95", got.Total.Quantity)
	}
	if !got.LossCost.Equal(dec(60)) {
		t.Errorf("LossCost = %s, want 60", got.LossCost)
	}
}

func TestFromShortingEntries(t *testing.T) {
	entries := []model.ShortingEntry{
		{TotalPieces: 200, GoodPieces: 180, DamagedPieces: 15, RejectedPieces: 5},
	}
	got := Compute(FromShortingEntries(entries))
	if !got.GoodPerc.Equal(dec(90)) {
		t.Errorf("GoodPerc = %s, want 90", got.GoodPerc)
	}
	if !got.DefectPerc.Equal(dec(10)) {
		t.Errorf("DefectPerc = %s, want 10", got.DefectPerc)
	}
	if !got.WastagePerc.Equal(decimal.RequireFromString("2.5")) {
		t.Errorf("WastagePerc = %s, want 2.5", got.WastagePerc)
	}
}
