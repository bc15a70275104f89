// Package rollup aggregates classified production quantities into the good/bad/wastage
// figures shown on the dashboards. It does no I/O and keeps no state between calls.
package rollup

import (
	"textile-erp/internal/model"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Entry is one classified quantity with its cost
type Entry struct {
	Class    string
	Quantity int
	Cost     decimal.Decimal
}

// Aggregate is the count, quantity and cost of one class
type Aggregate struct {
	Count    int             `json:"count"`
	Quantity int             `json:"quantity"`
	Cost     decimal.Decimal `json:"cost"`
}

func (a *Aggregate) add(e Entry) {
	a.Count++
	a.Quantity += e.Quantity
	a.Cost = a.Cost.Add(e.Cost)
}

// Summary is the result of a rollup
type Summary struct {
	Good        Aggregate       `json:"good"`
	Bad         Aggregate       `json:"bad"`
	Wastage     Aggregate       `json:"wastage"`
	Total       Aggregate       `json:"total"`
	GoodPerc    decimal.Decimal `json:"good_perc"`
	WastagePerc decimal.Decimal `json:"wastage_perc"`
	DefectPerc  decimal.Decimal `json:"defect_perc"`
	LossCost    decimal.Decimal `json:"loss_cost"`
}

// Compute reduces entries into a Summary. The reduction is a plain sum so the result
// does not depend on the order of entries. Entries of any other class only count
// towards the total.
func Compute(entries []Entry) Summary {
	var s Summary
	for _, e := range entries {
		switch e.Class {
		case model.ClassGood:
			s.Good.add(e)
		case model.ClassBad:
			s.Bad.add(e)
		case model.ClassWastage:
			s.Wastage.add(e)
		}
		s.Total.add(e)
	}

	s.GoodPerc = percent(s.Good.Quantity, s.Total.Quantity)
	s.WastagePerc = percent(s.Wastage.Quantity, s.Total.Quantity)
	s.DefectPerc = percent(s.Bad.Quantity+s.Wastage.Quantity, s.Total.Quantity)
	s.LossCost = s.Bad.Cost.Add(s.Wastage.Cost)
	return s
}

func percent(part, total int) decimal.Decimal {
	if total == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(part)).
		Div(decimal.NewFromInt(int64(total))).
		Mul(hundred).
		Round(2)
}

func appendClass(entries []Entry, class string, qty int, price decimal.Decimal) []Entry {
	if qty <= 0 {
		return entries
	}
	return append(entries, Entry{
		Class:    class,
		Quantity: qty,
		Cost:     price.Mul(decimal.NewFromInt(int64(qty))),
	})
}

// FromInventoryItems splits each item into its classified quantities, priced at the item's
// price per piece. Pieces not yet classified are reported as unclassified.
func FromInventoryItems(items []model.InventoryItem) []Entry {
	entries := make([]Entry, 0, len(items)*3)
	for _, it := range items {
		classified := it.GoodQuantity + it.BadQuantity + it.WastageQuantity
		if classified == 0 && it.Classification != model.ClassUnclassified {
			// single-class item without a split
			entries = appendClass(entries, it.Classification, it.Quantity, it.PricePerPiece)
			continue
		}
		entries = appendClass(entries, model.ClassGood, it.GoodQuantity, it.PricePerPiece)
		entries = appendClass(entries, model.ClassBad, it.BadQuantity, it.PricePerPiece)
		entries = appendClass(entries, model.ClassWastage, it.WastageQuantity, it.PricePerPiece)
		entries = appendClass(entries, model.ClassUnclassified, it.Quantity-classified, it.PricePerPiece)
	}
	return entries
}

// FromStitchingChallans uses the QC split of each challan, priced at the stitching rate.
func FromStitchingChallans(challans []model.StitchingChallan) []Entry {
	entries := make([]Entry, 0, len(challans)*3)
	for _, c := range challans {
		entries = appendClass(entries, model.ClassGood, c.GoodPieces, c.RatePerPiece)
		entries = appendClass(entries, model.ClassBad, c.BadPieces, c.RatePerPiece)
		entries = appendClass(entries, model.ClassWastage, c.WastagePieces, c.RatePerPiece)
		entries = appendClass(entries, model.ClassUnclassified, c.QuantityReceivedPieces-c.ClassifiedPieces(), c.RatePerPiece)
	}
	return entries
}

// FromShortingEntries maps damaged pieces to bad and rejected pieces to wastage. Shorting
// carries no price, so costs are zero.
func FromShortingEntries(list []model.ShortingEntry) []Entry {
	entries := make([]Entry, 0, len(list)*3)
	for _, e := range list {
		entries = appendClass(entries, model.ClassGood, e.GoodPieces, decimal.Zero)
		entries = appendClass(entries, model.ClassBad, e.DamagedPieces, decimal.Zero)
		entries = appendClass(entries, model.ClassWastage, e.RejectedPieces, decimal.Zero)
	}
	return entries
}
