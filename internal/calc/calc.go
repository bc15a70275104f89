// Package calc holds the unit conversions and loss/quality formulas used by every
// production stage. Values persisted on a record and values shown on screen both come from
// here.
package calc

import (
	"textile-erp/internal/apperror"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Band is the display bucket of a shorting quality rate
type Band string

const (
	BandGood       Band = "GOOD"
	BandAcceptable Band = "ACCEPTABLE"
	BandPoor       Band = "POOR"
)

// Label returns the badge text for the band
func (b Band) Label() string {
	switch b {
	case BandGood:
		return "≥90% good"
	case BandAcceptable:
		return "70–89% acceptable"
	default:
		return "<70% poor"
	}
}

var (
	goodThreshold       = decimal.NewFromInt(90)
	acceptableThreshold = decimal.NewFromInt(70)
)

// LossPercentage is (sent-received)/sent*100 rounded to two places. A zero sent quantity
// yields 0. received > sent is a conservation violation and is reported, never clamped.
func LossPercentage(sent, received decimal.Decimal) (decimal.Decimal, error) {
	if sent.IsNegative() || received.IsNegative() {
		return decimal.Zero, apperror.InvalidQuantity("quantities cannot be negative (sent %s, received %s)", sent, received)
	}
	if received.GreaterThan(sent) {
		return decimal.Zero, apperror.InvalidQuantity("received quantity %s exceeds sent quantity %s", received, sent)
	}
	if sent.IsZero() {
		return decimal.Zero, nil
	}

	pct := sent.Sub(received).Div(sent).Mul(hundred)
	if pct.GreaterThan(hundred) {
		pct = hundred
	}
	if pct.IsNegative() {
		pct = decimal.Zero
	}
	return pct.Round(2), nil
}

// LossPercentagePieces is LossPercentage for piece counts.
func LossPercentagePieces(sent, received int) (decimal.Decimal, error) {
	return LossPercentage(decimal.NewFromInt(int64(sent)), decimal.NewFromInt(int64(received)))
}

// Loss returns sent-received, rejecting received > sent.
func Loss(sent, received decimal.Decimal) (decimal.Decimal, error) {
	if _, err := LossPercentage(sent, received); err != nil {
		return decimal.Zero, err
	}
	return sent.Sub(received), nil
}

// LossPieces returns sent-received for piece counts.
func LossPieces(sent, received int) (int, error) {
	if _, err := LossPercentagePieces(sent, received); err != nil {
		return 0, err
	}
	return sent - received, nil
}

// QualityRate is good/total*100 with one decimal. The historical display convention is the
// bare string "0" when nothing was counted.
func QualityRate(total, good int) string {
	if total <= 0 {
		return "0"
	}
	return qualityPercent(total, good).StringFixed(1)
}

func qualityPercent(total, good int) decimal.Decimal {
	return decimal.NewFromInt(int64(good)).Div(decimal.NewFromInt(int64(total))).Mul(hundred)
}

// QualityBand classifies the quality rate into the dashboard bands.
func QualityBand(total, good int) Band {
	if total <= 0 {
		return BandPoor
	}
	pct := qualityPercent(total, good)
	switch {
	case pct.GreaterThanOrEqual(goodThreshold):
		return BandGood
	case pct.GreaterThanOrEqual(acceptableThreshold):
		return BandAcceptable
	default:
		return BandPoor
	}
}

// QualityGrade maps the quality band onto the A/B/C grade stored on inventory items.
func QualityGrade(total, good int) string {
	switch QualityBand(total, good) {
	case BandGood:
		return "A"
	case BandAcceptable:
		return "B"
	default:
		return "C"
	}
}

// DeriveAmount is quantity*rate. Negative inputs yield 0.
func DeriveAmount(quantity, rate decimal.Decimal) decimal.Decimal {
	if quantity.IsNegative() || rate.IsNegative() {
		return decimal.Zero
	}
	return quantity.Mul(rate)
}

// DeriveAmountPieces is DeriveAmount for a piece count.
func DeriveAmountPieces(pieces int, rate decimal.Decimal) decimal.Decimal {
	return DeriveAmount(decimal.NewFromInt(int64(pieces)), rate)
}

// PurchaseTotal is meters*rate plus GST.
func PurchaseTotal(meters, rate, gstPercent decimal.Decimal) decimal.Decimal {
	base := DeriveAmount(meters, rate)
	if gstPercent.IsPositive() {
		base = base.Add(base.Mul(gstPercent).Div(hundred))
	}
	return base.Round(2)
}

// VendorAmount is received*rate unless the challan carries a manual override.
func VendorAmount(received, rate decimal.Decimal, override *decimal.Decimal) decimal.Decimal {
	if override != nil {
		return override.Round(2)
	}
	return DeriveAmount(received, rate).Round(2)
}

// MetersToPieces returns how many whole pieces of metersPerPiece can be cut from meters.
func MetersToPieces(meters, metersPerPiece decimal.Decimal) (int, error) {
	if !metersPerPiece.IsPositive() {
		return 0, apperror.InvalidQuantity("meters per piece must be greater than 0")
	}
	if meters.IsNegative() {
		return 0, apperror.InvalidQuantity("meters cannot be negative")
	}
	return int(meters.Div(metersPerPiece).Floor().IntPart()), nil
}

// PiecesToMeters returns the cloth needed for pieces.
func PiecesToMeters(pieces int, metersPerPiece decimal.Decimal) decimal.Decimal {
	return DeriveAmountPieces(pieces, metersPerPiece)
}

// MetersPerTaka is the average roll length; 0 when no takas were counted.
func MetersPerTaka(totalMeters decimal.Decimal, takas int) decimal.Decimal {
	if takas <= 0 {
		return decimal.Zero
	}
	return totalMeters.Div(decimal.NewFromInt(int64(takas))).Round(2)
}
