package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Purchase is a raw-material acquisition from a vendor ledger
type Purchase struct {
	Base
	PurchaseNo     string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"purchase_no"`
	PurchaseDate   time.Time       `gorm:"type:date;not null;index" json:"purchase_date"`
	VendorLedgerID uuid.UUID       `gorm:"type:char(36);not null;index" json:"vendor_ledger_id"`
	VendorLedger   *Ledger         `gorm:"foreignKey:VendorLedgerID" json:"vendor_ledger,omitempty"`
	MaterialType   string          `gorm:"type:varchar(20);not null;index" json:"material_type"`
	TotalMeters    decimal.Decimal `gorm:"type:decimal(18,3);not null" json:"total_meters"`
	RatePerMeter   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"rate_per_meter"`
	GSTPercent     decimal.Decimal `gorm:"column:gst_percent;type:decimal(5,2);not null;default:0" json:"gst_percent"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"total_amount"` // meters * rate + GST
	InvoiceNumber  string          `gorm:"type:varchar(100)" json:"invoice_number"`
	Remarks        string          `gorm:"type:text" json:"remarks"`
}
