package model

import (
	"time"

	"textile-erp/internal/pipeline"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WeaverChallan records grey cloth sent to a weaver and what came back
type WeaverChallan struct {
	Base
	ChallanNo              string                `gorm:"type:varchar(50);uniqueIndex;not null" json:"challan_no"`
	ChallanDate            time.Time             `gorm:"type:date;not null;index" json:"challan_date"`
	PurchaseID             *uuid.UUID            `gorm:"type:char(36);index" json:"purchase_id"`
	Purchase               *Purchase             `gorm:"foreignKey:PurchaseID" json:"purchase,omitempty"`
	WeaverLedgerID         uuid.UUID             `gorm:"type:char(36);not null;index" json:"weaver_ledger_id"`
	WeaverLedger           *Ledger               `gorm:"foreignKey:WeaverLedgerID" json:"weaver_ledger,omitempty"`
	MaterialType           string                `gorm:"type:varchar(20);not null;index" json:"material_type"`
	BatchNumber            string                `gorm:"type:varchar(100);index" json:"batch_number"`
	MSPartyName            string                `gorm:"column:ms_party_name;type:varchar(255)" json:"ms_party_name"`
	TotalGreyMeters        decimal.Decimal       `gorm:"type:decimal(18,3);not null;default:0" json:"total_grey_meters"`
	TakaCount              int                   `gorm:"type:int;not null;default:0" json:"taka_count"`
	MetersPerTaka          decimal.Decimal       `gorm:"type:decimal(18,2);not null;default:0" json:"meters_per_taka"`
	QuantitySentMeters     decimal.Decimal       `gorm:"type:decimal(18,3);not null" json:"quantity_sent_meters"`
	QuantityReceivedMeters decimal.Decimal       `gorm:"type:decimal(18,3);not null;default:0" json:"quantity_received_meters"`
	RatePerMeter           decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0" json:"rate_per_meter"`
	VendorAmount           decimal.Decimal       `gorm:"type:decimal(18,2);not null;default:0" json:"vendor_amount"`
	VendorAmountOverride   decimal.NullDecimal   `gorm:"type:decimal(18,2)" json:"vendor_amount_override"`
	WeavingLossMeters      decimal.Decimal       `gorm:"type:decimal(18,3);not null;default:0" json:"weaving_loss_meters"`
	LossPercentage         decimal.Decimal       `gorm:"type:decimal(7,2);not null;default:0" json:"loss_percentage"`
	TransportName          string                `gorm:"type:varchar(255)" json:"transport_name"`
	LRNumber               string                `gorm:"column:lr_number;type:varchar(100)" json:"lr_number"`
	TransportCharge        decimal.Decimal       `gorm:"type:decimal(18,2);not null;default:0" json:"transport_charge"`
	Status                 pipeline.WeaverStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	ReceivedAt             *time.Time            `json:"received_at"`
	CompletedAt            *time.Time            `json:"completed_at"`
	Remarks                string                `gorm:"type:text" json:"remarks"`
}

// Override returns the manual vendor amount, if any
func (w *WeaverChallan) Override() *decimal.Decimal {
	if !w.VendorAmountOverride.Valid {
		return nil
	}
	v := w.VendorAmountOverride.Decimal
	return &v
}
