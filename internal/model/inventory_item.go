package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Classification of finished goods
const (
	ClassGood         = "good"
	ClassBad          = "bad"
	ClassWastage      = "wastage"
	ClassUnclassified = "unclassified"
)

var classifications = map[string]bool{
	ClassGood:         true,
	ClassBad:          true,
	ClassWastage:      true,
	ClassUnclassified: true,
}

// IsClassification reports whether c is a known classification
func IsClassification(c string) bool {
	return classifications[c]
}

// InventoryItem is a finished-goods record materialised from exactly one converted
// stitching challan. Quantity and SourceChallanID never change after creation.
type InventoryItem struct {
	Base
	InventoryNo     string            `gorm:"type:varchar(50);uniqueIndex;not null" json:"inventory_no"`
	SourceChallanID uuid.UUID         `gorm:"type:char(36);uniqueIndex;not null" json:"source_challan_id"`
	SourceChallan   *StitchingChallan `gorm:"foreignKey:SourceChallanID" json:"source_challan,omitempty"`
	ProductName     string            `gorm:"type:varchar(255);not null" json:"product_name"`
	SKU             string            `gorm:"column:sku;type:varchar(100);index" json:"sku"`
	Quantity        int               `gorm:"type:int;not null" json:"quantity"`
	GoodQuantity    int               `gorm:"type:int;not null;default:0" json:"good_quantity"`
	BadQuantity     int               `gorm:"type:int;not null;default:0" json:"bad_quantity"`
	WastageQuantity int               `gorm:"type:int;not null;default:0" json:"wastage_quantity"`
	Classification  string            `gorm:"type:varchar(20);not null;index" json:"classification"`
	QualityGrade    string            `gorm:"type:varchar(2)" json:"quality_grade"`
	PricePerPiece   decimal.Decimal   `gorm:"type:decimal(18,4);not null;default:0" json:"price_per_piece"`
	TotalCost       decimal.Decimal   `gorm:"type:decimal(18,2);not null;default:0" json:"total_cost"` // quantity * price
	InventoryDate   time.Time         `gorm:"type:date;not null;index" json:"inventory_date"`
	Remarks         string            `gorm:"type:text" json:"remarks"`
}

// ConversionLog links a converted challan to the inventory item it produced
type ConversionLog struct {
	ID              uuid.UUID  `gorm:"type:char(36);primaryKey" json:"id"`
	ChallanID       uuid.UUID  `gorm:"type:char(36);uniqueIndex;not null" json:"challan_id"`
	ChallanNo       string     `gorm:"type:varchar(50);not null" json:"challan_no"`
	InventoryItemID uuid.UUID  `gorm:"type:char(36);not null;index" json:"inventory_item_id"`
	InventoryNo     string     `gorm:"type:varchar(50);not null" json:"inventory_no"`
	Quantity        int        `gorm:"type:int;not null" json:"quantity"`
	ConvertedBy     *uuid.UUID `gorm:"type:char(36);index" json:"converted_by"`
	ConvertedAt     time.Time  `gorm:"not null;index" json:"converted_at"`
}
