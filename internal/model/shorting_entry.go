package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// ShortingEntry grades the pieces cut from woven cloth into good, damaged and rejected.
// GoodPieces + DamagedPieces + RejectedPieces always equals TotalPieces. ExpectedPieces is the
// yield the linked weaver challan's cloth gives at MetersPerPiece.
type ShortingEntry struct {
	Base
	EntryNo         string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"entry_no"`
	EntryDate       time.Time       `gorm:"type:date;not null;index" json:"entry_date"`
	WeaverChallanID *uuid.UUID      `gorm:"type:char(36);index" json:"weaver_challan_id"`
	WeaverChallan   *WeaverChallan  `gorm:"foreignKey:WeaverChallanID" json:"weaver_challan,omitempty"`
	PurchaseID      *uuid.UUID      `gorm:"type:char(36);index" json:"purchase_id"`
	Purchase        *Purchase       `gorm:"foreignKey:PurchaseID" json:"purchase,omitempty"`
	MaterialType    string          `gorm:"type:varchar(20);not null;index" json:"material_type"`
	BatchNumber     string          `gorm:"type:varchar(100);index" json:"batch_number"`
	TotalPieces     int             `gorm:"type:int;not null" json:"total_pieces"`
	GoodPieces      int             `gorm:"type:int;not null;default:0" json:"good_pieces"`
	DamagedPieces   int             `gorm:"type:int;not null;default:0" json:"damaged_pieces"`
	RejectedPieces  int             `gorm:"type:int;not null;default:0" json:"rejected_pieces"`
	MetersPerPiece  decimal.Decimal `gorm:"type:decimal(10,3);not null;default:0" json:"meters_per_piece"`
	ExpectedPieces  int             `gorm:"type:int;not null;default:0" json:"expected_pieces"`
	SizeBreakdown   datatypes.JSON  `json:"size_breakdown"` // {"S": 40, "M": 80, ...}
	Remarks         string          `gorm:"type:text" json:"remarks"`
}

// Sizes decodes the size breakdown column
func (s *ShortingEntry) Sizes() (map[string]int, error) {
	sizes := map[string]int{}
	if len(s.SizeBreakdown) == 0 {
		return sizes, nil
	}
	if err := json.Unmarshal(s.SizeBreakdown, &sizes); err != nil {
		return nil, err
	}
	return sizes, nil
}

// SetSizes encodes the size breakdown column
func (s *ShortingEntry) SetSizes(sizes map[string]int) error {
	if sizes == nil {
		sizes = map[string]int{}
	}
	raw, err := json.Marshal(sizes)
	if err != nil {
		return err
	}
	s.SizeBreakdown = datatypes.JSON(raw)
	return nil
}

// Balanced reports whether the buckets add up to the total
func (s *ShortingEntry) Balanced() bool {
	return s.GoodPieces+s.DamagedPieces+s.RejectedPieces == s.TotalPieces
}
