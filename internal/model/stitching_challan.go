package model

import (
	"encoding/json"
	"time"

	"textile-erp/internal/pipeline"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// StitchingChallan records pieces sent to a stitching unit to become finished product.
// Only the conversion orchestrator moves it to CONVERTED.
type StitchingChallan struct {
	Base
	ChallanNo              string                   `gorm:"type:varchar(50);uniqueIndex;not null" json:"challan_no"`
	ChallanDate            time.Time                `gorm:"type:date;not null;index" json:"challan_date"`
	LedgerID               uuid.UUID                `gorm:"type:char(36);not null;index" json:"ledger_id"`
	Ledger                 *Ledger                  `gorm:"foreignKey:LedgerID" json:"ledger,omitempty"`
	ShortingEntryID        *uuid.UUID               `gorm:"type:char(36);index" json:"shorting_entry_id"`
	ProductName            string                   `gorm:"type:varchar(255);not null" json:"product_name"`
	SKU                    string                   `gorm:"column:sku;type:varchar(100);index" json:"sku"`
	BatchNumbers           datatypes.JSON           `json:"batch_numbers"` // ["B-12", "B-13"]
	QuantitySentPieces     int                      `gorm:"type:int;not null" json:"quantity_sent_pieces"`
	QuantityReceivedPieces int                      `gorm:"type:int;not null;default:0" json:"quantity_received_pieces"`
	StitchingLossPieces    int                      `gorm:"type:int;not null;default:0" json:"stitching_loss_pieces"`
	LossPercentage         decimal.Decimal          `gorm:"type:decimal(7,2);not null;default:0" json:"loss_percentage"`
	RatePerPiece           decimal.Decimal          `gorm:"type:decimal(18,4);not null;default:0" json:"rate_per_piece"`
	AmountPayable          decimal.Decimal          `gorm:"type:decimal(18,2);not null;default:0" json:"amount_payable"`
	GoodPieces             int                      `gorm:"type:int;not null;default:0" json:"good_pieces"`
	BadPieces              int                      `gorm:"type:int;not null;default:0" json:"bad_pieces"`
	WastagePieces          int                      `gorm:"type:int;not null;default:0" json:"wastage_pieces"`
	Status                 pipeline.StitchingStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	TransportName          string                   `gorm:"type:varchar(255)" json:"transport_name"`
	LRNumber               string                   `gorm:"column:lr_number;type:varchar(100)" json:"lr_number"`
	TransportCharge        decimal.Decimal          `gorm:"type:decimal(18,2);not null;default:0" json:"transport_charge"`
	QCRecordedAt           *time.Time               `gorm:"column:qc_recorded_at" json:"qc_recorded_at"`
	QCApprovedAt           *time.Time               `gorm:"column:qc_approved_at" json:"qc_approved_at"`
	ConvertedAt            *time.Time               `json:"converted_at"`
	CancelledAt            *time.Time               `json:"cancelled_at"`
	Remarks                string                   `gorm:"type:text" json:"remarks"`
}

// Batches decodes the batch number list
func (s *StitchingChallan) Batches() ([]string, error) {
	batches := []string{}
	if len(s.BatchNumbers) == 0 {
		return batches, nil
	}
	if err := json.Unmarshal(s.BatchNumbers, &batches); err != nil {
		return nil, err
	}
	return batches, nil
}

// SetBatches encodes the batch number list
func (s *StitchingChallan) SetBatches(batches []string) error {
	if batches == nil {
		batches = []string{}
	}
	raw, err := json.Marshal(batches)
	if err != nil {
		return err
	}
	s.BatchNumbers = datatypes.JSON(raw)
	return nil
}

// ClassifiedPieces is good + bad + wastage
func (s *StitchingChallan) ClassifiedPieces() int {
	return s.GoodPieces + s.BadPieces + s.WastagePieces
}
