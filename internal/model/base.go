package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base carries the identity and timestamps shared by every table. IDs are stored as
// char(36) so the schema migrates on both postgres and MySQL.
type Base struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns the id when the caller did not
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// GetID exposes the primary key to generic repository code
func (b Base) GetID() uuid.UUID {
	return b.ID
}

// Material types accepted on purchases, weaver challans and shorting entries
const (
	MaterialCotton    = "Cotton"
	MaterialSilk      = "Silk"
	MaterialWool      = "Wool"
	MaterialPolyester = "Polyester"
	MaterialLinen     = "Linen"
)

var materialTypes = map[string]bool{
	MaterialCotton:    true,
	MaterialSilk:      true,
	MaterialWool:      true,
	MaterialPolyester: true,
	MaterialLinen:     true,
}

// IsMaterialType reports whether m is one of the supported materials
func IsMaterialType(m string) bool {
	return materialTypes[m]
}

// Payment modes for expenses and vouchers
const (
	PaymentModeCash   = "CASH"
	PaymentModeBank   = "BANK"
	PaymentModeUPI    = "UPI"
	PaymentModeCheque = "CHEQUE"
)

// Challan kinds an expense or voucher can point at
const (
	ChallanTypeWeaver    = "WEAVER"
	ChallanTypeStitching = "STITCHING"
)

// DateLayout is the wire format of business dates
const DateLayout = "2006-01-02"
