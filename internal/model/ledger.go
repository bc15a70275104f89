package model

import (
	"gorm.io/gorm"
)

// LedgerType enum constants
const (
	LedgerTypeVendor   = "VENDOR"
	LedgerTypeWeaver   = "WEAVER"
	LedgerTypeStitcher = "STITCHER"
	LedgerTypeCustomer = "CUSTOMER"
)

// Ledger is a business partner: vendor, weaver, stitching unit or customer.
// It is not an accounting general ledger.
type Ledger struct {
	Base
	Name          string         `gorm:"type:varchar(255);not null" json:"name"`
	LedgerType    string         `gorm:"type:varchar(20);not null;index" json:"ledger_type"`
	ContactPerson string         `gorm:"type:varchar(255)" json:"contact_person"`
	Phone         string         `gorm:"type:varchar(20)" json:"phone"` // E.164
	Email         string         `gorm:"type:varchar(255)" json:"email"`
	Address       string         `gorm:"type:text" json:"address"`
	City          string         `gorm:"type:varchar(100)" json:"city"`
	State         string         `gorm:"type:varchar(100)" json:"state"`
	Pincode       string         `gorm:"type:varchar(10)" json:"pincode"`
	GSTNumber     string         `gorm:"column:gst_number;type:varchar(15);index" json:"gst_number"`
	PANNumber     string         `gorm:"column:pan_number;type:varchar(10)" json:"pan_number"`
	IsActive      bool           `gorm:"default:true" json:"is_active"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}
