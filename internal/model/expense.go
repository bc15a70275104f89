package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Expense is a cost entry against a ledger, optionally tied to a challan
type Expense struct {
	Base
	ExpenseNo   string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"expense_no"`
	ExpenseDate time.Time       `gorm:"type:date;not null;index" json:"expense_date"`
	LedgerID    uuid.UUID       `gorm:"type:char(36);not null;index" json:"ledger_id"`
	Ledger      *Ledger         `gorm:"foreignKey:LedgerID" json:"ledger,omitempty"`
	ChallanType string          `gorm:"type:varchar(20)" json:"challan_type"` // WEAVER, STITCHING or empty
	ChallanID   *uuid.UUID      `gorm:"type:char(36);index" json:"challan_id"`
	Category    string          `gorm:"type:varchar(100);index" json:"category"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	PaymentMode string          `gorm:"type:varchar(20);not null" json:"payment_mode"`
	Purpose     string          `gorm:"type:text" json:"purpose"`
}

// PaymentVoucher records money paid out to a ledger
type PaymentVoucher struct {
	Base
	VoucherNo       string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"voucher_no"`
	VoucherDate     time.Time       `gorm:"type:date;not null;index" json:"voucher_date"`
	LedgerID        uuid.UUID       `gorm:"type:char(36);not null;index" json:"ledger_id"`
	Ledger          *Ledger         `gorm:"foreignKey:LedgerID" json:"ledger,omitempty"`
	ChallanType     string          `gorm:"type:varchar(20)" json:"challan_type"`
	ChallanID       *uuid.UUID      `gorm:"type:char(36);index" json:"challan_id"`
	Amount          decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	PaymentMode     string          `gorm:"type:varchar(20);not null" json:"payment_mode"`
	ReferenceNumber string          `gorm:"type:varchar(100)" json:"reference_number"` // cheque / UTR number
	Purpose         string          `gorm:"type:text" json:"purpose"`
}
