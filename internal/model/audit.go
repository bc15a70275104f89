package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreateLedger   = "CREATE_LEDGER"
	ActionUpdateLedger   = "UPDATE_LEDGER"
	ActionDeleteLedger   = "DELETE_LEDGER"
	ActionCreatePurchase = "CREATE_PURCHASE"
	ActionUpdatePurchase = "UPDATE_PURCHASE"
	ActionDeletePurchase = "DELETE_PURCHASE"

	ActionCreateWeaverChallan = "CREATE_WEAVER_CHALLAN"
	ActionUpdateWeaverChallan = "UPDATE_WEAVER_CHALLAN"
	ActionDeleteWeaverChallan = "DELETE_WEAVER_CHALLAN"
	ActionWeaverStatus        = "WEAVER_CHALLAN_STATUS"

	ActionCreateShortingEntry = "CREATE_SHORTING_ENTRY"
	ActionUpdateShortingEntry = "UPDATE_SHORTING_ENTRY"
	ActionDeleteShortingEntry = "DELETE_SHORTING_ENTRY"

	ActionCreateStitchingChallan = "CREATE_STITCHING_CHALLAN"
	ActionUpdateStitchingChallan = "UPDATE_STITCHING_CHALLAN"
	ActionDeleteStitchingChallan = "DELETE_STITCHING_CHALLAN"
	ActionStitchingStatus        = "STITCHING_CHALLAN_STATUS"
	ActionConvertToInventory     = "CONVERT_TO_INVENTORY"

	ActionUpdateInventoryItem = "UPDATE_INVENTORY_ITEM"

	ActionCreateExpense        = "CREATE_EXPENSE"
	ActionUpdateExpense        = "UPDATE_EXPENSE"
	ActionDeleteExpense        = "DELETE_EXPENSE"
	ActionCreatePaymentVoucher = "CREATE_PAYMENT_VOUCHER"
	ActionUpdatePaymentVoucher = "UPDATE_PAYMENT_VOUCHER"
	ActionDeletePaymentVoucher = "DELETE_PAYMENT_VOUCHER"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:char(36);primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:char(36);index" json:"user_id"` // Nullable for automated jobs
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // Human readable number/name
	Details    string     `gorm:"type:text" json:"details"`                       // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
