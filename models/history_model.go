package models

import (
	"refurb-app/controllers/idgen"
	"refurb-app/types"
	"time"

	"gorm.io/gorm"
)

const (
	TransactionPurchase = "purchase"
	TransactionSale     = "sale"
	TransactionReturnIn = "return_in"
	TransactionQC       = "qc"
	TransactionAdjust   = "adjustment"
)

// CellularDeviceTransaction is the status history of a single device.
type CellularDeviceTransaction struct {
	ID               types.SnowflakeID `json:"id" gorm:"primaryKey;autoIncrement:false"`
	CellularDeviceID types.SnowflakeID `json:"cellular_device_id" gorm:"index;not null"`
	TransactionType  string            `json:"transaction_type" gorm:"size:20;not null"`
	RefID            types.SnowflakeID `json:"ref_id"`
	PrevStatus       *string           `json:"prev_status"`
	NewStatus        string            `json:"new_status" gorm:"size:20"`
	Notes            string            `json:"notes"`
	CreatedAt        time.Time         `json:"created_at"`
	CreatedBy        types.SnowflakeID `json:"created_by"`
}

func (h *CellularDeviceTransaction) BeforeCreate(tx *gorm.DB) (err error) {
	if h.ID.IsZero() {
		h.ID = types.SnowflakeID(idgen.GenerateID())
	}
	return
}
