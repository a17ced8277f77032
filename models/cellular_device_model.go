package models

import (
	"refurb-app/controllers/idgen"
	"refurb-app/types"
	"time"

	"gorm.io/gorm"
)

// DeviceStatuses lists the statuses a device may be moved to by hand.
var DeviceStatuses = []string{
	DeviceInStock,
	DeviceSold,
	DeviceReturned,
	DeviceRepair,
	DeviceQCRequired,
	DeviceQuarantine,
	DeviceQCFailed,
	DeviceAllocated,
}

const (
	DeviceInStock    = "in_stock"
	DeviceSold       = "sold"
	DeviceReturned   = "returned"
	DeviceQuarantine = "quarantine"
	DeviceRepair     = "repair"
	DeviceQCRequired = "qc_required"
	DeviceQCFailed   = "qc_failed"
	DeviceAllocated  = "allocated"
)

type CellularDevice struct {
	ID         types.SnowflakeID  `json:"id" gorm:"primaryKey;autoIncrement:false"`
	IMEI       string             `json:"imei" gorm:"size:20;uniqueIndex;not null"`
	TacID      types.SnowflakeID  `json:"tac_id" gorm:"not null"`
	Tac        *TacCode           `json:"tac,omitempty" gorm:"foreignKey:TacID"`
	StorageGB  *int               `json:"storage_gb"`
	Color      *string            `json:"color"`
	GradeID    *uint              `json:"grade_id"`
	Grade      *ProductGrade      `json:"grade,omitempty" gorm:"foreignKey:GradeID"`
	SupplierID *types.SnowflakeID `json:"supplier_id"`
	Supplier   *Supplier          `json:"supplier,omitempty" gorm:"foreignKey:SupplierID"`
	Status     string             `json:"status" gorm:"size:20;default:'in_stock';index"`
	CreatedAt  time.Time          `json:"created_at"`
	CreatedBy  types.SnowflakeID  `json:"created_by"`
	UpdatedAt  time.Time          `json:"updated_at"`
	UpdatedBy  types.SnowflakeID  `json:"updated_by"`
}

func (c *CellularDevice) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID.IsZero() {
		c.ID = types.SnowflakeID(idgen.GenerateID())
	}
	return
}
