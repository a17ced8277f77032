package models

import (
	"refurb-app/controllers/idgen"
	"refurb-app/types"
	"time"

	"gorm.io/gorm"
)

const (
	PurchaseOrderDraft      = "draft"
	PurchaseOrderPending    = "pending"
	PurchaseOrderProcessing = "processing"
	PurchaseOrderConfirmed  = "confirmed"
	PurchaseOrderComplete   = "complete"
	PurchaseOrderCancelled  = "cancelled"
)

var PurchaseOrderStatuses = []string{
	PurchaseOrderDraft,
	PurchaseOrderPending,
	PurchaseOrderProcessing,
	PurchaseOrderConfirmed,
	PurchaseOrderComplete,
	PurchaseOrderCancelled,
}

type PurchaseOrder struct {
	ID         types.SnowflakeID `json:"id" gorm:"primaryKey;autoIncrement:false"`
	PoNumber   string            `json:"po_number" gorm:"size:30;uniqueIndex;not null"`
	SupplierID types.SnowflakeID `json:"supplier_id" gorm:"not null"`
	Supplier   Supplier          `json:"supplier" gorm:"foreignKey:SupplierID"`
	OrderDate  time.Time         `json:"order_date"`
	Status     string            `json:"status" gorm:"size:20;default:'draft'"`
	Notes      string            `json:"notes"`
	CreatedAt  time.Time         `json:"created_at"`
	CreatedBy  types.SnowflakeID `json:"created_by"`
	UpdatedAt  time.Time         `json:"updated_at"`
	UpdatedBy  types.SnowflakeID `json:"updated_by"`

	Planned  []PurchaseOrderPlannedDevice `json:"planned,omitempty" gorm:"foreignKey:PurchaseOrderID;references:ID;constraint:OnDelete:CASCADE"`
	Received []PurchaseOrderDevice        `json:"received,omitempty" gorm:"foreignKey:PurchaseOrderID;references:ID;constraint:OnDelete:CASCADE"`
}

func (p *PurchaseOrder) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID.IsZero() {
		p.ID = types.SnowflakeID(idgen.GenerateID())
	}
	return
}

// PurchaseOrderPlannedDevice is one expected model and configuration on an order and how many units of it.
type PurchaseOrderPlannedDevice struct {
	ID              types.SnowflakeID `json:"id" gorm:"primaryKey;autoIncrement:false"`
	PurchaseOrderID types.SnowflakeID `json:"purchase_order_id" gorm:"index;not null"`
	ManufacturerID  types.SnowflakeID `json:"manufacturer_id" gorm:"not null"`
	Manufacturer    Manufacturer      `json:"manufacturer" gorm:"foreignKey:ManufacturerID"`
	ModelName       string            `json:"model_name" gorm:"size:150;not null"`
	StorageGB       *int              `json:"storage_gb"`
	Color           *string           `json:"color"`
	GradeID         *uint             `json:"grade_id"`
	Grade           *ProductGrade     `json:"grade,omitempty" gorm:"foreignKey:GradeID"`
	Quantity        int               `json:"quantity" gorm:"not null;default:1"`
	DeviceType      string            `json:"device_type" gorm:"size:20;default:'cellular'"`
	CreatedAt       time.Time         `json:"created_at"`
	CreatedBy       types.SnowflakeID `json:"created_by"`
	UpdatedAt       time.Time         `json:"updated_at"`
	UpdatedBy       types.SnowflakeID `json:"updated_by"`
}

func (p *PurchaseOrderPlannedDevice) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID.IsZero() {
		p.ID = types.SnowflakeID(idgen.GenerateID())
	}
	return
}

// PurchaseOrderDevice links a received device to the order it arrived on.
type PurchaseOrderDevice struct {
	ID               types.SnowflakeID  `json:"id" gorm:"primaryKey;autoIncrement:false"`
	PurchaseOrderID  types.SnowflakeID  `json:"purchase_order_id" gorm:"index;not null"`
	CellularDeviceID *types.SnowflakeID `json:"cellular_device_id" gorm:"index"`
	CellularDevice   *CellularDevice    `json:"cellular_device,omitempty" gorm:"foreignKey:CellularDeviceID"`
	CreatedAt        time.Time          `json:"created_at"`
	CreatedBy        types.SnowflakeID  `json:"created_by"`
	UpdatedAt        time.Time          `json:"updated_at"`
	UpdatedBy        types.SnowflakeID  `json:"updated_by"`
}

func (p *PurchaseOrderDevice) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID.IsZero() {
		p.ID = types.SnowflakeID(idgen.GenerateID())
	}
	return
}

func (PurchaseOrderPlannedDevice) TableName() string {
	return "purchase_order_devices_planned"
}
