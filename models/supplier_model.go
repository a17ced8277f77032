package models

import (
	"refurb-app/controllers/idgen"
	"refurb-app/types"
	"time"

	"gorm.io/gorm"
)

type Supplier struct {
	ID           types.SnowflakeID `json:"id" gorm:"primaryKey;autoIncrement:false"`
	SupplierCode string            `json:"supplier_code" gorm:"size:30;uniqueIndex;not null"`
	Name         string            `json:"name" gorm:"size:150;not null"`
	Email        string            `json:"email"`
	Phone        string            `json:"phone"`
	AddressLine1 string            `json:"address_line1"`
	City         string            `json:"city"`
	Country      string            `json:"country"`
	VatNumber    string            `json:"vat_number"`
	CreatedAt    time.Time         `json:"created_at"`
	CreatedBy    types.SnowflakeID `json:"created_by"`
	UpdatedAt    time.Time         `json:"updated_at"`
	UpdatedBy    types.SnowflakeID `json:"updated_by"`
}

func (s *Supplier) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID.IsZero() {
		s.ID = types.SnowflakeID(idgen.GenerateID())
	}
	return
}
