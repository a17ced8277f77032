package models

import (
	"refurb-app/controllers/idgen"
	"refurb-app/types"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Manufacturer struct {
	ID        types.SnowflakeID `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Name      string            `json:"name" gorm:"size:100;uniqueIndex;not null"`
	CreatedAt time.Time         `json:"created_at"`
}

func (m *Manufacturer) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID.IsZero() {
		m.ID = types.SnowflakeID(idgen.GenerateID())
	}
	return
}

// TacCode maps the 8 character type allocation code at the front of an IMEI to a catalogue model.
type TacCode struct {
	ID              types.SnowflakeID           `json:"id" gorm:"primaryKey;autoIncrement:false"`
	TacCode         string                      `json:"tac_code" gorm:"size:8;uniqueIndex;not null"`
	Manufacturer    string                      `json:"manufacturer" gorm:"size:100;not null"`
	ManufacturerID  *types.SnowflakeID          `json:"manufacturer_id"`
	ModelName       string                      `json:"model_name" gorm:"size:150;not null"`
	ModelNo         string                      `json:"model_no" gorm:"size:100"`
	AvailableColors datatypes.JSONSlice[string] `json:"available_colors"`
	StorageOptions  datatypes.JSONSlice[string] `json:"storage_options"`
	CreatedAt       time.Time                   `json:"created_at"`
	UpdatedAt       time.Time                   `json:"updated_at"`
}

func (t *TacCode) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID.IsZero() {
		t.ID = types.SnowflakeID(idgen.GenerateID())
	}
	return
}

type ProductGrade struct {
	ID          uint    `json:"id" gorm:"primaryKey"`
	Grade       string  `json:"grade" gorm:"size:20;uniqueIndex;not null"`
	Description *string `json:"description"`
}
