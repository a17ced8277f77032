package models

import (
	"refurb-app/controllers/idgen"
	"refurb-app/types"
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID        types.SnowflakeID `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Username  string            `json:"username" gorm:"size:50;uniqueIndex"`
	Password  string            `json:"-"`
	Name      string            `json:"name"`
	Email     string            `json:"email" gorm:"size:150;uniqueIndex"`
	Role      string            `json:"role" gorm:"default:'staff'"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID.IsZero() {
		u.ID = types.SnowflakeID(idgen.GenerateID())
	}
	return
}

type UserSession struct {
	ID             uint              `gorm:"primaryKey"`
	UserID         types.SnowflakeID `gorm:"index"`
	SessionID      string            `gorm:"size:36;uniqueIndex"`
	IPAddress      string
	UserAgent      string
	IsActive       bool `gorm:"default:true"`
	LastActivityAt time.Time
	ExpiresAt      time.Time
	CreatedAt      time.Time
}
