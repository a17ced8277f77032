package models

import (
	"time"

	"gorm.io/gorm"
)

// FileLog remembers which catalogue drops the processor has already imported.
type FileLog struct {
	gorm.Model
	Filename     string `gorm:"size:255;uniqueIndex;not null"`
	DateModified time.Time
	Rows         int
}
