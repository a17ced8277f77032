package migration

import (
	"refurb-app/models"

	"gorm.io/gorm"
)

// MigrateUnit creates or updates every table a unit database needs.
func MigrateUnit(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.UserSession{},
		&models.Manufacturer{},
		&models.TacCode{},
		&models.ProductGrade{},
		&models.Supplier{},
		&models.CellularDevice{},
		&models.PurchaseOrder{},
		&models.PurchaseOrderPlannedDevice{},
		&models.PurchaseOrderDevice{},
		&models.CellularDeviceTransaction{},
		&models.FileLog{},
	)
}
