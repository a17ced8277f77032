package database

import (
	"fmt"

	"refurb-app/migration"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SetupUnit makes sure the unit database exists, migrates it and, when seed is set, seeds reference data.
func SetupUnit(unit string, seed bool) (*gorm.DB, error) {
	if err := EnsureDatabaseExists(unit); err != nil {
		return nil, err
	}

	db, err := GetDBConnection(unit)
	if err != nil {
		return nil, fmt.Errorf("connect to unit %s: %w", unit, err)
	}

	if err := migration.MigrateUnit(db); err != nil {
		return nil, fmt.Errorf("migrate unit %s: %w", unit, err)
	}
	zap.L().Info("unit database migrated", zap.String("unit", unit))

	if seed {
		if err := RunSeeders(db); err != nil {
			return nil, fmt.Errorf("seed unit %s: %w", unit, err)
		}
	}
	return db, nil
}
