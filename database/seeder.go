package database

import (
	"errors"

	"refurb-app/models"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const defaultAdminPassword = "admin123"

func RunSeeders(db *gorm.DB) error {
	seeders := []func(*gorm.DB) error{
		SeedUserMaster,
		SeedGrades,
		SeedManufacturers,
		SeedTacCodes,
	}
	for _, seed := range seeders {
		if err := seed(db); err != nil {
			return err
		}
	}
	return nil
}

func SeedUserMaster(db *gorm.DB) error {
	var existing models.User
	err := db.Where("username = ?", "admin").First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(defaultAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := models.User{
		Username: "admin",
		Password: string(hashed),
		Name:     "Administrator",
		Email:    "admin@example.com",
		Role:     "admin",
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}
	zap.L().Info("seeded admin user", zap.String("username", admin.Username))
	return nil
}

func SeedGrades(db *gorm.DB) error {
	grades := []models.ProductGrade{
		{ID: 1, Grade: "A", Description: ptr("Like new, no visible wear")},
		{ID: 2, Grade: "B", Description: ptr("Light signs of use")},
		{ID: 3, Grade: "C", Description: ptr("Visible scratches or scuffs")},
		{ID: 4, Grade: "D", Description: ptr("Heavy wear, fully functional")},
	}

	for _, g := range grades {
		var existing models.ProductGrade
		err := db.Where("grade = ?", g.Grade).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := db.Create(&g).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
	}
	return nil
}

func SeedManufacturers(db *gorm.DB) error {
	for _, name := range []string{"Apple", "Samsung", "Google"} {
		var existing models.Manufacturer
		err := db.Where("name = ?", name).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := db.Create(&models.Manufacturer{Name: name}).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
	}
	return nil
}

func SeedTacCodes(db *gorm.DB) error {
	tacs := []models.TacCode{
		{
			TacCode:         "35328211",
			Manufacturer:    "Apple",
			ModelName:       "iPhone 13",
			ModelNo:         "A2633",
			AvailableColors: datatypes.JSONSlice[string]{"Midnight", "Starlight", "Blue", "Pink"},
			StorageOptions:  datatypes.JSONSlice[string]{"128", "256", "512"},
		},
		{
			TacCode:         "35467812",
			Manufacturer:    "Samsung",
			ModelName:       "Galaxy S22",
			ModelNo:         "SM-S901B",
			AvailableColors: datatypes.JSONSlice[string]{"Phantom Black", "Phantom White", "Green"},
			StorageOptions:  datatypes.JSONSlice[string]{"128", "256"},
		},
		{
			TacCode:         "35892410",
			Manufacturer:    "Google",
			ModelName:       "Pixel 7",
			ModelNo:         "GVU6C",
			AvailableColors: datatypes.JSONSlice[string]{"Obsidian", "Snow", "Lemongrass"},
			StorageOptions:  datatypes.JSONSlice[string]{"128", "256"},
		},
	}

	for _, t := range tacs {
		var existing models.TacCode
		err := db.Where("tac_code = ?", t.TacCode).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var m models.Manufacturer
		if err := db.Where("name = ?", t.Manufacturer).First(&m).Error; err == nil {
			id := m.ID
			t.ManufacturerID = &id
		}
		if err := db.Create(&t).Error; err != nil {
			return err
		}
	}
	return nil
}

func ptr[T any](v T) *T {
	return &v
}
