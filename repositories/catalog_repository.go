package repositories

import (
	"context"
	"errors"
	"strings"

	"refurb-app/models"
	"refurb-app/services/catalog"
	"refurb-app/types"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CatalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) ListManufacturers(ctx context.Context) ([]models.Manufacturer, error) {
	var result []models.Manufacturer
	err := r.db.WithContext(ctx).Order("name").Find(&result).Error
	return result, err
}

func (r *CatalogRepository) ListGrades(ctx context.Context) ([]models.ProductGrade, error) {
	var result []models.ProductGrade
	err := r.db.WithContext(ctx).Order("id").Find(&result).Error
	return result, err
}

func (r *CatalogRepository) GradeExists(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ProductGrade{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *CatalogRepository) GetManufacturer(ctx context.Context, id types.SnowflakeID) (*models.Manufacturer, error) {
	var m models.Manufacturer
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// ListModelNames returns the distinct model names known for a manufacturer, by id or by name on older rows.
func (r *CatalogRepository) ListModelNames(ctx context.Context, manufacturerID types.SnowflakeID) ([]string, error) {
	m, err := r.GetManufacturer(ctx, manufacturerID)
	if err != nil {
		return nil, err
	}

	var names []string
	err = r.db.WithContext(ctx).Model(&models.TacCode{}).
		Distinct("model_name").
		Where("manufacturer_id = ? OR (manufacturer_id IS NULL AND LOWER(manufacturer) = ?)", manufacturerID, strings.ToLower(m.Name)).
		Order("model_name").
		Pluck("model_name", &names).Error
	return names, err
}

// FindByPrefix returns the catalogue row of an 8 character TAC, or gorm.ErrRecordNotFound.
func (r *CatalogRepository) FindByPrefix(ctx context.Context, prefix string) (*models.TacCode, error) {
	var tac models.TacCode
	if err := r.db.WithContext(ctx).Where("tac_code = ?", prefix).Take(&tac).Error; err != nil {
		return nil, err
	}
	return &tac, nil
}

// FindOrCreateManufacturer matches names case-insensitively.
func (r *CatalogRepository) FindOrCreateManufacturer(ctx context.Context, name string) (*models.Manufacturer, error) {
	var m models.Manufacturer
	err := r.db.WithContext(ctx).Where("LOWER(name) = ?", strings.ToLower(name)).First(&m).Error
	if err == nil {
		return &m, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	m = models.Manufacturer{Name: name}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// UpsertTacCodes inserts new TACs and refreshes existing ones in one transaction.
func (r *CatalogRepository) UpsertTacCodes(ctx context.Context, rows []catalog.TacRow) (inserted, updated int, err error) {
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := NewCatalogRepository(tx)
		manufacturers := make(map[string]types.SnowflakeID)

		for _, row := range rows {
			key := strings.ToLower(row.Manufacturer)
			mID, ok := manufacturers[key]
			if !ok {
				m, err := repo.FindOrCreateManufacturer(ctx, row.Manufacturer)
				if err != nil {
					return err
				}
				mID = m.ID
				manufacturers[key] = mID
			}

			var existing models.TacCode
			err := tx.Where("tac_code = ?", row.TacCode).Take(&existing).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				id := mID
				tac := models.TacCode{
					TacCode:         row.TacCode,
					Manufacturer:    row.Manufacturer,
					ManufacturerID:  &id,
					ModelName:       row.ModelName,
					ModelNo:         row.ModelNo,
					AvailableColors: datatypes.JSONSlice[string](row.Colors),
					StorageOptions:  datatypes.JSONSlice[string](row.Storage),
				}
				if err := tx.Create(&tac).Error; err != nil {
					return err
				}
				inserted++
			case err != nil:
				return err
			default:
				id := mID
				existing.Manufacturer = row.Manufacturer
				existing.ManufacturerID = &id
				existing.ModelName = row.ModelName
				existing.ModelNo = row.ModelNo
				existing.AvailableColors = datatypes.JSONSlice[string](row.Colors)
				existing.StorageOptions = datatypes.JSONSlice[string](row.Storage)
				if err := tx.Save(&existing).Error; err != nil {
					return err
				}
				updated++
			}
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return inserted, updated, nil
}
