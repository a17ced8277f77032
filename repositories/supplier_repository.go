package repositories

import (
	"context"

	"refurb-app/models"
	"refurb-app/types"

	"gorm.io/gorm"
)

type SupplierRepository struct {
	db *gorm.DB
}

func NewSupplierRepository(db *gorm.DB) *SupplierRepository {
	return &SupplierRepository{db: db}
}

func (r *SupplierRepository) Create(ctx context.Context, s *models.Supplier) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *SupplierRepository) GetAll(ctx context.Context) ([]models.Supplier, error) {
	var result []models.Supplier
	err := r.db.WithContext(ctx).Order("name").Find(&result).Error
	return result, err
}

func (r *SupplierRepository) GetByID(ctx context.Context, id types.SnowflakeID) (*models.Supplier, error) {
	var s models.Supplier
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SupplierRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Supplier{}).Where("supplier_code = ?", code).Count(&count).Error
	return count > 0, err
}
