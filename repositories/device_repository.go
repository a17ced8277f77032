package repositories

import (
	"context"
	"errors"
	"strings"

	"refurb-app/models"
	"refurb-app/types"

	"gorm.io/gorm"
)

type DeviceRepository struct {
	db *gorm.DB
}

func NewDeviceRepository(db *gorm.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

func (r *DeviceRepository) Create(ctx context.Context, device *models.CellularDevice) error {
	return r.db.WithContext(ctx).Omit("Tac", "Grade", "Supplier").Create(device).Error
}

func (r *DeviceRepository) CreateOrderLink(ctx context.Context, link *models.PurchaseOrderDevice) error {
	return r.db.WithContext(ctx).Omit("CellularDevice").Create(link).Error
}

func (r *DeviceRepository) withDetail(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Tac").Preload("Grade").Preload("Supplier")
}

// FindByIMEI loads a device with its catalogue entry, grade and supplier.
func (r *DeviceRepository) FindByIMEI(ctx context.Context, imei string) (*models.CellularDevice, error) {
	var d models.CellularDevice
	if err := r.withDetail(ctx).Where("imei = ?", imei).Take(&d).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DeviceRepository) GetByID(ctx context.Context, id types.SnowflakeID) (*models.CellularDevice, error) {
	var d models.CellularDevice
	if err := r.withDetail(ctx).Take(&d, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DeviceRepository) Update(ctx context.Context, id types.SnowflakeID, updates map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&models.CellularDevice{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// InsertTransactionHistory appends a status change to the history of a device.
func (r *DeviceRepository) InsertTransactionHistory(ctx context.Context, trx *models.CellularDeviceTransaction) error {
	return r.db.WithContext(ctx).Create(trx).Error
}

func (r *DeviceRepository) History(ctx context.Context, deviceID types.SnowflakeID) ([]models.CellularDeviceTransaction, error) {
	var result []models.CellularDeviceTransaction
	err := r.db.WithContext(ctx).Where("cellular_device_id = ?", deviceID).Order("created_at, id").Find(&result).Error
	return result, err
}

// IsUniqueViolation reports whether err comes from a unique index.
// Translated errors cover postgres, mysql, sqlserver and sqlite; the message check covers drivers without a translator.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key") || strings.Contains(msg, "duplicate entry")
}
