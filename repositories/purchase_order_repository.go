package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"refurb-app/models"
	"refurb-app/types"

	"golang.org/x/exp/rand"
	"gorm.io/gorm"
)

var ErrPoNumberExhausted = errors.New("no free purchase order number left for today")

type PurchaseOrderRepository struct {
	db *gorm.DB
}

func NewPurchaseOrderRepository(db *gorm.DB) *PurchaseOrderRepository {
	return &PurchaseOrderRepository{db: db}
}

type PurchaseOrderList struct {
	ID            types.SnowflakeID `json:"id"`
	PoNumber      string            `json:"po_number"`
	SupplierID    types.SnowflakeID `json:"supplier_id"`
	SupplierName  string            `json:"supplier_name"`
	OrderDate     time.Time         `json:"order_date"`
	Status        string            `json:"status"`
	Notes         string            `json:"notes"`
	TotalPlanned  int               `json:"total_planned"`
	TotalReceived int               `json:"total_received"`
}

type PlannedLine struct {
	ID               types.SnowflakeID `json:"id"`
	PurchaseOrderID  types.SnowflakeID `json:"purchase_order_id"`
	ManufacturerID   types.SnowflakeID `json:"manufacturer_id"`
	ManufacturerName string            `json:"manufacturer_name"`
	ModelName        string            `json:"model_name"`
	StorageGB        *int              `json:"storage_gb"`
	Color            *string           `json:"color"`
	GradeID          *uint             `json:"grade_id"`
	Grade            *string           `json:"grade"`
	Quantity         int               `json:"quantity"`
	DeviceType       string            `json:"device_type"`
}

type ReceivedDevice struct {
	LinkID       types.SnowflakeID `json:"link_id"`
	DeviceID     types.SnowflakeID `json:"device_id"`
	IMEI         string            `json:"imei"`
	Manufacturer string            `json:"manufacturer"`
	ModelName    string            `json:"model_name"`
	ModelNo      string            `json:"model_no"`
	StorageGB    *int              `json:"storage_gb"`
	Color        *string           `json:"color"`
	GradeID      *uint             `json:"grade_id"`
	Grade        *string           `json:"grade"`
	Status       string            `json:"status"`
	ReceivedAt   time.Time         `json:"received_at"`
	ReceivedBy   types.SnowflakeID `json:"received_by"`
}

// GeneratePoNumber returns an unused number of the form PO-YYYYMMDD-NNN.
func (r *PurchaseOrderRepository) GeneratePoNumber(ctx context.Context, now time.Time) (string, error) {
	rng := rand.New(rand.NewSource(uint64(now.UnixNano())))
	datePart := now.Format("20060102")

	for attempt := 0; attempt < 20; attempt++ {
		candidate := fmt.Sprintf("PO-%s-%03d", datePart, rng.Intn(900)+100)

		var count int64
		if err := r.db.WithContext(ctx).Model(&models.PurchaseOrder{}).Where("po_number = ?", candidate).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return candidate, nil
		}
	}
	return "", ErrPoNumberExhausted
}

// CreatePurchaseOrder stores the header and its planned lines together.
func (r *PurchaseOrderRepository) CreatePurchaseOrder(ctx context.Context, po *models.PurchaseOrder, planned []models.PurchaseOrderPlannedDevice) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Planned", "Received", "Supplier").Create(po).Error; err != nil {
			return err
		}
		for i := range planned {
			planned[i].PurchaseOrderID = po.ID
			planned[i].CreatedBy = po.CreatedBy
			planned[i].UpdatedBy = po.CreatedBy
			if planned[i].DeviceType == "" {
				planned[i].DeviceType = "cellular"
			}
		}
		if len(planned) > 0 {
			if err := tx.Omit("Manufacturer", "Grade").Create(&planned).Error; err != nil {
				return err
			}
		}
		po.Planned = planned
		return nil
	})
}

func (r *PurchaseOrderRepository) GetAll(ctx context.Context, status string) ([]PurchaseOrderList, error) {
	q := r.db.WithContext(ctx).Table("purchase_orders po").
		Select(`po.id, po.po_number, po.supplier_id, s.name AS supplier_name, po.order_date, po.status, po.notes,
			(SELECT COALESCE(SUM(p.quantity), 0) FROM purchase_order_devices_planned p WHERE p.purchase_order_id = po.id) AS total_planned,
			(SELECT COUNT(*) FROM purchase_order_devices d WHERE d.purchase_order_id = po.id AND d.cellular_device_id IS NOT NULL) AS total_received`).
		Joins("LEFT JOIN suppliers s ON s.id = po.supplier_id").
		Order("po.created_at DESC")
	if status != "" {
		q = q.Where("po.status = ?", status)
	}

	var result []PurchaseOrderList
	err := q.Scan(&result).Error
	return result, err
}

func (r *PurchaseOrderRepository) GetByID(ctx context.Context, id types.SnowflakeID) (*models.PurchaseOrder, error) {
	var po models.PurchaseOrder
	if err := r.db.WithContext(ctx).Preload("Supplier").First(&po, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &po, nil
}

func (r *PurchaseOrderRepository) UpdateStatus(ctx context.Context, id types.SnowflakeID, status string, actor types.SnowflakeID) error {
	res := r.db.WithContext(ctx).Model(&models.PurchaseOrder{}).Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "updated_by": actor, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *PurchaseOrderRepository) ListPlanned(ctx context.Context, orderID types.SnowflakeID) ([]PlannedLine, error) {
	var result []PlannedLine
	err := r.db.WithContext(ctx).Table("purchase_order_devices_planned p").
		Select(`p.id, p.purchase_order_id, p.manufacturer_id, m.name AS manufacturer_name, p.model_name,
			p.storage_gb, p.color, p.grade_id, g.grade, p.quantity, p.device_type`).
		Joins("LEFT JOIN manufacturers m ON m.id = p.manufacturer_id").
		Joins("LEFT JOIN product_grades g ON g.id = p.grade_id").
		Where("p.purchase_order_id = ?", orderID).
		Order("p.created_at, p.id").
		Scan(&result).Error
	return result, err
}

func (r *PurchaseOrderRepository) ListReceived(ctx context.Context, orderID types.SnowflakeID) ([]ReceivedDevice, error) {
	var result []ReceivedDevice
	err := r.db.WithContext(ctx).Table("purchase_order_devices l").
		Select(`l.id AS link_id, d.id AS device_id, d.imei, t.manufacturer, t.model_name, t.model_no,
			d.storage_gb, d.color, d.grade_id, g.grade, d.status, l.created_at AS received_at, l.created_by AS received_by`).
		Joins("JOIN cellular_devices d ON d.id = l.cellular_device_id").
		Joins("LEFT JOIN tac_codes t ON t.id = d.tac_id").
		Joins("LEFT JOIN product_grades g ON g.id = d.grade_id").
		Where("l.purchase_order_id = ?", orderID).
		Order("l.created_at, l.id").
		Scan(&result).Error
	return result, err
}

// CountLinks counts order links, only those pointing at a device when onlyLinked is set.
func (r *PurchaseOrderRepository) CountLinks(ctx context.Context, orderID types.SnowflakeID, onlyLinked bool) (int, error) {
	q := r.db.WithContext(ctx).Model(&models.PurchaseOrderDevice{}).Where("purchase_order_id = ?", orderID)
	if onlyLinked {
		q = q.Where("cellular_device_id IS NOT NULL")
	}
	var count int64
	err := q.Count(&count).Error
	return int(count), err
}
