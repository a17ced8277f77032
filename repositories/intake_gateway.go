package repositories

import (
	"context"
	"errors"
	"fmt"

	"refurb-app/models"
	"refurb-app/services/intake"
	"refurb-app/types"

	"gorm.io/gorm"
)

// IntakeGateway is the GORM implementation of intake.Gateway for one unit database.
type IntakeGateway struct {
	db      *gorm.DB
	catalog *CatalogRepository
	orders  *PurchaseOrderRepository
	devices *DeviceRepository
}

func NewIntakeGateway(db *gorm.DB) *IntakeGateway {
	return &IntakeGateway{
		db:      db,
		catalog: NewCatalogRepository(db),
		orders:  NewPurchaseOrderRepository(db),
		devices: NewDeviceRepository(db),
	}
}

var _ intake.Gateway = (*IntakeGateway)(nil)

func (g *IntakeGateway) LookupCatalogByPrefix(ctx context.Context, prefix string) (*intake.CatalogReference, error) {
	tac, err := g.catalog.FindByPrefix(ctx, prefix)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &intake.CatalogReference{
		ID:             tac.ID,
		TacCode:        tac.TacCode,
		ManufacturerID: tac.ManufacturerID,
		Manufacturer:   tac.Manufacturer,
		ModelName:      tac.ModelName,
		ModelNumber:    tac.ModelNo,
		Colors:         []string(tac.AvailableColors),
		Storage:        []string(tac.StorageOptions),
	}, nil
}

func (g *IntakeGateway) ListPlannedLineItems(ctx context.Context, orderID types.SnowflakeID) ([]intake.PlannedLineItem, error) {
	lines, err := g.orders.ListPlanned(ctx, orderID)
	if err != nil {
		return nil, err
	}
	items := make([]intake.PlannedLineItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, intake.PlannedLineItem{
			ID:             l.ID,
			ManufacturerID: l.ManufacturerID,
			Manufacturer:   l.ManufacturerName,
			ModelName:      l.ModelName,
			StorageGB:      l.StorageGB,
			Color:          l.Color,
			GradeID:        l.GradeID,
			Quantity:       l.Quantity,
		})
	}
	return items, nil
}

func (g *IntakeGateway) CountOrderLinks(ctx context.Context, orderID types.SnowflakeID, onlyLinked bool) (int, error) {
	return g.orders.CountLinks(ctx, orderID, onlyLinked)
}

func (g *IntakeGateway) GetOrder(ctx context.Context, orderID types.SnowflakeID) (*intake.OrderHeader, error) {
	var po models.PurchaseOrder
	err := g.db.WithContext(ctx).Select("id", "po_number", "supplier_id", "status").Take(&po, "id = ?", orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	header := &intake.OrderHeader{ID: po.ID, PoNumber: po.PoNumber, Status: po.Status}
	if !po.SupplierID.IsZero() {
		supplier := po.SupplierID
		header.SupplierID = &supplier
	}
	return header, nil
}

func (g *IntakeGateway) CreateReceivedDevice(ctx context.Context, actor types.SnowflakeID, device intake.NewDevice) (types.SnowflakeID, error) {
	row := models.CellularDevice{
		IMEI:       device.IMEI,
		TacID:      device.TacID,
		StorageGB:  device.Settings.StorageGB,
		Color:      device.Settings.Color,
		GradeID:    device.Settings.GradeID,
		SupplierID: device.SupplierID,
		Status:     device.Status,
		CreatedBy:  actor,
		UpdatedBy:  actor,
	}
	if row.Status == "" {
		row.Status = models.DeviceInStock
	}
	if err := g.devices.Create(ctx, &row); err != nil {
		if IsUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %s", intake.ErrDuplicateIMEI, device.IMEI)
		}
		return 0, err
	}
	return row.ID, nil
}

func (g *IntakeGateway) CreateOrderLink(ctx context.Context, actor types.SnowflakeID, orderID, deviceID types.SnowflakeID) (types.SnowflakeID, error) {
	id := deviceID
	link := models.PurchaseOrderDevice{
		PurchaseOrderID:  orderID,
		CellularDeviceID: &id,
		CreatedBy:        actor,
		UpdatedBy:        actor,
	}
	if err := g.devices.CreateOrderLink(ctx, &link); err != nil {
		return 0, err
	}
	return link.ID, nil
}

func (g *IntakeGateway) RecordDeviceTransaction(ctx context.Context, actor types.SnowflakeID, trx intake.DeviceTransaction) error {
	return g.devices.InsertTransactionHistory(ctx, &models.CellularDeviceTransaction{
		CellularDeviceID: trx.DeviceID,
		TransactionType:  trx.Type,
		RefID:            trx.RefID,
		PrevStatus:       trx.PrevStatus,
		NewStatus:        trx.NewStatus,
		Notes:            trx.Notes,
		CreatedBy:        actor,
	})
}

func (g *IntakeGateway) UpdatePurchaseOrderStatus(ctx context.Context, actor, orderID types.SnowflakeID, status string) error {
	return g.orders.UpdateStatus(ctx, orderID, status, actor)
}

func (g *IntakeGateway) Transaction(ctx context.Context, fn func(intake.Gateway) error) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewIntakeGateway(tx))
	})
}
