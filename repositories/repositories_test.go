package repositories

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"refurb-app/database"
	"refurb-app/migration"
	"refurb-app/models"
	"refurb-app/services/catalog"
	"refurb-app/services/intake"
	"refurb-app/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testActor = types.SnowflakeID(7)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, migration.MigrateUnit(db))
	require.NoError(t, database.RunSeeders(db))
	return db
}

func manufacturerID(t *testing.T, db *gorm.DB, name string) types.SnowflakeID {
	t.Helper()
	var m models.Manufacturer
	require.NoError(t, db.Where("name = ?", name).First(&m).Error)
	return m.ID
}

// seedOrder creates a processing order for five Apple iPhone 13 units.
func seedOrder(t *testing.T, db *gorm.DB) *models.PurchaseOrder {
	t.Helper()
	supplier := models.Supplier{SupplierCode: "SUP-001", Name: "Phone Traders Ltd"}
	require.NoError(t, db.Create(&supplier).Error)

	repo := NewPurchaseOrderRepository(db)
	po := &models.PurchaseOrder{
		PoNumber:   "PO-20240101-001",
		SupplierID: supplier.ID,
		OrderDate:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Status:     models.PurchaseOrderProcessing,
		CreatedBy:  testActor,
	}
	storage := 128
	planned := []models.PurchaseOrderPlannedDevice{{
		ManufacturerID: manufacturerID(t, db, "Apple"),
		ModelName:      "iPhone 13",
		StorageGB:      &storage,
		Quantity:       5,
	}}
	require.NoError(t, repo.CreatePurchaseOrder(context.Background(), po, planned))
	return po
}

func TestGeneratePoNumberFormat(t *testing.T) {
	db := openTestDB(t)
	repo := NewPurchaseOrderRepository(db)

	number, err := repo.GeneratePoNumber(context.Background(), time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^PO-20240309-\d{3}$`), number)
}

func TestCreatePurchaseOrderWithPlannedLines(t *testing.T) {
	db := openTestDB(t)
	po := seedOrder(t, db)
	repo := NewPurchaseOrderRepository(db)
	ctx := context.Background()

	require.Len(t, po.Planned, 1)
	assert.Equal(t, po.ID, po.Planned[0].PurchaseOrderID)
	assert.Equal(t, "cellular", po.Planned[0].DeviceType)

	lines, err := repo.ListPlanned(ctx, po.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "Apple", lines[0].ManufacturerName)
	assert.Equal(t, 5, lines[0].Quantity)

	list, err := repo.GetAll(ctx, models.PurchaseOrderProcessing)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Phone Traders Ltd", list[0].SupplierName)
	assert.Equal(t, 5, list[0].TotalPlanned)
	assert.Equal(t, 0, list[0].TotalReceived)

	list, err = repo.GetAll(ctx, models.PurchaseOrderDraft)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestUpdateStatus(t *testing.T) {
	db := openTestDB(t)
	po := seedOrder(t, db)
	repo := NewPurchaseOrderRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.UpdateStatus(ctx, po.ID, models.PurchaseOrderComplete, testActor))
	got, err := repo.GetByID(ctx, po.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PurchaseOrderComplete, got.Status)
	assert.Equal(t, "Phone Traders Ltd", got.Supplier.Name)

	err = repo.UpdateStatus(ctx, 999, models.PurchaseOrderComplete, testActor)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestIntakeGatewayLookup(t *testing.T) {
	db := openTestDB(t)
	gw := NewIntakeGateway(db)
	ctx := context.Background()

	ref, err := gw.LookupCatalogByPrefix(ctx, "35328211")
	require.NoError(t, err)
	require.NotNil(t, ref)
	assert.Equal(t, "Apple", ref.Manufacturer)
	assert.Equal(t, "iPhone 13", ref.ModelName)
	assert.Equal(t, []string{"128", "256", "512"}, ref.Storage)
	require.NotNil(t, ref.ManufacturerID)
	assert.Equal(t, manufacturerID(t, db, "Apple"), *ref.ManufacturerID)

	ref, err = gw.LookupCatalogByPrefix(ctx, "99999999")
	require.NoError(t, err)
	assert.Nil(t, ref)

	order, err := gw.GetOrder(ctx, 12345)
	require.NoError(t, err)
	assert.Nil(t, order)
}

func TestIntakeGatewayDuplicateIMEI(t *testing.T) {
	db := openTestDB(t)
	gw := NewIntakeGateway(db)
	ctx := context.Background()
	tac, err := NewCatalogRepository(db).FindByPrefix(ctx, "35328211")
	require.NoError(t, err)

	device := intake.NewDevice{IMEI: "353282110000017", TacID: tac.ID}
	id, err := gw.CreateReceivedDevice(ctx, testActor, device)
	require.NoError(t, err)
	assert.False(t, id.IsZero())

	_, err = gw.CreateReceivedDevice(ctx, testActor, device)
	assert.ErrorIs(t, err, intake.ErrDuplicateIMEI)

	stored, err := NewDeviceRepository(db).FindByIMEI(ctx, device.IMEI)
	require.NoError(t, err)
	assert.Equal(t, models.DeviceInStock, stored.Status)
	assert.Equal(t, "iPhone 13", stored.Tac.ModelName)
}

func TestIntakeGatewayTransactionRollsBack(t *testing.T) {
	db := openTestDB(t)
	po := seedOrder(t, db)
	gw := NewIntakeGateway(db)
	ctx := context.Background()
	tac, err := NewCatalogRepository(db).FindByPrefix(ctx, "35328211")
	require.NoError(t, err)

	boom := errors.New("link failed")
	err = gw.Transaction(ctx, func(tx intake.Gateway) error {
		id, err := tx.CreateReceivedDevice(ctx, testActor, intake.NewDevice{IMEI: "353282110000025", TacID: tac.ID})
		if err != nil {
			return err
		}
		if _, err := tx.CreateOrderLink(ctx, testActor, po.ID, id); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var devices int64
	db.Model(&models.CellularDevice{}).Count(&devices)
	assert.Zero(t, devices)

	links, err := gw.CountOrderLinks(ctx, po.ID, false)
	require.NoError(t, err)
	assert.Zero(t, links)
}

func TestIntakeSessionAgainstDatabase(t *testing.T) {
	db := openTestDB(t)
	po := seedOrder(t, db)
	ctx := context.Background()

	manager := intake.NewManager(func(string) (intake.Gateway, error) {
		return NewIntakeGateway(db), nil
	}, intake.ManagerConfig{})

	session, err := manager.Open(ctx, "refurb", po.ID, testActor, intake.ModeSingle)
	require.NoError(t, err)
	require.Len(t, session.Planned, 1)

	result, err := session.Submit(ctx, "353282110000033")
	require.NoError(t, err)
	assert.Equal(t, intake.OutcomeAccepted, result.Outcome)
	require.NotNil(t, result.DeviceID)

	_, err = session.Submit(ctx, "353282110000033")
	assert.ErrorIs(t, err, intake.ErrConflict)

	_, err = session.Submit(ctx, "354678120000011")
	assert.ErrorIs(t, err, intake.ErrValidation)

	repo := NewPurchaseOrderRepository(db)
	received, err := repo.ListReceived(ctx, po.ID)
	require.NoError(t, err)
	require.Len(t, received, 1)
	assert.Equal(t, "353282110000033", received[0].IMEI)
	assert.Equal(t, "Apple", received[0].Manufacturer)

	history, err := NewDeviceRepository(db).History(ctx, *result.DeviceID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.TransactionPurchase, history[0].TransactionType)
	assert.Equal(t, po.ID, history[0].RefID)
}

func TestUpsertTacCodes(t *testing.T) {
	db := openTestDB(t)
	repo := NewCatalogRepository(db)
	ctx := context.Background()

	rows := []catalog.TacRow{
		{TacCode: "35328211", Manufacturer: "apple", ModelName: "iPhone 13", ModelNo: "A2633", Storage: []string{"128", "256"}},
		{TacCode: "35000001", Manufacturer: "Motorola", ModelName: "Moto G84", Colors: []string{"Blue"}},
	}
	inserted, updated, err := repo.UpsertTacCodes(ctx, rows)
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
	assert.Equal(t, 1, updated)

	tac, err := repo.FindByPrefix(ctx, "35328211")
	require.NoError(t, err)
	assert.Equal(t, []string{"128", "256"}, []string(tac.StorageOptions))
	require.NotNil(t, tac.ManufacturerID)
	assert.Equal(t, manufacturerID(t, db, "Apple"), *tac.ManufacturerID)

	names, err := repo.ListModelNames(ctx, manufacturerID(t, db, "Motorola"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Moto G84"}, names)
}
