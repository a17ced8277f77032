package controllers

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"refurb-app/models"
	"refurb-app/repositories"
	"refurb-app/services/events"
	"refurb-app/services/export"
	"refurb-app/services/intake"
	"refurb-app/services/labels"
	"refurb-app/types"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const eventKeepAlive = 25 * time.Second

type PurchaseOrderController struct {
	Broker *events.Broker
}

func NewPurchaseOrderController(broker *events.Broker) *PurchaseOrderController {
	return &PurchaseOrderController{Broker: broker}
}

type plannedLineInput struct {
	ManufacturerID types.SnowflakeID `json:"manufacturer_id" validate:"required"`
	ModelName      string            `json:"model_name" validate:"required"`
	StorageGB      *int              `json:"storage_gb"`
	Color          *string           `json:"color"`
	GradeID        *uint             `json:"grade_id"`
	Quantity       int               `json:"quantity" validate:"required,min=1"`
}

type purchaseOrderInput struct {
	SupplierID types.SnowflakeID  `json:"supplier_id" validate:"required"`
	OrderDate  *time.Time         `json:"order_date"`
	Notes      string             `json:"notes"`
	Finalize   bool               `json:"finalize"`
	Planned    []plannedLineInput `json:"planned" validate:"dive"`
}

// loadOrder writes the error response itself and returns nil when the order cannot be used.
func loadOrder(ctx *fiber.Ctx, repo *repositories.PurchaseOrderRepository) (*models.PurchaseOrder, error) {
	id, err := paramID(ctx, "id")
	if err != nil {
		return nil, badRequest(ctx, "Invalid purchase order ID")
	}
	po, err := repo.GetByID(ctx.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(ctx, "Purchase order not found")
		}
		return nil, serverError(ctx, "Failed to get purchase order", err)
	}
	return po, nil
}

func (c *PurchaseOrderController) GetAll(ctx *fiber.Ctx) error {
	db, err := unitDB(ctx)
	if err != nil {
		return err
	}

	result, err := repositories.NewPurchaseOrderRepository(db).GetAll(ctx.Context(), ctx.Query("status"))
	if err != nil {
		return serverError(ctx, "Failed to get purchase orders", err)
	}
	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "message": "Purchase orders found", "data": result})
}

// Create stores a purchase order as a draft, or as processing when finalize is set.
func (c *PurchaseOrderController) Create(ctx *fiber.Ctx) error {
	var input purchaseOrderInput
	if err := ctx.BodyParser(&input); err != nil {
		return badRequest(ctx, "Invalid payload")
	}
	if err := validate.Struct(input); err != nil {
		return badRequest(ctx, err.Error())
	}
	if input.Finalize && len(input.Planned) == 0 {
		return badRequest(ctx, "Add at least one planned device before finalizing")
	}

	db, err := unitDB(ctx)
	if err != nil {
		return err
	}
	var supplierCount int64
	if err := db.Model(&models.Supplier{}).Where("id = ?", input.SupplierID).Count(&supplierCount).Error; err != nil {
		return serverError(ctx, "Failed to check supplier", err)
	}
	if supplierCount == 0 {
		return notFound(ctx, "Supplier not found")
	}

	repo := repositories.NewPurchaseOrderRepository(db)
	now := time.Now()
	poNumber, err := repo.GeneratePoNumber(ctx.Context(), now)
	if err != nil {
		return serverError(ctx, "Failed to generate PO number", err)
	}

	userID := currentUser(ctx)
	po := &models.PurchaseOrder{
		PoNumber:   poNumber,
		SupplierID: input.SupplierID,
		OrderDate:  now,
		Status:     models.PurchaseOrderDraft,
		Notes:      input.Notes,
		CreatedBy:  userID,
		UpdatedBy:  userID,
	}
	if input.OrderDate != nil {
		po.OrderDate = *input.OrderDate
	}
	if input.Finalize {
		po.Status = models.PurchaseOrderProcessing
	}

	planned := make([]models.PurchaseOrderPlannedDevice, 0, len(input.Planned))
	for _, line := range input.Planned {
		planned = append(planned, models.PurchaseOrderPlannedDevice{
			ManufacturerID: line.ManufacturerID,
			ModelName:      line.ModelName,
			StorageGB:      line.StorageGB,
			Color:          line.Color,
			GradeID:        line.GradeID,
			Quantity:       line.Quantity,
		})
	}

	if err := repo.CreatePurchaseOrder(ctx.Context(), po, planned); err != nil {
		return serverError(ctx, "Failed to create purchase order", err)
	}

	zap.L().Info("purchase order created",
		zap.String("po_number", po.PoNumber),
		zap.String("status", po.Status),
		zap.Int("planned_lines", len(planned)))

	return ctx.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "message": "Purchase order created successfully", "data": po})
}

func (c *PurchaseOrderController) GetByID(ctx *fiber.Ctx) error {
	db, err := unitDB(ctx)
	if err != nil {
		return err
	}
	po, err := loadOrder(ctx, repositories.NewPurchaseOrderRepository(db))
	if po == nil {
		return err
	}
	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "message": "Purchase order found", "data": po})
}

// UpdateStatus moves an order to another status. Complete and cancelled orders are final.
func (c *PurchaseOrderController) UpdateStatus(ctx *fiber.Ctx) error {
	var input struct {
		Status string `json:"status" validate:"required,oneof=draft pending processing confirmed complete cancelled"`
	}
	if err := ctx.BodyParser(&input); err != nil {
		return badRequest(ctx, "Invalid payload")
	}
	if err := validate.Struct(input); err != nil {
		return badRequest(ctx, "Invalid status")
	}

	db, err := unitDB(ctx)
	if err != nil {
		return err
	}
	repo := repositories.NewPurchaseOrderRepository(db)
	po, err := loadOrder(ctx, repo)
	if po == nil {
		return err
	}

	if po.Status == models.PurchaseOrderComplete || po.Status == models.PurchaseOrderCancelled {
		return ctx.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false,
			"message": fmt.Sprintf("Purchase order is already %s", po.Status),
		})
	}

	if err := repositories.NewIntakeGateway(db).UpdatePurchaseOrderStatus(ctx.Context(), currentUser(ctx), po.ID, input.Status); err != nil {
		return serverError(ctx, "Failed to update status", err)
	}

	zap.L().Info("purchase order status changed",
		zap.String("po_number", po.PoNumber),
		zap.String("from", po.Status),
		zap.String("to", input.Status))

	po.Status = input.Status
	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "message": "Status updated", "data": po})
}

func (c *PurchaseOrderController) GetPlanned(ctx *fiber.Ctx) error {
	db, err := unitDB(ctx)
	if err != nil {
		return err
	}
	repo := repositories.NewPurchaseOrderRepository(db)
	po, err := loadOrder(ctx, repo)
	if po == nil {
		return err
	}

	result, err := repo.ListPlanned(ctx.Context(), po.ID)
	if err != nil {
		return serverError(ctx, "Failed to get planned devices", err)
	}
	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "message": "Planned devices found", "data": result})
}

func (c *PurchaseOrderController) GetReceived(ctx *fiber.Ctx) error {
	db, err := unitDB(ctx)
	if err != nil {
		return err
	}
	repo := repositories.NewPurchaseOrderRepository(db)
	po, err := loadOrder(ctx, repo)
	if po == nil {
		return err
	}

	result, err := repo.ListReceived(ctx.Context(), po.ID)
	if err != nil {
		return serverError(ctx, "Failed to get received devices", err)
	}
	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "message": "Received devices found", "data": result})
}

func (c *PurchaseOrderController) GetFulfillment(ctx *fiber.Ctx) error {
	db, err := unitDB(ctx)
	if err != nil {
		return err
	}
	po, err := loadOrder(ctx, repositories.NewPurchaseOrderRepository(db))
	if po == nil {
		return err
	}

	f, err := intake.CheckFulfillment(ctx.Context(), repositories.NewIntakeGateway(db), po.ID)
	if err != nil {
		return intakeError(ctx, err, nil)
	}
	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "message": "Fulfillment checked", "data": f})
}

func gradeName(g *string) string {
	if g == nil {
		return ""
	}
	return *g
}

func (c *PurchaseOrderController) ExportReceived(ctx *fiber.Ctx) error {
	db, err := unitDB(ctx)
	if err != nil {
		return err
	}
	repo := repositories.NewPurchaseOrderRepository(db)
	po, err := loadOrder(ctx, repo)
	if po == nil {
		return err
	}

	received, err := repo.ListReceived(ctx.Context(), po.ID)
	if err != nil {
		return serverError(ctx, "Failed to get received devices", err)
	}

	rows := make([]export.ReceivedRow, 0, len(received))
	for _, d := range received {
		rows = append(rows, export.ReceivedRow{
			IMEI:         d.IMEI,
			Manufacturer: d.Manufacturer,
			ModelName:    d.ModelName,
			ModelNo:      d.ModelNo,
			StorageGB:    d.StorageGB,
			Color:        d.Color,
			Grade:        gradeName(d.Grade),
			Status:       d.Status,
			ReceivedAt:   d.ReceivedAt,
		})
	}

	var buf bytes.Buffer
	if err := export.WriteReceivedWorkbook(&buf, po.PoNumber, rows); err != nil {
		return serverError(ctx, "Failed to write Excel file", err)
	}

	ctx.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ctx.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s-received.xlsx", po.PoNumber))
	return ctx.Send(buf.Bytes())
}

func (c *PurchaseOrderController) PrintLabels(ctx *fiber.Ctx) error {
	db, err := unitDB(ctx)
	if err != nil {
		return err
	}
	repo := repositories.NewPurchaseOrderRepository(db)
	po, err := loadOrder(ctx, repo)
	if po == nil {
		return err
	}

	received, err := repo.ListReceived(ctx.Context(), po.ID)
	if err != nil {
		return serverError(ctx, "Failed to get received devices", err)
	}
	if len(received) == 0 {
		return notFound(ctx, "No received devices to print")
	}

	devices := make([]labels.DeviceLabel, 0, len(received))
	for _, d := range received {
		devices = append(devices, labels.DeviceLabel{
			IMEI:         d.IMEI,
			Manufacturer: d.Manufacturer,
			ModelName:    d.ModelName,
			StorageGB:    d.StorageGB,
			Color:        d.Color,
			Grade:        gradeName(d.Grade),
			PoNumber:     po.PoNumber,
		})
	}

	pdf, err := labels.GenerateDeviceLabelsPDF(labels.DefaultSheet, devices)
	if err != nil {
		return serverError(ctx, "Failed to generate labels", err)
	}

	ctx.Set("Content-Type", "application/pdf")
	ctx.Set("Content-Disposition", fmt.Sprintf("inline; filename=%s-labels.pdf", po.PoNumber))
	return ctx.Send(pdf)
}

// Events streams device added notifications of one order as server-sent events.
func (c *PurchaseOrderController) Events(ctx *fiber.Ctx) error {
	db, err := unitDB(ctx)
	if err != nil {
		return err
	}
	po, err := loadOrder(ctx, repositories.NewPurchaseOrderRepository(db))
	if po == nil {
		return err
	}

	unit := currentUnit(ctx)
	ch, cancel := c.Broker.Subscribe(unit, po.ID)

	ctx.Set("Content-Type", "text/event-stream")
	ctx.Set("Cache-Control", "no-cache")
	ctx.Set("Connection", "keep-alive")
	ctx.Set("X-Accel-Buffering", "no")

	poNumber := po.PoNumber
	ctx.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()
		ticker := time.NewTicker(eventKeepAlive)
		defer ticker.Stop()

		fmt.Fprintf(w, "event: ready\ndata: {\"po_number\":%q}\n\n", poNumber)
		if err := w.Flush(); err != nil {
			return
		}

		for {
			select {
			case e, ok := <-ch:
				if !ok {
					return
				}
				payload, err := json.Marshal(e)
				if err != nil {
					zap.L().Error("failed to encode device event", zap.Error(err))
					continue
				}
				fmt.Fprintf(w, "event: device_added\ndata: %s\n\n", payload)
			case <-ticker.C:
				fmt.Fprint(w, ": keep-alive\n\n")
			}
			if err := w.Flush(); err != nil {
				zap.L().Debug("event stream closed", zap.String("unit", unit), zap.String("po_number", poNumber))
				return
			}
		}
	}))
	return nil
}
