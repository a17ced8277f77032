package controllers

import (
	"errors"
	"strings"
	"time"

	"refurb-app/models"
	"refurb-app/repositories"
	"refurb-app/types"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type DeviceController struct{}

func NewDeviceController() *DeviceController {
	return &DeviceController{}
}

func (c *DeviceController) GetByIMEI(ctx *fiber.Ctx) error {
	imei := strings.TrimSpace(ctx.Params("imei"))
	if imei == "" {
		return badRequest(ctx, "IMEI is required")
	}

	db, err := unitDB(ctx)
	if err != nil {
		return err
	}

	device, err := repositories.NewDeviceRepository(db).FindByIMEI(ctx.Context(), imei)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(ctx, "Device not found")
		}
		return serverError(ctx, "Failed to get device", err)
	}
	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "message": "Device found", "data": device})
}

func (c *DeviceController) GetHistory(ctx *fiber.Ctx) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return badRequest(ctx, "Invalid ID")
	}

	db, err := unitDB(ctx)
	if err != nil {
		return err
	}
	repo := repositories.NewDeviceRepository(db)

	if _, err := repo.GetByID(ctx.Context(), id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(ctx, "Device not found")
		}
		return serverError(ctx, "Failed to get device", err)
	}

	history, err := repo.History(ctx.Context(), id)
	if err != nil {
		return serverError(ctx, "Failed to get device history", err)
	}
	if history == nil {
		history = []models.CellularDeviceTransaction{}
	}
	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "message": "Device history found", "data": history})
}

type deviceUpdateInput struct {
	Status     *string            `json:"status" validate:"omitempty,oneof=in_stock sold returned repair qc_required quarantine qc_failed allocated"`
	GradeID    *uint              `json:"grade_id"`
	Color      *string            `json:"color"`
	StorageGB  *int               `json:"storage_gb" validate:"omitempty,min=1"`
	SupplierID *types.SnowflakeID `json:"supplier_id"`
	Notes      string             `json:"notes"`
}

// Update changes status, grade, supplier or physical settings of a device and records the change in its history.
func (c *DeviceController) Update(ctx *fiber.Ctx) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return badRequest(ctx, "Invalid ID")
	}

	var input deviceUpdateInput
	if err := ctx.BodyParser(&input); err != nil {
		return badRequest(ctx, "Invalid payload")
	}
	if err := validate.Struct(input); err != nil {
		return badRequest(ctx, err.Error())
	}

	db, err := unitDB(ctx)
	if err != nil {
		return err
	}
	actor := currentUser(ctx)

	var device *models.CellularDevice
	err = db.Transaction(func(tx *gorm.DB) error {
		repo := repositories.NewDeviceRepository(tx)

		current, err := repo.GetByID(ctx.Context(), id)
		if err != nil {
			return err
		}

		updates := map[string]interface{}{}
		var changed []string

		if input.Status != nil && *input.Status != current.Status {
			updates["status"] = *input.Status
			changed = append(changed, "status")
		}
		if input.GradeID != nil {
			ok, err := repositories.NewCatalogRepository(tx).GradeExists(ctx.Context(), *input.GradeID)
			if err != nil {
				return err
			}
			if !ok {
				return fiber.NewError(fiber.StatusNotFound, "Grade not found")
			}
			updates["grade_id"] = *input.GradeID
			changed = append(changed, "grade")
		}
		if input.SupplierID != nil {
			if _, err := repositories.NewSupplierRepository(tx).GetByID(ctx.Context(), *input.SupplierID); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fiber.NewError(fiber.StatusNotFound, "Supplier not found")
				}
				return err
			}
			updates["supplier_id"] = *input.SupplierID
			changed = append(changed, "supplier")
		}
		if input.Color != nil {
			updates["color"] = strings.TrimSpace(*input.Color)
			changed = append(changed, "color")
		}
		if input.StorageGB != nil {
			updates["storage_gb"] = *input.StorageGB
			changed = append(changed, "storage")
		}
		if len(updates) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Nothing to update")
		}

		updates["updated_by"] = actor
		updates["updated_at"] = time.Now()
		if err := repo.Update(ctx.Context(), id, updates); err != nil {
			return err
		}

		newStatus := current.Status
		if input.Status != nil {
			newStatus = *input.Status
		}
		prev := current.Status
		notes := "Updated " + strings.Join(changed, ", ")
		if input.Notes != "" {
			notes += ": " + strings.TrimSpace(input.Notes)
		}
		if err := repo.InsertTransactionHistory(ctx.Context(), &models.CellularDeviceTransaction{
			CellularDeviceID: id,
			TransactionType:  models.TransactionAdjust,
			PrevStatus:       &prev,
			NewStatus:        newStatus,
			Notes:            notes,
			CreatedBy:        actor,
		}); err != nil {
			return err
		}

		device, err = repo.GetByID(ctx.Context(), id)
		return err
	})
	if err != nil {
		var fe *fiber.Error
		switch {
		case errors.As(err, &fe):
			return ctx.Status(fe.Code).JSON(fiber.Map{"success": false, "message": fe.Message})
		case errors.Is(err, gorm.ErrRecordNotFound):
			return notFound(ctx, "Device not found")
		default:
			return serverError(ctx, "Failed to update device", err)
		}
	}

	zap.L().Info("device updated",
		zap.String("imei", device.IMEI),
		zap.String("status", device.Status),
		zap.String("by", actor.String()))

	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "message": "Device updated successfully", "data": device})
}
