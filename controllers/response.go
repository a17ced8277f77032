package controllers

import (
	"errors"

	"refurb-app/services/intake"
	"refurb-app/types"

	"github.com/go-playground/validator"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var validate = validator.New()

func unitDB(ctx *fiber.Ctx) (*gorm.DB, error) {
	db, ok := ctx.Locals("db").(*gorm.DB)
	if !ok || db == nil {
		return nil, fiber.NewError(fiber.StatusInternalServerError, "database not found in context")
	}
	return db, nil
}

func currentUnit(ctx *fiber.Ctx) string {
	unit, _ := ctx.Locals("unit").(string)
	return unit
}

func currentUser(ctx *fiber.Ctx) types.SnowflakeID {
	userID, _ := ctx.Locals("userID").(types.SnowflakeID)
	return userID
}

func paramID(ctx *fiber.Ctx, name string) (types.SnowflakeID, error) {
	id, err := types.ParseSnowflakeID(ctx.Params(name))
	if err != nil || id.IsZero() {
		return 0, errors.New("invalid " + name)
	}
	return id, nil
}

func badRequest(ctx *fiber.Ctx, message string) error {
	return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": message})
}

func notFound(ctx *fiber.Ctx, message string) error {
	return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "message": message})
}

func serverError(ctx *fiber.Ctx, message string, err error) error {
	zap.L().Error(message, zap.String("path", ctx.Path()), zap.Error(err))
	return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": message})
}

func intakeStatus(kind intake.Kind) int {
	switch kind {
	case intake.KindNotFound:
		return fiber.StatusNotFound
	case intake.KindValidation, intake.KindOverReceipt:
		return fiber.StatusUnprocessableEntity
	case intake.KindConflict, intake.KindState:
		return fiber.StatusConflict
	case intake.KindBusy:
		return fiber.StatusTooManyRequests
	case intake.KindPartialBatch:
		return fiber.StatusMultiStatus
	default:
		return fiber.StatusBadGateway
	}
}

// intakeError renders an intake failure. data is attached when the call produced a partial result.
func intakeError(ctx *fiber.Ctx, err error, data interface{}) error {
	var batch *intake.BatchError
	if errors.As(err, &batch) {
		body := fiber.Map{
			"success":   false,
			"message":   batch.Cause.Message,
			"kind":      intake.KindPartialBatch,
			"committed": batch.Committed,
			"remaining": batch.Remaining,
			"failed":    batch.Failed,
		}
		if data != nil {
			body["data"] = data
		}
		return ctx.Status(fiber.StatusMultiStatus).JSON(body)
	}

	ie, ok := intake.AsError(err)
	if !ok {
		return serverError(ctx, "Unexpected intake failure", err)
	}
	if ie.Kind == intake.KindTransient {
		zap.L().Warn("intake storage failure", zap.String("path", ctx.Path()), zap.Error(ie))
	}

	body := fiber.Map{
		"success": false,
		"message": ie.Message,
		"kind":    ie.Kind,
	}
	if ie.Identifier != "" {
		body["imei"] = ie.Identifier
	}
	if data != nil {
		body["data"] = data
	}
	return ctx.Status(intakeStatus(ie.Kind)).JSON(body)
}
