package controllers

import (
	"strconv"

	"refurb-app/services/intake"
	"refurb-app/types"

	"github.com/gofiber/fiber/v2"
)

type IntakeController struct {
	Manager *intake.Manager
}

func NewIntakeController(manager *intake.Manager) *IntakeController {
	return &IntakeController{Manager: manager}
}

// session returns the intake session named in the path when it belongs to the caller.
func (c *IntakeController) session(ctx *fiber.Ctx) (*intake.Session, error) {
	s, err := c.Manager.Get(currentUnit(ctx), ctx.Params("sid"))
	if err != nil {
		return nil, err
	}
	if s.Actor != currentUser(ctx) {
		return nil, &intake.Error{Kind: intake.KindNotFound, Message: "Intake session not found"}
	}
	return s, nil
}

func (c *IntakeController) Open(ctx *fiber.Ctx) error {
	var input struct {
		PurchaseOrderID types.SnowflakeID `json:"purchase_order_id" validate:"required"`
		Mode            string            `json:"mode"`
	}
	if err := ctx.BodyParser(&input); err != nil {
		return badRequest(ctx, "Invalid payload")
	}
	if err := validate.Struct(input); err != nil {
		return badRequest(ctx, "purchase_order_id is required")
	}

	var mode intake.Mode
	if input.Mode != "" {
		parsed, err := intake.ParseMode(input.Mode)
		if err != nil {
			return intakeError(ctx, err, nil)
		}
		mode = parsed
	}

	s, err := c.Manager.Open(ctx.Context(), currentUnit(ctx), input.PurchaseOrderID, currentUser(ctx), mode)
	if err != nil {
		return intakeError(ctx, err, nil)
	}
	return ctx.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "message": "Intake session opened", "data": s.Snapshot()})
}

func (c *IntakeController) Get(ctx *fiber.Ctx) error {
	s, err := c.session(ctx)
	if err != nil {
		return intakeError(ctx, err, nil)
	}
	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "message": "Intake session found", "data": s.Snapshot()})
}

func (c *IntakeController) Scan(ctx *fiber.Ctx) error {
	var input struct {
		IMEI string `json:"imei"`
	}
	if err := ctx.BodyParser(&input); err != nil {
		return badRequest(ctx, "Invalid payload")
	}

	s, err := c.session(ctx)
	if err != nil {
		return intakeError(ctx, err, nil)
	}

	result, err := s.Submit(ctx.Context(), input.IMEI)
	if err != nil {
		return intakeError(ctx, err, s.Snapshot())
	}

	message := "Device added"
	if result.Outcome == intake.OutcomeQueued {
		message = "Device queued"
	}
	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": message,
		"data": fiber.Map{
			"result":  result,
			"session": s.Snapshot(),
		},
	})
}

func (c *IntakeController) UpdateSettings(ctx *fiber.Ctx) error {
	var input struct {
		intake.DeviceSettings
		ApplyToAll bool `json:"apply_to_all"`
	}
	if err := ctx.BodyParser(&input); err != nil {
		return badRequest(ctx, "Invalid payload")
	}

	s, err := c.session(ctx)
	if err != nil {
		return intakeError(ctx, err, nil)
	}
	if err := s.UpdateSettings(input.DeviceSettings, input.ApplyToAll); err != nil {
		return intakeError(ctx, err, nil)
	}
	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "message": "Settings updated", "data": s.Snapshot()})
}

func (c *IntakeController) SetMode(ctx *fiber.Ctx) error {
	var input struct {
		Mode string `json:"mode"`
	}
	if err := ctx.BodyParser(&input); err != nil {
		return badRequest(ctx, "Invalid payload")
	}
	mode, err := intake.ParseMode(input.Mode)
	if err != nil {
		return intakeError(ctx, err, nil)
	}

	s, err := c.session(ctx)
	if err != nil {
		return intakeError(ctx, err, nil)
	}
	if err := s.SetMode(mode); err != nil {
		return intakeError(ctx, err, s.Snapshot())
	}
	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "message": "Mode updated", "data": s.Snapshot()})
}

func (c *IntakeController) RemoveQueued(ctx *fiber.Ctx) error {
	index, err := strconv.Atoi(ctx.Params("index"))
	if err != nil {
		return badRequest(ctx, "Invalid queue index")
	}

	s, err := c.session(ctx)
	if err != nil {
		return intakeError(ctx, err, nil)
	}
	if _, err := s.RemoveQueued(index); err != nil {
		return intakeError(ctx, err, nil)
	}
	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "message": "Device removed from queue", "data": s.Snapshot()})
}

// SubmitAll writes the queued devices. A failure part way answers 207 with what was committed.
func (c *IntakeController) SubmitAll(ctx *fiber.Ctx) error {
	s, err := c.session(ctx)
	if err != nil {
		return intakeError(ctx, err, nil)
	}

	result, err := s.SubmitAll(ctx.Context())
	if err != nil {
		data := fiber.Map{"session": s.Snapshot()}
		if result != nil {
			data["result"] = result
		}
		return intakeError(ctx, err, data)
	}
	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": strconv.Itoa(result.Committed) + " device(s) added",
		"data": fiber.Map{
			"result":  result,
			"session": s.Snapshot(),
		},
	})
}

func (c *IntakeController) ClearError(ctx *fiber.Ctx) error {
	s, err := c.session(ctx)
	if err != nil {
		return intakeError(ctx, err, nil)
	}
	s.ClearError()
	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "message": "Error cleared", "data": s.Snapshot()})
}

func (c *IntakeController) Close(ctx *fiber.Ctx) error {
	s, err := c.session(ctx)
	if err != nil {
		return intakeError(ctx, err, nil)
	}
	if err := c.Manager.Close(s.Unit, s.ID); err != nil {
		return intakeError(ctx, err, nil)
	}
	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "message": "Intake session closed"})
}
