package controllers

import (
	"errors"

	"refurb-app/repositories"
	"refurb-app/services/catalog"
	"refurb-app/services/intake"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CatalogController struct {
	Models *catalog.ModelCache
}

func NewCatalogController(models *catalog.ModelCache) *CatalogController {
	return &CatalogController{Models: models}
}

func (c *CatalogController) GetManufacturers(ctx *fiber.Ctx) error {
	db, err := unitDB(ctx)
	if err != nil {
		return err
	}

	result, err := repositories.NewCatalogRepository(db).ListManufacturers(ctx.Context())
	if err != nil {
		return serverError(ctx, "Failed to get manufacturers", err)
	}
	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "message": "Manufacturers found", "data": result})
}

func (c *CatalogController) GetGrades(ctx *fiber.Ctx) error {
	db, err := unitDB(ctx)
	if err != nil {
		return err
	}

	result, err := repositories.NewCatalogRepository(db).ListGrades(ctx.Context())
	if err != nil {
		return serverError(ctx, "Failed to get grades", err)
	}
	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "message": "Grades found", "data": result})
}

// GetModels lists the model names of a manufacturer through the model cache.
func (c *CatalogController) GetModels(ctx *fiber.Ctx) error {
	manufacturerID, err := paramID(ctx, "id")
	if err != nil {
		return badRequest(ctx, "Invalid manufacturer ID")
	}

	db, err := unitDB(ctx)
	if err != nil {
		return err
	}

	names, err := c.Models.Models(ctx.Context(), currentUnit(ctx), manufacturerID, repositories.NewCatalogRepository(db))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(ctx, "Manufacturer not found")
		}
		return serverError(ctx, "Failed to get models", err)
	}
	if names == nil {
		names = []string{}
	}
	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "message": "Models found", "data": names})
}

// PreviewTac resolves an IMEI against the catalogue without touching any session.
func (c *CatalogController) PreviewTac(ctx *fiber.Ctx) error {
	db, err := unitDB(ctx)
	if err != nil {
		return err
	}

	resolver := intake.NewResolver(repositories.NewIntakeGateway(db))
	ref, err := resolver.Resolve(ctx.Context(), ctx.Params("imei"))
	if err != nil {
		return intakeError(ctx, err, nil)
	}
	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "message": "Device found", "data": ref})
}

// ImportTac loads TAC rows from an uploaded xlsx file, form field "file".
func (c *CatalogController) ImportTac(ctx *fiber.Ctx) error {
	file, err := ctx.FormFile("file")
	if err != nil {
		return badRequest(ctx, "Failed to get file")
	}

	src, err := file.Open()
	if err != nil {
		return serverError(ctx, "Failed to open file", err)
	}
	defer src.Close()

	rows, err := catalog.ReadSheetRows(src)
	if err != nil {
		return badRequest(ctx, "Failed to read Excel file")
	}

	parsed, result := catalog.ParseTacRows(rows)
	if len(parsed) == 0 {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "No valid TAC rows found",
			"data":    result,
		})
	}

	db, err := unitDB(ctx)
	if err != nil {
		return err
	}

	inserted, updated, err := repositories.NewCatalogRepository(db).UpsertTacCodes(ctx.Context(), parsed)
	if err != nil {
		return serverError(ctx, "Failed to save TAC codes", err)
	}
	c.Models.InvalidateUnit(currentUnit(ctx))

	zap.L().Info("tac codes imported",
		zap.String("unit", currentUnit(ctx)),
		zap.String("file", file.Filename),
		zap.Int("inserted", inserted),
		zap.Int("updated", updated),
		zap.Int("errors", result.ErrorCount))

	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "TAC codes imported",
		"data": fiber.Map{
			"result":   result,
			"inserted": inserted,
			"updated":  updated,
		},
	})
}
