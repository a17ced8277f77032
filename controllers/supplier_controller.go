package controllers

import (
	"errors"
	"fmt"
	"strings"

	"refurb-app/models"
	"refurb-app/repositories"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

type SupplierController struct{}

func NewSupplierController() *SupplierController {
	return &SupplierController{}
}

type supplierInput struct {
	SupplierCode string `json:"supplier_code" validate:"required,max=30"`
	Name         string `json:"name" validate:"required"`
	Email        string `json:"email" validate:"omitempty,email"`
	Phone        string `json:"phone"`
	AddressLine1 string `json:"address_line1"`
	City         string `json:"city"`
	Country      string `json:"country"`
	VatNumber    string `json:"vat_number"`
}

func (in supplierInput) toModel() models.Supplier {
	return models.Supplier{
		SupplierCode: strings.ToUpper(strings.TrimSpace(in.SupplierCode)),
		Name:         strings.TrimSpace(in.Name),
		Email:        strings.TrimSpace(in.Email),
		Phone:        strings.TrimSpace(in.Phone),
		AddressLine1: strings.TrimSpace(in.AddressLine1),
		City:         strings.TrimSpace(in.City),
		Country:      strings.TrimSpace(in.Country),
		VatNumber:    strings.TrimSpace(in.VatNumber),
	}
}

func (c *SupplierController) CreateSupplier(ctx *fiber.Ctx) error {
	var input supplierInput
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

	supplier := input.toModel()
	if err := repositories.NewSupplierRepository(db).Create(ctx.Context(), &supplier); err != nil {
		if repositories.IsUniqueViolation(err) {
			return ctx.Status(fiber.StatusConflict).JSON(fiber.Map{"success": false, "message": "Supplier code already exists"})
		}
		return serverError(ctx, "Failed to create supplier", err)
	}

	return ctx.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "message": "Supplier created successfully", "data": supplier})
}

func (c *SupplierController) GetAllSuppliers(ctx *fiber.Ctx) error {
	db, err := unitDB(ctx)
	if err != nil {
		return err
	}

	suppliers, err := repositories.NewSupplierRepository(db).GetAll(ctx.Context())
	if err != nil {
		return serverError(ctx, "Failed to get suppliers", err)
	}
	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "message": "Suppliers found", "data": suppliers})
}

func (c *SupplierController) GetSupplierByID(ctx *fiber.Ctx) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return badRequest(ctx, "Invalid ID")
	}

	db, err := unitDB(ctx)
	if err != nil {
		return err
	}

	result, err := repositories.NewSupplierRepository(db).GetByID(ctx.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(ctx, "Supplier not found")
		}
		return serverError(ctx, "Failed to get supplier", err)
	}
	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "message": "Supplier found", "data": result})
}

type SupplierUploadResult struct {
	TotalRows     int      `json:"total_rows"`
	SuccessCount  int      `json:"success_count"`
	SkippedCount  int      `json:"skipped_count"`
	ErrorCount    int      `json:"error_count"`
	SkippedItems  []string `json:"skipped_items"`
	ErrorMessages []string `json:"error_messages"`
}

// CreateSupplierFromExcel imports suppliers from the first sheet of an xlsx upload.
// Columns: code, name, address, city, country, phone, email, vat number.
func (c *SupplierController) CreateSupplierFromExcel(ctx *fiber.Ctx) error {
	file, err := ctx.FormFile("file")
	if err != nil {
		return badRequest(ctx, "File is required")
	}
	if !strings.HasSuffix(strings.ToLower(file.Filename), ".xlsx") {
		return badRequest(ctx, "Only Excel files (.xlsx) are allowed")
	}

	fileContent, err := file.Open()
	if err != nil {
		return serverError(ctx, "Failed to open file", err)
	}
	defer fileContent.Close()

	f, err := excelize.OpenReader(fileContent)
	if err != nil {
		return badRequest(ctx, "Failed to read Excel file")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return badRequest(ctx, "No sheets found in Excel file")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return serverError(ctx, "Failed to read rows", err)
	}
	if len(rows) < 2 {
		return badRequest(ctx, "Excel file must contain header and at least one data row")
	}

	db, err := unitDB(ctx)
	if err != nil {
		return err
	}

	result := SupplierUploadResult{
		TotalRows:     len(rows) - 1,
		SkippedItems:  []string{},
		ErrorMessages: []string{},
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		repo := repositories.NewSupplierRepository(tx)

		for i, row := range rows[1:] {
			rowNum := i + 2

			if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
				result.SkippedCount++
				continue
			}
			cell := func(idx int) string {
				if idx < len(row) {
					return row[idx]
				}
				return ""
			}

			input := supplierInput{
				SupplierCode: cell(0),
				Name:         cell(1),
				AddressLine1: cell(2),
				City:         cell(3),
				Country:      cell(4),
				Phone:        cell(5),
				Email:        strings.TrimSpace(cell(6)),
				VatNumber:    cell(7),
			}
			if err := validate.Struct(input); err != nil {
				result.ErrorCount++
				result.ErrorMessages = append(result.ErrorMessages, fmt.Sprintf("Row %d: %s", rowNum, err.Error()))
				continue
			}
			supplier := input.toModel()

			exists, err := repo.ExistsByCode(ctx.Context(), supplier.SupplierCode)
			if err != nil {
				return err
			}
			if exists {
				result.SkippedCount++
				result.SkippedItems = append(result.SkippedItems, supplier.SupplierCode)
				continue
			}

			if err := repo.Create(ctx.Context(), &supplier); err != nil {
				return fmt.Errorf("row %d: %w", rowNum, err)
			}
			result.SuccessCount++
		}
		return nil
	})
	if err != nil {
		return serverError(ctx, "Failed to import suppliers", err)
	}

	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": fmt.Sprintf("Upload completed: %d success, %d skipped, %d errors",
			result.SuccessCount, result.SkippedCount, result.ErrorCount),
		"data": result,
	})
}
