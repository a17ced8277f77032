package configurations

import (
	"strings"

	"refurb-app/database"
	"refurb-app/repositories"
	"refurb-app/types"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type UnitRequest struct {
	Name string `json:"unit_name"`
	Seed bool   `json:"seed"`
}

// RequireAdmin lets only users with the admin role through.
func RequireAdmin(c *fiber.Ctx) error {
	db, ok := c.Locals("db").(*gorm.DB)
	userID, okUser := c.Locals("userID").(types.SnowflakeID)
	if !ok || !okUser {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"message": "Unauthorized: userID not found in context",
		})
	}

	user, err := repositories.NewUserRepository(db).GetByID(c.Context(), userID)
	if err != nil || user.Role != "admin" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"message": "Forbidden: You do not have permission",
		})
	}
	return c.Next()
}

// SetupUnit creates, migrates and optionally seeds the database of a business unit.
func SetupUnit(c *fiber.Ctx) error {
	var req UnitRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid request body"})
	}

	name := strings.TrimSpace(req.Name)
	if !database.ValidUnitName(name) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid database name"})
	}

	if _, err := database.SetupUnit(name, req.Seed); err != nil {
		zap.L().Error("unit setup failed", zap.String("unit", name), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "Failed to set up unit database"})
	}

	zap.L().Info("unit database ready", zap.String("unit", name), zap.Bool("seeded", req.Seed))
	return c.JSON(fiber.Map{"success": true, "message": "Database " + name + " is ready", "data": name})
}

func ActiveUnits(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"success": true, "message": "Active unit connections", "data": database.ActiveDBConnections()})
}
