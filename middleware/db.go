package middleware

import (
	"refurb-app/database"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// InjectDB stores the database of the unit in the request locals when AuthMiddleware has not already.
func InjectDB(c *fiber.Ctx) error {
	if _, ok := c.Locals("db").(*gorm.DB); ok {
		return c.Next()
	}

	dbName, ok := c.Locals("unit").(string)
	if !ok || dbName == "" {
		return fiber.NewError(fiber.StatusInternalServerError, "database name not found in context")
	}

	db, err := database.GetDBConnection(dbName)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "error connecting to database")
	}

	c.Locals("db", db)
	return c.Next()
}
