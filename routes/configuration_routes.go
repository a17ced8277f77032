package routes

import (
	"refurb-app/config"
	"refurb-app/controllers/configurations"
	"refurb-app/middleware"

	"github.com/gofiber/fiber/v2"
)

func SetupConfigurationRoutes(app *fiber.App) {
	api := app.Group(config.MAIN_ROUTES+"/configurations", middleware.AuthMiddleware, configurations.RequireAdmin)
	api.Get("/units", configurations.ActiveUnits)
	api.Post("/units", configurations.SetupUnit)
}
