package routes

import (
	"refurb-app/config"
	"refurb-app/controllers"
	"refurb-app/middleware"

	"github.com/gofiber/fiber/v2"
)

func SetupDeviceRoutes(app *fiber.App) {
	api := app.Group(config.MAIN_ROUTES+"/devices", middleware.AuthMiddleware, middleware.InjectDB)
	deviceController := controllers.NewDeviceController()

	api.Get("/:imei", deviceController.GetByIMEI)
	api.Get("/:id/history", deviceController.GetHistory)
	api.Put("/:id", deviceController.Update)
}
