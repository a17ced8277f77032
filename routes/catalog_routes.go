package routes

import (
	"refurb-app/config"
	"refurb-app/controllers"
	"refurb-app/middleware"
	"refurb-app/services/catalog"

	"github.com/gofiber/fiber/v2"
)

func SetupCatalogRoutes(app *fiber.App, models *catalog.ModelCache) {
	api := app.Group(config.MAIN_ROUTES+"/catalog", middleware.AuthMiddleware, middleware.InjectDB)
	catalogController := controllers.NewCatalogController(models)

	api.Get("/manufacturers", catalogController.GetManufacturers)
	api.Get("/manufacturers/:id/models", catalogController.GetModels)
	api.Get("/grades", catalogController.GetGrades)
	api.Get("/tac/:imei", catalogController.PreviewTac)
	api.Post("/tac/import", catalogController.ImportTac)
}
