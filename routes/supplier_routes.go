package routes

import (
	"refurb-app/config"
	"refurb-app/controllers"
	"refurb-app/middleware"

	"github.com/gofiber/fiber/v2"
)

func SetupSupplierRoutes(app *fiber.App) {
	api := app.Group(config.MAIN_ROUTES+"/suppliers", middleware.AuthMiddleware, middleware.InjectDB)
	supplierController := controllers.NewSupplierController()

	api.Post("/upload-excel", supplierController.CreateSupplierFromExcel)
	api.Post("/", supplierController.CreateSupplier)
	api.Get("/", supplierController.GetAllSuppliers)
	api.Get("/:id", supplierController.GetSupplierByID)
}
