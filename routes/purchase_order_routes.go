package routes

import (
	"refurb-app/config"
	"refurb-app/controllers"
	"refurb-app/middleware"
	"refurb-app/services/events"

	"github.com/gofiber/fiber/v2"
)

func SetupPurchaseOrderRoutes(app *fiber.App, broker *events.Broker) {
	api := app.Group(config.MAIN_ROUTES+"/purchase-orders", middleware.AuthMiddleware, middleware.InjectDB)
	poController := controllers.NewPurchaseOrderController(broker)

	api.Get("/", poController.GetAll)
	api.Post("/", poController.Create)
	api.Get("/:id", poController.GetByID)
	api.Put("/:id/status", poController.UpdateStatus)
	api.Get("/:id/planned", poController.GetPlanned)
	api.Get("/:id/received", poController.GetReceived)
	api.Get("/:id/received/export", poController.ExportReceived)
	api.Get("/:id/fulfillment", poController.GetFulfillment)
	api.Get("/:id/labels", poController.PrintLabels)
	api.Get("/:id/events", poController.Events)
}
