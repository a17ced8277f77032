package routes

import (
	"refurb-app/services/catalog"
	"refurb-app/services/events"
	"refurb-app/services/intake"

	"github.com/gofiber/fiber/v2"
)

// Dependencies are the process wide services shared by the route groups.
type Dependencies struct {
	Intake *intake.Manager
	Models *catalog.ModelCache
	Events *events.Broker
}

func SetupRoutes(app *fiber.App, deps Dependencies) {
	SetupAuthRoutes(app)
	SetupConfigurationRoutes(app)
	SetupSupplierRoutes(app)
	SetupCatalogRoutes(app, deps.Models)
	SetupDeviceRoutes(app)
	SetupPurchaseOrderRoutes(app, deps.Events)
	SetupIntakeRoutes(app, deps.Intake)
}
